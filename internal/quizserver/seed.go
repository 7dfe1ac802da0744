package quizserver

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"
)

// LoadSeed reads a JSON array of quizzes and stores each one.
func LoadSeed(ctx context.Context, store Store, r io.Reader) (int, error) {
	var quizzes []QuizRecord
	if err := json.NewDecoder(r).Decode(&quizzes); err != nil {
		return 0, errors.Wrap(err, "decode seed")
	}
	for _, q := range quizzes {
		for _, qu := range q.Questions {
			if qu.CorrectOption < 1 || qu.CorrectOption > 4 {
				return 0, errors.Errorf("quiz %d question %d: correct_option must be 1..4", q.ID, qu.ID)
			}
		}
		if err := store.PutQuiz(ctx, q); err != nil {
			return 0, errors.Wrapf(err, "seed quiz %d", q.ID)
		}
	}
	return len(quizzes), nil
}

func LoadSeedFile(ctx context.Context, store Store, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrap(err, "open seed")
	}
	defer f.Close()
	return LoadSeed(ctx, store, f)
}
