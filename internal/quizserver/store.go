// Package quizserver is a reference backend for the attempt endpoints. It
// grades multiple choice answers and records one score per submission.
package quizserver

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/quizmaster/quizmaster/internal/attempt"
)

var ErrQuizNotFound = errors.New("quiz not found")

// QuestionRecord is a question as stored, answer key included.
type QuestionRecord struct {
	attempt.Question
	Position      int `json:"position,omitempty"`
	CorrectOption int `json:"correct_option"`
}

// QuizRecord is a quiz as stored. Start is derived from DateOfQuiz and
// StartTime; End is optional.
type QuizRecord struct {
	ID           int              `json:"id"`
	ChapterID    int              `json:"chapter_id,omitempty"`
	DateOfQuiz   string           `json:"date_of_quiz"` // YYYY-MM-DD
	StartTime    string           `json:"start_time"`   // HH:MM
	TimeDuration string           `json:"time_duration,omitempty"`
	EndAt        *time.Time       `json:"end_at,omitempty"`
	Remarks      string           `json:"remarks,omitempty"`
	Questions    []QuestionRecord `json:"questions"`
}

// StartAt combines DateOfQuiz and StartTime in local time.
func (q QuizRecord) StartAt() (time.Time, error) {
	return time.ParseInLocation("2006-01-02 15:04", q.DateOfQuiz+" "+q.StartTime, time.Local)
}

// Score is one graded submission.
type Score struct {
	ID          string    `json:"id"`
	QuizID      int       `json:"quiz_id"`
	UserID      string    `json:"user_id"`
	TotalScored int       `json:"total_scored"`
	Total       int       `json:"total"`
	AttemptedAt time.Time `json:"attempted_at"`
}

// Store persists quizzes and scores. ListScores returns newest first; an
// empty userID lists every user.
type Store interface {
	PutQuiz(ctx context.Context, q QuizRecord) error
	GetQuiz(ctx context.Context, id int) (QuizRecord, error)
	RecordScore(ctx context.Context, s Score) error
	ListScores(ctx context.Context, quizID int, userID string) ([]Score, error)
}

type memoryStore struct {
	mu      sync.RWMutex
	quizzes map[int]QuizRecord
	scores  []Score
}

func NewInMemoryStore() Store {
	return &memoryStore{quizzes: map[int]QuizRecord{}}
}

func (m *memoryStore) PutQuiz(_ context.Context, q QuizRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	qs := append([]QuestionRecord(nil), q.Questions...)
	sort.SliceStable(qs, func(i, j int) bool { return qs[i].Position < qs[j].Position })
	q.Questions = qs
	m.quizzes[q.ID] = q
	return nil
}

func (m *memoryStore) GetQuiz(_ context.Context, id int) (QuizRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.quizzes[id]
	if !ok {
		return QuizRecord{}, ErrQuizNotFound
	}
	q.Questions = append([]QuestionRecord(nil), q.Questions...)
	return q, nil
}

func (m *memoryStore) RecordScore(_ context.Context, s Score) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scores = append(m.scores, s)
	return nil
}

func (m *memoryStore) ListScores(_ context.Context, quizID int, userID string) ([]Score, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Score
	for i := len(m.scores) - 1; i >= 0; i-- {
		s := m.scores[i]
		if s.QuizID == quizID && (userID == "" || s.UserID == userID) {
			out = append(out, s)
		}
	}
	return out, nil
}
