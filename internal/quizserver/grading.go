package quizserver

import "github.com/quizmaster/quizmaster/internal/attempt"

// Grade awards one point per question whose submitted option matches the
// answer key. Unanswered questions score nothing.
func Grade(questions []QuestionRecord, payload attempt.Payload) (score, total int) {
	for _, q := range questions {
		if selected, ok := payload.Lookup(q.ID); ok && selected == q.CorrectOption {
			score++
		}
	}
	return score, len(questions)
}
