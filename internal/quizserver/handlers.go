package quizserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/quizmaster/quizmaster/internal/attempt"
	"github.com/quizmaster/quizmaster/internal/logsvc"
)

const wireTime = "2006-01-02 15:04:05"

type Server struct {
	Store Store
	Log   logsvc.Logger
	Now   func() time.Time
	NewID func() string
}

func NewServer(store Store, log logsvc.Logger) *Server {
	if log == nil {
		log = logsvc.Discard()
	}
	return &Server{
		Store: store,
		Log:   log,
		Now:   time.Now,
		NewID: func() string { return uuid.NewString() },
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

// loadOpenQuiz resolves {quizID} and checks the quiz window. It writes the
// error response itself and returns ok=false on failure.
func (s *Server) loadOpenQuiz(w http.ResponseWriter, r *http.Request) (QuizRecord, time.Time, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "quizID"))
	if err != nil {
		writeMessage(w, http.StatusNotFound, "Quiz not found.")
		return QuizRecord{}, time.Time{}, false
	}
	q, err := s.Store.GetQuiz(r.Context(), id)
	if errors.Is(err, ErrQuizNotFound) {
		writeMessage(w, http.StatusNotFound, "Quiz not found.")
		return QuizRecord{}, time.Time{}, false
	}
	if err != nil {
		s.Log.Error("get quiz", err, map[string]interface{}{"quiz_id": id})
		writeMessage(w, http.StatusInternalServerError, "Failed to load quiz.")
		return QuizRecord{}, time.Time{}, false
	}
	if q.StartTime == "" {
		writeMessage(w, http.StatusBadRequest, "Start time missing. Contact admin.")
		return QuizRecord{}, time.Time{}, false
	}
	start, err := q.StartAt()
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid quiz schedule. Contact admin.")
		return QuizRecord{}, time.Time{}, false
	}
	now := s.Now()
	if now.Before(start) {
		writeMessage(w, http.StatusBadRequest,
			fmt.Sprintf("Quiz not started. Opens at %s on %s.", start.Format("15:04"), start.Format("2006-01-02")))
		return QuizRecord{}, time.Time{}, false
	}
	if q.EndAt != nil && now.After(*q.EndAt) {
		writeMessage(w, http.StatusBadRequest, "Quiz has ended.")
		return QuizRecord{}, time.Time{}, false
	}
	return q, start, true
}

// GET /api/user/attempt_quiz/{quizID}/attempt
func (s *Server) GetAttemptHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, start, ok := s.loadOpenQuiz(w, r)
		if !ok {
			return
		}
		questions := make([]attempt.Question, 0, len(q.Questions))
		for _, qr := range q.Questions {
			questions = append(questions, qr.Question)
		}
		quiz := attempt.Quiz{
			ID:            q.ID,
			ChapterID:     q.ChapterID,
			TimeDuration:  q.TimeDuration,
			StartDateTime: &attempt.Timestamp{Time: start},
			StartTime:     q.StartTime,
			DateOfQuiz:    q.DateOfQuiz,
			Remarks:       q.Remarks,
		}
		if q.EndAt != nil {
			quiz.EndDateTime = &attempt.Timestamp{Time: *q.EndAt}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"quiz":                quiz,
			"questions":           questions,
			"quiz_start_datetime": start.Format(wireTime),
			"now":                 s.Now().Format(wireTime),
		})
	}
}

// POST /api/user/attempt_quiz/{quizID}/attempt
func (s *Server) SubmitAttemptHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, _, ok := s.loadOpenQuiz(w, r)
		if !ok {
			return
		}
		var payload attempt.Payload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeMessage(w, http.StatusBadRequest, "Invalid submission body.")
			return
		}
		score, total := Grade(q.Questions, payload)
		sc := Score{
			ID:          s.NewID(),
			QuizID:      q.ID,
			UserID:      SubjectFromContext(r.Context()),
			TotalScored: score,
			Total:       total,
			AttemptedAt: s.Now().UTC(),
		}
		if err := s.Store.RecordScore(r.Context(), sc); err != nil {
			s.Log.Error("record score", err, map[string]interface{}{"quiz_id": q.ID}, logsvc.Person{ID: sc.UserID})
			writeMessage(w, http.StatusInternalServerError, "Failed to save score.")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"message": "Submission successful",
			"score":   score,
			"total":   total,
		})
	}
}

// GET /api/user/attempt_quiz/{quizID}/scores lists the caller's scores;
// the admin route lists everyone's.
func (s *Server) ListScoresHandler(all bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.Atoi(chi.URLParam(r, "quizID"))
		if err != nil {
			writeMessage(w, http.StatusNotFound, "Quiz not found.")
			return
		}
		user := SubjectFromContext(r.Context())
		if all {
			user = ""
		}
		scores, err := s.Store.ListScores(r.Context(), id, user)
		if err != nil {
			s.Log.Error("list scores", err, map[string]interface{}{"quiz_id": id})
			writeMessage(w, http.StatusInternalServerError, "Failed to load scores.")
			return
		}
		if scores == nil {
			scores = []Score{}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"scores": scores})
	}
}
