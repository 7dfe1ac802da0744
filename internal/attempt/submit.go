package attempt

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/quizmaster/quizmaster/internal/logsvc"
)

// Grader sends answers to the backend for grading.
type Grader interface {
	SubmitAttempt(ctx context.Context, quizID string, payload Payload) (Result, error)
}

// Stopper is the part of the countdown the controller needs.
type Stopper interface{ Stop() }

// Trigger names what started a submission.
type Trigger string

const (
	TriggerUser   Trigger = "user"
	TriggerExpiry Trigger = "expiry"
)

// Submitter guarantees a quiz attempt is submitted at most once. The
// submitted flag is claimed under the lock before any network call, so a
// user submit racing an expiry submit issues a single request. A failed
// request releases the claim so the attempt can be retried.
type Submitter struct {
	quizID    string
	grader    Grader
	answers   *AnswerStore
	questions []Question
	timer     Stopper
	log       logsvc.Logger

	mu        sync.Mutex
	submitted bool
	result    *Result
	lastErr   error
	attempts  int
}

func NewSubmitter(quizID string, grader Grader, answers *AnswerStore, questions []Question, timer Stopper, log logsvc.Logger) *Submitter {
	if log == nil {
		log = logsvc.Discard()
	}
	return &Submitter{
		quizID:    quizID,
		grader:    grader,
		answers:   answers,
		questions: questions,
		timer:     timer,
		log:       log,
	}
}

// claim flips submitted; it reports false when another submission already
// holds it.
func (s *Submitter) claim() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitted {
		return false
	}
	s.submitted = true
	s.lastErr = nil
	s.attempts++
	return true
}

// Submit sends the current answers. It returns ErrAlreadySubmitted, with
// no network activity, when a submission has succeeded or is in flight.
func (s *Submitter) Submit(ctx context.Context, trigger Trigger) (Result, error) {
	if !s.claim() {
		return Result{}, ErrAlreadySubmitted
	}
	payload := s.answers.Payload(s.questions)
	s.log.Debug("submitting attempt", map[string]interface{}{
		"quiz_id": s.quizID, "trigger": string(trigger), "answered": s.answers.Answered(s.questions),
	})

	res, err := s.grader.SubmitAttempt(ctx, s.quizID, payload)
	if err != nil {
		err = errors.Wrapf(err, "submit quiz %s", s.quizID)
		s.mu.Lock()
		s.submitted = false
		s.lastErr = err
		s.mu.Unlock()
		s.log.Warn("submission failed", err, map[string]interface{}{"quiz_id": s.quizID, "trigger": string(trigger)})
		return Result{}, err
	}

	s.mu.Lock()
	s.result = &res
	s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.log.Info("attempt submitted", map[string]interface{}{
		"quiz_id": s.quizID, "trigger": string(trigger), "score": res.Score, "total": res.Total,
	})
	return res, nil
}

// Submitted reports whether a submission has succeeded or is in flight.
func (s *Submitter) Submitted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitted
}

// Result returns the grading result once a submission has succeeded.
func (s *Submitter) Result() (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return Result{}, false
	}
	return *s.result, true
}

// Err is the error of the last failed submission, cleared on the next try.
func (s *Submitter) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Attempts counts submissions that passed the guard.
func (s *Submitter) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}
