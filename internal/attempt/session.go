// Package attempt runs one timed quiz attempt: it loads the quiz, records
// answers, counts down the time budget and submits the answers at most once.
package attempt

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/quizmaster/quizmaster/internal/countdown"
	"github.com/quizmaster/quizmaster/internal/logsvc"
)

// API is the backend collaborator of a session.
type API interface {
	LoadAttempt(ctx context.Context, quizID string) (Attempt, error)
	Grader
}

type State int

const (
	StateLoading State = iota
	StateReady
	StateSubmitting
	StateSubmitted
	StateLoadFailed
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateSubmitting:
		return "submitting"
	case StateSubmitted:
		return "submitted"
	case StateLoadFailed:
		return "load_failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

type EventKind string

const (
	EventLoaded       EventKind = "loaded"
	EventTick         EventKind = "tick"
	EventExpired      EventKind = "expired"
	EventSubmitted    EventKind = "submitted"
	EventSubmitFailed EventKind = "submit_failed"
)

// Event reports a session change to a front end.
type Event struct {
	Kind      EventKind
	Remaining countdown.Remaining
	Result    Result
	Trigger   Trigger
	Message   string
	Err       error
}

type SessionOption func(*Session)

func WithClock(c countdown.Clock) SessionOption { return func(s *Session) { s.clock = c } }

func WithTickInterval(d time.Duration) SessionOption {
	return func(s *Session) { s.interval = d }
}

func WithLogger(l logsvc.Logger) SessionOption { return func(s *Session) { s.log = l } }

// WithEvents registers a callback for session events. It runs on the
// goroutine that caused the event and must not block for long.
func WithEvents(fn func(Event)) SessionOption { return func(s *Session) { s.onEvent = fn } }

// WithDeadlineStore makes the countdown resume a persisted deadline for
// subject instead of restarting the full budget.
func WithDeadlineStore(store DeadlineStore, subject string) SessionOption {
	return func(s *Session) {
		s.deadlines = store
		s.subject = subject
	}
}

// WithSubmitTimeout bounds the automatic submission fired on expiry.
func WithSubmitTimeout(d time.Duration) SessionOption {
	return func(s *Session) { s.submitTimeout = d }
}

// Session owns the lifecycle of one attempt:
// Loading -> Ready -> Submitting -> Submitted, back to Ready when a
// submission fails, or Loading -> LoadFailed.
type Session struct {
	quizID        string
	api           API
	clock         countdown.Clock
	interval      time.Duration
	log           logsvc.Logger
	onEvent       func(Event)
	deadlines     DeadlineStore
	subject       string
	submitTimeout time.Duration

	mu         sync.Mutex
	loading    bool
	loaded     bool
	loadFailed bool
	closed     bool
	available  Availability
	attempt    Attempt
	duration   time.Duration
	answers    *AnswerStore
	timer      *countdown.Timer
	submitter  *Submitter
	message    string
}

func NewSession(api API, quizID string, opts ...SessionOption) *Session {
	s := &Session{
		quizID:        quizID,
		api:           api,
		clock:         countdown.RealClock(),
		interval:      countdown.DefaultInterval,
		log:           logsvc.Discard(),
		submitTimeout: 30 * time.Second,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Session) emit(e Event) {
	s.mu.Lock()
	fn, closed := s.onEvent, s.closed
	s.mu.Unlock()
	if fn != nil && !closed {
		fn(e)
	}
}

// Load fetches the quiz and its questions. On success the session is Ready
// and, when the quiz is open and timed, the countdown is running. A response
// that arrives after Close is dropped.
func (s *Session) Load(ctx context.Context) error {
	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		return ErrClosed
	case s.loading || s.loaded || s.loadFailed:
		s.mu.Unlock()
		return errors.New("session already loaded")
	}
	s.loading = true
	s.mu.Unlock()

	a, err := s.api.LoadAttempt(ctx, s.quizID)
	if err != nil {
		msg := UserMessage(err, msgLoadFailed, msgLoadNetwork)
		s.mu.Lock()
		s.loading = false
		s.loadFailed = true
		s.message = msg
		s.mu.Unlock()
		s.log.Error("load quiz failed", err, map[string]interface{}{"quiz_id": s.quizID})
		return errors.Wrapf(err, "load quiz %s", s.quizID)
	}

	timer := countdown.New(s.clock,
		countdown.WithInterval(s.interval),
		countdown.OnTick(func(r countdown.Remaining) { s.emit(Event{Kind: EventTick, Remaining: r}) }),
		countdown.OnExpire(s.expire),
	)
	answers := NewAnswerStore()

	s.mu.Lock()
	s.loading = false
	if s.closed {
		s.mu.Unlock()
		s.log.Debug("dropping quiz loaded after close", map[string]interface{}{"quiz_id": s.quizID})
		return ErrClosed
	}
	s.attempt = a
	s.answers = answers
	s.timer = timer
	s.submitter = NewSubmitter(s.quizID, s.api, answers, a.Questions, timer, s.log)
	s.duration = ParseDuration(a.Quiz.TimeDuration)
	s.available = a.Quiz.Window().At(s.clock.Now())
	s.loaded = true
	available, duration := s.available, s.duration
	s.mu.Unlock()

	if available == Open && duration > 0 {
		s.startTimer(ctx, duration)
	}
	s.emit(Event{Kind: EventLoaded, Remaining: timer.Remaining()})
	return nil
}

func (s *Session) deadlineKey() DeadlineKey {
	return DeadlineKey{Subject: s.subject, QuizID: s.quizID}
}

func (s *Session) startTimer(ctx context.Context, duration time.Duration) {
	deadline := s.clock.Now().Add(duration)
	if s.deadlines != nil {
		stored, ok, err := s.deadlines.LoadDeadline(ctx, s.deadlineKey())
		switch {
		case err != nil:
			s.log.Warn("deadline store unavailable, using full duration", err)
		case ok:
			deadline = stored
			s.log.Info("resuming attempt deadline", map[string]interface{}{"quiz_id": s.quizID, "deadline": stored})
		default:
			if err := s.deadlines.SaveDeadline(ctx, s.deadlineKey(), deadline); err != nil {
				s.log.Warn("save deadline failed", err)
			}
		}
	}
	s.timer.StartAt(deadline)
}

// expire runs on the timer goroutine when time is up.
func (s *Session) expire() {
	if s.isClosed() {
		return
	}
	s.emit(Event{Kind: EventExpired, Remaining: countdown.Remaining{Expired: true}})
	if s.submitter.Submitted() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.submitTimeout)
	defer cancel()
	_, _ = s.submit(ctx, TriggerExpiry)
}

// Submit sends the answers on the user's behalf. Unanswered questions are
// submitted as null.
func (s *Session) Submit(ctx context.Context) (Result, error) {
	return s.submit(ctx, TriggerUser)
}

func (s *Session) submit(ctx context.Context, trigger Trigger) (Result, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Result{}, ErrClosed
	}
	if !s.loaded {
		s.mu.Unlock()
		return Result{}, ErrNotReady
	}
	if s.available != Open {
		s.mu.Unlock()
		return Result{}, ErrNotAvailable
	}
	sub := s.submitter
	s.mu.Unlock()

	res, err := sub.Submit(ctx, trigger)
	if errors.Is(err, ErrAlreadySubmitted) {
		return Result{}, err
	}
	if err != nil {
		msg := UserMessage(err, msgSubmitFailed, msgSubmitNetwork)
		s.mu.Lock()
		s.message = msg
		s.mu.Unlock()
		s.emit(Event{Kind: EventSubmitFailed, Trigger: trigger, Message: msg, Err: err})
		return Result{}, err
	}

	s.mu.Lock()
	s.message = ""
	s.mu.Unlock()
	if s.deadlines != nil {
		if err := s.deadlines.DeleteDeadline(ctx, s.deadlineKey()); err != nil {
			s.log.Warn("delete deadline failed", err)
		}
	}
	s.emit(Event{Kind: EventSubmitted, Trigger: trigger, Result: res})
	return res, nil
}

// Answer records the option chosen for a question.
func (s *Session) Answer(questionID, option int) error {
	s.mu.Lock()
	loaded, sub, answers := s.loaded, s.submitter, s.answers
	questions := s.attempt.Questions
	s.mu.Unlock()
	if !loaded {
		return ErrNotReady
	}
	if sub.Submitted() {
		return ErrAlreadySubmitted
	}
	for _, q := range questions {
		if q.ID == questionID {
			return answers.Set(questionID, option)
		}
	}
	return errors.Wrapf(ErrUnknownQuestion, "question %d", questionID)
}

// Close stops the countdown and abandons the attempt: a pending load is
// dropped, no further submission is started and no events are emitted.
// Responses to requests already in flight update the attempt silently.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	timer := s.timer
	s.mu.Unlock()
	if timer != nil {
		timer.Stop()
	}
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.loadFailed:
		return StateLoadFailed
	case !s.loaded:
		return StateLoading
	}
	if _, ok := s.submitter.Result(); ok {
		return StateSubmitted
	}
	if s.submitter.Submitted() {
		return StateSubmitting
	}
	return StateReady
}

// Available reports whether the quiz was open when it was loaded.
func (s *Session) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded && s.available == Open
}

// Availability returns the window status and the notice to show when the
// quiz is closed.
func (s *Session) Availability() (Availability, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return Open, ""
	}
	q := s.attempt.Quiz
	switch s.available {
	case NotStarted:
		start, date := q.StartTime, q.DateOfQuiz
		if start == "" && q.StartDateTime != nil {
			start = q.StartDateTime.Format("15:04")
			date = q.StartDateTime.Format("2006-01-02")
		}
		return NotStarted, fmt.Sprintf(msgNotStarted, start, date)
	case Ended:
		return Ended, msgEnded
	}
	return Open, ""
}

// CanSubmit gates the submit affordance: open, unsubmitted and complete.
func (s *Session) CanSubmit() bool {
	if s.State() != StateReady || !s.Available() {
		return false
	}
	return s.answers.IsComplete(s.Questions())
}

func (s *Session) Quiz() Quiz {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempt.Quiz
}

func (s *Session) Questions() []Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempt.Questions
}

// Answers is nil until the session is loaded.
func (s *Session) Answers() *AnswerStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.answers
}

// Timed reports whether the countdown was started.
func (s *Session) Timed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer == nil {
		return false
	}
	_, started := s.timer.Deadline()
	return started
}

func (s *Session) Remaining() countdown.Remaining {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer == nil {
		return countdown.Remaining{}
	}
	return s.timer.Remaining()
}

// Expired is closed when the countdown reaches zero and the automatic
// submission has returned. Nil before Load.
func (s *Session) Expired() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer == nil {
		return nil
	}
	return s.timer.Done()
}

func (s *Session) Result() (Result, bool) {
	s.mu.Lock()
	sub := s.submitter
	s.mu.Unlock()
	if sub == nil {
		return Result{}, false
	}
	return sub.Result()
}

// Message is the user-facing text of the last load or submission failure.
func (s *Session) Message() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadFailed && s.message == "" {
		return msgLoadFailed
	}
	return s.message
}

// Submissions counts submissions that reached the backend.
func (s *Session) Submissions() int {
	s.mu.Lock()
	sub := s.submitter
	s.mu.Unlock()
	if sub == nil {
		return 0
	}
	return sub.Attempts()
}
