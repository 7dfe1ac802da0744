package attempt_test

import (
	"context"
	"sync"

	"github.com/quizmaster/quizmaster/internal/attempt"
)

/* ---------------- fakes for attempt.API and attempt.APIError ---------------- */

type fakeAPI struct {
	mu         sync.Mutex
	attempt    attempt.Attempt
	loadErr    error
	submitErrs []error // consumed one per call
	result     attempt.Result
	payloads   []attempt.Payload

	// entered receives once per SubmitAttempt call; release, when set,
	// holds the call until closed.
	entered chan struct{}
	release chan struct{}

	// loadEntered and loadRelease do the same for LoadAttempt.
	loadEntered chan struct{}
	loadRelease chan struct{}
}

func newFakeAPI(quiz attempt.Quiz, questions []attempt.Question) *fakeAPI {
	return &fakeAPI{
		attempt: attempt.Attempt{Quiz: quiz, Questions: questions},
		result:  attempt.Result{Score: 1, Total: len(questions)},
		entered: make(chan struct{}, 8),
	}
}

func (f *fakeAPI) LoadAttempt(_ context.Context, _ string) (attempt.Attempt, error) {
	f.mu.Lock()
	entered, release := f.loadEntered, f.loadRelease
	f.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
	}
	if release != nil {
		<-release
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return attempt.Attempt{}, f.loadErr
	}
	return f.attempt, nil
}

func (f *fakeAPI) SubmitAttempt(ctx context.Context, _ string, p attempt.Payload) (attempt.Result, error) {
	f.mu.Lock()
	f.payloads = append(f.payloads, p)
	var err error
	if len(f.submitErrs) > 0 {
		err, f.submitErrs = f.submitErrs[0], f.submitErrs[1:]
	}
	release, res := f.release, f.result
	f.mu.Unlock()

	f.entered <- struct{}{}
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return attempt.Result{}, ctx.Err()
		}
	}
	if err != nil {
		return attempt.Result{}, err
	}
	return res, nil
}

func (f *fakeAPI) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads)
}

func (f *fakeAPI) lastPayload() attempt.Payload {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.payloads) == 0 {
		return nil
	}
	return f.payloads[len(f.payloads)-1]
}

type apiErr struct {
	msg     string
	network bool
}

func (e apiErr) Error() string         { return "api: " + e.msg }
func (e apiErr) ServerMessage() string { return e.msg }
func (e apiErr) Network() bool         { return e.network }

type countingStopper struct {
	mu sync.Mutex
	n  int
}

func (s *countingStopper) Stop() {
	s.mu.Lock()
	s.n++
	s.mu.Unlock()
}

func (s *countingStopper) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}
