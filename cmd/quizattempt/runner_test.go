package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizmaster/quizmaster/internal/attempt"
	"github.com/quizmaster/quizmaster/internal/config"
	"github.com/quizmaster/quizmaster/internal/countdown"
	"github.com/quizmaster/quizmaster/internal/quizapi"
	"github.com/quizmaster/quizmaster/internal/quizserver"
)

type backend struct {
	store quizserver.Store
	url   string
	token string
}

func startBackend(t *testing.T, start time.Time, duration string) *backend {
	t.Helper()
	store := quizserver.NewInMemoryStore()
	require.NoError(t, store.PutQuiz(context.Background(), quizserver.QuizRecord{
		ID:           7,
		DateOfQuiz:   start.Format("2006-01-02"),
		StartTime:    start.Format("15:04"),
		TimeDuration: duration,
		Questions: []quizserver.QuestionRecord{
			{Question: attempt.Question{ID: 11, Statement: "2+2?", Option1: "3", Option2: "4"}, CorrectOption: 2},
			{Question: attempt.Question{ID: 12, Statement: "3+3?", Option1: "6", Option2: "7"}, CorrectOption: 1},
		},
	}))
	auth := quizserver.NewAuthService("runner-secret")
	tok, err := auth.IssueJWT("student-1", "user", time.Hour)
	require.NoError(t, err)

	srv := httptest.NewServer(quizserver.NewRouter(quizserver.NewServer(store, nil), auth, quizserver.RouterOptions{}))
	t.Cleanup(srv.Close)
	return &backend{store: store, url: srv.URL, token: tok}
}

func runScript(t *testing.T, b *backend, script string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	r := newRunner(strings.NewReader(script), &out, false)
	client := quizapi.New(quizapi.Config{BaseURL: b.url}, quizapi.StaticToken(b.token))
	r.sess = attempt.NewSession(client, "7", attempt.WithEvents(r.onEvent))
	defer r.sess.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := r.run(ctx)
	r.outMu.Lock()
	defer r.outMu.Unlock()
	return out.String(), err
}

func (b *backend) scores(t *testing.T) []quizserver.Score {
	t.Helper()
	s, err := b.store.ListScores(context.Background(), 7, "student-1")
	require.NoError(t, err)
	return s
}

func TestRunner_AnswerAndSubmit(t *testing.T) {
	b := startBackend(t, time.Now().Add(-time.Hour), "")
	out, err := runScript(t, b, "1 2\n2 2\nstatus\nsubmit\ny\n")
	require.NoError(t, err)

	assert.Contains(t, out, "Attempt Quiz - ID 7")
	assert.Contains(t, out, "Question 1: 2+2?")
	assert.Contains(t, out, "  2) 4")
	assert.Contains(t, out, "Answered 2 of 2.")
	assert.Contains(t, out, "Are you sure you want to submit the quiz?")
	assert.Contains(t, out, "Feedback: You scored 1 out of 2.")
	assert.Len(t, b.scores(t), 1)
}

func TestRunner_IncompleteSubmitRefused(t *testing.T) {
	b := startBackend(t, time.Now().Add(-time.Hour), "")
	out, err := runScript(t, b, "1 2\nsubmit\nquit\n")
	require.NoError(t, err)
	assert.Contains(t, out, "Please answer all questions before submitting.")
	assert.Empty(t, b.scores(t))
}

func TestRunner_ConfirmationDeclined(t *testing.T) {
	b := startBackend(t, time.Now().Add(-time.Hour), "")
	out, err := runScript(t, b, "1 2\n2 1\nsubmit\nn\nquit\n")
	require.NoError(t, err)
	assert.Contains(t, out, "Submission cancelled.")
	assert.Empty(t, b.scores(t))
}

func TestRunner_BadInput(t *testing.T) {
	b := startBackend(t, time.Now().Add(-time.Hour), "")
	out, err := runScript(t, b, "9 1\n1 7\nhello there friend\n1 1\n")
	require.NoError(t, err)
	assert.Contains(t, out, "Usage: <question 1-2> <option 1-4>")
	assert.Contains(t, out, "Question 1 has no option 7.")
	assert.Contains(t, out, `Unknown command "hello there friend"`)
	assert.Contains(t, out, "Question 1: option 1 selected.")
}

func TestRunner_TimedQuizShowsCountdown(t *testing.T) {
	b := startBackend(t, time.Now().Add(-time.Hour), "00:30")
	out, err := runScript(t, b, "quit\n")
	require.NoError(t, err)
	assert.Contains(t, out, "Time Left: 29m")
}

func TestRunner_LoadRejected(t *testing.T) {
	b := startBackend(t, time.Now().Add(2*time.Hour), "00:10")
	out, err := runScript(t, b, "")
	require.Error(t, err)
	assert.Contains(t, out, "Quiz not started. Opens at")
}

func TestSubjectFromToken(t *testing.T) {
	tok, err := quizserver.NewAuthService("s").IssueJWT("student-9", "user", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "student-9", subjectFromToken(tok))
	assert.Equal(t, "anonymous", subjectFromToken(""))
	assert.Equal(t, "anonymous", subjectFromToken("not.a.jwt"))
}

func TestOpenDeadlineStore(t *testing.T) {
	ctx := context.Background()
	store, closeFn, err := openDeadlineStore(ctx, config.Config{DeadlineStore: config.DeadlineNone})
	require.NoError(t, err)
	assert.Nil(t, store)
	closeFn()

	store, closeFn, err = openDeadlineStore(ctx, config.Config{
		DeadlineStore: config.DeadlineSQLite,
		DBDSN:         "file:runner_deadlines?mode=memory&cache=shared",
	})
	require.NoError(t, err)
	require.NotNil(t, store)
	defer closeFn()

	key := attempt.DeadlineKey{Subject: "u", QuizID: "7"}
	require.NoError(t, store.SaveDeadline(ctx, key, time.Now().Add(time.Minute)))
	_, ok, err := store.LoadDeadline(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
}

// flakyAPI fails the first submission.
type flakyAPI struct {
	failed bool
}

func (f *flakyAPI) LoadAttempt(context.Context, string) (attempt.Attempt, error) {
	return attempt.Attempt{
		Quiz: attempt.Quiz{ID: 7, TimeDuration: "00:01"},
		Questions: []attempt.Question{
			{ID: 11, Statement: "2+2?", Option1: "3", Option2: "4"},
			{ID: 12, Statement: "3+3?", Option1: "6", Option2: "7"},
		},
	}, nil
}

func (f *flakyAPI) SubmitAttempt(context.Context, string, attempt.Payload) (attempt.Result, error) {
	if !f.failed {
		f.failed = true
		return attempt.Result{}, errors.New("gateway timeout")
	}
	return attempt.Result{Score: 0, Total: 2}, nil
}

func TestRunner_SubmitAfterFailedExpiry(t *testing.T) {
	var out bytes.Buffer
	clock := countdown.NewFakeClock(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))
	r := newRunner(strings.NewReader(""), &out, false)
	r.sess = attempt.NewSession(&flakyAPI{}, "7", attempt.WithClock(clock), attempt.WithEvents(r.onEvent))
	defer r.sess.Close()

	ctx := context.Background()
	require.NoError(t, r.sess.Load(ctx))
	r.handle(ctx, "1 2")
	for i := 0; i < 60; i++ {
		clock.Advance(time.Second)
	}
	select {
	case <-r.sess.Expired():
	case <-time.After(2 * time.Second):
		t.Fatal("countdown did not expire")
	}
	require.Equal(t, attempt.StateReady, r.sess.State())

	assert.False(t, r.handle(ctx, "submit"))
	assert.True(t, r.handle(ctx, "y"))

	r.outMu.Lock()
	defer r.outMu.Unlock()
	assert.Contains(t, out.String(), "Time's up! Submitting your answers...")
	assert.Contains(t, out.String(), "Failed to submit quiz.")
	assert.NotContains(t, out.String(), "Please answer all questions before submitting.")
	assert.Contains(t, out.String(), "Are you sure you want to submit the quiz? [y/N]")
	assert.Contains(t, out.String(), "Feedback: You scored 0 out of 2.")
}
