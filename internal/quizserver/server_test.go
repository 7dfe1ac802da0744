package quizserver_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizmaster/quizmaster/internal/attempt"
	"github.com/quizmaster/quizmaster/internal/quizserver"
)

const secret = "test-secret"

var now = time.Date(2025, 3, 1, 9, 30, 0, 0, time.Local)

func sampleQuiz() quizserver.QuizRecord {
	return quizserver.QuizRecord{
		ID:           7,
		DateOfQuiz:   "2025-03-01",
		StartTime:    "09:00",
		TimeDuration: "00:15",
		Questions: []quizserver.QuestionRecord{
			{Question: attempt.Question{ID: 11, Statement: "2+2?", Option1: "3", Option2: "4"}, Position: 1, CorrectOption: 2},
			{Question: attempt.Question{ID: 12, Statement: "3+3?", Option1: "6", Option2: "7"}, Position: 2, CorrectOption: 1},
		},
	}
}

type fixture struct {
	store  quizserver.Store
	srv    *quizserver.Server
	router http.Handler
	token  string
}

func newFixture(t *testing.T, quizzes ...quizserver.QuizRecord) *fixture {
	t.Helper()
	store := quizserver.NewInMemoryStore()
	for _, q := range quizzes {
		require.NoError(t, store.PutQuiz(context.Background(), q))
	}
	srv := quizserver.NewServer(store, nil)
	srv.Now = func() time.Time { return now }
	srv.NewID = func() string { return "score-1" }

	auth := quizserver.NewAuthService(secret)
	tok, err := auth.IssueJWT("student-1", "user", time.Hour)
	require.NoError(t, err)

	return &fixture{
		store:  store,
		srv:    srv,
		router: quizserver.NewRouter(srv, auth, quizserver.RouterOptions{}),
		token:  tok,
	}
}

func (f *fixture) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var out map[string]interface{}
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func TestGetAttempt_HidesAnswerKey(t *testing.T) {
	f := newFixture(t, sampleQuiz())
	rec, _ := f.do(t, http.MethodGet, "/api/user/attempt_quiz/7/attempt", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "correct_option")

	var body struct {
		Quiz          attempt.Quiz       `json:"quiz"`
		Questions     []attempt.Question `json:"questions"`
		StartDateTime string             `json:"quiz_start_datetime"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 7, body.Quiz.ID)
	assert.Equal(t, "00:15", body.Quiz.TimeDuration)
	assert.Len(t, body.Questions, 2)
	assert.Equal(t, "2025-03-01 09:00:00", body.StartDateTime)
	require.NotNil(t, body.Quiz.Window().Start)
}

func TestGetAttempt_Errors(t *testing.T) {
	notStarted := sampleQuiz()
	notStarted.ID = 8
	notStarted.StartTime = "10:00"

	ended := sampleQuiz()
	ended.ID = 9
	end := now.Add(-time.Minute)
	ended.EndAt = &end

	noStart := sampleQuiz()
	noStart.ID = 10
	noStart.StartTime = ""

	f := newFixture(t, notStarted, ended, noStart)
	cases := []struct {
		path   string
		status int
		msg    string
	}{
		{"/api/user/attempt_quiz/8/attempt", http.StatusBadRequest, "Quiz not started. Opens at 10:00 on 2025-03-01."},
		{"/api/user/attempt_quiz/9/attempt", http.StatusBadRequest, "Quiz has ended."},
		{"/api/user/attempt_quiz/10/attempt", http.StatusBadRequest, "Start time missing. Contact admin."},
		{"/api/user/attempt_quiz/99/attempt", http.StatusNotFound, "Quiz not found."},
		{"/api/user/attempt_quiz/abc/attempt", http.StatusNotFound, "Quiz not found."},
	}
	for _, c := range cases {
		t.Run(c.path, func(t *testing.T) {
			rec, body := f.do(t, http.MethodGet, c.path, "")
			assert.Equal(t, c.status, rec.Code)
			assert.Equal(t, c.msg, body["message"])
		})
	}
}

func TestAuthRequired(t *testing.T) {
	f := newFixture(t, sampleQuiz())
	f.token = ""
	rec, body := f.do(t, http.MethodGet, "/api/user/attempt_quiz/7/attempt", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "missing bearer token", body["message"])

	other, err := quizserver.NewAuthService("other-secret").IssueJWT("x", "user", time.Hour)
	require.NoError(t, err)
	f.token = other
	rec, _ = f.do(t, http.MethodGet, "/api/user/attempt_quiz/7/attempt", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = f.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSubmitAttempt_GradesAndRecords(t *testing.T) {
	f := newFixture(t, sampleQuiz())
	rec, body := f.do(t, http.MethodPost, "/api/user/attempt_quiz/7/attempt", `{"question_11":2,"question_12":null}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Submission successful", body["message"])
	assert.EqualValues(t, 1, body["score"])
	assert.EqualValues(t, 2, body["total"])

	scores, err := f.store.ListScores(context.Background(), 7, "student-1")
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.Equal(t, "score-1", scores[0].ID)
	assert.Equal(t, 1, scores[0].TotalScored)
}

func TestSubmitAttempt_BadBody(t *testing.T) {
	f := newFixture(t, sampleQuiz())
	rec, body := f.do(t, http.MethodPost, "/api/user/attempt_quiz/7/attempt", `[1,2]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid submission body.", body["message"])
}

func TestGrade(t *testing.T) {
	one, two := 1, 2
	qs := sampleQuiz().Questions
	score, total := quizserver.Grade(qs, attempt.Payload{{QuestionID: 11, Option: &two}, {QuestionID: 12, Option: &two}})
	assert.Equal(t, 1, score)
	assert.Equal(t, 2, total)

	score, _ = quizserver.Grade(qs, attempt.Payload{{QuestionID: 11, Option: &two}, {QuestionID: 12, Option: &one}})
	assert.Equal(t, 2, score)

	score, total = quizserver.Grade(qs, nil)
	assert.Equal(t, 0, score)
	assert.Equal(t, 2, total)
}

func TestListScores(t *testing.T) {
	f := newFixture(t, sampleQuiz())
	rec, _ := f.do(t, http.MethodPost, "/api/user/attempt_quiz/7/attempt", `{"question_11":2,"question_12":1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, f.store.RecordScore(context.Background(), quizserver.Score{ID: "other", QuizID: 7, UserID: "student-2", Total: 2}))

	rec, _ = f.do(t, http.MethodGet, "/api/user/attempt_quiz/7/scores", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var own struct {
		Scores []quizserver.Score `json:"scores"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &own))
	require.Len(t, own.Scores, 1)
	assert.Equal(t, 2, own.Scores[0].TotalScored)

	rec, body := f.do(t, http.MethodGet, "/api/admin/attempt_quiz/7/scores", "")
	assert.Equal(t, http.StatusForbidden, rec.Code, "users cannot list everyone's scores")
	assert.NotEmpty(t, body["message"])

	admin, err := quizserver.NewAuthService(secret).IssueJWT("admin-1", "admin", time.Hour)
	require.NoError(t, err)
	f.token = admin
	rec, _ = f.do(t, http.MethodGet, "/api/admin/attempt_quiz/7/scores", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var all struct {
		Scores []quizserver.Score `json:"scores"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	assert.Len(t, all.Scores, 2)
}
