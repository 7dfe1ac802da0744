package attempt_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizmaster/quizmaster/internal/attempt"
)

func TestWindowAt(t *testing.T) {
	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	w := attempt.Window{Start: &start, End: &end}

	assert.Equal(t, attempt.NotStarted, w.At(start.Add(-time.Second)))
	assert.Equal(t, attempt.Open, w.At(start))
	assert.Equal(t, attempt.Open, w.At(end))
	assert.Equal(t, attempt.Ended, w.At(end.Add(time.Second)))

	assert.True(t, attempt.Window{}.Contains(start), "unbounded window is always open")
	assert.Equal(t, "not_started", attempt.NotStarted.String())
}

func TestQuizDecode(t *testing.T) {
	raw := `{
		"id": 7,
		"time_duration": "00:10",
		"quiz_start_datetime": "2025-03-01 09:00:00",
		"quiz_end_datetime": null,
		"start_time": "09:00",
		"date_of_quiz": "2025-03-01"
	}`
	var q attempt.Quiz
	require.NoError(t, json.Unmarshal([]byte(raw), &q))

	w := q.Window()
	require.NotNil(t, w.Start)
	assert.Nil(t, w.End)
	assert.True(t, w.Start.Equal(time.Date(2025, 3, 1, 9, 0, 0, 0, time.Local)))
	assert.Equal(t, 10*time.Minute, attempt.ParseDuration(q.TimeDuration))
}

func TestParseTimestamp(t *testing.T) {
	ts, err := attempt.ParseTimestamp("2025-03-01T09:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, ts.Location())

	ts, err = attempt.ParseTimestamp("2025-03-01T09:30")
	require.NoError(t, err)
	assert.Equal(t, 30, ts.Minute())

	_, err = attempt.ParseTimestamp("yesterday")
	assert.Error(t, err)

	var q attempt.Quiz
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"quiz_start_datetime":""}`), &q))
	assert.Nil(t, q.Window().Start)
}

func TestQuestionOptions(t *testing.T) {
	q := attempt.Question{ID: 1, Option1: "a", Option3: "c"}
	assert.Equal(t, []attempt.Option{{Index: 1, Text: "a"}, {Index: 3, Text: "c"}}, q.Options())
	assert.Equal(t, "You scored 2 out of 3.", attempt.Result{Score: 2, Total: 3}.String())
}
