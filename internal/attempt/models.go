package attempt

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Quiz is the metadata the backend returns for an attempt.
type Quiz struct {
	ID            int        `json:"id"`
	ChapterID     int        `json:"chapter_id,omitempty"`
	TimeDuration  string     `json:"time_duration,omitempty"` // HH:MM
	StartDateTime *Timestamp `json:"quiz_start_datetime,omitempty"`
	EndDateTime   *Timestamp `json:"quiz_end_datetime,omitempty"`
	StartTime     string     `json:"start_time,omitempty"`   // HH:MM, display only
	DateOfQuiz    string     `json:"date_of_quiz,omitempty"` // YYYY-MM-DD, display only
	Remarks       string     `json:"remarks,omitempty"`
}

// Window returns the availability window described by the quiz.
func (q Quiz) Window() Window {
	return Window{Start: q.StartDateTime.TimePtr(), End: q.EndDateTime.TimePtr()}
}

// Question is one multiple choice question. The correct option is never
// part of the client view.
type Question struct {
	ID        int    `json:"id"`
	Statement string `json:"question_statement"`
	Option1   string `json:"option1,omitempty"`
	Option2   string `json:"option2,omitempty"`
	Option3   string `json:"option3,omitempty"`
	Option4   string `json:"option4,omitempty"`
}

// Option is a renderable choice; Index is 1..4.
type Option struct {
	Index int
	Text  string
}

// Options lists the non-empty options in index order.
func (q Question) Options() []Option {
	out := make([]Option, 0, 4)
	for i, text := range []string{q.Option1, q.Option2, q.Option3, q.Option4} {
		if text != "" {
			out = append(out, Option{Index: i + 1, Text: text})
		}
	}
	return out
}

// Attempt is the payload of a successful load.
type Attempt struct {
	Quiz      Quiz       `json:"quiz"`
	Questions []Question `json:"questions"`
}

// Result is the grading outcome.
type Result struct {
	Score int `json:"score"`
	Total int `json:"total"`
}

func (r Result) String() string {
	return "You scored " + strconv.Itoa(r.Score) + " out of " + strconv.Itoa(r.Total) + "."
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
}

// Timestamp decodes the backend's datetime strings. Naive layouts are
// read in local time.
type Timestamp struct{ time.Time }

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(timestampLayouts[0]))
}

// TimePtr returns nil for a nil or zero Timestamp.
func (t *Timestamp) TimePtr() *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}

func ParseTimestamp(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	var lastErr error
	for _, layout := range timestampLayouts {
		ts, err := time.ParseInLocation(layout, s, time.Local)
		if err == nil {
			return ts, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
