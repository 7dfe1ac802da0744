package attempt_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/quizmaster/quizmaster/internal/attempt"
)

func TestParseDuration(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"00:01", time.Minute},
		{"01:30", 90 * time.Minute},
		{"2:05", 2*time.Hour + 5*time.Minute},
		{"00:30:00", 30 * time.Minute},
		{"1h:20m", time.Hour + 20*time.Minute},
		{"xx:10", 10 * time.Minute},
		{"01:yy", time.Hour},
		{"00:00", 0},
		{"45", 0},
		{"", 0},
		{"garbage", 0},
	}
	for _, c := range cases {
		t.Run(c.in, func(t *testing.T) {
			assert.Equal(t, c.want, attempt.ParseDuration(c.in))
		})
	}
}

func TestParseDuration_NegativeIsUntimed(t *testing.T) {
	assert.LessOrEqual(t, attempt.ParseDuration("-1:00"), time.Duration(0))
}
