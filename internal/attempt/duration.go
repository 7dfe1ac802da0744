package attempt

import (
	"strings"
	"time"
)

// ParseDuration reads an "HH:MM" time budget. Each part is read as a
// leading integer and falls back to 0; fewer than two parts yields 0,
// which means the attempt is untimed.
func ParseDuration(s string) time.Duration {
	parts := strings.Split(s, ":")
	if len(parts) < 2 {
		return 0
	}
	hours := leadingInt(parts[0])
	minutes := leadingInt(parts[1])
	return time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute
}

// leadingInt parses an optional sign and the digits that follow it,
// ignoring surrounding whitespace and any trailing garbage.
func leadingInt(s string) int {
	s = strings.TrimSpace(s)
	neg := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}
	n := 0
	for i := 0; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		n = n*10 + int(s[i]-'0')
		if n > 1<<20 {
			break
		}
	}
	if neg {
		return -n
	}
	return n
}
