package attempt

import "time"

// Window bounds when an attempt may be taken. A nil bound is open.
type Window struct {
	Start *time.Time
	End   *time.Time
}

type Availability int

const (
	Open Availability = iota
	NotStarted
	Ended
)

func (a Availability) String() string {
	switch a {
	case NotStarted:
		return "not_started"
	case Ended:
		return "ended"
	default:
		return "open"
	}
}

// At classifies now against the window; both bounds are inclusive.
func (w Window) At(now time.Time) Availability {
	if w.Start != nil && now.Before(*w.Start) {
		return NotStarted
	}
	if w.End != nil && now.After(*w.End) {
		return Ended
	}
	return Open
}

// Contains reports whether an attempt is allowed at now.
func (w Window) Contains(now time.Time) bool { return w.At(now) == Open }
