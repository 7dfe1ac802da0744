// Package countdown tracks the time left until a fixed deadline and signals
// expiry exactly once.
package countdown

import (
	"fmt"
	"sync"
	"time"
)

const DefaultInterval = time.Second

// Remaining is a display snapshot of the time left.
type Remaining struct {
	Left    time.Duration // floored to whole seconds, never negative
	Hours   int
	Minutes int
	Seconds int
	Expired bool
}

func (r Remaining) String() string {
	if r.Expired {
		return "Time's up!"
	}
	if r.Hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", r.Hours, r.Minutes, r.Seconds)
	}
	return fmt.Sprintf("%dm %ds", r.Minutes, r.Seconds)
}

func remainingOf(d time.Duration) Remaining {
	if d <= 0 {
		return Remaining{}
	}
	secs := int64(d / time.Second)
	return Remaining{
		Left:    time.Duration(secs) * time.Second,
		Hours:   int(secs / 3600),
		Minutes: int(secs % 3600 / 60),
		Seconds: int(secs % 60),
	}
}

type Option func(*Timer)

// WithInterval sets the tick granularity.
func WithInterval(d time.Duration) Option {
	return func(t *Timer) {
		if d > 0 {
			t.interval = d
		}
	}
}

// OnTick registers a callback run after every non-final tick.
func OnTick(fn func(Remaining)) Option { return func(t *Timer) { t.onTick = fn } }

// OnExpire registers the callback fired once when the deadline passes.
func OnExpire(fn func()) Option { return func(t *Timer) { t.onExpire = fn } }

// Timer counts down to a deadline. A Timer runs at most once: it cannot be
// restarted or reset after Start.
type Timer struct {
	clock    Clock
	interval time.Duration
	onTick   func(Remaining)
	onExpire func()

	mu       sync.Mutex
	started  bool
	stopped  bool
	expired  bool
	deadline time.Time
	left     Remaining
	ticker   Ticker
	quit     chan struct{}
	done     chan struct{}
}

func New(clock Clock, opts ...Option) *Timer {
	if clock == nil {
		clock = RealClock()
	}
	t := &Timer{
		clock:    clock,
		interval: DefaultInterval,
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Start begins counting down total from now. It returns false and does
// nothing when total <= 0 or the timer was already started or stopped.
func (t *Timer) Start(total time.Duration) bool {
	if total <= 0 {
		return false
	}
	return t.StartAt(t.clock.Now().Add(total))
}

// StartAt begins counting down to deadline. A deadline in the past expires
// on the first tick.
func (t *Timer) StartAt(deadline time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started || t.stopped {
		return false
	}
	t.started = true
	t.deadline = deadline
	t.left = remainingOf(deadline.Sub(t.clock.Now()))
	t.ticker = t.clock.NewTicker(t.interval)
	go t.run(t.ticker)
	return true
}

func (t *Timer) run(tk Ticker) {
	for {
		select {
		case <-t.quit:
			return
		case <-tk.C():
			if t.tick() {
				return
			}
		}
	}
}

// tick reports whether the timer has finished.
func (t *Timer) tick() bool {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return true
	}
	distance := t.deadline.Sub(t.clock.Now())
	if distance <= 0 {
		t.stopLocked()
		t.expired = true
		t.left = Remaining{Expired: true}
		fn := t.onExpire
		t.mu.Unlock()
		if fn != nil {
			fn()
		}
		close(t.done)
		return true
	}
	t.left = remainingOf(distance)
	left, fn := t.left, t.onTick
	t.mu.Unlock()
	if fn != nil {
		fn(left)
	}
	return false
}

// Stop cancels ticking. It is safe to call repeatedly and after expiry.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

func (t *Timer) stopLocked() {
	if t.stopped {
		return
	}
	t.stopped = true
	if t.ticker != nil {
		t.ticker.Stop()
	}
	close(t.quit)
}

// Remaining returns the latest display snapshot.
func (t *Timer) Remaining() Remaining {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.left
}

// Deadline returns the deadline and whether the timer was started.
func (t *Timer) Deadline() (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.deadline, t.started
}

// Running reports whether the timer is started and still ticking.
func (t *Timer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.started && !t.stopped
}

// Expired reports whether the deadline was reached.
func (t *Timer) Expired() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.expired
}

// Done is closed once the expiry callback has returned. It stays open if
// the timer is stopped early.
func (t *Timer) Done() <-chan struct{} { return t.done }
