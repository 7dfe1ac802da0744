package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/quizmaster/quizmaster/internal/attempt"
	"github.com/quizmaster/quizmaster/internal/countdown"
)

const warnBelow = 30 * time.Second

// runner drives a Session from line-oriented input.
type runner struct {
	in  io.Reader
	tty bool

	outMu sync.Mutex
	out   io.Writer

	sess *attempt.Session

	finishOnce sync.Once
	finished   chan struct{}

	confirming bool
}

func newRunner(in io.Reader, out io.Writer, tty bool) *runner {
	return &runner{in: in, out: out, tty: tty, finished: make(chan struct{})}
}

func (r *runner) printf(format string, args ...interface{}) {
	r.outMu.Lock()
	defer r.outMu.Unlock()
	fmt.Fprintf(r.out, format, args...)
}

func (r *runner) finish() { r.finishOnce.Do(func() { close(r.finished) }) }

// onEvent is registered with the session; it runs on the timer goroutine
// for ticks and expiry.
func (r *runner) onEvent(e attempt.Event) {
	switch e.Kind {
	case attempt.EventTick:
		if e.Remaining.Seconds == 0 || e.Remaining.Left <= warnBelow {
			r.printf("%s\n", r.timeLeft(e.Remaining))
		}
	case attempt.EventExpired:
		r.printf("Time's up! Submitting your answers...\n")
	case attempt.EventSubmitted:
		r.printf("Feedback: %s\n", e.Result)
		r.finish()
	case attempt.EventSubmitFailed:
		r.printf("%s\n", e.Message)
	}
}

func (r *runner) timeLeft(rem countdown.Remaining) string {
	s := "Time Left: " + rem.String()
	if r.tty && rem.Left <= warnBelow {
		return "\033[33m" + s + "\033[0m"
	}
	return s
}

func (r *runner) run(ctx context.Context) error {
	if err := r.sess.Load(ctx); err != nil {
		r.printf("%s\n", r.sess.Message())
		return err
	}
	q := r.sess.Quiz()
	r.printf("Attempt Quiz - ID %d\n", q.ID)
	if av, notice := r.sess.Availability(); av != attempt.Open {
		r.printf("%s\n", notice)
		return nil
	}
	if r.sess.Timed() {
		r.printf("%s\n", r.timeLeft(r.sess.Remaining()))
	}
	r.printQuestions()
	r.printf("Answer with \"<question> <option>\", then \"submit\". Type \"help\" for commands.\n")

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r.in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-r.finished:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.finished:
			return nil
		case line, ok := <-lines:
			if !ok {
				return r.drain(ctx)
			}
			if r.handle(ctx, strings.TrimSpace(line)) {
				return nil
			}
		}
	}
}

// drain waits, after input ends, for a running countdown to submit.
func (r *runner) drain(ctx context.Context) error {
	if !r.sess.Timed() || r.sess.State() == attempt.StateSubmitted {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-r.finished:
	case <-r.sess.Expired():
	}
	return nil
}

func (r *runner) printQuestions() {
	for i, q := range r.sess.Questions() {
		r.printf("\nQuestion %d: %s\n", i+1, q.Statement)
		for _, o := range q.Options() {
			r.printf("  %d) %s\n", o.Index, o.Text)
		}
	}
	r.printf("\n")
}

// handle processes one input line and reports whether to stop.
func (r *runner) handle(ctx context.Context, line string) bool {
	if r.confirming {
		r.confirming = false
		switch strings.ToLower(line) {
		case "y", "yes":
			r.submit(ctx)
			return r.sess.State() == attempt.StateSubmitted
		default:
			r.printf("Submission cancelled.\n")
			return false
		}
	}

	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	switch strings.ToLower(fields[0]) {
	case "quit", "exit":
		return true
	case "help":
		r.printf("<question> <option>  choose an option (e.g. \"2 3\")\nstatus               show progress and time left\nsubmit               submit your answers\nquit                 leave without submitting\n")
	case "status":
		r.printStatus()
	case "submit":
		r.requestSubmit()
	default:
		r.answer(fields)
	}
	return false
}

func (r *runner) answer(fields []string) {
	if len(fields) != 2 {
		r.printf("Unknown command %q. Type \"help\".\n", strings.Join(fields, " "))
		return
	}
	n, err1 := strconv.Atoi(fields[0])
	opt, err2 := strconv.Atoi(fields[1])
	questions := r.sess.Questions()
	if err1 != nil || err2 != nil || n < 1 || n > len(questions) {
		r.printf("Usage: <question 1-%d> <option 1-4>\n", len(questions))
		return
	}
	q := questions[n-1]
	if !hasOption(q, opt) {
		r.printf("Question %d has no option %d.\n", n, opt)
		return
	}
	switch err := r.sess.Answer(q.ID, opt); {
	case errors.Is(err, attempt.ErrAlreadySubmitted):
		r.printf("Quiz already submitted.\n")
	case err != nil:
		r.printf("%v\n", err)
	default:
		r.printf("Question %d: option %d selected.\n", n, opt)
	}
}

func hasOption(q attempt.Question, opt int) bool {
	for _, o := range q.Options() {
		if o.Index == opt {
			return true
		}
	}
	return false
}

func (r *runner) printStatus() {
	questions := r.sess.Questions()
	answered := r.sess.Answers().Answered(questions)
	r.printf("Answered %d of %d.\n", answered, len(questions))
	if r.sess.Timed() {
		r.printf("%s\n", r.timeLeft(r.sess.Remaining()))
	}
}

func (r *runner) requestSubmit() {
	if r.sess.State() != attempt.StateReady {
		r.printf("Quiz already submitted.\n")
		return
	}
	// after expiry a failed automatic submission may be retried with
	// whatever was answered
	if !r.sess.CanSubmit() && !r.sess.Remaining().Expired {
		r.printf("Please answer all questions before submitting.\n")
		return
	}
	r.confirming = true
	r.printf("Are you sure you want to submit the quiz? [y/N] ")
}

func (r *runner) submit(ctx context.Context) {
	_, err := r.sess.Submit(ctx)
	if errors.Is(err, attempt.ErrAlreadySubmitted) {
		r.printf("Quiz already submitted.\n")
	}
	// results and failures are reported through onEvent
}
