package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"github.com/quizmaster/quizmaster/internal/attempt"
	"github.com/quizmaster/quizmaster/internal/config"
	"github.com/quizmaster/quizmaster/internal/logsvc"
	"github.com/quizmaster/quizmaster/internal/quizapi"
)

var version = "dev"

func main() {
	quizID := flag.String("quiz", "", "quiz id to attempt (required)")
	subject := flag.String("subject", "", "deadline key for this user; defaults to the token's sub claim")
	flag.Parse()
	if *quizID == "" {
		fmt.Fprintln(os.Stderr, "usage: quizattempt -quiz <id> [-subject <user>]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	host, _ := os.Hostname()
	std := logsvc.NewStdLogger(log.New(os.Stderr, "", log.LstdFlags), cfg.Debug)
	logger := logsvc.New(std, logsvc.RollbarConfig{
		Token:       cfg.RollbarToken,
		Environment: cfg.Env,
		Host:        host,
		CodeVersion: version,
	})
	if rl, ok := logger.(*logsvc.RollbarLogger); ok {
		defer rl.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openDeadlineStore(ctx, cfg)
	if err != nil {
		log.Fatalf("deadline store: %v", err)
	}
	defer closeStore()

	client := quizapi.New(quizapi.Config{
		BaseURL:     cfg.APIURL,
		AttemptPath: cfg.AttemptPath,
		Timeout:     cfg.HTTPTimeout,
	}, quizapi.StaticToken(cfg.Token))

	r := newRunner(os.Stdin, os.Stdout, term.IsTerminal(int(os.Stdout.Fd())))
	opts := []attempt.SessionOption{
		attempt.WithTickInterval(cfg.TickInterval),
		attempt.WithLogger(logger),
		attempt.WithEvents(r.onEvent),
	}
	if store != nil {
		sub := *subject
		if sub == "" {
			sub = subjectFromToken(cfg.Token)
		}
		opts = append(opts, attempt.WithDeadlineStore(store, sub))
	}
	r.sess = attempt.NewSession(client, *quizID, opts...)
	defer r.sess.Close()

	if err := r.run(ctx); err != nil && ctx.Err() == nil {
		logger.Debug("attempt ended with error", err)
		os.Exit(1)
	}
}
