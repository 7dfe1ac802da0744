package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/quizmaster/quizmaster/internal/config"
	"github.com/quizmaster/quizmaster/internal/db"
	"github.com/quizmaster/quizmaster/internal/logsvc"
	"github.com/quizmaster/quizmaster/internal/quizserver"
	"github.com/quizmaster/quizmaster/internal/rbac"
)

var version = "dev"

func main() {
	devUser := flag.String("dev-user", "student-1", "subject of the printed development token")
	devRole := flag.String("dev-role", rbac.RoleUser, "role of the printed development token (user|admin)")
	flag.Parse()

	cfg, err := config.Load()
	if err == nil {
		err = cfg.ValidateServer()
	}
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	host, _ := os.Hostname()
	std := logsvc.NewStdLogger(log.Default(), cfg.Debug)
	logger := logsvc.New(std, logsvc.RollbarConfig{
		Token:       cfg.RollbarToken,
		Environment: cfg.Env,
		Host:        host,
		CodeVersion: version,
	})
	if rl, ok := logger.(*logsvc.RollbarLogger); ok {
		defer rl.Close()
	}

	// --- Store ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var store quizserver.Store
	switch cfg.ServerStore {
	case "sqlite", "postgres":
		dbh, err := db.Open(ctx, db.Driver(cfg.ServerStore), cfg.DBDSN)
		if err != nil {
			log.Fatalf("db open failed: %v", err)
		}
		defer dbh.Close()
		store = quizserver.NewSQLStore(dbh)
	default:
		store = quizserver.NewInMemoryStore()
	}

	if cfg.SeedFile != "" {
		n, err := quizserver.LoadSeedFile(ctx, store, cfg.SeedFile)
		if err != nil {
			log.Fatalf("seed: %v", err)
		}
		log.Printf("seeded %d quizzes from %s", n, cfg.SeedFile)
	}

	// --- Auth (local JWT for dev) ---
	authSvc := quizserver.NewAuthService(cfg.AuthSecret)
	if cfg.Env == "dev" {
		tok, err := authSvc.IssueJWT(*devUser, *devRole, 24*time.Hour)
		if err != nil {
			log.Fatalf("issue dev token: %v", err)
		}
		log.Printf("dev token for %s (%s): %s", *devUser, *devRole, tok)
	}

	srv := quizserver.NewServer(store, logger)
	r := quizserver.NewRouter(srv, authSvc, quizserver.RouterOptions{
		CORSOrigins: cfg.CORSOrigins,
		RequestLog:  cfg.Debug,
	})

	log.Printf("listening on %s (env=%s, store=%s)", cfg.HTTPAddr, cfg.Env, cfg.ServerStore)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
