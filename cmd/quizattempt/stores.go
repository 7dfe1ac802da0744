package main

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/quizmaster/quizmaster/internal/attempt"
	"github.com/quizmaster/quizmaster/internal/config"
	"github.com/quizmaster/quizmaster/internal/db"
)

// openDeadlineStore returns nil when deadlines are not persisted.
func openDeadlineStore(ctx context.Context, cfg config.Config) (attempt.DeadlineStore, func(), error) {
	switch cfg.DeadlineStore {
	case config.DeadlineSQLite, config.DeadlinePostgres:
		dbh, err := db.Open(ctx, db.Driver(cfg.DeadlineStore), cfg.DBDSN)
		if err != nil {
			return nil, nil, errors.Wrap(err, "open deadline db")
		}
		return attempt.NewSQLDeadlineStore(dbh), func() { dbh.Close() }, nil
	case config.DeadlineRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, nil, errors.Wrap(err, "ping redis")
		}
		return attempt.NewRedisDeadlineStore(rdb), func() { rdb.Close() }, nil
	}
	return nil, func() {}, nil
}

// subjectFromToken reads the sub claim without verifying the signature;
// the backend verifies, the client only needs a stable key.
func subjectFromToken(token string) string {
	if token == "" {
		return "anonymous"
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "anonymous"
	}
	if sub, err := claims.GetSubject(); err == nil && sub != "" {
		return sub
	}
	return "anonymous"
}
