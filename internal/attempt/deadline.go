package attempt

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// DeadlineKey identifies one user's attempt at one quiz.
type DeadlineKey struct {
	Subject string
	QuizID  string
}

// DeadlineStore persists attempt deadlines so a restarted client resumes
// the countdown. Save keeps the first deadline written for a key.
type DeadlineStore interface {
	LoadDeadline(ctx context.Context, key DeadlineKey) (time.Time, bool, error)
	SaveDeadline(ctx context.Context, key DeadlineKey, deadline time.Time) error
	DeleteDeadline(ctx context.Context, key DeadlineKey) error
}

type memoryDeadlines struct {
	mu sync.Mutex
	m  map[DeadlineKey]time.Time
}

func NewMemoryDeadlineStore() DeadlineStore {
	return &memoryDeadlines{m: map[DeadlineKey]time.Time{}}
}

func (s *memoryDeadlines) LoadDeadline(_ context.Context, key DeadlineKey) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.m[key]
	return d, ok, nil
}

func (s *memoryDeadlines) SaveDeadline(_ context.Context, key DeadlineKey, deadline time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.m[key]; !ok {
		s.m[key] = deadline
	}
	return nil
}

func (s *memoryDeadlines) DeleteDeadline(_ context.Context, key DeadlineKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}

// SQLDeadlineStore keeps deadlines in the attempt_deadlines table created
// by db.Open.
type SQLDeadlineStore struct {
	db *sql.DB
}

func NewSQLDeadlineStore(db *sql.DB) *SQLDeadlineStore {
	return &SQLDeadlineStore{db: db}
}

func (s *SQLDeadlineStore) LoadDeadline(ctx context.Context, key DeadlineKey) (time.Time, bool, error) {
	var ms int64
	err := s.db.QueryRowContext(ctx,
		`SELECT deadline_ms FROM attempt_deadlines WHERE subject=$1 AND quiz_id=$2`,
		key.Subject, key.QuizID).Scan(&ms)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, errors.Wrap(err, "load deadline")
	}
	return time.UnixMilli(ms), true, nil
}

func (s *SQLDeadlineStore) SaveDeadline(ctx context.Context, key DeadlineKey, deadline time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO attempt_deadlines (subject,quiz_id,deadline_ms,created_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (subject,quiz_id) DO NOTHING`,
		key.Subject, key.QuizID, deadline.UnixMilli(), time.Now().Unix())
	return errors.Wrap(err, "save deadline")
}

func (s *SQLDeadlineStore) DeleteDeadline(ctx context.Context, key DeadlineKey) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM attempt_deadlines WHERE subject=$1 AND quiz_id=$2`,
		key.Subject, key.QuizID)
	return errors.Wrap(err, "delete deadline")
}

// RedisDeadlineStore keeps deadlines as plain keys that expire a while
// after the deadline itself.
type RedisDeadlineStore struct {
	rdb   *redis.Client
	grace time.Duration
}

func NewRedisDeadlineStore(rdb *redis.Client) *RedisDeadlineStore {
	return &RedisDeadlineStore{rdb: rdb, grace: 24 * time.Hour}
}

func deadlineRedisKey(key DeadlineKey) string {
	return fmt.Sprintf("attempt:%s:quiz:%s:deadline", key.Subject, key.QuizID)
}

func (s *RedisDeadlineStore) LoadDeadline(ctx context.Context, key DeadlineKey) (time.Time, bool, error) {
	raw, err := s.rdb.Get(ctx, deadlineRedisKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, errors.Wrap(err, "load deadline")
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false, errors.Wrapf(err, "parse deadline %q", raw)
	}
	return time.UnixMilli(ms), true, nil
}

func (s *RedisDeadlineStore) SaveDeadline(ctx context.Context, key DeadlineKey, deadline time.Time) error {
	ttl := time.Until(deadline) + s.grace
	if ttl <= 0 {
		ttl = s.grace
	}
	err := s.rdb.SetNX(ctx, deadlineRedisKey(key), deadline.UnixMilli(), ttl).Err()
	return errors.Wrap(err, "save deadline")
}

func (s *RedisDeadlineStore) DeleteDeadline(ctx context.Context, key DeadlineKey) error {
	return errors.Wrap(s.rdb.Del(ctx, deadlineRedisKey(key)).Err(), "delete deadline")
}
