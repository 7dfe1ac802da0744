package quizserver

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/quizmaster/quizmaster/internal/attempt"
)

// SQLStore keeps quizzes, questions and scores in the tables created by
// db.Open.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) PutQuiz(ctx context.Context, q QuizRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer tx.Rollback()

	var endAt *int64
	if q.EndAt != nil {
		v := q.EndAt.Unix()
		endAt = &v
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO quizzes (id,chapter_id,date_of_quiz,start_time,time_duration,end_at,remarks)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (id) DO UPDATE SET chapter_id=EXCLUDED.chapter_id, date_of_quiz=EXCLUDED.date_of_quiz,
			start_time=EXCLUDED.start_time, time_duration=EXCLUDED.time_duration, end_at=EXCLUDED.end_at, remarks=EXCLUDED.remarks`,
		q.ID, q.ChapterID, q.DateOfQuiz, q.StartTime, q.TimeDuration, endAt, q.Remarks); err != nil {
		return errors.Wrap(err, "upsert quiz")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM questions WHERE quiz_id=$1`, q.ID); err != nil {
		return errors.Wrap(err, "clear questions")
	}
	for i, qu := range q.Questions {
		pos := qu.Position
		if pos == 0 {
			pos = i + 1
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO questions
			(id,quiz_id,position,question_statement,option1,option2,option3,option4,correct_option)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			qu.ID, q.ID, pos, qu.Statement, qu.Option1, qu.Option2, qu.Option3, qu.Option4, qu.CorrectOption); err != nil {
			return errors.Wrapf(err, "insert question %d", qu.ID)
		}
	}
	return errors.Wrap(tx.Commit(), "commit")
}

func (s *SQLStore) GetQuiz(ctx context.Context, id int) (QuizRecord, error) {
	var q QuizRecord
	var endAt sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT id,chapter_id,date_of_quiz,start_time,time_duration,end_at,remarks FROM quizzes WHERE id=$1`, id).
		Scan(&q.ID, &q.ChapterID, &q.DateOfQuiz, &q.StartTime, &q.TimeDuration, &endAt, &q.Remarks)
	if errors.Is(err, sql.ErrNoRows) {
		return QuizRecord{}, ErrQuizNotFound
	}
	if err != nil {
		return QuizRecord{}, errors.Wrap(err, "get quiz")
	}
	if endAt.Valid {
		t := time.Unix(endAt.Int64, 0)
		q.EndAt = &t
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id,position,question_statement,option1,option2,option3,option4,correct_option
		FROM questions WHERE quiz_id=$1 ORDER BY position, id`, id)
	if err != nil {
		return QuizRecord{}, errors.Wrap(err, "list questions")
	}
	defer rows.Close()
	q.Questions = []QuestionRecord{}
	for rows.Next() {
		var r QuestionRecord
		var qu attempt.Question
		if err := rows.Scan(&qu.ID, &r.Position, &qu.Statement, &qu.Option1, &qu.Option2, &qu.Option3, &qu.Option4, &r.CorrectOption); err != nil {
			return QuizRecord{}, errors.Wrap(err, "scan question")
		}
		r.Question = qu
		q.Questions = append(q.Questions, r)
	}
	return q, errors.Wrap(rows.Err(), "list questions")
}

func (s *SQLStore) RecordScore(ctx context.Context, sc Score) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO scores (id,quiz_id,user_id,total_scored,total,attempted_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		sc.ID, sc.QuizID, sc.UserID, sc.TotalScored, sc.Total, sc.AttemptedAt.Unix())
	return errors.Wrap(err, "record score")
}

func (s *SQLStore) ListScores(ctx context.Context, quizID int, userID string) ([]Score, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,quiz_id,user_id,total_scored,total,attempted_at
		FROM scores WHERE quiz_id=$1 AND ($2='' OR user_id=$2) ORDER BY attempted_at DESC`, quizID, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list scores")
	}
	defer rows.Close()
	var out []Score
	for rows.Next() {
		var sc Score
		var at int64
		if err := rows.Scan(&sc.ID, &sc.QuizID, &sc.UserID, &sc.TotalScored, &sc.Total, &at); err != nil {
			return nil, errors.Wrap(err, "scan score")
		}
		sc.AttemptedAt = time.Unix(at, 0)
		out = append(out, sc)
	}
	return out, errors.Wrap(rows.Err(), "list scores")
}
