package practice

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var ErrSessionNotFound = errors.New("practice session not found")
var ErrDuplicateAnswer = errors.New("duplicate practice answer")

type Store interface {
	Create(ctx context.Context, sess *Session) error
	Update(ctx context.Context, sess *Session) error
	GetByID(ctx context.Context, id string) (*Session, error)
	GetActiveByUser(ctx context.Context, userID string) (*Session, error)
	RecordAnswer(ctx context.Context, sess *Session, questionID int64, skillID *int64, isCorrect bool, timeSpentSeconds int, answeredAt time.Time) error
}

type SQLStore struct {
	db       *sql.DB
	isUnique func(error) bool
}

func NewSQLStore(db *sql.DB, isUnique func(error) bool) *SQLStore {
	if isUnique == nil {
		isUnique = func(error) bool { return false }
	}
	return &SQLStore{db: db, isUnique: isUnique}
}

const sessionColumns = `id, user_id, session_type, target_skill_id, certification_code, status,
	total_questions, answered_questions, correct_count, tracking_json, started_at, ended_at`

func (s *SQLStore) Create(ctx context.Context, sess *Session) error {
	tracking, err := json.Marshal(sess.Tracking)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO practice_sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		sess.ID, sess.UserID, string(sess.SessionType), nullInt64(sess.TargetSkillID),
		sess.CertificationCode, string(sess.Status), sess.TotalQuestions,
		sess.AnsweredQuestions, sess.CorrectCount, string(tracking),
		sess.StartedAt.Unix(), nullTime(sess.EndedAt))
	return err
}

func (s *SQLStore) Update(ctx context.Context, sess *Session) error {
	tracking, err := json.Marshal(sess.Tracking)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, updateSessionSQL,
		string(sess.Status), sess.AnsweredQuestions, sess.CorrectCount,
		string(tracking), nullTime(sess.EndedAt), sess.ID)
	return err
}

const updateSessionSQL = `
	UPDATE practice_sessions SET
		status = $1, answered_questions = $2, correct_count = $3, tracking_json = $4, ended_at = $5
	WHERE id = $6`

func (s *SQLStore) GetByID(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM practice_sessions WHERE id = $1`, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	return sess, err
}

func (s *SQLStore) GetActiveByUser(ctx context.Context, userID string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+` FROM practice_sessions
		WHERE user_id = $1 AND status = $2
		ORDER BY started_at DESC LIMIT 1`, userID, string(StatusInProgress))
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	return sess, err
}

// RecordAnswer persists the answer and the session's updated state in
// one transaction.
func (s *SQLStore) RecordAnswer(ctx context.Context, sess *Session, questionID int64, skillID *int64, isCorrect bool, timeSpentSeconds int, answeredAt time.Time) error {
	tracking, err := json.Marshal(sess.Tracking)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO practice_answers (session_id, question_id, skill_id, is_correct, time_spent_seconds, answered_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		sess.ID, questionID, nullInt64(skillID), isCorrect, timeSpentSeconds, answeredAt.Unix())
	if err != nil {
		if s.isUnique(err) {
			return ErrDuplicateAnswer
		}
		return err
	}

	_, err = tx.ExecContext(ctx, updateSessionSQL,
		string(sess.Status), sess.AnsweredQuestions, sess.CorrectCount,
		string(tracking), nullTime(sess.EndedAt), sess.ID)
	if err != nil {
		return err
	}
	return tx.Commit()
}

type rowScanner interface{ Scan(dest ...any) error }

func scanSession(r rowScanner) (*Session, error) {
	var sess Session
	var sessionType, status, trackingJSON string
	var targetSkill, endedAt sql.NullInt64
	var startedAt int64
	if err := r.Scan(&sess.ID, &sess.UserID, &sessionType, &targetSkill, &sess.CertificationCode,
		&status, &sess.TotalQuestions, &sess.AnsweredQuestions, &sess.CorrectCount,
		&trackingJSON, &startedAt, &endedAt); err != nil {
		return nil, err
	}
	sess.SessionType = SessionType(sessionType)
	sess.Status = Status(status)
	if targetSkill.Valid {
		sess.TargetSkillID = &targetSkill.Int64
	}
	sess.StartedAt = time.Unix(startedAt, 0).UTC()
	if endedAt.Valid {
		t := time.Unix(endedAt.Int64, 0).UTC()
		sess.EndedAt = &t
	}
	if err := json.Unmarshal([]byte(trackingJSON), &sess.Tracking); err != nil {
		return nil, fmt.Errorf("practice session %s tracking: %w", sess.ID, err)
	}
	return &sess, nil
}

func nullInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Unix()
}
