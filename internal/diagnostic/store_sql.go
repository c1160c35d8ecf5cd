package diagnostic

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var ErrAttemptNotFound = errors.New("attempt not found")
var ErrDuplicateAnswer = errors.New("duplicate answer")
var ErrActiveExists = errors.New("active attempt exists")

type Store interface {
	CreateAttempt(ctx context.Context, a *Attempt) error
	UpdateAttempt(ctx context.Context, a *Attempt) error
	GetBySessionID(ctx context.Context, sessionID string) (*Attempt, error)
	GetActiveByUser(ctx context.Context, userID string) (*Attempt, error)
	SubmitAnswer(ctx context.Context, a *Attempt, ans *Answer) error
	ListAnswers(ctx context.Context, attemptID string) ([]Answer, error)
	CountCorrect(ctx context.Context, attemptID string) (int, error)
	HasAnswer(ctx context.Context, attemptID string, questionID int64) (bool, error)
	AnsweredQuestionIDs(ctx context.Context, attemptID string) (map[int64]bool, error)
	History(ctx context.Context, userID string, limit int) ([]Attempt, error)
}

type SQLStore struct {
	db       *sql.DB
	isUnique func(error) bool
}

// NewSQLStore wraps db. isUnique classifies driver errors as unique
// constraint violations so the service can map races to domain errors.
func NewSQLStore(db *sql.DB, isUnique func(error) bool) *SQLStore {
	if isUnique == nil {
		isUnique = func(error) bool { return false }
	}
	return &SQLStore{db: db, isUnique: isUnique}
}

const attemptColumns = `id, user_id, session_id, test_type, status, total_questions, answered_questions,
	start_time, end_time, time_spent_seconds, raw_score, estimated_level, estimated_score_min,
	estimated_score_max, mode, certification_code, career_path, tracking_json, created_at, updated_at`

func (s *SQLStore) CreateAttempt(ctx context.Context, a *Attempt) error {
	tracking, err := json.Marshal(a.Tracking)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO diagnostic_attempts (`+attemptColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`,
		a.ID, a.UserID, a.SessionID, a.TestType, string(a.Status), a.TotalQuestions, a.AnsweredQuestions,
		a.StartTime.Unix(), nullTime(a.EndTime), a.TimeSpentSeconds, nullFloat(a.RawScore),
		nullString(a.EstimatedLevel), a.EstimatedScoreMin, a.EstimatedScoreMax,
		a.Mode, a.CertificationCode, a.CareerPath, string(tracking),
		a.CreatedAt.Unix(), a.UpdatedAt.Unix())
	if err != nil && s.isUnique(err) {
		return ErrActiveExists
	}
	return err
}

func (s *SQLStore) UpdateAttempt(ctx context.Context, a *Attempt) error {
	tracking, err := json.Marshal(a.Tracking)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, updateAttemptSQL,
		string(a.Status), a.AnsweredQuestions, nullTime(a.EndTime), a.TimeSpentSeconds,
		nullFloat(a.RawScore), nullString(a.EstimatedLevel), a.EstimatedScoreMin, a.EstimatedScoreMax,
		string(tracking), a.UpdatedAt.Unix(), a.ID)
	return err
}

const updateAttemptSQL = `
	UPDATE diagnostic_attempts SET
		status = $1, answered_questions = $2, end_time = $3, time_spent_seconds = $4,
		raw_score = $5, estimated_level = $6, estimated_score_min = $7, estimated_score_max = $8,
		tracking_json = $9, updated_at = $10
	WHERE id = $11`

// SubmitAnswer persists one answer together with the attempt's updated
// counters and tracking state in a single transaction.
func (s *SQLStore) SubmitAnswer(ctx context.Context, a *Attempt, ans *Answer) error {
	tracking, err := json.Marshal(a.Tracking)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO diagnostic_answers
			(attempt_id, question_id, skill_id, question_order, user_answer, is_correct, time_spent_seconds, answered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		ans.AttemptID, ans.QuestionID, nullInt64(ans.SkillID), ans.QuestionOrder,
		ans.UserAnswer, ans.IsCorrect, ans.TimeSpentSeconds, ans.AnsweredAt.Unix())
	if err != nil {
		if s.isUnique(err) {
			return ErrDuplicateAnswer
		}
		return err
	}

	_, err = tx.ExecContext(ctx, updateAttemptSQL,
		string(a.Status), a.AnsweredQuestions, nullTime(a.EndTime), a.TimeSpentSeconds,
		nullFloat(a.RawScore), nullString(a.EstimatedLevel), a.EstimatedScoreMin, a.EstimatedScoreMax,
		string(tracking), a.UpdatedAt.Unix(), a.ID)
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLStore) GetBySessionID(ctx context.Context, sessionID string) (*Attempt, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+attemptColumns+` FROM diagnostic_attempts WHERE session_id = $1`, sessionID)
	a, err := scanAttempt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAttemptNotFound
	}
	return a, err
}

func (s *SQLStore) GetActiveByUser(ctx context.Context, userID string) (*Attempt, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+attemptColumns+` FROM diagnostic_attempts
		WHERE user_id = $1 AND status = $2`, userID, string(StatusInProgress))
	a, err := scanAttempt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAttemptNotFound
	}
	return a, err
}

func (s *SQLStore) ListAnswers(ctx context.Context, attemptID string) ([]Answer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, attempt_id, question_id, skill_id, question_order, user_answer, is_correct, time_spent_seconds, answered_at
		FROM diagnostic_answers WHERE attempt_id = $1 ORDER BY question_order`, attemptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Answer
	for rows.Next() {
		var ans Answer
		var skill sql.NullInt64
		var answeredAt int64
		if err := rows.Scan(&ans.ID, &ans.AttemptID, &ans.QuestionID, &skill, &ans.QuestionOrder,
			&ans.UserAnswer, &ans.IsCorrect, &ans.TimeSpentSeconds, &answeredAt); err != nil {
			return nil, err
		}
		if skill.Valid {
			ans.SkillID = &skill.Int64
		}
		ans.AnsweredAt = time.Unix(answeredAt, 0).UTC()
		out = append(out, ans)
	}
	return out, rows.Err()
}

func (s *SQLStore) CountCorrect(ctx context.Context, attemptID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM diagnostic_answers
		WHERE attempt_id = $1 AND is_correct = $2`, attemptID, true).Scan(&n)
	return n, err
}

func (s *SQLStore) HasAnswer(ctx context.Context, attemptID string, questionID int64) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM diagnostic_answers
		WHERE attempt_id = $1 AND question_id = $2`, attemptID, questionID).Scan(&n)
	return n > 0, err
}

func (s *SQLStore) AnsweredQuestionIDs(ctx context.Context, attemptID string) (map[int64]bool, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT question_id FROM diagnostic_answers WHERE attempt_id = $1`, attemptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[int64]bool{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}

func (s *SQLStore) History(ctx context.Context, userID string, limit int) ([]Attempt, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+attemptColumns+` FROM diagnostic_attempts
		WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

type rowScanner interface{ Scan(dest ...any) error }

func scanAttempt(r rowScanner) (*Attempt, error) {
	var a Attempt
	var status, trackingJSON string
	var startTime, createdAt, updatedAt int64
	var endTime sql.NullInt64
	var rawScore sql.NullFloat64
	var level sql.NullString
	if err := r.Scan(&a.ID, &a.UserID, &a.SessionID, &a.TestType, &status,
		&a.TotalQuestions, &a.AnsweredQuestions, &startTime, &endTime, &a.TimeSpentSeconds,
		&rawScore, &level, &a.EstimatedScoreMin, &a.EstimatedScoreMax,
		&a.Mode, &a.CertificationCode, &a.CareerPath, &trackingJSON, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	a.Status = Status(status)
	a.StartTime = time.Unix(startTime, 0).UTC()
	a.CreatedAt = time.Unix(createdAt, 0).UTC()
	a.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	if endTime.Valid {
		t := time.Unix(endTime.Int64, 0).UTC()
		a.EndTime = &t
	}
	if rawScore.Valid {
		a.RawScore = &rawScore.Float64
	}
	if level.Valid {
		a.EstimatedLevel = level.String
	}
	if err := json.Unmarshal([]byte(trackingJSON), &a.Tracking); err != nil {
		return nil, fmt.Errorf("attempt %s tracking: %w", a.ID, err)
	}
	return &a, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Unix()
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func nullInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
