package mastery

import (
	"context"
	"database/sql"
	"errors"
)

var ErrNotFound = errors.New("mastery not found")

type Store interface {
	Get(ctx context.Context, userID string, skillID int64) (*SkillMastery, error)
	Upsert(ctx context.Context, m *SkillMastery) error
	ListByUser(ctx context.Context, userID string) ([]SkillMastery, error)
	WeakSkills(ctx context.Context, userID string, threshold float64, limit int) ([]SkillMastery, error)
}

type SQLStore struct{ db *sql.DB }

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

const masteryColumns = `user_id, skill_id, mastery_level, confidence, attempts, correct_count, streak, last_practiced_at`

func (s *SQLStore) Get(ctx context.Context, userID string, skillID int64) (*SkillMastery, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+masteryColumns+` FROM skill_mastery
		WHERE user_id = $1 AND skill_id = $2`, userID, skillID)
	m, err := scanMastery(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return m, err
}

func (s *SQLStore) Upsert(ctx context.Context, m *SkillMastery) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO skill_mastery (`+masteryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, skill_id) DO UPDATE SET
			mastery_level = EXCLUDED.mastery_level,
			confidence = EXCLUDED.confidence,
			attempts = EXCLUDED.attempts,
			correct_count = EXCLUDED.correct_count,
			streak = EXCLUDED.streak,
			last_practiced_at = EXCLUDED.last_practiced_at`,
		m.UserID, m.SkillID, m.MasteryLevel, m.Confidence,
		m.Attempts, m.CorrectCount, m.Streak, m.LastPracticedAt.Unix())
	return err
}

func (s *SQLStore) ListByUser(ctx context.Context, userID string) ([]SkillMastery, error) {
	return s.query(ctx, `
		SELECT `+masteryColumns+` FROM skill_mastery
		WHERE user_id = $1 ORDER BY skill_id`, userID)
}

func (s *SQLStore) WeakSkills(ctx context.Context, userID string, threshold float64, limit int) ([]SkillMastery, error) {
	return s.query(ctx, `
		SELECT `+masteryColumns+` FROM skill_mastery
		WHERE user_id = $1 AND mastery_level < $2
		ORDER BY mastery_level ASC LIMIT $3`, userID, threshold, limit)
}

func (s *SQLStore) query(ctx context.Context, q string, args ...any) ([]SkillMastery, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SkillMastery
	for rows.Next() {
		m, err := scanMastery(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

type rowScanner interface{ Scan(dest ...any) error }

func scanMastery(r rowScanner) (*SkillMastery, error) {
	var m SkillMastery
	var practicedAt int64
	if err := r.Scan(&m.UserID, &m.SkillID, &m.MasteryLevel, &m.Confidence,
		&m.Attempts, &m.CorrectCount, &m.Streak, &practicedAt); err != nil {
		return nil, err
	}
	m.LastPracticedAt = unixTime(practicedAt)
	return &m, nil
}
