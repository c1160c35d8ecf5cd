package srs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var ErrCardNotFound = errors.New("card not found")
var ErrDuplicateCard = errors.New("card already exists")

type Store interface {
	Create(ctx context.Context, c *Card) error
	Update(ctx context.Context, c *Card) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*Card, error)
	GetByUserAndQuestion(ctx context.Context, userID string, questionID int64) (*Card, error)
	ListDue(ctx context.Context, userID string, now time.Time, limit, offset int) ([]Card, error)
	List(ctx context.Context, userID string, status Status, certificationCode string, limit, offset int) ([]Card, error)
	UpdatedSince(ctx context.Context, userID string, since time.Time) ([]Card, error)
	Stats(ctx context.Context, userID string, now time.Time) (*Stats, error)
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

const cardColumns = `id, user_id, question_id, skill_id, certification_code, ease_factor, interval_days,
	repetitions, quality_history, status, total_reviews, correct_reviews, last_quality, streak,
	next_review_at, last_reviewed_at, sync_version, created_at, updated_at`

func (s *SQLStore) Create(ctx context.Context, c *Card) error {
	history, err := json.Marshal(emptyHistory(c.QualityHistory))
	if err != nil {
		return err
	}
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO srs_cards (user_id, question_id, skill_id, certification_code, ease_factor,
			interval_days, repetitions, quality_history, status, total_reviews, correct_reviews,
			last_quality, streak, next_review_at, last_reviewed_at, sync_version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id`,
		c.UserID, c.QuestionID, nullInt64(c.SkillID), c.CertificationCode, c.EaseFactor,
		c.IntervalDays, c.Repetitions, string(history), string(c.Status), c.TotalReviews,
		c.CorrectReviews, nullInt(c.LastQuality), c.Streak, c.NextReviewAt.Unix(),
		nullTime(c.LastReviewedAt), c.SyncVersion, c.CreatedAt.Unix(), c.UpdatedAt.Unix()).
		Scan(&c.ID)
	if err != nil && s.isUnique(err) {
		return ErrDuplicateCard
	}
	return err
}

func (s *SQLStore) Update(ctx context.Context, c *Card) error {
	history, err := json.Marshal(emptyHistory(c.QualityHistory))
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE srs_cards SET
			ease_factor = $1, interval_days = $2, repetitions = $3, quality_history = $4,
			status = $5, total_reviews = $6, correct_reviews = $7, last_quality = $8,
			streak = $9, next_review_at = $10, last_reviewed_at = $11, sync_version = $12,
			updated_at = $13
		WHERE id = $14`,
		c.EaseFactor, c.IntervalDays, c.Repetitions, string(history),
		string(c.Status), c.TotalReviews, c.CorrectReviews, nullInt(c.LastQuality),
		c.Streak, c.NextReviewAt.Unix(), nullTime(c.LastReviewedAt), c.SyncVersion,
		c.UpdatedAt.Unix(), c.ID)
	return err
}

func (s *SQLStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM srs_cards WHERE id = $1`, id)
	return err
}

func (s *SQLStore) GetByID(ctx context.Context, id int64) (*Card, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+cardColumns+` FROM srs_cards WHERE id = $1`, id)
	c, err := scanCard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCardNotFound
	}
	return c, err
}

func (s *SQLStore) GetByUserAndQuestion(ctx context.Context, userID string, questionID int64) (*Card, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+cardColumns+` FROM srs_cards
		WHERE user_id = $1 AND question_id = $2`, userID, questionID)
	c, err := scanCard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCardNotFound
	}
	return c, err
}

func (s *SQLStore) ListDue(ctx context.Context, userID string, now time.Time, limit, offset int) ([]Card, error) {
	return s.queryCards(ctx, `
		SELECT `+cardColumns+` FROM srs_cards
		WHERE user_id = $1 AND status != $2 AND next_review_at <= $3
		ORDER BY next_review_at ASC LIMIT $4 OFFSET $5`,
		userID, string(StatusSuspended), now.Unix(), limit, offset)
}

func (s *SQLStore) List(ctx context.Context, userID string, status Status, certificationCode string, limit, offset int) ([]Card, error) {
	q := `SELECT ` + cardColumns + ` FROM srs_cards WHERE user_id = $1`
	args := []any{userID}
	if status != "" {
		args = append(args, string(status))
		q += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	if certificationCode != "" {
		args = append(args, certificationCode)
		q += fmt.Sprintf(` AND certification_code = $%d`, len(args))
	}
	args = append(args, limit, offset)
	q += fmt.Sprintf(` ORDER BY id LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	return s.queryCards(ctx, q, args...)
}

func (s *SQLStore) UpdatedSince(ctx context.Context, userID string, since time.Time) ([]Card, error) {
	return s.queryCards(ctx, `
		SELECT `+cardColumns+` FROM srs_cards
		WHERE user_id = $1 AND updated_at > $2
		ORDER BY updated_at ASC`, userID, since.Unix())
}

func (s *SQLStore) Stats(ctx context.Context, userID string, now time.Time) (*Stats, error) {
	stats := &Stats{CardsByStatus: map[Status]int64{}, AverageEaseFactor: DefaultEaseFactor}

	var avgEF sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(total_reviews), 0), COALESCE(SUM(correct_reviews), 0), AVG(ease_factor)
		FROM srs_cards WHERE user_id = $1`, userID).
		Scan(&stats.TotalCards, &stats.TotalReviews, &stats.CorrectReviews, &avgEF)
	if err != nil {
		return nil, err
	}
	if avgEF.Valid {
		stats.AverageEaseFactor = avgEF.Float64
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM srs_cards
		WHERE user_id = $1 AND status != $2 AND next_review_at <= $3`,
		userID, string(StatusSuspended), now.Unix()).Scan(&stats.DueCards)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM srs_cards
		WHERE user_id = $1 GROUP BY status`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats.CardsByStatus[Status(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	stats.NewCards = stats.CardsByStatus[StatusNew]
	stats.LearningCards = stats.CardsByStatus[StatusLearning]
	stats.ReviewCards = stats.CardsByStatus[StatusReview]
	stats.SuspendedCards = stats.CardsByStatus[StatusSuspended]
	if stats.TotalReviews > 0 {
		stats.Accuracy = float64(stats.CorrectReviews) / float64(stats.TotalReviews)
	}
	return stats, nil
}

func (s *SQLStore) queryCards(ctx context.Context, q string, args ...any) ([]Card, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

type rowScanner interface{ Scan(dest ...any) error }

func scanCard(r rowScanner) (*Card, error) {
	var c Card
	var skill, lastQuality, lastReviewed sql.NullInt64
	var status, history string
	var nextReview, createdAt, updatedAt int64
	if err := r.Scan(&c.ID, &c.UserID, &c.QuestionID, &skill, &c.CertificationCode,
		&c.EaseFactor, &c.IntervalDays, &c.Repetitions, &history, &status,
		&c.TotalReviews, &c.CorrectReviews, &lastQuality, &c.Streak,
		&nextReview, &lastReviewed, &c.SyncVersion, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	c.Status = Status(status)
	if skill.Valid {
		c.SkillID = &skill.Int64
	}
	if lastQuality.Valid {
		q := int(lastQuality.Int64)
		c.LastQuality = &q
	}
	if lastReviewed.Valid {
		t := time.Unix(lastReviewed.Int64, 0).UTC()
		c.LastReviewedAt = &t
	}
	c.NextReviewAt = time.Unix(nextReview, 0).UTC()
	c.CreatedAt = time.Unix(createdAt, 0).UTC()
	c.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	if err := json.Unmarshal([]byte(history), &c.QualityHistory); err != nil {
		return nil, fmt.Errorf("card %d quality history: %w", c.ID, err)
	}
	return &c, nil
}

func emptyHistory(h []int) []int {
	if h == nil {
		return []int{}
	}
	return h
}

func nullInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullInt(v *int) any {
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
