// Package readiness records exam-readiness snapshots after completed
// sessions: a predicted score on the 10-990 scale, a pass probability
// against a target score, and a rough time-to-ready estimate.
package readiness

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"
)

// defaultTargetScore is the pass mark snapshots are measured against.
const defaultTargetScore = 700

type Snapshot struct {
	ID                   int64     `json:"id"`
	UserID               string    `json:"userId"`
	TestType             string    `json:"testType,omitempty"`
	SnapshotDate         time.Time `json:"snapshotDate"`
	QuestionsAnswered    int       `json:"questionsAnswered"`
	CorrectCount         int       `json:"correctCount"`
	OverallReadiness     float64   `json:"overallReadiness"`
	PredictedScore       int       `json:"predictedScore"`
	PassProbability      float64   `json:"passProbability"`
	TargetScore          int       `json:"targetScore"`
	GapToTarget          int       `json:"gapToTarget"`
	EstimatedDaysToReady int       `json:"estimatedDaysToReady"`
}

var ErrNoSnapshot = errors.New("no snapshot")

// MasterySource supplies the overall mastery a snapshot is built from.
type MasterySource interface {
	OverallMastery(ctx context.Context, userID string) (float64, error)
}

type Service struct {
	db      *sql.DB
	mastery MasterySource
	log     *zap.Logger
	now     func() time.Time
}

func NewService(db *sql.DB, mastery MasterySource, log *zap.Logger) *Service {
	return &Service{db: db, mastery: mastery, log: log, now: time.Now}
}

// RecordSnapshot computes and stores a snapshot. Called best-effort
// after session completion.
func (s *Service) RecordSnapshot(ctx context.Context, userID, testType string, questionsAnswered, correctCount int) error {
	overall, err := s.mastery.OverallMastery(ctx, userID)
	if err != nil {
		return err
	}

	predicted := predictedScore(overall)
	gap := defaultTargetScore - predicted
	if gap < 0 {
		gap = 0
	}
	snap := Snapshot{
		UserID:               userID,
		TestType:             testType,
		SnapshotDate:         s.now().UTC(),
		QuestionsAnswered:    questionsAnswered,
		CorrectCount:         correctCount,
		OverallReadiness:     overall,
		PredictedScore:       predicted,
		PassProbability:      passProbability(predicted, defaultTargetScore),
		TargetScore:          defaultTargetScore,
		GapToTarget:          gap,
		EstimatedDaysToReady: estimatedDaysToReady(gap, overall),
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO readiness_snapshots
			(user_id, test_type, snapshot_date, questions_answered, correct_count,
			 overall_readiness, predicted_score, pass_probability, target_score,
			 gap_to_target, estimated_days_to_ready)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		snap.UserID, snap.TestType, snap.SnapshotDate.Unix(), snap.QuestionsAnswered,
		snap.CorrectCount, snap.OverallReadiness, snap.PredictedScore, snap.PassProbability,
		snap.TargetScore, snap.GapToTarget, snap.EstimatedDaysToReady)
	if err != nil {
		return err
	}
	s.log.Info("readiness snapshot recorded",
		zap.String("user", userID),
		zap.Int("predictedScore", predicted),
		zap.Float64("overall", overall))
	return nil
}

// Latest returns the user's most recent snapshot, optionally filtered
// by test type.
func (s *Service) Latest(ctx context.Context, userID, testType string) (*Snapshot, error) {
	q := `SELECT ` + snapshotColumns + ` FROM readiness_snapshots WHERE user_id = $1`
	args := []any{userID}
	if testType != "" {
		q += ` AND test_type = $2`
		args = append(args, testType)
	}
	q += ` ORDER BY snapshot_date DESC, id DESC LIMIT 1`

	snap, err := scanSnapshot(s.db.QueryRowContext(ctx, q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	return snap, err
}

// History lists snapshots newest first.
func (s *Service) History(ctx context.Context, userID, testType string, limit, offset int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 20
	}
	q := `SELECT ` + snapshotColumns + ` FROM readiness_snapshots WHERE user_id = $1`
	args := []any{userID}
	if testType != "" {
		args = append(args, testType)
		q += ` AND test_type = $2`
	}
	args = append(args, limit, offset)
	if testType != "" {
		q += ` ORDER BY snapshot_date DESC, id DESC LIMIT $3 OFFSET $4`
	} else {
		q += ` ORDER BY snapshot_date DESC, id DESC LIMIT $2 OFFSET $3`
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *snap)
	}
	return out, rows.Err()
}

const snapshotColumns = `id, user_id, test_type, snapshot_date, questions_answered, correct_count,
	overall_readiness, predicted_score, pass_probability, target_score, gap_to_target, estimated_days_to_ready`

type rowScanner interface{ Scan(dest ...any) error }

func scanSnapshot(r rowScanner) (*Snapshot, error) {
	var snap Snapshot
	var date int64
	if err := r.Scan(&snap.ID, &snap.UserID, &snap.TestType, &date, &snap.QuestionsAnswered,
		&snap.CorrectCount, &snap.OverallReadiness, &snap.PredictedScore, &snap.PassProbability,
		&snap.TargetScore, &snap.GapToTarget, &snap.EstimatedDaysToReady); err != nil {
		return nil, err
	}
	snap.SnapshotDate = time.Unix(date, 0).UTC()
	return &snap, nil
}

// predictedScore maps mastery [0,1] onto the 10-990 scale, rounded down
// to the nearest 5.
func predictedScore(mastery float64) int {
	score := int(10 + mastery*980)
	return (score / 5) * 5
}

// passProbability is a logistic curve over the score gap.
func passProbability(predicted, target int) float64 {
	const k = 0.02
	return 1.0 / (1.0 + math.Exp(-k*float64(predicted-target)))
}

// estimatedDaysToReady roughly scales the score gap by how slow
// progress gets at higher mastery.
func estimatedDaysToReady(gap int, mastery float64) int {
	if gap <= 0 {
		return 0
	}
	factor := 1.0 + mastery
	return int(math.Ceil(float64(gap) * 0.5 * factor / 10))
}
