package srs

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/skill-pulse/skillpulse-engine/internal/apperr"
)

type Service struct {
	store Store
	log   *zap.Logger
	now   func() time.Time
}

func NewService(store Store, log *zap.Logger) *Service {
	return &Service{store: store, log: log, now: time.Now}
}

// CreateRequest describes a card to create.
type CreateRequest struct {
	QuestionID        int64  `json:"questionId"`
	SkillID           *int64 `json:"skillId,omitempty"`
	CertificationCode string `json:"certificationCode,omitempty"`
}

// CreateCard is idempotent per (user, question): a repeat create
// returns the existing card unchanged.
func (s *Service) CreateCard(ctx context.Context, userID string, req CreateRequest) (*Card, error) {
	if existing, err := s.store.GetByUserAndQuestion(ctx, userID, req.QuestionID); err == nil {
		return existing, nil
	} else if !errors.Is(err, ErrCardNotFound) {
		return nil, err
	}

	now := s.now().UTC()
	card := &Card{
		UserID:            userID,
		QuestionID:        req.QuestionID,
		SkillID:           req.SkillID,
		CertificationCode: req.CertificationCode,
		EaseFactor:        DefaultEaseFactor,
		IntervalDays:      initialInterval,
		Status:            StatusNew,
		NextReviewAt:      now,
		SyncVersion:       1,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.store.Create(ctx, card); err != nil {
		if errors.Is(err, ErrDuplicateCard) {
			// Lost the race against a concurrent create.
			return s.store.GetByUserAndQuestion(ctx, userID, req.QuestionID)
		}
		return nil, err
	}
	s.log.Debug("srs card created",
		zap.String("user", userID),
		zap.Int64("question", req.QuestionID))
	return card, nil
}

// BulkCreate creates cards best-effort: a failed item is skipped and
// the rest proceed.
func (s *Service) BulkCreate(ctx context.Context, userID string, reqs []CreateRequest) ([]Card, error) {
	out := make([]Card, 0, len(reqs))
	for _, req := range reqs {
		card, err := s.CreateCard(ctx, userID, req)
		if err != nil {
			s.log.Warn("bulk create item failed",
				zap.String("user", userID),
				zap.Int64("question", req.QuestionID),
				zap.Error(err))
			continue
		}
		out = append(out, *card)
	}
	return out, nil
}

// GetDueCards returns non-suspended cards whose review date has passed.
func (s *Service) GetDueCards(ctx context.Context, userID string, limit, offset int) ([]Card, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.store.ListDue(ctx, userID, s.now().UTC(), limit, offset)
}

// GetCards lists a user's cards with optional status and certification
// filters.
func (s *Service) GetCards(ctx context.Context, userID string, status Status, certificationCode string, limit, offset int) ([]Card, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.store.List(ctx, userID, status, certificationCode, limit, offset)
}

func (s *Service) GetCard(ctx context.Context, userID string, cardID int64) (*Card, error) {
	return s.ownedCard(ctx, userID, cardID)
}

// RecordReview applies one SM-2 review with quality in [0,5].
func (s *Service) RecordReview(ctx context.Context, userID string, cardID int64, quality int) (*ReviewResult, error) {
	if quality < 0 || quality > 5 {
		return nil, apperr.Newf(apperr.CodeInvalidRequest, "quality must be between 0 and 5, got %d", quality)
	}
	card, err := s.ownedCard(ctx, userID, cardID)
	if err != nil {
		return nil, err
	}

	ApplyReview(card, quality, s.now().UTC())
	card.SyncVersion++

	if err := s.store.Update(ctx, card); err != nil {
		return nil, err
	}
	s.log.Info("review recorded",
		zap.Int64("card", cardID),
		zap.Int("quality", quality),
		zap.Int("interval", card.IntervalDays))

	return &ReviewResult{
		CardID:          card.ID,
		NewIntervalDays: card.IntervalDays,
		NewEaseFactor:   card.EaseFactor,
		NewRepetitions:  card.Repetitions,
		NewStatus:       card.Status,
		NextReviewAt:    card.NextReviewAt,
		Streak:          card.Streak,
	}, nil
}

// UpdateStatus suspends or resumes a card.
func (s *Service) UpdateStatus(ctx context.Context, userID string, cardID int64, status Status) (*Card, error) {
	switch status {
	case StatusNew, StatusLearning, StatusReview, StatusSuspended:
	default:
		return nil, apperr.Newf(apperr.CodeInvalidRequest, "invalid status %q", status)
	}
	card, err := s.ownedCard(ctx, userID, cardID)
	if err != nil {
		return nil, err
	}
	card.Status = status
	card.SyncVersion++
	card.UpdatedAt = s.now().UTC()
	if err := s.store.Update(ctx, card); err != nil {
		return nil, err
	}
	return card, nil
}

func (s *Service) DeleteCard(ctx context.Context, userID string, cardID int64) error {
	card, err := s.ownedCard(ctx, userID, cardID)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, card.ID); err != nil {
		return err
	}
	s.log.Info("srs card deleted", zap.Int64("card", cardID))
	return nil
}

func (s *Service) GetStats(ctx context.Context, userID string) (*Stats, error) {
	return s.store.Stats(ctx, userID, s.now().UTC())
}

// SyncCard is the client-side card state pushed during sync.
type SyncCard struct {
	QuestionID        int64      `json:"questionId"`
	SkillID           *int64     `json:"skillId,omitempty"`
	CertificationCode string     `json:"certificationCode,omitempty"`
	EaseFactor        float64    `json:"easeFactor"`
	IntervalDays      int        `json:"intervalDays"`
	Repetitions       int        `json:"repetitions"`
	Status            Status     `json:"status"`
	TotalReviews      int        `json:"totalReviews"`
	CorrectReviews    int        `json:"correctReviews"`
	Streak            int        `json:"streak"`
	NextReviewAt      *time.Time `json:"nextReviewAt,omitempty"`
	SyncVersion       int64      `json:"syncVersion"`
}

// SyncResponse reports the merge outcome plus server-side changes.
type SyncResponse struct {
	ServerCards     []Card `json:"serverCards"`
	ConflictCards   []Card `json:"conflictCards"`
	SyncTimestamp   int64  `json:"syncTimestamp"`
	CardsCreated    int    `json:"cardsCreated"`
	CardsUpdated    int    `json:"cardsUpdated"`
	CardsConflicted int    `json:"cardsConflicted"`
}

// Sync merges client cards by version: a client card older than the
// server's copy is reported as a conflict and the server value wins;
// otherwise the client overwrites. Cards the server changed after
// lastSyncAt are returned. Best-effort per item.
func (s *Service) Sync(ctx context.Context, userID string, clientCards []SyncCard, lastSyncAt *time.Time) (*SyncResponse, error) {
	resp := &SyncResponse{ServerCards: []Card{}, ConflictCards: []Card{}}
	now := s.now().UTC()

	for _, cc := range clientCards {
		existing, err := s.store.GetByUserAndQuestion(ctx, userID, cc.QuestionID)
		switch {
		case err == nil:
			if cc.SyncVersion < existing.SyncVersion {
				resp.ConflictCards = append(resp.ConflictCards, *existing)
				resp.CardsConflicted++
				continue
			}
			applySyncData(existing, cc, now)
			if uerr := s.store.Update(ctx, existing); uerr != nil {
				s.log.Warn("sync update failed",
					zap.Int64("question", cc.QuestionID), zap.Error(uerr))
				continue
			}
			resp.CardsUpdated++
		case errors.Is(err, ErrCardNotFound):
			card := cardFromSyncData(userID, cc, now)
			if cerr := s.store.Create(ctx, card); cerr != nil {
				s.log.Warn("sync create failed",
					zap.Int64("question", cc.QuestionID), zap.Error(cerr))
				continue
			}
			resp.CardsCreated++
		default:
			return nil, err
		}
	}

	if lastSyncAt != nil {
		serverCards, err := s.store.UpdatedSince(ctx, userID, *lastSyncAt)
		if err != nil {
			return nil, err
		}
		resp.ServerCards = serverCards
	}

	resp.SyncTimestamp = now.UnixMilli()
	s.log.Info("srs sync",
		zap.String("user", userID),
		zap.Int("created", resp.CardsCreated),
		zap.Int("updated", resp.CardsUpdated),
		zap.Int("conflicted", resp.CardsConflicted))
	return resp, nil
}

func applySyncData(card *Card, cc SyncCard, now time.Time) {
	card.EaseFactor = clampEF(cc.EaseFactor)
	card.IntervalDays = maxInt(1, cc.IntervalDays)
	card.Repetitions = cc.Repetitions
	if cc.Status != "" {
		card.Status = cc.Status
	}
	card.TotalReviews = cc.TotalReviews
	card.CorrectReviews = cc.CorrectReviews
	card.Streak = cc.Streak
	if cc.NextReviewAt != nil {
		card.NextReviewAt = cc.NextReviewAt.UTC()
	}
	if cc.SyncVersion > card.SyncVersion {
		card.SyncVersion = cc.SyncVersion
	}
	card.UpdatedAt = now
}

func cardFromSyncData(userID string, cc SyncCard, now time.Time) *Card {
	card := &Card{
		UserID:            userID,
		QuestionID:        cc.QuestionID,
		SkillID:           cc.SkillID,
		CertificationCode: cc.CertificationCode,
		EaseFactor:        DefaultEaseFactor,
		IntervalDays:      initialInterval,
		Status:            StatusNew,
		NextReviewAt:      now,
		SyncVersion:       1,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	applySyncData(card, cc, now)
	if cc.SyncVersion > 0 {
		card.SyncVersion = cc.SyncVersion
	}
	return card
}

func (s *Service) ownedCard(ctx context.Context, userID string, cardID int64) (*Card, error) {
	card, err := s.store.GetByID(ctx, cardID)
	if errors.Is(err, ErrCardNotFound) {
		return nil, apperr.New(apperr.CodeCardNotFound, "card not found")
	}
	if err != nil {
		return nil, err
	}
	if card.UserID != userID {
		return nil, apperr.New(apperr.CodeUnauthorized, "card belongs to another user")
	}
	return card, nil
}

func clampEF(ef float64) float64 {
	if ef < MinEaseFactor {
		return MinEaseFactor
	}
	return ef
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
