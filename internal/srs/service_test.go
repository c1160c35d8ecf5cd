package srs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/skill-pulse/skillpulse-engine/internal/apperr"
)

type fakeStore struct {
	cards  map[int64]*Card
	nextID int64
}

func newFakeStore() *fakeStore { return &fakeStore{cards: map[int64]*Card{}} }

func (f *fakeStore) Create(_ context.Context, c *Card) error {
	for _, existing := range f.cards {
		if existing.UserID == c.UserID && existing.QuestionID == c.QuestionID {
			return ErrDuplicateCard
		}
	}
	f.nextID++
	c.ID = f.nextID
	cp := *c
	f.cards[c.ID] = &cp
	return nil
}

func (f *fakeStore) Update(_ context.Context, c *Card) error {
	if _, ok := f.cards[c.ID]; !ok {
		return ErrCardNotFound
	}
	cp := *c
	f.cards[c.ID] = &cp
	return nil
}

func (f *fakeStore) Delete(_ context.Context, id int64) error {
	delete(f.cards, id)
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, id int64) (*Card, error) {
	c, ok := f.cards[id]
	if !ok {
		return nil, ErrCardNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeStore) GetByUserAndQuestion(_ context.Context, userID string, questionID int64) (*Card, error) {
	for _, c := range f.cards {
		if c.UserID == userID && c.QuestionID == questionID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, ErrCardNotFound
}

func (f *fakeStore) ListDue(_ context.Context, userID string, now time.Time, limit, _ int) ([]Card, error) {
	var out []Card
	for _, c := range f.cards {
		if c.UserID == userID && c.Status != StatusSuspended && !c.NextReviewAt.After(now) {
			out = append(out, *c)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) List(_ context.Context, userID string, status Status, cert string, limit, _ int) ([]Card, error) {
	var out []Card
	for _, c := range f.cards {
		if c.UserID != userID {
			continue
		}
		if status != "" && c.Status != status {
			continue
		}
		if cert != "" && c.CertificationCode != cert {
			continue
		}
		out = append(out, *c)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) UpdatedSince(_ context.Context, userID string, since time.Time) ([]Card, error) {
	var out []Card
	for _, c := range f.cards {
		if c.UserID == userID && c.UpdatedAt.After(since) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeStore) Stats(_ context.Context, userID string, now time.Time) (*Stats, error) {
	st := &Stats{CardsByStatus: map[Status]int64{}}
	for _, c := range f.cards {
		if c.UserID != userID {
			continue
		}
		st.TotalCards++
		st.CardsByStatus[c.Status]++
		if c.Status != StatusSuspended && !c.NextReviewAt.After(now) {
			st.DueCards++
		}
		st.TotalReviews += int64(c.TotalReviews)
		st.CorrectReviews += int64(c.CorrectReviews)
	}
	return st, nil
}

func newTestService() (*Service, *fakeStore) {
	store := newFakeStore()
	svc := NewService(store, zap.NewNop())
	svc.now = func() time.Time { return time.Unix(1700000000, 0) }
	return svc, store
}

func TestCreateCardIdempotent(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	card, err := svc.CreateCard(ctx, "u1", CreateRequest{QuestionID: 101, CertificationCode: "ISTQB_CTFL"})
	require.NoError(t, err)
	assert.Equal(t, StatusNew, card.Status)
	assert.InDelta(t, DefaultEaseFactor, card.EaseFactor, 1e-9)
	assert.Equal(t, int64(1), card.SyncVersion)

	again, err := svc.CreateCard(ctx, "u1", CreateRequest{QuestionID: 101})
	require.NoError(t, err)
	assert.Equal(t, card.ID, again.ID)
	assert.Len(t, store.cards, 1)
}

func TestBulkCreateSkipsExisting(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	_, err := svc.CreateCard(ctx, "u1", CreateRequest{QuestionID: 101})
	require.NoError(t, err)

	cards, err := svc.BulkCreate(ctx, "u1", []CreateRequest{
		{QuestionID: 101}, {QuestionID: 102}, {QuestionID: 103},
	})
	require.NoError(t, err)
	assert.Len(t, cards, 3)
	assert.Len(t, store.cards, 3)
}

func TestRecordReview(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	card, err := svc.CreateCard(ctx, "u1", CreateRequest{QuestionID: 101})
	require.NoError(t, err)

	res, err := svc.RecordReview(ctx, "u1", card.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 1, res.NewIntervalDays)
	assert.Equal(t, 1, res.NewRepetitions)
	assert.Equal(t, StatusReview, res.NewStatus)
	assert.Equal(t, 1, res.Streak)

	// The review bumped the sync version.
	assert.Equal(t, int64(2), store.cards[card.ID].SyncVersion)
}

func TestRecordReviewValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	card, err := svc.CreateCard(ctx, "u1", CreateRequest{QuestionID: 101})
	require.NoError(t, err)

	_, err = svc.RecordReview(ctx, "u1", card.ID, 6)
	assert.True(t, apperr.Is(err, apperr.CodeInvalidRequest))

	_, err = svc.RecordReview(ctx, "u1", card.ID, -1)
	assert.True(t, apperr.Is(err, apperr.CodeInvalidRequest))

	_, err = svc.RecordReview(ctx, "u1", 999, 4)
	assert.True(t, apperr.Is(err, apperr.CodeCardNotFound))

	_, err = svc.RecordReview(ctx, "intruder", card.ID, 4)
	assert.True(t, apperr.Is(err, apperr.CodeUnauthorized))
}

func TestUpdateStatus(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	card, err := svc.CreateCard(ctx, "u1", CreateRequest{QuestionID: 101})
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(ctx, "u1", card.ID, StatusSuspended)
	require.NoError(t, err)
	assert.Equal(t, StatusSuspended, updated.Status)
	assert.Equal(t, int64(2), updated.SyncVersion)

	_, err = svc.UpdateStatus(ctx, "u1", card.ID, Status("FROZEN"))
	assert.True(t, apperr.Is(err, apperr.CodeInvalidRequest))

	// Suspended cards never come up as due.
	due, err := svc.GetDueCards(ctx, "u1", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, due)
	assert.Len(t, store.cards, 1)
}

func TestSyncConflictServerWins(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	card, err := svc.CreateCard(ctx, "u1", CreateRequest{QuestionID: 101})
	require.NoError(t, err)
	_, err = svc.RecordReview(ctx, "u1", card.ID, 5)
	require.NoError(t, err)

	server := *store.cards[card.ID]
	require.Equal(t, int64(2), server.SyncVersion)

	// Client pushes stale state at version 1.
	resp, err := svc.Sync(ctx, "u1", []SyncCard{{
		QuestionID:   101,
		EaseFactor:   1.5,
		IntervalDays: 30,
		Repetitions:  9,
		Status:       StatusReview,
		SyncVersion:  1,
	}}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, resp.CardsConflicted)
	assert.Zero(t, resp.CardsUpdated)
	require.Len(t, resp.ConflictCards, 1)
	assert.Equal(t, server.SyncVersion, resp.ConflictCards[0].SyncVersion)

	// The server card is untouched.
	after := store.cards[card.ID]
	assert.Equal(t, server.EaseFactor, after.EaseFactor)
	assert.Equal(t, server.IntervalDays, after.IntervalDays)
	assert.Equal(t, server.Repetitions, after.Repetitions)
}

func TestSyncClientWinsAndCreates(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	card, err := svc.CreateCard(ctx, "u1", CreateRequest{QuestionID: 101})
	require.NoError(t, err)

	next := time.Unix(1700500000, 0).UTC()
	resp, err := svc.Sync(ctx, "u1", []SyncCard{
		{
			QuestionID:   101,
			EaseFactor:   2.8,
			IntervalDays: 12,
			Repetitions:  4,
			Status:       StatusReview,
			NextReviewAt: &next,
			SyncVersion:  5,
		},
		{
			QuestionID:   202,
			EaseFactor:   2.5,
			IntervalDays: 1,
			Status:       StatusLearning,
			SyncVersion:  2,
		},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, resp.CardsUpdated)
	assert.Equal(t, 1, resp.CardsCreated)
	assert.Zero(t, resp.CardsConflicted)

	updated := store.cards[card.ID]
	assert.InDelta(t, 2.8, updated.EaseFactor, 1e-9)
	assert.Equal(t, 12, updated.IntervalDays)
	assert.Equal(t, int64(5), updated.SyncVersion)
	assert.Equal(t, next, updated.NextReviewAt)

	created, err := store.GetByUserAndQuestion(ctx, "u1", 202)
	require.NoError(t, err)
	assert.Equal(t, int64(2), created.SyncVersion)
	assert.Equal(t, StatusLearning, created.Status)
}

func TestSyncReturnsServerChanges(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.CreateCard(ctx, "u1", CreateRequest{QuestionID: 101})
	require.NoError(t, err)

	before := time.Unix(1600000000, 0).UTC()
	resp, err := svc.Sync(ctx, "u1", nil, &before)
	require.NoError(t, err)
	assert.Len(t, resp.ServerCards, 1)
	assert.Equal(t, time.Unix(1700000000, 0).UnixMilli(), resp.SyncTimestamp)

	after := time.Unix(1800000000, 0).UTC()
	resp, err = svc.Sync(ctx, "u1", nil, &after)
	require.NoError(t, err)
	assert.Empty(t, resp.ServerCards)
}

func TestSyncClampsClientValues(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	resp, err := svc.Sync(ctx, "u1", []SyncCard{{
		QuestionID:   303,
		EaseFactor:   0.5,
		IntervalDays: -3,
		Status:       StatusReview,
		SyncVersion:  1,
	}}, nil)
	require.NoError(t, err)
	require.Equal(t, 1, resp.CardsCreated)

	created, err := store.GetByUserAndQuestion(ctx, "u1", 303)
	require.NoError(t, err)
	assert.InDelta(t, MinEaseFactor, created.EaseFactor, 1e-9)
	assert.Equal(t, 1, created.IntervalDays)
}
