package srs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCard() *Card {
	now := time.Unix(1700000000, 0).UTC()
	return &Card{
		ID:           1,
		UserID:       "u1",
		QuestionID:   101,
		EaseFactor:   DefaultEaseFactor,
		IntervalDays: initialInterval,
		Status:       StatusNew,
		NextReviewAt: now,
		SyncVersion:  1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestReviewIntervalProgression(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	card := newCard()

	ApplyReview(card, 5, now)
	assert.Equal(t, 1, card.IntervalDays)
	assert.Equal(t, 1, card.Repetitions)
	assert.Equal(t, StatusReview, card.Status)
	assert.Equal(t, now.AddDate(0, 0, 1), card.NextReviewAt)
	// q=5 bumps the ease factor.
	assert.InDelta(t, 2.6, card.EaseFactor, 1e-9)

	ApplyReview(card, 5, now)
	assert.Equal(t, 6, card.IntervalDays)
	assert.Equal(t, 2, card.Repetitions)
	efAfterSecond := card.EaseFactor
	assert.InDelta(t, 2.7, efAfterSecond, 1e-9)

	ApplyReview(card, 5, now)
	// round(6 * 2.7) = 16.
	assert.Equal(t, 16, card.IntervalDays)
	assert.Equal(t, 3, card.Repetitions)
	assert.GreaterOrEqual(t, card.EaseFactor, efAfterSecond)
	assert.Equal(t, now.AddDate(0, 0, 16), card.NextReviewAt)
	assert.Equal(t, 3, card.Streak)
}

func TestReviewLapseResets(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	card := newCard()

	ApplyReview(card, 4, now)
	ApplyReview(card, 4, now)
	require.Equal(t, 2, card.Repetitions)
	require.Equal(t, 6, card.IntervalDays)
	efBefore := card.EaseFactor

	ApplyReview(card, 2, now)
	assert.Equal(t, 0, card.Repetitions)
	assert.Equal(t, 1, card.IntervalDays)
	assert.Equal(t, StatusLearning, card.Status)
	assert.Equal(t, 0, card.Streak)
	// The lapse still lowers the ease factor.
	assert.Less(t, card.EaseFactor, efBefore)
	assert.Equal(t, now.AddDate(0, 0, 1), card.NextReviewAt)

	// Recovery restarts the ladder at 1, then 6.
	ApplyReview(card, 4, now)
	assert.Equal(t, 1, card.IntervalDays)
	ApplyReview(card, 4, now)
	assert.Equal(t, 6, card.IntervalDays)
}

func TestEaseFactorFloor(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	card := newCard()

	for i := 0; i < 10; i++ {
		ApplyReview(card, 0, now)
	}
	assert.InDelta(t, MinEaseFactor, card.EaseFactor, 1e-9)
}

func TestQualityHistoryTrimmed(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	card := newCard()

	for i := 0; i < 25; i++ {
		ApplyReview(card, 4, now)
	}
	assert.Len(t, card.QualityHistory, historyLimit)
	assert.Equal(t, 25, card.TotalReviews)
	assert.Equal(t, 25, card.CorrectReviews)
}

func TestReviewCounters(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	card := newCard()

	ApplyReview(card, 3, now)
	ApplyReview(card, 1, now)
	ApplyReview(card, 4, now)

	assert.Equal(t, 3, card.TotalReviews)
	assert.Equal(t, 2, card.CorrectReviews)
	assert.Equal(t, 1, card.Streak)
	require.NotNil(t, card.LastQuality)
	assert.Equal(t, 4, *card.LastQuality)
	require.NotNil(t, card.LastReviewedAt)
	assert.Equal(t, []int{3, 1, 4}, card.QualityHistory)
}
