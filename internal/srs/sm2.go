package srs

import (
	"math"
	"time"
)

// ApplyReview mutates the card for one review with quality in [0,5].
// quality >= 3 counts as remembered.
func ApplyReview(card *Card, quality int, now time.Time) {
	card.TotalReviews++
	if quality >= 3 {
		card.CorrectReviews++
		card.Streak++
	} else {
		card.Streak = 0
	}
	q := quality
	card.LastQuality = &q
	card.LastReviewedAt = &now

	applySM2(card, quality, now)

	card.QualityHistory = append(card.QualityHistory, quality)
	if len(card.QualityHistory) > historyLimit {
		card.QualityHistory = card.QualityHistory[len(card.QualityHistory)-historyLimit:]
	}
	card.UpdatedAt = now
}

func applySM2(card *Card, quality int, now time.Time) {
	if quality < 3 {
		// Lapse: back to learning.
		card.Repetitions = 0
		card.IntervalDays = initialInterval
		card.Status = StatusLearning
	} else {
		switch card.Repetitions {
		case 0:
			card.IntervalDays = initialInterval
		case 1:
			card.IntervalDays = secondInterval
		default:
			// I(n) = I(n-1) * EF
			card.IntervalDays = int(math.Round(float64(card.IntervalDays) * card.EaseFactor))
		}
		card.Repetitions++
		card.Status = StatusReview
	}
	if card.IntervalDays < 1 {
		card.IntervalDays = 1
	}

	// EF' = EF + (0.1 - (5-q)*(0.08 + (5-q)*0.02)), floored at 1.3
	diff := float64(5 - quality)
	ef := card.EaseFactor + (0.1 - diff*(0.08+diff*0.02))
	card.EaseFactor = math.Max(ef, MinEaseFactor)

	card.NextReviewAt = now.AddDate(0, 0, card.IntervalDays)
}
