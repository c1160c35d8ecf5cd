package readiness

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPredictedScore(t *testing.T) {
	assert.Equal(t, 10, predictedScore(0))
	assert.Equal(t, 990, predictedScore(1))
	// 10 + 0.5*980 = 500, already a multiple of 5.
	assert.Equal(t, 500, predictedScore(0.5))
	// 10 + 0.73*980 = 725.4 -> 725.
	assert.Equal(t, 725, predictedScore(0.73))

	// Rounds down to the nearest 5 and stays within the scale.
	for m := 0.0; m <= 1.0; m += 0.01 {
		score := predictedScore(m)
		assert.Zero(t, score%5)
		assert.GreaterOrEqual(t, score, 10)
		assert.LessOrEqual(t, score, 990)
	}
}

func TestPassProbability(t *testing.T) {
	// At the target the odds are even.
	assert.InDelta(t, 0.5, passProbability(700, 700), 1e-9)

	above := passProbability(800, 700)
	below := passProbability(600, 700)
	assert.Greater(t, above, 0.5)
	assert.Less(t, below, 0.5)
	// The curve is symmetric around the target.
	assert.InDelta(t, 1.0, above+below, 1e-9)

	// Monotone in the predicted score.
	prev := 0.0
	for score := 10; score <= 990; score += 10 {
		p := passProbability(score, 700)
		assert.Greater(t, p, prev)
		assert.Less(t, p, 1.0)
		prev = p
	}
}

func TestEstimatedDaysToReady(t *testing.T) {
	assert.Zero(t, estimatedDaysToReady(0, 0.5))
	assert.Zero(t, estimatedDaysToReady(-50, 0.5))

	// gap 200 at mastery 0.5: ceil(200*0.5*1.5/10) = 15.
	assert.Equal(t, 15, estimatedDaysToReady(200, 0.5))
	// gap 5 still counts as at least one day.
	assert.Equal(t, 1, estimatedDaysToReady(5, 0))

	// Higher mastery slows the remaining climb.
	assert.Greater(t, estimatedDaysToReady(200, 0.9), estimatedDaysToReady(200, 0.1))
}
