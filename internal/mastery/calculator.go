package mastery

import "math"

const (
	maxAlpha      = 0.5
	decayAttempts = 20
	maxConfidence = 0.95
)

// Calculator applies the EMA update. Alpha starts high for fast
// convergence on new skills and decays linearly to BaseAlpha over the
// first 20 attempts.
type Calculator struct {
	BaseAlpha    float64
	InitialLevel float64
}

func NewCalculator(baseAlpha, initialLevel float64) *Calculator {
	return &Calculator{BaseAlpha: baseAlpha, InitialLevel: initialLevel}
}

// NewMastery computes the post-answer mastery level.
// newMastery = alpha*performance + (1-alpha)*current, clamped to [0,1].
func (c *Calculator) NewMastery(current float64, isCorrect bool, difficulty, totalAttempts int) float64 {
	alpha := c.adaptiveAlpha(totalAttempts)
	perf := performance(isCorrect, difficulty)
	next := alpha*perf + (1-alpha)*current
	return math.Max(0, math.Min(1, next))
}

func (c *Calculator) adaptiveAlpha(totalAttempts int) float64 {
	if totalAttempts >= decayAttempts {
		return c.BaseAlpha
	}
	ratio := float64(totalAttempts) / decayAttempts
	return maxAlpha - (maxAlpha-c.BaseAlpha)*ratio
}

// performance scores an answer by correctness and difficulty weight.
// Correct answers earn more for harder questions; wrong answers lose
// more for easier ones.
func performance(isCorrect bool, difficulty int) float64 {
	w := DifficultyWeight(difficulty)
	if isCorrect {
		return 0.7 + (w-1.0)*0.3
	}
	return math.Max(0, 0.3-(2.0-w)*0.15)
}

// DifficultyWeight maps levels 1..5 onto [1.0, 2.0].
func DifficultyWeight(difficulty int) float64 {
	if difficulty < 1 {
		difficulty = 1
	}
	if difficulty > 5 {
		difficulty = 5
	}
	return 1.0 + float64(difficulty-1)*0.25
}

// Confidence grows logarithmically with attempts, capped at 0.95.
func Confidence(attempts int) float64 {
	conf := 0.1 + 0.85*(1-1.0/(1+math.Log(1+float64(attempts))))
	return math.Min(maxConfidence, conf)
}

// TargetDifficulty picks a difficulty that keeps the learner challenged
// without overwhelming them.
func TargetDifficulty(mastery float64) int {
	switch {
	case mastery < 0.25:
		return 1
	case mastery < 0.4:
		return 2
	case mastery < 0.6:
		return 3
	case mastery < 0.8:
		return 4
	default:
		return 5
	}
}

// WeightedAverage averages masteries by weight, falling back to the
// initial level when nothing carries weight.
func (c *Calculator) WeightedAverage(masteries []float64, weights []int) float64 {
	if len(masteries) == 0 || len(masteries) != len(weights) {
		return c.InitialLevel
	}
	var sum, total float64
	for i, m := range masteries {
		if weights[i] > 0 {
			sum += m * float64(weights[i])
			total += float64(weights[i])
		}
	}
	if total == 0 {
		return c.InitialLevel
	}
	return sum / total
}

// SimpleAverage averages masteries, falling back to the initial level.
func (c *Calculator) SimpleAverage(masteries []float64) float64 {
	if len(masteries) == 0 {
		return c.InitialLevel
	}
	var sum float64
	for _, m := range masteries {
		sum += m
	}
	return sum / float64(len(masteries))
}
