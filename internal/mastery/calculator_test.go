package mastery

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewMasteryBounds(t *testing.T) {
	calc := NewCalculator(0.3, 0.5)
	for _, current := range []float64{0, 0.25, 0.5, 0.75, 1} {
		for _, correct := range []bool{true, false} {
			for difficulty := 1; difficulty <= 5; difficulty++ {
				for _, attempts := range []int{0, 5, 20, 100} {
					next := calc.NewMastery(current, correct, difficulty, attempts)
					assert.GreaterOrEqual(t, next, 0.0)
					assert.LessOrEqual(t, next, 1.0)
				}
			}
		}
	}
}

func TestNewMasteryDirection(t *testing.T) {
	calc := NewCalculator(0.3, 0.5)

	// From the midpoint, correct answers move up and wrong answers down.
	up := calc.NewMastery(0.5, true, 3, 10)
	assert.Greater(t, up, 0.5)

	down := calc.NewMastery(0.5, false, 3, 10)
	assert.Less(t, down, 0.5)

	// A harder question moves mastery further on a correct answer.
	easy := calc.NewMastery(0.5, true, 1, 10)
	hard := calc.NewMastery(0.5, true, 5, 10)
	assert.Greater(t, hard, easy)
}

func TestAdaptiveAlphaDecay(t *testing.T) {
	calc := NewCalculator(0.3, 0.5)

	assert.InDelta(t, 0.5, calc.adaptiveAlpha(0), 1e-9)
	assert.InDelta(t, 0.4, calc.adaptiveAlpha(10), 1e-9)
	assert.InDelta(t, 0.3, calc.adaptiveAlpha(20), 1e-9)
	assert.InDelta(t, 0.3, calc.adaptiveAlpha(500), 1e-9)

	// Monotonically non-increasing.
	prev := calc.adaptiveAlpha(0)
	for i := 1; i <= 25; i++ {
		a := calc.adaptiveAlpha(i)
		assert.LessOrEqual(t, a, prev)
		prev = a
	}
}

func TestPerformance(t *testing.T) {
	// Correct: 0.7 at weight 1.0, up to 1.0 at weight 2.0.
	assert.InDelta(t, 0.7, performance(true, 1), 1e-9)
	assert.InDelta(t, 0.85, performance(true, 3), 1e-9)
	assert.InDelta(t, 1.0, performance(true, 5), 1e-9)

	// Wrong: harsher penalty for easier questions.
	assert.InDelta(t, 0.15, performance(false, 1), 1e-9)
	assert.InDelta(t, 0.225, performance(false, 3), 1e-9)
	assert.InDelta(t, 0.3, performance(false, 5), 1e-9)
}

func TestDifficultyWeight(t *testing.T) {
	assert.InDelta(t, 1.0, DifficultyWeight(1), 1e-9)
	assert.InDelta(t, 1.5, DifficultyWeight(3), 1e-9)
	assert.InDelta(t, 2.0, DifficultyWeight(5), 1e-9)

	// Out-of-range difficulties clamp.
	assert.InDelta(t, 1.0, DifficultyWeight(0), 1e-9)
	assert.InDelta(t, 2.0, DifficultyWeight(9), 1e-9)
}

func TestConfidenceGrowth(t *testing.T) {
	assert.InDelta(t, 0.1, Confidence(0), 1e-9)

	prev := Confidence(0)
	for i := 1; i <= 200; i++ {
		c := Confidence(i)
		assert.Greater(t, c, prev-1e-12)
		assert.LessOrEqual(t, c, 0.95)
		prev = c
	}
	assert.InDelta(t, 0.95, Confidence(100000), 0.01)
}

func TestTargetDifficulty(t *testing.T) {
	tests := []struct {
		mastery float64
		want    int
	}{
		{0, 1}, {0.24, 1}, {0.25, 2}, {0.39, 2},
		{0.4, 3}, {0.59, 3}, {0.6, 4}, {0.79, 4},
		{0.8, 5}, {1, 5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TargetDifficulty(tt.mastery), "mastery=%v", tt.mastery)
	}
}

func TestAverages(t *testing.T) {
	calc := NewCalculator(0.3, 0.5)

	assert.InDelta(t, 0.5, calc.SimpleAverage(nil), 1e-9)
	assert.InDelta(t, 0.6, calc.SimpleAverage([]float64{0.4, 0.8}), 1e-9)

	assert.InDelta(t, 0.5, calc.WeightedAverage(nil, nil), 1e-9)
	assert.InDelta(t, 0.5, calc.WeightedAverage([]float64{0.2}, []int{0}), 1e-9)
	got := calc.WeightedAverage([]float64{0.2, 0.8}, []int{1, 3})
	assert.InDelta(t, 0.65, got, 1e-9)

	// Mismatched lengths fall back rather than panic.
	assert.InDelta(t, 0.5, calc.WeightedAverage([]float64{0.2, 0.8}, []int{1}), 1e-9)
}

func TestLabelsAndLevels(t *testing.T) {
	assert.Equal(t, LabelWeak, LabelFor(0.39))
	assert.Equal(t, LabelDeveloping, LabelFor(0.4))
	assert.Equal(t, LabelProficient, LabelFor(0.6))
	assert.Equal(t, LabelStrong, LabelFor(0.8))

	assert.Equal(t, "BEGINNER", EstimatedLevelFor(0.29))
	assert.Equal(t, "ELEMENTARY", EstimatedLevelFor(0.3))
	assert.Equal(t, "INTERMEDIATE", EstimatedLevelFor(0.5))
	assert.Equal(t, "UPPER_INTERMEDIATE", EstimatedLevelFor(0.65))
	assert.Equal(t, "ADVANCED", EstimatedLevelFor(0.8))
}

func TestAccuracy(t *testing.T) {
	m := SkillMastery{}
	assert.Zero(t, m.Accuracy())

	m = SkillMastery{Attempts: 8, CorrectCount: 6}
	assert.InDelta(t, 75, m.Accuracy(), 1e-9)
}

func TestRepeatedCorrectConverges(t *testing.T) {
	calc := NewCalculator(0.3, 0.5)
	m := 0.5
	for i := 0; i < 50; i++ {
		m = calc.NewMastery(m, true, 3, i)
	}
	// Converges toward the medium-difficulty performance score, 0.85.
	assert.InDelta(t, 0.85, m, 0.01)
	assert.False(t, math.IsNaN(m))
}
