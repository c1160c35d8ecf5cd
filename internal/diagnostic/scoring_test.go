package diagnostic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateSelections(t *testing.T) {
	key := []bool{true, false, true, false}

	tests := []struct {
		name       string
		selections []bool
		correct    bool
		mismatch   bool
	}{
		{"exact match", []bool{true, false, true, false}, true, false},
		{"missing one correct", []bool{true, false, false, false}, false, false},
		{"extra selection", []bool{true, true, true, false}, false, false},
		{"all selected", []bool{true, true, true, true}, false, false},
		{"none selected", []bool{false, false, false, false}, false, false},
		{"short vector covering all correct positions", []bool{true, false, true}, true, true},
		{"short vector, wrong within range", []bool{false, false, true}, false, true},
		{"short vector missing a correct position", []bool{true, false}, false, true},
		{"extra trailing positions ignored", []bool{true, false, true, false, true}, true, true},
		{"empty vector", []bool{}, false, true},
		{"nil vector", nil, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			correct, mismatch := evaluateSelections(tt.selections, key)
			assert.Equal(t, tt.correct, correct)
			assert.Equal(t, tt.mismatch, mismatch)
		})
	}
}

func TestLevelForScore(t *testing.T) {
	tests := []struct {
		raw   float64
		level string
	}{
		{100, "ADVANCED"},
		{90, "ADVANCED"},
		{89.9, "UPPER_INTERMEDIATE"},
		{75, "UPPER_INTERMEDIATE"},
		{74.9, "INTERMEDIATE"},
		{60, "INTERMEDIATE"},
		{59.9, "PRE_INTERMEDIATE"},
		{45, "PRE_INTERMEDIATE"},
		{44.9, "ELEMENTARY"},
		{30, "ELEMENTARY"},
		{29.9, "BEGINNER"},
		{0, "BEGINNER"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.level, LevelForScore(tt.raw), "raw=%v", tt.raw)
	}
}

func TestScoreBand(t *testing.T) {
	min, max := ScoreBand(0)
	assert.Equal(t, 10, min)
	assert.Equal(t, 50, max)

	min, max = ScoreBand(100)
	assert.Equal(t, 850, min)
	assert.Equal(t, 990, max)

	min, max = ScoreBand(50)
	assert.Equal(t, 400, min)
	assert.Equal(t, 550, max)

	// Band is always ordered.
	for raw := 0.0; raw <= 100; raw += 5 {
		lo, hi := ScoreBand(raw)
		assert.LessOrEqual(t, lo, hi, "raw=%v", raw)
		assert.GreaterOrEqual(t, lo, 10)
		assert.LessOrEqual(t, hi, 990)
	}
}

func TestBuildRecommendationsWeakestCategories(t *testing.T) {
	categories := []CategoryScore{
		{Category: "TEST_DESIGN", Total: 4, Correct: 1, Accuracy: 0.25},
		{Category: "TEST_MANAGEMENT", Total: 4, Correct: 4, Accuracy: 1.0},
		{Category: "STATIC_TESTING", Total: 5, Correct: 3, Accuracy: 0.6},
	}

	recs := buildRecommendations(categories, 55, "PRE_INTERMEDIATE")
	assert.LessOrEqual(t, len(recs), 5)
	assert.Contains(t, recs[0], "test design")
	assert.Contains(t, recs[1], "static testing")
}

func TestBuildRecommendationsCap(t *testing.T) {
	categories := []CategoryScore{
		{Category: "A", Accuracy: 0.1, Total: 2},
		{Category: "B", Accuracy: 0.2, Total: 2},
	}
	recs := buildRecommendations(categories, 20, "BEGINNER")
	assert.Len(t, recs, 5)
}

func TestBuildRecommendationsHighScore(t *testing.T) {
	recs := buildRecommendations(nil, 95, "ADVANCED")
	assert.Len(t, recs, 3)
	assert.Contains(t, recs[2], "exam-ready")
}
