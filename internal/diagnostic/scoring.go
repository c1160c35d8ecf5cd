package diagnostic

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// evaluateSelections scores a positional selected/not-selected vector
// against the answer key. Correct means every correct position is
// selected and no incorrect position is. A length mismatch is tolerated
// and the caller logs it as a data-quality signal, but positions the
// vector leaves out count as unselected: a vector too short to reach a
// correct position is wrong, and an empty vector is always wrong.
func evaluateSelections(selections, key []bool) (correct, sizeMismatch bool) {
	sizeMismatch = len(selections) != len(key)
	if len(selections) == 0 {
		return false, sizeMismatch
	}
	for i := range key {
		selected := i < len(selections) && selections[i]
		if selected != key[i] {
			return false, sizeMismatch
		}
	}
	return true, sizeMismatch
}

// LevelForScore maps a 0-100 raw score onto the proficiency ladder.
func LevelForScore(raw float64) string {
	switch {
	case raw >= 90:
		return "ADVANCED"
	case raw >= 75:
		return "UPPER_INTERMEDIATE"
	case raw >= 60:
		return "INTERMEDIATE"
	case raw >= 45:
		return "PRE_INTERMEDIATE"
	case raw >= 30:
		return "ELEMENTARY"
	default:
		return "BEGINNER"
	}
}

// ScoreBand estimates a scaled score range from the raw percentage.
func ScoreBand(raw float64) (min, max int) {
	min = int(math.Round(raw*9 - 50))
	if min < 10 {
		min = 10
	}
	max = int(math.Round(raw*10 + 50))
	if max > 990 {
		max = 990
	}
	return min, max
}

// CategoryScore is one category's accuracy over the answered questions.
type CategoryScore struct {
	Category string  `json:"category"`
	Total    int     `json:"total"`
	Correct  int     `json:"correct"`
	Accuracy float64 `json:"accuracy"`
}

// buildRecommendations derives up to 5 study suggestions from the two
// weakest categories, the estimated level, and the raw score.
func buildRecommendations(categories []CategoryScore, rawScore float64, level string) []string {
	var recs []string

	sorted := append([]CategoryScore(nil), categories...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Accuracy < sorted[j].Accuracy })

	for i := 0; i < len(sorted) && i < 2; i++ {
		c := sorted[i]
		name := strings.ToLower(strings.ReplaceAll(c.Category, "_", " "))
		if c.Accuracy < 0.5 {
			recs = append(recs, fmt.Sprintf(
				"Focus on improving your %s skills. Practice with targeted exercises in this area.", name))
		} else if c.Accuracy < 0.7 {
			recs = append(recs, fmt.Sprintf(
				"Your %s skills need some work. Regular practice will help strengthen this area.", name))
		}
	}

	switch level {
	case "BEGINNER":
		recs = append(recs,
			"Start with the fundamentals of the syllabus before attempting practice exams.",
			"Schedule short daily practice sessions to build a study habit.")
	case "ELEMENTARY":
		recs = append(recs,
			"Work through the core terminology and concepts of each syllabus area.",
			"Review the explanations of every question you get wrong.")
	case "PRE_INTERMEDIATE":
		recs = append(recs,
			"Broaden your coverage across syllabus areas instead of repeating familiar topics.",
			"Try timed quizzes to get comfortable with exam pacing.")
	case "INTERMEDIATE":
		recs = append(recs,
			"Challenge yourself with scenario-based questions and case studies.",
			"Practice full-length mock exams to build stamina and confidence.")
	case "UPPER_INTERMEDIATE":
		recs = append(recs,
			"Focus on the advanced topics and edge cases examiners favor.",
			"Drill your weakest areas under exam-time pressure.")
	case "ADVANCED":
		recs = append(recs,
			"Maintain your level with regular spaced review of past material.",
			"Focus on the nuanced distinctions that separate near-miss answers.")
	}

	if rawScore < 40 {
		recs = append(recs, "Consider a structured preparation course for faster progress.")
	} else if rawScore >= 80 {
		recs = append(recs, "Great job! You are close to exam-ready; keep sharpening the details.")
	}

	if len(recs) > 5 {
		recs = recs[:5]
	}
	return recs
}
