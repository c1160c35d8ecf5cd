// Package mastery tracks per-skill proficiency with an exponential
// moving average updated on every answer.
package mastery

import "time"

type Label string

const (
	LabelWeak       Label = "WEAK"
	LabelDeveloping Label = "DEVELOPING"
	LabelProficient Label = "PROFICIENT"
	LabelStrong     Label = "STRONG"
)

// LabelFor buckets a mastery level into a descriptive label.
func LabelFor(mastery float64) Label {
	switch {
	case mastery < 0.4:
		return LabelWeak
	case mastery < 0.6:
		return LabelDeveloping
	case mastery < 0.8:
		return LabelProficient
	default:
		return LabelStrong
	}
}

// EstimatedLevelFor maps overall mastery to a proficiency level name.
func EstimatedLevelFor(overall float64) string {
	switch {
	case overall < 0.3:
		return "BEGINNER"
	case overall < 0.5:
		return "ELEMENTARY"
	case overall < 0.65:
		return "INTERMEDIATE"
	case overall < 0.8:
		return "UPPER_INTERMEDIATE"
	default:
		return "ADVANCED"
	}
}

// SkillMastery is one user's state on one skill.
type SkillMastery struct {
	UserID          string    `json:"userId"`
	SkillID         int64     `json:"skillId"`
	MasteryLevel    float64   `json:"masteryLevel"`
	Confidence      float64   `json:"confidence"`
	Attempts        int       `json:"attempts"`
	CorrectCount    int       `json:"correctCount"`
	Streak          int       `json:"streak"`
	LastPracticedAt time.Time `json:"lastPracticedAt"`
}

// Accuracy is the percentage of correct answers, 0 when unattempted.
func (m SkillMastery) Accuracy() float64 {
	if m.Attempts == 0 {
		return 0
	}
	return float64(m.CorrectCount) * 100 / float64(m.Attempts)
}

func unixTime(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

// UpdateResult reports the mastery movement from one answer.
type UpdateResult struct {
	SkillID       int64   `json:"skillId"`
	MasteryBefore float64 `json:"masteryBefore"`
	MasteryAfter  float64 `json:"masteryAfter"`
	MasteryDelta  float64 `json:"masteryDelta"`
}
