// Package diagnostic owns the adaptive assessment state machine: a
// frozen exam plan fixed at start, per-answer counter updates, early
// termination on consecutive wrong answers, and final scoring.
package diagnostic

import "time"

type Status string

const (
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusAbandoned  Status = "ABANDONED"
)

// Completion reasons recorded when a session ends without the full
// budget being answered.
const (
	ReasonAutoTerminated  = "AUTO_TERMINATED"
	ReasonSkillsExhausted = "SKILLS_EXHAUSTED"
	ReasonCompleted       = "COMPLETED"
)

const (
	// globalWrongLimit completes the session on the answer that makes
	// this many consecutive wrong answers overall.
	globalWrongLimit = 3
	// skillWrongLimit excludes a skill from further selection after
	// this many consecutive wrong answers on it. Deliberately lower
	// than the global limit.
	skillWrongLimit = 2
)

// Tracking is the mutable adaptive state carried on an attempt. It is
// replaced wholesale on every answer, in the same transaction as the
// answer insert.
type Tracking struct {
	GlobalConsecutiveWrong   int           `json:"globalConsecutiveWrong"`
	PerSkillConsecutiveWrong map[int64]int `json:"perSkillConsecutiveWrong"`
	TerminatedSkills         []int64       `json:"terminatedSkills"`
	Plan                     []int64       `json:"questionPlan"`
}

func NewTracking(plan []int64) Tracking {
	return Tracking{PerSkillConsecutiveWrong: map[int64]int{}, Plan: plan}
}

func (t *Tracking) IsTerminated(skillID int64) bool {
	for _, id := range t.TerminatedSkills {
		if id == skillID {
			return true
		}
	}
	return false
}

// RecordCorrect resets the global counter and the skill's counter.
func (t *Tracking) RecordCorrect(skillID int64) {
	t.GlobalConsecutiveWrong = 0
	if skillID != 0 {
		if t.PerSkillConsecutiveWrong == nil {
			t.PerSkillConsecutiveWrong = map[int64]int{}
		}
		t.PerSkillConsecutiveWrong[skillID] = 0
	}
}

// RecordWrong bumps both counters and terminates the skill when it
// reaches the skill limit. Reports whether the skill was terminated by
// this answer.
func (t *Tracking) RecordWrong(skillID int64) bool {
	t.GlobalConsecutiveWrong++
	if skillID == 0 {
		return false
	}
	if t.PerSkillConsecutiveWrong == nil {
		t.PerSkillConsecutiveWrong = map[int64]int{}
	}
	t.PerSkillConsecutiveWrong[skillID]++
	if t.PerSkillConsecutiveWrong[skillID] >= skillWrongLimit && !t.IsTerminated(skillID) {
		t.TerminatedSkills = append(t.TerminatedSkills, skillID)
		return true
	}
	return false
}

// ShouldAutoTerminate reports whether the global wrong run has reached
// the session-ending limit.
func (t *Tracking) ShouldAutoTerminate() bool {
	return t.GlobalConsecutiveWrong >= globalWrongLimit
}

// Attempt is one assessment session.
type Attempt struct {
	ID                string     `json:"id"`
	UserID            string     `json:"userId"`
	SessionID         string     `json:"sessionId"`
	TestType          string     `json:"testType,omitempty"`
	Status            Status     `json:"status"`
	TotalQuestions    int        `json:"totalQuestions"`
	AnsweredQuestions int        `json:"answeredQuestions"`
	StartTime         time.Time  `json:"startTime"`
	EndTime           *time.Time `json:"endTime,omitempty"`
	TimeSpentSeconds  int        `json:"timeSpentSeconds"`
	RawScore          *float64   `json:"rawScore,omitempty"`
	EstimatedLevel    string     `json:"estimatedLevel,omitempty"`
	EstimatedScoreMin int        `json:"estimatedScoreMin,omitempty"`
	EstimatedScoreMax int        `json:"estimatedScoreMax,omitempty"`
	Mode              string     `json:"mode,omitempty"`
	CertificationCode string     `json:"certificationCode,omitempty"`
	CareerPath        string     `json:"careerPath,omitempty"`
	Tracking          Tracking   `json:"-"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// Answer is one submitted answer, append-only per (attempt, question).
type Answer struct {
	ID               int64     `json:"id"`
	AttemptID        string    `json:"attemptId"`
	QuestionID       int64     `json:"questionId"`
	SkillID          *int64    `json:"skillId,omitempty"`
	QuestionOrder    int       `json:"questionOrder"`
	UserAnswer       string    `json:"userAnswer"`
	IsCorrect        bool      `json:"isCorrect"`
	TimeSpentSeconds int       `json:"timeSpentSeconds"`
	AnsweredAt       time.Time `json:"answeredAt"`
}

// Scope restricts which skills and questions a session draws from.
// Precedence: certification code, then career path, then category
// list, then everything.
type Scope struct {
	CertificationCode string   `json:"certificationCode,omitempty"`
	CareerPath        string   `json:"careerPath,omitempty"`
	Categories        []string `json:"categories,omitempty"`
	TestType          string   `json:"testType,omitempty"`
}

// Confidence is the advisory adaptive snapshot returned with every
// start, submit, and status call. It never gates termination on its
// own.
type Confidence struct {
	CurrentConfidence float64 `json:"currentConfidence"`
	AnsweredCount     int     `json:"answeredCount"`
	CorrectCount      int     `json:"correctCount"`
	CanTerminateEarly bool    `json:"canTerminateEarly"`
}

func snapshotConfidence(correct, answered, total int) Confidence {
	c := Confidence{AnsweredCount: answered, CorrectCount: correct}
	if answered > 0 {
		c.CurrentConfidence = float64(correct) / float64(answered)
	}
	c.CanTerminateEarly = (c.CurrentConfidence >= 0.80 && answered >= 5) || answered >= total
	return c
}
