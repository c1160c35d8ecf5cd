// Package practice runs open-ended practice sessions. Unlike a
// diagnostic there is no frozen plan: questions are drawn from a
// rolling queue of skills, weakest first, and a skill drops out of the
// queue after repeated consecutive misses.
package practice

import "time"

type Status string

const (
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusAbandoned  Status = "ABANDONED"
)

type SessionType string

const (
	TypeWeakSkills SessionType = "WEAK_SKILLS"
	TypeSkill      SessionType = "SKILL"
	TypeMixed      SessionType = "MIXED"
)

// skillWrongLimit drops a skill from the rolling queue after this many
// consecutive wrong answers on it.
const skillWrongLimit = 2

// Tracking is the session's rolling state, replaced wholesale on each
// answer.
type Tracking struct {
	SkillQueue               []int64       `json:"skillQueue"`
	PerSkillConsecutiveWrong map[int64]int `json:"perSkillConsecutiveWrong"`
	TerminatedSkills         []int64       `json:"terminatedSkills"`
	AskedQuestions           []int64       `json:"askedQuestions"`
}

func NewTracking(queue []int64) Tracking {
	return Tracking{SkillQueue: queue, PerSkillConsecutiveWrong: map[int64]int{}}
}

func (t *Tracking) IsTerminated(skillID int64) bool {
	for _, id := range t.TerminatedSkills {
		if id == skillID {
			return true
		}
	}
	return false
}

func (t *Tracking) WasAsked(questionID int64) bool {
	for _, id := range t.AskedQuestions {
		if id == questionID {
			return true
		}
	}
	return false
}

// Rotate moves the queue head to the back so skills take turns.
func (t *Tracking) Rotate() {
	if len(t.SkillQueue) > 1 {
		t.SkillQueue = append(t.SkillQueue[1:], t.SkillQueue[0])
	}
}

func (t *Tracking) RecordCorrect(skillID int64) {
	if skillID != 0 {
		if t.PerSkillConsecutiveWrong == nil {
			t.PerSkillConsecutiveWrong = map[int64]int{}
		}
		t.PerSkillConsecutiveWrong[skillID] = 0
	}
}

// RecordWrong reports whether the skill just dropped out of the queue.
func (t *Tracking) RecordWrong(skillID int64) bool {
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

// Session is one practice run.
type Session struct {
	ID                string      `json:"id"`
	UserID            string      `json:"userId"`
	SessionType       SessionType `json:"sessionType"`
	TargetSkillID     *int64      `json:"targetSkillId,omitempty"`
	CertificationCode string      `json:"certificationCode,omitempty"`
	Status            Status      `json:"status"`
	TotalQuestions    int         `json:"totalQuestions"`
	AnsweredQuestions int         `json:"answeredQuestions"`
	CorrectCount      int         `json:"correctCount"`
	Tracking          Tracking    `json:"-"`
	StartedAt         time.Time   `json:"startedAt"`
	EndedAt           *time.Time  `json:"endedAt,omitempty"`
}

// Accuracy over the answered questions, 0 when none.
func (s Session) Accuracy() float64 {
	if s.AnsweredQuestions == 0 {
		return 0
	}
	return float64(s.CorrectCount) / float64(s.AnsweredQuestions)
}
