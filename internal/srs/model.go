// Package srs schedules long-term review of questions with an SM-2
// variant. Cards are independent of any session and sync bidirectionally
// with clients using a version-based last-writer-wins protocol.
package srs

import "time"

type Status string

const (
	StatusNew       Status = "NEW"
	StatusLearning  Status = "LEARNING"
	StatusReview    Status = "REVIEW"
	StatusSuspended Status = "SUSPENDED"
)

const (
	DefaultEaseFactor = 2.5
	MinEaseFactor     = 1.3

	initialInterval = 1
	secondInterval  = 6
	historyLimit    = 20
)

// Card is one (user, question) review item.
type Card struct {
	ID                int64      `json:"id"`
	UserID            string     `json:"userId"`
	QuestionID        int64      `json:"questionId"`
	SkillID           *int64     `json:"skillId,omitempty"`
	CertificationCode string     `json:"certificationCode,omitempty"`
	EaseFactor        float64    `json:"easeFactor"`
	IntervalDays      int        `json:"intervalDays"`
	Repetitions       int        `json:"repetitions"`
	QualityHistory    []int      `json:"qualityHistory"`
	Status            Status     `json:"status"`
	TotalReviews      int        `json:"totalReviews"`
	CorrectReviews    int        `json:"correctReviews"`
	LastQuality       *int       `json:"lastQuality,omitempty"`
	Streak            int        `json:"streak"`
	NextReviewAt      time.Time  `json:"nextReviewAt"`
	LastReviewedAt    *time.Time `json:"lastReviewedAt,omitempty"`
	SyncVersion       int64      `json:"syncVersion"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// ReviewResult reports the card state after one review.
type ReviewResult struct {
	CardID          int64     `json:"cardId"`
	NewIntervalDays int       `json:"newIntervalDays"`
	NewEaseFactor   float64   `json:"newEaseFactor"`
	NewRepetitions  int       `json:"newRepetitions"`
	NewStatus       Status    `json:"newStatus"`
	NextReviewAt    time.Time `json:"nextReviewAt"`
	Streak          int       `json:"streak"`
}

// Stats aggregates a user's whole card collection.
type Stats struct {
	TotalCards        int64            `json:"totalCards"`
	DueCards          int64            `json:"dueCards"`
	NewCards          int64            `json:"newCards"`
	LearningCards     int64            `json:"learningCards"`
	ReviewCards       int64            `json:"reviewCards"`
	SuspendedCards    int64            `json:"suspendedCards"`
	TotalReviews      int64            `json:"totalReviews"`
	CorrectReviews    int64            `json:"correctReviews"`
	Accuracy          float64          `json:"accuracy"`
	AverageEaseFactor float64          `json:"averageEaseFactor"`
	CardsByStatus     map[Status]int64 `json:"cardsByStatus"`
}
