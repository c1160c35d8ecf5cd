package practice

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/skill-pulse/skillpulse-engine/internal/apperr"
	"github.com/skill-pulse/skillpulse-engine/internal/catalog"
	"github.com/skill-pulse/skillpulse-engine/internal/mastery"
)

// MasterySource is the slice of the mastery engine practice depends on.
type MasterySource interface {
	UpdateMastery(ctx context.Context, userID string, skillID int64, isCorrect bool, difficulty int) (*mastery.UpdateResult, error)
	WeakSkills(ctx context.Context, userID string, limit int) ([]mastery.WeakSkill, error)
}

type Service struct {
	store   Store
	catalog catalog.Store
	mastery MasterySource
	log     *zap.Logger
	rng     *rand.Rand

	now   func() time.Time
	newID func() string
}

func NewService(store Store, cat catalog.Store, ms MasterySource, rng *rand.Rand, log *zap.Logger) *Service {
	return &Service{
		store:   store,
		catalog: cat,
		mastery: ms,
		log:     log,
		rng:     rng,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

type StartRequest struct {
	SessionType       SessionType `json:"sessionType"`
	SkillID           *int64      `json:"skillId,omitempty"`
	CertificationCode string      `json:"certificationCode,omitempty"`
	QuestionCount     int         `json:"questionCount"`
}

type StartResult struct {
	SessionID      string                  `json:"sessionId"`
	SessionType    SessionType             `json:"sessionType"`
	TotalQuestions int                     `json:"totalQuestions"`
	Question       *catalog.PublicQuestion `json:"question,omitempty"`
}

// Start opens a practice session and serves the first question.
func (s *Service) Start(ctx context.Context, userID string, req StartRequest) (*StartResult, error) {
	if req.QuestionCount <= 0 {
		req.QuestionCount = 10
	}
	if req.SessionType == "" {
		req.SessionType = TypeMixed
	}

	if active, err := s.store.GetActiveByUser(ctx, userID); err == nil {
		return nil, apperr.New(apperr.CodeAlreadyInProgress, "a practice session is already in progress").
			WithMeta("activeSessionId", active.ID)
	} else if !errors.Is(err, ErrSessionNotFound) {
		return nil, err
	}

	queue, err := s.buildSkillQueue(ctx, userID, req)
	if err != nil {
		return nil, err
	}
	if len(queue) == 0 {
		return nil, apperr.New(apperr.CodeNoQuestionsAvailable, "no skills available for practice")
	}

	sess := &Session{
		ID:                s.newID(),
		UserID:            userID,
		SessionType:       req.SessionType,
		TargetSkillID:     req.SkillID,
		CertificationCode: req.CertificationCode,
		Status:            StatusInProgress,
		TotalQuestions:    req.QuestionCount,
		Tracking:          NewTracking(queue),
		StartedAt:         s.now().UTC(),
	}

	question, _, err := s.pickNext(ctx, sess)
	if err != nil {
		return nil, err
	}
	if question == nil {
		return nil, apperr.New(apperr.CodeNoQuestionsAvailable, "no questions available for practice")
	}

	if err := s.store.Create(ctx, sess); err != nil {
		return nil, err
	}
	s.log.Info("practice started",
		zap.String("user", userID),
		zap.String("session", sess.ID),
		zap.String("type", string(sess.SessionType)))

	return &StartResult{
		SessionID:      sess.ID,
		SessionType:    sess.SessionType,
		TotalQuestions: sess.TotalQuestions,
		Question:       question,
	}, nil
}

// buildSkillQueue orders the skills a session rotates through. Weak
// skills first so the most fragile areas get the most reps.
func (s *Service) buildSkillQueue(ctx context.Context, userID string, req StartRequest) ([]int64, error) {
	if req.SessionType == TypeSkill {
		if req.SkillID == nil {
			return nil, apperr.New(apperr.CodeInvalidRequest, "skillId is required for a skill session")
		}
		return []int64{*req.SkillID}, nil
	}

	if req.SessionType == TypeWeakSkills {
		weak, err := s.mastery.WeakSkills(ctx, userID, 5)
		if err != nil {
			return nil, err
		}
		if len(weak) > 0 {
			queue := make([]int64, len(weak))
			for i, w := range weak {
				queue[i] = w.SkillID
			}
			return queue, nil
		}
		// No weak skills yet: fall through to the mixed pool.
	}

	var skills []catalog.Skill
	var err error
	if req.CertificationCode != "" {
		skills, err = s.catalog.SkillsForCertification(ctx, req.CertificationCode)
	} else {
		skills, err = s.catalog.AllActiveSkills(ctx)
	}
	if err != nil {
		return nil, err
	}
	queue := make([]int64, len(skills))
	for i, sk := range skills {
		queue[i] = sk.ID
	}
	s.rng.Shuffle(len(queue), func(i, j int) { queue[i], queue[j] = queue[j], queue[i] })
	return queue, nil
}

// pickNext draws a question from the head of the rolling queue,
// dropping skills that are terminated or out of fresh questions.
// Returns nil when the queue is exhausted.
func (s *Service) pickNext(ctx context.Context, sess *Session) (*catalog.PublicQuestion, int64, error) {
	t := &sess.Tracking
	for len(t.SkillQueue) > 0 {
		skillID := t.SkillQueue[0]
		if t.IsTerminated(skillID) {
			t.SkillQueue = t.SkillQueue[1:]
			continue
		}
		ids, err := s.catalog.QuestionIDsForSkill(ctx, skillID)
		if err != nil {
			return nil, 0, err
		}
		var fresh []int64
		for _, id := range ids {
			if !t.WasAsked(id) {
				fresh = append(fresh, id)
			}
		}
		if len(fresh) == 0 {
			t.SkillQueue = t.SkillQueue[1:]
			continue
		}
		qid := fresh[s.rng.Intn(len(fresh))]
		q, err := s.catalog.QuestionByID(ctx, qid)
		if err != nil {
			return nil, 0, err
		}
		pub := q.Public()
		return &pub, skillID, nil
	}
	return nil, 0, nil
}

type SubmitResult struct {
	SessionID         string                  `json:"sessionId"`
	QuestionID        int64                   `json:"questionId"`
	IsCorrect         bool                    `json:"isCorrect"`
	AnsweredQuestions int                     `json:"answeredQuestions"`
	TotalQuestions    int                     `json:"totalQuestions"`
	CorrectCount      int                     `json:"correctCount"`
	Completed         bool                    `json:"completed"`
	NextQuestion      *catalog.PublicQuestion `json:"nextQuestion,omitempty"`
	Mastery           *mastery.UpdateResult   `json:"mastery,omitempty"`
}

// SubmitAnswer scores one answer, updates mastery with the question's
// own difficulty, and serves the next question or ends the session.
func (s *Service) SubmitAnswer(ctx context.Context, userID, sessionID string, questionID int64, selections []bool, timeSpentSeconds int) (*SubmitResult, error) {
	sess, err := s.ownedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != StatusInProgress {
		return nil, apperr.New(apperr.CodeAlreadyCompleted, "practice session is no longer in progress")
	}
	if sess.Tracking.WasAsked(questionID) {
		return nil, apperr.New(apperr.CodeAlreadyAnswered, "question already answered in this session")
	}

	question, err := s.catalog.QuestionByID(ctx, questionID)
	if err != nil {
		return nil, err
	}
	isCorrect := scoreSelections(selections, question)

	skillID, err := s.catalog.PrimarySkillFor(ctx, questionID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	sess.AnsweredQuestions++
	if isCorrect {
		sess.CorrectCount++
		sess.Tracking.RecordCorrect(skillID)
	} else if sess.Tracking.RecordWrong(skillID) {
		s.log.Info("practice skill dropped",
			zap.String("session", sessionID),
			zap.Int64("skill", skillID))
	}
	sess.Tracking.AskedQuestions = append(sess.Tracking.AskedQuestions, questionID)
	sess.Tracking.Rotate()

	res := &SubmitResult{
		SessionID:      sessionID,
		QuestionID:     questionID,
		IsCorrect:      isCorrect,
		TotalQuestions: sess.TotalQuestions,
	}

	var next *catalog.PublicQuestion
	if sess.AnsweredQuestions >= sess.TotalQuestions {
		s.end(sess, now)
		res.Completed = true
	} else {
		next, _, err = s.pickNext(ctx, sess)
		if err != nil {
			return nil, err
		}
		if next == nil {
			s.end(sess, now)
			res.Completed = true
		}
	}

	var skillPtr *int64
	if skillID != 0 {
		skillPtr = &skillID
	}
	if err := s.store.RecordAnswer(ctx, sess, questionID, skillPtr, isCorrect, timeSpentSeconds, now); err != nil {
		if errors.Is(err, ErrDuplicateAnswer) {
			return nil, apperr.New(apperr.CodeAlreadyAnswered, "question already answered in this session")
		}
		return nil, err
	}

	if skillID != 0 {
		res.Mastery, err = s.mastery.UpdateMastery(ctx, userID, skillID, isCorrect, question.Difficulty)
		if err != nil {
			return nil, err
		}
	}

	res.AnsweredQuestions = sess.AnsweredQuestions
	res.CorrectCount = sess.CorrectCount
	res.NextQuestion = next
	if res.Completed {
		res.NextQuestion = nil
	}
	return res, nil
}

func (s *Service) end(sess *Session, now time.Time) {
	sess.Status = StatusCompleted
	sess.EndedAt = &now
}

// NextQuestion serves the next question without mutating session state.
func (s *Service) NextQuestion(ctx context.Context, userID, sessionID string) (*catalog.PublicQuestion, error) {
	sess, err := s.ownedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != StatusInProgress {
		return nil, apperr.New(apperr.CodeAlreadyCompleted, "practice session is no longer in progress")
	}
	q, _, err := s.pickNext(ctx, sess)
	return q, err
}

// Summary reports how a session went.
type Summary struct {
	SessionID         string      `json:"sessionId"`
	SessionType       SessionType `json:"sessionType"`
	Status            Status      `json:"status"`
	TotalQuestions    int         `json:"totalQuestions"`
	AnsweredQuestions int         `json:"answeredQuestions"`
	CorrectCount      int         `json:"correctCount"`
	Accuracy          float64     `json:"accuracy"`
	StartedAt         time.Time   `json:"startedAt"`
	EndedAt           *time.Time  `json:"endedAt,omitempty"`
}

// End closes the session if still open and returns its summary.
func (s *Service) End(ctx context.Context, userID, sessionID string) (*Summary, error) {
	sess, err := s.ownedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status == StatusInProgress {
		s.end(sess, s.now().UTC())
		if err := s.store.Update(ctx, sess); err != nil {
			return nil, err
		}
		s.log.Info("practice ended",
			zap.String("session", sessionID),
			zap.Int("answered", sess.AnsweredQuestions),
			zap.Int("correct", sess.CorrectCount))
	}
	return summaryOf(sess), nil
}

// Status returns the session summary without mutating it.
func (s *Service) Status(ctx context.Context, userID, sessionID string) (*Summary, error) {
	sess, err := s.ownedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	return summaryOf(sess), nil
}

func summaryOf(sess *Session) *Summary {
	return &Summary{
		SessionID:         sess.ID,
		SessionType:       sess.SessionType,
		Status:            sess.Status,
		TotalQuestions:    sess.TotalQuestions,
		AnsweredQuestions: sess.AnsweredQuestions,
		CorrectCount:      sess.CorrectCount,
		Accuracy:          sess.Accuracy(),
		StartedAt:         sess.StartedAt,
		EndedAt:           sess.EndedAt,
	}
}

func (s *Service) ownedSession(ctx context.Context, userID, sessionID string) (*Session, error) {
	sess, err := s.store.GetByID(ctx, sessionID)
	if errors.Is(err, ErrSessionNotFound) {
		return nil, apperr.New(apperr.CodeSessionNotFound, "practice session not found")
	}
	if err != nil {
		return nil, err
	}
	if sess.UserID != userID {
		return nil, apperr.New(apperr.CodeUnauthorized, "practice session belongs to another user")
	}
	return sess, nil
}

// scoreSelections applies the exact-set rule over the full option list.
// Positions past the vector's end count as unselected, so a short or
// empty vector that misses a correct option is wrong.
func scoreSelections(selections []bool, q *catalog.Question) bool {
	if len(selections) == 0 {
		return false
	}
	for i := range q.Options {
		selected := i < len(selections) && selections[i]
		if selected != q.Options[i].Correct {
			return false
		}
	}
	return true
}
