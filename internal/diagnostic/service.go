package diagnostic

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/skill-pulse/skillpulse-engine/internal/apperr"
	"github.com/skill-pulse/skillpulse-engine/internal/catalog"
	"github.com/skill-pulse/skillpulse-engine/internal/mastery"
)

// diagnosticDifficulty is the assumed difficulty for mastery updates
// driven by diagnostic answers.
const diagnosticDifficulty = 3

// MasteryRecorder is the slice of the mastery engine the diagnostic
// engine depends on.
type MasteryRecorder interface {
	UpdateMastery(ctx context.Context, userID string, skillID int64, isCorrect bool, difficulty int) (*mastery.UpdateResult, error)
	WeakSkills(ctx context.Context, userID string, limit int) ([]mastery.WeakSkill, error)
	SkillResults(ctx context.Context, userID, certificationCode string, limit int) ([]mastery.SkillMapEntry, error)
}

// ReadinessRecorder captures a post-session snapshot. Failures are
// logged and never fail the session.
type ReadinessRecorder interface {
	RecordSnapshot(ctx context.Context, userID, testType string, answered, correct int) error
}

type Service struct {
	store     Store
	catalog   catalog.Store
	selector  *catalog.Selector
	mastery   MasteryRecorder
	readiness ReadinessRecorder
	log       *zap.Logger

	defaultQuestions int
	timeoutMinutes   int
	now              func() time.Time
	newID            func() string
}

func NewService(store Store, cat catalog.Store, sel *catalog.Selector, mr MasteryRecorder, rr ReadinessRecorder, log *zap.Logger, defaultQuestions, timeoutMinutes int) *Service {
	return &Service{
		store:            store,
		catalog:          cat,
		selector:         sel,
		mastery:          mr,
		readiness:        rr,
		log:              log,
		defaultQuestions: defaultQuestions,
		timeoutMinutes:   timeoutMinutes,
		now:              time.Now,
		newID:            uuid.NewString,
	}
}

type StartResult struct {
	SessionID      string                  `json:"sessionId"`
	Status         Status                  `json:"status"`
	TotalQuestions int                     `json:"totalQuestions"`
	// Advisory only; the server never expires a session.
	TimeLimitMinutes int                     `json:"timeLimitMinutes"`
	Question         *catalog.PublicQuestion `json:"question,omitempty"`
	Confidence       Confidence              `json:"confidence"`
}

// Start creates a session with a frozen exam plan drawn across the
// scope's skills.
func (s *Service) Start(ctx context.Context, userID string, scope Scope, questionCount int) (*StartResult, error) {
	if questionCount <= 0 {
		questionCount = s.defaultQuestions
	}

	if active, err := s.store.GetActiveByUser(ctx, userID); err == nil {
		return nil, alreadyInProgress(active)
	} else if !errors.Is(err, ErrAttemptNotFound) {
		return nil, err
	}

	skills, err := s.resolveScope(ctx, scope)
	if err != nil {
		return nil, err
	}

	var pools []catalog.SkillPool
	for _, sk := range skills {
		ids, err := s.catalog.QuestionIDsForSkill(ctx, sk.ID)
		if err != nil {
			return nil, err
		}
		if len(ids) > 0 {
			pools = append(pools, catalog.SkillPool{SkillID: sk.ID, QuestionIDs: ids})
		}
	}

	plan := s.selector.Select(pools, questionCount)
	if len(plan) == 0 {
		return nil, apperr.New(apperr.CodeNoQuestionsAvailable, "no questions available for the requested scope")
	}

	now := s.now().UTC()
	attempt := &Attempt{
		ID:        s.newID(),
		UserID:    userID,
		SessionID: s.newID(),
		TestType:  scope.TestType,
		Status:    StatusInProgress,
		// The budget, not the plan length: a scope too small to fill the
		// request still carries the requested total, and ends early as
		// skills-exhausted instead.
		TotalQuestions:    questionCount,
		StartTime:         now,
		Mode:              "ADAPTIVE",
		CertificationCode: scope.CertificationCode,
		CareerPath:        scope.CareerPath,
		Tracking:          NewTracking(plan),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.store.CreateAttempt(ctx, attempt); err != nil {
		if errors.Is(err, ErrActiveExists) {
			// Lost the race against a concurrent start.
			if active, rerr := s.store.GetActiveByUser(ctx, userID); rerr == nil {
				return nil, alreadyInProgress(active)
			}
		}
		return nil, err
	}

	s.log.Info("diagnostic started",
		zap.String("user", userID),
		zap.String("session", attempt.SessionID),
		zap.Int("questions", len(plan)))

	first, err := s.publicQuestion(ctx, plan[0])
	if err != nil {
		return nil, err
	}
	return &StartResult{
		SessionID:        attempt.SessionID,
		Status:           attempt.Status,
		TotalQuestions:   attempt.TotalQuestions,
		TimeLimitMinutes: s.timeoutMinutes,
		Question:         first,
		Confidence:       snapshotConfidence(0, 0, attempt.TotalQuestions),
	}, nil
}

func alreadyInProgress(active *Attempt) error {
	return apperr.New(apperr.CodeAlreadyInProgress, "an assessment is already in progress").
		WithMeta("activeSessionId", active.SessionID)
}

// resolveScope turns a scope into the list of skills to draw from.
// Precedence: certification code, career path, category list, all.
func (s *Service) resolveScope(ctx context.Context, scope Scope) ([]catalog.Skill, error) {
	switch {
	case scope.CertificationCode != "":
		return s.catalog.SkillsForCertification(ctx, scope.CertificationCode)
	case scope.CareerPath != "":
		certs := catalog.CertificationsForCareer(scope.CareerPath)
		if len(certs) == 0 {
			return nil, apperr.Newf(apperr.CodeNoQuestionsAvailable, "unknown career path %q", scope.CareerPath)
		}
		return s.catalog.SkillsForCertifications(ctx, certs)
	case len(scope.Categories) > 0:
		all, err := s.catalog.AllActiveSkills(ctx)
		if err != nil {
			return nil, err
		}
		want := make(map[string]bool, len(scope.Categories))
		for _, c := range scope.Categories {
			want[c] = true
		}
		var out []catalog.Skill
		for _, sk := range all {
			if want[sk.Category] {
				out = append(out, sk)
			}
		}
		return out, nil
	default:
		return s.catalog.AllActiveSkills(ctx)
	}
}

type SubmitResult struct {
	SessionID         string                  `json:"sessionId"`
	QuestionID        int64                   `json:"questionId"`
	IsCorrect         bool                    `json:"isCorrect"`
	AnsweredQuestions int                     `json:"answeredQuestions"`
	TotalQuestions    int                     `json:"totalQuestions"`
	Completed         bool                    `json:"completed"`
	AutoTerminated    bool                    `json:"autoTerminated"`
	CompletionReason  string                  `json:"completionReason,omitempty"`
	NextQuestion      *catalog.PublicQuestion `json:"nextQuestion,omitempty"`
	Confidence        Confidence              `json:"confidence"`
	Mastery           *mastery.UpdateResult   `json:"mastery,omitempty"`
}

// SubmitAnswer scores one answer, advances the session state machine,
// and returns the next question or the completion outcome.
func (s *Service) SubmitAnswer(ctx context.Context, userID, sessionID string, questionID int64, selections []bool, timeSpentSeconds int) (*SubmitResult, error) {
	attempt, err := s.ownedAttempt(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if attempt.Status != StatusInProgress {
		return nil, apperr.New(apperr.CodeAlreadyCompleted, "session is no longer in progress")
	}

	if dup, err := s.store.HasAnswer(ctx, attempt.ID, questionID); err != nil {
		return nil, err
	} else if dup {
		return nil, apperr.New(apperr.CodeAlreadyAnswered, "question already answered in this session")
	}

	question, err := s.catalog.QuestionByID(ctx, questionID)
	if err != nil {
		return nil, err
	}
	key := make([]bool, len(question.Options))
	for i, o := range question.Options {
		key[i] = o.Correct
	}
	isCorrect, sizeMismatch := evaluateSelections(selections, key)
	if sizeMismatch {
		s.log.Warn("selection vector size mismatch",
			zap.String("session", sessionID),
			zap.Int64("question", questionID),
			zap.Int("submitted", len(selections)),
			zap.Int("key", len(key)))
	}

	skillID, err := s.catalog.PrimarySkillFor(ctx, questionID)
	if err != nil {
		return nil, err
	}

	prevCorrect, err := s.store.CountCorrect(ctx, attempt.ID)
	if err != nil {
		return nil, err
	}
	answered, err := s.store.AnsweredQuestionIDs(ctx, attempt.ID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	rawSelections, _ := json.Marshal(selections)
	ans := &Answer{
		AttemptID:        attempt.ID,
		QuestionID:       questionID,
		QuestionOrder:    attempt.AnsweredQuestions + 1,
		UserAnswer:       string(rawSelections),
		IsCorrect:        isCorrect,
		TimeSpentSeconds: timeSpentSeconds,
		AnsweredAt:       now,
	}
	if skillID != 0 {
		ans.SkillID = &skillID
	}

	if isCorrect {
		attempt.Tracking.RecordCorrect(skillID)
	} else if attempt.Tracking.RecordWrong(skillID) {
		s.log.Info("skill terminated",
			zap.String("session", sessionID),
			zap.Int64("skill", skillID))
	}
	attempt.AnsweredQuestions++
	attempt.TimeSpentSeconds += timeSpentSeconds
	attempt.UpdatedAt = now
	answered[questionID] = true

	correctCount := prevCorrect
	if isCorrect {
		correctCount++
	}

	res := &SubmitResult{
		SessionID:      sessionID,
		QuestionID:     questionID,
		IsCorrect:      isCorrect,
		TotalQuestions: attempt.TotalQuestions,
	}

	var nextID int64
	switch {
	case !isCorrect && attempt.Tracking.ShouldAutoTerminate():
		s.complete(attempt, correctCount, now)
		res.Completed, res.AutoTerminated = true, true
		res.CompletionReason = ReasonAutoTerminated
	case attempt.AnsweredQuestions >= attempt.TotalQuestions:
		s.complete(attempt, correctCount, now)
		res.Completed = true
		res.CompletionReason = ReasonCompleted
	default:
		nextID, err = s.nextPlannedQuestion(ctx, attempt, answered)
		if err != nil {
			return nil, err
		}
		if nextID == 0 {
			s.complete(attempt, correctCount, now)
			res.Completed = true
			res.CompletionReason = ReasonSkillsExhausted
		}
	}

	if err := s.store.SubmitAnswer(ctx, attempt, ans); err != nil {
		if errors.Is(err, ErrDuplicateAnswer) {
			return nil, apperr.New(apperr.CodeAlreadyAnswered, "question already answered in this session")
		}
		return nil, err
	}

	if skillID != 0 {
		mu, merr := s.mastery.UpdateMastery(ctx, userID, skillID, isCorrect, diagnosticDifficulty)
		if merr != nil {
			return nil, merr
		}
		res.Mastery = mu
	}

	if res.Completed {
		s.recordSnapshot(ctx, attempt, correctCount)
		s.log.Info("diagnostic completed",
			zap.String("session", sessionID),
			zap.String("reason", res.CompletionReason),
			zap.Float64("rawScore", *attempt.RawScore))
	} else if nextID != 0 {
		res.NextQuestion, err = s.publicQuestion(ctx, nextID)
		if err != nil {
			return nil, err
		}
	}

	res.AnsweredQuestions = attempt.AnsweredQuestions
	res.Confidence = snapshotConfidence(correctCount, attempt.AnsweredQuestions, attempt.TotalQuestions)
	return res, nil
}

// complete finalizes scoring on the attempt struct. The caller persists.
func (s *Service) complete(a *Attempt, correctCount int, now time.Time) {
	a.Status = StatusCompleted
	a.EndTime = &now
	raw := 0.0
	if a.TotalQuestions > 0 {
		raw = float64(correctCount) / float64(a.TotalQuestions) * 100
	}
	a.RawScore = &raw
	a.EstimatedLevel = LevelForScore(raw)
	a.EstimatedScoreMin, a.EstimatedScoreMax = ScoreBand(raw)
}

// nextPlannedQuestion scans the frozen plan in order for the first
// question that is unanswered and not mapped to a terminated skill.
// Returns 0 when the plan is exhausted.
func (s *Service) nextPlannedQuestion(ctx context.Context, a *Attempt, answered map[int64]bool) (int64, error) {
	for _, qid := range a.Tracking.Plan {
		if answered[qid] {
			continue
		}
		skillID, err := s.catalog.PrimarySkillFor(ctx, qid)
		if err != nil {
			return 0, err
		}
		if skillID != 0 && a.Tracking.IsTerminated(skillID) {
			continue
		}
		return qid, nil
	}
	return 0, nil
}

func (s *Service) recordSnapshot(ctx context.Context, a *Attempt, correctCount int) {
	if s.readiness == nil {
		return
	}
	if err := s.readiness.RecordSnapshot(ctx, a.UserID, a.TestType, a.AnsweredQuestions, correctCount); err != nil {
		s.log.Warn("readiness snapshot failed",
			zap.String("user", a.UserID),
			zap.Error(err))
	}
}

type NextQuestionResult struct {
	SessionID    string                  `json:"sessionId"`
	Question     *catalog.PublicQuestion `json:"question,omitempty"`
	ShouldFinish bool                    `json:"shouldFinish"`
	Confidence   Confidence              `json:"confidence"`
}

// NextQuestion returns the next unanswered plan question without
// mutating any state.
func (s *Service) NextQuestion(ctx context.Context, userID, sessionID string) (*NextQuestionResult, error) {
	attempt, err := s.ownedAttempt(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if attempt.Status != StatusInProgress {
		return nil, apperr.New(apperr.CodeAlreadyCompleted, "session is no longer in progress")
	}

	answered, err := s.store.AnsweredQuestionIDs(ctx, attempt.ID)
	if err != nil {
		return nil, err
	}
	correct, err := s.store.CountCorrect(ctx, attempt.ID)
	if err != nil {
		return nil, err
	}

	res := &NextQuestionResult{
		SessionID:  sessionID,
		Confidence: snapshotConfidence(correct, attempt.AnsweredQuestions, attempt.TotalQuestions),
	}
	nextID, err := s.nextPlannedQuestion(ctx, attempt, answered)
	if err != nil {
		return nil, err
	}
	if nextID == 0 {
		res.ShouldFinish = true
		return res, nil
	}
	res.Question, err = s.publicQuestion(ctx, nextID)
	return res, err
}

// Result is the full post-session summary.
type Result struct {
	SessionID         string                  `json:"sessionId"`
	Status            Status                  `json:"status"`
	TotalQuestions    int                     `json:"totalQuestions"`
	CorrectCount      int                     `json:"correctCount"`
	RawScore          float64                 `json:"rawScore"`
	CategoryScores    []CategoryScore         `json:"categoryScores"`
	SkillResults      []mastery.SkillMapEntry `json:"skillResults"`
	WeakSkills        []mastery.WeakSkill     `json:"weakSkills"`
	EstimatedLevel    string                  `json:"estimatedLevel"`
	EstimatedScoreMin int                     `json:"estimatedScoreMin"`
	EstimatedScoreMax int                     `json:"estimatedScoreMax"`
	Recommendations   []string                `json:"recommendations"`
	CompletedAt       *time.Time              `json:"completedAt,omitempty"`
	TimeSpentSeconds  int                     `json:"timeSpentSeconds"`
}

// Finish idempotently forces completion and returns the results
// summary. Safe to call on an already completed session.
func (s *Service) Finish(ctx context.Context, userID, sessionID string) (*Result, error) {
	attempt, err := s.ownedAttempt(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	if attempt.Status == StatusInProgress {
		correct, err := s.store.CountCorrect(ctx, attempt.ID)
		if err != nil {
			return nil, err
		}
		now := s.now().UTC()
		s.complete(attempt, correct, now)
		attempt.UpdatedAt = now
		if err := s.store.UpdateAttempt(ctx, attempt); err != nil {
			return nil, err
		}
		s.recordSnapshot(ctx, attempt, correct)
		s.log.Info("diagnostic finished",
			zap.String("session", sessionID),
			zap.Float64("rawScore", *attempt.RawScore))
	}

	return s.buildResult(ctx, attempt)
}

// GetResult is the read-only counterpart of Finish.
func (s *Service) GetResult(ctx context.Context, userID, sessionID string) (*Result, error) {
	attempt, err := s.ownedAttempt(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if attempt.Status != StatusCompleted {
		return nil, apperr.New(apperr.CodeNotCompleted, "session is not completed")
	}
	return s.buildResult(ctx, attempt)
}

func (s *Service) buildResult(ctx context.Context, attempt *Attempt) (*Result, error) {
	answers, err := s.store.ListAnswers(ctx, attempt.ID)
	if err != nil {
		return nil, err
	}

	correctCount := 0
	for _, a := range answers {
		if a.IsCorrect {
			correctCount++
		}
	}
	raw := 0.0
	if attempt.RawScore != nil {
		raw = *attempt.RawScore
	} else if attempt.TotalQuestions > 0 {
		raw = float64(correctCount) / float64(attempt.TotalQuestions) * 100
	}

	categories, err := s.categoryScores(ctx, answers)
	if err != nil {
		return nil, err
	}

	weak, err := s.mastery.WeakSkills(ctx, attempt.UserID, 5)
	if err != nil {
		return nil, err
	}
	skillResults, err := s.mastery.SkillResults(ctx, attempt.UserID, attempt.CertificationCode, 10)
	if err != nil {
		return nil, err
	}

	level := attempt.EstimatedLevel
	if level == "" {
		level = LevelForScore(raw)
	}
	bandMin, bandMax := attempt.EstimatedScoreMin, attempt.EstimatedScoreMax
	if bandMin == 0 && bandMax == 0 {
		bandMin, bandMax = ScoreBand(raw)
	}

	return &Result{
		SessionID:         attempt.SessionID,
		Status:            attempt.Status,
		TotalQuestions:    attempt.TotalQuestions,
		CorrectCount:      correctCount,
		RawScore:          raw,
		CategoryScores:    categories,
		SkillResults:      skillResults,
		WeakSkills:        weak,
		EstimatedLevel:    level,
		EstimatedScoreMin: bandMin,
		EstimatedScoreMax: bandMax,
		Recommendations:   buildRecommendations(categories, raw, level),
		CompletedAt:       attempt.EndTime,
		TimeSpentSeconds:  attempt.TimeSpentSeconds,
	}, nil
}

// categoryScores groups answers by their skill's category.
func (s *Service) categoryScores(ctx context.Context, answers []Answer) ([]CategoryScore, error) {
	byCat := map[string]*CategoryScore{}
	var order []string
	for _, a := range answers {
		if a.SkillID == nil {
			continue
		}
		sk, err := s.catalog.SkillByID(ctx, *a.SkillID)
		if err != nil {
			if errors.Is(err, catalog.ErrSkillNotFound) {
				continue
			}
			return nil, err
		}
		cs := byCat[sk.Category]
		if cs == nil {
			cs = &CategoryScore{Category: sk.Category}
			byCat[sk.Category] = cs
			order = append(order, sk.Category)
		}
		cs.Total++
		if a.IsCorrect {
			cs.Correct++
		}
	}
	out := make([]CategoryScore, 0, len(order))
	for _, cat := range order {
		cs := byCat[cat]
		cs.Accuracy = float64(cs.Correct) / float64(cs.Total)
		out = append(out, *cs)
	}
	return out, nil
}

type StatusResult struct {
	SessionID         string     `json:"sessionId"`
	Status            Status     `json:"status"`
	TotalQuestions    int        `json:"totalQuestions"`
	AnsweredQuestions int        `json:"answeredQuestions"`
	TimeSpentSeconds  int        `json:"timeSpentSeconds"`
	TimeLimitMinutes  int        `json:"timeLimitMinutes"`
	StartTime         time.Time  `json:"startTime"`
	EndTime           *time.Time `json:"endTime,omitempty"`
	CertificationCode string     `json:"certificationCode,omitempty"`
	CareerPath        string     `json:"careerPath,omitempty"`
	Confidence        Confidence `json:"confidence"`
}

// GetStatus reports session progress and the advisory snapshot.
func (s *Service) GetStatus(ctx context.Context, userID, sessionID string) (*StatusResult, error) {
	attempt, err := s.ownedAttempt(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	correct, err := s.store.CountCorrect(ctx, attempt.ID)
	if err != nil {
		return nil, err
	}
	return s.statusOf(attempt, correct), nil
}

// GetActiveSession returns the caller's IN_PROGRESS session, if any.
func (s *Service) GetActiveSession(ctx context.Context, userID string) (*StatusResult, error) {
	attempt, err := s.store.GetActiveByUser(ctx, userID)
	if errors.Is(err, ErrAttemptNotFound) {
		return nil, apperr.New(apperr.CodeSessionNotFound, "no active session")
	}
	if err != nil {
		return nil, err
	}
	correct, err := s.store.CountCorrect(ctx, attempt.ID)
	if err != nil {
		return nil, err
	}
	return s.statusOf(attempt, correct), nil
}

func (s *Service) statusOf(attempt *Attempt, correct int) *StatusResult {
	return &StatusResult{
		SessionID:         attempt.SessionID,
		Status:            attempt.Status,
		TotalQuestions:    attempt.TotalQuestions,
		AnsweredQuestions: attempt.AnsweredQuestions,
		TimeSpentSeconds:  attempt.TimeSpentSeconds,
		TimeLimitMinutes:  s.timeoutMinutes,
		StartTime:         attempt.StartTime,
		EndTime:           attempt.EndTime,
		CertificationCode: attempt.CertificationCode,
		CareerPath:        attempt.CareerPath,
		Confidence:        snapshotConfidence(correct, attempt.AnsweredQuestions, attempt.TotalQuestions),
	}
}

// Abandon marks an in-progress session abandoned. A no-op on terminal
// sessions.
func (s *Service) Abandon(ctx context.Context, userID, sessionID string) error {
	attempt, err := s.ownedAttempt(ctx, userID, sessionID)
	if err != nil {
		return err
	}
	if attempt.Status != StatusInProgress {
		return nil
	}
	now := s.now().UTC()
	attempt.Status = StatusAbandoned
	attempt.EndTime = &now
	attempt.UpdatedAt = now
	if err := s.store.UpdateAttempt(ctx, attempt); err != nil {
		return err
	}
	s.log.Info("diagnostic abandoned", zap.String("session", sessionID))
	return nil
}

// Restart abandons any active session, then starts a new one.
func (s *Service) Restart(ctx context.Context, userID string, scope Scope, questionCount int) (*StartResult, error) {
	if active, err := s.store.GetActiveByUser(ctx, userID); err == nil {
		if aerr := s.Abandon(ctx, userID, active.SessionID); aerr != nil {
			return nil, aerr
		}
	} else if !errors.Is(err, ErrAttemptNotFound) {
		return nil, err
	}
	return s.Start(ctx, userID, scope, questionCount)
}

// History lists the caller's past attempts, newest first.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]Attempt, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.store.History(ctx, userID, limit)
}

func (s *Service) ownedAttempt(ctx context.Context, userID, sessionID string) (*Attempt, error) {
	attempt, err := s.store.GetBySessionID(ctx, sessionID)
	if errors.Is(err, ErrAttemptNotFound) {
		return nil, apperr.New(apperr.CodeSessionNotFound, "session not found")
	}
	if err != nil {
		return nil, err
	}
	if attempt.UserID != userID {
		return nil, apperr.New(apperr.CodeUnauthorized, "session belongs to another user")
	}
	return attempt, nil
}

func (s *Service) publicQuestion(ctx context.Context, questionID int64) (*catalog.PublicQuestion, error) {
	q, err := s.catalog.QuestionByID(ctx, questionID)
	if err != nil {
		return nil, err
	}
	pub := q.Public()
	return &pub, nil
}
