package mastery

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/skill-pulse/skillpulse-engine/internal/catalog"
)

// WeakThreshold is the mastery level below which a skill counts as weak.
const WeakThreshold = 0.4

const initialConfidence = 0.10

type Service struct {
	store  Store
	skills catalog.Store
	calc   *Calculator
	log    *zap.Logger
	now    func() time.Time
}

func NewService(store Store, skills catalog.Store, calc *Calculator, log *zap.Logger) *Service {
	return &Service{store: store, skills: skills, calc: calc, log: log, now: time.Now}
}

// GetOrCreate returns the user's mastery row for a skill, seeding a
// fresh one at the initial level when none exists yet.
func (s *Service) GetOrCreate(ctx context.Context, userID string, skillID int64) (*SkillMastery, error) {
	m, err := s.store.Get(ctx, userID, skillID)
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	m = &SkillMastery{
		UserID:          userID,
		SkillID:         skillID,
		MasteryLevel:    s.calc.InitialLevel,
		Confidence:      initialConfidence,
		LastPracticedAt: s.now().UTC(),
	}
	if err := s.store.Upsert(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// UpdateMastery applies one answer to the skill's EMA state.
func (s *Service) UpdateMastery(ctx context.Context, userID string, skillID int64, isCorrect bool, difficulty int) (*UpdateResult, error) {
	m, err := s.GetOrCreate(ctx, userID, skillID)
	if err != nil {
		return nil, err
	}

	before := m.MasteryLevel
	m.MasteryLevel = s.calc.NewMastery(before, isCorrect, difficulty, m.Attempts)
	m.Attempts++
	if isCorrect {
		m.CorrectCount++
		m.Streak = maxInt(0, m.Streak) + 1
	} else {
		m.Streak = minInt(0, m.Streak) - 1
	}
	m.Confidence = Confidence(m.Attempts)
	m.LastPracticedAt = s.now().UTC()

	if err := s.store.Upsert(ctx, m); err != nil {
		return nil, err
	}

	s.log.Debug("mastery updated",
		zap.String("user", userID),
		zap.Int64("skill", skillID),
		zap.Bool("correct", isCorrect),
		zap.Float64("before", before),
		zap.Float64("after", m.MasteryLevel))

	return &UpdateResult{
		SkillID:       skillID,
		MasteryBefore: before,
		MasteryAfter:  m.MasteryLevel,
		MasteryDelta:  m.MasteryLevel - before,
	}, nil
}

// MasteryMap returns skillID -> mastery level for a user.
func (s *Service) MasteryMap(ctx context.Context, userID string) (map[int64]float64, error) {
	rows, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]float64, len(rows))
	for _, m := range rows {
		out[m.SkillID] = m.MasteryLevel
	}
	return out, nil
}

// OverallMastery is the simple average across all of a user's skills,
// the initial level when no data exists.
func (s *Service) OverallMastery(ctx context.Context, userID string) (float64, error) {
	rows, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	masteries := make([]float64, len(rows))
	for i, m := range rows {
		masteries[i] = m.MasteryLevel
	}
	return s.calc.SimpleAverage(masteries), nil
}

// WeakSkill is one entry of the ranked weak-skill report.
type WeakSkill struct {
	Rank             int     `json:"rank"`
	SkillID          int64   `json:"skillId"`
	SkillName        string  `json:"skillName"`
	Category         string  `json:"category"`
	MasteryLevel     float64 `json:"masteryLevel"`
	Accuracy         float64 `json:"accuracy"`
	Attempts         int     `json:"attempts"`
	Label            Label   `json:"label"`
	TargetDifficulty int     `json:"targetDifficulty"`
}

// WeakSkills returns up to limit skills below the weak threshold,
// weakest first. Skills missing from the catalog are kept with a blank
// name rather than dropped.
func (s *Service) WeakSkills(ctx context.Context, userID string, limit int) ([]WeakSkill, error) {
	rows, err := s.store.WeakSkills(ctx, userID, WeakThreshold, limit)
	if err != nil {
		return nil, err
	}
	out := make([]WeakSkill, 0, len(rows))
	for i, m := range rows {
		ws := WeakSkill{
			Rank:             i + 1,
			SkillID:          m.SkillID,
			MasteryLevel:     m.MasteryLevel,
			Accuracy:         m.Accuracy(),
			Attempts:         m.Attempts,
			Label:            LabelFor(m.MasteryLevel),
			TargetDifficulty: TargetDifficulty(m.MasteryLevel),
		}
		sk, err := s.skills.SkillByID(ctx, m.SkillID)
		if err != nil {
			s.log.Warn("skill not found", zap.Int64("skill", m.SkillID))
		} else {
			ws.SkillName = sk.Name
			ws.Category = sk.Category
		}
		out = append(out, ws)
	}
	return out, nil
}

// SkillResults returns up to limit of the user's skill states. When a
// certification code is given only skills belonging to it are included,
// so results from other certifications the user has tested do not leak
// into the report.
func (s *Service) SkillResults(ctx context.Context, userID, certificationCode string, limit int) ([]SkillMapEntry, error) {
	rows, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	var allowed map[int64]bool
	if certificationCode != "" {
		skills, err := s.skills.SkillsForCertification(ctx, certificationCode)
		if err != nil {
			return nil, err
		}
		allowed = make(map[int64]bool, len(skills))
		for _, sk := range skills {
			allowed[sk.ID] = true
		}
	}

	var out []SkillMapEntry
	for _, m := range rows {
		if allowed != nil && !allowed[m.SkillID] {
			continue
		}
		entry := SkillMapEntry{
			SkillID:      m.SkillID,
			MasteryLevel: m.MasteryLevel,
			Confidence:   m.Confidence,
			Attempts:     m.Attempts,
			Accuracy:     m.Accuracy(),
			Label:        LabelFor(m.MasteryLevel),
		}
		if sk, err := s.skills.SkillByID(ctx, m.SkillID); err == nil {
			entry.SkillName = sk.Name
			entry.Category = sk.Category
		}
		out = append(out, entry)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

// SkillMapEntry is one skill's view in the full skill map.
type SkillMapEntry struct {
	SkillID      int64   `json:"skillId"`
	SkillName    string  `json:"skillName"`
	Category     string  `json:"category"`
	MasteryLevel float64 `json:"masteryLevel"`
	Confidence   float64 `json:"confidence"`
	Attempts     int     `json:"attempts"`
	Accuracy     float64 `json:"accuracy"`
	Label        Label   `json:"label"`
}

// CategorySummary aggregates one category of the skill map.
type CategorySummary struct {
	Category   string  `json:"category"`
	Mastery    float64 `json:"mastery"`
	SkillCount int     `json:"skillCount"`
}

// SkillMap is the full per-user mastery picture.
type SkillMap struct {
	Skills         []SkillMapEntry   `json:"skills"`
	Categories     []CategorySummary `json:"categories"`
	OverallMastery float64           `json:"overallMastery"`
	EstimatedLevel string            `json:"estimatedLevel"`
}

// GetSkillMap builds the per-skill and per-category mastery view.
// Category averages are weighted by attempt counts so heavily practiced
// skills dominate.
func (s *Service) GetSkillMap(ctx context.Context, userID string) (*SkillMap, error) {
	rows, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	sm := &SkillMap{Skills: make([]SkillMapEntry, 0, len(rows))}
	type catAgg struct {
		masteries []float64
		weights   []int
	}
	byCat := map[string]*catAgg{}
	var allMasteries []float64

	for _, m := range rows {
		entry := SkillMapEntry{
			SkillID:      m.SkillID,
			MasteryLevel: m.MasteryLevel,
			Confidence:   m.Confidence,
			Attempts:     m.Attempts,
			Accuracy:     m.Accuracy(),
			Label:        LabelFor(m.MasteryLevel),
		}
		sk, err := s.skills.SkillByID(ctx, m.SkillID)
		if err == nil {
			entry.SkillName = sk.Name
			entry.Category = sk.Category
		}
		sm.Skills = append(sm.Skills, entry)
		allMasteries = append(allMasteries, m.MasteryLevel)

		agg := byCat[entry.Category]
		if agg == nil {
			agg = &catAgg{}
			byCat[entry.Category] = agg
		}
		agg.masteries = append(agg.masteries, m.MasteryLevel)
		agg.weights = append(agg.weights, maxInt(1, m.Attempts))
	}

	for cat, agg := range byCat {
		sm.Categories = append(sm.Categories, CategorySummary{
			Category:   cat,
			Mastery:    s.calc.WeightedAverage(agg.masteries, agg.weights),
			SkillCount: len(agg.masteries),
		})
	}
	sort.Slice(sm.Categories, func(i, j int) bool {
		return sm.Categories[i].Category < sm.Categories[j].Category
	})

	sm.OverallMastery = s.calc.SimpleAverage(allMasteries)
	sm.EstimatedLevel = EstimatedLevelFor(sm.OverallMastery)
	return sm, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
