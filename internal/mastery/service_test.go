package mastery

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/skill-pulse/skillpulse-engine/internal/catalog"
)

type fakeStore struct {
	rows map[int64]*SkillMastery // by skill, single test user
}

func newFakeStore() *fakeStore { return &fakeStore{rows: map[int64]*SkillMastery{}} }

func (f *fakeStore) Get(_ context.Context, _ string, skillID int64) (*SkillMastery, error) {
	m, ok := f.rows[skillID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *fakeStore) Upsert(_ context.Context, m *SkillMastery) error {
	cp := *m
	f.rows[m.SkillID] = &cp
	return nil
}

func (f *fakeStore) ListByUser(_ context.Context, _ string) ([]SkillMastery, error) {
	var out []SkillMastery
	for _, m := range f.rows {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SkillID < out[j].SkillID })
	return out, nil
}

func (f *fakeStore) WeakSkills(_ context.Context, _ string, threshold float64, limit int) ([]SkillMastery, error) {
	var out []SkillMastery
	for _, m := range f.rows {
		if m.MasteryLevel < threshold {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MasteryLevel < out[j].MasteryLevel })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeSkills struct {
	skills map[int64]catalog.Skill
}

func (f *fakeSkills) SkillByID(_ context.Context, id int64) (*catalog.Skill, error) {
	sk, ok := f.skills[id]
	if !ok {
		return nil, catalog.ErrSkillNotFound
	}
	return &sk, nil
}

func (f *fakeSkills) SkillsForCertification(_ context.Context, cert string) ([]catalog.Skill, error) {
	var out []catalog.Skill
	for _, sk := range f.skills {
		if sk.CertificationCode == cert {
			out = append(out, sk)
		}
	}
	return out, nil
}

func (f *fakeSkills) SkillsForCertifications(ctx context.Context, certs []string) ([]catalog.Skill, error) {
	var out []catalog.Skill
	for _, c := range certs {
		skills, _ := f.SkillsForCertification(ctx, c)
		out = append(out, skills...)
	}
	return out, nil
}

func (f *fakeSkills) AllActiveSkills(_ context.Context) ([]catalog.Skill, error) {
	var out []catalog.Skill
	for _, sk := range f.skills {
		out = append(out, sk)
	}
	return out, nil
}

func (f *fakeSkills) QuestionByID(_ context.Context, _ int64) (*catalog.Question, error) {
	return nil, catalog.ErrQuestionNotFound
}

func (f *fakeSkills) QuestionsByIDs(_ context.Context, _ []int64) (map[int64]catalog.Question, error) {
	return nil, nil
}

func (f *fakeSkills) QuestionIDsForSkill(_ context.Context, _ int64) ([]int64, error) {
	return nil, nil
}

func (f *fakeSkills) PrimarySkillFor(_ context.Context, _ int64) (int64, error) { return 0, nil }

func newTestService() (*Service, *fakeStore) {
	store := newFakeStore()
	skills := &fakeSkills{skills: map[int64]catalog.Skill{
		1: {ID: 1, Name: "Test Design", Category: "DESIGN", CertificationCode: "ISTQB_CTFL"},
		2: {ID: 2, Name: "Static Testing", Category: "STATIC", CertificationCode: "ISTQB_CTFL"},
		3: {ID: 3, Name: "Sprint Planning", Category: "SCRUM", CertificationCode: "PSM_I"},
	}}
	svc := NewService(store, skills, NewCalculator(0.3, 0.5), zap.NewNop())
	svc.now = func() time.Time { return time.Unix(1700000000, 0) }
	return svc, store
}

func TestGetOrCreateSeedsInitialState(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	m, err := svc.GetOrCreate(ctx, "u1", 1)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, m.MasteryLevel, 1e-9)
	assert.InDelta(t, 0.10, m.Confidence, 1e-9)
	assert.Zero(t, m.Attempts)

	// Second call returns the persisted row, not a fresh seed.
	store.rows[1].MasteryLevel = 0.7
	m, err = svc.GetOrCreate(ctx, "u1", 1)
	require.NoError(t, err)
	assert.InDelta(t, 0.7, m.MasteryLevel, 1e-9)
}

func TestUpdateMasteryCorrectAnswer(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	res, err := svc.UpdateMastery(ctx, "u1", 1, true, 3)
	require.NoError(t, err)

	assert.InDelta(t, 0.5, res.MasteryBefore, 1e-9)
	// First answer: alpha 0.5, perf 0.85 -> 0.5*0.85 + 0.5*0.5 = 0.675.
	assert.InDelta(t, 0.675, res.MasteryAfter, 1e-9)
	assert.InDelta(t, 0.175, res.MasteryDelta, 1e-9)

	m := store.rows[1]
	assert.Equal(t, 1, m.Attempts)
	assert.Equal(t, 1, m.CorrectCount)
	assert.Equal(t, 1, m.Streak)
	assert.InDelta(t, Confidence(1), m.Confidence, 1e-9)
}

func TestUpdateMasteryStreakSign(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.UpdateMastery(ctx, "u1", 1, true, 3)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, store.rows[1].Streak)

	// A wrong answer flips the streak to -1, not to 2.
	_, err := svc.UpdateMastery(ctx, "u1", 1, false, 3)
	require.NoError(t, err)
	assert.Equal(t, -1, store.rows[1].Streak)

	_, err = svc.UpdateMastery(ctx, "u1", 1, false, 3)
	require.NoError(t, err)
	assert.Equal(t, -2, store.rows[1].Streak)

	// And a correct answer flips it back to +1.
	_, err = svc.UpdateMastery(ctx, "u1", 1, true, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, store.rows[1].Streak)
}

func TestOverallMastery(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	// No data: the initial level.
	overall, err := svc.OverallMastery(ctx, "u1")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, overall, 1e-9)

	store.rows[1] = &SkillMastery{UserID: "u1", SkillID: 1, MasteryLevel: 0.2}
	store.rows[2] = &SkillMastery{UserID: "u1", SkillID: 2, MasteryLevel: 0.8}
	overall, err = svc.OverallMastery(ctx, "u1")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, overall, 1e-9)
}

func TestWeakSkillsRankedAndNamed(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	store.rows[1] = &SkillMastery{UserID: "u1", SkillID: 1, MasteryLevel: 0.35, Attempts: 4, CorrectCount: 1}
	store.rows[2] = &SkillMastery{UserID: "u1", SkillID: 2, MasteryLevel: 0.15, Attempts: 6, CorrectCount: 1}
	store.rows[3] = &SkillMastery{UserID: "u1", SkillID: 3, MasteryLevel: 0.9, Attempts: 10, CorrectCount: 9}

	weak, err := svc.WeakSkills(ctx, "u1", 5)
	require.NoError(t, err)
	require.Len(t, weak, 2)

	assert.Equal(t, 1, weak[0].Rank)
	assert.Equal(t, int64(2), weak[0].SkillID)
	assert.Equal(t, "Static Testing", weak[0].SkillName)
	assert.Equal(t, LabelWeak, weak[0].Label)
	assert.Equal(t, 1, weak[0].TargetDifficulty)

	assert.Equal(t, 2, weak[1].Rank)
	assert.Equal(t, int64(1), weak[1].SkillID)
	assert.Equal(t, 2, weak[1].TargetDifficulty)
}

func TestSkillResultsFiltersByCertification(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	store.rows[1] = &SkillMastery{UserID: "u1", SkillID: 1, MasteryLevel: 0.5, Attempts: 2, CorrectCount: 1}
	store.rows[3] = &SkillMastery{UserID: "u1", SkillID: 3, MasteryLevel: 0.7, Attempts: 3, CorrectCount: 2}

	results, err := svc.SkillResults(ctx, "u1", "ISTQB_CTFL", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int64(1), results[0].SkillID)

	// Without a certification everything is returned.
	results, err = svc.SkillResults(ctx, "u1", "", 10)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestGetSkillMap(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	store.rows[1] = &SkillMastery{UserID: "u1", SkillID: 1, MasteryLevel: 0.3, Attempts: 1, CorrectCount: 0}
	store.rows[2] = &SkillMastery{UserID: "u1", SkillID: 2, MasteryLevel: 0.9, Attempts: 3, CorrectCount: 3}

	sm, err := svc.GetSkillMap(ctx, "u1")
	require.NoError(t, err)

	assert.Len(t, sm.Skills, 2)
	assert.Len(t, sm.Categories, 2)
	assert.InDelta(t, 0.6, sm.OverallMastery, 1e-9)
	assert.Equal(t, "INTERMEDIATE", sm.EstimatedLevel)

	// Categories come back sorted by name.
	assert.Equal(t, "DESIGN", sm.Categories[0].Category)
	assert.Equal(t, "STATIC", sm.Categories[1].Category)
}
