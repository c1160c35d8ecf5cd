package catalog

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSelector() *Selector {
	return NewSelector(rand.New(rand.NewSource(1)))
}

func TestSelectSpreadsAcrossSkills(t *testing.T) {
	pools := []SkillPool{
		{SkillID: 1, QuestionIDs: []int64{101, 102, 103, 104, 105}},
		{SkillID: 2, QuestionIDs: []int64{201, 202, 203, 204, 205}},
	}

	picked := testSelector().Select(pools, 6)
	require.Len(t, picked, 6)

	counts := map[int64]int{}
	for _, id := range picked {
		counts[id/100]++
	}
	// Quota guarantees at least 3 from each pool.
	assert.Equal(t, 3, counts[1])
	assert.Equal(t, 3, counts[2])
}

func TestSelectNeverRepeatsSharedQuestions(t *testing.T) {
	// Question 500 is linked to every pool.
	pools := []SkillPool{
		{SkillID: 1, QuestionIDs: []int64{500, 101}},
		{SkillID: 2, QuestionIDs: []int64{500, 201}},
		{SkillID: 3, QuestionIDs: []int64{500, 301}},
	}

	picked := testSelector().Select(pools, 6)
	seen := map[int64]bool{}
	for _, id := range picked {
		assert.False(t, seen[id], "question %d picked twice", id)
		seen[id] = true
	}
	assert.LessOrEqual(t, len(picked), 4)
}

func TestSelectShortPools(t *testing.T) {
	pools := []SkillPool{
		{SkillID: 1, QuestionIDs: []int64{101}},
		{SkillID: 2, QuestionIDs: []int64{201, 202}},
	}

	picked := testSelector().Select(pools, 10)
	assert.Len(t, picked, 3)
}

func TestSelectLeftoversFillTheRequest(t *testing.T) {
	// Uneven pools: the big pool's leftovers top up the small one's
	// shortfall.
	pools := []SkillPool{
		{SkillID: 1, QuestionIDs: []int64{101, 102, 103, 104, 105, 106, 107, 108}},
		{SkillID: 2, QuestionIDs: []int64{201}},
	}

	picked := testSelector().Select(pools, 6)
	assert.Len(t, picked, 6)
}

func TestSelectManySkillsFewQuestions(t *testing.T) {
	// More pools than the request: quota drops to 1 and the result is
	// still capped at count.
	var pools []SkillPool
	for i := int64(1); i <= 10; i++ {
		pools = append(pools, SkillPool{SkillID: i, QuestionIDs: []int64{i * 100}})
	}

	picked := testSelector().Select(pools, 4)
	assert.Len(t, picked, 4)
}

func TestSelectDegenerateInputs(t *testing.T) {
	sel := testSelector()
	assert.Nil(t, sel.Select(nil, 5))
	assert.Nil(t, sel.Select([]SkillPool{{SkillID: 1, QuestionIDs: []int64{101}}}, 0))
}

func TestCertificationsForCareer(t *testing.T) {
	certs := CertificationsForCareer("QA_ENGINEER")
	assert.Equal(t, []string{"ISTQB_CTFL", "ISTQB_AGILE", "ISTQB_AI"}, certs)

	assert.Nil(t, CertificationsForCareer("ASTRONAUT"))

	// Callers get a copy, not the shared slice.
	certs[0] = "mutated"
	assert.Equal(t, "ISTQB_CTFL", CertificationsForCareer("QA_ENGINEER")[0])
}

func TestQuestionPublicView(t *testing.T) {
	q := Question{
		ID:   7,
		Text: "Which statement about boundary value analysis is true?",
		Options: []Option{
			{Text: "a", Correct: true},
			{Text: "b"},
			{Text: "c", Correct: true},
		},
		Difficulty: 4,
	}

	assert.Equal(t, []int{0, 2}, q.CorrectIndices())

	pub := q.Public()
	assert.Equal(t, q.ID, pub.ID)
	assert.Equal(t, []string{"a", "b", "c"}, pub.Options)
	assert.Equal(t, 4, pub.Difficulty)
}
