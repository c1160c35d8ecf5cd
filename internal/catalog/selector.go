package catalog

import (
	"math/rand"
	"sync"
)

// NewLockedRand returns a rand.Rand safe for use from concurrent
// request handlers.
func NewLockedRand(seed int64) *rand.Rand {
	return rand.New(&lockedSource{src: rand.NewSource(seed)})
}

type lockedSource struct {
	mu  sync.Mutex
	src rand.Source
}

func (s *lockedSource) Int63() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Int63()
}

func (s *lockedSource) Seed(seed int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.src.Seed(seed)
}

// SkillPool is one skill's candidate questions for selection.
type SkillPool struct {
	SkillID     int64
	QuestionIDs []int64
}

// Selector draws a balanced question set across skills. Each skill gets
// an equal quota, leftover slots are filled from whatever remains, and
// the final plan order is shuffled so skills do not appear in blocks.
type Selector struct{ rng *rand.Rand }

func NewSelector(rng *rand.Rand) *Selector { return &Selector{rng: rng} }

// Select picks up to count question IDs from the pools. Fewer are
// returned when the pools cannot cover the request. A question linked
// to several skills is only ever picked once.
func (s *Selector) Select(pools []SkillPool, count int) []int64 {
	if count <= 0 || len(pools) == 0 {
		return nil
	}
	quota := count / len(pools)
	if quota < 1 {
		quota = 1
	}

	picked := make([]int64, 0, count)
	seen := make(map[int64]bool)
	var leftovers []int64

	for _, pool := range pools {
		ids := append([]int64(nil), pool.QuestionIDs...)
		s.rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
		taken := 0
		for _, id := range ids {
			if seen[id] {
				continue
			}
			if taken < quota {
				picked = append(picked, id)
				seen[id] = true
				taken++
			} else {
				leftovers = append(leftovers, id)
			}
		}
	}

	s.rng.Shuffle(len(leftovers), func(i, j int) { leftovers[i], leftovers[j] = leftovers[j], leftovers[i] })
	for _, id := range leftovers {
		if len(picked) >= count {
			break
		}
		if seen[id] {
			continue
		}
		picked = append(picked, id)
		seen[id] = true
	}

	s.rng.Shuffle(len(picked), func(i, j int) { picked[i], picked[j] = picked[j], picked[i] })
	if len(picked) > count {
		picked = picked[:count]
	}
	return picked
}
