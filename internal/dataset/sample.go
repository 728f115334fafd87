package dataset

import (
	"math/rand"
	"time"
)

// Sampler selects prompts without replacement.
type Sampler struct {
	rnd *rand.Rand
}

// NewSampler returns a Sampler seeded with the current time.
func NewSampler() *Sampler {
	return NewSeededSampler(time.Now().UnixNano())
}

// NewSeededSampler returns a Sampler with a fixed seed.
func NewSeededSampler(seed int64) *Sampler {
	return &Sampler{rnd: rand.New(rand.NewSource(seed))}
}

// Sample returns min(n, len(lines)) distinct entries in random order. The
// input slice is not modified.
func (s *Sampler) Sample(lines []string, n int) []string {
	if n <= 0 || n > len(lines) {
		n = len(lines)
	}
	pool := make([]string, len(lines))
	copy(pool, lines)
	for i := 0; i < n; i++ {
		j := i + s.rnd.Intn(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:n]
}
