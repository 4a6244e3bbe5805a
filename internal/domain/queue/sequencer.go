package queue

import (
	"math/rand/v2"
	"sync"
)

// Sequencer decides which index plays next.
// It is safe for concurrent use by multiple sessions.
type Sequencer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSequencer creates a sequencer. A nil rng uses a randomly seeded source.
func NewSequencer(rng *rand.Rand) *Sequencer {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Sequencer{rng: rng}
}

// Next returns the index to play after the current one.
// ok is false when the playlist instance is exhausted.
func (q *Sequencer) Next(s State) (index int, ok bool) {
	candidates := s.Candidates()
	if len(candidates) == 0 {
		return 0, false
	}
	if !s.Shuffle {
		return candidates[0], true
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	return candidates[q.rng.IntN(len(candidates))], true
}
