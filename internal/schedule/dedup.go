package schedule

import (
	"fmt"
	"sync"
)

// InMemoryDedupStore remembers which (treatment, occurrence) pairs have
// already fired. ShouldFire is the one check-and-set that must be atomic: a
// race between the tick loop and any other evaluation path must never
// double-fire or lose a firing, so both the lookup and the insert happen
// under a single lock.
type InMemoryDedupStore struct {
	mu    sync.Mutex
	fired map[string]int64 // fire key -> occurrence unix timestamp
}

// NewInMemoryDedupStore creates an empty dedup store
func NewInMemoryDedupStore() *InMemoryDedupStore {
	return &InMemoryDedupStore{
		fired: make(map[string]int64),
	}
}

// ShouldFire returns true exactly once per distinct (treatmentID,
// scheduledAt) pair and false on every subsequent call for the same pair.
func (s *InMemoryDedupStore) ShouldFire(treatmentID string, scheduledAt int64) bool {
	key := fireKey(treatmentID, scheduledAt)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.fired[key]; exists {
		return false
	}
	s.fired[key] = scheduledAt
	return true
}

// Sweep drops entries whose occurrence timestamp is at or before the cutoff.
// Without this the store grows without bound, which is a correctness bug,
// not just wasted memory.
func (s *InMemoryDedupStore) Sweep(cutoff int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, ts := range s.fired {
		if ts <= cutoff {
			delete(s.fired, key)
		}
	}
}

// Len returns the number of remembered occurrences
func (s *InMemoryDedupStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fired)
}

func fireKey(treatmentID string, scheduledAt int64) string {
	return fmt.Sprintf("%s@%d", treatmentID, scheduledAt)
}
