package schedule

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShouldFire_FiresExactlyOnce(t *testing.T) {
	store := NewInMemoryDedupStore()
	ts := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC).Unix()

	assert.True(t, store.ShouldFire("t1", ts))
	assert.False(t, store.ShouldFire("t1", ts))
	assert.False(t, store.ShouldFire("t1", ts))
}

func TestShouldFire_DistinctOccurrences(t *testing.T) {
	store := NewInMemoryDedupStore()
	first := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

	assert.True(t, store.ShouldFire("t1", first.Unix()))

	// Same treatment, tomorrow's occurrence: fires again.
	assert.True(t, store.ShouldFire("t1", first.AddDate(0, 0, 1).Unix()))

	// Different treatment, same instant: fires independently.
	assert.True(t, store.ShouldFire("t2", first.Unix()))
}

func TestSweep_DropsOldEntries(t *testing.T) {
	store := NewInMemoryDedupStore()
	now := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

	store.ShouldFire("old", now.Add(-25*time.Hour).Unix())
	store.ShouldFire("recent", now.Add(-1*time.Hour).Unix())
	assert.Equal(t, 2, store.Len())

	store.Sweep(now.Add(-24 * time.Hour).Unix())

	assert.Equal(t, 1, store.Len())
	// The swept occurrence may fire again; the recent one stays suppressed.
	assert.True(t, store.ShouldFire("old", now.Add(-25*time.Hour).Unix()))
	assert.False(t, store.ShouldFire("recent", now.Add(-1*time.Hour).Unix()))
}

func TestShouldFire_ConcurrentCallersSingleWinner(t *testing.T) {
	store := NewInMemoryDedupStore()
	ts := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC).Unix()

	const callers = 32
	var wg sync.WaitGroup
	results := make(chan bool, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- store.ShouldFire("t1", ts)
		}()
	}
	wg.Wait()
	close(results)

	fired := 0
	for ok := range results {
		if ok {
			fired++
		}
	}
	assert.Equal(t, 1, fired)
}
