package schedule

import (
	"sync"
	"testing"
	"time"

	"github.com/caretrack/bedside/pkg/config"
	"github.com/caretrack/bedside/pkg/interfaces"
	"github.com/caretrack/bedside/pkg/logger"
	"github.com/caretrack/bedside/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSnapshotSource serves a fixed ward snapshot
type stubSnapshotSource struct {
	snap *types.WardSnapshot
}

func (s *stubSnapshotSource) Snapshot() *types.WardSnapshot {
	return s.snap
}

// captureDispatcher records every published event
type captureDispatcher struct {
	mu     sync.Mutex
	events []*types.AlertEvent
}

func (d *captureDispatcher) Publish(event *types.AlertEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
}

func (d *captureDispatcher) Subscribe(sink interfaces.EventSink, department string) string { return "" }
func (d *captureDispatcher) Unsubscribe(handle string)                                     {}
func (d *captureDispatcher) SubscriberCount() int                                          { return 0 }

func (d *captureDispatcher) published() []*types.AlertEvent {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*types.AlertEvent(nil), d.events...)
}

func testSchedulerConfig() *config.SchedulerConfig {
	return &config.SchedulerConfig{
		TickInterval:        1,
		HorizonMinutes:      30,
		WarningMinutes:      15,
		CriticalMinutes:     5,
		FiringWindow:        3,
		DedupRetentionHours: 24,
	}
}

func wardWith(beds []*types.Bed, treatments map[string][]*types.Treatment) *stubSnapshotSource {
	return &stubSnapshotSource{snap: &types.WardSnapshot{
		Beds:        beds,
		Treatments:  treatments,
		RefreshedAt: time.Now(),
	}}
}

func setupScheduler(snapshots interfaces.SnapshotSource, clock func() time.Time) (*Scheduler, *captureDispatcher) {
	dispatcher := &captureDispatcher{}
	s := NewScheduler(
		testSchedulerConfig(),
		logger.New("error"),
		nil,
		snapshots,
		NewInMemoryDedupStore(),
		dispatcher,
	)
	s.now = clock
	return s, dispatcher
}

func bed(id, patientID string) *types.Bed {
	return &types.Bed{
		ID:          id,
		RoomNumber:  "302",
		BedNumber:   "B",
		Department:  "cardiology",
		PatientID:   patientID,
		PatientName: "Maria Jensen",
	}
}

func TestTick_ProjectionUrgencyProgression(t *testing.T) {
	treatment := pendingTreatment("t1", "08:00", "14:00", "20:00")
	snapshots := wardWith([]*types.Bed{bed("bed-1", "patient-1")},
		map[string][]*types.Treatment{"bed-1": {treatment}})

	clock := at(13, 46, 0)
	s, _ := setupScheduler(snapshots, func() time.Time { return clock })

	// 14 minutes out: inside the warning tier.
	s.Tick()
	projections := s.NextDue("")
	require.Len(t, projections, 1)
	assert.Equal(t, at(14, 0, 0), projections[0].ScheduledAt)
	assert.Equal(t, int64(840), projections[0].SecondsRemaining)
	assert.Equal(t, types.UrgencyWarning, projections[0].Urgency)

	// 299 seconds out: critical.
	clock = at(13, 55, 1)
	s.Tick()
	projections = s.NextDue("")
	require.Len(t, projections, 1)
	assert.Equal(t, types.UrgencyCritical, projections[0].Urgency)
}

func TestTick_FiresOnceInsideWindow(t *testing.T) {
	treatment := pendingTreatment("t1", "14:00")
	snapshots := wardWith([]*types.Bed{bed("bed-1", "patient-1")},
		map[string][]*types.Treatment{"bed-1": {treatment}})

	clock := at(14, 0, 2)
	s, dispatcher := setupScheduler(snapshots, func() time.Time { return clock })

	s.Tick()

	events := dispatcher.published()
	require.Len(t, events, 1)
	assert.Equal(t, types.EventTreatmentDue, events[0].Type)
	assert.Equal(t, "cardiology", events[0].Department)
	require.NotNil(t, events[0].TreatmentDue)
	assert.Equal(t, "t1", events[0].TreatmentDue.TreatmentID)
	assert.Equal(t, at(14, 0, 0), events[0].TreatmentDue.ScheduledAt)

	// Subsequent ticks inside the same window stay silent.
	clock = at(14, 0, 3)
	s.Tick()
	s.Tick()
	assert.Len(t, dispatcher.published(), 1)
}

func TestTick_ProjectionMovesOnAfterFiring(t *testing.T) {
	treatment := pendingTreatment("t1", "14:00", "20:00")
	snapshots := wardWith([]*types.Bed{bed("bed-1", "patient-1")},
		map[string][]*types.Treatment{"bed-1": {treatment}})

	clock := at(14, 0, 2)
	s, _ := setupScheduler(snapshots, func() time.Time { return clock })

	s.Tick()

	// The 20:00 dose is hours away, past the horizon, so the bed drops off
	// the projection entirely rather than showing a distant dose.
	assert.Empty(t, s.NextDue(""))
}

func TestTick_MissedTickStillFires(t *testing.T) {
	treatment := pendingTreatment("t1", "14:00")
	snapshots := wardWith([]*types.Bed{bed("bed-1", "patient-1")},
		map[string][]*types.Treatment{"bed-1": {treatment}})

	// The loop was paused over the due instant; the first tick afterwards
	// lands at the window edge and still observes the crossing.
	clock := at(14, 0, 3)
	s, dispatcher := setupScheduler(snapshots, func() time.Time { return clock })

	s.Tick()

	assert.Len(t, dispatcher.published(), 1)
}

func TestTick_BeyondHorizonNotSurfaced(t *testing.T) {
	treatment := pendingTreatment("t1", "20:00")
	snapshots := wardWith([]*types.Bed{bed("bed-1", "patient-1")},
		map[string][]*types.Treatment{"bed-1": {treatment}})

	s, dispatcher := setupScheduler(snapshots, func() time.Time { return at(13, 0, 0) })

	s.Tick()

	assert.Empty(t, s.NextDue(""))
	assert.Empty(t, dispatcher.published())
}

func TestTick_TieBreaksOnTreatmentID(t *testing.T) {
	a := pendingTreatment("t-a", "14:00")
	b := pendingTreatment("t-b", "14:00")
	snapshots := wardWith([]*types.Bed{bed("bed-1", "patient-1")},
		map[string][]*types.Treatment{"bed-1": {b, a}})

	s, _ := setupScheduler(snapshots, func() time.Time { return at(13, 50, 0) })

	s.Tick()

	projections := s.NextDue("")
	require.Len(t, projections, 1)
	assert.Equal(t, "t-a", projections[0].TreatmentID)
}

func TestTick_BothSimultaneousOccurrencesFire(t *testing.T) {
	a := pendingTreatment("t-a", "14:00")
	b := pendingTreatment("t-b", "14:00")
	snapshots := wardWith([]*types.Bed{bed("bed-1", "patient-1")},
		map[string][]*types.Treatment{"bed-1": {a, b}})

	s, dispatcher := setupScheduler(snapshots, func() time.Time { return at(14, 0, 1) })

	s.Tick()

	// The projection tie-break picks one, but firing is per occurrence:
	// both doses cross their instant and both alerts go out.
	assert.Len(t, dispatcher.published(), 2)
}

func TestNextDue_DepartmentFilterAndOrder(t *testing.T) {
	cardio := bed("bed-2", "patient-2")
	icu := bed("bed-1", "patient-1")
	icu.Department = "icu"
	snapshots := wardWith([]*types.Bed{cardio, icu}, map[string][]*types.Treatment{
		"bed-1": {pendingTreatment("t1", "14:00")},
		"bed-2": {pendingTreatment("t2", "14:10")},
	})

	s, _ := setupScheduler(snapshots, func() time.Time { return at(13, 50, 0) })
	s.Tick()

	all := s.NextDue("")
	require.Len(t, all, 2)
	assert.Equal(t, "bed-1", all[0].BedID)
	assert.Equal(t, "bed-2", all[1].BedID)

	icuOnly := s.NextDue("icu")
	require.Len(t, icuOnly, 1)
	assert.Equal(t, "bed-1", icuOnly[0].BedID)
}

func TestTick_NilSnapshotIsNoop(t *testing.T) {
	s, dispatcher := setupScheduler(&stubSnapshotSource{}, func() time.Time { return at(14, 0, 0) })

	s.Tick()

	assert.Empty(t, dispatcher.published())
	assert.Empty(t, s.NextDue(""))
}
