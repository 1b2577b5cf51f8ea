package schedule

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/caretrack/bedside/pkg/config"
	"github.com/caretrack/bedside/pkg/interfaces"
	"github.com/caretrack/bedside/pkg/logger"
	"github.com/caretrack/bedside/pkg/monitoring"
	"github.com/caretrack/bedside/pkg/types"
)

// Scheduler is the due-time tick loop. Once per tick it re-scans the ward
// snapshot, recomputes every pending treatment's next occurrence against a
// single clock reading, maintains the per-bed next-due projection, and
// fires TreatmentDueEvents through the dispatcher when an occurrence
// crosses its due instant. It is the only component that decides "it is
// time"; the dedup store guarantees each occurrence fires at most once even
// if the loop pauses and resumes.
type Scheduler struct {
	cfg        *config.SchedulerConfig
	logger     *logger.Logger
	metrics    *monitoring.MetricsCollector
	snapshots  interfaces.SnapshotSource
	dedup      interfaces.DedupStore
	dispatcher interfaces.Dispatcher

	// now is injected so tests can drive the clock
	now func() time.Time

	mu          sync.RWMutex
	projections map[string]*types.NextDueProjection // keyed by bed ID
	lastSweep   time.Time
}

// NewScheduler creates a new due-time scheduler
func NewScheduler(
	cfg *config.SchedulerConfig,
	log *logger.Logger,
	metrics *monitoring.MetricsCollector,
	snapshots interfaces.SnapshotSource,
	dedup interfaces.DedupStore,
	dispatcher interfaces.Dispatcher,
) *Scheduler {
	return &Scheduler{
		cfg:         cfg,
		logger:      log,
		metrics:     metrics,
		snapshots:   snapshots,
		dedup:       dedup,
		dispatcher:  dispatcher,
		now:         time.Now,
		projections: make(map[string]*types.NextDueProjection),
	}
}

// Run drives the tick loop until the context is cancelled
func (s *Scheduler) Run(ctx context.Context) {
	interval := time.Duration(s.cfg.TickInterval) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.WithComponent("scheduler").Infof("Tick loop started, interval %s", interval)

	for {
		select {
		case <-ctx.Done():
			s.logger.WithComponent("scheduler").Info("Tick loop stopped")
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Tick runs one evaluation pass over the current ward snapshot. All beds in
// the same pass see the same clock reading.
func (s *Scheduler) Tick() {
	start := time.Now()
	now := s.now()

	snap := s.snapshots.Snapshot()
	if snap == nil {
		return
	}

	next := make(map[string]*types.NextDueProjection, len(snap.Beds))
	for _, bed := range snap.Beds {
		if bed == nil {
			continue
		}
		// Each bed is evaluated independently; a bad record on one bed
		// never blocks alerts for the others.
		proj := s.evaluateBed(bed, snap.Treatments[bed.ID], now)
		if proj != nil {
			next[bed.ID] = proj
		}
	}

	s.mu.Lock()
	s.projections = next
	s.mu.Unlock()

	s.maybeSweep(now)

	if s.metrics != nil {
		s.metrics.RecordTick(time.Since(start))
	}
}

// evaluateBed computes the bed's single next-due projection and fires any
// occurrence inside the firing window. Returns nil when no pending
// treatment is due within the horizon.
func (s *Scheduler) evaluateBed(bed *types.Bed, treatments []*types.Treatment, now time.Time) *types.NextDueProjection {
	horizon := time.Duration(s.cfg.HorizonMinutes) * time.Minute
	warning := time.Duration(s.cfg.WarningMinutes) * time.Minute
	critical := time.Duration(s.cfg.CriticalMinutes) * time.Minute
	window := time.Duration(s.cfg.FiringWindow) * time.Second
	classifier := NewClassifier(horizon, warning, critical)

	var (
		best          *types.Occurrence
		bestTreatment *types.Treatment
	)

	for _, t := range treatments {
		if t == nil {
			continue
		}

		// Fire anything crossing its due instant, regardless of which
		// occurrence currently projects as "next".
		for _, occ := range DueWithinWindow(t, now, window) {
			s.fire(bed, t, occ)
		}

		occ, ok := NextOccurrence(t, now)
		if !ok {
			continue
		}

		secondsUntil := int64(occ.ScheduledAt.Sub(now) / time.Second)
		if !classifier.WithinHorizon(secondsUntil) {
			continue
		}

		if best == nil || occ.ScheduledAt.Before(best.ScheduledAt) ||
			(occ.ScheduledAt.Equal(best.ScheduledAt) && occ.TreatmentID < best.TreatmentID) {
			best = occ
			bestTreatment = t
		}
	}

	if best == nil {
		return nil
	}

	secondsUntil := int64(best.ScheduledAt.Sub(now) / time.Second)
	return &types.NextDueProjection{
		BedID:            bed.ID,
		RoomNumber:       bed.RoomNumber,
		BedNumber:        bed.BedNumber,
		Department:       bed.Department,
		PatientID:        bed.PatientID,
		PatientName:      bed.PatientName,
		TreatmentID:      bestTreatment.ID,
		Medication:       bestTreatment.Medication,
		Dosage:           bestTreatment.Dosage,
		ScheduledAt:      best.ScheduledAt,
		SecondsRemaining: secondsUntil,
		Urgency:          classifier.Classify(secondsUntil),
	}
}

// fire emits a TreatmentDueEvent for the occurrence unless the dedup store
// has already seen it.
func (s *Scheduler) fire(bed *types.Bed, t *types.Treatment, occ *types.Occurrence) {
	if !s.dedup.ShouldFire(occ.TreatmentID, occ.ScheduledAt.Unix()) {
		if s.metrics != nil {
			s.metrics.RecordDuplicateSuppressed()
		}
		return
	}

	event := &types.TreatmentDueEvent{
		PatientID:   bed.PatientID,
		PatientName: bed.PatientName,
		TreatmentID: t.ID,
		BedID:       bed.ID,
		RoomNumber:  bed.RoomNumber,
		BedNumber:   bed.BedNumber,
		Medication:  t.Medication,
		Dosage:      t.Dosage,
		ScheduledAt: occ.ScheduledAt,
	}
	s.dispatcher.Publish(types.NewTreatmentDueAlert(bed.Department, event))

	if s.metrics != nil {
		s.metrics.RecordTreatmentAlert(bed.Department)
	}
	s.logger.Alert(string(types.EventTreatmentDue), bed.PatientID, bed.Department, map[string]interface{}{
		"treatment_id": t.ID,
		"medication":   t.Medication,
		"scheduled_at": occ.ScheduledAt,
	})
}

// maybeSweep garbage-collects fired occurrences older than the retention
// window, at most once per hour.
func (s *Scheduler) maybeSweep(now time.Time) {
	if !s.lastSweep.IsZero() && now.Sub(s.lastSweep) < time.Hour {
		return
	}
	s.lastSweep = now

	retention := time.Duration(s.cfg.DedupRetentionHours) * time.Hour
	s.dedup.Sweep(now.Add(-retention).Unix())
}

// NextDue returns the current per-bed next-due projections, optionally
// filtered by department, sorted by bed ID for stable output.
func (s *Scheduler) NextDue(departmentFilter string) []*types.NextDueProjection {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*types.NextDueProjection, 0, len(s.projections))
	for _, proj := range s.projections {
		if departmentFilter != "" && proj.Department != departmentFilter {
			continue
		}
		result = append(result, proj)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].BedID < result[j].BedID
	})
	return result
}
