package schedule

import (
	"context"
	"sync"
	"time"

	"github.com/caretrack/bedside/pkg/interfaces"
	"github.com/caretrack/bedside/pkg/logger"
	"github.com/caretrack/bedside/pkg/monitoring"
	"github.com/caretrack/bedside/pkg/types"
)

// Poller refreshes the ward snapshot from the records system on its own
// interval, decoupled from the tick loop: the scheduler always reads the
// last-known-good snapshot, so a slow or failing records store never stalls
// alert timing.
type Poller struct {
	records    interfaces.RecordsClient
	logger     *logger.Logger
	metrics    *monitoring.MetricsCollector
	department string
	interval   time.Duration

	mu   sync.RWMutex
	snap *types.WardSnapshot
}

// NewPoller creates a new ward snapshot poller
func NewPoller(
	records interfaces.RecordsClient,
	log *logger.Logger,
	metrics *monitoring.MetricsCollector,
	department string,
	interval time.Duration,
) *Poller {
	return &Poller{
		records:    records,
		logger:     log,
		metrics:    metrics,
		department: department,
		interval:   interval,
	}
}

// Run refreshes immediately, then on every interval until the context is
// cancelled.
func (p *Poller) Run(ctx context.Context) {
	p.Refresh(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Refresh(ctx)
		}
	}
}

// Refresh loads occupied beds and their pending treatments. On failure the
// previous snapshot is kept: the scheduler keeps firing on a stale view
// rather than stopping, and the staleness is logged and exported.
func (p *Poller) Refresh(ctx context.Context) {
	beds, err := p.records.GetOccupiedBeds(ctx, p.department)
	if err != nil {
		p.recordFailure(err)
		return
	}

	prev := p.Snapshot()
	treatments := make(map[string][]*types.Treatment, len(beds))
	for _, bed := range beds {
		list, err := p.records.GetPendingTreatments(ctx, bed.ID)
		if err != nil {
			// One bed's failure must not lose the rest of the refresh:
			// carry over its previous treatment list and move on.
			p.logger.WithBedID(bed.ID).WithError(err).Warn("Failed to refresh treatments for bed")
			if prev != nil {
				treatments[bed.ID] = prev.Treatments[bed.ID]
			}
			continue
		}
		treatments[bed.ID] = list
	}

	snap := &types.WardSnapshot{
		Beds:        beds,
		Treatments:  treatments,
		RefreshedAt: time.Now(),
	}

	p.mu.Lock()
	p.snap = snap
	p.mu.Unlock()

	if p.metrics != nil {
		p.metrics.RecordSnapshotAge(0)
	}
}

// Snapshot returns the last-known-good ward snapshot; nil until the first
// successful refresh.
func (p *Poller) Snapshot() *types.WardSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snap
}

// RefreshedAt returns the time of the last successful refresh
func (p *Poller) RefreshedAt() time.Time {
	snap := p.Snapshot()
	if snap == nil {
		return time.Time{}
	}
	return snap.RefreshedAt
}

func (p *Poller) recordFailure(err error) {
	age := 0.0
	snap := p.Snapshot()
	if snap != nil {
		age = time.Since(snap.RefreshedAt).Seconds()
	}

	p.logger.StaleSnapshot(age, types.NewStaleSnapshotError(types.ErrCodeStaleSnapshot, "ward snapshot refresh failed", err))

	if p.metrics != nil {
		p.metrics.RecordSnapshotRefreshFailure()
		if snap != nil {
			p.metrics.RecordSnapshotAge(time.Since(snap.RefreshedAt))
		}
	}
}
