package schedule

import (
	"time"

	"github.com/caretrack/bedside/pkg/types"
)

// NextOccurrence computes the next absolute instant at which the treatment
// is due, evaluated against now. For each scheduled time of day the
// candidate is "today at that time"; a candidate at or before now rolls to
// tomorrow. The earliest candidate wins.
//
// The function is pure: it carries no state between ticks, so the tick loop
// can re-evaluate it freely. One-shot firing is the dedup store's job.
func NextOccurrence(t *types.Treatment, now time.Time) (*types.Occurrence, bool) {
	if t == nil || t.Status != types.TreatmentPending || len(t.ScheduleTimes) == 0 {
		return nil, false
	}

	var next time.Time
	for _, ct := range t.ScheduleTimes {
		candidate := ct.On(now)
		if !candidate.After(now) {
			candidate = candidate.AddDate(0, 0, 1)
		}
		if next.IsZero() || candidate.Before(next) {
			next = candidate
		}
	}

	return &types.Occurrence{
		TreatmentID: t.ID,
		ScheduledAt: next,
	}, true
}

// DueWithinWindow returns the occurrences of the treatment whose scheduled
// instant lies inside the firing window ending at now, i.e. instants t with
// 0 <= now-t <= window. The window absorbs tick jitter: a loop ticking
// slightly slower than once per second still observes the crossing. The
// check runs against the raw difference, not truncated minute/second
// fields, so a widened window cannot be skipped over. Yesterday's
// candidates are checked too: a dose scheduled late in the day whose window
// straddles midnight still fires after the date rolls over.
func DueWithinWindow(t *types.Treatment, now time.Time, window time.Duration) []*types.Occurrence {
	if t == nil || t.Status != types.TreatmentPending || len(t.ScheduleTimes) == 0 {
		return nil
	}

	var due []*types.Occurrence
	for _, ct := range t.ScheduleTimes {
		for _, instant := range []time.Time{ct.On(now), ct.On(now.AddDate(0, 0, -1))} {
			elapsed := now.Sub(instant)
			if elapsed >= 0 && elapsed <= window {
				due = append(due, &types.Occurrence{
					TreatmentID: t.ID,
					ScheduledAt: instant,
				})
			}
		}
	}
	return due
}
