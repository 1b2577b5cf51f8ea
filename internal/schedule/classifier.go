package schedule

import (
	"time"

	"github.com/caretrack/bedside/pkg/types"
)

// Classifier maps time-until-due to an urgency tier. Occurrences beyond the
// horizon are not surfaced at all; WithinHorizon gates that before Classify
// is consulted.
type Classifier struct {
	horizon  time.Duration
	warning  time.Duration
	critical time.Duration
}

// NewClassifier creates a classifier with the given horizon and tier
// thresholds. Boundary values belong to the more urgent bucket.
func NewClassifier(horizon, warning, critical time.Duration) *Classifier {
	return &Classifier{
		horizon:  horizon,
		warning:  warning,
		critical: critical,
	}
}

// WithinHorizon reports whether an occurrence this many seconds away should
// be surfaced at all. The horizon boundary itself is included.
func (c *Classifier) WithinHorizon(secondsUntilDue int64) bool {
	return secondsUntilDue <= int64(c.horizon/time.Second)
}

// Classify maps seconds-until-due to an urgency tier
func (c *Classifier) Classify(secondsUntilDue int64) types.Urgency {
	switch {
	case secondsUntilDue <= int64(c.critical/time.Second):
		return types.UrgencyCritical
	case secondsUntilDue <= int64(c.warning/time.Second):
		return types.UrgencyWarning
	default:
		return types.UrgencyNormal
	}
}
