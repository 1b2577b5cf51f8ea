package interfaces

import (
	"context"

	"github.com/caretrack/bedside/pkg/types"
)

// RecordsClient defines the read-only contract against the hospital records
// system. The alert service never writes patient data; it consumes occupied
// beds, pending treatments and admission locations.
type RecordsClient interface {
	// GetOccupiedBeds returns occupied beds, optionally filtered by department
	GetOccupiedBeds(ctx context.Context, departmentFilter string) ([]*types.Bed, error)

	// GetPendingTreatments returns pending treatments for a bed
	GetPendingTreatments(ctx context.Context, bedID string) ([]*types.Treatment, error)

	// GetAdmissionLocation resolves a patient to a locatable bed; returns a
	// not-found error when the patient has no current admission
	GetAdmissionLocation(ctx context.Context, patientID string) (*types.AdmissionLocation, error)
}

// SnapshotSource provides the last-known-good ward snapshot to the tick
// loop. Implementations refresh asynchronously; Snapshot must never block
// on external I/O.
type SnapshotSource interface {
	Snapshot() *types.WardSnapshot
}

// Dispatcher defines the fan-out bus delivering alert events to connected
// staff clients. Delivery is best-effort and at-most-once per connected
// subscriber per publish; events are not persisted or redelivered.
type Dispatcher interface {
	// Publish fans the event out to every matching subscriber
	Publish(event *types.AlertEvent)

	// Subscribe registers a sink with an optional department filter and
	// returns the subscription handle
	Subscribe(sink EventSink, department string) string

	// Unsubscribe removes a subscription by handle
	Unsubscribe(handle string)

	// SubscriberCount returns the number of connected subscribers
	SubscriberCount() int
}

// EventSink receives events for one subscriber. Send must not block the
// dispatcher: implementations report failure instead of waiting, and a
// failed sink is unregistered.
type EventSink interface {
	Send(event *types.AlertEvent) error
	Close() error
}

// CallTracker defines the self-expiring call-session state machine
type CallTracker interface {
	// Raise creates or refreshes the session for a patient and returns it;
	// a patient with no known admission yields a not-found error
	Raise(ctx context.Context, patientID string) (*types.CallSession, error)

	// Acknowledge cancels the session for a patient before its TTL expiry
	Acknowledge(patientID string) error

	// Active returns all currently active sessions
	Active() []*types.CallSession

	// Stop cancels all pending expiry timers
	Stop()
}

// DedupStore remembers which (treatment, occurrence) pairs already fired so
// the per-second re-evaluation never double-fires.
type DedupStore interface {
	// ShouldFire returns true exactly once per distinct pair
	ShouldFire(treatmentID string, scheduledAt int64) bool

	// Sweep drops entries whose occurrence is older than the retention cutoff
	Sweep(cutoff int64)
}

// AlertService defines the operations exposed by the bedside alert service
type AlertService interface {
	// RaiseCall handles the synchronous call-raise endpoint
	RaiseCall(ctx context.Context, patientID string) (*types.CallSession, error)

	// AcknowledgeCall cancels an active call session
	AcknowledgeCall(patientID string) error

	// ActiveCalls lists currently active call sessions
	ActiveCalls() []*types.CallSession

	// NextDue returns the per-bed next-due projection, optionally filtered
	// by department
	NextDue(departmentFilter string) []*types.NextDueProjection

	// Service lifecycle
	Start(addr string) error
	Stop() error
}
