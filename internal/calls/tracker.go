package calls

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/caretrack/bedside/pkg/interfaces"
	"github.com/caretrack/bedside/pkg/logger"
	"github.com/caretrack/bedside/pkg/monitoring"
	"github.com/caretrack/bedside/pkg/types"
)

// Tracker manages active "call for help" sessions. Each patient has at most
// one active session; raising again refreshes the existing session and
// re-arms its expiry timer. Sessions expire on their own TTL unless
// acknowledged first.
type Tracker struct {
	records    interfaces.RecordsClient
	dispatcher interfaces.Dispatcher
	logger     *logger.Logger
	metrics    *monitoring.MetricsCollector
	ttl        time.Duration

	mu       sync.Mutex
	sessions map[string]*trackedSession // keyed by patient ID
	lastGen  uint64
}

// trackedSession pairs a session with its expiry timer. The generation
// counter lets a timer that already fired detect it lost the race to a
// refresh or acknowledgement and must not expire the newer session.
type trackedSession struct {
	session    *types.CallSession
	timer      *time.Timer
	generation uint64
}

// NewTracker creates a new call-session tracker
func NewTracker(
	records interfaces.RecordsClient,
	dispatcher interfaces.Dispatcher,
	log *logger.Logger,
	metrics *monitoring.MetricsCollector,
	ttl time.Duration,
) *Tracker {
	return &Tracker{
		records:    records,
		dispatcher: dispatcher,
		logger:     log,
		metrics:    metrics,
		ttl:        ttl,
		sessions:   make(map[string]*trackedSession),
	}
}

// Raise creates or refreshes the call session for a patient. The patient is
// resolved to a bed through the records system first; a patient with no
// current admission is rejected synchronously with a not-found error and
// nothing is tracked.
func (t *Tracker) Raise(ctx context.Context, patientID string) (*types.CallSession, error) {
	if patientID == "" {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "patient ID is required", nil)
	}

	location, err := t.records.GetAdmissionLocation(ctx, patientID)
	if err != nil {
		if types.IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to resolve admission location for patient %s: %w", patientID, err)
	}

	now := time.Now()
	session := &types.CallSession{
		ID:         uuid.New().String(),
		PatientID:  patientID,
		RoomNumber: location.RoomNumber,
		Floor:      location.Floor,
		BedNumber:  location.BedNumber,
		Department: location.Department,
		RaisedAt:   now,
		ExpiresAt:  now.Add(t.ttl),
	}

	t.mu.Lock()
	existing, refreshed := t.sessions[patientID]
	if refreshed {
		// Replace, never duplicate: the expiry now counts from this call.
		existing.timer.Stop()
	}

	t.lastGen++
	tracked := &trackedSession{
		session:    session,
		generation: t.lastGen,
	}
	generation := tracked.generation
	tracked.timer = time.AfterFunc(t.ttl, func() {
		t.expire(patientID, generation)
	})
	t.sessions[patientID] = tracked
	active := len(t.sessions)
	t.mu.Unlock()

	if t.metrics != nil {
		t.metrics.RecordCallRaised(session.Department)
		t.metrics.RecordActiveCalls(active)
	}
	t.logger.WithPatientID(patientID).Infof("Call raised for room %s bed %s (refreshed=%t)",
		session.RoomNumber, session.BedNumber, refreshed)

	t.dispatcher.Publish(types.NewCallRaisedAlert(session.Department, &types.CallRaisedEvent{
		PatientID:  patientID,
		RoomNumber: session.RoomNumber,
		Floor:      session.Floor,
		BedNumber:  session.BedNumber,
		RaisedAt:   session.RaisedAt,
		ExpiresAt:  session.ExpiresAt,
	}))

	return session, nil
}

// Acknowledge cancels the active session for a patient before its TTL. No
// expired event is emitted for an acknowledged call.
func (t *Tracker) Acknowledge(patientID string) error {
	t.mu.Lock()
	tracked, exists := t.sessions[patientID]
	if exists {
		tracked.timer.Stop()
		delete(t.sessions, patientID)
	}
	active := len(t.sessions)
	t.mu.Unlock()

	if !exists {
		return types.NewNotFoundError(types.ErrCodeNotFound,
			fmt.Sprintf("no active call session for patient %s", patientID))
	}

	if t.metrics != nil {
		t.metrics.RecordActiveCalls(active)
	}
	t.logger.WithPatientID(patientID).Info("Call acknowledged")
	return nil
}

// Active returns all currently active sessions
func (t *Tracker) Active() []*types.CallSession {
	t.mu.Lock()
	defer t.mu.Unlock()

	result := make([]*types.CallSession, 0, len(t.sessions))
	for _, tracked := range t.sessions {
		result = append(result, tracked.session)
	}
	return result
}

// Stop cancels all pending expiry timers
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for patientID, tracked := range t.sessions {
		tracked.timer.Stop()
		delete(t.sessions, patientID)
	}
}

// expire removes a session whose TTL elapsed and broadcasts the expiry so
// clients can clear their indicators. A timer belonging to a superseded
// generation does nothing.
func (t *Tracker) expire(patientID string, generation uint64) {
	t.mu.Lock()
	tracked, exists := t.sessions[patientID]
	if !exists || tracked.generation != generation {
		t.mu.Unlock()
		return
	}
	delete(t.sessions, patientID)
	session := tracked.session
	active := len(t.sessions)
	t.mu.Unlock()

	if t.metrics != nil {
		t.metrics.RecordCallExpired(session.Department)
		t.metrics.RecordActiveCalls(active)
	}
	t.logger.WithPatientID(patientID).Info("Call session expired unacknowledged")

	t.dispatcher.Publish(types.NewCallExpiredAlert(session.Department, &types.CallExpiredEvent{
		PatientID: patientID,
		ExpiredAt: time.Now(),
	}))
}
