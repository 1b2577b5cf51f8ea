package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/caretrack/bedside/internal/dispatch"
	"github.com/caretrack/bedside/internal/schedule"
	"github.com/caretrack/bedside/pkg/config"
	"github.com/caretrack/bedside/pkg/logger"
	"github.com/caretrack/bedside/pkg/types"
)

// MockCallTracker is a mock implementation of CallTracker
type MockCallTracker struct {
	mock.Mock
}

func (m *MockCallTracker) Raise(ctx context.Context, patientID string) (*types.CallSession, error) {
	args := m.Called(ctx, patientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.CallSession), args.Error(1)
}

func (m *MockCallTracker) Acknowledge(patientID string) error {
	args := m.Called(patientID)
	return args.Error(0)
}

func (m *MockCallTracker) Active() []*types.CallSession {
	args := m.Called()
	return args.Get(0).([]*types.CallSession)
}

func (m *MockCallTracker) Stop() {
	m.Called()
}

// stubSnapshotSource serves a fixed ward snapshot to the scheduler
type stubSnapshotSource struct {
	snap *types.WardSnapshot
}

func (s *stubSnapshotSource) Snapshot() *types.WardSnapshot {
	return s.snap
}

// Test setup helper
func setupTestService(snap *types.WardSnapshot) (*Service, *MockCallTracker, *mux.Router) {
	cfg := &config.Config{
		Scheduler: config.SchedulerConfig{
			TickInterval:        1,
			HorizonMinutes:      30,
			WarningMinutes:      15,
			CriticalMinutes:     5,
			FiringWindow:        3,
			DedupRetentionHours: 24,
		},
	}
	log := logger.New("error")
	mockTracker := &MockCallTracker{}
	hub := dispatch.NewHub(log, nil)

	scheduler := schedule.NewScheduler(
		&cfg.Scheduler,
		log,
		nil,
		&stubSnapshotSource{snap: snap},
		schedule.NewInMemoryDedupStore(),
		hub,
	)

	service := &Service{
		config:    cfg,
		logger:    log,
		hub:       hub,
		scheduler: scheduler,
		tracker:   mockTracker,
	}

	router := mux.NewRouter()
	service.setupRoutes(router)
	return service, mockTracker, router
}

func activeSession(patientID string) *types.CallSession {
	now := time.Now()
	return &types.CallSession{
		ID:         "session-1",
		PatientID:  patientID,
		RoomNumber: "302",
		Floor:      "3",
		BedNumber:  "B",
		Department: "cardiology",
		RaisedAt:   now,
		ExpiresAt:  now.Add(30 * time.Second),
	}
}

func TestRaiseCallHandler_Success(t *testing.T) {
	_, mockTracker, router := setupTestService(nil)
	mockTracker.On("Raise", mock.Anything, "patient-1").Return(activeSession("patient-1"), nil)

	body, _ := json.Marshal(&types.CallRequest{PatientID: "patient-1"})
	req := httptest.NewRequest("POST", "/api/v1/calls", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp types.CallResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "patient-1", resp.PatientID)
	assert.Equal(t, "302", resp.RoomNumber)
	assert.Equal(t, "cardiology", resp.Department)
	mockTracker.AssertExpectations(t)
}

func TestRaiseCallHandler_InvalidBody(t *testing.T) {
	_, _, router := setupTestService(nil)

	req := httptest.NewRequest("POST", "/api/v1/calls", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRaiseCallHandler_MissingPatientID(t *testing.T) {
	_, _, router := setupTestService(nil)

	req := httptest.NewRequest("POST", "/api/v1/calls", bytes.NewReader([]byte("{}")))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRaiseCallHandler_PatientNotAdmitted(t *testing.T) {
	_, mockTracker, router := setupTestService(nil)
	mockTracker.On("Raise", mock.Anything, "ghost").Return(nil,
		types.NewNotFoundError(types.ErrCodePatientNotAdmitted, "no current admission"))

	body, _ := json.Marshal(&types.CallRequest{PatientID: "ghost"})
	req := httptest.NewRequest("POST", "/api/v1/calls", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAcknowledgeCallHandler_Success(t *testing.T) {
	_, mockTracker, router := setupTestService(nil)
	mockTracker.On("Acknowledge", "patient-1").Return(nil)

	req := httptest.NewRequest("POST", "/api/v1/calls/patient-1/ack", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, true, resp["acknowledged"])
	mockTracker.AssertExpectations(t)
}

func TestAcknowledgeCallHandler_NoSession(t *testing.T) {
	_, mockTracker, router := setupTestService(nil)
	mockTracker.On("Acknowledge", "patient-1").Return(
		types.NewNotFoundError(types.ErrCodeNotFound, "no active call session"))

	req := httptest.NewRequest("POST", "/api/v1/calls/patient-1/ack", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestActiveCallsHandler(t *testing.T) {
	_, mockTracker, router := setupTestService(nil)
	mockTracker.On("Active").Return([]*types.CallSession{activeSession("patient-1")})

	req := httptest.NewRequest("GET", "/api/v1/calls", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var sessions []*types.CallSession
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&sessions))
	require.Len(t, sessions, 1)
	assert.Equal(t, "patient-1", sessions[0].PatientID)
}

func TestNextDueHandler(t *testing.T) {
	now := time.Now()
	due := now.Add(10 * time.Minute)
	snap := &types.WardSnapshot{
		Beds: []*types.Bed{{
			ID:          "bed-1",
			RoomNumber:  "302",
			BedNumber:   "B",
			Department:  "cardiology",
			PatientID:   "patient-1",
			PatientName: "Maria Jensen",
		}},
		Treatments: map[string][]*types.Treatment{
			"bed-1": {{
				ID:            "t1",
				PatientID:     "patient-1",
				BedID:         "bed-1",
				Medication:    "amoxicillin",
				Dosage:        "500mg",
				ScheduleTimes: []types.ClockTime{{Hour: due.Hour(), Minute: due.Minute()}},
				Status:        types.TreatmentPending,
			}},
		},
		RefreshedAt: now,
	}

	service, _, router := setupTestService(snap)
	service.scheduler.Tick()

	req := httptest.NewRequest("GET", "/api/v1/beds/next-due", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var projections []*types.NextDueProjection
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&projections))
	require.Len(t, projections, 1)
	assert.Equal(t, "bed-1", projections[0].BedID)
	assert.Equal(t, "t1", projections[0].TreatmentID)
	assert.Equal(t, types.UrgencyWarning, projections[0].Urgency)

	// A non-matching department filter yields an empty projection.
	req = httptest.NewRequest("GET", "/api/v1/beds/next-due?department=icu", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.NoError(t, json.NewDecoder(rec.Body).Decode(&projections))
	assert.Empty(t, projections)
}

func TestHealthCheckHandler_NoManagerFallback(t *testing.T) {
	_, _, router := setupTestService(nil)

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "healthy", resp["status"])
}
