package schedule

import (
	"context"
	"errors"
	"testing"

	"github.com/caretrack/bedside/pkg/logger"
	"github.com/caretrack/bedside/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockRecordsClient is a mock implementation of RecordsClient
type MockRecordsClient struct {
	mock.Mock
}

func (m *MockRecordsClient) GetOccupiedBeds(ctx context.Context, departmentFilter string) ([]*types.Bed, error) {
	args := m.Called(ctx, departmentFilter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.Bed), args.Error(1)
}

func (m *MockRecordsClient) GetPendingTreatments(ctx context.Context, bedID string) ([]*types.Treatment, error) {
	args := m.Called(ctx, bedID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.Treatment), args.Error(1)
}

func (m *MockRecordsClient) GetAdmissionLocation(ctx context.Context, patientID string) (*types.AdmissionLocation, error) {
	args := m.Called(ctx, patientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.AdmissionLocation), args.Error(1)
}

func setupPoller(department string) (*Poller, *MockRecordsClient) {
	records := &MockRecordsClient{}
	poller := NewPoller(records, logger.New("error"), nil, department, 0)
	return poller, records
}

func TestRefresh_BuildsSnapshot(t *testing.T) {
	poller, records := setupPoller("")
	beds := []*types.Bed{bed("bed-1", "patient-1")}
	treatments := []*types.Treatment{pendingTreatment("t1", "14:00")}
	records.On("GetOccupiedBeds", mock.Anything, "").Return(beds, nil)
	records.On("GetPendingTreatments", mock.Anything, "bed-1").Return(treatments, nil)

	require.Nil(t, poller.Snapshot())
	poller.Refresh(context.Background())

	snap := poller.Snapshot()
	require.NotNil(t, snap)
	assert.Equal(t, beds, snap.Beds)
	assert.Equal(t, treatments, snap.Treatments["bed-1"])
	assert.False(t, snap.RefreshedAt.IsZero())
	assert.Equal(t, snap.RefreshedAt, poller.RefreshedAt())
}

func TestRefresh_PassesDepartmentFilter(t *testing.T) {
	poller, records := setupPoller("icu")
	records.On("GetOccupiedBeds", mock.Anything, "icu").Return([]*types.Bed{}, nil)

	poller.Refresh(context.Background())

	records.AssertExpectations(t)
}

func TestRefresh_FailureKeepsLastGoodSnapshot(t *testing.T) {
	poller, records := setupPoller("")
	beds := []*types.Bed{bed("bed-1", "patient-1")}
	records.On("GetOccupiedBeds", mock.Anything, "").Return(beds, nil).Once()
	records.On("GetPendingTreatments", mock.Anything, "bed-1").Return([]*types.Treatment{}, nil).Once()

	poller.Refresh(context.Background())
	good := poller.Snapshot()
	require.NotNil(t, good)

	records.On("GetOccupiedBeds", mock.Anything, "").Return(nil, errors.New("connection refused"))
	poller.Refresh(context.Background())

	// The scheduler keeps working on the stale view.
	assert.Same(t, good, poller.Snapshot())
	assert.Equal(t, good.RefreshedAt, poller.RefreshedAt())
}

func TestRefresh_BedFailureCarriesOverPreviousTreatments(t *testing.T) {
	poller, records := setupPoller("")
	beds := []*types.Bed{bed("bed-1", "patient-1")}
	treatments := []*types.Treatment{pendingTreatment("t1", "14:00")}
	records.On("GetOccupiedBeds", mock.Anything, "").Return(beds, nil)
	records.On("GetPendingTreatments", mock.Anything, "bed-1").Return(treatments, nil).Once()

	poller.Refresh(context.Background())

	records.On("GetPendingTreatments", mock.Anything, "bed-1").Return(nil, errors.New("timeout")).Once()
	poller.Refresh(context.Background())

	snap := poller.Snapshot()
	require.NotNil(t, snap)
	assert.Equal(t, treatments, snap.Treatments["bed-1"])
}

func TestRefreshedAt_ZeroBeforeFirstRefresh(t *testing.T) {
	poller, _ := setupPoller("")

	assert.True(t, poller.RefreshedAt().IsZero())
}
