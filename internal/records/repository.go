package records

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/caretrack/bedside/pkg/database"
	"github.com/caretrack/bedside/pkg/interfaces"
	"github.com/caretrack/bedside/pkg/logger"
	"github.com/caretrack/bedside/pkg/types"
)

// Repository implements the RecordsClient interface against the hospital
// records database. All access is read-only: admissions, beds and
// treatments are owned by the records system.
type Repository struct {
	db     *database.DB
	logger *logger.Logger
}

// NewRepository creates a new records repository
func NewRepository(db *database.DB, log *logger.Logger) interfaces.RecordsClient {
	return &Repository{
		db:     db,
		logger: log,
	}
}

// GetOccupiedBeds returns occupied beds with their current admission,
// optionally restricted to one department
func (r *Repository) GetOccupiedBeds(ctx context.Context, departmentFilter string) ([]*types.Bed, error) {
	query := `
		SELECT b.id, b.room_number, b.bed_number, b.department, a.patient_id, a.patient_name
		FROM beds b
		JOIN admissions a ON a.bed_id = b.id AND a.discharged_at IS NULL
		WHERE b.is_occupied = TRUE`

	args := []interface{}{}
	if departmentFilter != "" {
		query += " AND b.department = $1"
		args = append(args, departmentFilter)
	}
	query += " ORDER BY b.id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.WithError(err).Error("Failed to query occupied beds")
		return nil, fmt.Errorf("failed to get occupied beds: %w", err)
	}
	defer rows.Close()

	var beds []*types.Bed
	for rows.Next() {
		bed := &types.Bed{}
		if err := rows.Scan(
			&bed.ID,
			&bed.RoomNumber,
			&bed.BedNumber,
			&bed.Department,
			&bed.PatientID,
			&bed.PatientName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan bed row: %w", err)
		}
		beds = append(beds, bed)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bed rows: %w", err)
	}

	return beds, nil
}

// GetPendingTreatments returns the pending treatments for a bed. A row with
// an unparseable schedule is logged and skipped so one bad record cannot
// take the whole bed out of evaluation.
func (r *Repository) GetPendingTreatments(ctx context.Context, bedID string) ([]*types.Treatment, error) {
	query := `
		SELECT id, patient_id, bed_id, medication, dosage, schedule_times, status, tier
		FROM treatments
		WHERE bed_id = $1 AND status = 'pending'
		ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, bedID)
	if err != nil {
		r.logger.WithBedID(bedID).WithError(err).Error("Failed to query pending treatments")
		return nil, fmt.Errorf("failed to get pending treatments: %w", err)
	}
	defer rows.Close()

	var treatments []*types.Treatment
	for rows.Next() {
		t := &types.Treatment{}
		var scheduleTimes string
		if err := rows.Scan(
			&t.ID,
			&t.PatientID,
			&t.BedID,
			&t.Medication,
			&t.Dosage,
			&scheduleTimes,
			&t.Status,
			&t.Tier,
		); err != nil {
			return nil, fmt.Errorf("failed to scan treatment row: %w", err)
		}

		parsed, err := types.ParseClockTimes(scheduleTimes)
		if err != nil {
			r.logger.WithTreatmentID(t.ID).WithError(err).Warn("Skipping treatment with invalid schedule times")
			continue
		}
		t.ScheduleTimes = parsed

		treatments = append(treatments, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate treatment rows: %w", err)
	}

	return treatments, nil
}

// GetAdmissionLocation resolves a patient to their current bed; a patient
// with no open admission yields a not-found error.
func (r *Repository) GetAdmissionLocation(ctx context.Context, patientID string) (*types.AdmissionLocation, error) {
	query := `
		SELECT b.room_number, COALESCE(a.floor, ''), b.bed_number, b.department
		FROM admissions a
		JOIN beds b ON b.id = a.bed_id
		WHERE a.patient_id = $1 AND a.discharged_at IS NULL
		ORDER BY a.admitted_at DESC
		LIMIT 1`

	location := &types.AdmissionLocation{}
	err := r.db.QueryRowContext(ctx, query, patientID).Scan(
		&location.RoomNumber,
		&location.Floor,
		&location.BedNumber,
		&location.Department,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.NewNotFoundError(types.ErrCodePatientNotAdmitted,
				fmt.Sprintf("no current admission for patient %s", patientID))
		}
		r.logger.WithPatientID(patientID).WithError(err).Error("Failed to query admission location")
		return nil, fmt.Errorf("failed to get admission location: %w", err)
	}

	return location, nil
}
