package database

import (
	"context"
	"fmt"
)

// CreateSchema creates the read-side schema the alert service queries. The
// records system owns these tables in production; this exists for local
// development and test databases.
func (db *DB) CreateSchema(ctx context.Context) error {
	db.logger.Info("Creating database schema...")

	tables := []string{
		createBedsTable,
		createAdmissionsTable,
		createTreatmentsTable,
	}

	for _, table := range tables {
		if _, err := db.ExecContext(ctx, table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	indexes := []string{
		createBedsIndexes,
		createAdmissionsIndexes,
		createTreatmentsIndexes,
	}

	for _, index := range indexes {
		if _, err := db.ExecContext(ctx, index); err != nil {
			return fmt.Errorf("failed to create indexes: %w", err)
		}
	}

	db.logger.Info("Database schema created successfully")
	return nil
}

// SQL DDL statements for table creation
const (
	createBedsTable = `
		CREATE TABLE IF NOT EXISTS beds (
			id VARCHAR(50) PRIMARY KEY,
			room_number VARCHAR(20) NOT NULL,
			bed_number VARCHAR(20) NOT NULL,
			department VARCHAR(100) NOT NULL,
			is_occupied BOOLEAN DEFAULT FALSE,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);`

	createAdmissionsTable = `
		CREATE TABLE IF NOT EXISTS admissions (
			id VARCHAR(50) PRIMARY KEY,
			patient_id VARCHAR(50) NOT NULL,
			patient_name VARCHAR(200) NOT NULL,
			bed_id VARCHAR(50) NOT NULL REFERENCES beds(id),
			floor VARCHAR(20),
			admitted_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			discharged_at TIMESTAMP WITH TIME ZONE
		);`

	createTreatmentsTable = `
		CREATE TABLE IF NOT EXISTS treatments (
			id VARCHAR(50) PRIMARY KEY,
			patient_id VARCHAR(50) NOT NULL,
			bed_id VARCHAR(50) NOT NULL REFERENCES beds(id),
			medication VARCHAR(200) NOT NULL,
			dosage VARCHAR(100) NOT NULL,
			schedule_times TEXT NOT NULL DEFAULT '',
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			tier VARCHAR(20) NOT NULL DEFAULT 'regular',
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);`
)

// SQL DDL statements for index creation
const (
	createBedsIndexes = `
		CREATE INDEX IF NOT EXISTS idx_beds_department ON beds(department);
		CREATE INDEX IF NOT EXISTS idx_beds_is_occupied ON beds(is_occupied);`

	createAdmissionsIndexes = `
		CREATE INDEX IF NOT EXISTS idx_admissions_patient_id ON admissions(patient_id);
		CREATE INDEX IF NOT EXISTS idx_admissions_bed_id ON admissions(bed_id);
		CREATE INDEX IF NOT EXISTS idx_admissions_discharged_at ON admissions(discharged_at);`

	createTreatmentsIndexes = `
		CREATE INDEX IF NOT EXISTS idx_treatments_bed_id ON treatments(bed_id);
		CREATE INDEX IF NOT EXISTS idx_treatments_patient_id ON treatments(patient_id);
		CREATE INDEX IF NOT EXISTS idx_treatments_status ON treatments(status);`
)
