package types

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Treatment represents one prescribed dosing regimen attached to an admission.
// The alert service only reads treatments; creation and completion happen in
// the records system.
type Treatment struct {
	ID            string           `json:"id" db:"id"`
	PatientID     string           `json:"patient_id" db:"patient_id"`
	BedID         string           `json:"bed_id" db:"bed_id"`
	Medication    string           `json:"medication" db:"medication"`
	Dosage        string           `json:"dosage" db:"dosage"`
	ScheduleTimes []ClockTime      `json:"schedule_times" db:"schedule_times"`
	Status        TreatmentStatus  `json:"status" db:"status"`
	Tier          PrescriptionTier `json:"tier" db:"tier"`
}

// TreatmentStatus represents treatment lifecycle values
type TreatmentStatus string

const (
	TreatmentPending   TreatmentStatus = "pending"
	TreatmentCompleted TreatmentStatus = "completed"
)

// PrescriptionTier represents prescription priority values
type PrescriptionTier string

const (
	TierUrgent  PrescriptionTier = "urgent"
	TierRegular PrescriptionTier = "regular"
	TierChronic PrescriptionTier = "chronic"
)

// ClockTime is a recurring time of day (no date) at which a dose is due.
type ClockTime struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// ParseClockTime parses a "HH:MM" string into a ClockTime
func ParseClockTime(s string) (ClockTime, error) {
	var ct ClockTime
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return ct, fmt.Errorf("invalid clock time %q: expected HH:MM", s)
	}
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d:%d", &ct.Hour, &ct.Minute); err != nil {
		return ct, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	if ct.Hour < 0 || ct.Hour > 23 || ct.Minute < 0 || ct.Minute > 59 {
		return ct, fmt.Errorf("clock time %q out of range", s)
	}
	return ct, nil
}

// ParseClockTimes parses a comma-separated "HH:MM,HH:MM" list, sorted ascending
func ParseClockTimes(s string) ([]ClockTime, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var times []ClockTime
	for _, part := range strings.Split(s, ",") {
		ct, err := ParseClockTime(part)
		if err != nil {
			return nil, err
		}
		times = append(times, ct)
	}
	sort.Slice(times, func(i, j int) bool {
		if times[i].Hour != times[j].Hour {
			return times[i].Hour < times[j].Hour
		}
		return times[i].Minute < times[j].Minute
	})
	return times, nil
}

// String returns the canonical "HH:MM" form
func (ct ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", ct.Hour, ct.Minute)
}

// On returns the absolute instant of this clock time on the day of ref,
// in ref's location.
func (ct ClockTime) On(ref time.Time) time.Time {
	return time.Date(ref.Year(), ref.Month(), ref.Day(), ct.Hour, ct.Minute, 0, 0, ref.Location())
}

// MarshalJSON encodes the clock time as "HH:MM"
func (ct ClockTime) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", ct.String())), nil
}

// UnmarshalJSON decodes a "HH:MM" string
func (ct *ClockTime) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := ParseClockTime(s)
	if err != nil {
		return err
	}
	*ct = parsed
	return nil
}

// Occurrence is one concrete scheduled firing instant derived from a
// treatment's recurring time-of-day list. Occurrences are computed, never
// stored.
type Occurrence struct {
	TreatmentID string    `json:"treatment_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
}

// Bed represents an occupied bed as reported by the records system
type Bed struct {
	ID          string `json:"id" db:"id"`
	RoomNumber  string `json:"room_number" db:"room_number"`
	BedNumber   string `json:"bed_number" db:"bed_number"`
	Department  string `json:"department" db:"department"`
	PatientID   string `json:"patient_id" db:"patient_id"`
	PatientName string `json:"patient_name" db:"patient_name"`
}

// AdmissionLocation locates an admitted patient for call routing
type AdmissionLocation struct {
	RoomNumber string `json:"room_number" db:"room_number"`
	Floor      string `json:"floor" db:"floor"`
	BedNumber  string `json:"bed_number" db:"bed_number"`
	Department string `json:"department" db:"department"`
}

// Urgency represents how close a dose is to being due
type Urgency string

const (
	UrgencyNormal   Urgency = "normal"
	UrgencyWarning  Urgency = "warning"
	UrgencyCritical Urgency = "critical"
)

// NextDueProjection is the per-bed "next treatment due" view served to
// clients that missed the original event (for example, after a reconnect).
type NextDueProjection struct {
	BedID            string    `json:"bed_id"`
	RoomNumber       string    `json:"room_number"`
	BedNumber        string    `json:"bed_number"`
	Department       string    `json:"department"`
	PatientID        string    `json:"patient_id"`
	PatientName      string    `json:"patient_name"`
	TreatmentID      string    `json:"treatment_id"`
	Medication       string    `json:"medication"`
	Dosage           string    `json:"dosage"`
	ScheduledAt      time.Time `json:"scheduled_at"`
	SecondsRemaining int64     `json:"seconds_remaining"`
	Urgency          Urgency   `json:"urgency"`
}

// WardSnapshot is the last-known-good view of occupied beds and their
// pending treatments, refreshed asynchronously so the tick loop never
// blocks on the records store.
type WardSnapshot struct {
	Beds        []*Bed                  `json:"beds"`
	Treatments  map[string][]*Treatment `json:"treatments"` // keyed by bed ID
	RefreshedAt time.Time               `json:"refreshed_at"`
}
