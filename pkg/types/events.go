package types

import "time"

// EventType identifies the event families sharing the alert bus
type EventType string

const (
	EventTreatmentDue EventType = "treatment_due"
	EventCallRaised   EventType = "call_raised"
	EventCallExpired  EventType = "call_expired"
)

// TreatmentDueEvent is emitted exactly once per (treatment, occurrence)
// when a scheduled dose crosses its due instant.
type TreatmentDueEvent struct {
	PatientID   string    `json:"patient_id"`
	PatientName string    `json:"patient_name"`
	TreatmentID string    `json:"treatment_id"`
	BedID       string    `json:"bed_id"`
	RoomNumber  string    `json:"room_number"`
	BedNumber   string    `json:"bed_number"`
	Medication  string    `json:"medication"`
	Dosage      string    `json:"dosage"`
	ScheduledAt time.Time `json:"scheduled_at"`
}

// CallRaisedEvent is emitted when a patient raises (or refreshes) a call
type CallRaisedEvent struct {
	PatientID  string    `json:"patient_id"`
	RoomNumber string    `json:"room_number"`
	Floor      string    `json:"floor"`
	BedNumber  string    `json:"bed_number"`
	RaisedAt   time.Time `json:"raised_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// CallExpiredEvent is emitted when an unacknowledged call reaches its TTL,
// so clients can clear their local indicator.
type CallExpiredEvent struct {
	PatientID string    `json:"patient_id"`
	ExpiredAt time.Time `json:"expired_at"`
}

// AlertEvent is the envelope published on the dispatcher bus. Department
// carries the ward the event belongs to; subscribers with a department
// filter only receive matching events.
type AlertEvent struct {
	Type         EventType          `json:"type"`
	Department   string             `json:"department,omitempty"`
	PublishedAt  time.Time          `json:"published_at"`
	TreatmentDue *TreatmentDueEvent `json:"treatment_due,omitempty"`
	CallRaised   *CallRaisedEvent   `json:"call_raised,omitempty"`
	CallExpired  *CallExpiredEvent  `json:"call_expired,omitempty"`
}

// NewTreatmentDueAlert wraps a TreatmentDueEvent in a bus envelope
func NewTreatmentDueAlert(department string, ev *TreatmentDueEvent) *AlertEvent {
	return &AlertEvent{
		Type:         EventTreatmentDue,
		Department:   department,
		PublishedAt:  time.Now(),
		TreatmentDue: ev,
	}
}

// NewCallRaisedAlert wraps a CallRaisedEvent in a bus envelope
func NewCallRaisedAlert(department string, ev *CallRaisedEvent) *AlertEvent {
	return &AlertEvent{
		Type:        EventCallRaised,
		Department:  department,
		PublishedAt: time.Now(),
		CallRaised:  ev,
	}
}

// NewCallExpiredAlert wraps a CallExpiredEvent in a bus envelope
func NewCallExpiredAlert(department string, ev *CallExpiredEvent) *AlertEvent {
	return &AlertEvent{
		Type:        EventCallExpired,
		Department:  department,
		PublishedAt: time.Now(),
		CallExpired: ev,
	}
}
