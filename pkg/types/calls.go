package types

import "time"

// CallSession represents one active "call for help" request raised from a
// bed. At most one session is active per patient; a repeat call refreshes
// the existing session instead of duplicating it.
type CallSession struct {
	ID         string    `json:"id"`
	PatientID  string    `json:"patient_id"`
	RoomNumber string    `json:"room_number"`
	Floor      string    `json:"floor"`
	BedNumber  string    `json:"bed_number"`
	Department string    `json:"department"`
	RaisedAt   time.Time `json:"raised_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// CallRequest is the payload of the synchronous call-raise endpoint
type CallRequest struct {
	PatientID string `json:"patient_id"`
}

// CallResponse is returned to the caller when a call is accepted
type CallResponse struct {
	PatientID  string    `json:"patient_id"`
	RoomNumber string    `json:"room_number"`
	BedNumber  string    `json:"bed_number"`
	Department string    `json:"department"`
	ExpiresAt  time.Time `json:"expires_at"`
}
