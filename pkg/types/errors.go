package types

import (
	"errors"
	"fmt"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation    ErrorType = "validation"
	ErrorTypeNotFound      ErrorType = "not_found"
	ErrorTypeStaleSnapshot ErrorType = "stale_snapshot"
	ErrorTypeDispatch      ErrorType = "dispatch"
	ErrorTypeInternal      ErrorType = "internal"
)

// BedsideError represents a structured error in the bedside alert service
type BedsideError struct {
	Type    ErrorType              `json:"type"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *BedsideError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error
func (e *BedsideError) Unwrap() error {
	return e.Cause
}

// NewValidationError creates a new validation error
func NewValidationError(code, message string, details map[string]interface{}) *BedsideError {
	return &BedsideError{
		Type:    ErrorTypeValidation,
		Code:    code,
		Message: message,
		Details: details,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(code, message string) *BedsideError {
	return &BedsideError{
		Type:    ErrorTypeNotFound,
		Code:    code,
		Message: message,
	}
}

// NewStaleSnapshotError creates a new stale snapshot error
func NewStaleSnapshotError(code, message string, cause error) *BedsideError {
	return &BedsideError{
		Type:    ErrorTypeStaleSnapshot,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewDispatchError creates a new dispatch error
func NewDispatchError(code, message string, details map[string]interface{}) *BedsideError {
	return &BedsideError{
		Type:    ErrorTypeDispatch,
		Code:    code,
		Message: message,
		Details: details,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(code, message string, cause error) *BedsideError {
	return &BedsideError{
		Type:    ErrorTypeInternal,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// IsNotFound reports whether err is (or wraps) a not-found error
func IsNotFound(err error) bool {
	var be *BedsideError
	if errors.As(err, &be) {
		return be.Type == ErrorTypeNotFound
	}
	return false
}

// Common error codes
const (
	ErrCodeInvalidInput       = "INVALID_INPUT"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodePatientNotAdmitted = "PATIENT_NOT_ADMITTED"
	ErrCodeStaleSnapshot      = "STALE_SNAPSHOT"
	ErrCodeDispatchFailed     = "DISPATCH_FAILED"
	ErrCodeInternalError      = "INTERNAL_ERROR"
)
