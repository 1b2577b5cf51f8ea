package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger wraps logrus.Logger with additional functionality
type Logger struct {
	*logrus.Logger
}

// New creates a new logger instance
func New(level string) *Logger {
	log := logrus.New()

	// Set log level
	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	log.SetLevel(logLevel)

	// Set output format
	log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})

	// Set output destination
	log.SetOutput(os.Stdout)

	return &Logger{Logger: log}
}

// WithFields creates a new logger entry with the specified fields
func (l *Logger) WithFields(fields map[string]interface{}) *logrus.Entry {
	return l.Logger.WithFields(fields)
}

// WithField creates a new logger entry with a single field
func (l *Logger) WithField(key string, value interface{}) *logrus.Entry {
	return l.Logger.WithField(key, value)
}

// WithError creates a new logger entry with an error field
func (l *Logger) WithError(err error) *logrus.Entry {
	return l.Logger.WithError(err)
}

// WithComponent creates a new logger entry with component name field
func (l *Logger) WithComponent(component string) *logrus.Entry {
	return l.Logger.WithField("component", component)
}

// WithPatientID creates a new logger entry with patient ID field
func (l *Logger) WithPatientID(patientID string) *logrus.Entry {
	return l.Logger.WithField("patient_id", patientID)
}

// WithTreatmentID creates a new logger entry with treatment ID field
func (l *Logger) WithTreatmentID(treatmentID string) *logrus.Entry {
	return l.Logger.WithField("treatment_id", treatmentID)
}

// WithBedID creates a new logger entry with bed ID field
func (l *Logger) WithBedID(bedID string) *logrus.Entry {
	return l.Logger.WithField("bed_id", bedID)
}

// Alert logs a fired alert with structured format
func (l *Logger) Alert(eventType, patientID, department string, details map[string]interface{}) {
	l.Logger.WithFields(logrus.Fields{
		"alert":      true,
		"event_type": eventType,
		"patient_id": patientID,
		"department": department,
		"details":    details,
	}).Info("Alert dispatched")
}

// StaleSnapshot logs that the scheduler is operating on an out-of-date view
// of the records store
func (l *Logger) StaleSnapshot(ageSeconds float64, cause error) {
	l.Logger.WithFields(logrus.Fields{
		"stale_snapshot": true,
		"age_seconds":    ageSeconds,
	}).WithError(cause).Warn("Ward snapshot refresh failed; continuing on last good snapshot")
}

// DispatchFailure logs a failed delivery to one subscriber during fan-out
func (l *Logger) DispatchFailure(handle string, eventType string, cause error) {
	l.Logger.WithFields(logrus.Fields{
		"dispatch_failure": true,
		"subscriber":       handle,
		"event_type":       eventType,
	}).WithError(cause).Warn("Subscriber delivery failed; skipping")
}
