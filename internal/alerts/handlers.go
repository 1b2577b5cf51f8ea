package alerts

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/caretrack/bedside/internal/dispatch"
	"github.com/caretrack/bedside/pkg/types"
)

// setupRoutes configures HTTP routes for the alert service
func (s *Service) setupRoutes(router *mux.Router) {
	api := router.PathPrefix("/api/v1").Subrouter()

	// Call session routes
	api.HandleFunc("/calls", s.raiseCallHandler).Methods("POST")
	api.HandleFunc("/calls", s.activeCallsHandler).Methods("GET")
	api.HandleFunc("/calls/{patientId}/ack", s.acknowledgeCallHandler).Methods("POST")

	// Next-due projection, for clients that missed the original event
	api.HandleFunc("/beds/next-due", s.nextDueHandler).Methods("GET")

	// Event stream subscription
	api.HandleFunc("/events", s.eventsHandler).Methods("GET")

	// Health check
	api.HandleFunc("/health", s.healthCheckHandler).Methods("GET")

	if s.config.Monitoring.Enabled && s.metrics != nil {
		router.Handle(s.config.Monitoring.MetricsPath, s.metrics.Handler()).Methods("GET")
	}

	s.logger.Info("Alert service routes configured")
}

// raiseCallHandler handles the synchronous call-raise endpoint
func (s *Service) raiseCallHandler(w http.ResponseWriter, r *http.Request) {
	var req types.CallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if req.PatientID == "" {
		s.writeErrorResponse(w, http.StatusBadRequest, "patient_id is required", nil)
		return
	}

	session, err := s.RaiseCall(r.Context(), req.PatientID)
	if err != nil {
		if types.IsNotFound(err) {
			s.writeErrorResponse(w, http.StatusNotFound, "Patient has no current admission", err)
			return
		}
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to raise call", err)
		return
	}

	s.writeJSONResponse(w, http.StatusCreated, &types.CallResponse{
		PatientID:  session.PatientID,
		RoomNumber: session.RoomNumber,
		BedNumber:  session.BedNumber,
		Department: session.Department,
		ExpiresAt:  session.ExpiresAt,
	})
}

// acknowledgeCallHandler cancels an active call session
func (s *Service) acknowledgeCallHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	patientID := vars["patientId"]

	if err := s.AcknowledgeCall(patientID); err != nil {
		s.writeErrorResponse(w, http.StatusNotFound, "No active call session", err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"patient_id":   patientID,
		"acknowledged": true,
	})
}

// activeCallsHandler lists currently active call sessions
func (s *Service) activeCallsHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSONResponse(w, http.StatusOK, s.ActiveCalls())
}

// nextDueHandler serves the per-bed next-due projection
func (s *Service) nextDueHandler(w http.ResponseWriter, r *http.Request) {
	department := r.URL.Query().Get("department")
	s.writeJSONResponse(w, http.StatusOK, s.NextDue(department))
}

// eventsHandler upgrades the request to a WebSocket event subscription
func (s *Service) eventsHandler(w http.ResponseWriter, r *http.Request) {
	dispatch.ServeWS(s.hub, s.logger, w, r)
}

// healthCheckHandler reports component health
func (s *Service) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		s.health.HTTPHandler()(w, r)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"service":   "bedside-alerts",
		"timestamp": time.Now().UTC(),
	})
}

// Helper methods

// writeJSONResponse writes a JSON response
func (s *Service) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Errorf("Failed to encode JSON response: %v", err)
	}
}

// writeErrorResponse writes an error response
func (s *Service) writeErrorResponse(w http.ResponseWriter, statusCode int, message string, err error) {
	s.logger.Errorf("%s: %v", message, err)

	response := map[string]interface{}{
		"error":  message,
		"status": statusCode,
	}

	if err != nil {
		response["details"] = err.Error()
	}

	s.writeJSONResponse(w, statusCode, response)
}
