package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/robot-sequencer/internal/action"
	"github.com/nerrad567/robot-sequencer/internal/execution"
	"github.com/nerrad567/robot-sequencer/internal/schedule"
	"github.com/nerrad567/robot-sequencer/internal/sequence"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest     = "bad_request"
	ErrCodeNotFound       = "not_found"
	ErrCodeConflict       = "conflict"
	ErrCodeInternal       = "internal_error"
	ErrCodeValidation     = "validation_error"
	ErrCodeUnavailable    = "unavailable"
	ErrCodeMethodNotAllow = "method_not_allowed"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeDomainError maps a store or executor error onto an HTTP status.
// Anything unrecognised is logged and reported as a 500 with fallback.
func (s *Server) writeDomainError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, sequence.ErrValidation),
		errors.Is(err, schedule.ErrValidation),
		errors.Is(err, action.ErrInvalidAction),
		errors.Is(err, action.ErrInvalidParam):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())

	case errors.Is(err, sequence.ErrSequenceNotFound),
		errors.Is(err, sequence.ErrStepNotFound),
		errors.Is(err, schedule.ErrScheduleNotFound),
		errors.Is(err, execution.ErrRunNotFound):
		writeNotFound(w, err.Error())

	case errors.Is(err, sequence.ErrReferencedBySchedule),
		errors.Is(err, sequence.ErrSequenceExists),
		errors.Is(err, schedule.ErrScheduleExists):
		writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())

	// A schedule pointing at a missing sequence is a bad request body, not a
	// missing URL resource.
	case errors.Is(err, schedule.ErrDanglingReference):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())

	case errors.Is(err, execution.ErrQueueFull),
		errors.Is(err, execution.ErrExecutorClosed),
		errors.Is(err, execution.ErrNoDispatcher):
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, err.Error())

	default:
		s.logger.Error(fallback, "error", err)
		writeInternalError(w, fallback)
	}
}
