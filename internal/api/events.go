package api

import (
	"net/http"
	"strconv"

	"github.com/nerrad567/robot-sequencer/internal/audit"
)

// handleListEvents returns recorded execution and schedule events, newest
// first.
//
// Query parameters:
//   - event_type: sequence-started, schedule-fired, ...
//   - entity_type: sequence or schedule
//   - entity_id: a specific sequence or schedule ID
//   - run_id: every event of one run
//   - limit: max results (default 50, max 200)
//   - offset: pagination offset
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	if s.auditRepo == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "event history not configured")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		EventType:  q.Get("event_type"),
		EntityType: q.Get("entity_type"),
		EntityID:   q.Get("entity_id"),
		RunID:      q.Get("run_id"),
	}
	for _, v := range []string{filter.EventType, filter.EntityType, filter.EntityID, filter.RunID} {
		if len(v) > maxIDLen {
			writeBadRequest(w, "query parameter exceeds maximum length")
			return
		}
	}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeBadRequest(w, "limit must be an integer")
			return
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeBadRequest(w, "offset must be a non-negative integer")
			return
		}
		filter.Offset = n
	}

	result, err := s.auditRepo.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list events", "error", err)
		writeInternalError(w, "failed to list events")
		return
	}
	writeJSON(w, http.StatusOK, result)
}
