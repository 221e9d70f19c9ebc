package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/robot-sequencer/internal/execution"
)

// handleListRuns returns the executor's whole picture: the active run, the
// queue in start order, and recent history (newest first).
func (s *Server) handleListRuns(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{
		"queued":  nonNilRuns(s.executor.Queued()),
		"history": nonNilRuns(s.executor.History()),
	}
	if run, ok := s.executor.Active(); ok {
		resp["active"] = run
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleActiveRun(w http.ResponseWriter, _ *http.Request) {
	run, ok := s.executor.Active()
	if !ok {
		writeNotFound(w, "no active run")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleQueuedRuns(w http.ResponseWriter, _ *http.Request) {
	runs := nonNilRuns(s.executor.Queued())
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs, "count": len(runs)})
}

func (s *Server) handleRunHistory(w http.ResponseWriter, _ *http.Request) {
	runs := nonNilRuns(s.executor.History())
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs, "count": len(runs)})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, chi.URLParam(r, "id"), "run")
	if !ok {
		return
	}
	run, err := s.executor.Get(id)
	if err != nil {
		s.writeDomainError(w, err, "failed to get run")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// handleCancelRun asks a run to stop. The response is the run as seen right
// after the request; a running run reaches cancelled shortly after.
// Cancelling a finished run is accepted and changes nothing.
func (s *Server) handleCancelRun(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, chi.URLParam(r, "id"), "run")
	if !ok {
		return
	}
	if err := s.executor.Cancel(id); err != nil {
		s.writeDomainError(w, err, "failed to cancel run")
		return
	}
	run, err := s.executor.Get(id)
	if err != nil {
		s.writeDomainError(w, err, "failed to get run")
		return
	}
	s.logger.Info("run cancel requested", "run_id", id, "sequence_id", run.SequenceID, "request_id", requestID(r))
	writeJSON(w, http.StatusAccepted, run)
}

func nonNilRuns(runs []execution.Run) []execution.Run {
	if runs == nil {
		return []execution.Run{}
	}
	return runs
}
