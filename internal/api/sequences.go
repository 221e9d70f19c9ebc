package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/robot-sequencer/internal/action"
	"github.com/nerrad567/robot-sequencer/internal/event"
	"github.com/nerrad567/robot-sequencer/internal/sequence"
)

// sequenceView adds computed totals to a sequence response.
type sequenceView struct {
	*sequence.Sequence
	StepCount    int `json:"step_count"`
	TotalSeconds int `json:"total_seconds"`
}

func newSequenceView(seq *sequence.Sequence) sequenceView {
	return sequenceView{Sequence: seq, StepCount: len(seq.Steps), TotalSeconds: seq.TotalSeconds()}
}

func (s *Server) handleListSequences(w http.ResponseWriter, r *http.Request) {
	seqs, err := s.sequences.List(r.Context())
	if err != nil {
		s.writeDomainError(w, err, "failed to list sequences")
		return
	}
	views := make([]sequenceView, 0, len(seqs))
	for i := range seqs {
		views = append(views, newSequenceView(&seqs[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"sequences": views, "count": len(views)})
}

func (s *Server) handleCreateSequence(w http.ResponseWriter, r *http.Request) {
	var req sequenceNameRequest
	if !s.decodeRequest(w, r, &req, true) {
		return
	}
	seq, err := s.sequences.Create(r.Context(), req.Name)
	if err != nil {
		s.writeDomainError(w, err, "failed to create sequence")
		return
	}
	writeJSON(w, http.StatusCreated, newSequenceView(seq))
}

func (s *Server) handleGetSequence(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, chi.URLParam(r, "id"), "sequence")
	if !ok {
		return
	}
	seq, err := s.sequences.Get(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err, "failed to get sequence")
		return
	}
	writeJSON(w, http.StatusOK, newSequenceView(seq))
}

func (s *Server) handleRenameSequence(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, chi.URLParam(r, "id"), "sequence")
	if !ok {
		return
	}
	var req sequenceNameRequest
	if !s.decodeRequest(w, r, &req, false) {
		return
	}
	if err := s.sequences.Rename(r.Context(), id, req.Name); err != nil {
		s.writeDomainError(w, err, "failed to rename sequence")
		return
	}
	s.respondSequence(w, r, id, http.StatusOK)
}

// handleDeleteSequence deletes a sequence. Under the reject policy a
// sequence still referenced by schedules answers 409.
func (s *Server) handleDeleteSequence(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, chi.URLParam(r, "id"), "sequence")
	if !ok {
		return
	}
	if err := s.sequences.Delete(r.Context(), id); err != nil {
		s.writeDomainError(w, err, "failed to delete sequence")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSequenceSchedules lists the IDs of schedules pointing at a sequence.
func (s *Server) handleSequenceSchedules(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, chi.URLParam(r, "id"), "sequence")
	if !ok {
		return
	}
	if !s.sequences.Exists(r.Context(), id) {
		writeNotFound(w, sequence.ErrSequenceNotFound.Error())
		return
	}
	ids, err := s.schedules.ReferencingSchedules(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err, "failed to list referencing schedules")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"schedule_ids": ids, "count": len(ids)})
}

// handleExecuteSequence requests a run. The run is accepted immediately;
// it may be queued behind the active one.
func (s *Server) handleExecuteSequence(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, chi.URLParam(r, "id"), "sequence")
	if !ok {
		return
	}
	var req executeRequest
	if !s.decodeRequest(w, r, &req, true) {
		return
	}
	source := req.Source
	if source == "" {
		source = "api"
	}

	h, err := s.executor.Execute(r.Context(), id, s.dispatcher, event.Manual(source))
	if err != nil {
		s.writeDomainError(w, err, "failed to execute sequence")
		return
	}
	s.logger.Info("sequence execution requested",
		"sequence_id", id,
		"run_id", h.ID(),
		"source", source,
		"request_id", requestID(r),
	)
	writeJSON(w, http.StatusAccepted, h.Run())
}

func (s *Server) handleListSteps(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, chi.URLParam(r, "id"), "sequence")
	if !ok {
		return
	}
	steps, err := s.sequences.ListSteps(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err, "failed to list steps")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"steps": steps, "count": len(steps)})
}

func (s *Server) handleAddStep(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, chi.URLParam(r, "id"), "sequence")
	if !ok {
		return
	}
	var req stepRequest
	if !s.decodeRequest(w, r, &req, false) {
		return
	}
	a, err := action.Parse(req.Action)
	if err != nil {
		s.writeDomainError(w, err, "failed to add step")
		return
	}
	stepID, err := s.sequences.AddStep(r.Context(), id, a, req.Param, req.DurationSeconds)
	if err != nil {
		s.writeDomainError(w, err, "failed to add step")
		return
	}
	writeJSON(w, http.StatusCreated, sequence.Step{
		ID:              stepID,
		Action:          a,
		Param:           req.Param,
		DurationSeconds: req.DurationSeconds,
	})
}

func (s *Server) handleUpdateStep(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, chi.URLParam(r, "id"), "sequence")
	if !ok {
		return
	}
	stepID, ok := pathID(w, chi.URLParam(r, "stepId"), "step")
	if !ok {
		return
	}
	var req stepFieldRequest
	if !s.decodeRequest(w, r, &req, false) {
		return
	}
	if err := s.sequences.UpdateStep(r.Context(), id, stepID, sequence.StepField(req.Field), req.Value); err != nil {
		s.writeDomainError(w, err, "failed to update step")
		return
	}
	s.respondSequence(w, r, id, http.StatusOK)
}

func (s *Server) handleReplaceStep(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, chi.URLParam(r, "id"), "sequence")
	if !ok {
		return
	}
	stepID, ok := pathID(w, chi.URLParam(r, "stepId"), "step")
	if !ok {
		return
	}
	var req stepRequest
	if !s.decodeRequest(w, r, &req, false) {
		return
	}
	a, err := action.Parse(req.Action)
	if err != nil {
		s.writeDomainError(w, err, "failed to replace step")
		return
	}
	if err := s.sequences.ReplaceStep(r.Context(), id, stepID, a, req.Param, req.DurationSeconds); err != nil {
		s.writeDomainError(w, err, "failed to replace step")
		return
	}
	s.respondSequence(w, r, id, http.StatusOK)
}

func (s *Server) handleRemoveStep(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, chi.URLParam(r, "id"), "sequence")
	if !ok {
		return
	}
	stepID, ok := pathID(w, chi.URLParam(r, "stepId"), "step")
	if !ok {
		return
	}
	if err := s.sequences.RemoveStep(r.Context(), id, stepID); err != nil {
		s.writeDomainError(w, err, "failed to remove step")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSwapSteps(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, chi.URLParam(r, "id"), "sequence")
	if !ok {
		return
	}
	var req swapStepsRequest
	if !s.decodeRequest(w, r, &req, false) {
		return
	}
	if err := s.sequences.SwapSteps(r.Context(), id, *req.I, *req.J); err != nil {
		s.writeDomainError(w, err, "failed to swap steps")
		return
	}
	s.respondSequence(w, r, id, http.StatusOK)
}

// respondSequence writes the current state of a sequence after a mutation.
func (s *Server) respondSequence(w http.ResponseWriter, r *http.Request, id string, status int) {
	seq, err := s.sequences.Get(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err, "failed to get sequence")
		return
	}
	writeJSON(w, status, newSequenceView(seq))
}
