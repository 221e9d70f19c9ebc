package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/robot-sequencer/internal/schedule"
)

// scheduleView adds the next fire time, in the site timezone, to a schedule.
type scheduleView struct {
	*schedule.Schedule
	NextFireAt *time.Time `json:"next_fire_at,omitempty"`
}

func (s *Server) newScheduleView(sc *schedule.Schedule, now time.Time) scheduleView {
	v := scheduleView{Schedule: sc}
	if next, ok := sc.NextFireAt(now.In(s.location)); ok {
		v.NextFireAt = &next
	}
	return v
}

func (s *Server) scheduleViews(list []schedule.Schedule) []scheduleView {
	now := time.Now()
	views := make([]scheduleView, 0, len(list))
	for i := range list {
		views = append(views, s.newScheduleView(&list[i], now))
	}
	return views
}

// handleListSchedules returns all schedules.
//
// Query parameters:
//   - active: true or false to filter on the active flag
//   - sequence_id: only schedules bound to this sequence
func (s *Server) handleListSchedules(w http.ResponseWriter, r *http.Request) {
	list := s.schedules.List(r.Context())

	q := r.URL.Query()
	if v := q.Get("active"); v != "" {
		want, err := strconv.ParseBool(v)
		if err != nil {
			writeBadRequest(w, "active must be true or false")
			return
		}
		list = filterSchedules(list, func(sc *schedule.Schedule) bool { return sc.Active == want })
	}
	if v := q.Get("sequence_id"); v != "" {
		if len(v) > maxIDLen {
			writeBadRequest(w, "sequence_id exceeds maximum length")
			return
		}
		list = filterSchedules(list, func(sc *schedule.Schedule) bool { return sc.SequenceID == v })
	}

	views := s.scheduleViews(list)
	writeJSON(w, http.StatusOK, map[string]any{"schedules": views, "count": len(views)})
}

func (s *Server) handleListActiveSchedules(w http.ResponseWriter, r *http.Request) {
	views := s.scheduleViews(s.schedules.ListActive(r.Context()))
	writeJSON(w, http.StatusOK, map[string]any{"schedules": views, "count": len(views)})
}

func (s *Server) handleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req createScheduleRequest
	if !s.decodeRequest(w, r, &req, false) {
		return
	}
	sc, err := s.schedules.Create(r.Context(), req.SequenceID, req.TriggerTime, schedule.Frequency(req.Frequency))
	if err != nil {
		s.writeDomainError(w, err, "failed to create schedule")
		return
	}
	writeJSON(w, http.StatusCreated, s.newScheduleView(sc, time.Now()))
}

func (s *Server) handleGetSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, chi.URLParam(r, "id"), "schedule")
	if !ok {
		return
	}
	s.respondSchedule(w, r, id)
}

// handleUpdateSchedule changes one field. Setting active to true
// re-arms a consumed once schedule.
func (s *Server) handleUpdateSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, chi.URLParam(r, "id"), "schedule")
	if !ok {
		return
	}
	var req scheduleFieldRequest
	if !s.decodeRequest(w, r, &req, false) {
		return
	}
	if err := s.schedules.Update(r.Context(), id, schedule.Field(req.Field), req.Value); err != nil {
		s.writeDomainError(w, err, "failed to update schedule")
		return
	}
	s.respondSchedule(w, r, id)
}

func (s *Server) handleDeleteSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, chi.URLParam(r, "id"), "schedule")
	if !ok {
		return
	}
	if err := s.schedules.Delete(r.Context(), id); err != nil {
		s.writeDomainError(w, err, "failed to delete schedule")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) respondSchedule(w http.ResponseWriter, r *http.Request, id string) {
	sc, err := s.schedules.Get(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err, "failed to get schedule")
		return
	}
	writeJSON(w, http.StatusOK, s.newScheduleView(sc, time.Now()))
}

func filterSchedules(list []schedule.Schedule, keep func(*schedule.Schedule) bool) []schedule.Schedule {
	out := list[:0]
	for i := range list {
		if keep(&list[i]) {
			out = append(out, list[i])
		}
	}
	return out
}
