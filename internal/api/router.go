package api

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/robot-sequencer/internal/action"
)

// healthCheckTimeout bounds each dependency probe in GET /health.
const healthCheckTimeout = 2 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeNotFound(w, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllow, "method not allowed")
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)
		r.Get("/actions", s.handleListActions)

		r.Route("/sequences", func(r chi.Router) {
			r.Get("/", s.handleListSequences)
			r.Post("/", s.handleCreateSequence)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetSequence)
				r.Patch("/", s.handleRenameSequence)
				r.Delete("/", s.handleDeleteSequence)
				r.Post("/execute", s.handleExecuteSequence)
				r.Get("/schedules", s.handleSequenceSchedules)

				r.Route("/steps", func(r chi.Router) {
					r.Get("/", s.handleListSteps)
					r.Post("/", s.handleAddStep)
					r.Post("/swap", s.handleSwapSteps)
					r.Patch("/{stepId}", s.handleUpdateStep)
					r.Put("/{stepId}", s.handleReplaceStep)
					r.Delete("/{stepId}", s.handleRemoveStep)
				})
			})
		})

		r.Route("/runs", func(r chi.Router) {
			r.Get("/", s.handleListRuns)
			r.Get("/active", s.handleActiveRun)
			r.Get("/queued", s.handleQueuedRuns)
			r.Get("/history", s.handleRunHistory)
			r.Get("/{id}", s.handleGetRun)
			r.Post("/{id}/cancel", s.handleCancelRun)
		})

		r.Route("/schedules", func(r chi.Router) {
			r.Get("/", s.handleListSchedules)
			r.Post("/", s.handleCreateSchedule)
			r.Get("/active", s.handleListActiveSchedules)
			r.Get("/{id}", s.handleGetSchedule)
			r.Patch("/{id}", s.handleUpdateSchedule)
			r.Delete("/{id}", s.handleDeleteSchedule)
		})

		r.Get("/events", s.handleListEvents)
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth reports the version and each dependency check. Any failing
// check turns the response into a 503 with status "degraded".
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	checks := make(map[string]string, len(names))
	for _, name := range names {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := s.checks[name].HealthCheck(ctx)
		cancel()
		if err != nil {
			checks[name] = err.Error()
			status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	resp := map[string]any{
		"status":     status,
		"version":    s.version,
		"sequences":  s.sequences.Count(),
		"schedules":  s.schedules.Count(),
		"ws_clients": s.hub.ClientCount(),
	}
	if len(checks) > 0 {
		resp["checks"] = checks
	}
	writeJSON(w, code, resp)
}

// handleListActions returns the action catalog.
func (s *Server) handleListActions(w http.ResponseWriter, _ *http.Request) {
	defs := action.All()
	writeJSON(w, http.StatusOK, map[string]any{"actions": defs, "count": len(defs)})
}
