package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/robot-sequencer/internal/action"
	"github.com/nerrad567/robot-sequencer/internal/audit"
	"github.com/nerrad567/robot-sequencer/internal/dispatch"
	"github.com/nerrad567/robot-sequencer/internal/event"
	"github.com/nerrad567/robot-sequencer/internal/execution"
	"github.com/nerrad567/robot-sequencer/internal/infrastructure/config"
	"github.com/nerrad567/robot-sequencer/internal/infrastructure/database"
	"github.com/nerrad567/robot-sequencer/internal/infrastructure/logging"
	"github.com/nerrad567/robot-sequencer/internal/schedule"
	"github.com/nerrad567/robot-sequencer/internal/sequence"
	"github.com/nerrad567/robot-sequencer/migrations"
)

type serverOptions struct {
	policy   sequence.DeletePolicy
	maxQueue int
	checks   map[string]HealthChecker
}

type testFixture struct {
	srv       *Server
	router    http.Handler
	sequences *sequence.Store
	schedules *schedule.Store
	executor  *execution.Executor
	dispatch  *dispatch.Simulated
}

func testLogger() *logging.Logger {
	return logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")
}

// testServer wires real stores over in-memory SQLite, a millisecond-step
// executor and a simulated robot.
func testServer(t *testing.T, opts ...func(*serverOptions)) *testFixture {
	t.Helper()
	o := serverOptions{policy: sequence.PolicyReject}
	for _, opt := range opts {
		opt(&o)
	}

	ctx := context.Background()
	db, err := database.Open(ctx, config.DatabaseConfig{Path: database.InMemory, BusyTimeout: 1})
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup
	if err := db.Migrate(ctx, migrations.FS); err != nil {
		t.Fatalf("migrating test db: %v", err)
	}

	log := testLogger()

	seqStore := sequence.NewStore(sequence.NewSQLiteRepository(db.DB))
	if err := seqStore.RefreshCache(ctx); err != nil {
		t.Fatalf("sequence RefreshCache: %v", err)
	}
	schedStore := schedule.NewStore(schedule.NewSQLiteRepository(db.DB), seqStore)
	if err := schedStore.RefreshCache(ctx); err != nil {
		t.Fatalf("schedule RefreshCache: %v", err)
	}
	seqStore.SetScheduleReferences(schedStore, o.policy)

	hub := NewHub(config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10}, log)
	hubCtx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(hubCtx)

	auditRepo := audit.NewSQLiteRepository(db.DB)
	sink := event.NewMulti(audit.NewRecorder(auditRepo, nil), hub)
	schedStore.SetSink(sink)

	exec := execution.NewExecutor(seqStore, sink,
		execution.WithStepUnit(time.Millisecond),
		execution.WithMaxQueue(o.maxQueue),
	)
	t.Cleanup(exec.Close)

	sim := dispatch.NewSimulated("robot-01", 0, nil)

	srv, err := New(Deps{
		Config: config.APIConfig{
			Host:     "127.0.0.1",
			Port:     0,
			Timeouts: config.APITimeoutConfig{Read: 5, Write: 5, Idle: 5},
		},
		WS:         config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10},
		Logger:     log,
		Sequences:  seqStore,
		Schedules:  schedStore,
		Executor:   exec,
		Dispatcher: sim,
		Audit:      auditRepo,
		Hub:        hub,
		Checks:     o.checks,
		DB:         db,
		Version:    "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	return &testFixture{
		srv:       srv,
		router:    srv.buildRouter(),
		sequences: seqStore,
		schedules: schedStore,
		executor:  exec,
		dispatch:  sim,
	}
}

func (f *testFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	switch b := body.(type) {
	case nil:
		rd = bytes.NewReader(nil)
	case string:
		rd = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

// sequence creates a sequence with one patrol step per duration.
func (f *testFixture) sequence(t *testing.T, name string, durations ...int) string {
	t.Helper()
	ctx := context.Background()
	seq, err := f.sequences.Create(ctx, name)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	for _, d := range durations {
		if _, err := f.sequences.AddStep(ctx, seq.ID, action.Patrol, "", d); err != nil {
			t.Fatalf("AddStep: %v", err)
		}
	}
	return seq.ID
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("unmarshal %q: %v", w.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", w.Code, want, w.Body.String())
	}
}

// waitFor polls cond for up to two seconds.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// waitTerminal waits until the run is finished and the executor is idle.
func waitTerminal(t *testing.T, exec *execution.Executor, runID string) execution.Run {
	t.Helper()
	var run execution.Run
	waitFor(t, "run "+runID+" to finish", func() bool {
		var err error
		run, err = exec.Get(runID)
		if err != nil || !run.Status.Terminal() {
			return false
		}
		_, busy := exec.Active()
		return !busy
	})
	return run
}

// ─── Health and Middleware ─────────────────────────────────────────

func TestHealth(t *testing.T) {
	f := testServer(t)

	w := f.do(t, http.MethodGet, "/api/v1/health", nil)
	expectStatus(t, w, http.StatusOK)

	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	resp := decode[map[string]any](t, w)
	if resp["status"] != "ok" {
		t.Errorf("status = %v, want ok", resp["status"])
	}
	if resp["version"] != "test" {
		t.Errorf("version = %v, want test", resp["version"])
	}
}

type checkFunc func(ctx context.Context) error

func (c checkFunc) HealthCheck(ctx context.Context) error { return c(ctx) }

func TestHealth_Degraded(t *testing.T) {
	f := testServer(t, func(o *serverOptions) {
		o.checks = map[string]HealthChecker{
			"database": checkFunc(func(context.Context) error { return nil }),
			"mqtt":     checkFunc(func(context.Context) error { return errors.New("not connected") }),
		}
	})

	w := f.do(t, http.MethodGet, "/api/v1/health", nil)
	expectStatus(t, w, http.StatusServiceUnavailable)

	resp := decode[struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}](t, w)
	if resp.Status != "degraded" {
		t.Errorf("status = %q, want degraded", resp.Status)
	}
	if resp.Checks["database"] != "ok" || resp.Checks["mqtt"] != "not connected" {
		t.Errorf("checks = %v", resp.Checks)
	}
}

func TestRequestID(t *testing.T) {
	f := testServer(t)

	w := f.do(t, http.MethodGet, "/api/v1/health", nil)
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header to be set")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "client-123")
	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); got != "client-123" {
		t.Errorf("X-Request-ID = %q, want client-123", got)
	}
}

func TestCORS_Preflight(t *testing.T) {
	f := testServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/sequences", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	expectStatus(t, w, http.StatusNoContent)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("ACAO = %q, want http://localhost:3000", got)
	}
}

func TestNotFoundRoute(t *testing.T) {
	f := testServer(t)

	w := f.do(t, http.MethodGet, "/api/v1/nonexistent", nil)
	expectStatus(t, w, http.StatusNotFound)
	if e := decode[Error](t, w); e.Code != ErrCodeNotFound {
		t.Errorf("code = %q, want %q", e.Code, ErrCodeNotFound)
	}
}

func TestMetrics(t *testing.T) {
	f := testServer(t)
	f.sequence(t, "a", 1)

	w := f.do(t, http.MethodGet, "/api/v1/metrics", nil)
	expectStatus(t, w, http.StatusOK)

	m := decode[SystemMetrics](t, w)
	if m.Store.Sequences != 1 {
		t.Errorf("Store.Sequences = %d, want 1", m.Store.Sequences)
	}
	if m.Executor.Busy {
		t.Error("Executor.Busy = true with nothing running")
	}
	if m.Database == nil {
		t.Error("Database metrics missing")
	}
	if m.MQTT != nil {
		t.Error("MQTT metrics present without a client")
	}
}

// ─── Actions ───────────────────────────────────────────────────────

func TestListActions(t *testing.T) {
	f := testServer(t)

	w := f.do(t, http.MethodGet, "/api/v1/actions", nil)
	expectStatus(t, w, http.StatusOK)

	resp := decode[struct {
		Actions []action.Definition `json:"actions"`
		Count   int                 `json:"count"`
	}](t, w)
	if resp.Count != len(action.All()) || len(resp.Actions) != resp.Count {
		t.Fatalf("count = %d, actions = %d, want %d", resp.Count, len(resp.Actions), len(action.All()))
	}
	if resp.Actions[0].Action != action.MoveForward {
		t.Errorf("first action = %q, want %q", resp.Actions[0].Action, action.MoveForward)
	}
}

// ─── Sequences ─────────────────────────────────────────────────────

func TestSequenceLifecycle(t *testing.T) {
	f := testServer(t)

	w := f.do(t, http.MethodPost, "/api/v1/sequences", map[string]any{"name": "morning"})
	expectStatus(t, w, http.StatusCreated)
	created := decode[sequence.Sequence](t, w)
	base := "/api/v1/sequences/" + created.ID

	var stepIDs []string
	for _, body := range []map[string]any{
		{"action": "move-forward", "param": "50", "duration_seconds": 3},
		{"action": "turn-left", "duration_seconds": 2},
		{"action": "cleaning", "duration_seconds": 10},
	} {
		w = f.do(t, http.MethodPost, base+"/steps", body)
		expectStatus(t, w, http.StatusCreated)
		stepIDs = append(stepIDs, decode[sequence.Step](t, w).ID)
	}

	w = f.do(t, http.MethodPatch, base+"/steps/"+stepIDs[1], map[string]any{"field": "duration", "value": "4"})
	expectStatus(t, w, http.StatusOK)

	w = f.do(t, http.MethodPut, base+"/steps/"+stepIDs[2],
		map[string]any{"action": "custom", "param": "dock-and-scan", "duration_seconds": 6})
	expectStatus(t, w, http.StatusOK)

	w = f.do(t, http.MethodPost, base+"/steps/swap", map[string]any{"i": 0, "j": 2})
	expectStatus(t, w, http.StatusOK)

	w = f.do(t, http.MethodDelete, base+"/steps/"+stepIDs[1], nil)
	expectStatus(t, w, http.StatusNoContent)

	w = f.do(t, http.MethodPatch, base, map[string]any{"name": "evening"})
	expectStatus(t, w, http.StatusOK)

	w = f.do(t, http.MethodGet, base, nil)
	expectStatus(t, w, http.StatusOK)
	got := decode[struct {
		sequence.Sequence
		StepCount    int `json:"step_count"`
		TotalSeconds int `json:"total_seconds"`
	}](t, w)

	if got.Name != "evening" {
		t.Errorf("Name = %q, want evening", got.Name)
	}
	if got.StepCount != 2 || got.TotalSeconds != 9 {
		t.Errorf("step_count = %d, total_seconds = %d, want 2 and 9", got.StepCount, got.TotalSeconds)
	}
	if got.Steps[0].ID != stepIDs[2] || got.Steps[0].Action != action.Custom || got.Steps[0].Param != "dock-and-scan" {
		t.Errorf("steps[0] = %+v, want replaced custom step first", got.Steps[0])
	}
	if got.Steps[1].ID != stepIDs[0] {
		t.Errorf("steps[1] = %+v, want original first step", got.Steps[1])
	}

	w = f.do(t, http.MethodGet, "/api/v1/sequences", nil)
	expectStatus(t, w, http.StatusOK)
	if list := decode[map[string]any](t, w); list["count"] != float64(1) {
		t.Errorf("list count = %v, want 1", list["count"])
	}

	w = f.do(t, http.MethodDelete, base, nil)
	expectStatus(t, w, http.StatusNoContent)

	w = f.do(t, http.MethodGet, base, nil)
	expectStatus(t, w, http.StatusNotFound)
}

func TestStepRequests_Rejected(t *testing.T) {
	f := testServer(t)
	id := f.sequence(t, "s", 1)
	steps, _ := f.sequences.ListSteps(context.Background(), id) //nolint:errcheck // sequence exists
	base := "/api/v1/sequences/" + id

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
		code   string
	}{
		{"unknown action", http.MethodPost, base + "/steps", map[string]any{"action": "fly", "duration_seconds": 1}, 400, ErrCodeValidation},
		{"missing duration", http.MethodPost, base + "/steps", map[string]any{"action": "wait"}, 400, ErrCodeValidation},
		{"zero duration", http.MethodPatch, base + "/steps/" + steps[0].ID, map[string]any{"field": "duration", "value": "0"}, 400, ErrCodeValidation},
		{"duration over a day", http.MethodPost, base + "/steps", map[string]any{"action": "wait", "duration_seconds": 86401}, 400, ErrCodeValidation},
		{"param on parameterless action", http.MethodPost, base + "/steps", map[string]any{"action": "wait", "param": "5", "duration_seconds": 1}, 400, ErrCodeValidation},
		{"custom without name", http.MethodPost, base + "/steps", map[string]any{"action": "custom", "duration_seconds": 1}, 400, ErrCodeValidation},
		{"unknown field", http.MethodPatch, base + "/steps/" + steps[0].ID, map[string]any{"field": "colour", "value": "red"}, 400, ErrCodeValidation},
		{"swap out of range", http.MethodPost, base + "/steps/swap", map[string]any{"i": 0, "j": 5}, 400, ErrCodeValidation},
		{"swap missing index", http.MethodPost, base + "/steps/swap", map[string]any{"i": 0}, 400, ErrCodeValidation},
		{"unknown step", http.MethodDelete, base + "/steps/nope", nil, 404, ErrCodeNotFound},
		{"unknown sequence", http.MethodPost, "/api/v1/sequences/nope/steps", map[string]any{"action": "wait", "duration_seconds": 1}, 404, ErrCodeNotFound},
		{"malformed JSON", http.MethodPost, base + "/steps", "{", 400, ErrCodeBadRequest},
		{"unknown JSON field", http.MethodPost, base + "/steps", map[string]any{"action": "wait", "duration_seconds": 1, "speed": 3}, 400, ErrCodeBadRequest},
		{"name too long", http.MethodPatch, base, map[string]any{"name": strings.Repeat("x", 101)}, 400, ErrCodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, tt.method, tt.path, tt.body)
			expectStatus(t, w, tt.want)
			if e := decode[Error](t, w); e.Code != tt.code {
				t.Errorf("code = %q, want %q (%s)", e.Code, tt.code, e.Message)
			}
		})
	}

	// Nothing above may have changed the sequence.
	after, _ := f.sequences.ListSteps(context.Background(), id) //nolint:errcheck // sequence exists
	if len(after) != 1 || after[0] != steps[0] {
		t.Errorf("steps after rejected requests = %+v, want %+v", after, steps)
	}
}

func TestDeleteSequence_ReferencedBySchedule(t *testing.T) {
	f := testServer(t)
	id := f.sequence(t, "s", 1)
	if _, err := f.schedules.Create(context.Background(), id, "07:00", schedule.FrequencyDaily); err != nil {
		t.Fatalf("schedule Create: %v", err)
	}

	w := f.do(t, http.MethodDelete, "/api/v1/sequences/"+id, nil)
	expectStatus(t, w, http.StatusConflict)

	w = f.do(t, http.MethodGet, "/api/v1/sequences/"+id+"/schedules", nil)
	expectStatus(t, w, http.StatusOK)
	if resp := decode[map[string]any](t, w); resp["count"] != float64(1) {
		t.Errorf("referencing count = %v, want 1", resp["count"])
	}
}

func TestDeleteSequence_CascadeDeactivates(t *testing.T) {
	f := testServer(t, func(o *serverOptions) { o.policy = sequence.PolicyCascade })
	id := f.sequence(t, "s", 1)
	sc, err := f.schedules.Create(context.Background(), id, "07:00", schedule.FrequencyDaily)
	if err != nil {
		t.Fatalf("schedule Create: %v", err)
	}

	w := f.do(t, http.MethodDelete, "/api/v1/sequences/"+id, nil)
	expectStatus(t, w, http.StatusNoContent)

	w = f.do(t, http.MethodGet, "/api/v1/schedules/"+sc.ID, nil)
	expectStatus(t, w, http.StatusOK)
	if got := decode[schedule.Schedule](t, w); got.Active {
		t.Error("schedule still active after cascade delete")
	}

	w = f.do(t, http.MethodGet, "/api/v1/events?event_type=schedule-deactivated&entity_id="+sc.ID, nil)
	expectStatus(t, w, http.StatusOK)
	if res := decode[audit.ListResult](t, w); res.Total != 1 {
		t.Errorf("schedule-deactivated events = %d, want 1", res.Total)
	}
}

// ─── Execution and Runs ────────────────────────────────────────────

func TestExecuteSequence(t *testing.T) {
	f := testServer(t)
	id := f.sequence(t, "s", 5, 5, 5)

	w := f.do(t, http.MethodPost, "/api/v1/sequences/"+id+"/execute", map[string]any{"source": "console"})
	expectStatus(t, w, http.StatusAccepted)
	run := decode[execution.Run](t, w)
	if run.ID == "" || run.SequenceID != id {
		t.Fatalf("run = %+v", run)
	}
	if run.Trigger.Type != event.TriggerManual || run.Trigger.Source != "console" {
		t.Errorf("trigger = %+v, want manual/console", run.Trigger)
	}

	final := waitTerminal(t, f.executor, run.ID)
	if final.Status != execution.StatusCompleted || final.StepsDispatched != 3 {
		t.Errorf("final = %s with %d steps, want completed with 3", final.Status, final.StepsDispatched)
	}
	if n := len(f.dispatch.Sent()); n != 3 {
		t.Errorf("commands sent = %d, want 3", n)
	}

	w = f.do(t, http.MethodGet, "/api/v1/runs/"+run.ID, nil)
	expectStatus(t, w, http.StatusOK)

	w = f.do(t, http.MethodGet, "/api/v1/runs/history", nil)
	expectStatus(t, w, http.StatusOK)
	if resp := decode[map[string]any](t, w); resp["count"] != float64(1) {
		t.Errorf("history count = %v, want 1", resp["count"])
	}

	// started + 3 dispatched + completed; the terminal event lands just
	// after the status flips.
	var res audit.ListResult
	waitFor(t, "five recorded events", func() bool {
		w = f.do(t, http.MethodGet, "/api/v1/events?run_id="+run.ID+"&limit=50", nil)
		expectStatus(t, w, http.StatusOK)
		res = decode[audit.ListResult](t, w)
		return res.Total == 5
	})
	if res.Logs[0].EventType != string(event.SequenceCompleted) {
		t.Errorf("newest event = %q, want %q", res.Logs[0].EventType, event.SequenceCompleted)
	}
}

func TestExecuteSequence_DefaultsSourceWithoutBody(t *testing.T) {
	f := testServer(t)
	id := f.sequence(t, "s", 1)

	w := f.do(t, http.MethodPost, "/api/v1/sequences/"+id+"/execute", nil)
	expectStatus(t, w, http.StatusAccepted)
	if run := decode[execution.Run](t, w); run.Trigger.Source != "api" {
		t.Errorf("trigger source = %q, want api", run.Trigger.Source)
	}
}

func TestExecuteSequence_NotFound(t *testing.T) {
	f := testServer(t)

	w := f.do(t, http.MethodPost, "/api/v1/sequences/missing/execute", nil)
	expectStatus(t, w, http.StatusNotFound)
}

func TestExecuteSequence_QueueFull(t *testing.T) {
	f := testServer(t, func(o *serverOptions) { o.maxQueue = 1 })
	id := f.sequence(t, "long", 2000)

	path := "/api/v1/sequences/" + id + "/execute"
	expectStatus(t, f.do(t, http.MethodPost, path, nil), http.StatusAccepted) // runs
	expectStatus(t, f.do(t, http.MethodPost, path, nil), http.StatusAccepted) // queued

	w := f.do(t, http.MethodPost, path, nil)
	expectStatus(t, w, http.StatusServiceUnavailable)
	if e := decode[Error](t, w); e.Code != ErrCodeUnavailable {
		t.Errorf("code = %q, want %q", e.Code, ErrCodeUnavailable)
	}

	w = f.do(t, http.MethodGet, "/api/v1/runs", nil)
	expectStatus(t, w, http.StatusOK)
	resp := decode[struct {
		Active *execution.Run  `json:"active"`
		Queued []execution.Run `json:"queued"`
	}](t, w)
	if resp.Active == nil || len(resp.Queued) != 1 {
		t.Errorf("runs = active %v, queued %d; want one of each", resp.Active, len(resp.Queued))
	}
}

func TestCancelRun(t *testing.T) {
	f := testServer(t)
	id := f.sequence(t, "long", 2000, 2000)

	run := decode[execution.Run](t, f.do(t, http.MethodPost, "/api/v1/sequences/"+id+"/execute", nil))

	w := f.do(t, http.MethodGet, "/api/v1/runs/active", nil)
	expectStatus(t, w, http.StatusOK)
	if active := decode[execution.Run](t, w); active.ID != run.ID {
		t.Errorf("active run = %s, want %s", active.ID, run.ID)
	}

	w = f.do(t, http.MethodPost, "/api/v1/runs/"+run.ID+"/cancel", nil)
	expectStatus(t, w, http.StatusAccepted)

	final := waitTerminal(t, f.executor, run.ID)
	if final.Status != execution.StatusCancelled {
		t.Errorf("status = %s, want cancelled", final.Status)
	}
	if final.StepsDispatched > 1 {
		t.Errorf("steps dispatched = %d, want at most 1", final.StepsDispatched)
	}

	w = f.do(t, http.MethodGet, "/api/v1/runs/active", nil)
	expectStatus(t, w, http.StatusNotFound)

	// Cancelling a finished run is accepted and leaves it unchanged.
	w = f.do(t, http.MethodPost, "/api/v1/runs/"+run.ID+"/cancel", nil)
	expectStatus(t, w, http.StatusAccepted)
	if again := decode[execution.Run](t, w); again.Status != execution.StatusCancelled {
		t.Errorf("status after second cancel = %s", again.Status)
	}

	w = f.do(t, http.MethodPost, "/api/v1/runs/unknown/cancel", nil)
	expectStatus(t, w, http.StatusNotFound)
}

// ─── Schedules ─────────────────────────────────────────────────────

func TestScheduleLifecycle(t *testing.T) {
	f := testServer(t)
	id := f.sequence(t, "s", 1)

	w := f.do(t, http.MethodPost, "/api/v1/schedules",
		map[string]any{"sequence_id": id, "trigger_time": "06:30", "frequency": "weekdays"})
	expectStatus(t, w, http.StatusCreated)
	created := decode[scheduleResponse](t, w)
	if !created.Active || created.NextFireAt == nil {
		t.Fatalf("created = %+v, want active with next_fire_at", created)
	}
	if wd := created.NextFireAt.Weekday(); wd == time.Saturday || wd == time.Sunday {
		t.Errorf("next_fire_at on %s for a weekdays schedule", wd)
	}
	if h, m := created.NextFireAt.Hour(), created.NextFireAt.Minute(); h != 6 || m != 30 {
		t.Errorf("next_fire_at = %02d:%02d, want 06:30", h, m)
	}

	base := "/api/v1/schedules/" + created.ID
	w = f.do(t, http.MethodPatch, base, map[string]any{"field": "active", "value": "false"})
	expectStatus(t, w, http.StatusOK)
	if got := decode[scheduleResponse](t, w); got.Active || got.NextFireAt != nil {
		t.Errorf("after deactivate = %+v, want inactive without next_fire_at", got)
	}

	w = f.do(t, http.MethodGet, "/api/v1/schedules/active", nil)
	expectStatus(t, w, http.StatusOK)
	if resp := decode[map[string]any](t, w); resp["count"] != float64(0) {
		t.Errorf("active count = %v, want 0", resp["count"])
	}

	w = f.do(t, http.MethodGet, "/api/v1/schedules?active=false&sequence_id="+id, nil)
	expectStatus(t, w, http.StatusOK)
	if resp := decode[map[string]any](t, w); resp["count"] != float64(1) {
		t.Errorf("filtered count = %v, want 1", resp["count"])
	}

	w = f.do(t, http.MethodPatch, base, map[string]any{"field": "trigger_time", "value": "18:05"})
	expectStatus(t, w, http.StatusOK)
	if got := decode[scheduleResponse](t, w); got.TriggerTime != "18:05" {
		t.Errorf("trigger_time = %q, want 18:05", got.TriggerTime)
	}

	w = f.do(t, http.MethodDelete, base, nil)
	expectStatus(t, w, http.StatusNoContent)
	expectStatus(t, f.do(t, http.MethodGet, base, nil), http.StatusNotFound)
}

type scheduleResponse struct {
	schedule.Schedule
	NextFireAt *time.Time `json:"next_fire_at"`
}

func TestScheduleRequests_Rejected(t *testing.T) {
	f := testServer(t)
	id := f.sequence(t, "s", 1)
	sc, err := f.schedules.Create(context.Background(), id, "07:00", schedule.FrequencyDaily)
	if err != nil {
		t.Fatalf("schedule Create: %v", err)
	}

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"bad time", http.MethodPost, "/api/v1/schedules", map[string]any{"sequence_id": id, "trigger_time": "24:00", "frequency": "daily"}, 400},
		{"bad frequency", http.MethodPost, "/api/v1/schedules", map[string]any{"sequence_id": id, "trigger_time": "07:00", "frequency": "hourly"}, 400},
		{"missing sequence", http.MethodPost, "/api/v1/schedules", map[string]any{"trigger_time": "07:00", "frequency": "daily"}, 400},
		{"dangling sequence", http.MethodPost, "/api/v1/schedules", map[string]any{"sequence_id": "ghost", "trigger_time": "07:00", "frequency": "daily"}, 400},
		{"repoint to ghost", http.MethodPatch, "/api/v1/schedules/" + sc.ID, map[string]any{"field": "sequence_id", "value": "ghost"}, 400},
		{"bad active", http.MethodPatch, "/api/v1/schedules/" + sc.ID, map[string]any{"field": "active", "value": "maybe"}, 400},
		{"unknown field", http.MethodPatch, "/api/v1/schedules/" + sc.ID, map[string]any{"field": "colour", "value": "x"}, 400},
		{"unknown schedule", http.MethodPatch, "/api/v1/schedules/nope", map[string]any{"field": "active", "value": "true"}, 404},
		{"bad active filter", http.MethodGet, "/api/v1/schedules?active=sometimes", nil, 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectStatus(t, f.do(t, tt.method, tt.path, tt.body), tt.want)
		})
	}

	got, _ := f.schedules.Get(context.Background(), sc.ID) //nolint:errcheck // schedule exists
	if got.SequenceID != id || got.TriggerTime != "07:00" || !got.Active {
		t.Errorf("schedule changed by rejected requests: %+v", got)
	}
}

func TestListEvents_BadQuery(t *testing.T) {
	f := testServer(t)

	expectStatus(t, f.do(t, http.MethodGet, "/api/v1/events?limit=ten", nil), http.StatusBadRequest)
	expectStatus(t, f.do(t, http.MethodGet, "/api/v1/events?offset=-1", nil), http.StatusBadRequest)
	expectStatus(t, f.do(t, http.MethodGet, "/api/v1/events", nil), http.StatusOK)
}

// ─── Server lifecycle ──────────────────────────────────────────────

func TestServer_StartClose(t *testing.T) {
	f := testServer(t)

	if err := f.srv.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() before Start should fail")
	}
	if err := f.srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	resp, err := http.Get("http://" + f.srv.Addr() + "/api/v1/health")
	if err != nil {
		t.Fatalf("GET health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d, want 200", resp.StatusCode)
	}

	if err := f.srv.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() after Start = %v", err)
	}
	if err := f.srv.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestNew_RequiresDependencies(t *testing.T) {
	if _, err := New(Deps{}); err == nil {
		t.Error("New() without logger should fail")
	}
	if _, err := New(Deps{Logger: testLogger()}); err == nil {
		t.Error("New() without stores should fail")
	}
}
