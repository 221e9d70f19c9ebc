package event

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

type mockLogger struct {
	mu      sync.Mutex
	entries []string
}

func (m *mockLogger) log(level, msg string, args ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, fmt.Sprint(level, " ", msg, args))
}

func (m *mockLogger) Debug(msg string, args ...any) { m.log("DEBUG", msg, args...) }
func (m *mockLogger) Info(msg string, args ...any)  { m.log("INFO", msg, args...) }
func (m *mockLogger) Warn(msg string, args ...any)  { m.log("WARN", msg, args...) }
func (m *mockLogger) Error(msg string, args ...any) { m.log("ERROR", msg, args...) }

func (m *mockLogger) count(prefix string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.entries {
		if len(e) >= len(prefix) && e[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

func TestMulti_FansOutInOrder(t *testing.T) {
	a, b := NewRecorder(), NewRecorder()
	m := NewMulti(a, nil, b)

	m.Emit(Event{Type: SequenceStarted, SequenceID: "s1"})
	m.Emit(Event{Type: SequenceCompleted, SequenceID: "s1"})

	for name, r := range map[string]*Recorder{"a": a, "b": b} {
		types := r.Types()
		if len(types) != 2 || types[0] != SequenceStarted || types[1] != SequenceCompleted {
			t.Errorf("recorder %s got %v", name, types)
		}
	}
}

func TestMulti_StampsTimestamp(t *testing.T) {
	r := NewRecorder()
	NewMulti(r).Emit(Event{Type: ScheduleFired})

	if r.Events()[0].Timestamp.IsZero() {
		t.Error("Multi should stamp a zero timestamp")
	}

	fixed := time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC)
	NewMulti(r).Emit(Event{Type: ScheduleFired, Timestamp: fixed})
	if !r.Events()[1].Timestamp.Equal(fixed) {
		t.Error("Multi should keep an existing timestamp")
	}
}

func TestMulti_PanickingSinkIsIsolated(t *testing.T) {
	logger := &mockLogger{}
	after := NewRecorder()
	m := NewMulti(SinkFunc(func(Event) { panic("boom") }), after)
	m.SetLogger(logger)

	m.Emit(Event{Type: SequenceFailed, Reason: "x"})

	if after.Count(SequenceFailed) != 1 {
		t.Error("sink after a panicking sink should still receive the event")
	}
	if logger.count("ERROR") != 1 {
		t.Error("panic should be logged once")
	}
}

func TestLogSink_Levels(t *testing.T) {
	logger := &mockLogger{}
	s := NewLogSink(logger)

	s.Emit(Event{Type: StepDispatched, StepIndex: Index(0), Action: "wait"})
	s.Emit(Event{Type: SequenceFailed, Reason: "unreachable"})
	s.Emit(Event{Type: ScheduleOrphaned, ScheduleID: "sch"})
	s.Emit(Event{Type: SequenceCompleted})

	if logger.count("DEBUG") != 1 || logger.count("WARN") != 2 || logger.count("INFO") != 1 {
		t.Errorf("unexpected level distribution: %v", logger.entries)
	}
}

func TestRecorder_WaitFor(t *testing.T) {
	r := NewRecorder()
	go func() {
		time.Sleep(5 * time.Millisecond)
		r.Emit(Event{Type: SequenceCompleted})
	}()

	ok := r.WaitFor(time.Second, func(events []Event) bool { return len(events) == 1 })
	if !ok {
		t.Fatal("WaitFor() timed out")
	}
	if r.WaitFor(10*time.Millisecond, func(events []Event) bool { return len(events) == 2 }) {
		t.Error("WaitFor() should report false when predicate never holds")
	}
}

func TestEvent_String(t *testing.T) {
	tests := []struct {
		e    Event
		want string
	}{
		{Event{Type: StepDispatched, SequenceID: "s", StepIndex: Index(2), Action: "wait"}, "step-dispatched(s #2 wait)"},
		{Event{Type: SequenceFailed, SequenceID: "s", Reason: "timeout"}, "sequence-failed(s: timeout)"},
		{Event{Type: SequenceStarted, SequenceID: "s"}, "sequence-started(s)"},
		{Event{Type: ScheduleFired, ScheduleID: "x"}, "schedule-fired(x)"},
	}
	for _, tt := range tests {
		if got := tt.e.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestType_IsRunEvent(t *testing.T) {
	for _, typ := range AllTypes() {
		want := typ != ScheduleFired && typ != ScheduleDeactivated && typ != ScheduleOrphaned
		if typ.IsRunEvent() != want {
			t.Errorf("%s.IsRunEvent() = %v, want %v", typ, typ.IsRunEvent(), want)
		}
	}
}
