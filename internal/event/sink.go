package event

import (
	"sync"
	"time"
)

// Sink receives events. Emit must not block for long: run events are
// delivered synchronously from the executing goroutine.
type Sink interface {
	Emit(e Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(e Event)

// Emit calls f(e).
func (f SinkFunc) Emit(e Event) { f(e) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(Event) {})

// Logger defines the logging interface used by event sinks.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Multi fans events out to several sinks in order. A sink that panics is
// logged and skipped so it cannot affect execution or the other sinks.
type Multi struct {
	mu     sync.RWMutex
	sinks  []Sink
	logger Logger
}

// NewMulti creates a fan-out over sinks. Nil sinks are ignored.
func NewMulti(sinks ...Sink) *Multi {
	m := &Multi{logger: noopLogger{}}
	for _, s := range sinks {
		m.Add(s)
	}
	return m
}

// SetLogger sets the logger used to report misbehaving sinks.
func (m *Multi) SetLogger(logger Logger) {
	m.mu.Lock()
	m.logger = logger
	m.mu.Unlock()
}

// Add registers another sink.
func (m *Multi) Add(s Sink) {
	if s == nil {
		return
	}
	m.mu.Lock()
	m.sinks = append(m.sinks, s)
	m.mu.Unlock()
}

// Emit stamps a missing timestamp and forwards e to every sink.
func (m *Multi) Emit(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	m.mu.RLock()
	sinks := m.sinks
	logger := m.logger
	m.mu.RUnlock()

	for _, s := range sinks {
		emitSafely(s, e, logger)
	}
}

func emitSafely(s Sink, e Event, logger Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("event sink panicked", "type", string(e.Type), "panic", r)
		}
	}()
	s.Emit(e)
}

// LogSink writes every event to a structured logger.
type LogSink struct {
	logger Logger
}

// NewLogSink creates a sink that logs events at info level, failures at warn.
func NewLogSink(logger Logger) *LogSink {
	if logger == nil {
		logger = noopLogger{}
	}
	return &LogSink{logger: logger}
}

// Emit logs e.
func (l *LogSink) Emit(e Event) {
	args := []any{"type", string(e.Type)}
	if e.SequenceID != "" {
		args = append(args, "sequence_id", e.SequenceID)
	}
	if e.ScheduleID != "" {
		args = append(args, "schedule_id", e.ScheduleID)
	}
	if e.RunID != "" {
		args = append(args, "run_id", e.RunID)
	}
	if e.StepIndex != nil {
		args = append(args, "step_index", *e.StepIndex, "action", e.Action)
	}
	if e.Reason != "" {
		args = append(args, "reason", e.Reason)
	}

	switch e.Type {
	case SequenceFailed, ScheduleOrphaned:
		l.logger.Warn("event", args...)
	case StepDispatched:
		l.logger.Debug("event", args...)
	default:
		l.logger.Info("event", args...)
	}
}

// Recorder keeps every event in memory. Useful for tests and diagnostics.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	notify chan struct{}
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{notify: make(chan struct{}, 1)}
}

// Emit appends e.
func (r *Recorder) Emit(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns recorded event types in order.
func (r *Recorder) Types() []Type {
	events := r.Events()
	out := make([]Type, len(events))
	for i, e := range events {
		out[i] = e.Type
	}
	return out
}

// Count returns how many events of type t were recorded.
func (r *Recorder) Count(t Type) int {
	n := 0
	for _, e := range r.Events() {
		if e.Type == t {
			n++
		}
	}
	return n
}

// WaitFor blocks until pred holds over the recorded events or timeout
// elapses. It reports whether pred was satisfied.
func (r *Recorder) WaitFor(timeout time.Duration, pred func([]Event) bool) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		if pred(r.Events()) {
			return true
		}
		select {
		case <-r.notify:
		case <-deadline.C:
			return pred(r.Events())
		}
	}
}
