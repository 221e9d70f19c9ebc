package influxdb

import (
	"sync"
	"time"

	"github.com/nerrad567/robot-sequencer/internal/event"
)

type runStart struct {
	at      time.Time
	trigger string
	steps   int
}

// MetricsSink turns events into points: one per dispatched step, one per
// finished run (with duration and step count) and one per schedule event.
type MetricsSink struct {
	client *Client

	mu   sync.Mutex
	runs map[string]*runStart
}

// NewMetricsSink creates a sink writing through client.
func NewMetricsSink(client *Client) *MetricsSink {
	return &MetricsSink{client: client, runs: make(map[string]*runStart)}
}

// Emit records e.
func (s *MetricsSink) Emit(e event.Event) {
	at := e.Timestamp
	if at.IsZero() {
		at = time.Now().UTC()
	}

	switch e.Type {
	case event.SequenceStarted:
		trigger := event.TriggerManual
		if e.Trigger != nil {
			trigger = e.Trigger.Type
		}
		s.mu.Lock()
		s.runs[e.RunID] = &runStart{at: at, trigger: trigger}
		s.mu.Unlock()

	case event.StepDispatched:
		s.mu.Lock()
		if r, ok := s.runs[e.RunID]; ok {
			r.steps++
		}
		s.mu.Unlock()
		s.client.WriteStepDispatch(e.SequenceID, e.RunID, e.Action, e.StepIndexOr(-1), at)

	case event.SequenceCompleted, event.SequenceFailed, event.SequenceCancelled:
		s.mu.Lock()
		r, ok := s.runs[e.RunID]
		delete(s.runs, e.RunID)
		s.mu.Unlock()

		// A run cancelled while queued never started.
		var duration time.Duration
		trigger, steps := "", 0
		if ok {
			duration = at.Sub(r.at)
			trigger, steps = r.trigger, r.steps
		}
		s.client.WriteRunOutcome(e.SequenceID, e.RunID, runStatus(e.Type), trigger, steps, duration, at)

	case event.ScheduleFired, event.ScheduleDeactivated, event.ScheduleOrphaned:
		s.client.WriteScheduleEvent(e.ScheduleID, e.SequenceID, string(e.Type), at)
	}
}

func runStatus(t event.Type) string {
	switch t {
	case event.SequenceCompleted:
		return "completed"
	case event.SequenceFailed:
		return "failed"
	default:
		return "cancelled"
	}
}
