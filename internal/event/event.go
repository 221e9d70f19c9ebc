package event

import (
	"fmt"
	"time"
)

// Type names a lifecycle notification.
type Type string

// Event types. Run events are emitted in order per run.
const (
	SequenceStarted   Type = "sequence-started"
	StepDispatched    Type = "step-dispatched"
	SequenceCompleted Type = "sequence-completed"
	SequenceFailed    Type = "sequence-failed"
	SequenceCancelled Type = "sequence-cancelled"

	ScheduleFired       Type = "schedule-fired"
	ScheduleDeactivated Type = "schedule-deactivated"
	ScheduleOrphaned    Type = "schedule-orphaned"
)

// AllTypes returns every event type.
func AllTypes() []Type {
	return []Type{
		SequenceStarted, StepDispatched, SequenceCompleted, SequenceFailed, SequenceCancelled,
		ScheduleFired, ScheduleDeactivated, ScheduleOrphaned,
	}
}

// IsRunEvent reports whether t belongs to an execution run.
func (t Type) IsRunEvent() bool {
	switch t {
	case SequenceStarted, StepDispatched, SequenceCompleted, SequenceFailed, SequenceCancelled:
		return true
	}
	return false
}

// Trigger origins.
const (
	TriggerManual   = "manual"
	TriggerSchedule = "schedule"
)

// Trigger records what asked for a run.
type Trigger struct {
	Type   string `json:"type"`
	Source string `json:"source,omitempty"` // schedule id, API client, ...
}

// Manual returns a trigger for an operator request.
func Manual(source string) Trigger {
	return Trigger{Type: TriggerManual, Source: source}
}

// FromSchedule returns a trigger for a schedule match.
func FromSchedule(scheduleID string) Trigger {
	return Trigger{Type: TriggerSchedule, Source: scheduleID}
}

// Event is a single lifecycle notification.
type Event struct {
	Type       Type      `json:"type"`
	SequenceID string    `json:"sequence_id,omitempty"`
	ScheduleID string    `json:"schedule_id,omitempty"`
	RunID      string    `json:"run_id,omitempty"`
	StepIndex  *int      `json:"step_index,omitempty"`
	Action     string    `json:"action,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	Trigger    *Trigger  `json:"trigger,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// StepIndexOr returns the step index, or def when unset.
func (e Event) StepIndexOr(def int) int {
	if e.StepIndex == nil {
		return def
	}
	return *e.StepIndex
}

// String renders a compact form for logs and test failures.
func (e Event) String() string {
	switch {
	case e.Type == StepDispatched:
		return fmt.Sprintf("%s(%s #%d %s)", e.Type, e.SequenceID, e.StepIndexOr(-1), e.Action)
	case e.Type == SequenceFailed:
		return fmt.Sprintf("%s(%s: %s)", e.Type, e.SequenceID, e.Reason)
	case e.Type.IsRunEvent():
		return fmt.Sprintf("%s(%s)", e.Type, e.SequenceID)
	default:
		return fmt.Sprintf("%s(%s)", e.Type, e.ScheduleID)
	}
}

// Index returns a pointer suitable for Event.StepIndex.
func Index(i int) *int {
	return &i
}
