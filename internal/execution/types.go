package execution

import (
	"time"

	"github.com/nerrad567/robot-sequencer/internal/event"
)

// Status is the lifecycle state of a run.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transitions can happen.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Run is a point-in-time view of one execution of a sequence.
type Run struct {
	ID              string        `json:"id"`
	SequenceID      string        `json:"sequence_id"`
	Trigger         event.Trigger `json:"trigger"`
	Status          Status        `json:"status"`
	StepsTotal      int           `json:"steps_total"`
	StepsDispatched int           `json:"steps_dispatched"`
	Reason          string        `json:"reason,omitempty"`
	QueuedAt        time.Time     `json:"queued_at"`
	StartedAt       *time.Time    `json:"started_at,omitempty"`
	FinishedAt      *time.Time    `json:"finished_at,omitempty"`
}

// Duration returns how long the run has been (or was) running.
func (r Run) Duration() time.Duration {
	if r.StartedAt == nil {
		return 0
	}
	if r.FinishedAt == nil {
		return time.Since(*r.StartedAt)
	}
	return r.FinishedAt.Sub(*r.StartedAt)
}

func (r Run) clone() Run {
	if r.StartedAt != nil {
		t := *r.StartedAt
		r.StartedAt = &t
	}
	if r.FinishedAt != nil {
		t := *r.FinishedAt
		r.FinishedAt = &t
	}
	return r
}
