package sequence

import (
	"time"

	"github.com/nerrad567/robot-sequencer/internal/action"
)

// Sequence is an ordered command program. Step order is execution order.
type Sequence struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Steps []Step `json:"steps"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Step is one (action, duration) unit within a sequence.
type Step struct {
	// ID is unique within the owning sequence.
	ID string `json:"id"`

	Action action.Action `json:"action"`

	// Param is the optional action parameter (speed, angle, custom name).
	Param string `json:"param,omitempty"`

	// DurationSeconds is how long the robot is considered busy after dispatch.
	DurationSeconds int `json:"duration_seconds"`
}

// Duration returns the step wait as a time.Duration of the given unit.
func (s Step) Duration(unit time.Duration) time.Duration {
	return time.Duration(s.DurationSeconds) * unit
}

// TotalSeconds is the sum of all step durations.
func (s *Sequence) TotalSeconds() int {
	total := 0
	for _, st := range s.Steps {
		total += st.DurationSeconds
	}
	return total
}

// StepIndex returns the position of stepID, or -1.
func (s *Sequence) StepIndex(stepID string) int {
	for i, st := range s.Steps {
		if st.ID == stepID {
			return i
		}
	}
	return -1
}

// DeepCopy returns an independent copy. Steps hold only value fields, so
// copying the slice is enough.
func (s *Sequence) DeepCopy() *Sequence {
	if s == nil {
		return nil
	}
	cpy := *s
	cpy.Steps = make([]Step, len(s.Steps))
	copy(cpy.Steps, s.Steps)
	return &cpy
}

// StepField names an updatable step attribute.
type StepField string

const (
	FieldAction   StepField = "action"
	FieldParam    StepField = "param"
	FieldDuration StepField = "duration"
)

// DeletePolicy decides how Delete treats a sequence referenced by schedules.
type DeletePolicy string

const (
	// PolicyReject refuses the delete with ErrReferencedBySchedule.
	PolicyReject DeletePolicy = "reject"

	// PolicyCascade deactivates referencing schedules, then deletes.
	PolicyCascade DeletePolicy = "cascade"
)
