package sequence

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/nerrad567/robot-sequencer/internal/action"
)

// Validation constants.
const (
	maxNameLength      = 100
	maxSteps           = 100
	minDurationSeconds = 1
	maxDurationSeconds = 24 * 60 * 60
)

// ValidateSequence checks every structural invariant of s.
func ValidateSequence(s *Sequence) error {
	if s == nil {
		return invalid(ErrInvalidField, "sequence is nil")
	}
	if err := ValidateName(s.Name); err != nil {
		return err
	}
	if len(s.Steps) > maxSteps {
		return invalid(ErrTooManySteps, "exceeds maximum of %d steps", maxSteps)
	}

	seen := make(map[string]struct{}, len(s.Steps))
	for i, st := range s.Steps {
		if st.ID == "" {
			return invalid(ErrInvalidField, "step[%d]: id is required", i)
		}
		if _, dup := seen[st.ID]; dup {
			return invalid(ErrInvalidField, "step[%d]: duplicate id %q", i, st.ID)
		}
		seen[st.ID] = struct{}{}

		if err := ValidateStep(st); err != nil {
			return fmt.Errorf("step[%d]: %w", i, err)
		}
	}
	return nil
}

// ValidateStep checks the action catalog and the duration invariant.
func ValidateStep(st Step) error {
	if err := action.Validate(st.Action, st.Param); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return ValidateDuration(st.DurationSeconds)
}

// ValidateDuration requires a positive duration no longer than a day.
func ValidateDuration(seconds int) error {
	if seconds < minDurationSeconds || seconds > maxDurationSeconds {
		return invalid(ErrInvalidDuration, "duration must be %d-%d seconds, got %d",
			minDurationSeconds, maxDurationSeconds, seconds)
	}
	return nil
}

// ValidateName allows an empty name; non-empty names are length-limited.
func ValidateName(name string) error {
	if len(name) > maxNameLength {
		return invalid(ErrInvalidName, "name exceeds %d characters", maxNameLength)
	}
	if name != "" && strings.TrimSpace(name) == "" {
		return invalid(ErrInvalidName, "name cannot be only whitespace")
	}
	return nil
}

// GenerateID creates a new UUID for a sequence or step.
func GenerateID() string {
	return uuid.New().String()
}
