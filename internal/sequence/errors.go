package sequence

import (
	"errors"
	"fmt"
)

// Domain errors for the sequence package.
//
// Every validation failure also matches ErrValidation:
//
//	if errors.Is(err, sequence.ErrValidation) {
//	    // reject the request, nothing was stored
//	}
var (
	// ErrValidation is the umbrella for every rejected mutation.
	ErrValidation = errors.New("sequence: validation failed")

	// ErrSequenceNotFound is returned when a sequence ID does not exist.
	ErrSequenceNotFound = errors.New("sequence: not found")

	// ErrStepNotFound is returned when a step ID does not exist in its sequence.
	ErrStepNotFound = errors.New("sequence: step not found")

	// ErrSequenceExists is returned when creating a sequence whose ID is taken.
	ErrSequenceExists = errors.New("sequence: already exists")

	// ErrReferencedBySchedule is returned when deleting a sequence that
	// schedules still point at under the reject policy.
	ErrReferencedBySchedule = errors.New("sequence: referenced by schedule")

	// ErrInvalidDuration is returned for a step duration outside 1..maxDurationSeconds.
	ErrInvalidDuration = errors.New("sequence: invalid duration")

	// ErrInvalidField is returned for an unknown step field or an unparsable value.
	ErrInvalidField = errors.New("sequence: invalid field")

	// ErrInvalidName is returned when a sequence name is too long.
	ErrInvalidName = errors.New("sequence: invalid name")

	// ErrInvalidIndex is returned by SwapSteps for an out of range position.
	ErrInvalidIndex = errors.New("sequence: invalid step index")

	// ErrTooManySteps is returned when a sequence is already at capacity.
	ErrTooManySteps = errors.New("sequence: too many steps")
)

// invalid wraps kind under ErrValidation with a detail message.
func invalid(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %w: %s", ErrValidation, kind, fmt.Sprintf(format, args...))
}
