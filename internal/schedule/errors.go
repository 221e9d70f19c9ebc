package schedule

import (
	"errors"
	"fmt"
)

// Domain errors for the schedule package.
//
// Every validation failure also matches ErrValidation.
var (
	// ErrValidation is the umbrella for every rejected mutation.
	ErrValidation = errors.New("schedule: validation failed")

	// ErrScheduleNotFound is returned when a schedule ID does not exist.
	ErrScheduleNotFound = errors.New("schedule: not found")

	// ErrScheduleExists is returned when creating a schedule whose ID is taken.
	ErrScheduleExists = errors.New("schedule: already exists")

	// ErrDanglingReference is returned when a schedule names a sequence
	// that does not exist.
	ErrDanglingReference = errors.New("schedule: sequence does not exist")

	// ErrInvalidTime is returned for a trigger time that is not HH:MM.
	ErrInvalidTime = errors.New("schedule: invalid trigger time")

	// ErrInvalidFrequency is returned for an unknown frequency.
	ErrInvalidFrequency = errors.New("schedule: invalid frequency")

	// ErrInvalidField is returned for an unknown update field or unparsable value.
	ErrInvalidField = errors.New("schedule: invalid field")
)

func invalid(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %w: %s", ErrValidation, kind, fmt.Sprintf(format, args...))
}
