package schedule

import (
	"regexp"
	"strconv"

	"github.com/google/uuid"
)

var triggerTimeRegex = regexp.MustCompile(`^([01][0-9]|2[0-3]):([0-5][0-9])$`)

// ValidateTriggerTime checks that s is a 24-hour "HH:MM" time.
func ValidateTriggerTime(s string) error {
	if _, _, err := parseTriggerTime(s); err != nil {
		return err
	}
	return nil
}

func parseTriggerTime(s string) (hour, minute int, err error) {
	m := triggerTimeRegex.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, invalid(ErrInvalidTime, "%q must be HH:MM (00:00-23:59)", s)
	}
	hour, _ = strconv.Atoi(m[1])
	minute, _ = strconv.Atoi(m[2])
	return hour, minute, nil
}

// ParseFrequency converts s into a Frequency.
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(s)
	if !f.Valid() {
		return "", invalid(ErrInvalidFrequency, "%q is not one of daily, weekdays, weekends, once", s)
	}
	return f, nil
}

// ValidateSchedule checks the shape of a schedule. Sequence existence is
// checked by the Store.
func ValidateSchedule(s *Schedule) error {
	if s == nil {
		return invalid(ErrInvalidField, "schedule is nil")
	}
	if s.SequenceID == "" {
		return invalid(ErrInvalidField, "sequence_id is required")
	}
	if err := ValidateTriggerTime(s.TriggerTime); err != nil {
		return err
	}
	if _, err := ParseFrequency(string(s.Frequency)); err != nil {
		return err
	}
	return nil
}

// GenerateID creates a new schedule ID.
func GenerateID() string {
	return uuid.New().String()
}
