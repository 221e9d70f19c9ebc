package schedule

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Frequency is the recurrence rule of a schedule.
type Frequency string

const (
	FrequencyDaily    Frequency = "daily"
	FrequencyWeekdays Frequency = "weekdays"
	FrequencyWeekends Frequency = "weekends"
	FrequencyOnce     Frequency = "once"
)

// AllFrequencies returns every frequency in display order.
func AllFrequencies() []Frequency {
	return []Frequency{FrequencyDaily, FrequencyWeekdays, FrequencyWeekends, FrequencyOnce}
}

// Valid reports whether f is a known frequency.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekdays, FrequencyWeekends, FrequencyOnce:
		return true
	}
	return false
}

// AllowsDay reports whether f permits firing on wd.
func (f Frequency) AllowsDay(wd time.Weekday) bool {
	switch f {
	case FrequencyWeekdays:
		return wd >= time.Monday && wd <= time.Friday
	case FrequencyWeekends:
		return wd == time.Saturday || wd == time.Sunday
	case FrequencyDaily, FrequencyOnce:
		return true
	}
	return false
}

// cronDays is the day-of-week field for f.
func (f Frequency) cronDays() string {
	switch f {
	case FrequencyWeekdays:
		return "1-5"
	case FrequencyWeekends:
		return "0,6"
	default:
		return "*"
	}
}

// Field names an updatable schedule attribute.
type Field string

const (
	FieldSequenceID  Field = "sequence_id"
	FieldTriggerTime Field = "trigger_time"
	FieldFrequency   Field = "frequency"
	FieldActive      Field = "active"
)

// Schedule binds a sequence to a time of day and a recurrence rule.
type Schedule struct {
	ID         string `json:"id"`
	SequenceID string `json:"sequence_id"`

	// TriggerTime is "HH:MM" in the site timezone.
	TriggerTime string    `json:"trigger_time"`
	Frequency   Frequency `json:"frequency"`
	Active      bool      `json:"active"`

	// LastFiredAt is the minute of the last fire request.
	LastFiredAt *time.Time `json:"last_fired_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DeepCopy returns an independent copy.
func (s *Schedule) DeepCopy() *Schedule {
	if s == nil {
		return nil
	}
	cpy := *s
	if s.LastFiredAt != nil {
		t := *s.LastFiredAt
		cpy.LastFiredAt = &t
	}
	return &cpy
}

// Clock returns the trigger hour and minute. The trigger time must be valid.
func (s *Schedule) Clock() (hour, minute int) {
	h, m, _ := parseTriggerTime(s.TriggerTime)
	return h, m
}

// Matches reports whether the schedule is due at local time t: same minute
// of day and a day its frequency allows. Active state is not considered.
func (s *Schedule) Matches(t time.Time) bool {
	h, m, err := parseTriggerTime(s.TriggerTime)
	if err != nil {
		return false
	}
	return t.Hour() == h && t.Minute() == m && s.Frequency.AllowsDay(t.Weekday())
}

// FiredDuring reports whether the last fire request fell on minute's wall
// clock date and minute, read in minute's location. The repeated hour of a
// DST fall-back day is therefore one firing window, not two.
func (s *Schedule) FiredDuring(minute time.Time) bool {
	if s.LastFiredAt == nil {
		return false
	}
	last := s.LastFiredAt.In(minute.Location())
	ly, lm, ld := last.Date()
	my, mm, md := minute.Date()
	return ly == my && lm == mm && ld == md &&
		last.Hour() == minute.Hour() && last.Minute() == minute.Minute()
}

// CronSpec renders the schedule as a standard five-field cron expression.
func (s *Schedule) CronSpec() string {
	h, m := s.Clock()
	return fmt.Sprintf("%d %d * * %s", m, h, s.Frequency.cronDays())
}

// NextFireAt returns the next time after from at which the schedule would
// fire, in from's location. Inactive schedules have no next fire.
func (s *Schedule) NextFireAt(from time.Time) (time.Time, bool) {
	if !s.Active {
		return time.Time{}, false
	}
	spec, err := cron.ParseStandard(s.CronSpec())
	if err != nil {
		return time.Time{}, false
	}
	return spec.Next(from), true
}
