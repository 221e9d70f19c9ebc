package schedule

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/nerrad567/robot-sequencer/internal/event"
)

// Logger defines the logging interface used by the Store and Engine.
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

// SequenceLookup reports whether a sequence exists.
type SequenceLookup interface {
	Exists(ctx context.Context, id string) bool
}

// Store owns the schedule collection: a Repository fronted by an in-memory
// cache. Reads return deep copies; mutations are validated on a private
// copy and only swapped in after they persist.
//
// The store implements sequence.ScheduleReferences. It calls into the
// sequence store while holding its own lock, never the other way round.
//
// All public methods are thread-safe.
type Store struct {
	repo      Repository
	sequences SequenceLookup
	sink      event.Sink
	logger    Logger

	mu    sync.RWMutex
	cache map[string]*Schedule
}

// NewStore creates a new schedule store. Call RefreshCache before use.
func NewStore(repo Repository, sequences SequenceLookup) *Store {
	return &Store{
		repo:      repo,
		sequences: sequences,
		sink:      event.Discard,
		logger:    noopLogger{},
		cache:     make(map[string]*Schedule),
	}
}

// SetLogger sets the logger for the store.
func (s *Store) SetLogger(logger Logger) {
	s.logger = logger
}

// SetSink sets where schedule-deactivated events go.
func (s *Store) SetSink(sink event.Sink) {
	if sink != nil {
		s.sink = sink
	}
}

// RefreshCache reloads all schedules from the repository.
func (s *Store) RefreshCache(ctx context.Context) error {
	list, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading schedules: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache = make(map[string]*Schedule, len(list))
	for i := range list {
		s.cache[list[i].ID] = list[i].DeepCopy()
	}

	s.logger.Info("schedule cache refreshed", "count", len(list))
	return nil
}

// Create adds an active schedule for sequenceID.
//
// Returns ErrValidation-wrapped errors for a bad time or frequency and
// ErrDanglingReference when the sequence does not exist.
func (s *Store) Create(ctx context.Context, sequenceID, triggerTime string, frequency Frequency) (*Schedule, error) {
	now := time.Now().UTC()
	sched := &Schedule{
		ID:          GenerateID(),
		SequenceID:  sequenceID,
		TriggerTime: triggerTime,
		Frequency:   frequency,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := ValidateSchedule(sched); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.sequences.Exists(ctx, sequenceID) {
		return nil, fmt.Errorf("%w: %s", ErrDanglingReference, sequenceID)
	}
	if err := s.repo.Create(ctx, sched); err != nil {
		return nil, err
	}
	s.cache[sched.ID] = sched.DeepCopy()

	s.logger.Info("schedule created",
		"schedule_id", sched.ID,
		"sequence_id", sequenceID,
		"trigger_time", triggerTime,
		"frequency", string(frequency),
	)
	return sched, nil
}

// Update changes one field. Values arrive as strings; active accepts
// anything strconv.ParseBool does. Re-activating a consumed once schedule
// is allowed.
func (s *Store) Update(ctx context.Context, id string, field Field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cached, ok := s.cache[id]
	if !ok {
		return ErrScheduleNotFound
	}
	working := cached.DeepCopy()

	switch field {
	case FieldSequenceID:
		working.SequenceID = value
	case FieldTriggerTime:
		working.TriggerTime = value
	case FieldFrequency:
		working.Frequency = Frequency(value)
	case FieldActive:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return invalid(ErrInvalidField, "active %q is not a boolean", value)
		}
		working.Active = b
	default:
		return invalid(ErrInvalidField, "unknown schedule field %q", field)
	}

	if err := ValidateSchedule(working); err != nil {
		return err
	}
	// An active schedule must point at a live sequence whatever field changed.
	// Inactive orphans can still be edited or switched off.
	if (field == FieldSequenceID || working.Active) && !s.sequences.Exists(ctx, working.SequenceID) {
		return fmt.Errorf("%w: %s", ErrDanglingReference, working.SequenceID)
	}

	return s.persistLocked(ctx, working)
}

// Delete removes a schedule.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cache[id]; !ok {
		return ErrScheduleNotFound
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	delete(s.cache, id)

	s.logger.Info("schedule deleted", "schedule_id", id)
	return nil
}

// Get returns a deep copy of a schedule.
func (s *Store) Get(_ context.Context, id string) (*Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sched, ok := s.cache[id]
	if !ok {
		return nil, ErrScheduleNotFound
	}
	return sched.DeepCopy(), nil
}

// List returns every schedule, oldest first.
func (s *Store) List(_ context.Context) []Schedule {
	return s.filter(func(*Schedule) bool { return true })
}

// ListActive returns the active schedules, oldest first.
func (s *Store) ListActive(_ context.Context) []Schedule {
	return s.filter(func(sc *Schedule) bool { return sc.Active })
}

// ReferencingSchedules returns the IDs of all schedules, active or not,
// that point at sequenceID.
func (s *Store) ReferencingSchedules(_ context.Context, sequenceID string) ([]string, error) {
	list := s.filter(func(sc *Schedule) bool { return sc.SequenceID == sequenceID })
	ids := make([]string, len(list))
	for i := range list {
		ids[i] = list[i].ID
	}
	return ids, nil
}

// DeactivateForSequence deactivates every active schedule pointing at
// sequenceID. Each one emits schedule-deactivated.
func (s *Store) DeactivateForSequence(ctx context.Context, sequenceID string) (int, error) {
	s.mu.Lock()
	var changed []string
	for id, sc := range s.cache {
		if sc.SequenceID != sequenceID || !sc.Active {
			continue
		}
		working := sc.DeepCopy()
		working.Active = false
		if err := s.persistLocked(ctx, working); err != nil {
			s.mu.Unlock()
			s.emitDeactivated(changed, sequenceID, "sequence deleted")
			return len(changed), err
		}
		changed = append(changed, id)
	}
	s.mu.Unlock()

	sort.Strings(changed)
	s.emitDeactivated(changed, sequenceID, "sequence deleted")
	return len(changed), nil
}

// ClaimFire records a fire request for minute. It returns false when the
// schedule is inactive or already fired in that minute, so re-entered
// evaluation cannot fire it twice. A once schedule is switched off in the
// same write; the caller reports the deactivation.
func (s *Store) ClaimFire(ctx context.Context, id string, minute time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cached, ok := s.cache[id]
	if !ok {
		return false, ErrScheduleNotFound
	}
	if !cached.Active || cached.FiredDuring(minute) {
		return false, nil
	}

	working := cached.DeepCopy()
	at := minute.Truncate(time.Minute).UTC()
	working.LastFiredAt = &at
	if working.Frequency == FrequencyOnce {
		working.Active = false
	}
	if err := s.persistLocked(ctx, working); err != nil {
		return false, err
	}
	return true, nil
}

// releaseOnce reactivates a once schedule whose claimed run could not be
// requested. It does nothing if the schedule changed since the claim.
func (s *Store) releaseOnce(ctx context.Context, id string, minute time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cached, ok := s.cache[id]
	if !ok {
		return ErrScheduleNotFound
	}
	if cached.Active || cached.Frequency != FrequencyOnce || !cached.FiredDuring(minute) {
		return nil
	}

	working := cached.DeepCopy()
	working.Active = true
	return s.persistLocked(ctx, working)
}

// Count returns the number of schedules.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cache)
}

func (s *Store) filter(keep func(*Schedule) bool) []Schedule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Schedule, 0, len(s.cache))
	for _, sc := range s.cache {
		if keep(sc) {
			out = append(out, *sc.DeepCopy())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// persistLocked writes working and swaps it into the cache. Caller holds s.mu.
func (s *Store) persistLocked(ctx context.Context, working *Schedule) error {
	working.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, working); err != nil {
		return err
	}
	s.cache[working.ID] = working
	s.logger.Debug("schedule updated", "schedule_id", working.ID, "active", working.Active)
	return nil
}

func (s *Store) emitDeactivated(ids []string, sequenceID, reason string) {
	for _, id := range ids {
		s.logger.Info("schedule deactivated", "schedule_id", id, "sequence_id", sequenceID, "reason", reason)
		s.sink.Emit(event.Event{
			Type:       event.ScheduleDeactivated,
			ScheduleID: id,
			SequenceID: sequenceID,
			Reason:     reason,
		})
	}
}
