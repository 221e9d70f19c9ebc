package sequence

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/nerrad567/robot-sequencer/internal/action"
)

// Logger defines the logging interface used by the Store.
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

// ScheduleReferences is implemented by the schedule store. It lets Delete
// enforce the deletion policy without this package importing schedules.
type ScheduleReferences interface {
	// ReferencingSchedules returns the IDs of schedules that point at sequenceID.
	ReferencingSchedules(ctx context.Context, sequenceID string) ([]string, error)

	// DeactivateForSequence deactivates every active schedule pointing at
	// sequenceID and returns how many changed.
	DeactivateForSequence(ctx context.Context, sequenceID string) (int, error)
}

// Store owns the sequence collection. It wraps a Repository with an
// in-memory cache; reads are served from the cache and return deep copies.
//
// Every mutation runs copy, mutate, validate, persist, swap under the write
// lock, so readers never observe a half-applied change and a rejected
// mutation leaves the sequence untouched.
//
// All public methods are thread-safe.
type Store struct {
	repo   Repository
	mu     sync.RWMutex
	cache  map[string]*Sequence
	logger Logger

	refs   ScheduleReferences
	policy DeletePolicy
}

// NewStore creates a new sequence store. Call RefreshCache before use.
func NewStore(repo Repository) *Store {
	return &Store{
		repo:   repo,
		cache:  make(map[string]*Sequence),
		logger: noopLogger{},
		policy: PolicyReject,
	}
}

// SetLogger sets the logger for the store.
func (s *Store) SetLogger(logger Logger) {
	s.logger = logger
}

// SetScheduleReferences wires the reference checker and the deletion policy.
// Without references every delete succeeds.
func (s *Store) SetScheduleReferences(refs ScheduleReferences, policy DeletePolicy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refs = refs
	s.policy = policy
}

// RefreshCache reloads all sequences from the repository.
func (s *Store) RefreshCache(ctx context.Context) error {
	seqs, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading sequences: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache = make(map[string]*Sequence, len(seqs))
	for i := range seqs {
		s.cache[seqs[i].ID] = seqs[i].DeepCopy()
	}

	s.logger.Info("sequence cache refreshed", "count", len(seqs))
	return nil
}

// Create makes a new empty sequence.
func (s *Store) Create(ctx context.Context, name string) (*Sequence, error) {
	now := time.Now().UTC()
	seq := &Sequence{ID: GenerateID(), Name: name, Steps: []Step{}, CreatedAt: now, UpdatedAt: now}
	if err := ValidateSequence(seq); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.Create(ctx, seq); err != nil {
		return nil, err
	}
	s.cache[seq.ID] = seq.DeepCopy()

	s.logger.Info("sequence created", "sequence_id", seq.ID, "name", seq.Name)
	return seq.DeepCopy(), nil
}

// Get returns a deep copy of a sequence.
func (s *Store) Get(_ context.Context, id string) (*Sequence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seq, ok := s.cache[id]
	if !ok {
		return nil, ErrSequenceNotFound
	}
	return seq.DeepCopy(), nil
}

// Exists reports whether id names a stored sequence.
func (s *Store) Exists(_ context.Context, id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.cache[id]
	return ok
}

// List returns deep copies of all sequences, oldest first.
func (s *Store) List(_ context.Context) ([]Sequence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Sequence, 0, len(s.cache))
	for _, seq := range s.cache {
		out = append(out, *seq.DeepCopy())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ListSteps returns the steps of a sequence in execution order.
func (s *Store) ListSteps(ctx context.Context, id string) ([]Step, error) {
	seq, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return seq.Steps, nil
}

// Count returns the number of sequences.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cache)
}

// Rename changes a sequence's display name.
func (s *Store) Rename(ctx context.Context, id, name string) error {
	return s.mutate(ctx, id, func(seq *Sequence) error {
		seq.Name = name
		return nil
	})
}

// AddStep appends a step and returns its ID.
func (s *Store) AddStep(ctx context.Context, seqID string, a action.Action, param string, durationSeconds int) (string, error) {
	st := Step{ID: GenerateID(), Action: a, Param: param, DurationSeconds: durationSeconds}
	if err := ValidateStep(st); err != nil {
		return "", err
	}

	err := s.mutate(ctx, seqID, func(seq *Sequence) error {
		if len(seq.Steps) >= maxSteps {
			return invalid(ErrTooManySteps, "sequence already has %d steps", maxSteps)
		}
		seq.Steps = append(seq.Steps, st)
		return nil
	})
	if err != nil {
		return "", err
	}
	return st.ID, nil
}

// RemoveStep deletes a step; the remaining steps keep their order.
func (s *Store) RemoveStep(ctx context.Context, seqID, stepID string) error {
	return s.mutate(ctx, seqID, func(seq *Sequence) error {
		i := seq.StepIndex(stepID)
		if i < 0 {
			return ErrStepNotFound
		}
		seq.Steps = append(seq.Steps[:i], seq.Steps[i+1:]...)
		return nil
	})
}

// UpdateStep changes one field of a step. Values arrive as strings.
//
// Changing the action keeps the current parameter when the new action
// accepts it, and clears it otherwise. Use ReplaceStep to switch to an
// action that requires a different parameter.
func (s *Store) UpdateStep(ctx context.Context, seqID, stepID string, field StepField, value string) error {
	return s.mutate(ctx, seqID, func(seq *Sequence) error {
		i := seq.StepIndex(stepID)
		if i < 0 {
			return ErrStepNotFound
		}
		st := &seq.Steps[i]

		switch field {
		case FieldAction:
			a, err := action.Parse(value)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrValidation, err)
			}
			st.Action = a
			if action.Validate(a, st.Param) != nil {
				st.Param = ""
			}
		case FieldParam:
			st.Param = value
		case FieldDuration:
			d, err := strconv.Atoi(value)
			if err != nil {
				return invalid(ErrInvalidField, "duration %q is not an integer", value)
			}
			st.DurationSeconds = d
		default:
			return invalid(ErrInvalidField, "unknown step field %q", field)
		}
		return ValidateStep(*st)
	})
}

// ReplaceStep overwrites action, parameter and duration of a step at once.
func (s *Store) ReplaceStep(ctx context.Context, seqID, stepID string, a action.Action, param string, durationSeconds int) error {
	return s.mutate(ctx, seqID, func(seq *Sequence) error {
		i := seq.StepIndex(stepID)
		if i < 0 {
			return ErrStepNotFound
		}
		seq.Steps[i] = Step{ID: stepID, Action: a, Param: param, DurationSeconds: durationSeconds}
		return ValidateStep(seq.Steps[i])
	})
}

// SwapSteps exchanges the steps at positions i and j.
func (s *Store) SwapSteps(ctx context.Context, seqID string, i, j int) error {
	return s.mutate(ctx, seqID, func(seq *Sequence) error {
		n := len(seq.Steps)
		if i < 0 || i >= n || j < 0 || j >= n {
			return invalid(ErrInvalidIndex, "positions %d and %d must be within 0-%d", i, j, n-1)
		}
		seq.Steps[i], seq.Steps[j] = seq.Steps[j], seq.Steps[i]
		return nil
	})
}

// Delete removes a sequence, honouring the configured deletion policy.
//
// Schedule references are checked without holding the store lock, since
// the schedule store calls back into Exists while holding its own lock.
// A schedule created between the check and the delete is left orphaned
// and skipped by the engine.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.RLock()
	_, ok := s.cache[id]
	refs, policy := s.refs, s.policy
	s.mu.RUnlock()
	if !ok {
		return ErrSequenceNotFound
	}

	if refs != nil {
		ids, err := refs.ReferencingSchedules(ctx, id)
		if err != nil {
			return fmt.Errorf("checking schedule references: %w", err)
		}
		if len(ids) > 0 {
			if policy != PolicyCascade {
				return fmt.Errorf("%w: %d schedule(s)", ErrReferencedBySchedule, len(ids))
			}
			n, err := refs.DeactivateForSequence(ctx, id)
			if err != nil {
				return fmt.Errorf("deactivating referencing schedules: %w", err)
			}
			s.logger.Info("schedules deactivated by sequence delete", "sequence_id", id, "count", n)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	delete(s.cache, id)

	s.logger.Info("sequence deleted", "sequence_id", id)
	return nil
}

// mutate applies fn to a private copy and only publishes it once it
// validates and persists.
func (s *Store) mutate(ctx context.Context, id string, fn func(seq *Sequence) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cached, ok := s.cache[id]
	if !ok {
		return ErrSequenceNotFound
	}

	working := cached.DeepCopy()
	if err := fn(working); err != nil {
		return err
	}
	if err := ValidateSequence(working); err != nil {
		return err
	}

	working.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, working); err != nil {
		return err
	}
	s.cache[id] = working

	s.logger.Debug("sequence updated", "sequence_id", id, "steps", len(working.Steps))
	return nil
}
