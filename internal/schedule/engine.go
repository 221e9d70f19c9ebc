package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/nerrad567/robot-sequencer/internal/dispatch"
	"github.com/nerrad567/robot-sequencer/internal/event"
	"github.com/nerrad567/robot-sequencer/internal/execution"
)

// Executor is the part of the sequence executor the engine drives.
type Executor interface {
	Execute(ctx context.Context, sequenceID string, d dispatch.Dispatcher, trigger event.Trigger) (*execution.Handle, error)
}

// tickSpec fires at every minute boundary.
const tickSpec = "* * * * *"

// Engine evaluates active schedules once per minute and requests runs for
// those that match.
//
// A minute the engine does not evaluate (process suspended, clock jump) is
// not caught up. Evaluating the same minute twice fires nothing new.
type Engine struct {
	store      *Store
	sequences  SequenceLookup
	executor   Executor
	dispatcher dispatch.Dispatcher
	sink       event.Sink
	loc        *time.Location
	logger     Logger

	cron *cron.Cron

	tickMu   sync.Mutex
	orphaned map[string]time.Time // schedule id -> minute last reported
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLocation sets the timezone trigger times are read in.
func WithLocation(loc *time.Location) EngineOption {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// WithSink sets where schedule-fired and schedule-orphaned go.
func WithSink(sink event.Sink) EngineOption {
	return func(e *Engine) {
		if sink != nil {
			e.sink = sink
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates a schedule engine. Matching schedules run through
// executor using dispatcher.
func NewEngine(store *Store, sequences SequenceLookup, executor Executor, dispatcher dispatch.Dispatcher, opts ...EngineOption) *Engine {
	e := &Engine{
		store:      store,
		sequences:  sequences,
		executor:   executor,
		dispatcher: dispatcher,
		sink:       event.Discard,
		loc:        time.UTC,
		logger:     noopLogger{},
		orphaned:   make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start begins ticking at each minute boundary until Stop.
func (e *Engine) Start(ctx context.Context) error {
	cl := cronLogger{e.logger}
	e.cron = cron.New(
		cron.WithLocation(e.loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := e.cron.AddFunc(tickSpec, func() { e.Tick(ctx, time.Now()) }); err != nil {
		return fmt.Errorf("registering schedule tick: %w", err)
	}
	e.cron.Start()

	e.logger.Info("schedule engine started", "timezone", e.loc.String(), "active_schedules", len(e.store.ListActive(ctx)))
	return nil
}

// Stop halts ticking and waits for a running tick to return.
func (e *Engine) Stop() {
	if e.cron == nil {
		return
	}
	<-e.cron.Stop().Done()
	e.logger.Info("schedule engine stopped")
}

// Tick evaluates every active schedule against now and returns how many
// fired. One schedule's failure never stops evaluation of the rest.
func (e *Engine) Tick(ctx context.Context, now time.Time) int {
	e.tickMu.Lock()
	defer e.tickMu.Unlock()

	local := now.In(e.loc)
	minute := local.Truncate(time.Minute)

	fired := 0
	for _, sc := range e.store.ListActive(ctx) {
		if !sc.Matches(local) {
			continue
		}
		if e.fire(ctx, sc, minute) {
			fired++
		}
	}

	for id, at := range e.orphaned {
		if !at.Equal(minute) {
			delete(e.orphaned, id)
		}
	}
	return fired
}

func (e *Engine) fire(ctx context.Context, sc Schedule, minute time.Time) bool {
	log := []any{"schedule_id", sc.ID, "sequence_id", sc.SequenceID, "trigger_time", sc.TriggerTime}

	if !e.sequences.Exists(ctx, sc.SequenceID) {
		if at, seen := e.orphaned[sc.ID]; seen && at.Equal(minute) {
			return false
		}
		e.orphaned[sc.ID] = minute
		e.logger.Warn("schedule orphaned, skipping", log...)
		e.sink.Emit(event.Event{
			Type:       event.ScheduleOrphaned,
			ScheduleID: sc.ID,
			SequenceID: sc.SequenceID,
			Reason:     "sequence does not exist",
		})
		return false
	}

	claimed, err := e.store.ClaimFire(ctx, sc.ID, minute)
	if err != nil {
		e.logger.Error("recording schedule fire failed", append(log, "error", err)...)
		return false
	}
	if !claimed {
		e.logger.Debug("schedule already fired this minute", log...)
		return false
	}

	h, err := e.executor.Execute(ctx, sc.SequenceID, e.dispatcher, event.FromSchedule(sc.ID))
	if err != nil {
		e.logger.Error("scheduled run request failed", append(log, "error", err)...)
		if sc.Frequency == FrequencyOnce {
			if relErr := e.store.releaseOnce(ctx, sc.ID, minute); relErr != nil {
				e.logger.Error("reactivating once schedule failed", append(log, "error", relErr)...)
			}
		}
		return false
	}

	e.logger.Info("schedule fired", append(log, "run_id", h.ID(), "frequency", string(sc.Frequency))...)
	e.sink.Emit(event.Event{
		Type:       event.ScheduleFired,
		ScheduleID: sc.ID,
		SequenceID: sc.SequenceID,
		RunID:      h.ID(),
	})

	if sc.Frequency == FrequencyOnce {
		e.store.emitDeactivated([]string{sc.ID}, sc.SequenceID, "fired once")
	}
	return true
}

// cronLogger adapts Logger to cron.Logger.
type cronLogger struct {
	l Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
