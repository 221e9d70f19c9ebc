package execution

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/robot-sequencer/internal/dispatch"
	"github.com/nerrad567/robot-sequencer/internal/event"
	"github.com/nerrad567/robot-sequencer/internal/sequence"
)

// SequenceSource is the part of the sequence store the executor reads.
type SequenceSource interface {
	Get(ctx context.Context, id string) (*sequence.Sequence, error)
}

// Logger defines the logging interface used by the executor.
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

const defaultHistorySize = 100

const shutdownReason = "executor shutting down"

// Executor runs sequences one at a time. Requests that arrive while a run
// is active wait in a FIFO queue, whatever their trigger.
//
// Thread Safety: all methods are safe for concurrent use.
type Executor struct {
	source      SequenceSource
	sink        event.Sink
	logger      Logger
	stepUnit    time.Duration
	maxQueue    int
	historySize int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	active  *Handle
	queue   []*Handle
	history []Run // oldest first
	closed  bool
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the executor logger.
func WithLogger(l Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithStepUnit sets the unit of Step.DurationSeconds. Tests use milliseconds.
func WithStepUnit(unit time.Duration) Option {
	return func(e *Executor) {
		if unit > 0 {
			e.stepUnit = unit
		}
	}
}

// WithMaxQueue bounds the wait queue. Zero means unbounded.
func WithMaxQueue(n int) Option {
	return func(e *Executor) {
		if n >= 0 {
			e.maxQueue = n
		}
	}
}

// WithHistorySize sets how many terminal runs are remembered.
func WithHistorySize(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.historySize = n
		}
	}
}

// NewExecutor creates an executor reading sequences from source and
// emitting run events to sink.
func NewExecutor(source SequenceSource, sink event.Sink, opts ...Option) *Executor {
	if sink == nil {
		sink = event.Discard
	}
	ctx, cancel := context.WithCancel(context.Background())
	e := &Executor{
		source:      source,
		sink:        sink,
		logger:      noopLogger{},
		stepUnit:    time.Second,
		historySize: defaultHistorySize,
		ctx:         ctx,
		cancel:      cancel,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute requests a run of sequenceID. It returns at once: the run starts
// immediately when the slot is free, otherwise it is queued.
//
// Returns sequence.ErrSequenceNotFound for an unknown id, ErrQueueFull when
// a bounded queue is full, and ErrExecutorClosed after Close.
func (e *Executor) Execute(ctx context.Context, sequenceID string, d dispatch.Dispatcher, trigger event.Trigger) (*Handle, error) {
	if d == nil {
		return nil, ErrNoDispatcher
	}
	if _, err := e.source.Get(ctx, sequenceID); err != nil {
		return nil, err
	}

	h := newHandle(e, d, Run{
		ID:         uuid.NewString(),
		SequenceID: sequenceID,
		Trigger:    trigger,
		Status:     StatusQueued,
		QueuedAt:   time.Now().UTC(),
	})

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrExecutorClosed
	}

	if e.active == nil && len(e.queue) == 0 {
		e.startLocked(h)
		return h, nil
	}

	if e.maxQueue > 0 && len(e.queue) >= e.maxQueue {
		return nil, ErrQueueFull
	}
	e.queue = append(e.queue, h)
	e.logger.Info("run queued",
		"run_id", h.run.ID,
		"sequence_id", sequenceID,
		"trigger", trigger.Type,
		"position", len(e.queue),
	)
	return h, nil
}

// Get returns a snapshot of a live or remembered run.
func (e *Executor) Get(runID string) (Run, error) {
	if h := e.lookup(runID); h != nil {
		return h.Run(), nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for i := len(e.history) - 1; i >= 0; i-- {
		if e.history[i].ID == runID {
			return e.history[i].clone(), nil
		}
	}
	return Run{}, ErrRunNotFound
}

// Cancel cancels a live run by id. Cancelling a remembered terminal run is
// a no-op.
func (e *Executor) Cancel(runID string) error {
	if h := e.lookup(runID); h != nil {
		h.Cancel()
		return nil
	}
	if _, err := e.Get(runID); err != nil {
		return err
	}
	return nil
}

// Active returns the running run, if any.
func (e *Executor) Active() (Run, bool) {
	e.mu.Lock()
	h := e.active
	e.mu.Unlock()
	if h == nil {
		return Run{}, false
	}
	return h.Run(), true
}

// Queued returns waiting runs in start order.
func (e *Executor) Queued() []Run {
	e.mu.Lock()
	handles := make([]*Handle, len(e.queue))
	copy(handles, e.queue)
	e.mu.Unlock()

	runs := make([]Run, len(handles))
	for i, h := range handles {
		runs[i] = h.Run()
	}
	return runs
}

// History returns remembered terminal runs, most recent first.
func (e *Executor) History() []Run {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Run, 0, len(e.history))
	for i := len(e.history) - 1; i >= 0; i-- {
		out = append(out, e.history[i].clone())
	}
	return out
}

// Close cancels queued runs and the active run, then waits for the active
// run to stop. Later Execute calls fail with ErrExecutorClosed.
func (e *Executor) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	queued := e.queue
	e.queue = nil
	active := e.active
	e.mu.Unlock()

	for _, h := range queued {
		h.cancelOnce.Do(func() { close(h.cancelCh) })
		e.finish(h, StatusCancelled, shutdownReason)
	}
	if active != nil {
		active.Cancel()
	}
	e.cancel()
	e.wg.Wait()
}

func (e *Executor) lookup(runID string) *Handle {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active != nil && e.active.run.ID == runID {
		return e.active
	}
	for _, h := range e.queue {
		if h.run.ID == runID {
			return h
		}
	}
	return nil
}

// startLocked claims the slot for h. Caller holds e.mu.
func (e *Executor) startLocked(h *Handle) {
	e.active = h
	now := time.Now().UTC()
	h.update(func(r *Run) {
		r.Status = StatusRunning
		r.StartedAt = &now
	})
	e.wg.Add(1)
	go e.run(h)
}

// advance starts the head of the queue if the slot is free.
func (e *Executor) advance() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.active != nil || len(e.queue) == 0 {
		return
	}
	next := e.queue[0]
	e.queue = e.queue[1:]
	e.startLocked(next)
}

// cancelQueued removes h from the queue and finishes it as cancelled. A
// running h is left to notice its cancel channel.
func (e *Executor) cancelQueued(h *Handle) {
	e.mu.Lock()
	idx := -1
	for i, q := range e.queue {
		if q == h {
			idx = i
			break
		}
	}
	if idx < 0 {
		e.mu.Unlock()
		return
	}
	e.queue = append(e.queue[:idx], e.queue[idx+1:]...)
	e.mu.Unlock()

	e.finish(h, StatusCancelled, "")
}

func (e *Executor) run(h *Handle) {
	defer e.wg.Done()

	snap := h.Run()
	log := []any{"run_id", snap.ID, "sequence_id", snap.SequenceID, "trigger", snap.Trigger.Type}
	trigger := snap.Trigger

	e.emit(event.Event{Type: event.SequenceStarted, SequenceID: snap.SequenceID, RunID: snap.ID, Trigger: &trigger})

	seq, err := e.source.Get(e.ctx, snap.SequenceID)
	if err != nil {
		e.logger.Warn("run could not load sequence", append(log, "error", err)...)
		e.finish(h, StatusFailed, err.Error())
		e.advance()
		return
	}

	h.update(func(r *Run) { r.StepsTotal = len(seq.Steps) })
	e.logger.Info("run started", append(log, "steps", len(seq.Steps))...)

	status, reason := e.runSteps(h, seq)
	e.finish(h, status, reason)
	e.advance()
}

// runSteps dispatches each step and waits out its duration. Cancellation is
// honoured at step boundaries and wakes a pending wait.
func (e *Executor) runSteps(h *Handle, seq *sequence.Sequence) (Status, string) {
	for i, step := range seq.Steps {
		if h.cancelled() {
			return StatusCancelled, ""
		}

		e.emit(event.Event{
			Type:       event.StepDispatched,
			SequenceID: seq.ID,
			RunID:      h.run.ID,
			StepIndex:  event.Index(i),
			Action:     string(step.Action),
		})

		cmd := dispatch.Command{
			Action:     step.Action,
			Param:      step.Param,
			SequenceID: seq.ID,
			StepID:     step.ID,
			RunID:      h.run.ID,
		}
		if err := h.dispatcher.Send(e.ctx, cmd); err != nil {
			if h.cancelled() && errors.Is(err, context.Canceled) {
				return StatusCancelled, ""
			}
			e.logger.Warn("step dispatch failed",
				"run_id", h.run.ID,
				"sequence_id", seq.ID,
				"step_index", i,
				"action", string(step.Action),
				"error", err,
			)
			return StatusFailed, err.Error()
		}
		h.update(func(r *Run) { r.StepsDispatched = i + 1 })

		if !e.wait(h, step.Duration(e.stepUnit)) {
			return StatusCancelled, ""
		}
	}
	return StatusCompleted, ""
}

// wait sleeps for d. It returns false if the run was cancelled first.
func (e *Executor) wait(h *Handle, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-h.cancelCh:
		return false
	case <-e.ctx.Done():
		return false
	}
}

// finish records the terminal status, emits the terminal event and only
// then frees the slot if h held it. Listeners see a run's terminal event
// before the next run starts, and Wait returns once the slot is free.
func (e *Executor) finish(h *Handle, status Status, reason string) {
	now := time.Now().UTC()
	final := h.update(func(r *Run) {
		r.Status = status
		r.Reason = reason
		r.FinishedAt = &now
	})

	ev := event.Event{SequenceID: final.SequenceID, RunID: final.ID, Reason: reason}
	switch status {
	case StatusCompleted:
		ev.Type = event.SequenceCompleted
	case StatusFailed:
		ev.Type = event.SequenceFailed
	default:
		ev.Type = event.SequenceCancelled
	}
	e.emit(ev)

	e.logger.Info("run finished",
		"run_id", final.ID,
		"sequence_id", final.SequenceID,
		"status", string(status),
		"steps_dispatched", final.StepsDispatched,
		"duration_ms", final.Duration().Milliseconds(),
	)

	e.mu.Lock()
	if e.active == h {
		e.active = nil
	}
	e.history = append(e.history, final)
	if over := len(e.history) - e.historySize; over > 0 {
		e.history = append([]Run(nil), e.history[over:]...)
	}
	close(h.done)
	e.mu.Unlock()
}

func (e *Executor) emit(ev event.Event) {
	e.sink.Emit(ev)
}
