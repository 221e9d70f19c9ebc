package execution

import (
	"context"
	"sync"

	"github.com/nerrad567/robot-sequencer/internal/dispatch"
)

// Handle controls one run. It is returned by Executor.Execute.
type Handle struct {
	exec       *Executor
	dispatcher dispatch.Dispatcher

	mu  sync.Mutex
	run Run

	cancelOnce sync.Once
	cancelCh   chan struct{}
	done       chan struct{}
}

func newHandle(e *Executor, d dispatch.Dispatcher, run Run) *Handle {
	return &Handle{
		exec:       e,
		dispatcher: d,
		run:        run,
		cancelCh:   make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// ID returns the run id.
func (h *Handle) ID() string {
	return h.run.ID
}

// Run returns a snapshot of the run.
func (h *Handle) Run() Run {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.run.clone()
}

// Done is closed once the run reaches a terminal status.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the run is terminal or ctx ends.
func (h *Handle) Wait(ctx context.Context) (Run, error) {
	select {
	case <-h.done:
		return h.Run(), nil
	case <-ctx.Done():
		return h.Run(), ctx.Err()
	}
}

// Cancel stops the run before its next step. A queued run is removed from
// the queue. Cancelling a terminal run does nothing.
func (h *Handle) Cancel() {
	h.cancelOnce.Do(func() {
		close(h.cancelCh)
		h.exec.cancelQueued(h)
	})
}

func (h *Handle) cancelled() bool {
	select {
	case <-h.cancelCh:
		return true
	default:
		return false
	}
}

func (h *Handle) update(fn func(r *Run)) Run {
	h.mu.Lock()
	defer h.mu.Unlock()
	fn(&h.run)
	return h.run.clone()
}
