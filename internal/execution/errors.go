package execution

import "errors"

// Domain errors for the execution package.
var (
	ErrRunNotFound    = errors.New("execution: run not found")
	ErrQueueFull      = errors.New("execution: run queue is full")
	ErrExecutorClosed = errors.New("execution: executor closed")
	ErrNoDispatcher   = errors.New("execution: dispatcher is required")
)
