package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/robot-sequencer/internal/action"
)

// Command is a single action addressed to the robot.
type Command struct {
	ID         string        `json:"id"`
	RobotID    string        `json:"robot_id"`
	Action     action.Action `json:"action"`
	Param      string        `json:"param,omitempty"`
	SequenceID string        `json:"sequence_id,omitempty"`
	StepID     string        `json:"step_id,omitempty"`
	RunID      string        `json:"run_id,omitempty"`
	IssuedAt   time.Time     `json:"issued_at"`
}

// Dispatcher delivers one command and reports acknowledgement (nil) or a
// *Error. Implementations bound the call in time. Callers never overlap
// Send calls, so implementations need not guard against that.
type Dispatcher interface {
	Send(ctx context.Context, cmd Command) error
}

// Func adapts a function to Dispatcher.
type Func func(ctx context.Context, cmd Command) error

// Send calls f.
func (f Func) Send(ctx context.Context, cmd Command) error { return f(ctx, cmd) }

// Kind classifies a dispatch failure.
type Kind string

const (
	KindUnreachable Kind = "unreachable"
	KindRejected    Kind = "rejected"
	KindTimeout     Kind = "timeout"
)

// Sentinels matched by *Error through errors.Is.
var (
	ErrUnreachable = errors.New("dispatch: robot unreachable")
	ErrRejected    = errors.New("dispatch: command rejected")
	ErrTimeout     = errors.New("dispatch: acknowledgement timed out")
)

// Error is the typed failure returned by dispatchers.
type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	msg := "dispatch " + string(e.Kind)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel for e.Kind.
func (e *Error) Is(target error) bool {
	switch e.Kind {
	case KindUnreachable:
		return target == ErrUnreachable
	case KindRejected:
		return target == ErrRejected
	case KindTimeout:
		return target == ErrTimeout
	}
	return false
}

// Unreachable builds a KindUnreachable error.
func Unreachable(reason string, err error) *Error {
	return &Error{Kind: KindUnreachable, Reason: reason, Err: err}
}

// Rejected builds a KindRejected error.
func Rejected(reason string) *Error {
	return &Error{Kind: KindRejected, Reason: reason}
}

// Timeout builds a KindTimeout error.
func Timeout(after time.Duration) *Error {
	return &Error{Kind: KindTimeout, Reason: fmt.Sprintf("no ack within %v", after)}
}

// KindOf extracts the failure kind from err, or "" if err is not a dispatch error.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// Logger defines the logging interface used by dispatchers.
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
