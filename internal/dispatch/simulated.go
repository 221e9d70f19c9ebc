package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Simulated acknowledges every command after an optional latency. It
// stands in for the robot during development and demos.
type Simulated struct {
	robotID string
	latency time.Duration
	logger  Logger

	mu   sync.Mutex
	sent []Command
}

// NewSimulated creates a simulated dispatcher.
func NewSimulated(robotID string, latency time.Duration, logger Logger) *Simulated {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Simulated{robotID: robotID, latency: latency, logger: logger}
}

// Send records cmd and acknowledges it.
func (s *Simulated) Send(ctx context.Context, cmd Command) error {
	if cmd.ID == "" {
		cmd.ID = uuid.NewString()
	}
	cmd.RobotID = s.robotID
	if cmd.IssuedAt.IsZero() {
		cmd.IssuedAt = time.Now().UTC()
	}

	if s.latency > 0 {
		timer := time.NewTimer(s.latency)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return Unreachable("dispatch aborted", ctx.Err())
		}
	}

	s.mu.Lock()
	s.sent = append(s.sent, cmd)
	s.mu.Unlock()

	s.logger.Info("simulated command acknowledged", "action", string(cmd.Action), "param", cmd.Param, "run_id", cmd.RunID)
	return nil
}

// Sent returns a copy of every acknowledged command.
func (s *Simulated) Sent() []Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Command, len(s.sent))
	copy(out, s.sent)
	return out
}
