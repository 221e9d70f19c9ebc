package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/robot-sequencer/internal/infrastructure/mqtt"
)

// Ack statuses sent by the robot.
const (
	AckOK       = "ok"
	AckRejected = "rejected"
)

// Ack is the robot's reply to a command.
type Ack struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// Transport is the subset of *mqtt.Client the dispatcher needs.
type Transport interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	IsConnected() bool
}

const (
	defaultAckTimeout = 10 * time.Second
	commandQoS        = 1
)

// MQTTDispatcher publishes commands on robot/command/{robot_id} and waits
// for the matching ack on robot/ack/{robot_id}.
type MQTTDispatcher struct {
	transport  Transport
	robotID    string
	ackTimeout time.Duration
	logger     Logger

	mu      sync.Mutex
	pending map[string]chan Ack
}

// MQTTOption configures an MQTTDispatcher.
type MQTTOption func(*MQTTDispatcher)

// WithAckTimeout bounds each Send.
func WithAckTimeout(d time.Duration) MQTTOption {
	return func(m *MQTTDispatcher) {
		if d > 0 {
			m.ackTimeout = d
		}
	}
}

// WithLogger sets the dispatcher logger.
func WithLogger(l Logger) MQTTOption {
	return func(m *MQTTDispatcher) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewMQTTDispatcher creates a dispatcher for robotID. Call Start before Send.
func NewMQTTDispatcher(transport Transport, robotID string, opts ...MQTTOption) *MQTTDispatcher {
	d := &MQTTDispatcher{
		transport:  transport,
		robotID:    robotID,
		ackTimeout: defaultAckTimeout,
		logger:     noopLogger{},
		pending:    make(map[string]chan Ack),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start subscribes to the robot's ack topic.
func (d *MQTTDispatcher) Start() error {
	topic := mqtt.Topics{}.RobotAck(d.robotID)
	if err := d.transport.Subscribe(topic, commandQoS, d.handleAck); err != nil {
		return fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	d.logger.Info("command dispatcher ready", "robot_id", d.robotID, "ack_topic", topic)
	return nil
}

// Send publishes cmd and blocks until the ack, the ack timeout, or ctx.
func (d *MQTTDispatcher) Send(ctx context.Context, cmd Command) error {
	if !d.transport.IsConnected() {
		return Unreachable("broker not connected", mqtt.ErrNotConnected)
	}

	if cmd.ID == "" {
		cmd.ID = uuid.NewString()
	}
	cmd.RobotID = d.robotID
	if cmd.IssuedAt.IsZero() {
		cmd.IssuedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(cmd)
	if err != nil {
		return Unreachable("encoding command", err)
	}

	ch := make(chan Ack, 1)
	d.mu.Lock()
	d.pending[cmd.ID] = ch
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		delete(d.pending, cmd.ID)
		d.mu.Unlock()
	}()

	if err := d.transport.Publish(mqtt.Topics{}.RobotCommand(d.robotID), payload, commandQoS, false); err != nil {
		return Unreachable("publishing command", err)
	}
	d.logger.Debug("command published", "command_id", cmd.ID, "action", string(cmd.Action), "run_id", cmd.RunID)

	timer := time.NewTimer(d.ackTimeout)
	defer timer.Stop()

	select {
	case ack := <-ch:
		if ack.Status == AckOK {
			return nil
		}
		reason := ack.Reason
		if reason == "" {
			reason = "robot returned status " + ack.Status
		}
		return Rejected(reason)
	case <-timer.C:
		return Timeout(d.ackTimeout)
	case <-ctx.Done():
		return Unreachable("dispatch aborted", ctx.Err())
	}
}

// Pending returns the number of commands awaiting an ack.
func (d *MQTTDispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// handleAck routes an ack to its waiting Send. Late or unknown acks are dropped.
func (d *MQTTDispatcher) handleAck(_ string, payload []byte) error {
	var ack Ack
	if err := json.Unmarshal(payload, &ack); err != nil {
		return fmt.Errorf("decoding ack: %w", err)
	}
	if ack.ID == "" {
		return fmt.Errorf("ack without id")
	}

	d.mu.Lock()
	ch, ok := d.pending[ack.ID]
	d.mu.Unlock()
	if !ok {
		d.logger.Debug("ack for unknown command dropped", "command_id", ack.ID)
		return nil
	}

	select {
	case ch <- ack:
	default:
	}
	return nil
}
