package event

import (
	"encoding/json"

	"github.com/nerrad567/robot-sequencer/internal/infrastructure/mqtt"
)

// eventQoS is at-most-once: events are notifications, not commands.
const eventQoS = 0

// Publisher is the part of *mqtt.Client the publish sink needs.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// PublishSink mirrors events onto robot/core/event/{type} as JSON.
// Publish failures are logged and dropped.
type PublishSink struct {
	pub    Publisher
	topics mqtt.Topics
	logger Logger
}

// NewPublishSink creates a sink publishing through pub.
func NewPublishSink(pub Publisher, logger Logger) *PublishSink {
	if logger == nil {
		logger = noopLogger{}
	}
	return &PublishSink{pub: pub, logger: logger}
}

// Emit publishes e.
func (p *PublishSink) Emit(e Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		p.logger.Error("encoding event failed", "type", string(e.Type), "error", err)
		return
	}
	if err := p.pub.Publish(p.topics.CoreEvent(string(e.Type)), payload, eventQoS, false); err != nil {
		p.logger.Debug("event publish failed", "type", string(e.Type), "error", err)
	}
}
