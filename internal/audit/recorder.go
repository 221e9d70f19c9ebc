package audit

import (
	"context"
	"time"

	"github.com/nerrad567/robot-sequencer/internal/event"
)

// writeTimeout bounds a single audit insert so a slow disk cannot stall a run.
const writeTimeout = 2 * time.Second

// Logger defines the logging interface used by the Recorder.
type Logger interface {
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// Recorder is an event.Sink that appends every event to the audit log.
// Write failures are logged and dropped.
type Recorder struct {
	repo   Repository
	logger Logger
}

// NewRecorder creates a recorder writing to repo.
func NewRecorder(repo Repository, logger Logger) *Recorder {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Recorder{repo: repo, logger: logger}
}

// Emit records e.
func (r *Recorder) Emit(e event.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	entry := FromEvent(e)
	if err := r.repo.Create(ctx, entry); err != nil {
		r.logger.Warn("audit write failed", "event_type", string(e.Type), "error", err)
	}
}

// FromEvent maps an event onto an audit entry.
func FromEvent(e event.Event) *AuditLog {
	log := &AuditLog{
		EventType: string(e.Type),
		RunID:     e.RunID,
		CreatedAt: e.Timestamp,
		Details:   map[string]any{},
	}

	if e.Type.IsRunEvent() {
		log.EntityType = EntitySequence
		log.EntityID = e.SequenceID
		log.Source = "executor"
	} else {
		log.EntityType = EntitySchedule
		log.EntityID = e.ScheduleID
		log.Source = "scheduler"
		if e.SequenceID != "" {
			log.Details["sequence_id"] = e.SequenceID
		}
	}

	if e.Trigger != nil {
		log.Source = e.Trigger.Type
		if e.Trigger.Source != "" {
			log.Source += ":" + e.Trigger.Source
		}
	}
	if e.StepIndex != nil {
		log.Details["step_index"] = *e.StepIndex
	}
	if e.Action != "" {
		log.Details["action"] = e.Action
	}
	if e.Reason != "" {
		log.Details["reason"] = e.Reason
	}
	return log
}
