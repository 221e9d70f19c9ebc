package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurements written by robotd.
const (
	MeasurementStepDispatch = "step_dispatch"
	MeasurementRun          = "sequence_runs"
	MeasurementSchedule     = "schedule_events"
)

// WriteStepDispatch records one dispatched step. The run ID is a field to
// keep tag cardinality low.
func (c *Client) WriteStepDispatch(sequenceID, runID, action string, stepIndex int, at time.Time) {
	c.WritePointWithTime(MeasurementStepDispatch,
		map[string]string{"sequence_id": sequenceID, "action": action},
		map[string]interface{}{"step_index": stepIndex, "run_id": runID},
		at,
	)
}

// WriteRunOutcome records a run reaching a terminal status.
func (c *Client) WriteRunOutcome(sequenceID, runID, status, trigger string, stepsDispatched int, duration time.Duration, at time.Time) {
	tags := map[string]string{"sequence_id": sequenceID, "status": status}
	if trigger != "" {
		tags["trigger"] = trigger
	}
	c.WritePointWithTime(MeasurementRun, tags,
		map[string]interface{}{
			"run_id":           runID,
			"steps_dispatched": stepsDispatched,
			"duration_ms":      duration.Milliseconds(),
			"count":            1,
		},
		at,
	)
}

// WriteScheduleEvent records a schedule being fired, deactivated or orphaned.
func (c *Client) WriteScheduleEvent(scheduleID, sequenceID, eventType string, at time.Time) {
	c.WritePointWithTime(MeasurementSchedule,
		map[string]string{"schedule_id": scheduleID, "event": eventType},
		map[string]interface{}{"sequence_id": sequenceID, "count": 1},
		at,
	)
}

// WritePoint writes a custom point stamped now.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	c.WritePointWithTime(measurement, tags, fields, time.Now())
}

// WritePointWithTime writes a custom point. Every point carries the site tag.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	all := make(map[string]string, len(tags)+1)
	for k, v := range tags {
		all[k] = v
	}
	if c.siteID != "" {
		all["site"] = c.siteID
	}

	c.writeAPI.WritePoint(write.NewPoint(measurement, all, fields, timestamp))
}
