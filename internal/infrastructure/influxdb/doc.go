// Package influxdb records execution metrics in InfluxDB.
//
// It wraps influxdb-client-go v2 with non-blocking batched writes. The
// MetricsSink plugs into the event fan-out and writes:
//
//   - step_dispatch: one point per dispatched step
//   - sequence_runs: one point per finished run with status and duration
//   - schedule_events: fired, deactivated and orphaned schedules
//
// Metrics are optional. Connect returns ErrDisabled when influxdb.enabled
// is false and robotd runs without them.
//
//	client, err := influxdb.Connect(cfg.InfluxDB, cfg.Site.ID)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // skip metrics
//	}
//	defer client.Close()
//	sinks.Add(influxdb.NewMetricsSink(client))
package influxdb
