// Package event defines execution lifecycle notifications and the sinks
// that consume them.
//
// The executor and schedule engine emit into a single Sink, normally a
// Multi that fans out to the log, the WebSocket hub, MQTT, the audit
// trail and InfluxDB. Sinks are fire-and-forget; a failing sink never
// affects a run.
package event
