// Package api implements the robotd HTTP REST API and WebSocket event stream.
//
// This package provides:
//   - Sequence and step editing, schedule management and the action catalog
//   - Manual execution requests and run inspection/cancellation
//   - The recorded event history (audit log)
//   - A WebSocket hub that streams execution and schedule events
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Error mapping
//
// Store and executor errors are mapped by sentinel: validation failures
// and dangling schedule references answer 400, unknown IDs 404, a sequence
// still referenced by schedules 409, and a full queue or stopped executor
// 503. Bodies are {status, code, message}.
//
// # WebSocket
//
// Clients connect to /api/v1/ws and subscribe to event-type channels
// (sequence-started, schedule-fired, ...) or to robot.events for all of
// them:
//
//	{"type":"subscribe","id":"1","payload":{"channels":["robot.events"]}}
//
// The server follows the same lifecycle pattern as other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api
