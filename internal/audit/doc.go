// Package audit keeps a queryable history of execution and schedule
// events in the audit_logs table.
//
// Recorder plugs into the event fan-out; the API reads entries back
// through Repository.List with optional filters and pagination.
package audit
