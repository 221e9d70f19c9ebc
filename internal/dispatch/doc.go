// Package dispatch delivers individual commands to the robot.
//
// The executor depends only on the Dispatcher interface. Two
// implementations ship with robotd:
//
//   - MQTTDispatcher: request/ack over the broker with a bounded wait
//   - Simulated: acknowledges locally, optionally after a delay
//
// Failures are *Error values whose Kind is unreachable, rejected or
// timeout; errors.Is matches them against ErrUnreachable, ErrRejected and
// ErrTimeout.
package dispatch
