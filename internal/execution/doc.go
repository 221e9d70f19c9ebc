// Package execution runs sequences against a dispatcher.
//
// An Executor has one active-run slot. Each run walks its sequence in
// order: it emits step-dispatched, sends the step's action, then waits the
// step's duration before the next step. A dispatch failure ends the run as
// failed with no further steps. Cancel stops a run at the next step
// boundary and wakes a pending wait; an already dispatched command is not
// recalled.
//
// Requests that arrive while the slot is busy wait in a FIFO queue,
// whether they come from an operator or a schedule. The queue is unbounded
// unless WithMaxQueue is set, in which case Execute returns ErrQueueFull.
//
// Terminal runs are kept in a bounded in-memory history for the API.
package execution
