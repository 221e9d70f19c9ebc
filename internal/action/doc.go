// Package action holds the closed vocabulary of robot commands.
//
// Every step and every dispatched command carries an Action from this
// catalog. Validate is the single gate: anything it rejects never reaches
// a stored sequence, so downstream code does not re-check.
package action
