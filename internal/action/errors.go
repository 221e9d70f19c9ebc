package action

import "errors"

// Domain errors for the action package.
var (
	// ErrInvalidAction is returned for an identifier outside the catalog.
	ErrInvalidAction = errors.New("action: invalid action")

	// ErrInvalidParam is returned when a parameter is missing, unexpected,
	// or has the wrong shape for its action.
	ErrInvalidParam = errors.New("action: invalid parameter")
)
