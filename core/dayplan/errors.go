package dayplan

import "errors"

var (
	// ErrBlockNotFound is returned when a block id is not part of the plan.
	ErrBlockNotFound = errors.New("block not found")
	// ErrInvalidTransition is returned when a block cannot change status.
	ErrInvalidTransition = errors.New("invalid block transition")
)
