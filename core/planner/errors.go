package planner

import "errors"

var (
	// ErrInvalidInput is returned when wake/sleep or energy inputs are unusable.
	ErrInvalidInput = errors.New("invalid plan input")
	// ErrPlanNotActive is returned when degrading a plan that is not active.
	ErrPlanNotActive = errors.New("plan is not active")
)
