package model

import (
	"fmt"
	"time"
)

// ActivityType classifies an activity or a time block.
type ActivityType string

const (
	ActivityCommitment ActivityType = "commitment"
	ActivityTask       ActivityType = "task"
	ActivityRoutine    ActivityType = "routine"
	ActivityMeal       ActivityType = "meal"
	ActivityBuffer     ActivityType = "buffer"
	ActivityTravel     ActivityType = "travel"
)

// Valid reports whether t is one of the known activity types.
func (t ActivityType) Valid() bool {
	switch t {
	case ActivityCommitment, ActivityTask, ActivityRoutine, ActivityMeal, ActivityBuffer, ActivityTravel:
		return true
	}
	return false
}

// ParseActivityType converts s to an ActivityType.
func ParseActivityType(s string) (ActivityType, error) {
	t := ActivityType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown activity type %q", s)
	}
	return t, nil
}

// EnergyState is the user's self-reported energy for the day.
type EnergyState string

const (
	EnergyLow    EnergyState = "low"
	EnergyMedium EnergyState = "medium"
	EnergyHigh   EnergyState = "high"
)

// Valid reports whether e is a known energy state.
func (e EnergyState) Valid() bool {
	switch e {
	case EnergyLow, EnergyMedium, EnergyHigh:
		return true
	}
	return false
}

// ParseEnergyState converts s to an EnergyState.
func ParseEnergyState(s string) (EnergyState, error) {
	e := EnergyState(s)
	if !e.Valid() {
		return "", fmt.Errorf("unknown energy state %q", s)
	}
	return e, nil
}

// Activity is a candidate entry produced while building a plan. It only
// lives for the duration of one generation pass.
type Activity struct {
	Type            ActivityType
	Name            string
	DurationMinutes int
	Fixed           bool
	// StartTime is authoritative for fixed activities. Meals get one once
	// they have been placed; other flexible activities leave it zero.
	StartTime time.Time
	Location  string
	SourceID  string

	// Metadata and SkipReason are only set on meal entries refined by the
	// meal placement step.
	Metadata   *BlockMetadata
	SkipReason string
}

// Duration returns the activity length.
func (a Activity) Duration() time.Duration {
	return time.Duration(a.DurationMinutes) * time.Minute
}

// Anchored reports whether the activity already has a start time.
func (a Activity) Anchored() bool { return !a.StartTime.IsZero() }

// Skipped reports whether the activity was rejected before assembly.
func (a Activity) Skipped() bool { return a.SkipReason != "" }
