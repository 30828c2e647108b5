package events

import (
	"time"

	"github.com/kilianp07/dayplan/core/model"
)

// MealOutcome is the placement result of one meal.
type MealOutcome struct {
	Meal       string
	Placed     bool
	Reason     model.PlacementReason
	SkipReason string
}

// PlanGeneratedEvent is published after a plan has been persisted.
type PlanGeneratedEvent struct {
	Plan  model.DailyPlan
	Meals []MealOutcome
	// Unplaced counts flexible activities that found no slot.
	Unplaced int
	TailPlan bool
	Replaced bool
	Duration time.Duration
}

// PlanDegradedEvent is published once a degradation has been persisted.
type PlanDegradedEvent struct {
	PlanID  string
	UserID  string
	Dropped int
	Deleted int
	Created int
	Time    time.Time
}

// BlockUpdatedEvent is published when a block is completed or skipped.
type BlockUpdatedEvent struct {
	PlanID string
	UserID string
	Block  model.TimeBlock
	Time   time.Time
}
