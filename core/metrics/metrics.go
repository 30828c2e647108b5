package metrics

import (
	"time"

	"github.com/kilianp07/dayplan/core/model"
)

// PlanGeneratedEvent summarizes one generation pass.
type PlanGeneratedEvent struct {
	PlanID   string
	UserID   string
	Energy   model.EnergyState
	Blocks   int
	Skipped  int
	Unplaced int
	TailPlan bool
	Duration time.Duration
	Time     time.Time
}

// MetricsSink records plan generation results. It is the one method every
// sink must provide.
type MetricsSink interface {
	RecordPlanGenerated(ev PlanGeneratedEvent) error
}

// MealPlacementEvent records the outcome for one meal.
type MealPlacementEvent struct {
	PlanID     string
	Meal       string
	Placed     bool
	Reason     model.PlacementReason
	SkipReason string
	Time       time.Time
}

// MealPlacementRecorder records meal placement outcomes.
type MealPlacementRecorder interface {
	RecordMealPlacement(ev MealPlacementEvent) error
}

// DegradationEvent records a degradation run.
type DegradationEvent struct {
	PlanID  string
	UserID  string
	Dropped int
	Deleted int
	Created int
	Time    time.Time
}

// DegradationRecorder records degradations.
type DegradationRecorder interface {
	RecordDegradation(ev DegradationEvent) error
}

// BehindScheduleEvent records a behind-schedule detection.
type BehindScheduleEvent struct {
	PlanID  string
	UserID  string
	BlockID string
	Type    model.ActivityType
	Overdue time.Duration
	Time    time.Time
}

// BehindScheduleRecorder records behind-schedule detections.
type BehindScheduleRecorder interface {
	RecordBehindSchedule(ev BehindScheduleEvent) error
}

// BlockTransitionEvent records a block being completed or skipped.
type BlockTransitionEvent struct {
	PlanID string
	Type   model.ActivityType
	Status model.BlockStatus
	Time   time.Time
}

// BlockTransitionRecorder records block status changes.
type BlockTransitionRecorder interface {
	RecordBlockTransition(ev BlockTransitionEvent) error
}

// NopSink implements MetricsSink and every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordPlanGenerated(PlanGeneratedEvent) error     { return nil }
func (NopSink) RecordMealPlacement(MealPlacementEvent) error     { return nil }
func (NopSink) RecordDegradation(DegradationEvent) error         { return nil }
func (NopSink) RecordBehindSchedule(BehindScheduleEvent) error   { return nil }
func (NopSink) RecordBlockTransition(BlockTransitionEvent) error { return nil }
