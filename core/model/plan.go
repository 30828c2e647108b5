package model

import (
	"fmt"
	"time"
)

// PlanStatus tracks the lifecycle of a daily plan.
type PlanStatus string

const (
	PlanActive    PlanStatus = "active"
	PlanDegraded  PlanStatus = "degraded"
	PlanCompleted PlanStatus = "completed"
)

// Valid reports whether s is a known plan status.
func (s PlanStatus) Valid() bool {
	switch s {
	case PlanActive, PlanDegraded, PlanCompleted:
		return true
	}
	return false
}

// ParsePlanStatus converts s to a PlanStatus.
func ParsePlanStatus(s string) (PlanStatus, error) {
	st := PlanStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown plan status %q", s)
	}
	return st, nil
}

// DateLayout is the canonical day key used for storage and APIs.
const DateLayout = "2006-01-02"

// DailyPlan is the persisted aggregate for one user and one day.
type DailyPlan struct {
	ID                string      `json:"id"`
	UserID            string      `json:"userId"`
	Date              time.Time   `json:"date"`
	WakeTime          time.Time   `json:"wakeTime"`
	SleepTime         time.Time   `json:"sleepTime"`
	EnergyState       EnergyState `json:"energyState"`
	Status            PlanStatus  `json:"status"`
	GeneratedAt       time.Time   `json:"generatedAt"`
	GeneratedAfterNow bool        `json:"generatedAfterNow"`
	PlanStart         time.Time   `json:"planStart"`
	Blocks            []TimeBlock `json:"blocks"`
	ExitTimes         []ExitTime  `json:"exitTimes"`
}

// DateKey returns the plan's day formatted with DateLayout.
func (p DailyPlan) DateKey() string { return p.Date.Format(DateLayout) }

// Block returns the block with the given id.
func (p DailyPlan) Block(id string) (TimeBlock, bool) {
	for _, b := range p.Blocks {
		if b.ID == id {
			return b, true
		}
	}
	return TimeBlock{}, false
}

// ExitTime is the output of the exit-time calculator for one commitment.
// Rows are immutable once persisted.
type ExitTime struct {
	CommitmentID           string    `json:"commitmentId"`
	ExitTime               time.Time `json:"exitTime"`
	TravelDurationMinutes  int       `json:"travelDurationMinutes"`
	PreparationTimeMinutes int       `json:"preparationTimeMinutes"`
	TravelMethod           string    `json:"travelMethod"`
}

// Day truncates t to midnight in its own location.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
