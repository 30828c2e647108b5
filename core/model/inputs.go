package model

import "time"

// Commitment is a fixed calendar entry returned by the commitment provider.
type Commitment struct {
	ID        string    `json:"id" yaml:"id"`
	Title     string    `json:"title" yaml:"title"`
	StartTime time.Time `json:"startTime" yaml:"start_time"`
	EndTime   time.Time `json:"endTime" yaml:"end_time"`
	Location  string    `json:"location,omitempty" yaml:"location,omitempty"`
}

// DurationMinutes returns the commitment length rounded down to minutes.
func (c Commitment) DurationMinutes() int {
	return int(c.EndTime.Sub(c.StartTime) / time.Minute)
}

// Task is a pending to-do item returned by the task provider.
type Task struct {
	ID    string `json:"id" yaml:"id"`
	Title string `json:"title" yaml:"title"`
	// EstimatedDurationMinutes is zero when the user gave no estimate.
	EstimatedDurationMinutes int `json:"estimatedDurationMinutes,omitempty" yaml:"estimated_duration_minutes,omitempty"`
}

// RoutineSlot identifies the part of the day a routine belongs to.
type RoutineSlot string

const (
	RoutineMorning RoutineSlot = "morning"
	RoutineEvening RoutineSlot = "evening"
)

// Routine is an active morning or evening routine definition.
type Routine struct {
	ID                       string `json:"id" yaml:"id"`
	Name                     string `json:"name" yaml:"name"`
	EstimatedDurationMinutes int    `json:"estimatedDurationMinutes" yaml:"estimated_duration_minutes"`
}
