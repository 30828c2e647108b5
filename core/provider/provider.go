// Package provider defines the collaborator contracts the planner consumes:
// calendar commitments, pending tasks, routines and exit times.
package provider

import (
	"context"
	"time"

	"github.com/kilianp07/dayplan/core/model"
)

// CommitmentProvider returns the fixed commitments overlapping [from, to).
type CommitmentProvider interface {
	Commitments(ctx context.Context, userID string, from, to time.Time) ([]model.Commitment, error)
}

// TaskProvider returns up to limit pending tasks sorted by deadline ascending.
type TaskProvider interface {
	PendingTasks(ctx context.Context, userID string, limit int) ([]model.Task, error)
}

// RoutineProvider returns the active routine for a slot, or nil when none.
type RoutineProvider interface {
	Routine(ctx context.Context, userID string, slot model.RoutineSlot) (*model.Routine, error)
}

// ExitTimeCalculator computes when to leave for each commitment.
type ExitTimeCalculator interface {
	ExitTimes(ctx context.Context, commitments []model.Commitment, location string) ([]model.ExitTime, error)
}
