// Package store defines the persistence contract for daily plans and an
// in-memory implementation used by tests and the one-shot CLI.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/kilianp07/dayplan/core/model"
)

var (
	// ErrNotFound is returned when a plan or block does not exist.
	ErrNotFound = errors.New("not found")
	// ErrPlanExists is returned when a plan already exists for a user and day.
	ErrPlanExists = errors.New("plan already exists")
)

// Filter narrows ListPlans. Zero fields match everything.
type Filter struct {
	UserID string
	Date   time.Time
	Status model.PlanStatus
}

// Match reports whether p satisfies the filter.
func (f Filter) Match(p model.DailyPlan) bool {
	if f.UserID != "" && p.UserID != f.UserID {
		return false
	}
	if !f.Date.IsZero() && p.DateKey() != f.Date.Format(model.DateLayout) {
		return false
	}
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	return true
}

// PlanStore persists plans with their blocks and exit times. It is the sole
// source of truth: callers never cache plans across runs.
type PlanStore interface {
	// CreatePlan stores the plan, its blocks and exit times atomically.
	CreatePlan(ctx context.Context, plan model.DailyPlan) error
	GetPlan(ctx context.Context, id string) (model.DailyPlan, error)
	FindPlan(ctx context.Context, userID string, date time.Time) (model.DailyPlan, error)
	ListPlans(ctx context.Context, f Filter) ([]model.DailyPlan, error)
	// DeletePlan removes the plan with its blocks and exit times.
	DeletePlan(ctx context.Context, id string) error
	UpdatePlanStatus(ctx context.Context, id string, status model.PlanStatus) error
	// SaveBlocks inserts or replaces blocks of an existing plan.
	SaveBlocks(ctx context.Context, planID string, blocks []model.TimeBlock) error
	DeleteBlocks(ctx context.Context, planID string, ids []string) error
	// ReplacePlan removes oldID and stores plan in one step. When plan cannot
	// be stored the old plan is left untouched. A missing old plan is not an
	// error.
	ReplacePlan(ctx context.Context, oldID string, plan model.DailyPlan) error
	// ApplyDegradation deletes the given blocks, saves blocks and marks the
	// plan degraded in one step.
	ApplyDegradation(ctx context.Context, planID string, deleted []string, blocks []model.TimeBlock) error
	Close() error
}
