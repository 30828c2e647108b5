// Package journal keeps an append-only history of plan lifecycle events
// (generation, degradation, block updates and behind-schedule detections).
package journal

import (
	"context"
	"time"

	"github.com/kilianp07/dayplan/core/model"
)

// Kind identifies the lifecycle step a record describes.
type Kind string

const (
	KindGenerated      Kind = "plan_generated"
	KindDegraded       Kind = "plan_degraded"
	KindBlockUpdated   Kind = "block_updated"
	KindBehindSchedule Kind = "behind_schedule"
)

// Record captures one lifecycle event of a plan.
type Record struct {
	Timestamp time.Time        `json:"timestamp"`
	Kind      Kind             `json:"kind"`
	UserID    string           `json:"user_id"`
	PlanID    string           `json:"plan_id"`
	Date      string           `json:"date,omitempty"`
	Status    model.PlanStatus `json:"plan_status,omitempty"`
	Block     *BlockRef        `json:"block,omitempty"`
	// Counts holds per-kind tallies such as blocks, unplaced or dropped.
	Counts  map[string]int `json:"counts,omitempty"`
	Overdue time.Duration  `json:"overdue_ns,omitempty"`
}

// BlockRef identifies the block a record is about.
type BlockRef struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Type       model.ActivityType `json:"type"`
	Status     model.BlockStatus  `json:"status"`
	SkipReason string             `json:"skip_reason,omitempty"`
}

// Query defines filters for retrieving records. Zero fields match all.
type Query struct {
	Start  time.Time
	End    time.Time
	UserID string
	PlanID string
	Kind   Kind
}

// Match reports whether r satisfies q.
func (q Query) Match(r Record) bool {
	switch {
	case !q.Start.IsZero() && r.Timestamp.Before(q.Start):
		return false
	case !q.End.IsZero() && r.Timestamp.After(q.End):
		return false
	case q.UserID != "" && r.UserID != q.UserID:
		return false
	case q.PlanID != "" && r.PlanID != q.PlanID:
		return false
	case q.Kind != "" && r.Kind != q.Kind:
		return false
	}
	return true
}

// Store persists Records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}
