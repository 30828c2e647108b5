// Package notify defines how behind-schedule alerts reach the user.
package notify

import (
	"context"
	"time"
)

// Alert tells a user that the current block of their plan is overdue.
type Alert struct {
	UserID     string        `json:"userId"`
	PlanID     string        `json:"planId"`
	BlockID    string        `json:"blockId"`
	BlockName  string        `json:"blockName"`
	BlockEnd   time.Time     `json:"blockEnd"`
	Overdue    time.Duration `json:"overdueNs"`
	DetectedAt time.Time     `json:"detectedAt"`
}

// Notifier delivers alerts.
type Notifier interface {
	NotifyBehind(ctx context.Context, a Alert) error
}

// Nop drops alerts.
type Nop struct{}

func (Nop) NotifyBehind(context.Context, Alert) error { return nil }

// Func adapts a function to Notifier.
type Func func(ctx context.Context, a Alert) error

func (f Func) NotifyBehind(ctx context.Context, a Alert) error { return f(ctx, a) }
