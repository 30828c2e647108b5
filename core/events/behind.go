package events

import (
	"time"

	"github.com/kilianp07/dayplan/core/model"
)

// BehindScheduleEvent reports that a plan's current block is overdue.
type BehindScheduleEvent struct {
	PlanID  string
	UserID  string
	Block   model.TimeBlock
	Overdue time.Duration
	Time    time.Time
}
