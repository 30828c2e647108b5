package planner

import (
	"time"

	"github.com/kilianp07/dayplan/core/model"
)

// DefaultBehindGrace is how long past its end the current block may run.
const DefaultBehindGrace = 30 * time.Minute

// CurrentBlock returns the first pending block, in sequence order, that
// ends after the plan start. Skipped blocks are ignored.
func CurrentBlock(plan model.DailyPlan) (model.TimeBlock, bool) {
	for _, b := range model.BySequence(plan.Blocks) {
		if !b.EndTime.After(plan.PlanStart) {
			continue
		}
		if b.Status == model.BlockPending {
			return b, true
		}
	}
	return model.TimeBlock{}, false
}

// IsBehindSchedule reports whether now is more than the default grace
// period past the end of the current block.
func IsBehindSchedule(plan model.DailyPlan, now time.Time) bool {
	return IsBehindScheduleWithGrace(plan, now, DefaultBehindGrace)
}

// IsBehindScheduleWithGrace is IsBehindSchedule with an explicit grace.
func IsBehindScheduleWithGrace(plan model.DailyPlan, now time.Time, grace time.Duration) bool {
	cur, ok := CurrentBlock(plan)
	if !ok || cur.StartTime.After(now) {
		return false
	}
	return now.After(cur.EndTime.Add(grace))
}
