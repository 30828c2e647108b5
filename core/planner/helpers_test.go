package planner

import (
	"fmt"
	"testing"
	"time"

	"github.com/kilianp07/dayplan/core/model"
)

var testDay = time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)

func at(h, m int) time.Time {
	return testDay.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("b%02d", n)
	}
}

func findBlock(blocks []model.TimeBlock, name string) (model.TimeBlock, bool) {
	for _, b := range blocks {
		if b.Name == name && b.ActivityType != model.ActivityBuffer {
			return b, true
		}
	}
	return model.TimeBlock{}, false
}

func mustBlock(t *testing.T, blocks []model.TimeBlock, name string) model.TimeBlock {
	t.Helper()
	b, ok := findBlock(blocks, name)
	if !ok {
		t.Fatalf("block %q not found", name)
	}
	return b
}

func active(blocks []model.TimeBlock) []model.TimeBlock {
	var out []model.TimeBlock
	for _, b := range model.BySequence(blocks) {
		if b.Status != model.BlockSkipped {
			out = append(out, b)
		}
	}
	return out
}

// checkInvariants verifies the structural guarantees every plan must hold.
func checkInvariants(t *testing.T, plan model.DailyPlan, r Rules) {
	t.Helper()
	live := active(plan.Blocks)
	for i := 0; i < len(live); i++ {
		for j := i + 1; j < len(live); j++ {
			if live[i].Overlaps(live[j]) {
				t.Fatalf("blocks overlap: %s [%s-%s] and %s [%s-%s]",
					live[i].Name, live[i].StartTime.Format("15:04"), live[i].EndTime.Format("15:04"),
					live[j].Name, live[j].StartTime.Format("15:04"), live[j].EndTime.Format("15:04"))
			}
		}
		if i > 0 {
			if !live[i].StartTime.After(live[i-1].StartTime) {
				t.Fatalf("sequence %d (%s) does not start after sequence %d (%s)",
					live[i].SequenceOrder, live[i].Name, live[i-1].SequenceOrder, live[i-1].Name)
			}
			if live[i].ActivityType == model.ActivityBuffer && live[i-1].ActivityType == model.ActivityBuffer {
				t.Fatalf("adjacent buffers at sequence %d", live[i].SequenceOrder)
			}
		}
	}

	var prevMeal *model.TimeBlock
	for _, b := range live {
		if b.ActivityType != model.ActivityMeal || b.Metadata == nil {
			continue
		}
		k, ok := mealKindOf(b.Name)
		if !ok {
			t.Fatalf("unknown meal %q", b.Name)
		}
		rule := r.Meals[k]
		if b.StartTime.Before(rule.WindowStart.On(plan.WakeTime)) || b.EndTime.After(rule.WindowEnd.On(plan.WakeTime)) {
			t.Fatalf("%s placed outside its window at %s", b.Name, b.StartTime.Format("15:04"))
		}
		if prevMeal != nil && b.StartTime.Sub(prevMeal.EndTime) < r.MealSpacing {
			t.Fatalf("%s too close to %s", b.Name, prevMeal.Name)
		}
		cp := b
		prevMeal = &cp
	}

	for _, b := range plan.Blocks {
		if !b.EndTime.After(plan.PlanStart) && b.Status != model.BlockSkipped && b.Status != model.BlockCompleted {
			t.Fatalf("%s ends before plan start but is %s", b.Name, b.Status)
		}
		if b.Status == model.BlockSkipped && b.SkipReason == "" {
			t.Fatalf("%s skipped without reason", b.Name)
		}
	}
}
