package planner

import (
	"time"

	"github.com/kilianp07/dayplan/core/model"
)

// MealInput is the context meal placement works against.
type MealInput struct {
	Wake  time.Time
	Sleep time.Time
	// PlanStart is the earliest instant a meal may start.
	PlanStart   time.Time
	Commitments []model.Commitment
	// Fixed holds the commitment and travel blocks a meal must not overlap.
	Fixed []model.TimeBlock
}

// MealPlacement is the outcome for one meal. Start and End are set for
// skipped meals too, to the slot that was last considered.
type MealPlacement struct {
	Meal       MealKind
	Placed     bool
	Start      time.Time
	End        time.Time
	Target     time.Time
	Reason     model.PlacementReason
	SkipReason string
}

// PlaceMeals computes a slot, or a skip reason, for breakfast, lunch and
// dinner in that order.
func PlaceMeals(in MealInput, r Rules) []MealPlacement {
	reason := model.PlacementDefault
	if len(in.Commitments) > 0 {
		reason = model.PlacementAnchorAware
	}

	out := make([]MealPlacement, 0, len(Meals))
	var prevEnd time.Time
	for _, k := range Meals {
		p := placeMeal(k, in, r, prevEnd)
		p.Reason = reason
		if p.Placed {
			prevEnd = p.End
		}
		out = append(out, p)
	}
	return out
}

func placeMeal(k MealKind, in MealInput, r Rules, prevEnd time.Time) MealPlacement {
	rule := r.Meals[k]
	dur := minutes(rule.Duration)
	winStart := rule.WindowStart.On(in.Wake)
	winEnd := rule.WindowEnd.On(in.Wake)

	target := mealTarget(k, in, r)
	p := MealPlacement{Meal: k, Target: target}

	start := target
	if start.Before(winStart) {
		start = winStart
	}
	if latest := winEnd.Add(-dur); start.After(latest) {
		start = latest
	}
	p.Start, p.End = start, start.Add(dur)

	floor := roundUp(in.PlanStart, r.PlanStartRounding)
	start = maxTime(start, floor)
	if start.Add(dur).After(winEnd) {
		p.SkipReason = model.SkipPastMealWindow
		return p
	}
	p.Start, p.End = start, start.Add(dur)

	spaced := func(s time.Time) bool {
		return prevEnd.IsZero() || s.Sub(prevEnd) >= r.MealSpacing
	}
	if !spaced(start) {
		p.SkipReason = model.SkipSpacing
		return p
	}

	slot, ok := searchSlot(start, dur, r, func(s time.Time) bool {
		if s.Before(winStart) || s.Before(floor) || s.Add(dur).After(winEnd) {
			return false
		}
		return spaced(s) && !conflicts(s, s.Add(dur), in.Fixed)
	})
	if !ok {
		p.SkipReason = model.SkipNoValidSlot
		return p
	}
	p.Start, p.End = slot, slot.Add(dur)

	if p.End.After(in.Sleep) {
		p.SkipReason = model.SkipExceedsSleep
		return p
	}
	p.Placed = true
	return p
}

// searchSlot tries start, then forward, then backward in bounded steps.
func searchSlot(start time.Time, dur time.Duration, r Rules, ok func(time.Time) bool) (time.Time, bool) {
	if ok(start) {
		return start, true
	}
	step := r.MealSearchStep
	if step <= 0 {
		return time.Time{}, false
	}
	for off := step; off <= r.MealSearch; off += step {
		if s := start.Add(off); ok(s) {
			return s, true
		}
	}
	for off := step; off <= r.MealSearch; off += step {
		if s := start.Add(-off); ok(s) {
			return s, true
		}
	}
	return time.Time{}, false
}

func mealTarget(k MealKind, in MealInput, r Rules) time.Time {
	rule := r.Meals[k]
	if len(in.Commitments) == 0 {
		if k == Breakfast && ClockOf(in.Wake) >= r.LateWakeAfter {
			return in.Wake.Add(r.BreakfastOffset)
		}
		return rule.Default.On(in.Wake)
	}
	switch k {
	case Breakfast:
		return in.Wake.Add(r.BreakfastOffset)
	case Lunch:
		cutoff := r.LunchCutoff.On(in.Wake)
		if last, ok := lastEnd(in.Commitments, func(end time.Time) bool { return !end.After(cutoff) }); ok {
			return last.Add(r.AnchorMealOffset)
		}
		return r.LunchFallback.On(in.Wake)
	default:
		cutoff := r.DinnerCutoff.On(in.Wake)
		if last, ok := lastEnd(in.Commitments, func(end time.Time) bool { return end.After(cutoff) }); ok {
			return last.Add(r.AnchorMealOffset)
		}
		return rule.Default.On(in.Wake)
	}
}

func lastEnd(cs []model.Commitment, match func(time.Time) bool) (time.Time, bool) {
	var (
		last  time.Time
		found bool
	)
	for _, c := range cs {
		if match(c.EndTime) && (!found || c.EndTime.After(last)) {
			last, found = c.EndTime, true
		}
	}
	return last, found
}

// ApplyMealPlacements returns a copy of acts with meal entries refined by
// placements. Placed meals get a start time; skipped ones get a skip reason.
func ApplyMealPlacements(acts []model.Activity, placements []MealPlacement) []model.Activity {
	byKind := make(map[MealKind]MealPlacement, len(placements))
	for _, p := range placements {
		byKind[p.Meal] = p
	}
	out := make([]model.Activity, len(acts))
	copy(out, acts)
	for i, a := range out {
		if a.Type != model.ActivityMeal {
			continue
		}
		k, ok := mealKindOf(a.Name)
		if !ok {
			continue
		}
		p, ok := byKind[k]
		if !ok {
			continue
		}
		out[i].StartTime = p.Start
		out[i].Metadata = &model.BlockMetadata{TargetTime: p.Target, PlacementReason: p.Reason}
		if !p.Placed {
			out[i].SkipReason = p.SkipReason
		}
	}
	return out
}
