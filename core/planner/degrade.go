package planner

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/dayplan/core/model"
)

// Degradation describes the result of shrinking a plan to its essentials.
type Degradation struct {
	// Plan is the degraded plan with its full block list.
	Plan model.DailyPlan
	// Dropped are the blocks newly skipped.
	Dropped []model.TimeBlock
	// Deleted holds the ids of the removed buffer blocks.
	Deleted []string
	// Created are the freshly computed buffers.
	Created []model.TimeBlock
	// Moved are flexible essentials whose start time changed.
	Moved []model.TimeBlock
}

// Degrade is DegradeAt with no current time: essentials are laid out from
// the later of wake and plan start.
func Degrade(plan model.DailyPlan, r Rules, newID func() string) (Degradation, error) {
	return DegradeAt(plan, time.Time{}, r, newID)
}

// DegradeAt drops every pending non-essential block of an active plan,
// deletes all buffers and lays the essentials out again with new buffers.
// Fixed, travel and completed blocks keep their times. Flexible essentials
// (routines and meals) are packed sequentially from the later of wake, plan
// start and now, each followed by room for a buffer. A meal stays inside its
// window and keeps the meal spacing; an evening routine stays after the
// evening floor. A block never moves later than it was unless it overlapped
// a kept block.
func DegradeAt(plan model.DailyPlan, now time.Time, r Rules, newID func() string) (Degradation, error) {
	if plan.Status != model.PlanActive {
		return Degradation{}, fmt.Errorf("%w: %s is %s", ErrPlanNotActive, plan.ID, plan.Status)
	}
	if newID == nil {
		newID = uuid.NewString
	}

	var (
		d       Degradation
		anchors []model.TimeBlock
		flex    []model.TimeBlock
		rest    []model.TimeBlock
	)
	for _, b := range model.BySequence(plan.Blocks) {
		switch {
		case b.ActivityType == model.ActivityBuffer:
			d.Deleted = append(d.Deleted, b.ID)
		case b.Status == model.BlockSkipped:
			rest = append(rest, b)
		case b.Status == model.BlockPending && !b.IsEssential():
			b.Skip(model.SkipDroppedDegraded)
			d.Dropped = append(d.Dropped, b)
			rest = append(rest, b)
		case movable(b):
			flex = append(flex, b)
		default:
			anchors = append(anchors, b)
		}
	}
	model.SortBlocks(anchors)
	model.SortBlocks(flex)

	floor := maxTime(plan.WakeTime, plan.PlanStart)
	if !now.IsZero() {
		floor = maxTime(floor, roundUp(now, r.PlanStartRounding))
	}
	kept := append([]model.TimeBlock(nil), anchors...)
	l := relayout{cursor: floor, anchors: anchors, plan: plan, r: r}
	for _, b := range flex {
		start := l.place(b)
		if !start.Equal(b.StartTime) {
			dur := b.Duration()
			b.StartTime, b.EndTime = start, start.Add(dur)
			d.Moved = append(d.Moved, b)
		}
		l.commit(b)
		kept = append(kept, b)
	}
	model.SortBlocks(kept)

	var laid []model.TimeBlock
	cursor := plan.WakeTime
	for i, b := range kept {
		laid = append(laid, b)
		cursor = maxTime(cursor, b.EndTime)

		if r.Buffer <= 0 || cursor.Before(plan.PlanStart) {
			continue
		}
		limit := plan.SleepTime
		if i+1 < len(kept) {
			limit = minTime(limit, kept[i+1].StartTime)
		}
		if end := cursor.Add(r.Buffer); !end.After(limit) {
			buf := bufferBlock(cursor, r.Buffer)
			buf.ID = newID()
			buf.PlanID = plan.ID
			laid = append(laid, buf)
			d.Created = append(d.Created, buf)
			cursor = end
		}
	}

	blocks := append(laid, rest...)
	model.SortBlocks(blocks)
	model.Renumber(blocks)

	d.Plan = plan
	d.Plan.Blocks = blocks
	d.Plan.Status = model.PlanDegraded
	return d, nil
}

// movable reports whether degradation may reschedule b.
func movable(b model.TimeBlock) bool {
	if b.Fixed || b.Status != model.BlockPending {
		return false
	}
	return b.ActivityType == model.ActivityRoutine || b.ActivityType == model.ActivityMeal
}

// relayout is the accumulator of the essential packing walk.
type relayout struct {
	cursor  time.Time
	placed  time.Time
	mealEnd time.Time
	anchors []model.TimeBlock
	plan    model.DailyPlan
	r       Rules
}

// place returns the start of b in the degraded plan.
func (l *relayout) place(b model.TimeBlock) time.Time {
	dur := b.Duration()
	earliest := l.cursor
	var winEnd time.Time
	if b.ActivityType == model.ActivityMeal {
		if k, ok := mealKindOf(b.Name); ok {
			rule := l.r.Meals[k]
			earliest = maxTime(earliest, rule.WindowStart.On(l.plan.WakeTime))
			winEnd = rule.WindowEnd.On(l.plan.WakeTime)
		}
		prev := l.mealEnd
		for _, a := range l.anchors {
			if a.ActivityType == model.ActivityMeal && a.StartTime.Before(b.StartTime) {
				prev = maxTime(prev, a.EndTime)
			}
		}
		if !prev.IsZero() {
			earliest = maxTime(earliest, prev.Add(l.r.MealSpacing))
		}
	}
	if b.ActivityType == model.ActivityRoutine {
		if evening := l.r.EveningEarliest.On(l.plan.WakeTime); !b.StartTime.Before(evening) {
			earliest = maxTime(earliest, evening)
		}
	}

	start := l.clear(earliest, dur+l.r.Buffer)
	tooLate := !winEnd.IsZero() && start.Add(dur).After(winEnd)
	if (start.After(b.StartTime) || tooLate) && l.fits(b.StartTime, dur) {
		return b.StartTime
	}
	return start
}

// clear moves start past every anchor the span would overlap.
func (l *relayout) clear(start time.Time, span time.Duration) time.Time {
	for moved := true; moved; {
		moved = false
		for _, a := range l.anchors {
			if start.Before(a.EndTime) && start.Add(span).After(a.StartTime) {
				start = a.EndTime.Add(l.r.Buffer)
				moved = true
			}
		}
	}
	return start
}

// fits reports whether [start, start+dur) is free of anchors and of the
// essentials placed so far.
func (l *relayout) fits(start time.Time, dur time.Duration) bool {
	if start.Before(l.placed) {
		return false
	}
	end := start.Add(dur)
	for _, a := range l.anchors {
		if start.Before(a.EndTime) && end.After(a.StartTime) {
			return false
		}
	}
	return true
}

func (l *relayout) commit(b model.TimeBlock) {
	l.placed = maxTime(l.placed, b.EndTime)
	l.cursor = maxTime(l.cursor, b.EndTime.Add(l.r.Buffer))
	if b.ActivityType == model.ActivityMeal {
		l.mealEnd = maxTime(l.mealEnd, b.EndTime)
	}
}
