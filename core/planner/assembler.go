package planner

import (
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/dayplan/core/model"
)

// AssembleInput is the data needed to lay out one day.
type AssembleInput struct {
	PlanID string
	// Activities is the builder output after meal placement.
	Activities []model.Activity
	// Evening is placed last. A zero duration means no evening routine.
	Evening   model.Activity
	ExitTimes []model.ExitTime
	Wake      time.Time
	Sleep     time.Time
	PlanStart time.Time
	Energy    model.EnergyState
	// NewID generates block ids. uuid.NewString is used when nil.
	NewID func() string
}

// Assembly is the assembled timeline.
type Assembly struct {
	Blocks []model.TimeBlock
	// Unplaced lists flexible activities that found no room. They are not
	// part of the plan.
	Unplaced []model.Activity
	TailPlan bool
}

// fold is the accumulator of the gap-filling walk.
type fold struct {
	cursor time.Time
	queue  []model.Activity
	out    []model.TimeBlock
}

// Assemble interleaves fixed blocks and placed meals with the flexible
// queue, separated by transition buffers. It never fails: activities that
// do not fit are reported in Unplaced.
func Assemble(in AssembleInput, r Rules) Assembly {
	newID := in.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	anchors, skipped := FixedLayout(in.Activities, in.ExitTimes)
	var queue []model.Activity
	for _, a := range in.Activities {
		switch {
		case a.Type == model.ActivityCommitment && a.Fixed:
		case a.Type == model.ActivityMeal && a.Skipped():
			b := blockFrom(a, a.StartTime)
			b.Skip(a.SkipReason)
			skipped = append(skipped, b)
		case a.Anchored():
			anchors = append(anchors, blockFrom(a, a.StartTime))
		default:
			queue = append(queue, a)
		}
	}
	model.SortBlocks(anchors)

	f := fold{cursor: in.Wake, queue: queue}
	for i, anchor := range anchors {
		if anchor.ActivityType == model.ActivityTravel && anchor.StartTime.Before(f.cursor) {
			anchor.StartTime = f.cursor
			if !anchor.EndTime.After(anchor.StartTime) {
				continue
			}
		}
		f.fill(anchor.StartTime, r.Buffer)
		f.out = append(f.out, anchor)
		f.cursor = maxTime(f.cursor, anchor.EndTime)

		limit := in.Sleep
		if i+1 < len(anchors) {
			limit = minTime(limit, anchors[i+1].StartTime)
		}
		f.buffer(limit, r.Buffer)
	}
	f.drain(in.Sleep, r.Buffer)

	unplaced := f.queue
	if in.Evening.DurationMinutes > 0 {
		start := maxTime(f.cursor, in.PlanStart)
		evening := r.EveningEarliest.On(in.Wake)
		if !in.Sleep.Before(evening) {
			start = maxTime(start, evening)
		}
		if end := start.Add(in.Evening.Duration()); !end.After(in.Sleep) {
			f.out = append(f.out, blockFrom(in.Evening, start))
			f.cursor = end
			f.buffer(in.Sleep, r.Buffer)
		} else {
			unplaced = append(unplaced, in.Evening)
		}
	}

	blocks := append(f.out, skipped...)
	model.SortBlocks(blocks)

	for i := range blocks {
		if blocks[i].Status == model.BlockPending && !blocks[i].EndTime.After(in.PlanStart) {
			blocks[i].Skip(model.SkipBeforePlanStart)
		}
	}

	asm := Assembly{Unplaced: unplaced}
	if !hasActionable(blocks, in.PlanStart) {
		blocks = append(blocks, tailPlan(blocks, in, r)...)
		asm.TailPlan = true
	}

	model.SortBlocks(blocks)
	model.Renumber(blocks)
	for i := range blocks {
		blocks[i].ID = newID()
		blocks[i].PlanID = in.PlanID
	}
	asm.Blocks = blocks
	return asm
}

// fill consumes the queue front while an activity and its buffer fit
// before until. The first activity that does not fit stops the fill.
func (f *fold) fill(until time.Time, buf time.Duration) {
	for len(f.queue) > 0 {
		a := f.queue[0]
		if f.cursor.Add(a.Duration() + buf).After(until) {
			return
		}
		f.place(a, until, buf)
	}
}

// drain consumes the queue until an activity would cross sleep.
func (f *fold) drain(sleep time.Time, buf time.Duration) {
	for len(f.queue) > 0 {
		a := f.queue[0]
		if f.cursor.Add(a.Duration()).After(sleep) {
			return
		}
		f.place(a, sleep, buf)
	}
}

func (f *fold) place(a model.Activity, limit time.Time, buf time.Duration) {
	f.queue = f.queue[1:]
	f.out = append(f.out, blockFrom(a, f.cursor))
	f.cursor = f.cursor.Add(a.Duration())
	f.buffer(limit, buf)
}

// buffer appends a transition buffer when it fits before limit.
func (f *fold) buffer(limit time.Time, buf time.Duration) {
	if buf <= 0 || f.cursor.Add(buf).After(limit) {
		return
	}
	if n := len(f.out); n > 0 && f.out[n-1].ActivityType == model.ActivityBuffer {
		return
	}
	f.out = append(f.out, bufferBlock(f.cursor, buf))
	f.cursor = f.cursor.Add(buf)
}

func blockFrom(a model.Activity, start time.Time) model.TimeBlock {
	return model.TimeBlock{
		StartTime:    start,
		EndTime:      start.Add(a.Duration()),
		ActivityType: a.Type,
		Name:         a.Name,
		SourceID:     a.SourceID,
		Fixed:        a.Fixed,
		Status:       model.BlockPending,
		Metadata:     a.Metadata,
	}
}

func bufferBlock(start time.Time, d time.Duration) model.TimeBlock {
	return model.TimeBlock{
		StartTime:    start,
		EndTime:      start.Add(d),
		ActivityType: model.ActivityBuffer,
		Name:         "Buffer",
		Status:       model.BlockPending,
	}
}

// hasActionable reports whether a pending non-buffer block ends after start.
func hasActionable(blocks []model.TimeBlock, start time.Time) bool {
	for _, b := range blocks {
		if b.Status == model.BlockPending && b.ActivityType != model.ActivityBuffer && b.EndTime.After(start) {
			return true
		}
	}
	return false
}

// tailPlan synthesizes the minimal late-day sequence. It stops at the first
// item that would end after sleep.
func tailPlan(existing []model.TimeBlock, in AssembleInput, r Rules) []model.TimeBlock {
	cursor := in.PlanStart
	for _, b := range existing {
		if b.Status == model.BlockPending && b.EndTime.After(cursor) {
			cursor = b.EndTime
		}
	}

	items := []model.Activity{{Type: model.ActivityTask, Name: ResetAdminName, DurationMinutes: 10}}
	if in.Energy != model.EnergyLow {
		items = append(items, focusBlock(r))
	}
	items = append(items,
		model.Activity{Type: model.ActivityMeal, Name: Dinner.String(), DurationMinutes: r.Meals[Dinner].Duration},
		model.Activity{Type: model.ActivityRoutine, Name: EveningRoutineName, DurationMinutes: r.EveningRoutineMinutes},
	)

	f := fold{cursor: cursor}
	for _, a := range items {
		if f.cursor.Add(a.Duration()).After(in.Sleep) {
			break
		}
		f.out = append(f.out, blockFrom(a, f.cursor))
		f.cursor = f.cursor.Add(a.Duration())
		f.buffer(in.Sleep, r.Buffer)
	}
	return f.out
}
