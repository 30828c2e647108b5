package journal

import (
	"context"
	"time"

	"github.com/kilianp07/dayplan/core/events"
	"github.com/kilianp07/dayplan/core/logger"
	"github.com/kilianp07/dayplan/core/model"
	"github.com/kilianp07/dayplan/core/monitoring"
	"github.com/kilianp07/dayplan/internal/eventbus"
)

// FromEvent converts a lifecycle event to a record. Unknown events are
// reported with ok false.
func FromEvent(ev eventbus.Event) (rec Record, ok bool) {
	switch e := ev.(type) {
	case events.PlanGeneratedEvent:
		p := e.Plan
		return Record{
			Timestamp: p.GeneratedAt,
			Kind:      KindGenerated,
			UserID:    p.UserID,
			PlanID:    p.ID,
			Date:      p.DateKey(),
			Status:    p.Status,
			Counts: map[string]int{
				"blocks":   len(p.Blocks),
				"unplaced": e.Unplaced,
				"meals":    placedMeals(e.Meals),
			},
		}, true
	case events.PlanDegradedEvent:
		return Record{
			Timestamp: e.Time,
			Kind:      KindDegraded,
			UserID:    e.UserID,
			PlanID:    e.PlanID,
			Status:    model.PlanDegraded,
			Counts:    map[string]int{"dropped": e.Dropped, "deleted": e.Deleted, "created": e.Created},
		}, true
	case events.BlockUpdatedEvent:
		return Record{
			Timestamp: e.Time,
			Kind:      KindBlockUpdated,
			UserID:    e.UserID,
			PlanID:    e.PlanID,
			Block:     blockRef(e.Block),
		}, true
	case events.BehindScheduleEvent:
		return Record{
			Timestamp: e.Time,
			Kind:      KindBehindSchedule,
			UserID:    e.UserID,
			PlanID:    e.PlanID,
			Block:     blockRef(e.Block),
			Overdue:   e.Overdue,
		}, true
	}
	return Record{}, false
}

func blockRef(b model.TimeBlock) *BlockRef {
	return &BlockRef{ID: b.ID, Name: b.Name, Type: b.ActivityType, Status: b.Status, SkipReason: b.SkipReason}
}

func placedMeals(ms []events.MealOutcome) int {
	n := 0
	for _, m := range ms {
		if m.Placed {
			n++
		}
	}
	return n
}

// StartRecorder appends every lifecycle event published on bus to st. The
// returned channel is closed once the recorder has stopped.
func StartRecorder(ctx context.Context, bus eventbus.EventBus, st Store, log logger.Logger) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || st == nil {
		close(done)
		return done
	}
	log = logger.OrNop(log)
	sub := bus.Subscribe()
	monitoring.Go("journal-recorder", func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				rec, ok := FromEvent(ev)
				if !ok {
					continue
				}
				if rec.Timestamp.IsZero() {
					rec.Timestamp = time.Now()
				}
				if err := st.Append(ctx, rec); err != nil {
					log.Errorf("journal append %s for plan %s: %v", rec.Kind, rec.PlanID, err)
					monitoring.CaptureException(err, map[string]string{"module": "journal", "plan_id": rec.PlanID})
				}
			}
		}
	})
	return done
}
