package metrics

import (
	"context"

	"github.com/kilianp07/dayplan/core/events"
	coremetrics "github.com/kilianp07/dayplan/core/metrics"
	"github.com/kilianp07/dayplan/core/monitoring"
	"github.com/kilianp07/dayplan/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records metrics for
// degradations, block updates and behind-schedule detections. Plan
// generation is recorded by the plan manager itself. The returned channel is
// closed once the collector has stopped, which happens when ctx is canceled
// or the bus is closed.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.MetricsSink) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	sub := bus.Subscribe()
	monitoring.Go("metrics-collector", func() {
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
				record(sink, ev)
			}
		}
	})
	return done
}

func record(sink coremetrics.MetricsSink, ev eventbus.Event) {
	switch e := ev.(type) {
	case events.PlanDegradedEvent:
		if r, ok := sink.(coremetrics.DegradationRecorder); ok {
			_ = r.RecordDegradation(coremetrics.DegradationEvent{
				PlanID:  e.PlanID,
				UserID:  e.UserID,
				Dropped: e.Dropped,
				Deleted: e.Deleted,
				Created: e.Created,
				Time:    e.Time,
			})
		}
	case events.BlockUpdatedEvent:
		if r, ok := sink.(coremetrics.BlockTransitionRecorder); ok {
			_ = r.RecordBlockTransition(coremetrics.BlockTransitionEvent{
				PlanID: e.PlanID,
				Type:   e.Block.ActivityType,
				Status: e.Block.Status,
				Time:   e.Time,
			})
		}
	case events.BehindScheduleEvent:
		if r, ok := sink.(coremetrics.BehindScheduleRecorder); ok {
			_ = r.RecordBehindSchedule(coremetrics.BehindScheduleEvent{
				PlanID:  e.PlanID,
				UserID:  e.UserID,
				BlockID: e.Block.ID,
				Type:    e.Block.ActivityType,
				Overdue: e.Overdue,
				Time:    e.Time,
			})
		}
	}
}
