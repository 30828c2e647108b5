package app

import (
	"context"

	"github.com/kilianp07/dayplan/core/events"
	"github.com/kilianp07/dayplan/core/logger"
	"github.com/kilianp07/dayplan/core/model"
	"github.com/kilianp07/dayplan/core/monitoring"
	"github.com/kilianp07/dayplan/internal/eventbus"
)

// PlanPublisher pushes plan snapshots to subscribers.
type PlanPublisher interface {
	PublishPlan(ctx context.Context, plan model.DailyPlan) error
}

// PlanSource loads the current state of a plan.
type PlanSource interface {
	Plan(ctx context.Context, id string) (model.DailyPlan, error)
}

// StartPlanBridge republishes a plan snapshot whenever a plan is generated,
// degraded or one of its blocks changes. The returned channel is closed once
// the bridge stops, on ctx cancellation or bus close.
func StartPlanBridge(ctx context.Context, bus eventbus.EventBus, src PlanSource, pub PlanPublisher, log logger.Logger) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || pub == nil {
		close(done)
		return done
	}
	log = logger.OrNop(log)
	sub := bus.Subscribe()
	monitoring.Go("plan-bridge", func() {
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
				forward(ctx, ev, src, pub, log)
			}
		}
	})
	return done
}

func forward(ctx context.Context, ev eventbus.Event, src PlanSource, pub PlanPublisher, log logger.Logger) {
	var (
		plan model.DailyPlan
		id   string
	)
	switch e := ev.(type) {
	case events.PlanGeneratedEvent:
		plan = e.Plan
	case events.PlanDegradedEvent:
		id = e.PlanID
	case events.BlockUpdatedEvent:
		id = e.PlanID
	default:
		return
	}
	if id != "" {
		if src == nil {
			return
		}
		var err error
		if plan, err = src.Plan(ctx, id); err != nil {
			log.Warnf("load plan %s: %v", id, err)
			return
		}
	}
	if err := pub.PublishPlan(ctx, plan); err != nil {
		log.Errorf("publish plan %s: %v", plan.ID, err)
		monitoring.CaptureException(err, map[string]string{"module": "bridge", "plan_id": plan.ID})
	}
}
