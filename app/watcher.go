package app

import (
	"context"
	"sync"
	"time"

	"github.com/kilianp07/dayplan/core/dayplan"
	"github.com/kilianp07/dayplan/core/events"
	"github.com/kilianp07/dayplan/core/logger"
	"github.com/kilianp07/dayplan/core/model"
	"github.com/kilianp07/dayplan/core/monitoring"
	"github.com/kilianp07/dayplan/core/notify"
	"github.com/kilianp07/dayplan/internal/eventbus"
)

// Watcher periodically evaluates today's open plans and alerts users whose
// current block is overdue. A plan is alerted at most once per block.
type Watcher struct {
	mgr      *dayplan.Manager
	notifier notify.Notifier
	bus      eventbus.EventBus
	interval time.Duration
	now      func() time.Time
	log      logger.Logger

	mu      sync.Mutex
	alerted map[string]string
}

// NewWatcher creates a Watcher. A nil notifier drops alerts and a nil bus
// disables event publication.
func NewWatcher(mgr *dayplan.Manager, n notify.Notifier, bus eventbus.EventBus, interval time.Duration, log logger.Logger) *Watcher {
	if n == nil {
		n = notify.Nop{}
	}
	return &Watcher{
		mgr:      mgr,
		notifier: n,
		bus:      bus,
		interval: interval,
		now:      time.Now,
		log:      logger.OrNop(log),
		alerted:  make(map[string]string),
	}
}

// SetClock overrides the time source.
func (w *Watcher) SetClock(now func() time.Time) {
	if now != nil {
		w.now = now
	}
}

// Start runs Check on every tick until ctx is canceled. The returned
// channel is closed when the loop has exited.
func (w *Watcher) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	monitoring.Go("behind-watcher", func() {
		defer close(done)
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := w.Check(ctx); err != nil && ctx.Err() == nil {
					w.log.Errorf("behind check: %v", err)
				}
			}
		}
	})
	return done
}

// Check runs one pass and returns how many alerts were delivered.
func (w *Watcher) Check(ctx context.Context) (int, error) {
	now := w.now()
	plans, err := w.mgr.OpenPlans(ctx, model.Day(now))
	if err != nil {
		return 0, err
	}
	w.prune(plans)
	grace := w.mgr.Rules().BehindGrace
	sent := 0
	for _, plan := range plans {
		st := dayplan.Behind(plan, now, grace)
		if !st.Behind || st.Current == nil {
			continue
		}
		if !w.claim(plan.ID, st.Current.ID) {
			continue
		}
		if w.bus != nil {
			w.bus.Publish(events.BehindScheduleEvent{
				PlanID:  plan.ID,
				UserID:  plan.UserID,
				Block:   *st.Current,
				Overdue: st.Overdue,
				Time:    now,
			})
		}
		alert := notify.Alert{
			UserID:     plan.UserID,
			PlanID:     plan.ID,
			BlockID:    st.Current.ID,
			BlockName:  st.Current.Name,
			BlockEnd:   st.Current.EndTime,
			Overdue:    st.Overdue,
			DetectedAt: now,
		}
		if err := w.notifier.NotifyBehind(ctx, alert); err != nil {
			w.log.Warnf("notify %s for plan %s: %v", plan.UserID, plan.ID, err)
			monitoring.CaptureException(err, map[string]string{"module": "watcher", "plan_id": plan.ID})
			continue
		}
		sent++
	}
	return sent, nil
}

// claim records blockID as the alerted block of planID. It reports false
// when that pair was already claimed.
func (w *Watcher) claim(planID, blockID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.alerted[planID] == blockID {
		return false
	}
	w.alerted[planID] = blockID
	return true
}

// prune forgets alerts of plans that are no longer open.
func (w *Watcher) prune(open []model.DailyPlan) {
	keep := make(map[string]bool, len(open))
	for _, p := range open {
		keep[p.ID] = true
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for id := range w.alerted {
		if !keep[id] {
			delete(w.alerted, id)
		}
	}
}
