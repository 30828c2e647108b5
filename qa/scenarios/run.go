package scenarios

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kilianp07/dayplan/connectors"
	"github.com/kilianp07/dayplan/core/dayplan"
	"github.com/kilianp07/dayplan/core/events"
	"github.com/kilianp07/dayplan/core/model"
	"github.com/kilianp07/dayplan/core/planner"
	"github.com/kilianp07/dayplan/core/store"
	"github.com/kilianp07/dayplan/infra/logger"
	"github.com/kilianp07/dayplan/infra/metrics"
	"github.com/kilianp07/dayplan/internal/eventbus"
)

func RunScenario(t *testing.T, sc *Scenario) {
	t.Helper()
	ctx := context.Background()

	reg := prometheus.NewRegistry()
	sink, err := metrics.NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("prom sink: %v", err)
	}
	day, err := sc.DayFile()
	if err != nil {
		t.Fatalf("day: %v", err)
	}
	now, err := parseTime(sc.Now)
	if err != nil {
		t.Fatalf("now: %v", err)
	}

	p := connectors.FromStatic(day.Data)
	mgr, err := dayplan.NewManager(store.NewMemoryStore(), p.Commitments, p.Tasks, p.Routines, p.Exits,
		planner.DefaultRules(), logger.NopLogger{})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	mgr.SetMetricsSink(sink)
	clock := now
	mgr.SetClock(func() time.Time { return clock })

	bus := eventbus.New()
	defer bus.Close()
	sub := bus.Subscribe()
	mgr.SetEventBus(bus)

	plan, err := mgr.GeneratePlan(ctx, day.Request(false))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	generated := generatedEvent(t, sub)

	for i, st := range sc.Steps {
		at, err := parseTime(st.At)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		clock = at
		runStep(ctx, t, mgr, plan.ID, i, st)
	}

	final, err := mgr.Plan(ctx, plan.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	check(t, sc.Expected, final, generated)

	if n, err := testutil.GatherAndCount(reg, "dayplan_plans_generated_total"); err != nil || n == 0 {
		t.Errorf("plans_generated not recorded (n=%d, err=%v)", n, err)
	}
}

func generatedEvent(t *testing.T, sub <-chan eventbus.Event) events.PlanGeneratedEvent {
	t.Helper()
	timeout := time.After(time.Second)
	for {
		select {
		case ev := <-sub:
			if e, ok := ev.(events.PlanGeneratedEvent); ok {
				return e
			}
		case <-timeout:
			t.Fatal("no plan generated event")
			return events.PlanGeneratedEvent{}
		}
	}
}

func runStep(ctx context.Context, t *testing.T, mgr *dayplan.Manager, planID string, i int, st Step) {
	t.Helper()
	switch st.Action {
	case "degrade":
		if _, err := mgr.DegradePlan(ctx, planID); err != nil {
			t.Fatalf("step %d degrade: %v", i, err)
		}
	case "complete", "skip":
		plan, err := mgr.Plan(ctx, planID)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		b, ok := blockNamed(plan, st.Block)
		if !ok {
			t.Fatalf("step %d: no block %q", i, st.Block)
		}
		if st.Action == "complete" {
			_, err = mgr.CompleteBlock(ctx, planID, b.ID)
		} else {
			_, err = mgr.SkipBlock(ctx, planID, b.ID, st.Reason)
		}
		if err != nil {
			t.Fatalf("step %d %s: %v", i, st.Action, err)
		}
	case "behind":
		res, err := mgr.CheckBehind(ctx, planID)
		if err != nil {
			t.Fatalf("step %d behind: %v", i, err)
		}
		if st.Behind != nil && res.Behind != *st.Behind {
			t.Errorf("step %d at %s: behind=%v, want %v", i, st.At, res.Behind, *st.Behind)
		}
	default:
		t.Fatalf("step %d: unknown action %q", i, st.Action)
	}
}

func check(t *testing.T, exp Expected, plan model.DailyPlan, ev events.PlanGeneratedEvent) {
	t.Helper()
	if exp.Status != "" && string(plan.Status) != exp.Status {
		t.Errorf("status %s, want %s", plan.Status, exp.Status)
	}
	if ev.TailPlan != exp.TailPlan {
		t.Errorf("tail plan %v, want %v", ev.TailPlan, exp.TailPlan)
	}
	if exp.MealsPlaced != nil {
		placed := 0
		for _, m := range ev.Meals {
			if m.Placed {
				placed++
			}
		}
		if placed != *exp.MealsPlaced {
			t.Errorf("%d meals placed, want %d", placed, *exp.MealsPlaced)
		}
	}
	for _, name := range exp.Blocks {
		if _, ok := blockNamed(plan, name); !ok {
			t.Errorf("missing block %q", name)
		}
	}
	for name, reason := range exp.Skipped {
		b, ok := blockNamed(plan, name)
		switch {
		case !ok:
			t.Errorf("missing skipped block %q", name)
		case b.Status != model.BlockSkipped || b.SkipReason != reason:
			t.Errorf("block %q is %s (%q), want skipped (%q)", name, b.Status, b.SkipReason, reason)
		}
	}
}

func blockNamed(plan model.DailyPlan, name string) (model.TimeBlock, bool) {
	for _, b := range model.BySequence(plan.Blocks) {
		if b.Name == name {
			return b, true
		}
	}
	return model.TimeBlock{}, false
}
