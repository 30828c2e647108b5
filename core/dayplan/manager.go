package dayplan

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/dayplan/core/events"
	"github.com/kilianp07/dayplan/core/logger"
	"github.com/kilianp07/dayplan/core/metrics"
	"github.com/kilianp07/dayplan/core/model"
	"github.com/kilianp07/dayplan/core/planner"
	"github.com/kilianp07/dayplan/core/provider"
	"github.com/kilianp07/dayplan/core/store"
	"github.com/kilianp07/dayplan/internal/eventbus"
)

// DefaultTaskFetchLimit bounds how many pending tasks are requested.
const DefaultTaskFetchLimit = 20

// GenerateRequest describes one plan generation.
type GenerateRequest struct {
	UserID string
	// Date is optional. When set it must be the day of Wake.
	Date     time.Time
	Wake     time.Time
	Sleep    time.Time
	Energy   model.EnergyState
	Location string
	// Replace deletes an existing plan for the same user and day first.
	Replace bool
}

// BehindStatus is the answer of CheckBehind.
type BehindStatus struct {
	PlanID    string
	Behind    bool
	Current   *model.TimeBlock
	Overdue   time.Duration
	CheckedAt time.Time
}

// Manager generates and mutates plans.
type Manager struct {
	mu          sync.RWMutex
	store       store.PlanStore
	commitments provider.CommitmentProvider
	tasks       provider.TaskProvider
	routines    provider.RoutineProvider
	exits       provider.ExitTimeCalculator
	rules       planner.Rules
	metrics     metrics.MetricsSink
	bus         eventbus.EventBus
	log         logger.Logger
	now         func() time.Time
	newID       func() string
	taskLimit   int
}

// NewManager wires a Manager. The store, commitment and task providers are
// required; routines and exits may be nil.
func NewManager(st store.PlanStore, commitments provider.CommitmentProvider, tasks provider.TaskProvider,
	routines provider.RoutineProvider, exits provider.ExitTimeCalculator, rules planner.Rules, log logger.Logger) (*Manager, error) {
	if st == nil {
		return nil, fmt.Errorf("plan store must not be nil")
	}
	if commitments == nil {
		return nil, fmt.Errorf("commitment provider must not be nil")
	}
	if tasks == nil {
		return nil, fmt.Errorf("task provider must not be nil")
	}
	return &Manager{
		store:       st,
		commitments: commitments,
		tasks:       tasks,
		routines:    routines,
		exits:       exits,
		rules:       rules,
		metrics:     metrics.NopSink{},
		log:         logger.OrNop(log),
		now:         time.Now,
		newID:       uuid.NewString,
		taskLimit:   DefaultTaskFetchLimit,
	}, nil
}

// SetMetricsSink replaces the metrics sink. Nil restores the no-op sink.
func (m *Manager) SetMetricsSink(s metrics.MetricsSink) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s == nil {
		s = metrics.NopSink{}
	}
	m.metrics = s
}

// SetEventBus sets the bus lifecycle events are published on.
func (m *Manager) SetEventBus(b eventbus.EventBus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bus = b
}

// SetClock overrides the time source.
func (m *Manager) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if now != nil {
		m.now = now
	}
}

// SetIDGenerator overrides how plan and block ids are generated.
func (m *Manager) SetIDGenerator(f func() string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f != nil {
		m.newID = f
	}
}

// SetTaskFetchLimit changes how many tasks are requested per generation.
func (m *Manager) SetTaskFetchLimit(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n > 0 {
		m.taskLimit = n
	}
}

// Rules returns the scheduling rules in use.
func (m *Manager) Rules() planner.Rules { return m.rules }

type deps struct {
	metrics   metrics.MetricsSink
	bus       eventbus.EventBus
	now       func() time.Time
	newID     func() string
	taskLimit int
}

func (m *Manager) deps() deps {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return deps{metrics: m.metrics, bus: m.bus, now: m.now, newID: m.newID, taskLimit: m.taskLimit}
}

func (d deps) publish(ev eventbus.Event) {
	if d.bus != nil {
		d.bus.Publish(ev)
	}
}

// GeneratePlan builds and persists the plan for one user and day.
func (m *Manager) GeneratePlan(ctx context.Context, req GenerateRequest) (model.DailyPlan, error) {
	if req.UserID == "" {
		return model.DailyPlan{}, fmt.Errorf("%w: missing user id", planner.ErrInvalidInput)
	}
	if err := planner.ValidateWindow(req.Wake, req.Sleep); err != nil {
		return model.DailyPlan{}, err
	}
	if !req.Energy.Valid() {
		return model.DailyPlan{}, fmt.Errorf("%w: energy state %q", planner.ErrInvalidInput, req.Energy)
	}
	day := model.Day(req.Wake)
	if !req.Date.IsZero() && req.Date.Format(model.DateLayout) != day.Format(model.DateLayout) {
		return model.DailyPlan{}, fmt.Errorf("%w: wake %s is not on %s", planner.ErrInvalidInput,
			req.Wake.Format(time.RFC3339), req.Date.Format(model.DateLayout))
	}

	d := m.deps()
	now := d.now()
	started := time.Now()

	existing, err := m.store.FindPlan(ctx, req.UserID, day)
	switch {
	case err == nil && !req.Replace:
		return model.DailyPlan{}, fmt.Errorf("%w: %s on %s", store.ErrPlanExists, req.UserID, day.Format(model.DateLayout))
	case err != nil && !errors.Is(err, store.ErrNotFound):
		return model.DailyPlan{}, fmt.Errorf("find plan: %w", err)
	}
	replacing := err == nil

	commitments, err := m.commitments.Commitments(ctx, req.UserID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return model.DailyPlan{}, fmt.Errorf("fetch commitments: %w", err)
	}
	tasks, err := m.tasks.PendingTasks(ctx, req.UserID, d.taskLimit)
	if err != nil {
		return model.DailyPlan{}, fmt.Errorf("fetch tasks: %w", err)
	}
	morning := m.routine(ctx, req.UserID, model.RoutineMorning)
	evening := m.routine(ctx, req.UserID, model.RoutineEvening)

	var exits []model.ExitTime
	if m.exits != nil && len(commitments) > 0 {
		if exits, err = m.exits.ExitTimes(ctx, commitments, req.Location); err != nil {
			return model.DailyPlan{}, fmt.Errorf("compute exit times: %w", err)
		}
	}

	res, err := planner.Generate(planner.GenerateInput{
		PlanID:      d.newID(),
		UserID:      req.UserID,
		Wake:        req.Wake,
		Sleep:       req.Sleep,
		Energy:      req.Energy,
		Now:         now,
		Commitments: commitments,
		Tasks:       tasks,
		Morning:     morning,
		Evening:     evening,
		ExitTimes:   exits,
		NewID:       d.newID,
	}, m.rules)
	if err != nil {
		return model.DailyPlan{}, err
	}

	if replacing {
		if err := m.store.ReplacePlan(ctx, existing.ID, res.Plan); err != nil {
			return model.DailyPlan{}, fmt.Errorf("replace plan %s: %w", existing.ID, err)
		}
	} else if err := m.store.CreatePlan(ctx, res.Plan); err != nil {
		return model.DailyPlan{}, fmt.Errorf("save plan: %w", err)
	}

	elapsed := time.Since(started)
	for _, a := range res.Assembly.Unplaced {
		m.log.Debugw("activity not placed", map[string]any{"plan": res.Plan.ID, "name": a.Name, "minutes": a.DurationMinutes})
	}
	m.log.Infof("plan %s generated for %s on %s: %d blocks, tail=%v", res.Plan.ID, req.UserID,
		res.Plan.DateKey(), len(res.Plan.Blocks), res.Assembly.TailPlan)
	m.recordGenerated(d, res, now, elapsed)
	d.publish(events.PlanGeneratedEvent{
		Plan:     res.Plan,
		Meals:    mealOutcomes(res.Meals),
		Unplaced: len(res.Assembly.Unplaced),
		TailPlan: res.Assembly.TailPlan,
		Replaced: replacing,
		Duration: elapsed,
	})
	return res.Plan, nil
}

// routine fetches a routine. Failures fall back to the default routine.
func (m *Manager) routine(ctx context.Context, userID string, slot model.RoutineSlot) *model.Routine {
	if m.routines == nil {
		return nil
	}
	r, err := m.routines.Routine(ctx, userID, slot)
	if err != nil {
		m.log.Warnf("%s routine for %s unavailable, using default: %v", slot, userID, err)
		return nil
	}
	return r
}

func (m *Manager) recordGenerated(d deps, res planner.Result, now time.Time, elapsed time.Duration) {
	skipped := 0
	for _, b := range res.Plan.Blocks {
		if b.Status == model.BlockSkipped {
			skipped++
		}
	}
	if err := d.metrics.RecordPlanGenerated(metrics.PlanGeneratedEvent{
		PlanID:   res.Plan.ID,
		UserID:   res.Plan.UserID,
		Energy:   res.Plan.EnergyState,
		Blocks:   len(res.Plan.Blocks),
		Skipped:  skipped,
		Unplaced: len(res.Assembly.Unplaced),
		TailPlan: res.Assembly.TailPlan,
		Duration: elapsed,
		Time:     now,
	}); err != nil {
		m.log.Errorf("record plan metrics: %v", err)
	}
	mr, ok := d.metrics.(metrics.MealPlacementRecorder)
	if !ok {
		return
	}
	for _, p := range res.Meals {
		if err := mr.RecordMealPlacement(metrics.MealPlacementEvent{
			PlanID:     res.Plan.ID,
			Meal:       p.Meal.String(),
			Placed:     p.Placed,
			Reason:     p.Reason,
			SkipReason: p.SkipReason,
			Time:       now,
		}); err != nil {
			m.log.Errorf("record meal metrics: %v", err)
			return
		}
	}
}

func mealOutcomes(ps []planner.MealPlacement) []events.MealOutcome {
	out := make([]events.MealOutcome, 0, len(ps))
	for _, p := range ps {
		out = append(out, events.MealOutcome{Meal: p.Meal.String(), Placed: p.Placed, Reason: p.Reason, SkipReason: p.SkipReason})
	}
	return out
}

// Plan returns a stored plan.
func (m *Manager) Plan(ctx context.Context, id string) (model.DailyPlan, error) {
	return m.store.GetPlan(ctx, id)
}

// FindPlan returns the plan of a user for a day.
func (m *Manager) FindPlan(ctx context.Context, userID string, date time.Time) (model.DailyPlan, error) {
	return m.store.FindPlan(ctx, userID, date)
}

// ListPlans lists stored plans.
func (m *Manager) ListPlans(ctx context.Context, f store.Filter) ([]model.DailyPlan, error) {
	return m.store.ListPlans(ctx, f)
}

// OpenPlans returns the active and degraded plans of a day.
func (m *Manager) OpenPlans(ctx context.Context, date time.Time) ([]model.DailyPlan, error) {
	var out []model.DailyPlan
	for _, st := range []model.PlanStatus{model.PlanActive, model.PlanDegraded} {
		ps, err := m.store.ListPlans(ctx, store.Filter{Date: date, Status: st})
		if err != nil {
			return nil, err
		}
		out = append(out, ps...)
	}
	return out, nil
}

// DegradePlan shrinks an active plan to its essentials and persists it.
func (m *Manager) DegradePlan(ctx context.Context, planID string) (planner.Degradation, error) {
	plan, err := m.store.GetPlan(ctx, planID)
	if err != nil {
		return planner.Degradation{}, err
	}
	d := m.deps()
	now := d.now()
	res, err := planner.DegradeAt(plan, now, m.rules, d.newID)
	if err != nil {
		return planner.Degradation{}, err
	}

	if err := m.store.ApplyDegradation(ctx, planID, res.Deleted, res.Plan.Blocks); err != nil {
		return planner.Degradation{}, fmt.Errorf("save degradation: %w", err)
	}

	m.log.Infof("plan %s degraded: %d dropped, %d buffers replaced by %d",
		planID, len(res.Dropped), len(res.Deleted), len(res.Created))
	d.publish(events.PlanDegradedEvent{
		PlanID:  planID,
		UserID:  plan.UserID,
		Dropped: len(res.Dropped),
		Deleted: len(res.Deleted),
		Created: len(res.Created),
		Time:    now,
	})
	return res, nil
}

// CheckBehind evaluates the behind-schedule predicate at the current time.
func (m *Manager) CheckBehind(ctx context.Context, planID string) (BehindStatus, error) {
	plan, err := m.store.GetPlan(ctx, planID)
	if err != nil {
		return BehindStatus{}, err
	}
	return Behind(plan, m.deps().now(), m.rules.BehindGrace), nil
}

// Behind evaluates the predicate for plan at now.
func Behind(plan model.DailyPlan, now time.Time, grace time.Duration) BehindStatus {
	st := BehindStatus{PlanID: plan.ID, CheckedAt: now}
	cur, ok := planner.CurrentBlock(plan)
	if !ok {
		return st
	}
	st.Current = &cur
	st.Behind = planner.IsBehindScheduleWithGrace(plan, now, grace)
	if now.After(cur.EndTime) {
		st.Overdue = now.Sub(cur.EndTime)
	}
	return st
}

// CompleteBlock marks a pending block completed.
func (m *Manager) CompleteBlock(ctx context.Context, planID, blockID string) (model.TimeBlock, error) {
	return m.transition(ctx, planID, blockID, func(b *model.TimeBlock) {
		b.Status = model.BlockCompleted
	})
}

// SkipBlock marks a pending block skipped. An empty reason is recorded as
// skipped by the user.
func (m *Manager) SkipBlock(ctx context.Context, planID, blockID, reason string) (model.TimeBlock, error) {
	if reason == "" {
		reason = model.SkipByUser
	}
	return m.transition(ctx, planID, blockID, func(b *model.TimeBlock) {
		b.Skip(reason)
	})
}

func (m *Manager) transition(ctx context.Context, planID, blockID string, apply func(*model.TimeBlock)) (model.TimeBlock, error) {
	plan, err := m.store.GetPlan(ctx, planID)
	if err != nil {
		return model.TimeBlock{}, err
	}
	b, ok := plan.Block(blockID)
	if !ok {
		return model.TimeBlock{}, fmt.Errorf("%w: %s in plan %s", ErrBlockNotFound, blockID, planID)
	}
	if b.ActivityType == model.ActivityBuffer {
		return model.TimeBlock{}, fmt.Errorf("%w: %s is a buffer", ErrInvalidTransition, blockID)
	}
	if b.Status != model.BlockPending {
		return model.TimeBlock{}, fmt.Errorf("%w: %s is already %s", ErrInvalidTransition, blockID, b.Status)
	}
	apply(&b)
	if err := m.store.SaveBlocks(ctx, planID, []model.TimeBlock{b}); err != nil {
		return model.TimeBlock{}, fmt.Errorf("save block: %w", err)
	}
	d := m.deps()
	m.log.Debugw("block updated", map[string]any{"plan": planID, "block": blockID, "status": string(b.Status)})
	d.publish(events.BlockUpdatedEvent{PlanID: planID, UserID: plan.UserID, Block: b, Time: d.now()})
	return b, nil
}
