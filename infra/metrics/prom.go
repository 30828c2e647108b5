package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/dayplan/core/metrics"
)

// PromSink records plan events in Prometheus metrics.
type PromSink struct {
	plans       *prometheus.CounterVec
	blocks      *prometheus.HistogramVec
	duration    prometheus.Histogram
	unplaced    prometheus.Counter
	meals       *prometheus.CounterVec
	degraded    prometheus.Counter
	dropped     prometheus.Counter
	behind      *prometheus.CounterVec
	overdue     prometheus.Histogram
	transitions *prometheus.CounterVec
}

// NewPromSink registers plan metrics on the default Prometheus registerer.
// The handler is served by the HTTP server at the configured path.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		plans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dayplan_plans_generated_total",
			Help: "Plans generated, by energy state and tail-plan fallback",
		}, []string{"energy", "tail_plan"}),
		blocks: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dayplan_plan_blocks",
			Help:    "Number of blocks per generated plan",
			Buckets: prometheus.LinearBuckets(2, 2, 12),
		}, []string{"status"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dayplan_generation_seconds",
			Help:    "Time spent generating a plan",
			Buckets: prometheus.DefBuckets,
		}),
		unplaced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dayplan_unplaced_activities_total",
			Help: "Flexible activities that found no slot",
		}),
		meals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dayplan_meal_placements_total",
			Help: "Meal placement outcomes",
		}, []string{"meal", "placed", "reason"}),
		degraded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dayplan_degradations_total",
			Help: "Plans degraded to their essentials",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dayplan_degradation_dropped_blocks_total",
			Help: "Blocks dropped during degradation",
		}),
		behind: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dayplan_behind_schedule_total",
			Help: "Behind-schedule detections by current block type",
		}, []string{"activity_type"}),
		overdue: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dayplan_behind_overdue_minutes",
			Help:    "Minutes past the current block end at detection",
			Buckets: []float64{30, 45, 60, 90, 120, 180, 240},
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dayplan_block_transitions_total",
			Help: "Blocks completed or skipped by users",
		}, []string{"activity_type", "status"}),
	}

	var err error
	if s.plans, err = register(reg, s.plans); err != nil {
		return nil, err
	}
	if s.blocks, err = register(reg, s.blocks); err != nil {
		return nil, err
	}
	if s.duration, err = register(reg, s.duration); err != nil {
		return nil, err
	}
	if s.unplaced, err = register(reg, s.unplaced); err != nil {
		return nil, err
	}
	if s.meals, err = register(reg, s.meals); err != nil {
		return nil, err
	}
	if s.degraded, err = register(reg, s.degraded); err != nil {
		return nil, err
	}
	if s.dropped, err = register(reg, s.dropped); err != nil {
		return nil, err
	}
	if s.behind, err = register(reg, s.behind); err != nil {
		return nil, err
	}
	if s.overdue, err = register(reg, s.overdue); err != nil {
		return nil, err
	}
	if s.transitions, err = register(reg, s.transitions); err != nil {
		return nil, err
	}
	return s, nil
}

// register adds c to reg, reusing an already registered collector.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordPlanGenerated counts the plan and observes its size.
func (s *PromSink) RecordPlanGenerated(ev coremetrics.PlanGeneratedEvent) error {
	s.plans.WithLabelValues(string(ev.Energy), strconv.FormatBool(ev.TailPlan)).Inc()
	s.blocks.WithLabelValues("all").Observe(float64(ev.Blocks))
	s.blocks.WithLabelValues("skipped").Observe(float64(ev.Skipped))
	s.duration.Observe(ev.Duration.Seconds())
	s.unplaced.Add(float64(ev.Unplaced))
	return nil
}

// RecordMealPlacement counts a meal outcome. Skipped meals are labelled
// with their skip reason.
func (s *PromSink) RecordMealPlacement(ev coremetrics.MealPlacementEvent) error {
	reason := string(ev.Reason)
	if !ev.Placed {
		reason = ev.SkipReason
	}
	s.meals.WithLabelValues(ev.Meal, strconv.FormatBool(ev.Placed), reason).Inc()
	return nil
}

// RecordDegradation counts a degradation and its dropped blocks.
func (s *PromSink) RecordDegradation(ev coremetrics.DegradationEvent) error {
	s.degraded.Inc()
	s.dropped.Add(float64(ev.Dropped))
	return nil
}

// RecordBehindSchedule counts a detection.
func (s *PromSink) RecordBehindSchedule(ev coremetrics.BehindScheduleEvent) error {
	s.behind.WithLabelValues(string(ev.Type)).Inc()
	s.overdue.Observe(ev.Overdue.Minutes())
	return nil
}

// RecordBlockTransition counts a user block update.
func (s *PromSink) RecordBlockTransition(ev coremetrics.BlockTransitionEvent) error {
	s.transitions.WithLabelValues(string(ev.Type), string(ev.Status)).Inc()
	return nil
}
