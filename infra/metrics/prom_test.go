package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/kilianp07/dayplan/core/metrics"
	"github.com/kilianp07/dayplan/core/model"
)

func TestPromSinkRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, sink.RecordPlanGenerated(coremetrics.PlanGeneratedEvent{
		Energy: model.EnergyLow, Blocks: 10, Unplaced: 2, TailPlan: true, Duration: time.Millisecond,
	}))
	require.NoError(t, sink.RecordMealPlacement(coremetrics.MealPlacementEvent{Meal: "Lunch", Placed: true, Reason: model.PlacementDefault}))
	require.NoError(t, sink.RecordMealPlacement(coremetrics.MealPlacementEvent{Meal: "Breakfast", SkipReason: model.SkipPastMealWindow}))
	require.NoError(t, sink.RecordDegradation(coremetrics.DegradationEvent{Dropped: 3}))
	require.NoError(t, sink.RecordBehindSchedule(coremetrics.BehindScheduleEvent{Type: model.ActivityTask, Overdue: time.Hour}))
	require.NoError(t, sink.RecordBlockTransition(coremetrics.BlockTransitionEvent{Type: model.ActivityMeal, Status: model.BlockCompleted}))

	assert.Equal(t, 1.0, testutil.ToFloat64(sink.plans.WithLabelValues("low", "true")))
	assert.Equal(t, 2.0, testutil.ToFloat64(sink.unplaced))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.meals.WithLabelValues("Lunch", "true", "default")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.meals.WithLabelValues("Breakfast", "false", model.SkipPastMealWindow)))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.degraded))
	assert.Equal(t, 3.0, testutil.ToFloat64(sink.dropped))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.behind.WithLabelValues("task")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.transitions.WithLabelValues("meal", "completed")))
	assert.Equal(t, 1, testutil.CollectAndCount(sink.overdue))
}

func TestPromSinkReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	second, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, first.RecordDegradation(coremetrics.DegradationEvent{}))
	require.NoError(t, second.RecordDegradation(coremetrics.DegradationEvent{}))
	assert.Equal(t, 2.0, testutil.ToFloat64(first.degraded))
}

func TestRegisteredSinkFactories(t *testing.T) {
	sink, err := coremetrics.NewMetricsSink(nil)
	require.NoError(t, err)
	assert.IsType(t, coremetrics.NopSink{}, sink)
	assert.Contains(t, coremetrics.SinkTypes(), "prometheus")
	assert.Contains(t, coremetrics.SinkTypes(), "influx")
}
