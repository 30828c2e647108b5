package journal

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/dayplan/core/events"
	"github.com/kilianp07/dayplan/core/model"
	"github.com/kilianp07/dayplan/internal/eventbus"
)

type memStore struct {
	mu   sync.Mutex
	recs []Record
}

func (m *memStore) Append(_ context.Context, r Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append(m.recs, r)
	return nil
}

func (m *memStore) Query(_ context.Context, q Query) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Record
	for _, r := range m.recs {
		if q.Match(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) Close() error { return nil }

func (m *memStore) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.recs)
}

func TestFromEvent(t *testing.T) {
	day := time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)
	gen := events.PlanGeneratedEvent{
		Plan: model.DailyPlan{ID: "p1", UserID: "u1", Date: day, Status: model.PlanActive,
			GeneratedAt: day.Add(7 * time.Hour), Blocks: make([]model.TimeBlock, 4)},
		Meals:    []events.MealOutcome{{Meal: "Breakfast", Placed: true}, {Meal: "Lunch"}},
		Unplaced: 1,
	}
	rec, ok := FromEvent(gen)
	require.True(t, ok)
	assert.Equal(t, KindGenerated, rec.Kind)
	assert.Equal(t, "2025-03-04", rec.Date)
	assert.Equal(t, map[string]int{"blocks": 4, "unplaced": 1, "meals": 1}, rec.Counts)

	rec, ok = FromEvent(events.BehindScheduleEvent{PlanID: "p1", UserID: "u1",
		Block: model.TimeBlock{ID: "b2", ActivityType: model.ActivityTask}, Overdue: time.Hour})
	require.True(t, ok)
	assert.Equal(t, KindBehindSchedule, rec.Kind)
	assert.Equal(t, "b2", rec.Block.ID)

	_, ok = FromEvent("noise")
	assert.False(t, ok)
}

func TestStartRecorder(t *testing.T) {
	bus := eventbus.New()
	st := &memStore{}
	ctx, cancel := context.WithCancel(context.Background())
	done := StartRecorder(ctx, bus, st, nil)

	now := time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC)
	bus.Publish(events.PlanDegradedEvent{PlanID: "p1", UserID: "u1", Dropped: 2, Time: now})
	bus.Publish(events.BlockUpdatedEvent{PlanID: "p1", Block: model.TimeBlock{ID: "b1", Status: model.BlockSkipped}, Time: now})
	bus.Publish(42)

	assert.Eventually(t, func() bool { return st.len() == 2 }, time.Second, 10*time.Millisecond)
	cancel()
	<-done
	bus.Close()

	recs, _ := st.Query(context.Background(), Query{Kind: KindDegraded})
	require.Len(t, recs, 1)
	assert.Equal(t, 2, recs[0].Counts["dropped"])
}

func TestStartRecorderStopsOnBusClose(t *testing.T) {
	bus := eventbus.New()
	done := StartRecorder(context.Background(), bus, &memStore{}, nil)
	bus.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("recorder did not stop")
	}
}
