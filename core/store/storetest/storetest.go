// Package storetest holds a conformance suite every store.PlanStore
// implementation runs from its own tests.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/dayplan/core/model"
	"github.com/kilianp07/dayplan/core/store"
)

// Day is the date used by the fixtures.
var Day = time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)

func at(h, m int) time.Time {
	return Day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

// Plan returns a small plan fixture for user on Day.
func Plan(id, user string) model.DailyPlan {
	blocks := []model.TimeBlock{
		{ID: id + "-b1", PlanID: id, StartTime: at(7, 0), EndTime: at(7, 30), ActivityType: model.ActivityRoutine, Name: "Morning Routine", Status: model.BlockPending},
		{ID: id + "-b2", PlanID: id, StartTime: at(7, 30), EndTime: at(7, 35), ActivityType: model.ActivityBuffer, Name: "Buffer", Status: model.BlockPending},
		{ID: id + "-b3", PlanID: id, StartTime: at(9, 30), EndTime: at(9, 45), ActivityType: model.ActivityMeal, Name: "Breakfast", Status: model.BlockPending,
			Metadata: &model.BlockMetadata{TargetTime: at(9, 30), PlacementReason: model.PlacementDefault}},
		{ID: id + "-b4", PlanID: id, StartTime: at(10, 0), EndTime: at(11, 0), ActivityType: model.ActivityCommitment, Name: "Dentist", SourceID: "c1", Fixed: true, Status: model.BlockPending},
		{ID: id + "-b5", PlanID: id, StartTime: at(12, 0), EndTime: at(12, 30), ActivityType: model.ActivityMeal, Name: "Lunch", Status: model.BlockSkipped, SkipReason: model.SkipNoValidSlot},
	}
	model.Renumber(blocks)
	return model.DailyPlan{
		ID:          id,
		UserID:      user,
		Date:        Day,
		WakeTime:    at(7, 0),
		SleepTime:   at(23, 0),
		EnergyState: model.EnergyMedium,
		Status:      model.PlanActive,
		GeneratedAt: at(6, 58),
		PlanStart:   at(7, 0),
		Blocks:      blocks,
		ExitTimes: []model.ExitTime{
			{CommitmentID: "c1", ExitTime: at(9, 20), TravelDurationMinutes: 30, PreparationTimeMinutes: 10, TravelMethod: "bike"},
		},
	}
}

// AssertPlanEqual compares plans using time equality rather than struct
// equality, since stores may return times in another location.
func AssertPlanEqual(t *testing.T, want, got model.DailyPlan) {
	t.Helper()
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.UserID, got.UserID)
	assert.Equal(t, want.DateKey(), got.DateKey())
	assert.True(t, want.WakeTime.Equal(got.WakeTime), "wake %s != %s", want.WakeTime, got.WakeTime)
	assert.True(t, want.SleepTime.Equal(got.SleepTime), "sleep")
	assert.True(t, want.PlanStart.Equal(got.PlanStart), "plan start")
	assert.True(t, want.GeneratedAt.Equal(got.GeneratedAt), "generated at")
	assert.Equal(t, want.GeneratedAfterNow, got.GeneratedAfterNow)
	assert.Equal(t, want.EnergyState, got.EnergyState)
	assert.Equal(t, want.Status, got.Status)

	require.Len(t, got.Blocks, len(want.Blocks))
	for i := range want.Blocks {
		w, g := want.Blocks[i], got.Blocks[i]
		assert.Equal(t, w.ID, g.ID)
		assert.Equal(t, w.PlanID, g.PlanID)
		assert.True(t, w.StartTime.Equal(g.StartTime), "%s start", w.ID)
		assert.True(t, w.EndTime.Equal(g.EndTime), "%s end", w.ID)
		assert.Equal(t, w.ActivityType, g.ActivityType)
		assert.Equal(t, w.Name, g.Name)
		assert.Equal(t, w.SourceID, g.SourceID)
		assert.Equal(t, w.Fixed, g.Fixed)
		assert.Equal(t, w.SequenceOrder, g.SequenceOrder)
		assert.Equal(t, w.Status, g.Status)
		assert.Equal(t, w.SkipReason, g.SkipReason)
		if w.Metadata == nil {
			assert.Nil(t, g.Metadata, w.ID)
		} else if assert.NotNil(t, g.Metadata, w.ID) {
			assert.True(t, w.Metadata.TargetTime.Equal(g.Metadata.TargetTime))
			assert.Equal(t, w.Metadata.PlacementReason, g.Metadata.PlacementReason)
		}
	}

	require.Len(t, got.ExitTimes, len(want.ExitTimes))
	for i := range want.ExitTimes {
		assert.Equal(t, want.ExitTimes[i].CommitmentID, got.ExitTimes[i].CommitmentID)
		assert.True(t, want.ExitTimes[i].ExitTime.Equal(got.ExitTimes[i].ExitTime))
		assert.Equal(t, want.ExitTimes[i].TravelMethod, got.ExitTimes[i].TravelMethod)
		assert.Equal(t, want.ExitTimes[i].PreparationTimeMinutes, got.ExitTimes[i].PreparationTimeMinutes)
	}
}

// Run exercises s against the PlanStore contract. s must be empty.
func Run(t *testing.T, s store.PlanStore) {
	ctx := context.Background()

	t.Run("CreateAndGet", func(t *testing.T) {
		p := Plan("p1", "alice")
		require.NoError(t, s.CreatePlan(ctx, p))
		got, err := s.GetPlan(ctx, "p1")
		require.NoError(t, err)
		AssertPlanEqual(t, p, got)

		found, err := s.FindPlan(ctx, "alice", Day)
		require.NoError(t, err)
		assert.Equal(t, "p1", found.ID)
	})

	t.Run("DuplicateUserDay", func(t *testing.T) {
		err := s.CreatePlan(ctx, Plan("p1-dup", "alice"))
		assert.ErrorIs(t, err, store.ErrPlanExists)
		_, err = s.GetPlan(ctx, "p1-dup")
		assert.ErrorIs(t, err, store.ErrNotFound, "failed create leaves nothing behind")
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := s.GetPlan(ctx, "missing")
		assert.ErrorIs(t, err, store.ErrNotFound)
		_, err = s.FindPlan(ctx, "bob", Day)
		assert.ErrorIs(t, err, store.ErrNotFound)
		assert.ErrorIs(t, s.UpdatePlanStatus(ctx, "missing", model.PlanDegraded), store.ErrNotFound)
		assert.ErrorIs(t, s.DeletePlan(ctx, "missing"), store.ErrNotFound)
	})

	t.Run("SaveAndDeleteBlocks", func(t *testing.T) {
		p, err := s.GetPlan(ctx, "p1")
		require.NoError(t, err)

		changed := p.Blocks[0]
		changed.Status = model.BlockCompleted
		added := model.TimeBlock{ID: "p1-b6", StartTime: at(11, 0), EndTime: at(11, 5), ActivityType: model.ActivityBuffer, Name: "Buffer", SequenceOrder: 6, Status: model.BlockPending}
		require.NoError(t, s.SaveBlocks(ctx, "p1", []model.TimeBlock{changed, added}))
		require.NoError(t, s.DeleteBlocks(ctx, "p1", []string{"p1-b2"}))

		got, err := s.GetPlan(ctx, "p1")
		require.NoError(t, err)
		require.Len(t, got.Blocks, 5)
		assert.Equal(t, model.BlockCompleted, got.Blocks[0].Status)
		last := got.Blocks[len(got.Blocks)-1]
		assert.Equal(t, "p1-b6", last.ID)
		assert.Equal(t, "p1", last.PlanID)
		_, ok := got.Block("p1-b2")
		assert.False(t, ok)
	})

	t.Run("StatusAndList", func(t *testing.T) {
		require.NoError(t, s.UpdatePlanStatus(ctx, "p1", model.PlanDegraded))
		other := Plan("p2", "bob")
		require.NoError(t, s.CreatePlan(ctx, other))

		all, err := s.ListPlans(ctx, store.Filter{})
		require.NoError(t, err)
		assert.Len(t, all, 2)

		degraded, err := s.ListPlans(ctx, store.Filter{Status: model.PlanDegraded})
		require.NoError(t, err)
		require.Len(t, degraded, 1)
		assert.Equal(t, "p1", degraded[0].ID)
		assert.NotEmpty(t, degraded[0].Blocks)

		bobs, err := s.ListPlans(ctx, store.Filter{UserID: "bob", Date: Day})
		require.NoError(t, err)
		require.Len(t, bobs, 1)
		assert.Equal(t, "p2", bobs[0].ID)

		none, err := s.ListPlans(ctx, store.Filter{Date: Day.AddDate(0, 0, 1)})
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, s.DeletePlan(ctx, "p2"))
		_, err := s.GetPlan(ctx, "p2")
		assert.ErrorIs(t, err, store.ErrNotFound)
		require.NoError(t, s.CreatePlan(ctx, Plan("p3", "bob")), "user/day free again after delete")
	})
	t.Run("ReplaceConflictKeepsOldPlan", func(t *testing.T) {
		// p3 already belongs to bob, so the insert half must fail.
		err := s.ReplacePlan(ctx, "p1", Plan("p3", "alice"))
		assert.ErrorIs(t, err, store.ErrPlanExists)
		got, err := s.FindPlan(ctx, "alice", Day)
		require.NoError(t, err)
		assert.Equal(t, "p1", got.ID)
	})

	t.Run("Replace", func(t *testing.T) {
		next := Plan("p4", "alice")
		require.NoError(t, s.ReplacePlan(ctx, "p1", next))
		_, err := s.GetPlan(ctx, "p1")
		assert.ErrorIs(t, err, store.ErrNotFound)
		got, err := s.FindPlan(ctx, "alice", Day)
		require.NoError(t, err)
		AssertPlanEqual(t, next, got)

		require.NoError(t, s.ReplacePlan(ctx, "gone", Plan("p5", "carol")), "missing old plan")
		_, err = s.GetPlan(ctx, "p5")
		assert.NoError(t, err)
	})

	t.Run("ApplyDegradation", func(t *testing.T) {
		p, err := s.GetPlan(ctx, "p4")
		require.NoError(t, err)
		dropped := p.Blocks[0]
		dropped.Status = model.BlockSkipped
		dropped.SkipReason = model.SkipDroppedDegraded
		fresh := model.TimeBlock{ID: "p4-b7", StartTime: at(9, 45), EndTime: at(9, 50), ActivityType: model.ActivityBuffer, Name: "Buffer", SequenceOrder: 4, Status: model.BlockPending}

		require.NoError(t, s.ApplyDegradation(ctx, "p4", []string{"p4-b2"}, []model.TimeBlock{dropped, fresh}))
		got, err := s.GetPlan(ctx, "p4")
		require.NoError(t, err)
		assert.Equal(t, model.PlanDegraded, got.Status)
		require.Len(t, got.Blocks, 5)
		_, ok := got.Block("p4-b2")
		assert.False(t, ok)
		b1, ok := got.Block("p4-b1")
		require.True(t, ok)
		assert.Equal(t, model.BlockSkipped, b1.Status)
		assert.Equal(t, model.SkipDroppedDegraded, b1.SkipReason)
		_, ok = got.Block("p4-b7")
		assert.True(t, ok)

		err = s.ApplyDegradation(ctx, "missing", nil, nil)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}
