package provider

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/dayplan/core/model"
)

func TestStaticProvider(t *testing.T) {
	day := time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)
	s := &Static{
		CommitmentList: []model.Commitment{
			{ID: "c1", StartTime: day.Add(9 * time.Hour), EndTime: day.Add(10 * time.Hour)},
			{ID: "c2", StartTime: day.Add(33 * time.Hour), EndTime: day.Add(34 * time.Hour)},
		},
		Tasks:   []model.Task{{ID: "t1"}, {ID: "t2"}, {ID: "t3"}},
		Morning: &model.Routine{ID: "m"},
		Exits:   []model.ExitTime{{CommitmentID: "c1"}, {CommitmentID: "c2"}},
	}
	ctx := context.Background()

	cs, err := s.Commitments(ctx, "u", day, day.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, cs, 1)
	assert.Equal(t, "c1", cs[0].ID)

	tasks, err := s.PendingTasks(ctx, "u", 2)
	require.NoError(t, err)
	assert.Len(t, tasks, 2)

	r, err := s.Routine(ctx, "u", model.RoutineMorning)
	require.NoError(t, err)
	assert.Equal(t, "m", r.ID)
	r, err = s.Routine(ctx, "u", model.RoutineEvening)
	require.NoError(t, err)
	assert.Nil(t, r)

	exits, err := s.ExitTimes(ctx, cs, "home")
	require.NoError(t, err)
	require.Len(t, exits, 1)
	assert.Equal(t, "c1", exits[0].CommitmentID)
}
