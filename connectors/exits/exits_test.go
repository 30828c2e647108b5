package exits

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/dayplan/core/model"
)

func TestExitTimes(t *testing.T) {
	calc, err := New(Config{PreparationMinutes: 10, Routes: map[string]int{"Office": 30}})
	require.NoError(t, err)

	start := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)
	cms := []model.Commitment{
		{ID: "c1", StartTime: start, EndTime: start.Add(time.Hour), Location: " office "},
		{ID: "c2", StartTime: start.Add(3 * time.Hour), EndTime: start.Add(4 * time.Hour), Location: "Gym"},
		{ID: "c3", StartTime: start.Add(5 * time.Hour), EndTime: start.Add(6 * time.Hour), Location: "home"},
		{ID: "c4", StartTime: start.Add(7 * time.Hour), EndTime: start.Add(8 * time.Hour)},
	}
	got, err := calc.ExitTimes(context.Background(), cms, "Home")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "c1", got[0].CommitmentID)
	assert.Equal(t, time.Date(2025, 3, 4, 9, 20, 0, 0, time.UTC), got[0].ExitTime)
	assert.Equal(t, 30, got[0].TravelDurationMinutes)
	assert.Equal(t, "car", got[0].TravelMethod)

	assert.Equal(t, "c2", got[1].CommitmentID)
	assert.Equal(t, 20, got[1].TravelDurationMinutes)
	assert.Equal(t, start.Add(3*time.Hour-30*time.Minute), got[1].ExitTime)
}

func TestZeroRouteSkipped(t *testing.T) {
	calc, err := New(Config{Routes: map[string]int{"next door": 0}})
	require.NoError(t, err)
	got, err := calc.ExitTimes(context.Background(), []model.Commitment{{ID: "c1", Location: "next door"}}, "home")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestNegativeRouteRejected(t *testing.T) {
	_, err := New(Config{Routes: map[string]int{"x": -5}})
	assert.Error(t, err)
}
