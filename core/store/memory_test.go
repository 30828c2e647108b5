package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/dayplan/core/store"
	"github.com/kilianp07/dayplan/core/store/storetest"
)

func TestMemoryStoreConformance(t *testing.T) {
	storetest.Run(t, store.NewMemoryStore())
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.CreatePlan(ctx, storetest.Plan("p1", "alice")))

	got, err := s.GetPlan(ctx, "p1")
	require.NoError(t, err)
	got.Blocks[0].Name = "changed"
	got.Blocks[2].Metadata.PlacementReason = "mutated"

	again, err := s.GetPlan(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Morning Routine", again.Blocks[0].Name)
	assert.NotEqual(t, "mutated", string(again.Blocks[2].Metadata.PlacementReason))
}
