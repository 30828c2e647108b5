package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/dayplan/core/model"
)

func TestSQLiteStorePersistQuery(t *testing.T) {
	st, err := NewSQLiteStore(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer func() { _ = st.Close() }()

	ctx := context.Background()
	now := time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC)
	rec := Record{
		Timestamp: now,
		Kind:      KindBlockUpdated,
		UserID:    "u1",
		PlanID:    "p1",
		Block:     &BlockRef{ID: "b1", Name: "Report", Type: model.ActivityTask, Status: model.BlockCompleted},
	}
	require.NoError(t, st.Append(ctx, rec))
	require.NoError(t, st.Append(ctx, Record{Timestamp: now.Add(time.Minute), Kind: KindDegraded, UserID: "u1", PlanID: "p1"}))
	require.NoError(t, st.Append(ctx, Record{Timestamp: now, Kind: KindGenerated, UserID: "u2", PlanID: "p2"}))

	out, err := st.Query(ctx, Query{PlanID: "p1"})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, KindBlockUpdated, out[0].Kind)
	require.NotNil(t, out[0].Block)
	assert.Equal(t, model.BlockCompleted, out[0].Block.Status)
	assert.True(t, out[0].Timestamp.Equal(now))

	out, err = st.Query(ctx, Query{Kind: KindGenerated, UserID: "u2"})
	require.NoError(t, err)
	assert.Len(t, out, 1)

	out, err = st.Query(ctx, Query{Start: now.Add(30 * time.Second)})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, KindDegraded, out[0].Kind)
}

func TestOpenBackends(t *testing.T) {
	dir := t.TempDir()

	st, err := Open(Config{Backend: "sqlite", Path: filepath.Join(dir, "j.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, st)
	require.NoError(t, st.Close())

	st, err = Open(Config{Path: filepath.Join(dir, "j.jsonl")})
	require.NoError(t, err)
	assert.IsType(t, &JSONLStore{}, st)
	require.NoError(t, st.Close())

	st, err = Open(Config{Backend: "none"})
	require.NoError(t, err)
	assert.Nil(t, st)

	_, err = Open(Config{Backend: "kafka"})
	assert.Error(t, err)
}
