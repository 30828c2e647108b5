package cmd

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/dayplan/config"
	"github.com/kilianp07/dayplan/connectors/dayfile"
	"github.com/kilianp07/dayplan/connectors/exits"
	"github.com/kilianp07/dayplan/core/model"
)

const dayYAML = `
user_id: u1
date: 2025-03-04
wake: "07:00"
sleep: "23:00"
energy: medium
location: home
commitments:
  - {id: c1, title: Standup, start: "10:00", end: "11:00", location: office}
tasks:
  - {id: t1, title: Report, estimated_duration_minutes: 45}
`

func writeDay(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "day.yaml")
	require.NoError(t, os.WriteFile(path, []byte(dayYAML), 0o600))
	return path
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestGenerateTable(t *testing.T) {
	out := execute(t, "generate", "--day", writeDay(t), "--now", "2025-03-04T06:00:00Z", "--format", "table")
	assert.Contains(t, out, "user u1")
	assert.Contains(t, out, "2025-03-04")
	assert.Contains(t, out, "Standup")
	assert.Contains(t, out, "Report")
}

func TestGenerateCSV(t *testing.T) {
	out := execute(t, "generate", "--day", writeDay(t), "--now", "2025-03-04T06:00:00Z", "--format", "csv")
	rows, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Greater(t, len(rows), 1)
	assert.Equal(t, "id", rows[0][0])
}

func TestGenerateDayUsesExitCalculator(t *testing.T) {
	day, err := dayfile.Parse(strings.NewReader(dayYAML))
	require.NoError(t, err)
	cfg := config.Default()
	cfg.Exit = &exits.Config{TravelMinutes: 25}
	cfg.Exit.SetDefaults()

	plan, err := generateDay(context.Background(), cfg, day, "2025-03-04T06:00:00Z")
	require.NoError(t, err)
	require.Len(t, plan.ExitTimes, 1)
	assert.Equal(t, "c1", plan.ExitTimes[0].CommitmentID)
	assert.Equal(t, 25, plan.ExitTimes[0].TravelDurationMinutes)

	var travel bool
	for _, b := range plan.Blocks {
		if b.ActivityType == model.ActivityTravel {
			travel = true
		}
	}
	assert.True(t, travel)
}

func TestGenerateDayRejectsBadNow(t *testing.T) {
	day, err := dayfile.Parse(strings.NewReader(dayYAML))
	require.NoError(t, err)
	_, err = generateDay(context.Background(), config.Default(), day, "yesterday")
	assert.Error(t, err)
}
