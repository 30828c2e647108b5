package dayfile

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/dayplan/core/model"
)

const sample = `
user_id: u1
date: 2025-03-04
wake: "07:00"
sleep: "23:00"
energy: high
location: home
commitments:
  - {id: c1, title: Standup, start: "10:00", end: "11:00", location: office}
tasks:
  - {id: t1, title: Report, estimated_duration_minutes: 45}
  - {id: t2, title: Inbox}
morning_routine: {id: r1, name: Stretch, estimated_duration_minutes: 20}
exits:
  - {commitment_id: c1, exit: "09:20", travel_minutes: 30, preparation_minutes: 10, method: bike}
`

func TestParse(t *testing.T) {
	d, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	day := time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "u1", d.UserID)
	assert.Equal(t, day, d.Date)
	assert.Equal(t, day.Add(7*time.Hour), d.Wake)
	assert.Equal(t, day.Add(23*time.Hour), d.Sleep)
	assert.Equal(t, model.EnergyHigh, d.Energy)

	cms, err := d.Data.Commitments(context.Background(), "u1", day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, cms, 1)
	assert.Equal(t, day.Add(10*time.Hour), cms[0].StartTime)

	tasks, err := d.Data.PendingTasks(context.Background(), "u1", 10)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, 45, tasks[0].EstimatedDurationMinutes)

	r, err := d.Data.Routine(context.Background(), "u1", model.RoutineMorning)
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, 20, r.EstimatedDurationMinutes)

	exits, err := d.Data.ExitTimes(context.Background(), cms, "home")
	require.NoError(t, err)
	require.Len(t, exits, 1)
	assert.Equal(t, day.Add(9*time.Hour+20*time.Minute), exits[0].ExitTime)

	req := d.Request(true)
	assert.True(t, req.Replace)
	assert.Equal(t, "home", req.Location)
}

func TestParseTimezone(t *testing.T) {
	d, err := Parse(strings.NewReader("user_id: u1\ndate: 2025-03-04\ntimezone: America/New_York\nwake: \"06:30\"\nsleep: \"22:00\"\n"))
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", d.Wake.Location().String())
	assert.Equal(t, 6, d.Wake.Hour())
	assert.Equal(t, model.EnergyMedium, d.Energy)
}

func TestParseErrors(t *testing.T) {
	cases := map[string]string{
		"empty":      "",
		"no user":    "date: 2025-03-04\nwake: \"07:00\"\nsleep: \"23:00\"\n",
		"bad date":   "user_id: u\ndate: tomorrow\nwake: \"07:00\"\nsleep: \"23:00\"\n",
		"bad clock":  "user_id: u\ndate: 2025-03-04\nwake: \"7am\"\nsleep: \"23:00\"\n",
		"bad energy": "user_id: u\ndate: 2025-03-04\nwake: \"07:00\"\nsleep: \"23:00\"\nenergy: wired\n",
		"inverted":   "user_id: u\ndate: 2025-03-04\nwake: \"07:00\"\nsleep: \"23:00\"\ncommitments:\n  - {id: c, start: \"11:00\", end: \"10:00\"}\n",
		"bad tz":     "user_id: u\ndate: 2025-03-04\ntimezone: Mars/Base\nwake: \"07:00\"\nsleep: \"23:00\"\n",
		"bad exit":   "user_id: u\ndate: 2025-03-04\nwake: \"07:00\"\nsleep: \"23:00\"\nexits:\n  - {commitment_id: c, exit: \"x\"}\n",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(in))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "day.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))
	d, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "u1", d.UserID)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
