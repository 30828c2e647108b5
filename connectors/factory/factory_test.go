package factory

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/dayplan/connectors/calendar"
	"github.com/kilianp07/dayplan/connectors/exits"
	corefactory "github.com/kilianp07/dayplan/core/factory"
	"github.com/kilianp07/dayplan/core/provider"
)

func TestNewProviders(t *testing.T) {
	dayPath := filepath.Join(t.TempDir(), "day.yaml")
	require.NoError(t, os.WriteFile(dayPath, []byte("user_id: u\ndate: 2025-03-04\nwake: \"07:00\"\nsleep: \"23:00\"\n"), 0o644))

	tests := []struct {
		name        string
		cfg         corefactory.ModuleConfig
		expectedErr bool
	}{
		{"default", corefactory.ModuleConfig{}, false},
		{"calendar", corefactory.ModuleConfig{Type: IDCalendar, Conf: map[string]any{"base_url": "http://cal.local", "timeout_seconds": "5"}}, false},
		{"calendar without url", corefactory.ModuleConfig{Type: IDCalendar}, true},
		{"dayfile", corefactory.ModuleConfig{Type: IDDayFile, Conf: map[string]any{"path": dayPath}}, false},
		{"dayfile missing", corefactory.ModuleConfig{Type: IDDayFile, Conf: map[string]any{"path": "/nope.yaml"}}, true},
		{"unknown", corefactory.ModuleConfig{Type: "carrier_pigeon"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProviders(tt.cfg, nil)
			if tt.expectedErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, p.Commitments)
			assert.NotNil(t, p.Tasks)
			assert.NotNil(t, p.Routines)
		})
	}
}

func TestNewProvidersKindsAndExits(t *testing.T) {
	p, err := NewProviders(corefactory.ModuleConfig{Type: IDCalendar, Conf: map[string]any{"base_url": "http://cal.local"}}, &exits.Config{TravelMinutes: 15})
	require.NoError(t, err)
	assert.IsType(t, &calendar.Client{}, p.Commitments)
	assert.IsType(t, &exits.Calculator{}, p.Exits)

	p, err = NewProviders(corefactory.ModuleConfig{}, nil)
	require.NoError(t, err)
	assert.IsType(t, &provider.Static{}, p.Exits)

	assert.Contains(t, Types(), IDDayFile)
}
