// Package scenarios replays YAML-described days against the plan manager
// and checks the resulting plans.
package scenarios

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/dayplan/connectors/dayfile"
)

// Step is an action applied to the generated plan at a given time.
type Step struct {
	At string `yaml:"at"`
	// Action is one of degrade, complete, skip or behind.
	Action string `yaml:"action"`
	Block  string `yaml:"block,omitempty"`
	Reason string `yaml:"reason,omitempty"`
	// Behind is the expected answer of a behind step.
	Behind *bool `yaml:"behind,omitempty"`
}

// Expected describes the final plan.
type Expected struct {
	Status      string `yaml:"status"`
	MealsPlaced *int   `yaml:"meals_placed,omitempty"`
	TailPlan    bool   `yaml:"tail_plan"`
	// Blocks lists block names that must be present.
	Blocks []string `yaml:"blocks,omitempty"`
	// Skipped maps block names to their expected skip reason.
	Skipped map[string]string `yaml:"skipped,omitempty"`
}

type Scenario struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description,omitempty"`
	Now         string    `yaml:"now"`
	Day         yaml.Node `yaml:"day"`
	Steps       []Step    `yaml:"steps,omitempty"`
	Expected    Expected  `yaml:"expected"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	if sc.Name == "" {
		return nil, fmt.Errorf("%s: name is required", path)
	}
	return &sc, nil
}

// DayFile decodes the embedded day description.
func (s *Scenario) DayFile() (*dayfile.Day, error) {
	b, err := yaml.Marshal(&s.Day)
	if err != nil {
		return nil, err
	}
	return dayfile.Parse(bytes.NewReader(b))
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
