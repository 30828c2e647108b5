// Package exits computes when to leave for commitments held away from the
// user's current location, from configured travel times.
package exits

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kilianp07/dayplan/core/model"
	"github.com/kilianp07/dayplan/core/provider"
)

// Config describes travel assumptions. Routes maps a commitment location to
// its travel time in minutes and overrides TravelMinutes.
type Config struct {
	TravelMinutes      int            `json:"travel_minutes"`
	PreparationMinutes int            `json:"preparation_minutes"`
	Method             string         `json:"method"`
	Routes             map[string]int `json:"routes"`
}

// SetDefaults applies default values.
func (c *Config) SetDefaults() {
	if c.TravelMinutes <= 0 {
		c.TravelMinutes = 20
	}
	if c.PreparationMinutes < 0 {
		c.PreparationMinutes = 0
	}
	if c.Method == "" {
		c.Method = "car"
	}
}

// Validate rejects negative route durations.
func (c Config) Validate() error {
	for loc, m := range c.Routes {
		if m < 0 {
			return fmt.Errorf("exits: negative travel time for %q", loc)
		}
	}
	return nil
}

// Calculator implements provider.ExitTimeCalculator.
type Calculator struct {
	cfg    Config
	routes map[string]int
}

// New returns a Calculator for cfg.
func New(cfg Config) (*Calculator, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	routes := make(map[string]int, len(cfg.Routes))
	for k, v := range cfg.Routes {
		routes[normalize(k)] = v
	}
	return &Calculator{cfg: cfg, routes: routes}, nil
}

// ExitTimes returns one exit time per commitment that has a location other
// than the current one. The travel block spans
// [exit, start - preparation].
func (c *Calculator) ExitTimes(ctx context.Context, commitments []model.Commitment, location string) ([]model.ExitTime, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	here := normalize(location)
	var out []model.ExitTime
	for _, cm := range commitments {
		there := normalize(cm.Location)
		if there == "" || there == here {
			continue
		}
		travel, ok := c.routes[there]
		if !ok {
			travel = c.cfg.TravelMinutes
		}
		if travel == 0 {
			continue
		}
		prep := c.cfg.PreparationMinutes
		out = append(out, model.ExitTime{
			CommitmentID:           cm.ID,
			ExitTime:               cm.StartTime.Add(-time.Duration(travel+prep) * time.Minute),
			TravelDurationMinutes:  travel,
			PreparationTimeMinutes: prep,
			TravelMethod:           c.cfg.Method,
		})
	}
	return out, nil
}

func normalize(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

var _ provider.ExitTimeCalculator = (*Calculator)(nil)
