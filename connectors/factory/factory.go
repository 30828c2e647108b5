// Package factory builds provider bundles from configuration.
package factory

import (
	"fmt"

	"github.com/kilianp07/dayplan/connectors"
	"github.com/kilianp07/dayplan/connectors/calendar"
	"github.com/kilianp07/dayplan/connectors/dayfile"
	"github.com/kilianp07/dayplan/connectors/exits"
	corefactory "github.com/kilianp07/dayplan/core/factory"
	"github.com/kilianp07/dayplan/core/provider"
)

const (
	IDCalendar = "calendar"
	IDDayFile  = "dayfile"
	IDStatic   = "static"
)

var registry = corefactory.NewRegistry[connectors.Providers]()

func init() {
	_ = registry.Register(IDCalendar, func(raw map[string]any) (connectors.Providers, error) {
		var cfg calendar.Config
		if err := corefactory.Decode(raw, &cfg); err != nil {
			return connectors.Providers{}, err
		}
		c, err := calendar.New(cfg)
		if err != nil {
			return connectors.Providers{}, err
		}
		return connectors.Providers{Commitments: c, Tasks: c, Routines: c}, nil
	})
	_ = registry.Register(IDDayFile, func(raw map[string]any) (connectors.Providers, error) {
		var cfg struct {
			Path string `json:"path"`
		}
		if err := corefactory.Decode(raw, &cfg); err != nil {
			return connectors.Providers{}, err
		}
		d, err := dayfile.Load(cfg.Path)
		if err != nil {
			return connectors.Providers{}, err
		}
		return connectors.FromStatic(d.Data), nil
	})
	_ = registry.Register(IDStatic, func(map[string]any) (connectors.Providers, error) {
		return connectors.FromStatic(&provider.Static{}), nil
	})
}

// Register adds a provider source.
func Register(name string, f corefactory.Factory[connectors.Providers]) error {
	return registry.Register(name, f)
}

// Types lists the registered provider sources.
func Types() []string { return registry.Types() }

// NewProviders builds the providers for cfg. When exitCfg is non-nil its
// calculator replaces whatever exit source the provider bundle carries.
func NewProviders(cfg corefactory.ModuleConfig, exitCfg *exits.Config) (connectors.Providers, error) {
	if cfg.Type == "" {
		cfg.Type = IDStatic
	}
	p, err := registry.Create(cfg)
	if err != nil {
		return connectors.Providers{}, fmt.Errorf("providers: %w", err)
	}
	if exitCfg != nil {
		calc, err := exits.New(*exitCfg)
		if err != nil {
			return connectors.Providers{}, err
		}
		p.Exits = calc
	}
	return p, nil
}
