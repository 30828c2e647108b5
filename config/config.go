// Package config loads the service configuration from a YAML or JSON file
// with environment overrides.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/dayplan/connectors/exits"
	"github.com/kilianp07/dayplan/core/factory"
	"github.com/kilianp07/dayplan/core/journal"
	"github.com/kilianp07/dayplan/core/metrics"
	"github.com/kilianp07/dayplan/core/planner"
	"github.com/kilianp07/dayplan/infra/logger"
	"github.com/kilianp07/dayplan/infra/mqtt"
)

// EnvPrefix marks environment variables that override file settings.
// DAYPLAN_MQTT__BROKER sets mqtt.broker.
const EnvPrefix = "DAYPLAN_"

type Config struct {
	Planner  planner.Config       `json:"planner"`
	Store    StoreConfig          `json:"store"`
	Metrics  metrics.Config       `json:"metrics"`
	Logging  logger.Options       `json:"logging"`
	Journal  journal.Config       `json:"journal"`
	MQTT     mqtt.Config          `json:"mqtt"`
	Sentry   SentryConfig         `json:"sentry"`
	HTTP     HTTPConfig           `json:"http"`
	Watch    WatchConfig          `json:"watch"`
	Calendar factory.ModuleConfig `json:"calendar"`
	// Exit enables the travel-time calculator when set.
	Exit *exits.Config `json:"exit"`
}

// Default returns a configuration with every section defaulted.
func Default() *Config {
	var cfg Config
	cfg.SetDefaults()
	return &cfg
}

// SetDefaults applies the defaults of every section.
func (c *Config) SetDefaults() {
	c.Planner.SetDefaults()
	c.Store.SetDefaults()
	c.Metrics.SetDefaults()
	c.Logging.SetDefaults()
	c.Journal.SetDefaults()
	c.HTTP.SetDefaults()
	c.Watch.SetDefaults()
	if c.Exit != nil {
		c.Exit.SetDefaults()
	}
}

// Validate checks every section.
func (c *Config) Validate() error {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"planner", c.Planner.Validate},
		{"store", c.Store.Validate},
		{"logging", c.Logging.Validate},
		{"journal", c.Journal.Validate},
		{"http", c.HTTP.Validate},
		{"watch", c.Watch.Validate},
	}
	if c.Exit != nil {
		checks = append(checks, struct {
			name string
			fn   func() error
		}{"exit", c.Exit.Validate})
	}
	for _, ch := range checks {
		if err := ch.fn(); err != nil {
			return fmt.Errorf("%s: %w", ch.name, err)
		}
	}
	return nil
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	// Optional environment overrides
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
