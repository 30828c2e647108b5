package config

import (
	"fmt"
	"time"
)

// StoreConfig selects the plan store.
type StoreConfig struct {
	// Backend is "memory", "sqlite" or "postgres".
	Backend string `json:"backend"`
	// Path is the SQLite database file.
	Path string `json:"path"`
	// DSN is the Postgres connection string.
	DSN string `json:"dsn"`
}

// SetDefaults applies sane defaults.
func (c *StoreConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "sqlite"
	}
	if c.Backend == "sqlite" && c.Path == "" {
		c.Path = "dayplan.db"
	}
}

// Validate checks mandatory fields.
func (c StoreConfig) Validate() error {
	switch c.Backend {
	case "memory":
	case "sqlite":
		if c.Path == "" {
			return fmt.Errorf("path is required")
		}
	case "postgres":
		if c.DSN == "" {
			return fmt.Errorf("dsn is required")
		}
	default:
		return fmt.Errorf("unknown backend %s", c.Backend)
	}
	return nil
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Addr string `json:"addr"`
	// Token is the bearer token required by the API. Empty disables the check.
	Token string `json:"token"`
	// ShutdownSeconds bounds graceful shutdown.
	ShutdownSeconds int `json:"shutdown_seconds"`
}

// SetDefaults applies sane defaults.
func (c *HTTPConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.ShutdownSeconds <= 0 {
		c.ShutdownSeconds = 5
	}
}

// Validate checks mandatory fields.
func (c HTTPConfig) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr is required")
	}
	return nil
}

// ShutdownTimeout returns the graceful shutdown bound.
func (c HTTPConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownSeconds) * time.Second
}

// WatchConfig configures the behind-schedule watcher.
type WatchConfig struct {
	Disabled        bool `json:"disabled"`
	IntervalSeconds int  `json:"interval_seconds"`
}

// SetDefaults applies sane defaults.
func (c *WatchConfig) SetDefaults() {
	if c.IntervalSeconds <= 0 {
		c.IntervalSeconds = 60
	}
}

// Validate checks the interval.
func (c WatchConfig) Validate() error {
	if !c.Disabled && c.IntervalSeconds <= 0 {
		return fmt.Errorf("interval_seconds must be positive")
	}
	return nil
}

// Interval returns the tick period.
func (c WatchConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}
