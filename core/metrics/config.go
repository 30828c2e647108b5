package metrics

import "github.com/kilianp07/dayplan/core/factory"

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks" yaml:"sinks"`
	// Path is where the Prometheus handler is mounted on the HTTP server.
	Path string `json:"path" yaml:"path"`
}

// SetDefaults applies default values.
func (c *Config) SetDefaults() {
	if c.Path == "" {
		c.Path = "/metrics"
	}
}
