package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"

	corelogger "github.com/kilianp07/dayplan/core/logger"
)

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// NopLogger implements Logger with no-op methods.
type NopLogger = corelogger.Nop

// Options selects the logging backend and output.
type Options struct {
	// Backend is "zerolog" (default) or "logrus".
	Backend string `json:"backend"`
	// Level is one of debug, info, warn, error.
	Level string `json:"level"`
	// File enables rotating file output instead of stdout.
	File       string `json:"file"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

// SetDefaults fills zero values.
func (o *Options) SetDefaults() {
	if o.Backend == "" {
		o.Backend = "zerolog"
	}
	if o.Level == "" {
		o.Level = "info"
	}
	if o.MaxSizeMB == 0 {
		o.MaxSizeMB = 10
	}
	if o.MaxBackups == 0 {
		o.MaxBackups = 3
	}
	if o.MaxAgeDays == 0 {
		o.MaxAgeDays = 7
	}
}

// Validate checks backend and level names.
func (o Options) Validate() error {
	switch strings.ToLower(o.Backend) {
	case "", "zerolog", "logrus":
	default:
		return fmt.Errorf("unknown log backend %q", o.Backend)
	}
	switch strings.ToLower(o.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", o.Level)
	}
	return nil
}

var (
	mu      sync.RWMutex
	current = Options{Backend: "zerolog", Level: "info"}
	out     io.Writer = os.Stdout
	rotator *lumberjack.Logger
)

// Configure sets the options used by subsequent New calls.
func Configure(o Options) error {
	o.SetDefaults()
	if err := o.Validate(); err != nil {
		return err
	}
	mu.Lock()
	defer mu.Unlock()
	if rotator != nil {
		_ = rotator.Close()
		rotator = nil
	}
	out = os.Stdout
	if o.File != "" {
		rotator = &lumberjack.Logger{
			Filename:   o.File,
			MaxSize:    o.MaxSizeMB,
			MaxBackups: o.MaxBackups,
			MaxAge:     o.MaxAgeDays,
		}
		out = rotator
	}
	current = o
	return nil
}

// Close releases the rotating file, if any.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if rotator == nil {
		return nil
	}
	err := rotator.Close()
	rotator = nil
	out = os.Stdout
	return err
}

func settings() (Options, io.Writer) {
	mu.RLock()
	defer mu.RUnlock()
	return current, out
}

// New returns a Logger for the given component. The environment is detected via
// the APP_ENV variable.
func New(component string) Logger {
	o, w := settings()
	if strings.EqualFold(o.Backend, "logrus") {
		return newLogrusLogger(component, o.Level, w)
	}
	return newZerologLogger(component, o.Level, w)
}
