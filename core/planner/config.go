package planner

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/dayplan/core/model"
)

// MealConfig describes the window and defaults of one daily meal.
type MealConfig struct {
	WindowStart     string `json:"window_start" yaml:"window_start"`
	WindowEnd       string `json:"window_end" yaml:"window_end"`
	DefaultTime     string `json:"default_time" yaml:"default_time"`
	DurationMinutes int    `json:"duration_minutes" yaml:"duration_minutes"`
}

// Config holds the tunable scheduling parameters. Zero values are replaced
// by the defaults in SetDefaults.
type Config struct {
	BufferMinutes            int `json:"buffer_minutes" yaml:"buffer_minutes"`
	PlanStartRoundingMinutes int `json:"plan_start_rounding_minutes" yaml:"plan_start_rounding_minutes"`
	BehindGraceMinutes       int `json:"behind_grace_minutes" yaml:"behind_grace_minutes"`

	DefaultTaskMinutes    int            `json:"default_task_minutes" yaml:"default_task_minutes"`
	MorningRoutineMinutes int            `json:"morning_routine_minutes" yaml:"morning_routine_minutes"`
	EveningRoutineMinutes int            `json:"evening_routine_minutes" yaml:"evening_routine_minutes"`
	EveningEarliest       string         `json:"evening_earliest" yaml:"evening_earliest"`
	TaskLimits            map[string]int `json:"task_limits" yaml:"task_limits"`

	MealSpacingMinutes    int    `json:"meal_spacing_minutes" yaml:"meal_spacing_minutes"`
	MealSearchMinutes     int    `json:"meal_search_minutes" yaml:"meal_search_minutes"`
	MealSearchStepMinutes int    `json:"meal_search_step_minutes" yaml:"meal_search_step_minutes"`
	BreakfastOffset       int    `json:"breakfast_offset_minutes" yaml:"breakfast_offset_minutes"`
	LateWakeAfter         string `json:"late_wake_after" yaml:"late_wake_after"`
	AnchorMealOffset      int    `json:"anchor_meal_offset_minutes" yaml:"anchor_meal_offset_minutes"`
	LunchAnchorCutoff     string `json:"lunch_anchor_cutoff" yaml:"lunch_anchor_cutoff"`
	LunchAnchorFallback   string `json:"lunch_anchor_fallback" yaml:"lunch_anchor_fallback"`
	DinnerAnchorCutoff    string `json:"dinner_anchor_cutoff" yaml:"dinner_anchor_cutoff"`

	Breakfast MealConfig `json:"breakfast" yaml:"breakfast"`
	Lunch     MealConfig `json:"lunch" yaml:"lunch"`
	Dinner    MealConfig `json:"dinner" yaml:"dinner"`
}

// DefaultConfig returns the stock scheduling parameters.
func DefaultConfig() Config {
	var c Config
	c.SetDefaults()
	return c
}

// SetDefaults fills every zero field.
func (c *Config) SetDefaults() {
	setInt(&c.BufferMinutes, 5)
	setInt(&c.PlanStartRoundingMinutes, 5)
	setInt(&c.BehindGraceMinutes, 30)
	setInt(&c.DefaultTaskMinutes, 60)
	setInt(&c.MorningRoutineMinutes, 30)
	setInt(&c.EveningRoutineMinutes, 20)
	setStr(&c.EveningEarliest, "18:00")
	if c.TaskLimits == nil {
		c.TaskLimits = map[string]int{}
	}
	for k, v := range map[string]int{"low": 1, "medium": 2, "high": 3} {
		if _, ok := c.TaskLimits[k]; !ok {
			c.TaskLimits[k] = v
		}
	}
	setInt(&c.MealSpacingMinutes, 180)
	setInt(&c.MealSearchMinutes, 30)
	setInt(&c.MealSearchStepMinutes, 5)
	setInt(&c.BreakfastOffset, 45)
	setStr(&c.LateWakeAfter, "09:00")
	setInt(&c.AnchorMealOffset, 30)
	setStr(&c.LunchAnchorCutoff, "12:00")
	setStr(&c.LunchAnchorFallback, "12:30")
	setStr(&c.DinnerAnchorCutoff, "15:00")
	c.Breakfast.setDefaults(MealConfig{WindowStart: "06:30", WindowEnd: "11:30", DefaultTime: "09:30", DurationMinutes: 15})
	c.Lunch.setDefaults(MealConfig{WindowStart: "11:30", WindowEnd: "15:30", DefaultTime: "13:00", DurationMinutes: 30})
	c.Dinner.setDefaults(MealConfig{WindowStart: "17:00", WindowEnd: "21:30", DefaultTime: "19:00", DurationMinutes: 45})
}

func (m *MealConfig) setDefaults(d MealConfig) {
	setStr(&m.WindowStart, d.WindowStart)
	setStr(&m.WindowEnd, d.WindowEnd)
	setStr(&m.DefaultTime, d.DefaultTime)
	setInt(&m.DurationMinutes, d.DurationMinutes)
}

func setInt(v *int, d int) {
	if *v == 0 {
		*v = d
	}
}

func setStr(v *string, d string) {
	if *v == "" {
		*v = d
	}
}

// Validate checks that the configuration compiles into Rules.
func (c Config) Validate() error {
	_, err := c.Rules()
	return err
}

// MealRule is the compiled form of MealConfig.
type MealRule struct {
	Kind        MealKind
	WindowStart Clock
	WindowEnd   Clock
	Default     Clock
	Duration    int
}

// Rules is the compiled, validated scheduling configuration used by the engine.
type Rules struct {
	Buffer            time.Duration
	PlanStartRounding time.Duration
	BehindGrace       time.Duration

	DefaultTaskMinutes    int
	MorningRoutineMinutes int
	EveningRoutineMinutes int
	EveningEarliest       Clock
	TaskLimits            map[model.EnergyState]int

	MealSpacing      time.Duration
	MealSearch       time.Duration
	MealSearchStep   time.Duration
	BreakfastOffset  time.Duration
	LateWakeAfter    Clock
	AnchorMealOffset time.Duration
	LunchCutoff      Clock
	LunchFallback    Clock
	DinnerCutoff     Clock

	Meals [mealCount]MealRule
}

// Rules compiles the configuration, applying defaults to a copy first.
func (c Config) Rules() (Rules, error) {
	c.TaskLimits = copyLimits(c.TaskLimits)
	c.SetDefaults()
	var (
		r   Rules
		err error
	)
	if c.BufferMinutes < 0 || c.MealSpacingMinutes < 0 || c.MealSearchMinutes < 0 || c.MealSearchStepMinutes < 0 {
		return r, fmt.Errorf("durations must not be negative")
	}
	r.Buffer = minutes(c.BufferMinutes)
	r.PlanStartRounding = minutes(c.PlanStartRoundingMinutes)
	r.BehindGrace = minutes(c.BehindGraceMinutes)
	r.DefaultTaskMinutes = c.DefaultTaskMinutes
	r.MorningRoutineMinutes = c.MorningRoutineMinutes
	r.EveningRoutineMinutes = c.EveningRoutineMinutes
	r.MealSpacing = minutes(c.MealSpacingMinutes)
	r.MealSearch = minutes(c.MealSearchMinutes)
	r.MealSearchStep = minutes(c.MealSearchStepMinutes)
	r.BreakfastOffset = minutes(c.BreakfastOffset)
	r.AnchorMealOffset = minutes(c.AnchorMealOffset)

	r.TaskLimits = make(map[model.EnergyState]int, len(c.TaskLimits))
	for k, v := range c.TaskLimits {
		e, perr := model.ParseEnergyState(k)
		if perr != nil {
			return r, fmt.Errorf("task_limits: %w", perr)
		}
		if v < 0 {
			return r, fmt.Errorf("task_limits: negative limit for %s", k)
		}
		r.TaskLimits[e] = v
	}

	clocks := []struct {
		dst *Clock
		src string
		key string
	}{
		{&r.EveningEarliest, c.EveningEarliest, "evening_earliest"},
		{&r.LateWakeAfter, c.LateWakeAfter, "late_wake_after"},
		{&r.LunchCutoff, c.LunchAnchorCutoff, "lunch_anchor_cutoff"},
		{&r.LunchFallback, c.LunchAnchorFallback, "lunch_anchor_fallback"},
		{&r.DinnerCutoff, c.DinnerAnchorCutoff, "dinner_anchor_cutoff"},
	}
	for _, cl := range clocks {
		if *cl.dst, err = ParseClock(cl.src); err != nil {
			return r, fmt.Errorf("%s: %w", cl.key, err)
		}
	}

	meals := [mealCount]MealConfig{c.Breakfast, c.Lunch, c.Dinner}
	for i, m := range meals {
		kind := MealKind(i)
		rule := MealRule{Kind: kind, Duration: m.DurationMinutes}
		if rule.WindowStart, err = ParseClock(m.WindowStart); err != nil {
			return r, fmt.Errorf("%s.window_start: %w", kind, err)
		}
		if rule.WindowEnd, err = ParseClock(m.WindowEnd); err != nil {
			return r, fmt.Errorf("%s.window_end: %w", kind, err)
		}
		if rule.Default, err = ParseClock(m.DefaultTime); err != nil {
			return r, fmt.Errorf("%s.default_time: %w", kind, err)
		}
		if rule.WindowEnd <= rule.WindowStart {
			return r, fmt.Errorf("%s: window end must be after window start", kind)
		}
		if rule.Duration <= 0 {
			return r, fmt.Errorf("%s: duration must be positive", kind)
		}
		r.Meals[i] = rule
	}
	return r, nil
}

// DefaultRules returns the compiled default configuration.
func DefaultRules() Rules {
	r, err := DefaultConfig().Rules()
	if err != nil {
		panic(err)
	}
	return r
}

// TaskLimit returns how many tasks fit the given energy state.
func (r Rules) TaskLimit(e model.EnergyState) int {
	return r.TaskLimits[e]
}

func minutes(m int) time.Duration { return time.Duration(m) * time.Minute }

func copyLimits(m map[string]int) map[string]int {
	if m == nil {
		return nil
	}
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// LoadConfig loads a Config from a JSON or YAML file and applies defaults.
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer func() { _ = f.Close() }()
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	return DecodeConfig(f, ext)
}

// DecodeConfig reads a Config in the given format ("yaml", "yml" or "json").
func DecodeConfig(r io.Reader, format string) (Config, error) {
	var cfg Config
	switch strings.ToLower(format) {
	case "yaml", "yml":
		if err := yaml.NewDecoder(r).Decode(&cfg); err != nil && err != io.EOF {
			return cfg, err
		}
	case "json":
		if err := json.NewDecoder(r).Decode(&cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config format: %s", format)
	}
	cfg.SetDefaults()
	return cfg, cfg.Validate()
}
