package config

import (
	"fmt"
	"math"

	"github.com/younwookim/aegis/internal/domain/errs"
)

// LoopConfig is the root config for loop.json
type LoopConfig struct {
	Timing  TimingConfig  `mapstructure:"timing"`
	Display DisplayConfig `mapstructure:"display"`
	Scenes  ScenesConfig  `mapstructure:"scenes"`
	Async   AsyncConfig   `mapstructure:"async"`
	Trace   TraceConfig   `mapstructure:"trace"`
}

// TimingConfig configures the frame governor
type TimingConfig struct {
	TargetRate float64 `mapstructure:"target_rate"` // ticks per second
	Unlocked   bool    `mapstructure:"unlocked"`    // run without sleeping
	StatsRate  float64 `mapstructure:"stats_rate"`  // reference rate for stats when unlocked
}

type DisplayConfig struct {
	Title        string `mapstructure:"title"`
	ScreenWidth  int    `mapstructure:"screen_width"`
	ScreenHeight int    `mapstructure:"screen_height"`
	Scale        int    `mapstructure:"scale"`
	Headless     bool   `mapstructure:"headless"`
}

type ScenesConfig struct {
	Initial string `mapstructure:"initial"`
}

type AsyncConfig struct {
	JoinTimeoutMS int `mapstructure:"join_timeout_ms"`
}

// TraceConfig names the file the per-tick trace is written to. Empty disables tracing.
type TraceConfig struct {
	Path string `mapstructure:"path"`
}

// Validate checks values the loop cannot run with
func (c *LoopConfig) Validate() error {
	if !validRate(c.Timing.TargetRate) {
		return fmt.Errorf("%w: timing.target_rate must be positive, got %v", errs.ErrInvalidConfiguration, c.Timing.TargetRate)
	}
	if c.Timing.Unlocked && !validRate(c.Timing.StatsRate) {
		return fmt.Errorf("%w: timing.stats_rate must be positive when unlocked, got %v", errs.ErrInvalidConfiguration, c.Timing.StatsRate)
	}
	if c.Display.ScreenWidth <= 0 || c.Display.ScreenHeight <= 0 {
		return fmt.Errorf("%w: display size %dx%d", errs.ErrInvalidConfiguration, c.Display.ScreenWidth, c.Display.ScreenHeight)
	}
	if c.Display.Scale <= 0 {
		return fmt.Errorf("%w: display.scale must be positive, got %d", errs.ErrInvalidConfiguration, c.Display.Scale)
	}
	if c.Async.JoinTimeoutMS < 0 {
		return fmt.Errorf("%w: async.join_timeout_ms must not be negative", errs.ErrInvalidConfiguration)
	}
	return nil
}

func validRate(rate float64) bool {
	return rate > 0 && !math.IsInf(rate, 0)
}
