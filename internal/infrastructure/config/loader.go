// Package config loads the loop configuration from a file system through
// viper, with AEGIS_ environment variable overrides.
package config

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides, e.g. AEGIS_TIMING_TARGET_RATE
const EnvPrefix = "AEGIS"

// DefaultFile is the config file read by LoadDefault
const DefaultFile = "loop.json"

// Loader loads loop configuration using fs.FS interface
type Loader struct {
	fsys     fs.FS
	basePath string
}

// NewLoader creates a new config loader from filesystem path
func NewLoader(basePath string) *Loader {
	return &Loader{
		fsys:     os.DirFS(basePath),
		basePath: basePath,
	}
}

// NewFSLoader creates a new config loader from fs.FS
func NewFSLoader(fsys fs.FS, basePath string) *Loader {
	return &Loader{
		fsys:     fsys,
		basePath: basePath,
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("timing.target_rate", 30.0)
	v.SetDefault("timing.unlocked", false)
	v.SetDefault("timing.stats_rate", 60.0)
	v.SetDefault("display.title", "aegis")
	v.SetDefault("display.screen_width", 320)
	v.SetDefault("display.screen_height", 240)
	v.SetDefault("display.scale", 2)
	v.SetDefault("display.headless", false)
	v.SetDefault("scenes.initial", "")
	v.SetDefault("async.join_timeout_ms", 500)
	v.SetDefault("trace.path", "")
}

// Load reads name (JSON or YAML by extension), applies defaults for missing
// keys and environment overrides, and validates the result.
func (l *Loader) Load(name string) (*LoopConfig, error) {
	data, err := fs.ReadFile(l.fsys, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path.Join(l.basePath, name), err)
	}

	format := strings.TrimPrefix(path.Ext(name), ".")
	switch format {
	case "json", "yaml", "yml":
	default:
		return nil, fmt.Errorf("unsupported config format %q for %s", format, name)
	}

	v := newViper()
	v.SetConfigType(format)
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path.Join(l.basePath, name), err)
	}
	return decode(v)
}

// LoadDefault loads loop.json
func (l *Loader) LoadDefault() (*LoopConfig, error) {
	return l.Load(DefaultFile)
}

// Defaults returns the built-in configuration with environment overrides applied.
func Defaults() (*LoopConfig, error) {
	return decode(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

func decode(v *viper.Viper) (*LoopConfig, error) {
	var cfg LoopConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// BasePath returns the directory the loader was created for
func (l *Loader) BasePath() string {
	return l.basePath
}
