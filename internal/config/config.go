// Package config loads solver, logging and metrics settings from a YAML
// or JSON file with environment overrides.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables that override file settings
const (
	EnvConfig        = "AXIOM_CONFIG"
	EnvSolverTimeout = "AXIOM_SOLVER_TIMEOUT"
	EnvSolverPath    = "AXIOM_SOLVER_PATH"
	EnvLogLevel      = "AXIOM_LOG_LEVEL"
)

// Defaults
const (
	DefaultSolverPath  = "z3"
	DefaultTimeout     = 30 * time.Second
	DefaultMinVersion  = ">=4.8.0"
	DefaultMaxParallel = 4
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "console"
)

// Config is the complete runtime configuration
type Config struct {
	Solver  SolverConfig  `yaml:"solver" json:"solver"`
	Log     LogConfig     `yaml:"log" json:"log"`
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// Source is the file the configuration was read from, empty when
	// only defaults and environment apply.
	Source string `yaml:"-" json:"-"`
}

// SolverConfig controls the external SMT solver
type SolverConfig struct {
	Path                string   `yaml:"path" json:"path"`
	Timeout             Duration `yaml:"timeout" json:"timeout"`
	MinVersion          string   `yaml:"min_version" json:"min_version"`
	MaxParallel         int      `yaml:"max_parallel" json:"max_parallel"`
	RejectNonExhaustive bool     `yaml:"reject_non_exhaustive" json:"reject_non_exhaustive"`
}

// LogConfig controls the logger and its optional rotating file sink
type LogConfig struct {
	Level      string `yaml:"level" json:"level"`
	Format     string `yaml:"format" json:"format"`
	File       string `yaml:"file" json:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" json:"max_age_days"`
}

// MetricsConfig enables query metrics
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Solver: SolverConfig{
			Path:        DefaultSolverPath,
			Timeout:     Duration(DefaultTimeout),
			MinVersion:  DefaultMinVersion,
			MaxParallel: DefaultMaxParallel,
		},
		Log: LogConfig{
			Level:      DefaultLogLevel,
			Format:     DefaultLogFormat,
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Duration is a time.Duration that reads either a Go duration string
// ("45s") or an integer number of milliseconds
type Duration time.Duration

// Std returns the value as a time.Duration
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// ParseDuration accepts "1m30s" style durations and bare milliseconds
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		if ms < 0 {
			return 0, fmt.Errorf("negative duration %q", s)
		}
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %q", s)
	}
	return d, nil
}

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	v, err := ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) { return d.String(), nil }

// UnmarshalJSON implements json.Unmarshaler for strings and numbers
func (d *Duration) UnmarshalJSON(b []byte) error {
	var raw interface{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	var s string
	switch v := raw.(type) {
	case string:
		s = v
	case float64:
		s = strconv.FormatInt(int64(v), 10)
	default:
		return fmt.Errorf("invalid duration %s", b)
	}
	parsed, err := ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalJSON implements json.Marshaler
func (d Duration) MarshalJSON() ([]byte, error) { return json.Marshal(d.String()) }

// SearchPaths returns the candidate config files in priority order
func SearchPaths() []string {
	var paths []string
	if p := os.Getenv(EnvConfig); p != "" {
		paths = append(paths, p)
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "axiom", "config.yaml"))
	}
	return append(paths, "axiom.yaml")
}

// Load reads the first readable file of SearchPaths, or the given path
// when non-empty, and applies environment overrides. A missing file is
// not an error; a malformed one is.
func Load(path string) (*Config, error) {
	cfg := Default()
	candidates := SearchPaths()
	if path != "" {
		candidates = []string{path}
	}
	for _, p := range candidates {
		err := cfg.readFile(p)
		if err == nil {
			cfg.Source = p
			break
		}
		if errors.Is(err, os.ErrNotExist) && path == "" {
			continue
		}
		return nil, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// readFile decodes path on top of the current values
func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parsing config json %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parsing config yaml %s: %w", path, err)
		}
	}
	return nil
}

// ApplyEnv overrides settings from the environment. lookup is usually
// os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvSolverTimeout); ok && v != "" {
		d, err := ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvSolverTimeout, err)
		}
		c.Solver.Timeout = Duration(d)
	}
	if v, ok := lookup(EnvSolverPath); ok && v != "" {
		c.Solver.Path = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Log.Level = v
	}
	return nil
}

// Validate checks ranges and enumerations
func (c *Config) Validate() error {
	if c.Solver.Timeout <= 0 {
		return fmt.Errorf("solver.timeout must be positive, got %s", c.Solver.Timeout)
	}
	if c.Solver.MaxParallel < 1 {
		return fmt.Errorf("solver.max_parallel must be at least 1, got %d", c.Solver.MaxParallel)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json, got %q", c.Log.Format)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	return nil
}
