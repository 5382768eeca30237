// Package config provides configuration types and defaults for suanpan.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/zjrosen/suanpan/internal/abacus"
	"github.com/zjrosen/suanpan/internal/carry"
	"github.com/zjrosen/suanpan/internal/log"
	"github.com/zjrosen/suanpan/internal/report"
	"github.com/zjrosen/suanpan/internal/telemetry"
)

// LocalConfigName is the project-local config file looked up in the working directory.
const LocalConfigName = ".suanpan.yaml"

// EnvPrefix prefixes environment overrides, e.g. SUANPAN_RODS or SUANPAN_LOG_LEVEL.
const EnvPrefix = "SUANPAN"

// Config holds all configuration options for suanpan.
type Config struct {
	Rods             int           `mapstructure:"rods" yaml:"rods"`
	Overflow         string        `mapstructure:"overflow" yaml:"overflow"`                   // ignore, saturate, error
	TransientChanges bool          `mapstructure:"transient_changes" yaml:"transient_changes"` // report intermediate bead moves
	Output           OutputConfig  `mapstructure:"output" yaml:"output"`
	Log              LogConfig     `mapstructure:"log" yaml:"log"`
	Tracing          TracingConfig `mapstructure:"tracing" yaml:"tracing"`
	Watch            WatchConfig   `mapstructure:"watch" yaml:"watch"`
}

// OutputConfig controls how results are printed.
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format"` // text, json, yaml
	Color  bool   `mapstructure:"color" yaml:"color"`
	Steps  bool   `mapstructure:"steps" yaml:"steps"` // include every toggle and carry in the report
}

// LogConfig controls diagnostic logging on stderr.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// TracingConfig selects an OpenTelemetry span exporter.
type TracingConfig struct {
	Exporter string `mapstructure:"exporter" yaml:"exporter"`
	// Endpoint is the OTLP gRPC collector address, host:port.
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
	Insecure bool   `mapstructure:"insecure" yaml:"insecure"`
}

// WatchConfig controls replay --watch.
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		Rods:             13,
		Overflow:         string(carry.PolicyIgnore),
		TransientChanges: true,
		Output: OutputConfig{
			Format: string(report.FormatText),
			Color:  true,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: log.FormatText,
		},
		Tracing: TracingConfig{
			Exporter: telemetry.ExporterNone,
			Endpoint: "localhost:4317",
		},
		Watch: WatchConfig{
			Debounce: 250 * time.Millisecond,
		},
	}
}

// Validate checks every field and returns the first problem found.
func (c Config) Validate() error {
	if c.Rods < 1 || c.Rods > abacus.MaxRods {
		return fmt.Errorf("rods: %d not in [1, %d]", c.Rods, abacus.MaxRods)
	}
	if _, err := carry.ParsePolicy(c.Overflow); err != nil {
		return fmt.Errorf("overflow: %w", err)
	}
	if _, err := report.ParseFormat(c.Output.Format); err != nil {
		return fmt.Errorf("output.format: %w", err)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch c.Log.Format {
	case "", log.FormatText, log.FormatJSON:
	default:
		return fmt.Errorf("log.format: unknown format %q", c.Log.Format)
	}
	switch c.Tracing.Exporter {
	case "", telemetry.ExporterNone, telemetry.ExporterStdout:
	case telemetry.ExporterOTLP:
		if c.Tracing.Endpoint == "" {
			return errors.New("tracing.endpoint: required for the otlp exporter")
		}
	default:
		return fmt.Errorf("tracing.exporter: unknown exporter %q", c.Tracing.Exporter)
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce: %s is negative", c.Watch.Debounce)
	}
	return nil
}

// SetDefaults registers every default on v so that keys resolve even when no
// config file exists and environment overrides are picked up.
func SetDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("rods", d.Rods)
	v.SetDefault("overflow", d.Overflow)
	v.SetDefault("transient_changes", d.TransientChanges)
	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("output.color", d.Output.Color)
	v.SetDefault("output.steps", d.Output.Steps)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
	v.SetDefault("tracing.endpoint", d.Tracing.Endpoint)
	v.SetDefault("tracing.insecure", d.Tracing.Insecure)
	v.SetDefault("watch.debounce", d.Watch.Debounce)
}

// Load reads configuration into v and decodes it.
//
// With an explicit path that file must exist. Otherwise LocalConfigName in the
// working directory and DefaultConfigPath() are tried in turn, and running
// without any file is fine.
func Load(v *viper.Viper, path string) (Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = findConfig()
	}
	if path == "" {
		log.Debug(log.CatConfig, "No config file found, using defaults")
	} else {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			log.ErrorErr(log.CatConfig, "Failed to read config", err, "path", path)
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
		log.Debug(log.CatConfig, "Loaded config", "path", path)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// findConfig returns the first existing implicit config file, or "".
func findConfig() string {
	for _, candidate := range []string{LocalConfigName, DefaultConfigPath()} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// DefaultConfigPath returns the per-user config file location,
// $XDG_CONFIG_HOME/suanpan/config.yaml or its platform equivalent.
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", "suanpan", "config.yaml")
	}
	return filepath.Join(dir, "suanpan", "config.yaml")
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# Suanpan Configuration

# Number of rods (1-18). Rod 0 is the leftmost, highest place value.
rods: 13

# What to do when a carry leaves the leftmost rod:
#   ignore    - drop it; the abacus wraps around (default)
#   saturate  - set every rod to nine
#   error     - keep the wrapped value and fail the replay
overflow: ignore

# Report intermediate bead moves, e.g. both heaven beads dropping before a carry
transient_changes: true

output:
  format: text   # text, json or yaml
  color: true    # colour text output when the terminal supports it
  steps: false   # list every toggle and carry, not just the final state

# Diagnostics on stderr
log:
  level: warn    # debug, info, warn, error
  format: text   # text or json

# OpenTelemetry spans for every toggle and carry
tracing:
  exporter: none            # none, stdout, otlp
  # endpoint: localhost:4317  # OTLP gRPC collector
  # insecure: true

# replay --watch
watch:
  debounce: 250ms
`
}

// WriteDefaultConfig creates a config file at the given path with default settings and comments.
// Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
