// Package config loads the AgentGuard configuration from YAML. Every field
// has a working default so an empty file (or no file at all) yields a usable
// setup; validation catches values that would silently disable invariants,
// such as a zero history window.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/hupe1980/agentguard/core"
	"github.com/hupe1980/agentguard/logging"
	"gopkg.in/yaml.v3"
)

// LoggingConfig selects logger level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or text
}

// MonitorConfig tunes the monitoring windows and alert thresholds.
type MonitorConfig struct {
	HistorySize      int    `yaml:"history_size"`
	TrendSize        int    `yaml:"trend_size"`
	ErrorThreshold   string `yaml:"error_threshold"`   // critical, low, medium or high
	WarningThreshold string `yaml:"warning_threshold"` // same names as error_threshold
}

// BusConfig tunes message bus liveness and expiry behavior.
type BusConfig struct {
	StalenessWindow time.Duration `yaml:"staleness_window"`
	DefaultTTL      time.Duration `yaml:"default_ttl"`
}

// SessionConfig carries the default per-session halt configuration.
type SessionConfig struct {
	TokenBudget int `yaml:"token_budget"`
}

// Config is the root configuration document.
type Config struct {
	Logging LoggingConfig `yaml:"logging"`
	Monitor MonitorConfig `yaml:"monitor"`
	Bus     BusConfig     `yaml:"bus"`
	Session SessionConfig `yaml:"session"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Monitor: MonitorConfig{
			HistorySize:      1000,
			TrendSize:        100,
			ErrorThreshold:   "low",
			WarningThreshold: "medium",
		},
		Bus: BusConfig{
			StalenessWindow: 90 * time.Second,
			DefaultTTL:      300 * time.Second,
		},
	}
}

// Load reads and parses a YAML config file, merging it over the defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %q: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values that would break the engine's invariants.
func (c Config) Validate() error {
	if c.Monitor.HistorySize <= 0 {
		return fmt.Errorf("monitor.history_size must be positive, got %d", c.Monitor.HistorySize)
	}
	if c.Monitor.TrendSize <= 0 {
		return fmt.Errorf("monitor.trend_size must be positive, got %d", c.Monitor.TrendSize)
	}
	if _, ok := core.ParseCoherenceLevel(c.Monitor.ErrorThreshold); !ok {
		return fmt.Errorf("monitor.error_threshold: unknown level %q", c.Monitor.ErrorThreshold)
	}
	if _, ok := core.ParseCoherenceLevel(c.Monitor.WarningThreshold); !ok {
		return fmt.Errorf("monitor.warning_threshold: unknown level %q", c.Monitor.WarningThreshold)
	}
	if c.Bus.StalenessWindow <= 0 {
		return fmt.Errorf("bus.staleness_window must be positive, got %s", c.Bus.StalenessWindow)
	}
	if c.Bus.DefaultTTL <= 0 {
		return fmt.Errorf("bus.default_ttl must be positive, got %s", c.Bus.DefaultTTL)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unknown level %q", c.Logging.Level)
	}
	if c.Session.TokenBudget < 0 {
		return fmt.Errorf("session.token_budget must not be negative, got %d", c.Session.TokenBudget)
	}
	return nil
}

// SessionDefaults converts the document into the per-session halt config.
func (c Config) SessionDefaults() core.SessionConfig {
	cfg := core.DefaultSessionConfig()
	if lvl, ok := core.ParseCoherenceLevel(c.Monitor.ErrorThreshold); ok {
		cfg.ErrorThreshold = lvl
	}
	if lvl, ok := core.ParseCoherenceLevel(c.Monitor.WarningThreshold); ok {
		cfg.WarningThreshold = lvl
	}
	cfg.TokenBudget = c.Session.TokenBudget
	return cfg
}

// LogLevel converts the configured level to the logging package's enum.
func (c Config) LogLevel() logging.LogLevel {
	switch c.Logging.Level {
	case "debug":
		return logging.LogLevelDebug
	case "warn":
		return logging.LogLevelWarn
	case "error":
		return logging.LogLevelError
	default:
		return logging.LogLevelInfo
	}
}
