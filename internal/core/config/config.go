package config

import (
	"fmt"
	"time"

	"github.com/notekeep/recovery/internal/engine"
	"github.com/notekeep/recovery/internal/infra/storage/postgres"
	"github.com/notekeep/recovery/internal/infra/telemetry"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server   ServerConfig          `yaml:"server"`
	Engine   EngineConfig          `yaml:"engine"`
	Logging  LoggingConfig         `yaml:"logging"`
	Redis    telemetry.RedisConfig `yaml:"redis"`
	Database postgres.Config       `yaml:"database"`
	Archive  ArchiveConfig         `yaml:"archive"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// EngineConfig holds the recovery engine constants. Durations are
// strings ("1s", "30s") parsed at load time.
type EngineConfig struct {
	MaxRetries     int    `yaml:"max_retries"`
	BackoffBase    string `yaml:"backoff_base"`
	BackoffCeiling string `yaml:"backoff_ceiling"`
	HistorySize    int    `yaml:"history_size"`
}

// ArchiveConfig holds event archive settings.
type ArchiveConfig struct {
	// Retention is how long archived events are kept ("168h"). Empty
	// disables pruning.
	Retention string `yaml:"retention"`
}

// EngineSettings converts the raw engine config into engine constants.
func (c EngineConfig) EngineSettings() (engine.Config, error) {
	out := engine.Config{
		MaxRetries:  c.MaxRetries,
		HistorySize: c.HistorySize,
	}
	if c.BackoffBase != "" {
		d, err := time.ParseDuration(c.BackoffBase)
		if err != nil {
			return out, fmt.Errorf("invalid backoff_base: %w", err)
		}
		out.BackoffBase = d
	}
	if c.BackoffCeiling != "" {
		d, err := time.ParseDuration(c.BackoffCeiling)
		if err != nil {
			return out, fmt.Errorf("invalid backoff_ceiling: %w", err)
		}
		out.BackoffCeiling = d
	}
	return out, nil
}

// RetentionPeriod parses the archive retention, 0 when disabled.
func (c ArchiveConfig) RetentionPeriod() (time.Duration, error) {
	if c.Retention == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Retention)
	if err != nil {
		return 0, fmt.Errorf("invalid archive retention: %w", err)
	}
	return d, nil
}
