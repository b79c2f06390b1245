// Echotrace - Social Post Engagement Tracking and Analytics
// Copyright 2026 Echotrace Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/echotrace/echotrace

// Package config provides layered configuration for Echotrace.
//
// Configuration is loaded via Koanf v2 with three layers, highest priority
// last:
//
//  1. Built-in defaults (defaultConfig)
//  2. Optional YAML config file (config.yaml, or CONFIG_PATH)
//  3. Environment variables (ECHOTRACE_* and a few well-known names)
//
// The loaded Config is validated with go-playground/validator struct tags
// plus a handful of cross-field checks before the process starts.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the root configuration for the Echotrace server.
type Config struct {
	Provider ProviderConfig `koanf:"provider"`
	Database DatabaseConfig `koanf:"database"`
	Dedup    DedupConfig    `koanf:"dedup"`
	Monitor  MonitorConfig  `koanf:"monitor"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ProviderConfig configures the social-data provider client.
type ProviderConfig struct {
	// BaseURL is the provider API root, e.g. https://api.socialdata.tools.
	BaseURL string `koanf:"base_url" validate:"required,url"`

	// APIKey is the bearer token for provider authentication.
	APIKey string `koanf:"api_key" validate:"required"`

	// Timeout bounds each HTTP request.
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`

	// MaxRetries is the retry budget for HTTP 429 responses before the
	// call surfaces as quota exhaustion.
	MaxRetries int `koanf:"max_retries" validate:"gte=0,lte=10"`

	// RetryBaseDelay seeds the exponential backoff between 429 retries.
	RetryBaseDelay time.Duration `koanf:"retry_base_delay" validate:"gt=0"`

	// RequestsPerSecond and Burst size the client-side rate limiter to the
	// provider plan. Zero RequestsPerSecond disables limiting.
	RequestsPerSecond float64 `koanf:"requests_per_second" validate:"gte=0"`
	Burst             int     `koanf:"burst" validate:"gte=0"`

	// Breaker toggles the circuit breaker wrapper around the client.
	Breaker bool `koanf:"breaker"`
}

// DatabaseConfig configures the DuckDB-backed snapshot store.
type DatabaseConfig struct {
	// Path is the DuckDB database file. Empty means in-memory (tests).
	Path string `koanf:"path"`

	// MaxMemory caps DuckDB memory usage, e.g. "1GB".
	MaxMemory string `koanf:"max_memory"`

	// Threads limits DuckDB worker threads. 0 = runtime default.
	Threads int `koanf:"threads" validate:"gte=0"`
}

// DedupConfig configures the BadgerDB-backed amplifier identity index.
type DedupConfig struct {
	// Path is the Badger directory. Empty selects the in-memory index.
	Path string `koanf:"path"`

	// WarmOnStart rebuilds the index from stored history at startup so a
	// deleted index directory cannot cause duplicate amplifier events.
	WarmOnStart bool `koanf:"warm_on_start"`
}

// MonitorConfig configures the polling engine.
type MonitorConfig struct {
	// TickInterval drives the scheduler loop; each tick runs the posts
	// pass and then the accounts pass.
	TickInterval time.Duration `koanf:"tick_interval" validate:"gt=0"`

	// MaxConcurrent bounds the number of items monitored at once within a
	// pass. Sized to the provider rate limit.
	MaxConcurrent int `koanf:"max_concurrent" validate:"gt=0"`

	// FollowerCap is the default cap above which newly registered accounts
	// are stored inactive. Cost control.
	FollowerCap int64 `koanf:"follower_cap" validate:"gt=0"`

	// QuotaCooldown is how long all provider work is suspended after the
	// provider signals quota exhaustion.
	QuotaCooldown time.Duration `koanf:"quota_cooldown" validate:"gt=0"`

	// Cadence tiers: posts younger than FreshAge are re-checked every
	// FreshInterval, posts younger than RecentAge every RecentInterval,
	// older posts every StaleInterval.
	FreshAge       time.Duration `koanf:"fresh_age" validate:"gt=0"`
	RecentAge      time.Duration `koanf:"recent_age" validate:"gt=0"`
	FreshInterval  time.Duration `koanf:"fresh_interval" validate:"gt=0"`
	RecentInterval time.Duration `koanf:"recent_interval" validate:"gt=0"`
	StaleInterval  time.Duration `koanf:"stale_interval" validate:"gt=0"`
}

// MetricsConfig configures the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Listen  string `koanf:"listen" validate:"required_if=Enabled true"`
}

// LoggingConfig configures the zerolog global logger.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal panic disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with production defaults. Defaults are
// applied first, then overridden by the config file and environment.
func defaultConfig() *Config {
	return &Config{
		Provider: ProviderConfig{
			BaseURL:           "https://api.socialdata.tools",
			APIKey:            "",
			Timeout:           30 * time.Second,
			MaxRetries:        5,
			RetryBaseDelay:    time.Second,
			RequestsPerSecond: 2,
			Burst:             4,
			Breaker:           true,
		},
		Database: DatabaseConfig{
			Path:      "/data/echotrace.duckdb",
			MaxMemory: "1GB",
			Threads:   0,
		},
		Dedup: DedupConfig{
			Path:        "/data/echotrace-dedup",
			WarmOnStart: true,
		},
		Monitor: MonitorConfig{
			TickInterval:   time.Minute,
			MaxConcurrent:  4,
			FollowerCap:    50000,
			QuotaCooldown:  15 * time.Minute,
			FreshAge:       time.Hour,
			RecentAge:      3 * time.Hour,
			FreshInterval:  5 * time.Minute,
			RecentInterval: 15 * time.Minute,
			StaleInterval:  time.Hour,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Listen:  ":9180",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks the configuration for structural and cross-field errors.
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	m := c.Monitor
	if m.FreshAge >= m.RecentAge {
		return fmt.Errorf("monitor.fresh_age (%s) must be below monitor.recent_age (%s)", m.FreshAge, m.RecentAge)
	}
	if m.FreshInterval > m.RecentInterval || m.RecentInterval > m.StaleInterval {
		return fmt.Errorf("monitor cadence intervals must be non-decreasing: fresh=%s recent=%s stale=%s",
			m.FreshInterval, m.RecentInterval, m.StaleInterval)
	}
	if c.Provider.RequestsPerSecond > 0 && c.Provider.Burst == 0 {
		return fmt.Errorf("provider.burst must be positive when provider.requests_per_second is set")
	}
	return nil
}
