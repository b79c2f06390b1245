// Echotrace - Social Post Engagement Tracking and Analytics
// Copyright 2026 Echotrace Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/echotrace/echotrace

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := defaultConfig()
	cfg.Provider.APIKey = "test-key"

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing api key", func(c *Config) { c.Provider.APIKey = "" }},
		{"bad base url", func(c *Config) { c.Provider.BaseURL = "not-a-url" }},
		{"zero timeout", func(c *Config) { c.Provider.Timeout = 0 }},
		{"retry budget too large", func(c *Config) { c.Provider.MaxRetries = 99 }},
		{"zero tick interval", func(c *Config) { c.Monitor.TickInterval = 0 }},
		{"zero concurrency", func(c *Config) { c.Monitor.MaxConcurrent = 0 }},
		{"fresh age above recent age", func(c *Config) {
			c.Monitor.FreshAge = 4 * time.Hour
			c.Monitor.RecentAge = 3 * time.Hour
		}},
		{"decreasing cadence intervals", func(c *Config) {
			c.Monitor.FreshInterval = 30 * time.Minute
			c.Monitor.RecentInterval = 15 * time.Minute
		}},
		{"rate limit without burst", func(c *Config) {
			c.Provider.RequestsPerSecond = 2
			c.Provider.Burst = 0
		}},
		{"unknown log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"metrics enabled without listen", func(c *Config) {
			c.Metrics.Enabled = true
			c.Metrics.Listen = ""
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			cfg.Provider.APIKey = "test-key"
			tt.mutate(cfg)

			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	content := `
provider:
  api_key: from-file
monitor:
  follower_cap: 1000
logging:
  level: debug
`
	if err := os.WriteFile(configFile, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv(ConfigPathEnvVar, configFile)
	t.Setenv("ECHOTRACE_PROVIDER_API_KEY", "from-env")
	t.Setenv("ECHOTRACE_MONITOR_FOLLOWER_CAP", "2000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Provider.APIKey != "from-env" {
		t.Errorf("expected env to override file, got %q", cfg.Provider.APIKey)
	}
	if cfg.Monitor.FollowerCap != 2000 {
		t.Errorf("expected follower cap 2000 from env, got %d", cfg.Monitor.FollowerCap)
	}
	// File values not overridden by env survive.
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level from file, got %q", cfg.Logging.Level)
	}
	// Untouched settings keep their defaults.
	if cfg.Monitor.FreshInterval != 5*time.Minute {
		t.Errorf("expected default fresh interval, got %s", cfg.Monitor.FreshInterval)
	}
}

func TestLoad_InvalidConfigRefused(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	content := `
provider:
  api_key: test-key
monitor:
  tick_interval: 0s
`
	if err := os.WriteFile(configFile, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, configFile)

	if _, err := Load(); err == nil {
		t.Error("expected validation failure for zero tick interval")
	}
}

func TestEnvTransform(t *testing.T) {
	tests := []struct {
		env  string
		want string
	}{
		{"ECHOTRACE_PROVIDER_API_KEY", "provider.api_key"},
		{"ECHOTRACE_PROVIDER_BASE_URL", "provider.base_url"},
		{"ECHOTRACE_PROVIDER_TIMEOUT", "provider.timeout"},
		{"ECHOTRACE_DATABASE_PATH", "database.path"},
		{"ECHOTRACE_DATABASE_MAX_MEMORY", "database.max_memory"},
		{"ECHOTRACE_DEDUP_WARM_ON_START", "dedup.warm_on_start"},
		{"ECHOTRACE_MONITOR_QUOTA_COOLDOWN", "monitor.quota_cooldown"},
		{"ECHOTRACE_LOGGING_LEVEL", "logging.level"},
		{"ECHOTRACE_METRICS_LISTEN", "metrics.listen"},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			if got := envTransformFunc(tt.env); got != tt.want {
				t.Errorf("envTransformFunc(%q) = %q, want %q", tt.env, got, tt.want)
			}
		})
	}
}
