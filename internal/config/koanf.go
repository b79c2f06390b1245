// Echotrace - Social Post Engagement Tracking and Analytics
// Copyright 2026 Echotrace Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/echotrace/echotrace

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, in order.
// The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/echotrace/config.yaml",
	"/etc/echotrace/config.yml",
}

// ConfigPathEnvVar overrides the config file path when set.
const ConfigPathEnvVar = "CONFIG_PATH"

// envPrefix is the prefix for Echotrace environment variables.
const envPrefix = "ECHOTRACE_"

// Load loads configuration using Koanf v2 with layered sources:
//
//  1. Defaults: built-in production defaults
//  2. Config file: optional YAML file (if one exists)
//  3. Environment variables: override any setting
//
// Precedence is ENV > file > defaults. The result is validated before it
// is returned; a process should refuse to start on a validation error.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// ECHOTRACE_PROVIDER_API_KEY -> provider.api_key, etc.
	if err := k.Load(env.Provider(envPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file path, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransformFunc maps environment variable names to koanf config paths.
//
// The general rule takes the first underscore-delimited token as the
// section and keeps the rest as a snake_case key:
//
//   - ECHOTRACE_PROVIDER_API_KEY    -> provider.api_key
//   - ECHOTRACE_MONITOR_FOLLOWER_CAP -> monitor.follower_cap
//   - ECHOTRACE_LOGGING_LEVEL       -> logging.level
//
// Multi-word keys that would be ambiguous under the general rule are
// listed explicitly.
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))

	explicit := map[string]string{
		"provider_base_url":            "provider.base_url",
		"provider_api_key":             "provider.api_key",
		"provider_max_retries":         "provider.max_retries",
		"provider_retry_base_delay":    "provider.retry_base_delay",
		"provider_requests_per_second": "provider.requests_per_second",
		"database_max_memory":          "database.max_memory",
		"dedup_warm_on_start":          "dedup.warm_on_start",
		"monitor_tick_interval":        "monitor.tick_interval",
		"monitor_max_concurrent":       "monitor.max_concurrent",
		"monitor_follower_cap":         "monitor.follower_cap",
		"monitor_quota_cooldown":       "monitor.quota_cooldown",
		"monitor_fresh_age":            "monitor.fresh_age",
		"monitor_recent_age":           "monitor.recent_age",
		"monitor_fresh_interval":       "monitor.fresh_interval",
		"monitor_recent_interval":      "monitor.recent_interval",
		"monitor_stale_interval":       "monitor.stale_interval",
	}
	if path, ok := explicit[key]; ok {
		return path
	}

	section, rest, found := strings.Cut(key, "_")
	if !found {
		return key
	}
	return section + "." + rest
}
