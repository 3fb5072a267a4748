// Mythmap - Myths and Legends Map Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mythmap

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/mythmap/config.yaml",
	"/etc/mythmap/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Upstream: UpstreamConfig{
			BaseURL:             "http://localhost:8000",
			Timeout:             15 * time.Second,
			MaxRetries:          3,
			RetryDelay:          500 * time.Millisecond,
			RateLimitRPS:        20,
			RateLimitBurst:      40,
			PageSize:            1000,
			BreakerMinRequests:  10,
			BreakerFailureRatio: 0.6,
			BreakerInterval:     time.Minute,
			BreakerTimeout:      time.Minute,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"http://localhost:3000"},
			RateLimitReqs:   120,
			RateLimitWindow: time.Minute,
		},
		Catalog: CatalogConfig{
			RefreshInterval:  5 * time.Minute,
			MaxAge:           10 * time.Minute,
			GridCellKm:       5,
			DefaultLatitude:  55.7961,
			DefaultLongitude: 49.1064,
			DefaultRadiusKm:  10,
			NearestRadiusKm:  2,
		},
		Session: SessionConfig{
			MaxSessions:   10000,
			IdleTimeout:   24 * time.Hour,
			SweepInterval: 5 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Supervisor: SupervisorConfig{
			FailureThreshold: 5,
			FailureDecay:     30,
			FailureBackoff:   15 * time.Second,
			ShutdownTimeout:  10 * time.Second,
		},
		Authz: AuthzConfig{
			CacheTTL: 5 * time.Minute,
		},
	}
}

// LoadWithKoanf loads configuration using the Koanf library with layered sources.
// Configuration is loaded in the following order (later sources override earlier):
//
//  1. Defaults: Built-in sensible defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any setting
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
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

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
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

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"server.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars come in as strings, but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lower case) to koanf paths.
var envMappings = map[string]string{
	"myths_api_url":                   "upstream.base_url",
	"myths_api_timeout":               "upstream.timeout",
	"myths_api_max_retries":           "upstream.max_retries",
	"myths_api_retry_delay":           "upstream.retry_delay",
	"myths_api_rate_limit":            "upstream.rate_limit_rps",
	"myths_api_rate_burst":            "upstream.rate_limit_burst",
	"myths_api_page_size":             "upstream.page_size",
	"myths_api_breaker_min_requests":  "upstream.breaker_min_requests",
	"myths_api_breaker_failure_ratio": "upstream.breaker_failure_ratio",
	"myths_api_breaker_interval":      "upstream.breaker_interval",
	"myths_api_breaker_timeout":       "upstream.breaker_timeout",

	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"cors_origins":          "server.cors_origins",
	"rate_limit_requests":   "server.rate_limit_reqs",
	"rate_limit_window":     "server.rate_limit_window",
	"disable_rate_limit":    "server.rate_limit_disabled",

	"catalog_refresh_interval": "catalog.refresh_interval",
	"catalog_max_age":          "catalog.max_age",
	"catalog_grid_cell_km":     "catalog.grid_cell_km",
	"default_latitude":         "catalog.default_latitude",
	"default_longitude":        "catalog.default_longitude",
	"default_radius_km":        "catalog.default_radius_km",
	"nearest_radius_km":        "catalog.nearest_radius_km",

	"session_max":            "session.max_sessions",
	"session_idle_timeout":   "session.idle_timeout",
	"session_sweep_interval": "session.sweep_interval",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	"supervisor_failure_threshold": "supervisor.failure_threshold",
	"supervisor_failure_decay":     "supervisor.failure_decay",
	"supervisor_failure_backoff":   "supervisor.failure_backoff",
	"supervisor_shutdown_timeout":  "supervisor.shutdown_timeout",

	"authz_model_path":  "authz.model_path",
	"authz_policy_path": "authz.policy_path",
	"authz_cache_ttl":   "authz.cache_ttl",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - MYTHS_API_URL -> upstream.base_url
//   - HTTP_PORT -> server.port
//   - LOG_LEVEL -> logging.level
func envTransformFunc(key string) string {
	// Unmapped keys are skipped so unrelated environment does not leak into config
	return envMappings[strings.ToLower(key)]
}
