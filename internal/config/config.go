// Mythmap - Myths and Legends Map Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mythmap

package config

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Upstream   UpstreamConfig   `koanf:"upstream"`
	Server     ServerConfig     `koanf:"server"`
	Catalog    CatalogConfig    `koanf:"catalog"`
	Session    SessionConfig    `koanf:"session"`
	Logging    LoggingConfig    `koanf:"logging"`
	Supervisor SupervisorConfig `koanf:"supervisor"`
	Authz      AuthzConfig      `koanf:"authz"`
}

// UpstreamConfig describes the myths REST API the gateway fronts.
//
// Environment Variables:
//   - MYTHS_API_URL: base URL, without the /api path (required)
//   - MYTHS_API_TIMEOUT: HTTP client timeout (default: 15s)
//   - MYTHS_API_MAX_RETRIES: retries on HTTP 429/503 (default: 3)
//   - MYTHS_API_RETRY_DELAY: base delay for exponential backoff (default: 500ms)
//   - MYTHS_API_RATE_LIMIT: outbound requests per second, 0 disables (default: 20)
//   - MYTHS_API_RATE_BURST: outbound burst (default: 40)
//   - MYTHS_API_BREAKER_MIN_REQUESTS: requests before the breaker may open (default: 10)
//   - MYTHS_API_BREAKER_FAILURE_RATIO: failure ratio that opens the breaker (default: 0.6)
//   - MYTHS_API_BREAKER_TIMEOUT: open state duration (default: 1m)
type UpstreamConfig struct {
	BaseURL             string        `koanf:"base_url"`
	Timeout             time.Duration `koanf:"timeout"`
	MaxRetries          int           `koanf:"max_retries"`
	RetryDelay          time.Duration `koanf:"retry_delay"`
	RateLimitRPS        float64       `koanf:"rate_limit_rps"`
	RateLimitBurst      int           `koanf:"rate_limit_burst"`
	PageSize            int           `koanf:"page_size"`
	BreakerMinRequests  uint32        `koanf:"breaker_min_requests"`
	BreakerFailureRatio float64       `koanf:"breaker_failure_ratio"`
	BreakerInterval     time.Duration `koanf:"breaker_interval"`
	BreakerTimeout      time.Duration `koanf:"breaker_timeout"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              int           `koanf:"port"`
	ReadTimeout       time.Duration `koanf:"read_timeout"`
	WriteTimeout      time.Duration `koanf:"write_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// CatalogConfig controls the cached place snapshot and map defaults.
//
// Environment Variables:
//   - CATALOG_REFRESH_INTERVAL: background refresh period (default: 5m)
//   - CATALOG_MAX_AGE: snapshot age that forces a refresh on read (default: 10m)
//   - CATALOG_GRID_CELL_KM: spatial grid cell size (default: 5)
//   - DEFAULT_LATITUDE / DEFAULT_LONGITUDE: map center (default: 55.7961 / 49.1064)
//   - DEFAULT_RADIUS_KM: near-me radius (default: 10)
//   - NEAREST_RADIUS_KM: radius for the nearest places lookup (default: 2)
type CatalogConfig struct {
	RefreshInterval  time.Duration `koanf:"refresh_interval"`
	MaxAge           time.Duration `koanf:"max_age"`
	GridCellKm       float64       `koanf:"grid_cell_km"`
	DefaultLatitude  float64       `koanf:"default_latitude"`
	DefaultLongitude float64       `koanf:"default_longitude"`
	DefaultRadiusKm  float64       `koanf:"default_radius_km"`
	NearestRadiusKm  float64       `koanf:"nearest_radius_km"`
}

// SessionConfig bounds the in-memory session registry.
//
// Environment Variables:
//   - SESSION_MAX: registry capacity, least recently seen evicted first (default: 10000)
//   - SESSION_IDLE_TIMEOUT: idle sessions are forgotten after this (default: 24h)
//   - SESSION_SWEEP_INTERVAL: how often idle sessions are swept (default: 5m)
type SessionConfig struct {
	MaxSessions   int           `koanf:"max_sessions"`
	IdleTimeout   time.Duration `koanf:"idle_timeout"`
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

// LoggingConfig holds logging settings for zerolog.
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: true/false - include caller file:line (default: false)
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// SupervisorConfig tunes the suture tree.
type SupervisorConfig struct {
	FailureThreshold float64       `koanf:"failure_threshold"`
	FailureDecay     float64       `koanf:"failure_decay"`
	FailureBackoff   time.Duration `koanf:"failure_backoff"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout"`
}

// AuthzConfig configures the casbin route authorization.
//
// Environment Variables:
//   - AUTHZ_MODEL_PATH: casbin model file (default: embedded model)
//   - AUTHZ_POLICY_PATH: casbin policy file (default: embedded policy)
//   - AUTHZ_CACHE_TTL: decision cache lifetime, 0 disables the cache
type AuthzConfig struct {
	ModelPath  string        `koanf:"model_path"`
	PolicyPath string        `koanf:"policy_path"`
	CacheTTL   time.Duration `koanf:"cache_ttl"`
}

// Load reads configuration from defaults, config file and environment.
func Load() (*Config, error) {
	cfg, err := LoadWithKoanf()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
