// Mythmap - Myths and Legends Map Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mythmap

package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Radius bounds accepted for the catalog radius settings, in kilometers.
const (
	minRadiusKm = 1.0
	maxRadiusKm = 10.0
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validateUpstream(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateCatalog(); err != nil {
		return err
	}
	if err := c.validateSession(); err != nil {
		return err
	}
	if err := c.validateSupervisor(); err != nil {
		return err
	}
	if c.Authz.CacheTTL < 0 {
		return fmt.Errorf("AUTHZ_CACHE_TTL must not be negative, got %v", c.Authz.CacheTTL)
	}
	return c.validateLogging()
}

func (c *Config) validateUpstream() error {
	u := c.Upstream
	if u.BaseURL == "" {
		return fmt.Errorf("MYTHS_API_URL is required")
	}
	if err := checkBaseURL("MYTHS_API_URL", u.BaseURL); err != nil {
		return err
	}
	if u.Timeout <= 0 {
		return fmt.Errorf("MYTHS_API_TIMEOUT must be positive, got %v", u.Timeout)
	}
	if u.MaxRetries < 0 || u.MaxRetries > 10 {
		return fmt.Errorf("MYTHS_API_MAX_RETRIES must be between 0 and 10, got %d", u.MaxRetries)
	}
	if u.RateLimitRPS < 0 {
		return fmt.Errorf("MYTHS_API_RATE_LIMIT must not be negative, got %v", u.RateLimitRPS)
	}
	if u.RateLimitRPS > 0 && u.RateLimitBurst < 1 {
		return fmt.Errorf("MYTHS_API_RATE_BURST must be at least 1 when rate limiting is enabled")
	}
	if u.PageSize < 1 {
		return fmt.Errorf("MYTHS_API_PAGE_SIZE must be at least 1, got %d", u.PageSize)
	}
	if u.BreakerFailureRatio <= 0 || u.BreakerFailureRatio > 1 {
		return fmt.Errorf("MYTHS_API_BREAKER_FAILURE_RATIO must be in (0, 1], got %v", u.BreakerFailureRatio)
	}
	return nil
}

func (c *Config) validateServer() error {
	s := c.Server
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", s.Port)
	}
	if !s.RateLimitDisabled && (s.RateLimitReqs < 1 || s.RateLimitWindow <= 0) {
		return fmt.Errorf("RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW must be positive unless DISABLE_RATE_LIMIT=true")
	}
	for _, origin := range s.CORSOrigins {
		if origin == "*" {
			continue
		}
		if err := checkBaseURL("CORS_ORIGINS", origin); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateCatalog() error {
	cat := c.Catalog
	if cat.RefreshInterval <= 0 {
		return fmt.Errorf("CATALOG_REFRESH_INTERVAL must be positive, got %v", cat.RefreshInterval)
	}
	if cat.MaxAge < cat.RefreshInterval {
		return fmt.Errorf("CATALOG_MAX_AGE (%v) must not be shorter than CATALOG_REFRESH_INTERVAL (%v)", cat.MaxAge, cat.RefreshInterval)
	}
	if cat.GridCellKm <= 0 {
		return fmt.Errorf("CATALOG_GRID_CELL_KM must be positive, got %v", cat.GridCellKm)
	}
	if cat.DefaultLatitude < -90 || cat.DefaultLatitude > 90 {
		return fmt.Errorf("DEFAULT_LATITUDE must be between -90 and 90, got %v", cat.DefaultLatitude)
	}
	if cat.DefaultLongitude < -180 || cat.DefaultLongitude > 180 {
		return fmt.Errorf("DEFAULT_LONGITUDE must be between -180 and 180, got %v", cat.DefaultLongitude)
	}
	if cat.DefaultRadiusKm < minRadiusKm || cat.DefaultRadiusKm > maxRadiusKm {
		return fmt.Errorf("DEFAULT_RADIUS_KM must be between %v and %v, got %v", minRadiusKm, maxRadiusKm, cat.DefaultRadiusKm)
	}
	if cat.NearestRadiusKm <= 0 {
		return fmt.Errorf("NEAREST_RADIUS_KM must be positive, got %v", cat.NearestRadiusKm)
	}
	return nil
}

func (c *Config) validateSession() error {
	if c.Session.MaxSessions < 1 {
		return fmt.Errorf("SESSION_MAX must be at least 1, got %d", c.Session.MaxSessions)
	}
	if c.Session.IdleTimeout <= 0 || c.Session.SweepInterval <= 0 {
		return fmt.Errorf("SESSION_IDLE_TIMEOUT and SESSION_SWEEP_INTERVAL must be positive")
	}
	return nil
}

func (c *Config) validateSupervisor() error {
	if c.Supervisor.FailureThreshold <= 0 {
		return fmt.Errorf("SUPERVISOR_FAILURE_THRESHOLD must be positive")
	}
	if c.Supervisor.FailureDecay <= 0 {
		return fmt.Errorf("SUPERVISOR_FAILURE_DECAY must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled", "off":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error, got %q", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

// checkBaseURL accepts an absolute http(s) origin. The myths client appends
// /api/... itself, so anything past a trailing slash is a misconfiguration.
func checkBaseURL(name, raw string) error {
	u, err := url.Parse(raw)
	switch {
	case err != nil:
		return fmt.Errorf("%s is not a URL: %w", name, err)
	case u.Scheme != "http" && u.Scheme != "https":
		return fmt.Errorf("%s must use http or https, got %q", name, raw)
	case u.Host == "":
		return fmt.Errorf("%s has no host: %q", name, raw)
	case strings.Trim(u.Path, "/") != "":
		return fmt.Errorf("%s must not include a path, drop %q", name, u.Path)
	case u.RawQuery != "" || u.Fragment != "":
		return fmt.Errorf("%s must not include a query or fragment: %q", name, raw)
	}
	return nil
}
