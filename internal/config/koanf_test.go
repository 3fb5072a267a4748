// Mythmap - Myths and Legends Map Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mythmap

package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

// TestDefaultConfig verifies that defaultConfig() returns proper defaults
func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Catalog.DefaultLatitude != 55.7961 || cfg.Catalog.DefaultLongitude != 49.1064 {
		t.Errorf("default location = %v,%v, want Kazan", cfg.Catalog.DefaultLatitude, cfg.Catalog.DefaultLongitude)
	}
	if cfg.Catalog.DefaultRadiusKm != 10 {
		t.Errorf("Catalog.DefaultRadiusKm = %v, want 10", cfg.Catalog.DefaultRadiusKm)
	}
	if cfg.Catalog.NearestRadiusKm != 2 {
		t.Errorf("Catalog.NearestRadiusKm = %v, want 2", cfg.Catalog.NearestRadiusKm)
	}
	if cfg.Upstream.Timeout != 15*time.Second {
		t.Errorf("Upstream.Timeout = %v, want 15s", cfg.Upstream.Timeout)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadWithKoanf_EnvOverrides(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("MYTHS_API_URL", "https://myths.example.org")
	t.Setenv("MYTHS_API_MAX_RETRIES", "5")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("CORS_ORIGINS", "https://a.example.org, https://b.example.org")
	t.Setenv("CATALOG_REFRESH_INTERVAL", "2m")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("UNRELATED_VARIABLE", "ignored")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}
	if cfg.Upstream.BaseURL != "https://myths.example.org" {
		t.Errorf("Upstream.BaseURL = %q", cfg.Upstream.BaseURL)
	}
	if cfg.Upstream.MaxRetries != 5 {
		t.Errorf("Upstream.MaxRetries = %d, want 5", cfg.Upstream.MaxRetries)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	want := []string{"https://a.example.org", "https://b.example.org"}
	if !reflect.DeepEqual(cfg.Server.CORSOrigins, want) {
		t.Errorf("Server.CORSOrigins = %v, want %v", cfg.Server.CORSOrigins, want)
	}
	if cfg.Catalog.RefreshInterval != 2*time.Minute {
		t.Errorf("Catalog.RefreshInterval = %v, want 2m", cfg.Catalog.RefreshInterval)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoadWithKoanf_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
upstream:
  base_url: http://file.example.org
  timeout: 3s
catalog:
  default_radius_km: 4
logging:
  format: console
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}
	if cfg.Upstream.BaseURL != "http://file.example.org" || cfg.Upstream.Timeout != 3*time.Second {
		t.Errorf("file values not applied: %+v", cfg.Upstream)
	}
	if cfg.Catalog.DefaultRadiusKm != 4 {
		t.Errorf("Catalog.DefaultRadiusKm = %v, want 4", cfg.Catalog.DefaultRadiusKm)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("env should override file: Logging.Format = %q", cfg.Logging.Format)
	}
	// untouched defaults survive
	if cfg.Catalog.NearestRadiusKm != 2 {
		t.Errorf("Catalog.NearestRadiusKm = %v, want 2", cfg.Catalog.NearestRadiusKm)
	}
}

func TestLoadWithKoanf_InvalidAborts(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("MYTHS_API_URL", "ftp://myths.example.org")

	if _, err := LoadWithKoanf(); err == nil || !strings.Contains(err.Error(), "MYTHS_API_URL") {
		t.Errorf("LoadWithKoanf() error = %v, want MYTHS_API_URL failure", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"empty upstream", func(c *Config) { c.Upstream.BaseURL = "" }, "MYTHS_API_URL is required"},
		{"upstream with path", func(c *Config) { c.Upstream.BaseURL = "http://x.org/api" }, "must not include a path"},
		{"upstream trailing slash", func(c *Config) { c.Upstream.BaseURL = "https://myths.example.org/" }, ""},
		{"upstream with query", func(c *Config) { c.Upstream.BaseURL = "https://myths.example.org?x=1" }, "query or fragment"},
		{"upstream without host", func(c *Config) { c.Upstream.BaseURL = "https://" }, "has no host"},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "HTTP_PORT"},
		{"bad cors origin", func(c *Config) { c.Server.CORSOrigins = []string{"not a url"} }, "CORS_ORIGINS"},
		{"wildcard cors", func(c *Config) { c.Server.CORSOrigins = []string{"*"} }, ""},
		{"radius too large", func(c *Config) { c.Catalog.DefaultRadiusKm = 25 }, "DEFAULT_RADIUS_KM"},
		{"latitude out of range", func(c *Config) { c.Catalog.DefaultLatitude = 91 }, "DEFAULT_LATITUDE"},
		{"max age below interval", func(c *Config) { c.Catalog.MaxAge = time.Minute }, "CATALOG_MAX_AGE"},
		{"breaker ratio", func(c *Config) { c.Upstream.BreakerFailureRatio = 0 }, "FAILURE_RATIO"},
		{"rate limit without burst", func(c *Config) { c.Upstream.RateLimitBurst = 0 }, "RATE_BURST"},
		{"rate limit off", func(c *Config) { c.Upstream.RateLimitRPS = 0; c.Upstream.RateLimitBurst = 0 }, ""},
		{"session capacity", func(c *Config) { c.Session.MaxSessions = 0 }, "SESSION_MAX"},
		{"log level", func(c *Config) { c.Logging.Level = "loud" }, "LOG_LEVEL"},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }, "LOG_FORMAT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestEnvTransformFunc(t *testing.T) {
	t.Parallel()

	if got := envTransformFunc("MYTHS_API_URL"); got != "upstream.base_url" {
		t.Errorf("envTransformFunc(MYTHS_API_URL) = %q", got)
	}
	if got := envTransformFunc("PATH"); got != "" {
		t.Errorf("unmapped variables must be skipped, got %q", got)
	}
}

func TestServerConfig_Addr(t *testing.T) {
	t.Parallel()

	s := ServerConfig{Host: "127.0.0.1", Port: 8080}
	if s.Addr() != "127.0.0.1:8080" {
		t.Errorf("Addr() = %q", s.Addr())
	}
}
