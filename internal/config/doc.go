// Mythmap - Myths and Legends Map Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mythmap

/*
Package config provides centralized configuration management for Mythmap.

Configuration is layered with koanf, later layers overriding earlier ones:

 1. Built-in defaults (defaultConfig)
 2. Optional YAML file (CONFIG_PATH, config.yaml, /etc/mythmap/config.yaml)
 3. Environment variables, mapped explicitly by envTransformFunc

# Sections

  - UpstreamConfig: myths API base URL, timeouts, retries, outbound rate limit
    and circuit breaker thresholds
  - ServerConfig: HTTP listener, CORS origins and inbound rate limit
  - CatalogConfig: place snapshot refresh cadence, default map location and
    radius settings
  - LoggingConfig: zerolog level and format
  - SessionConfig: session registry capacity and idle timeout
  - SupervisorConfig: suture failure handling
  - AuthzConfig: casbin model and policy overrides

# Environment Variables

Upstream:
  - MYTHS_API_URL: base URL of the myths REST API (required)
  - MYTHS_API_TIMEOUT: per request timeout (default: 15s)
  - MYTHS_API_MAX_RETRIES: retries on 429/503 (default: 3)
  - MYTHS_API_RATE_LIMIT: outbound requests per second (default: 20)

Server:
  - HTTP_HOST, HTTP_PORT: listener (default: 0.0.0.0:8080)
  - CORS_ORIGINS: comma separated list of allowed origins
  - RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW: per client inbound limit

Catalog:
  - CATALOG_REFRESH_INTERVAL: background refresh period (default: 5m)
  - DEFAULT_LATITUDE, DEFAULT_LONGITUDE: map center (default: Kazan)

Logging:
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}
*/
package config
