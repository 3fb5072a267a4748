// Mythmap - Myths and Legends Map Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mythmap

/*
Command server runs the Mythmap gateway.

Mythmap fronts the myths and legends REST API. It keeps per-session place
snapshots for fast map filtering (categories, favorites, near-me radius and
text search), resolves note and comment place references, and relays sign in,
submissions and moderation decisions upstream.

# Initialization

 1. Configuration: koanf v2 (defaults, optional config.yaml, environment)
 2. Logging: zerolog, JSON or console
 3. Upstream client: retries, outbound rate limit, circuit breaker
 4. Catalog service and session manager
 5. Event bus: watermill GoChannel; moderation decisions invalidate catalogs
 6. Authorization: Casbin enforcer with embedded or file policy
 7. Supervisor tree: suture v4 with catalog, events and api layers

# Configuration

	MYTHS_API_URL=https://myths.example.org   (required)
	HTTP_PORT=8080
	LOG_LEVEL=info
	AUTHZ_POLICY_PATH=/etc/mythmap/policy.csv

See package config for the full list.

# Signals

SIGINT and SIGTERM stop the supervisor tree; the HTTP server drains for
HTTP_SHUTDOWN_TIMEOUT. SIGHUP reloads a file based authorization policy.
*/
package main
