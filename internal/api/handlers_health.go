// Mythmap - Myths and Legends Map Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mythmap

package api

import (
	"net/http"
	"time"
)

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status         string  `json:"status"`
	UpstreamState  string  `json:"upstream_breaker"`
	ActiveSessions int     `json:"active_sessions"`
	CachedCatalogs int     `json:"cached_catalogs"`
	Uptime         float64 `json:"uptime_seconds"`
}

// Health handles health check requests
//
// @Summary Get gateway health status
// @Description Returns the upstream circuit breaker state, session and catalog counts, and uptime
// @Tags Core
// @Produce json
// @Success 200 {object} APIResponse{data=HealthStatus} "Health status retrieved successfully"
// @Router /health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	breaker := "unknown"
	if h.upstream != nil {
		breaker = h.upstream.BreakerState()
	}

	// An open breaker means the myths API is failing; the gateway still
	// serves cached snapshots, so it reports degraded instead of failing.
	status := "healthy"
	if breaker != "closed" {
		status = "degraded"
	}

	health := HealthStatus{
		Status:        status,
		UpstreamState: breaker,
		Uptime:        time.Since(h.startTime).Seconds(),
	}
	if h.sessions != nil {
		health.ActiveSessions = h.sessions.Len()
	}
	if h.catalog != nil {
		health.CachedCatalogs = h.catalog.Len()
	}

	WriteSuccess(w, r, health)
}
