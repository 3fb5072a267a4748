// Mythmap - Myths and Legends Map Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mythmap

/*
Package middleware provides HTTP middleware components for the gateway.

Key Components:

  - Request ID: UUID-based request tracking; the id and a correlation id are
    stored in the request context so every log line and upstream call of a
    request can be tied together
  - Prometheus Metrics: HTTP request/response instrumentation labelled by
    chi route pattern

Both are chi-compatible (func(http.Handler) http.Handler):

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)

Prometheus metrics exposed:

  - mythmap_api_requests_total{method, endpoint, status}
  - mythmap_api_request_duration_seconds{method, endpoint}
  - mythmap_api_active_requests
*/
package middleware
