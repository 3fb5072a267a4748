// Mythmap - Myths and Legends Map Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mythmap

// Package metrics exposes the gateway's Prometheus collectors.
//
// Collectors are registered on the default registry through promauto and served
// at /metrics. Recording helpers keep label handling in one place so call sites
// stay one line long.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Gateway API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mythmap_api_requests_total",
			Help: "Total number of gateway API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mythmap_api_request_duration_seconds",
			Help:    "Gateway API request latency in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mythmap_api_active_requests",
			Help: "Gateway API requests currently being served",
		},
	)

	// Upstream Client Metrics
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mythmap_upstream_requests_total",
			Help: "Total number of requests sent to the myths API",
		},
		[]string{"operation", "status"}, // status: HTTP code, "transport" or "rejected"
	)

	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mythmap_upstream_request_duration_seconds",
			Help:    "Latency of requests to the myths API in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	UpstreamDecodeErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mythmap_upstream_decode_errors_total",
			Help: "Responses whose shape did not match any known envelope",
		},
		[]string{"operation"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Catalog Metrics
	CatalogPlaces = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mythmap_catalog_places",
			Help: "Places in the current catalog snapshot",
		},
	)

	CatalogGeneration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mythmap_catalog_generation",
			Help: "Generation of the committed catalog snapshot",
		},
	)

	CatalogStaleDiscarded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mythmap_catalog_stale_discarded_total",
			Help: "Fetch results discarded because a newer fetch had started",
		},
	)

	CatalogRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mythmap_catalog_refreshes_total",
			Help: "Catalog refresh attempts",
		},
		[]string{"trigger", "result"},
	)

	FilterDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mythmap_filter_duration_seconds",
			Help:    "Time spent filtering or searching the catalog",
			Buckets: []float64{.00001, .0001, .001, .01, .1},
		},
		[]string{"mode"},
	)

	// Cross-reference Metrics
	XrefResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mythmap_xref_resolutions_total",
			Help: "Annotation place references resolved, by outcome",
		},
		[]string{"state"}, // resolved, orphaned, missing
	)

	XrefBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mythmap_xref_batch_size",
			Help:    "Number of ids per batched place lookup",
			Buckets: []float64{1, 5, 10, 25, 50, 100},
		},
	)

	// Moderation Metrics
	ModerationDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mythmap_moderation_decisions_total",
			Help: "Moderation decisions forwarded upstream",
		},
		[]string{"kind", "action", "result"},
	)

	ModerationQueueSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mythmap_moderation_queue_size",
			Help: "Pending items seen on the last queue load",
		},
		[]string{"kind"},
	)

	// Session Metrics
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mythmap_active_sessions",
			Help: "Sessions currently held by the gateway",
		},
	)

	// Event Bus Metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mythmap_events_published_total",
			Help: "Events published on the in-process bus",
		},
		[]string{"topic"},
	)
)

// RecordAPIRequest records a gateway API request.
func RecordAPIRequest(method, endpoint string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the in-flight gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordUpstreamRequest records one call to the myths API. status is the HTTP
// status code, or 0 for a transport failure.
func RecordUpstreamRequest(operation string, status int, duration time.Duration) {
	label := "transport"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	UpstreamRequestsTotal.WithLabelValues(operation, label).Inc()
	UpstreamRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordCatalogCommit updates the snapshot gauges, or counts a discarded commit.
func RecordCatalogCommit(generation uint64, places int, accepted bool) {
	if !accepted {
		CatalogStaleDiscarded.Inc()
		return
	}
	CatalogGeneration.Set(float64(generation))
	CatalogPlaces.Set(float64(places))
}

// RecordCatalogRefresh counts a refresh attempt.
func RecordCatalogRefresh(trigger string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	CatalogRefreshes.WithLabelValues(trigger, result).Inc()
}

// RecordModerationDecision counts a forwarded approve or reject.
func RecordModerationDecision(kind, action string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	ModerationDecisions.WithLabelValues(kind, action, result).Inc()
}
