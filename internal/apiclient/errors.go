// Mythmap - Myths and Legends Map Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mythmap

package apiclient

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"
)

// ErrUnavailable is returned while the circuit breaker rejects calls.
var ErrUnavailable = errors.New("myths api unavailable")

// ErrRateLimited is returned when retries on HTTP 429/503 are exhausted.
var ErrRateLimited = errors.New("myths api rate limit exceeded")

// HTTPError is a non-2xx upstream response.
type HTTPError struct {
	Operation  string
	StatusCode int
	Detail     string // upstream "detail" message, when present
	Body       string // truncated raw body
}

func (e *HTTPError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: upstream returned %d: %s", e.Operation, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("%s: upstream returned %d", e.Operation, e.StatusCode)
}

// Temporary reports whether retrying later may succeed.
func (e *HTTPError) Temporary() bool {
	return e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusTooManyRequests
}

// IsStatus reports whether err wraps an HTTPError with the given status code.
func IsStatus(err error, code int) bool {
	var he *HTTPError
	return errors.As(err, &he) && he.StatusCode == code
}

func newHTTPError(op string, status int, body []byte) *HTTPError {
	return &HTTPError{
		Operation:  op,
		StatusCode: status,
		Detail:     upstreamDetail(body),
		Body:       truncate(body, maxErrorBodySize),
	}
}

// upstreamDetail extracts the human readable message from a REST framework
// error body: {"detail": "..."} or {"non_field_errors": ["..."]}.
func upstreamDetail(body []byte) string {
	var payload struct {
		Detail         string   `json:"detail"`
		NonFieldErrors []string `json:"non_field_errors"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Detail != "" {
		return payload.Detail
	}
	if len(payload.NonFieldErrors) > 0 {
		return payload.NonFieldErrors[0]
	}
	return ""
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "...(truncated)"
}
