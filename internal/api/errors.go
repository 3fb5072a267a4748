// Mythmap - Myths and Legends Map Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mythmap

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/tomtom215/mythmap/internal/apiclient"
	"github.com/tomtom215/mythmap/internal/authz"
	"github.com/tomtom215/mythmap/internal/catalog"
	"github.com/tomtom215/mythmap/internal/logging"
	"github.com/tomtom215/mythmap/internal/moderation"
	"github.com/tomtom215/mythmap/internal/session"
	"github.com/tomtom215/mythmap/internal/validation"
)

// errorResponse is the status, code and message an error maps to.
type errorResponse struct {
	status  int
	code    string
	message string
	details any
}

// classify maps service and upstream errors to envelope errors. Upstream
// 4xx responses are relayed with the upstream detail; anything unexpected
// becomes a 500 with a generic message.
func classify(err error) errorResponse {
	var (
		verr   *validation.RequestValidationError
		herr   *apiclient.HTTPError
		decErr *apiclient.DecodeError
	)

	switch {
	case errors.As(err, &verr):
		apiErr := verr.ToAPIError()
		resp := errorResponse{status: http.StatusBadRequest, code: ErrCodeValidation, message: apiErr.Message}
		if apiErr.Details != nil {
			resp.details = apiErr.Details
		}
		return resp
	case errors.Is(err, session.ErrInvalidCredentials):
		return errorResponse{status: http.StatusUnauthorized, code: ErrCodeInvalidCredentials, message: "Invalid username or password"}
	case errors.Is(err, session.ErrNoSession):
		return errorResponse{status: http.StatusUnauthorized, code: ErrCodeUnauthorized, message: "Authentication required"}
	case errors.Is(err, moderation.ErrForbidden), errors.Is(err, authz.ErrForbidden):
		return errorResponse{status: http.StatusForbidden, code: ErrCodeForbidden, message: "Insufficient permissions"}
	case errors.Is(err, errBadParam), errors.Is(err, apiclient.ErrInvalidModeration), errors.Is(err, catalog.ErrNoLocation):
		return errorResponse{status: http.StatusBadRequest, code: ErrCodeBadRequest, message: err.Error()}
	case errors.Is(err, apiclient.ErrUnavailable), errors.Is(err, catalog.ErrNotLoaded):
		return errorResponse{status: http.StatusServiceUnavailable, code: ErrCodeServiceUnavailable, message: "Myths API is temporarily unavailable"}
	case errors.Is(err, apiclient.ErrRateLimited):
		return errorResponse{status: http.StatusServiceUnavailable, code: ErrCodeTooManyRequests, message: "Myths API is rate limiting requests"}
	case errors.As(err, &decErr):
		return errorResponse{status: http.StatusBadGateway, code: ErrCodeUpstreamMalformed, message: "Myths API returned an unexpected response"}
	case errors.As(err, &herr):
		return classifyHTTP(herr)
	case errors.Is(err, context.DeadlineExceeded):
		return errorResponse{status: http.StatusGatewayTimeout, code: ErrCodeTimeout, message: "Myths API did not respond in time"}
	default:
		return errorResponse{status: http.StatusInternalServerError, code: ErrCodeInternalError, message: "Internal server error"}
	}
}

func classifyHTTP(herr *apiclient.HTTPError) errorResponse {
	message := herr.Detail
	switch herr.StatusCode {
	case http.StatusNotFound:
		if message == "" {
			message = "Not found"
		}
		return errorResponse{status: http.StatusNotFound, code: ErrCodeNotFound, message: message}
	case http.StatusUnauthorized:
		return errorResponse{status: http.StatusUnauthorized, code: ErrCodeUnauthorized, message: "Authentication required"}
	case http.StatusForbidden:
		return errorResponse{status: http.StatusForbidden, code: ErrCodeForbidden, message: "Insufficient permissions"}
	}
	if herr.StatusCode >= 400 && herr.StatusCode < 500 {
		if message == "" {
			message = "Myths API rejected the request"
		}
		return errorResponse{status: http.StatusBadRequest, code: ErrCodeUpstreamRejected, message: message}
	}
	return errorResponse{status: http.StatusBadGateway, code: ErrCodeUpstreamFailed, message: "Myths API request failed"}
}

// respondError writes err as an envelope error, logging server side failures.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	resp := classify(err)
	if resp.status >= http.StatusInternalServerError {
		logging.Ctx(r.Context()).Error().Err(err).Int("status", resp.status).Str("path", r.URL.Path).Msg("Request failed")
	} else {
		logging.Ctx(r.Context()).Debug().Err(err).Int("status", resp.status).Str("path", r.URL.Path).Msg("Request rejected")
	}
	NewResponseWriter(w, r).ErrorWithDetails(resp.status, resp.code, resp.message, resp.details)
}

// denyRequest adapts respondError to authz.DenyFunc.
func denyRequest(w http.ResponseWriter, r *http.Request, _ int, err error) {
	respondError(w, r, err)
}
