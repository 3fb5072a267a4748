// Mythmap - Myths and Legends Map Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mythmap

package authz

import (
	"errors"
	"net/http"

	"github.com/tomtom215/mythmap/internal/logging"
	"github.com/tomtom215/mythmap/internal/session"
)

// ErrForbidden is reported when a signed in user lacks the permission.
var ErrForbidden = errors.New("insufficient permissions")

// DenyFunc writes the response for a refused request.
type DenyFunc func(w http.ResponseWriter, r *http.Request, status int, err error)

// Middleware provides authorization middleware using Casbin.
type Middleware struct {
	enforcer *Enforcer
	deny     DenyFunc
}

// NewMiddleware creates a new authorization middleware. A nil deny writes a
// plain text error.
func NewMiddleware(enforcer *Enforcer, deny DenyFunc) *Middleware {
	if deny == nil {
		deny = func(w http.ResponseWriter, _ *http.Request, status int, err error) {
			http.Error(w, err.Error(), status)
		}
	}
	return &Middleware{enforcer: enforcer, deny: deny}
}

// Require enforces a fixed object and action for the session carried by the
// request context.
func (m *Middleware) Require(object, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.authorize(w, r, object, action) {
				next.ServeHTTP(w, r)
			}
		})
	}
}

// Resource enforces object with the action derived from the HTTP method.
func (m *Middleware) Resource(object string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.authorize(w, r, object, methodToAction(r.Method)) {
				next.ServeHTTP(w, r)
			}
		})
	}
}

func (m *Middleware) authorize(w http.ResponseWriter, r *http.Request, object, action string) bool {
	s, _ := session.FromContext(r.Context())
	role := s.Role()

	allowed, err := m.enforcer.Enforce(role, object, action)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Str("component", "authz").Msg("Authorization error")
		m.deny(w, r, http.StatusInternalServerError, err)
		return false
	}
	if allowed {
		return true
	}

	logging.Ctx(r.Context()).Debug().
		Str("component", "authz").
		Str("role", role).
		Str("object", object).
		Str("action", action).
		Msg("Request denied")

	if s == nil {
		m.deny(w, r, http.StatusUnauthorized, session.ErrNoSession)
		return false
	}
	m.deny(w, r, http.StatusForbidden, ErrForbidden)
	return false
}

// methodToAction maps HTTP methods to Casbin actions.
func methodToAction(method string) string {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return ActionWrite
	default:
		return ActionRead
	}
}
