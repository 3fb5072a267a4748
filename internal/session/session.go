// Mythmap - Myths and Legends Map Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mythmap

// Package session owns the authenticated user state of the gateway.
//
// A Session is created by Manager.Start or Manager.Resume, passed explicitly
// (or through a request context) to everything that needs the current user,
// and torn down by Manager.Close. Nothing reads the current user from global
// state. A nil *Session is the anonymous visitor.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/mythmap/internal/models"
)

// ErrNoSession is returned when an operation needs a signed in user.
var ErrNoSession = errors.New("no active session")

// ErrInvalidCredentials is returned when the upstream rejects a login.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Session is an authenticated user. It is immutable once created.
type Session struct {
	token     string
	user      models.User
	startedAt time.Time
}

// New creates a session value. Manager is the normal way to obtain one.
func New(token string, user models.User, startedAt time.Time) *Session {
	u := user.Normalized()
	u.Groups = append([]string(nil), u.Groups...)
	return &Session{token: token, user: u, startedAt: startedAt}
}

// AuthToken returns the upstream token, or "" for a nil session.
func (s *Session) AuthToken() string {
	if s == nil {
		return ""
	}
	return s.token
}

// User returns a copy of the signed in user, or nil for a nil session.
func (s *Session) User() *models.User {
	if s == nil {
		return nil
	}
	u := s.user
	u.Groups = append([]string(nil), s.user.Groups...)
	return &u
}

// UserID returns the user id, or the zero id for a nil session.
func (s *Session) UserID() models.ID {
	if s == nil {
		return ""
	}
	return s.user.ID
}

// Username returns the user name, or "" for a nil session.
func (s *Session) Username() string {
	if s == nil {
		return ""
	}
	return s.user.Username
}

// StartedAt returns when the session was created.
func (s *Session) StartedAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.startedAt
}

// Role returns the authorization role of the user: anonymous, user, moderator or admin.
func (s *Session) Role() string {
	if s == nil {
		return (*models.User)(nil).Role()
	}
	return s.user.Role()
}

// IsModeratorOrAdmin reports whether the user may moderate submissions.
func (s *Session) IsModeratorOrAdmin() bool {
	if s == nil {
		return false
	}
	return s.user.IsModeratorOrAdmin()
}

// Key identifies the session in per-user caches. Anonymous visitors share "".
func (s *Session) Key() string {
	return s.AuthToken()
}

type contextKey struct{}

// WithSession returns a context carrying s.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session carried by ctx. It reports false for
// anonymous requests.
func FromContext(ctx context.Context) (*Session, bool) {
	s, _ := ctx.Value(contextKey{}).(*Session)
	return s, s != nil
}

// Require returns the session carried by ctx, or ErrNoSession.
func Require(ctx context.Context) (*Session, error) {
	s, ok := FromContext(ctx)
	if !ok {
		return nil, ErrNoSession
	}
	return s, nil
}
