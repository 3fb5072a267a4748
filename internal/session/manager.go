// Mythmap - Myths and Legends Map Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mythmap

package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/mythmap/internal/apiclient"
	"github.com/tomtom215/mythmap/internal/config"
	"github.com/tomtom215/mythmap/internal/logging"
	"github.com/tomtom215/mythmap/internal/metrics"
	"github.com/tomtom215/mythmap/internal/models"
)

// Upstream is the part of the myths API the manager needs.
type Upstream interface {
	Login(ctx context.Context, username, password string) (apiclient.LoginResult, error)
	Register(ctx context.Context, username, email, password string) (apiclient.LoginResult, error)
	Logout(ctx context.Context, auth apiclient.Authorizer) error
	Profile(ctx context.Context, auth apiclient.Authorizer) (models.User, error)
}

// rawToken authorizes a request before a Session exists.
type rawToken string

func (t rawToken) AuthToken() string { return string(t) }

type entry struct {
	session  *Session
	lastSeen time.Time
}

// Manager owns the session lifecycle and the in-memory registry of live
// sessions, keyed by token.
type Manager struct {
	upstream Upstream
	cfg      config.SessionConfig
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
	hooks    []func(key string)

	resolving singleflight.Group
}

// NewManager creates a manager. It is created once at startup and injected
// into the HTTP layer.
func NewManager(upstream Upstream, cfg config.SessionConfig) *Manager {
	return &Manager{
		upstream: upstream,
		cfg:      cfg,
		now:      time.Now,
		sessions: make(map[string]*entry),
	}
}

// OnClose registers fn to run whenever a session ends: logout, idle expiry
// or eviction. fn receives the session Key.
func (m *Manager) OnClose(fn func(key string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, fn)
}

// Start logs in upstream and loads the user profile.
func (m *Manager) Start(ctx context.Context, username, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	res, err := m.upstream.Login(ctx, username, password)
	if err != nil {
		logging.Audit(ctx, logging.AuditEvent{Action: "login", Username: username, Success: false, Reason: err.Error()})
		if apiclient.IsStatus(err, http.StatusBadRequest) || apiclient.IsStatus(err, http.StatusUnauthorized) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
		}
		return nil, fmt.Errorf("login: %w", err)
	}

	return m.establish(ctx, "login", res.Token)
}

// Register creates an upstream account and signs it in. Field errors from
// the upstream (taken username, weak password) are returned as HTTP 400
// errors for the caller to relay.
func (m *Manager) Register(ctx context.Context, username, email, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	res, err := m.upstream.Register(ctx, username, strings.TrimSpace(email), password)
	if err != nil {
		logging.Audit(ctx, logging.AuditEvent{Action: "register", Username: username, Success: false, Reason: err.Error()})
		return nil, fmt.Errorf("register: %w", err)
	}
	return m.establish(ctx, "register", res.Token)
}

// establish loads the profile behind a fresh token and registers the session.
func (m *Manager) establish(ctx context.Context, action, token string) (*Session, error) {
	user, err := m.upstream.Profile(ctx, rawToken(token))
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	s := New(token, user, m.now())
	m.register(s)
	logging.Audit(ctx, logging.AuditEvent{Action: action, Username: s.Username(), Success: true})
	return s, nil
}

// Resume returns the live session for token, validating unknown tokens
// against the upstream profile endpoint. Rejected tokens yield ErrNoSession.
func (m *Manager) Resume(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrNoSession
	}
	if s, ok := m.lookup(token); ok {
		return s, nil
	}

	v, err, _ := m.resolving.Do(token, func() (any, error) {
		if s, ok := m.lookup(token); ok {
			return s, nil
		}
		user, err := m.upstream.Profile(ctx, rawToken(token))
		if err != nil {
			if apiclient.IsStatus(err, http.StatusUnauthorized) || apiclient.IsStatus(err, http.StatusForbidden) {
				return nil, ErrNoSession
			}
			return nil, fmt.Errorf("resume session: %w", err)
		}
		s := New(token, user, m.now())
		m.register(s)
		logging.Ctx(ctx).Debug().Str("username", logging.SanitizeUsername(s.Username())).Msg("Session resumed")
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

// Close logs out upstream and forgets the session. The session is forgotten
// even when the upstream call fails.
func (m *Manager) Close(ctx context.Context, s *Session) error {
	if s == nil {
		return ErrNoSession
	}
	err := m.upstream.Logout(ctx, s)
	m.forget(s.Key())
	if err != nil && !apiclient.IsStatus(err, http.StatusUnauthorized) {
		logging.Audit(ctx, logging.AuditEvent{Action: "logout", Username: s.Username(), Success: false, Reason: err.Error()})
		return fmt.Errorf("logout: %w", err)
	}
	logging.Audit(ctx, logging.AuditEvent{Action: "logout", Username: s.Username(), Success: true})
	return nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep forgets sessions idle for longer than the configured timeout and
// returns how many were removed.
func (m *Manager) Sweep() int {
	cutoff := m.now().Add(-m.cfg.IdleTimeout)

	m.mu.Lock()
	var expired []string
	for key, e := range m.sessions {
		if e.lastSeen.Before(cutoff) {
			delete(m.sessions, key)
			expired = append(expired, key)
		}
	}
	hooks := m.hooks
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	m.mu.Unlock()

	for _, key := range expired {
		runHooks(hooks, key)
	}
	return len(expired)
}

// Serve sweeps idle sessions until ctx is done. It implements suture.Service.
func (m *Manager) Serve(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				logging.Info().Int("expired", n).Int("active", m.Len()).Msg("Swept idle sessions")
			}
		}
	}
}

// String names the janitor service in supervisor logs.
func (m *Manager) String() string { return "session-janitor" }

func (m *Manager) lookup(token string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[token]
	if !ok {
		return nil, false
	}
	e.lastSeen = m.now()
	return e.session, true
}

func (m *Manager) register(s *Session) {
	m.mu.Lock()
	var evicted string
	if _, exists := m.sessions[s.Key()]; !exists && len(m.sessions) >= m.cfg.MaxSessions {
		evicted = m.oldestLocked()
		delete(m.sessions, evicted)
	}
	m.sessions[s.Key()] = &entry{session: s, lastSeen: m.now()}
	hooks := m.hooks
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	m.mu.Unlock()

	if evicted != "" {
		logging.Warn().Int("capacity", m.cfg.MaxSessions).Msg("Session registry full, evicted least recently seen session")
		runHooks(hooks, evicted)
	}
}

func (m *Manager) forget(key string) {
	m.mu.Lock()
	_, ok := m.sessions[key]
	delete(m.sessions, key)
	hooks := m.hooks
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	m.mu.Unlock()

	if ok {
		runHooks(hooks, key)
	}
}

func (m *Manager) oldestLocked() string {
	var (
		oldestKey string
		oldest    time.Time
	)
	for key, e := range m.sessions {
		if oldestKey == "" || e.lastSeen.Before(oldest) {
			oldestKey, oldest = key, e.lastSeen
		}
	}
	return oldestKey
}

func runHooks(hooks []func(string), key string) {
	for _, fn := range hooks {
		fn(key)
	}
}

// IsAuthError reports whether err means the request lacks a usable session.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrNoSession) || errors.Is(err, ErrInvalidCredentials)
}
