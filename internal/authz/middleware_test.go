// Mythmap - Myths and Legends Map Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mythmap

package authz

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tomtom215/mythmap/internal/models"
	"github.com/tomtom215/mythmap/internal/session"
)

func requestAs(method string, s *session.Session) *http.Request {
	r := httptest.NewRequest(method, "/api/v1/test", nil)
	if s != nil {
		r = r.WithContext(session.WithSession(r.Context(), s))
	}
	return r
}

func TestMiddleware_Require(t *testing.T) {
	t.Parallel()

	e := setupEnforcer(t, nil)
	now := time.Now()
	user := session.New("t1", models.User{ID: "1", Username: "anna"}, now)
	moder := session.New("t2", models.User{ID: "2", Username: "moder", Groups: []string{models.ModeratorsGroup}}, now)
	admin := session.New("t3", models.User{ID: "3", Username: "root", IsSuperuser: true}, now)

	tests := []struct {
		name       string
		session    *session.Session
		wantStatus int
		wantErr    error
	}{
		{"anonymous is asked to sign in", nil, http.StatusUnauthorized, session.ErrNoSession},
		{"user is forbidden", user, http.StatusForbidden, ErrForbidden},
		{"moderator passes", moder, http.StatusOK, nil},
		{"admin passes", admin, http.StatusOK, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var deniedWith error
			m := NewMiddleware(e, func(w http.ResponseWriter, _ *http.Request, status int, err error) {
				deniedWith = err
				w.WriteHeader(status)
			})

			called := false
			h := m.Require("moderation", ActionWrite)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				called = true
				w.WriteHeader(http.StatusOK)
			}))

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, requestAs(http.MethodPost, tt.session))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if called != (tt.wantStatus == http.StatusOK) {
				t.Errorf("handler called = %v", called)
			}
			if !errors.Is(deniedWith, tt.wantErr) {
				t.Errorf("deny error = %v, want %v", deniedWith, tt.wantErr)
			}
		})
	}
}

func TestMiddleware_ResourceUsesMethod(t *testing.T) {
	t.Parallel()

	e := setupEnforcer(t, nil)
	m := NewMiddleware(e, nil)
	h := m.Resource("places")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, requestAs(http.MethodGet, nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("GET status = %d, want 204", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, requestAs(http.MethodPost, nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("POST status = %d, want 401", rec.Code)
	}
}

func TestMethodToAction(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		http.MethodGet:     ActionRead,
		http.MethodHead:    ActionRead,
		http.MethodOptions: ActionRead,
		http.MethodPost:    ActionWrite,
		http.MethodPatch:   ActionWrite,
		http.MethodDelete:  ActionWrite,
	}
	for method, want := range tests {
		if got := methodToAction(method); got != want {
			t.Errorf("methodToAction(%s) = %s, want %s", method, got, want)
		}
	}
}
