// Mythmap - Myths and Legends Map Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mythmap

package api

import (
	"net/http"
	"testing"
)

func TestLogin(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"missing password", `{"username":"anna"}`, http.StatusBadRequest, ErrCodeValidation},
		{"blank username", `{"username":"   ","password":"x"}`, http.StatusBadRequest, ErrCodeValidation},
		{"wrong password", `{"username":"anna","password":"wrong"}`, http.StatusUnauthorized, ErrCodeInvalidCredentials},
		{"malformed body", `username=anna`, http.StatusBadRequest, ErrCodeBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t)
			rec := env.do(t, http.MethodPost, "/api/v1/auth/login", tt.body, nil)
			expectError(t, rec, tt.status, tt.code)
		})
	}
}

func TestLogin_Success(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/v1/auth/login", `{"username":" boris ","password":"correct horse"}`, nil)

	var info SessionInfo
	expectSuccess(t, rec, http.StatusOK, &info)
	if info.Token != "tok-boris" {
		t.Errorf("token = %q, want tok-boris", info.Token)
	}
	if info.User.Username != "boris" || info.Role != "user" || info.RoleLabel != "Пользователь" {
		t.Errorf("info = %+v", info)
	}

	// The issued token works on the next request.
	s, err := env.sessions.Resume(t.Context(), info.Token)
	if err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	rec = env.do(t, http.MethodGet, "/api/v1/auth/me", "", s)
	var me SessionInfo
	expectSuccess(t, rec, http.StatusOK, &me)
	if me.Token != "" {
		t.Errorf("/auth/me leaked the token")
	}
	if me.User.Username != "boris" {
		t.Errorf("me = %+v", me)
	}
}

func TestRegister(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/auth/register", `{"username":"vera","email":"vera@example.com","password":"correct horse"}`, nil)
	var info SessionInfo
	expectSuccess(t, rec, http.StatusCreated, &info)
	if info.Token != "tok-vera" {
		t.Errorf("token = %q", info.Token)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/auth/register", `{"username":"vera","email":"not-an-email","password":"correct horse"}`, nil)
	expectError(t, rec, http.StatusBadRequest, ErrCodeValidation)

	rec = env.do(t, http.MethodPost, "/api/v1/auth/register", `{"username":"vera","password":"short"}`, nil)
	expectError(t, rec, http.StatusBadRequest, ErrCodeValidation)

	rec = env.do(t, http.MethodPost, "/api/v1/auth/register", `{"username":"taken","password":"correct horse"}`, nil)
	resp := expectError(t, rec, http.StatusBadRequest, ErrCodeUpstreamRejected)
	if resp.Error.Message != "username taken" {
		t.Errorf("message = %q, want the upstream detail", resp.Error.Message)
	}
}

func TestLogout(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/auth/logout", "", nil)
	expectError(t, rec, http.StatusUnauthorized, ErrCodeUnauthorized)

	rec = env.do(t, http.MethodPost, "/api/v1/auth/logout", "", testUser)
	expectSuccess(t, rec, http.StatusOK, nil)
	if len(env.sessions.closed) != 1 || env.sessions.closed[0] != testUser.Key() {
		t.Errorf("closed = %v", env.sessions.closed)
	}

	// The revoked token is rejected instead of silently treated as anonymous.
	rec = env.do(t, http.MethodGet, "/api/v1/places", "", testUser)
	expectError(t, rec, http.StatusUnauthorized, ErrCodeUnauthorized)
}
