// Mythmap - Myths and Legends Map Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mythmap

package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/tomtom215/mythmap/internal/models"
	"github.com/tomtom215/mythmap/internal/session"
)

// SessionInfo describes a signed in session. Token is only returned by login
// and register.
type SessionInfo struct {
	Token     string      `json:"token,omitempty"`
	User      models.User `json:"user"`
	Role      string      `json:"role"`
	RoleLabel string      `json:"role_label"`
	StartedAt time.Time   `json:"started_at"`
}

func sessionInfo(s *session.Session, withToken bool) SessionInfo {
	info := SessionInfo{Role: s.Role(), StartedAt: s.StartedAt()}
	if u := s.User(); u != nil {
		info.User = *u
		info.RoleLabel = u.RoleLabel()
	}
	if withToken {
		info.Token = s.AuthToken()
	}
	return info
}

// Login exchanges credentials for an upstream token
//
// @Summary Sign in
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body LoginRequest true "Credentials"
// @Success 200 {object} APIResponse{data=SessionInfo}
// @Failure 401 {object} APIResponse "Invalid credentials"
// @Router /auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		respondError(w, r, err)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if err := validateRequest(req); err != nil {
		respondError(w, r, err)
		return
	}

	s, err := h.sessions.Start(r.Context(), req.Username, req.Password)
	if err != nil {
		respondError(w, r, err)
		return
	}
	WriteSuccess(w, r, sessionInfo(s, true))
}

// Register creates an upstream account and signs it in.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		respondError(w, r, err)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if err := validateRequest(req); err != nil {
		respondError(w, r, err)
		return
	}

	s, err := h.sessions.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Created(sessionInfo(s, true))
}

// Logout revokes the current token and drops its cached catalog.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	s, err := session.Require(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.sessions.Close(r.Context(), s); err != nil {
		respondError(w, r, err)
		return
	}
	WriteSuccess(w, r, map[string]bool{"logged_out": true})
}

// Me returns the current session.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	s, err := session.Require(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	WriteSuccess(w, r, sessionInfo(s, false))
}
