// Mythmap - Myths and Legends Map Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mythmap

package api

import (
	"net/http"

	"github.com/tomtom215/mythmap/internal/session"
)

// Profile returns the profile page of the signed in user: own places, own
// notes with place labels and favorites.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	s, err := session.Require(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	view, err := h.profiles.Load(r.Context(), s)
	if err != nil {
		respondError(w, r, err)
		return
	}
	WriteSuccess(w, r, view)
}
