// Mythmap - Myths and Legends Map Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mythmap

package api

import (
	"context"
	"net/http"

	"github.com/tomtom215/mythmap/internal/models"
	"github.com/tomtom215/mythmap/internal/xref"
)

// ResolveXrefs labels the place reference of each annotation in one batched
// upstream lookup. Results keep the request order.
func (h *Handler) ResolveXrefs(w http.ResponseWriter, r *http.Request) {
	var req XrefRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		respondError(w, r, err)
		return
	}
	if err := validateRequest(req); err != nil {
		respondError(w, r, err)
		return
	}

	s := currentSession(r.Context())
	resolver := xref.NewResolver(xref.FetchFunc(func(ctx context.Context, ids []models.ID) ([]models.Place, error) {
		return h.upstream.PlacesByIDs(ctx, s, ids)
	}))

	refs, err := resolver.Resolve(r.Context(), req.Annotations)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).List(refs, len(refs))
}
