// Mythmap - Myths and Legends Map Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mythmap

package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/mythmap/internal/apiclient"
	"github.com/tomtom215/mythmap/internal/models"
	"github.com/tomtom215/mythmap/internal/moderation"
)

// DecisionResult is the body of a successful moderation decision.
type DecisionResult struct {
	Kind   string    `json:"kind"`
	ID     models.ID `json:"id"`
	Action string    `json:"action"`
}

// ModerationQueue lists pending places, notes and comments
//
// @Summary Moderation queue
// @Tags Moderation
// @Produce json
// @Success 200 {object} APIResponse{data=[]moderation.Item}
// @Failure 403 {object} APIResponse "Moderator role required"
// @Router /moderation/queue [get]
func (h *Handler) ModerationQueue(w http.ResponseWriter, r *http.Request) {
	items, err := h.moderation.Pending(r.Context(), currentSession(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if items == nil {
		items = []moderation.Item{}
	}
	NewResponseWriter(w, r).List(items, len(items))
}

// ModerationDecide approves or rejects one submission
//
// @Summary Moderation decision
// @Tags Moderation
// @Accept json
// @Produce json
// @Param kind path string true "place, note or comment"
// @Param id path string true "Submission id"
// @Param action path string true "approve or reject"
// @Param body body DecisionRequest false "Rejection reason"
// @Success 200 {object} APIResponse{data=DecisionResult}
// @Router /moderation/{kind}/{id}/{action} [post]
func (h *Handler) ModerationDecide(w http.ResponseWriter, r *http.Request) {
	params := DecisionParams{
		Kind:   strings.ToLower(chi.URLParam(r, "kind")),
		ID:     chi.URLParam(r, "id"),
		Action: strings.ToLower(chi.URLParam(r, "action")),
	}
	if err := validateRequest(params); err != nil {
		respondError(w, r, err)
		return
	}
	var req DecisionRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		respondError(w, r, err)
		return
	}
	req.Reason = strings.TrimSpace(req.Reason)
	if err := validateRequest(req); err != nil {
		respondError(w, r, err)
		return
	}

	err := h.moderation.Decide(r.Context(), currentSession(r.Context()),
		apiclient.ModerationTarget(params.Kind), models.ID(params.ID),
		apiclient.ModerationAction(params.Action), req.Reason)
	if err != nil {
		respondError(w, r, err)
		return
	}
	WriteSuccess(w, r, DecisionResult{Kind: params.Kind, ID: models.ID(params.ID), Action: params.Action})
}
