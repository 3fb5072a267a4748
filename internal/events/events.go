// Mythmap - Myths and Legends Map Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mythmap

// Package events carries in-process domain events between gateway
// components. Moderation decisions publish CatalogInvalidated; the catalog
// subscribes and marks its cached snapshots for refresh.
package events

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/tomtom215/mythmap/internal/logging"
	"github.com/tomtom215/mythmap/internal/models"
)

// TopicCatalogInvalidated announces that cached place snapshots are outdated.
const TopicCatalogInvalidated = "catalog.invalidated"

// CatalogInvalidated is published after a change that alters which places
// users see.
type CatalogInvalidated struct {
	Reason string    `json:"reason"`           // e.g. "moderation.approve"
	Target string    `json:"target,omitempty"` // place, note or comment
	ID     models.ID `json:"id,omitempty"`
	Actor  string    `json:"actor,omitempty"`
	At     time.Time `json:"at"`
}

// Publisher publishes events. *Bus implements it.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}

// Invalidator is the catalog side of invalidation.
type Invalidator interface {
	InvalidateAll()
}

// HandleCatalogInvalidated registers fn as a consumer of
// TopicCatalogInvalidated. Malformed payloads are logged and acknowledged.
func HandleCatalogInvalidated(b *Bus, name string, fn func(ctx context.Context, ev CatalogInvalidated) error) {
	b.Handle(name, TopicCatalogInvalidated, func(msg *message.Message) error {
		ctx := messageContext(msg)
		var ev CatalogInvalidated
		if err := json.Unmarshal(msg.Payload, &ev); err != nil {
			logging.Ctx(ctx).Error().Err(err).Str("message_id", msg.UUID).Msg("Dropping malformed catalog invalidation event")
			return nil
		}
		return fn(ctx, ev)
	})
}

// InvalidateCatalog returns a handler marking every cached snapshot of
// target for refresh.
func InvalidateCatalog(target Invalidator) func(ctx context.Context, ev CatalogInvalidated) error {
	return func(ctx context.Context, ev CatalogInvalidated) error {
		target.InvalidateAll()
		logging.Ctx(ctx).Debug().
			Str("reason", ev.Reason).
			Str("target", ev.Target).
			Str("id", ev.ID.String()).
			Msg("Catalog invalidated")
		return nil
	}
}
