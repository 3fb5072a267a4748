// Mythmap - Myths and Legends Map Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mythmap

// Package moderation aggregates the pending submissions of places, notes and
// comments into one queue and forwards approve or reject decisions upstream.
package moderation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/mythmap/internal/apiclient"
	"github.com/tomtom215/mythmap/internal/catalog"
	"github.com/tomtom215/mythmap/internal/events"
	"github.com/tomtom215/mythmap/internal/logging"
	"github.com/tomtom215/mythmap/internal/metrics"
	"github.com/tomtom215/mythmap/internal/models"
	"github.com/tomtom215/mythmap/internal/session"
	"github.com/tomtom215/mythmap/internal/xref"
)

// ErrForbidden is returned when the session may not moderate.
var ErrForbidden = errors.New("moderator role required")

// Upstream is the part of the myths API the queue needs.
type Upstream interface {
	ListPlaces(ctx context.Context, auth apiclient.Authorizer, q apiclient.PlaceQuery) ([]models.Place, error)
	PlacesByIDs(ctx context.Context, auth apiclient.Authorizer, ids []models.ID) ([]models.Place, error)
	ListNotes(ctx context.Context, auth apiclient.Authorizer, q apiclient.AnnotationQuery) ([]models.Annotation, error)
	ListComments(ctx context.Context, auth apiclient.Authorizer, q apiclient.AnnotationQuery) ([]models.Annotation, error)
	Moderate(ctx context.Context, auth apiclient.Authorizer, target apiclient.ModerationTarget, id models.ID, action apiclient.ModerationAction, reason string) error
}

// Item is one pending submission.
type Item struct {
	Kind       apiclient.ModerationTarget `json:"kind"`
	ID         models.ID                  `json:"id"`
	Title      string                     `json:"title"`
	Text       string                     `json:"text,omitempty"`
	Categories []string                   `json:"categories,omitempty"`
	Rating     *int                       `json:"rating,omitempty"`
	Author     string                     `json:"author"`
	Place      *xref.Resolution           `json:"place,omitempty"`
	CreatedAt  time.Time                  `json:"created_at"`
}

// Queue is the moderation service.
type Queue struct {
	upstream  Upstream
	publisher events.Publisher
	now       func() time.Time
}

// NewQueue creates a queue. publisher may be nil.
func NewQueue(upstream Upstream, publisher events.Publisher) *Queue {
	return &Queue{upstream: upstream, publisher: publisher, now: time.Now}
}

// Pending returns every pending place, note and comment, newest first. Notes
// and comments carry the resolved name of their place.
func (q *Queue) Pending(ctx context.Context, s *session.Session) ([]Item, error) {
	if !s.IsModeratorOrAdmin() {
		return nil, ErrForbidden
	}

	var (
		places   []models.Place
		notes    []models.Annotation
		comments []models.Annotation
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		places, err = q.upstream.ListPlaces(gctx, s, apiclient.PlaceQuery{Status: models.StatusPending})
		if err != nil {
			return fmt.Errorf("list pending places: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		var err error
		notes, err = q.upstream.ListNotes(gctx, s, apiclient.AnnotationQuery{Status: models.StatusPending})
		if err != nil {
			return fmt.Errorf("list pending notes: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		var err error
		comments, err = q.upstream.ListComments(gctx, s, apiclient.AnnotationQuery{Status: models.StatusPending})
		if err != nil {
			return fmt.Errorf("list pending comments: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	metrics.ModerationQueueSize.WithLabelValues(string(apiclient.TargetPlace)).Set(float64(len(places)))
	metrics.ModerationQueueSize.WithLabelValues(string(apiclient.TargetNote)).Set(float64(len(notes)))
	metrics.ModerationQueueSize.WithLabelValues(string(apiclient.TargetComment)).Set(float64(len(comments)))

	annotations := make([]models.Annotation, 0, len(notes)+len(comments))
	annotations = append(annotations, notes...)
	annotations = append(annotations, comments...)

	resolver := xref.NewResolver(xref.FetchFunc(func(ctx context.Context, ids []models.ID) ([]models.Place, error) {
		return q.upstream.PlacesByIDs(ctx, s, ids)
	}))
	refs, err := resolver.Resolve(ctx, annotations)
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(places)+len(annotations))
	for i := range places {
		items = append(items, placeItem(&places[i]))
	}
	for i := range annotations {
		items = append(items, annotationItem(&annotations[i], refs[i]))
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	return items, nil
}

func placeItem(p *models.Place) Item {
	author := models.UnknownUsername
	if p.Owner != nil && p.Owner.Username != "" {
		author = p.Owner.Username
	}
	return Item{
		Kind:       apiclient.TargetPlace,
		ID:         p.ID,
		Title:      p.Name,
		Text:       p.Description,
		Categories: catalog.ParseCategories(p.Categories),
		Author:     author,
		CreatedAt:  p.CreatedAt,
	}
}

func annotationItem(a *models.Annotation, ref xref.Resolution) Item {
	kind := apiclient.TargetComment
	if a.Kind == models.KindNote {
		kind = apiclient.TargetNote
	}
	return Item{
		Kind:      kind,
		ID:        a.ID,
		Title:     ref.Label(),
		Text:      a.Text,
		Rating:    a.Rating,
		Author:    a.Author(),
		Place:     &ref,
		CreatedAt: a.CreatedAt,
	}
}

// Decide approves or rejects a submission and announces the change so cached
// place snapshots refresh. A rejection may carry a reason.
func (q *Queue) Decide(ctx context.Context, s *session.Session, target apiclient.ModerationTarget, id models.ID, action apiclient.ModerationAction, reason string) error {
	if !s.IsModeratorOrAdmin() {
		return ErrForbidden
	}
	if _, ok := target.Collection(); !ok || !action.Valid() || id.IsZero() {
		return fmt.Errorf("%w: %s %q %s", apiclient.ErrInvalidModeration, target, id, action)
	}
	if action != apiclient.ActionReject {
		reason = ""
	}

	err := q.upstream.Moderate(ctx, s, target, id, action, reason)
	metrics.RecordModerationDecision(string(target), string(action), err)
	logging.Audit(ctx, logging.AuditEvent{
		Action:   "moderation." + string(action),
		Username: s.Username(),
		Target:   string(target) + ":" + id.String(),
		Success:  err == nil,
		Reason:   reason,
	})
	if err != nil {
		return fmt.Errorf("%s %s %s: %w", action, target, id, err)
	}

	if q.publisher != nil {
		ev := events.CatalogInvalidated{
			Reason: "moderation." + string(action),
			Target: string(target),
			ID:     id,
			Actor:  s.Username(),
			At:     q.now(),
		}
		if err := q.publisher.Publish(ctx, events.TopicCatalogInvalidated, ev); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Msg("Failed to publish catalog invalidation")
		}
	}
	return nil
}
