// Mythmap - Myths and Legends Map Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mythmap

package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/tomtom215/mythmap/internal/models"
)

// AnnotationQuery filters note and comment listings. Zero fields are omitted.
type AnnotationQuery struct {
	Place    models.ID
	User     models.ID
	Status   models.ModerationStatus
	PageSize int
}

func (q AnnotationQuery) values(defaultPageSize int) url.Values {
	v := url.Values{}
	if !q.Place.IsZero() {
		v.Set("place", q.Place.String())
	}
	if !q.User.IsZero() {
		v.Set("user", q.User.String())
	}
	if q.Status != "" {
		v.Set("moderation_status", string(q.Status))
	}
	size := q.PageSize
	if size <= 0 {
		size = defaultPageSize
	}
	if size > 0 {
		v.Set("page_size", strconv.Itoa(size))
	}
	return v
}

// ListNotes returns notes matching q.
func (c *Client) ListNotes(ctx context.Context, auth Authorizer, q AnnotationQuery) ([]models.Annotation, error) {
	return c.listAnnotations(ctx, "list_notes", "/api/notes/", models.KindNote, q, auth)
}

// ListComments returns comments matching q.
func (c *Client) ListComments(ctx context.Context, auth Authorizer, q AnnotationQuery) ([]models.Annotation, error) {
	return c.listAnnotations(ctx, "list_comments", "/api/comments/", models.KindComment, q, auth)
}

func (c *Client) listAnnotations(ctx context.Context, op, path string, kind models.AnnotationKind, q AnnotationQuery, auth Authorizer) ([]models.Annotation, error) {
	query := q.values(c.pageSize)
	var out []models.Annotation
	for page := 0; page < maxPages; page++ {
		resp, err := c.do(ctx, request{op: op, method: http.MethodGet, path: path, query: query, auth: auth})
		if err != nil {
			return nil, err
		}
		coll, err := DecodeCollection[models.Annotation](op, resp.body)
		if err != nil {
			return nil, err
		}
		if coll.Shape == ShapeFeatureCollection {
			return nil, decodeFailed(op, &DecodeError{Shape: coll.Shape, Reason: "annotations cannot be features"})
		}
		if out == nil {
			out = make([]models.Annotation, 0, max(coll.Count, len(coll.Items)))
		}
		for i := range coll.Items {
			coll.Items[i].Kind = kind
		}
		out = append(out, coll.Items...)
		if coll.Next == "" {
			return out, nil
		}
		path, query = coll.Next, nil
	}
	return nil, fmt.Errorf("%s: more than %d pages", op, maxPages)
}

// CreateNote submits a note. It starts in pending moderation.
func (c *Client) CreateNote(ctx context.Context, auth Authorizer, sub models.NoteSubmission) (models.Annotation, error) {
	if sub.Rating != nil && (*sub.Rating < 1 || *sub.Rating > 5) {
		return models.Annotation{}, fmt.Errorf("create_note: rating %d out of range 1-5", *sub.Rating)
	}
	return c.createAnnotation(ctx, "create_note", "/api/notes/", models.KindNote, sub, auth)
}

// CreateComment submits a comment. It starts in pending moderation.
func (c *Client) CreateComment(ctx context.Context, auth Authorizer, sub models.CommentSubmission) (models.Annotation, error) {
	return c.createAnnotation(ctx, "create_comment", "/api/comments/", models.KindComment, sub, auth)
}

func (c *Client) createAnnotation(ctx context.Context, op, path string, kind models.AnnotationKind, body any, auth Authorizer) (models.Annotation, error) {
	resp, err := c.do(ctx, request{op: op, method: http.MethodPost, path: path, body: body, auth: auth})
	if err != nil {
		return models.Annotation{}, err
	}
	var a models.Annotation
	if err := decodeObject(op, resp.body, &a); err != nil {
		return models.Annotation{}, err
	}
	a.Kind = kind
	return a, nil
}

// ModerationTarget is the kind of record a moderation decision applies to.
type ModerationTarget string

const (
	TargetPlace   ModerationTarget = "place"
	TargetNote    ModerationTarget = "note"
	TargetComment ModerationTarget = "comment"
)

// Collection returns the upstream collection path segment.
func (t ModerationTarget) Collection() (string, bool) {
	switch t {
	case TargetPlace:
		return "places", true
	case TargetNote:
		return "notes", true
	case TargetComment:
		return "comments", true
	}
	return "", false
}

// ModerationAction is approve or reject.
type ModerationAction string

const (
	ActionApprove ModerationAction = "approve"
	ActionReject  ModerationAction = "reject"
)

// Valid reports whether a is a known action.
func (a ModerationAction) Valid() bool {
	return a == ActionApprove || a == ActionReject
}

// ErrInvalidModeration is returned for an unknown target or action.
var ErrInvalidModeration = errors.New("invalid moderation request")

type rejectBody struct {
	RejectionReason string `json:"rejection_reason,omitempty"`
}

// Moderate approves or rejects a record. A rejection may carry a reason.
func (c *Client) Moderate(ctx context.Context, auth Authorizer, target ModerationTarget, id models.ID, action ModerationAction, reason string) error {
	collection, ok := target.Collection()
	if !ok || !action.Valid() || id.IsZero() {
		return fmt.Errorf("%w: %s %q %s", ErrInvalidModeration, target, id, action)
	}
	var body any
	if action == ActionReject && reason != "" {
		body = rejectBody{RejectionReason: reason}
	}
	path := "/api/" + collection + "/" + url.PathEscape(id.String()) + "/" + string(action) + "/"
	_, err := c.do(ctx, request{op: "moderate_" + target.String(), method: http.MethodPatch, path: path, body: body, auth: auth})
	return err
}

func (t ModerationTarget) String() string { return string(t) }
