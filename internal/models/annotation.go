// Mythmap - Myths and Legends Map Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mythmap

package models

import (
	"bytes"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// AnnotationKind distinguishes notes from comments.
type AnnotationKind string

const (
	KindNote    AnnotationKind = "note"
	KindComment AnnotationKind = "comment"
)

// PlaceStub is the partial place object some endpoints embed in annotations.
type PlaceStub struct {
	ID   ID     `json:"id"`
	Name string `json:"name,omitempty"`
}

// PlaceRef is an annotation's reference to its place: a scalar id, an embedded
// object, or nothing at all.
type PlaceRef struct {
	Embedded *PlaceStub
	ScalarID ID
}

// UnmarshalJSON accepts a number, a string, an object with an id, or null.
func (r *PlaceRef) UnmarshalJSON(b []byte) error {
	*r = PlaceRef{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '{' {
		var stub PlaceStub
		if err := json.Unmarshal(b, &stub); err != nil {
			return fmt.Errorf("place reference: %w", err)
		}
		r.Embedded = &stub
		return nil
	}
	return r.ScalarID.UnmarshalJSON(b)
}

// MarshalJSON writes the embedded object when present, else the scalar id.
func (r PlaceRef) MarshalJSON() ([]byte, error) {
	if r.Embedded != nil {
		return json.Marshal(r.Embedded)
	}
	return r.ScalarID.MarshalJSON()
}

// Annotation is a note or a comment attached to a place.
type Annotation struct {
	Kind            AnnotationKind   `json:"kind"`
	ID              ID               `json:"id"`
	Place           PlaceRef         `json:"place"`
	PlaceID         ID               `json:"place_id,omitempty"`
	Text            string           `json:"text"`
	Rating          *int             `json:"rating,omitempty"`
	Image           *string          `json:"image,omitempty"`
	Status          ModerationStatus `json:"moderation_status"`
	RejectionReason *string          `json:"rejection_reason,omitempty"`
	User            *User            `json:"user,omitempty"`
	AuthorUsername  string           `json:"author_username,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// Author returns the best available author name.
func (a *Annotation) Author() string {
	if a.AuthorUsername != "" {
		return a.AuthorUsername
	}
	if a.User != nil && a.User.Username != "" {
		return a.User.Username
	}
	return UnknownUsername
}

// Reason returns the rejection reason when the annotation is rejected.
func (a *Annotation) Reason() string {
	if a.Status != StatusRejected || a.RejectionReason == nil {
		return ""
	}
	return *a.RejectionReason
}

// NoteSubmission is the payload for creating a note.
type NoteSubmission struct {
	PlaceID ID     `json:"place" validate:"required"`
	Text    string `json:"text" validate:"required,max=5000"`
	Rating  *int   `json:"rating,omitempty" validate:"omitempty,min=1,max=5"`
}

// CommentSubmission is the payload for creating a comment.
type CommentSubmission struct {
	PlaceID ID     `json:"place" validate:"required"`
	Text    string `json:"text" validate:"required,max=2000"`
}
