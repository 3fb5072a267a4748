// Mythmap - Myths and Legends Map Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mythmap

package apiclient

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/mythmap/internal/metrics"
	"github.com/tomtom215/mythmap/internal/models"
)

// Shape is the top-level layout of a collection response.
type Shape int

const (
	// ShapeInvalid means no known layout matched.
	ShapeInvalid Shape = iota
	// ShapeFeatureCollection is {"type":"FeatureCollection","features":[...]}.
	ShapeFeatureCollection
	// ShapePaginated is {"count":N,"next":...,"results":[...]}. The results may
	// also be a FeatureCollection object.
	ShapePaginated
	// ShapeList is a bare JSON array.
	ShapeList
)

func (s Shape) String() string {
	switch s {
	case ShapeFeatureCollection:
		return "feature_collection"
	case ShapePaginated:
		return "paginated"
	case ShapeList:
		return "list"
	default:
		return "invalid"
	}
}

// DecodeError reports a response that does not match the expected layout.
// It is raised once at the client boundary; nothing downstream guesses.
type DecodeError struct {
	Operation string
	Shape     Shape // layout detected before the failure
	Reason    string
	Snippet   string
	Err       error
}

func (e *DecodeError) Error() string {
	msg := fmt.Sprintf("%s: decode %s response: %s", e.Operation, e.Shape, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Collection is a decoded collection response.
type Collection[T any] struct {
	Shape Shape
	Items []T
	Count int    // server side total when paginated, len(Items) otherwise
	Next  string // next page URL when paginated
}

type rawCollection struct {
	shape Shape
	elems []json.RawMessage
	count int
	next  string
}

// sniffCollection classifies data into exactly one Shape.
func sniffCollection(data []byte) (rawCollection, *DecodeError) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return rawCollection{}, &DecodeError{Reason: "empty body"}
	}
	switch data[0] {
	case '[':
		var elems []json.RawMessage
		if err := json.Unmarshal(data, &elems); err != nil {
			return rawCollection{}, &DecodeError{Shape: ShapeList, Reason: "malformed array", Err: err}
		}
		return rawCollection{shape: ShapeList, elems: elems, count: len(elems)}, nil
	case '{':
		return sniffObject(data)
	default:
		return rawCollection{}, &DecodeError{Reason: "top level is not an object or array", Snippet: truncate(data, 64)}
	}
}

func sniffObject(data []byte) (rawCollection, *DecodeError) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return rawCollection{}, &DecodeError{Reason: "malformed object", Err: err}
	}

	if rawType, ok := obj["type"]; ok {
		var typ string
		if err := json.Unmarshal(rawType, &typ); err != nil || typ != "FeatureCollection" {
			return rawCollection{}, &DecodeError{Reason: "unexpected type " + truncate(rawType, 32)}
		}
		elems, derr := arrayField(obj, "features", ShapeFeatureCollection)
		if derr != nil {
			return rawCollection{}, derr
		}
		return rawCollection{shape: ShapeFeatureCollection, elems: elems, count: len(elems)}, nil
	}

	rawResults, ok := obj["results"]
	if !ok {
		return rawCollection{}, &DecodeError{Reason: "object has neither features nor results"}
	}
	out := rawCollection{shape: ShapePaginated}
	results := bytes.TrimSpace(rawResults)
	switch {
	case len(results) > 0 && results[0] == '{':
		inner, derr := sniffObject(results)
		if derr != nil || inner.shape != ShapeFeatureCollection {
			return rawCollection{}, &DecodeError{Shape: ShapePaginated, Reason: "results object is not a FeatureCollection"}
		}
		out.elems = inner.elems
	default:
		elems, derr := arrayField(obj, "results", ShapePaginated)
		if derr != nil {
			return rawCollection{}, derr
		}
		out.elems = elems
	}

	out.count = len(out.elems)
	if rawCount, ok := obj["count"]; ok {
		if err := json.Unmarshal(rawCount, &out.count); err != nil {
			return rawCollection{}, &DecodeError{Shape: ShapePaginated, Reason: "count is not an integer", Err: err}
		}
	}
	if rawNext, ok := obj["next"]; ok && !isNull(rawNext) {
		if err := json.Unmarshal(rawNext, &out.next); err != nil {
			return rawCollection{}, &DecodeError{Shape: ShapePaginated, Reason: "next is not a string", Err: err}
		}
	}
	return out, nil
}

func arrayField(obj map[string]json.RawMessage, key string, shape Shape) ([]json.RawMessage, *DecodeError) {
	raw, ok := obj[key]
	if !ok || isNull(raw) {
		return nil, &DecodeError{Shape: shape, Reason: key + " is missing"}
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, &DecodeError{Shape: shape, Reason: key + " is not an array", Err: err}
	}
	if elems == nil {
		elems = []json.RawMessage{}
	}
	return elems, nil
}

// DecodeCollection decodes a collection response whose elements are T.
func DecodeCollection[T any](op string, data []byte) (Collection[T], error) {
	raw, derr := sniffCollection(data)
	if derr != nil {
		return Collection[T]{}, decodeFailed(op, derr)
	}
	out := Collection[T]{Shape: raw.shape, Count: raw.count, Next: raw.next, Items: make([]T, 0, len(raw.elems))}
	for i, elem := range raw.elems {
		var item T
		if err := json.Unmarshal(elem, &item); err != nil {
			return Collection[T]{}, decodeFailed(op, &DecodeError{
				Shape: raw.shape, Reason: fmt.Sprintf("element %d", i), Snippet: truncate(elem, 64), Err: err,
			})
		}
		out.Items = append(out.Items, item)
	}
	return out, nil
}

// DecodePlaces decodes a place collection. Elements that are GeoJSON features
// are flattened; inside a FeatureCollection every element must be a feature.
func DecodePlaces(op string, data []byte) (Collection[models.Place], error) {
	raw, derr := sniffCollection(data)
	if derr != nil {
		return Collection[models.Place]{}, decodeFailed(op, derr)
	}
	out := Collection[models.Place]{Shape: raw.shape, Count: raw.count, Next: raw.next, Items: make([]models.Place, 0, len(raw.elems))}
	for i, elem := range raw.elems {
		p, err := decodePlace(elem, raw.shape == ShapeFeatureCollection)
		if err != nil {
			return Collection[models.Place]{}, decodeFailed(op, &DecodeError{
				Shape: raw.shape, Reason: fmt.Sprintf("element %d", i), Snippet: truncate(elem, 64), Err: err,
			})
		}
		out.Items = append(out.Items, p)
	}
	return out, nil
}

// decodePlace decodes one place, either a feature or a flat object.
func decodePlace(data []byte, requireFeature bool) (models.Place, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return models.Place{}, err
	}
	switch {
	case probe.Type == "Feature":
		var f models.Feature
		if err := json.Unmarshal(data, &f); err != nil {
			return models.Place{}, err
		}
		return f.Place(), nil
	case requireFeature:
		return models.Place{}, fmt.Errorf("element type %q is not Feature", probe.Type)
	default:
		var p models.Place
		if err := json.Unmarshal(data, &p); err != nil {
			return models.Place{}, err
		}
		return p, nil
	}
}

func decodeFailed(op string, e *DecodeError) error {
	e.Operation = op
	metrics.UpstreamDecodeErrors.WithLabelValues(op).Inc()
	return e
}

func isNull(b json.RawMessage) bool {
	b = bytes.TrimSpace(b)
	return len(b) == 0 || string(b) == "null"
}
