// Mythmap - Myths and Legends Map Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mythmap

package apiclient

import (
	"errors"
	"testing"

	"github.com/tomtom215/mythmap/internal/models"
)

const featureOne = `{"type":"Feature","id":1,"geometry":{"type":"Point","coordinates":[49.1064,55.7961]},"properties":{"name":"Сююмбике","categories":"myth, legend","favorite":true,"status":"approved"}}`

func TestDecodePlaces_Shapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		body      string
		wantShape Shape
		wantCount int
		wantNext  string
	}{
		{"feature collection", `{"type":"FeatureCollection","features":[` + featureOne + `]}`, ShapeFeatureCollection, 1, ""},
		{"empty feature collection", `{"type":"FeatureCollection","features":[]}`, ShapeFeatureCollection, 0, ""},
		{"paginated features", `{"count":7,"next":"http://up/api/places/?page=2","previous":null,"results":[` + featureOne + `]}`, ShapePaginated, 7, "http://up/api/places/?page=2"},
		{"paginated geojson results", `{"count":1,"next":null,"results":{"type":"FeatureCollection","features":[` + featureOne + `]}}`, ShapePaginated, 1, ""},
		{"bare list", `[` + featureOne + `]`, ShapeList, 1, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := DecodePlaces("test", []byte(tt.body))
			if err != nil {
				t.Fatalf("DecodePlaces() error = %v", err)
			}
			if got.Shape != tt.wantShape || got.Count != tt.wantCount || got.Next != tt.wantNext {
				t.Errorf("DecodePlaces() = shape %v count %d next %q", got.Shape, got.Count, got.Next)
			}
			if got.Items == nil {
				t.Error("Items should never be nil")
			}
			if len(got.Items) > 0 {
				p := got.Items[0]
				if p.ID != "1" || p.Name != "Сююмбике" || !p.Favorite {
					t.Errorf("place = %+v", p)
				}
				if _, ok := p.Coordinates(); !ok {
					t.Error("geometry should survive flattening")
				}
			}
		})
	}
}

func TestDecodePlaces_FlatObjects(t *testing.T) {
	t.Parallel()

	got, err := DecodePlaces("test", []byte(`[{"id":3,"name":"Раифа","geometry":"SRID=4326;POINT (48.7296 55.9031)","distance":1520.5}]`))
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Items) != 1 || got.Items[0].DistanceMeters == nil || *got.Items[0].DistanceMeters != 1520.5 {
		t.Errorf("items = %+v", got.Items)
	}
}

func TestDecodeCollection_Rejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"null", `null`},
		{"empty", ``},
		{"scalar", `42`},
		{"string", `"FeatureCollection"`},
		{"wrong type", `{"type":"Feature","features":[]}`},
		{"type not a string", `{"type":7,"features":[]}`},
		{"features missing", `{"type":"FeatureCollection"}`},
		{"features null", `{"type":"FeatureCollection","features":null}`},
		{"features object", `{"type":"FeatureCollection","features":{}}`},
		{"results null", `{"count":0,"results":null}`},
		{"results scalar", `{"results":"nope"}`},
		{"no known keys", `{"data":[]}`},
		{"count not integer", `{"count":"many","results":[]}`},
		{"malformed", `{"results":[`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := DecodeCollection[models.Annotation]("test", []byte(tt.body))
			var de *DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("error = %v, want *DecodeError", err)
			}
			if de.Operation != "test" {
				t.Errorf("Operation = %q", de.Operation)
			}
		})
	}
}

func TestDecodePlaces_FeatureCollectionRequiresFeatures(t *testing.T) {
	t.Parallel()

	_, err := DecodePlaces("test", []byte(`{"type":"FeatureCollection","features":[{"id":1,"name":"flat"}]}`))
	var de *DecodeError
	if !errors.As(err, &de) || de.Shape != ShapeFeatureCollection {
		t.Errorf("error = %v, want DecodeError for feature collection", err)
	}
}

func TestDecodeCollection_ElementError(t *testing.T) {
	t.Parallel()

	_, err := DecodeCollection[models.Annotation]("notes", []byte(`{"results":[{"id":1,"place":true}]}`))
	var de *DecodeError
	if !errors.As(err, &de) || de.Shape != ShapePaginated || de.Err == nil {
		t.Errorf("error = %v, want element DecodeError", err)
	}
}

func TestDecodeCollection_Annotations(t *testing.T) {
	t.Parallel()

	body := `{"count":2,"next":null,"results":[
		{"id":10,"place":{"id":4,"name":"Раифа"},"text":"a","moderation_status":"pending"},
		{"id":11,"place":42,"text":"b","moderation_status":"rejected","rejection_reason":"spam"}
	]}`
	got, err := DecodeCollection[models.Annotation]("notes", []byte(body))
	if err != nil {
		t.Fatal(err)
	}
	if got.Count != 2 || len(got.Items) != 2 {
		t.Fatalf("got %+v", got)
	}
	if got.Items[0].Place.Embedded == nil || got.Items[0].Place.Embedded.ID != "4" {
		t.Errorf("embedded place ref = %+v", got.Items[0].Place)
	}
	if got.Items[1].Place.ScalarID != "42" || got.Items[1].Reason() != "spam" {
		t.Errorf("scalar place ref = %+v", got.Items[1])
	}
}

func TestShape_String(t *testing.T) {
	t.Parallel()

	if ShapePaginated.String() != "paginated" || Shape(99).String() != "invalid" {
		t.Error("unexpected shape names")
	}
}
