// Mythmap - Myths and Legends Map Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mythmap

package xref

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/mythmap/internal/models"
)

type fakeFetcher struct {
	mu     sync.Mutex
	places map[models.ID]models.Place
	err    error
	calls  [][]models.ID
}

func newFakeFetcher(places ...models.Place) *fakeFetcher {
	f := &fakeFetcher{places: make(map[models.ID]models.Place)}
	for _, p := range places {
		f.places[p.ID] = p
	}
	return f
}

func (f *fakeFetcher) FetchPlacesByIDs(_ context.Context, ids []models.ID) ([]models.Place, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]models.ID(nil), ids...))
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Place
	for _, id := range ids {
		if p, ok := f.places[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func embedded(id models.ID) models.Annotation {
	return models.Annotation{Place: models.PlaceRef{Embedded: &models.PlaceStub{ID: id}}}
}

func scalar(id models.ID) models.Annotation {
	return models.Annotation{Place: models.PlaceRef{ScalarID: id}}
}

func TestExtractPlaceID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		a      models.Annotation
		wantID models.ID
		wantOK bool
	}{
		{"embedded object", embedded("5"), "5", true},
		{"scalar id", scalar("7"), "7", true},
		{
			"embedded preferred over scalar",
			models.Annotation{Place: models.PlaceRef{Embedded: &models.PlaceStub{ID: "1"}, ScalarID: "2"}},
			"1", true,
		},
		{"embedded without id falls back", models.Annotation{Place: models.PlaceRef{Embedded: &models.PlaceStub{}, ScalarID: "3"}}, "3", true},
		{"place_id field", models.Annotation{PlaceID: "9"}, "9", true},
		{"orphaned", models.Annotation{}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			id, ok := ExtractPlaceID(&tt.a)
			if id != tt.wantID || ok != tt.wantOK {
				t.Errorf("ExtractPlaceID() = (%q, %v), want (%q, %v)", id, ok, tt.wantID, tt.wantOK)
			}
		})
	}
}

func TestExtractPlaceIDFromJSON(t *testing.T) {
	t.Parallel()

	var anns []models.Annotation
	raw := `[{"id":1,"place":{"id":10,"name":"x"}},{"id":2,"place":11},{"id":3,"place":null}]`
	if err := json.Unmarshal([]byte(raw), &anns); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	ids := ReferencedIDs(anns)
	if len(ids) != 2 || ids[0] != "10" || ids[1] != "11" {
		t.Errorf("ReferencedIDs() = %v, want [10 11]", ids)
	}
}

func TestResolvePlaceNamesAndLookup(t *testing.T) {
	t.Parallel()

	anns := []models.Annotation{embedded("1"), scalar("2"), {}, scalar("1")}
	places := []models.Place{{ID: "1", Name: "Кремль"}, {ID: "3", Name: "unrelated"}}

	names := ResolvePlaceNames(anns, places)
	if len(names) != 1 || names["1"] != "Кремль" {
		t.Fatalf("ResolvePlaceNames() = %v", names)
	}

	want := []struct {
		state State
		label string
	}{
		{StateResolved, "Кремль"},
		{StateMissing, LabelMissing},
		{StateOrphaned, LabelOrphaned},
		{StateResolved, "Кремль"},
	}
	for i := range anns {
		id, ok := ExtractPlaceID(&anns[i])
		got := Lookup(id, ok, names)
		if got.State != want[i].state || got.Label() != want[i].label {
			t.Errorf("Lookup(#%d) = %v %q, want %v %q", i, got.State, got.Label(), want[i].state, want[i].label)
		}
	}
}

func TestResolutionMarshalJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		r    Resolution
		want string
	}{
		{Resolved("4", "Озеро"), `{"state":"resolved","place_id":4,"name":"Озеро","label":"Озеро"}`},
		{Missing("4"), `{"state":"missing","place_id":4,"label":"Место удалено"}`},
		{Orphaned(), `{"state":"orphaned","place_id":null,"label":"Неизвестно"}`},
	}
	for _, tt := range tests {
		b, err := json.Marshal(tt.r)
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
		if string(b) != tt.want {
			t.Errorf("Marshal() = %s, want %s", b, tt.want)
		}
	}
}

func TestResolverSingleFetch(t *testing.T) {
	t.Parallel()

	f := newFakeFetcher(models.Place{ID: "1", Name: "Сююмбике"})
	r := NewResolver(f)

	got, err := r.Resolve(context.Background(), []models.Annotation{scalar("1"), embedded("2"), scalar("1"), {}})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(f.calls) != 1 {
		t.Fatalf("fetch calls = %d, want 1", len(f.calls))
	}
	if ids := f.calls[0]; len(ids) != 2 || ids[0] != "1" || ids[1] != "2" {
		t.Errorf("fetched ids = %v, want [1 2]", ids)
	}

	labels := make([]string, len(got))
	for i, r := range got {
		labels[i] = r.Label()
	}
	if strings.Join(labels, "|") != "Сююмбике|Место удалено|Сююмбике|Неизвестно" {
		t.Errorf("labels = %v", labels)
	}
}

func TestResolverNoIDsNoFetch(t *testing.T) {
	t.Parallel()

	f := newFakeFetcher()
	got, err := NewResolver(f).Resolve(context.Background(), []models.Annotation{{}, {}})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(f.calls) != 0 {
		t.Errorf("fetch calls = %d, want 0", len(f.calls))
	}
	if len(got) != 2 || got[0].State != StateOrphaned {
		t.Errorf("Resolve() = %+v", got)
	}
}

func TestResolverPropagatesFetchError(t *testing.T) {
	t.Parallel()

	f := newFakeFetcher()
	f.err = errors.New("connection refused")
	_, err := NewResolver(f).Resolve(context.Background(), []models.Annotation{scalar("1")})
	if !errors.Is(err, f.err) {
		t.Errorf("Resolve() error = %v, want wrapped fetch error", err)
	}
}
