// Mythmap - Myths and Legends Map Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mythmap

package apiclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/mythmap/internal/config"
	"github.com/tomtom215/mythmap/internal/geo"
	"github.com/tomtom215/mythmap/internal/models"
)

type tokenAuth string

func (t tokenAuth) AuthToken() string { return string(t) }

// newTestUpstreamConfig uses millisecond retry delays and no rate limit.
func newTestUpstreamConfig(baseURL string) *config.UpstreamConfig {
	return &config.UpstreamConfig{
		BaseURL:             baseURL,
		Timeout:             5 * time.Second,
		MaxRetries:          2,
		RetryDelay:          time.Millisecond,
		PageSize:            100,
		BreakerMinRequests:  100,
		BreakerFailureRatio: 0.6,
		BreakerInterval:     time.Minute,
		BreakerTimeout:      time.Minute,
	}
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(newTestUpstreamConfig(srv.URL))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestListPlaces_QueryAuthAndPagination(t *testing.T) {
	t.Parallel()

	var srvURL string
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/api/places/" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Token abc" {
			t.Errorf("Authorization = %q", got)
		}
		if r.URL.Query().Get("page") == "2" {
			_, _ = io.WriteString(w, `{"count":2,"next":null,"results":[{"type":"Feature","id":2,"geometry":null,"properties":{"name":"b"}}]}`)
			return
		}
		q := r.URL.Query()
		if q.Get("status") != "approved" || q.Get("owner") != "7" || q.Get("page_size") != "100" {
			t.Errorf("query = %v", q)
		}
		_, _ = io.WriteString(w, `{"count":2,"next":"`+srvURL+`/api/places/?page=2","results":[`+featureOne+`]}`)
	}))
	defer srv.Close()
	srvURL = srv.URL

	c, err := New(newTestUpstreamConfig(srv.URL))
	if err != nil {
		t.Fatal(err)
	}
	places, err := c.ListPlaces(context.Background(), tokenAuth("abc"), PlaceQuery{Status: models.StatusApproved, Owner: "7"})
	if err != nil {
		t.Fatalf("ListPlaces() error = %v", err)
	}
	if len(places) != 2 || places[1].Name != "b" {
		t.Errorf("places = %+v", places)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestListPlaces_AnonymousSendsNoToken(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Errorf("unexpected Authorization header")
		}
		_, _ = io.WriteString(w, `{"type":"FeatureCollection","features":[]}`)
	})
	for _, auth := range []Authorizer{nil, tokenAuth("")} {
		if _, err := c.ListPlaces(context.Background(), auth, PlaceQuery{}); err != nil {
			t.Errorf("ListPlaces() error = %v", err)
		}
	}
}

func TestListPlaces_ForeignNextRefused(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"count":2,"next":"http://evil.example.org/api/places/?page=2","results":[]}`)
	})
	if _, err := c.ListPlaces(context.Background(), nil, PlaceQuery{}); err == nil || !strings.Contains(err.Error(), "foreign host") {
		t.Errorf("ListPlaces() error = %v, want foreign host refusal", err)
	}
}

func TestListPlaces_DecodeErrorSurfaces(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data":[]}`)
	})
	_, err := c.ListPlaces(context.Background(), nil, PlaceQuery{})
	var de *DecodeError
	if !errors.As(err, &de) || de.Operation != "list_places" {
		t.Errorf("error = %v, want DecodeError", err)
	}
}

func TestClient_RetriesThrottledRequests(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = io.WriteString(w, `[]`)
	})
	if _, err := c.ListPlaces(context.Background(), nil, PlaceQuery{}); err != nil {
		t.Fatalf("ListPlaces() error = %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestClient_RetriesExhausted(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	_, err := c.ListPlaces(context.Background(), nil, PlaceQuery{})
	if !errors.Is(err, ErrRateLimited) || !IsStatus(err, http.StatusServiceUnavailable) {
		t.Errorf("error = %v, want ErrRateLimited wrapping 503", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 1 + 2 retries", calls.Load())
	}
}

func TestClient_HTTPErrorDetail(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"detail":"Permission denied."}`)
	})
	err := c.Moderate(context.Background(), tokenAuth("t"), TargetPlace, "5", ActionApprove, "")
	var he *HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("error = %v, want HTTPError", err)
	}
	if he.StatusCode != http.StatusForbidden || he.Detail != "Permission denied." || he.Temporary() {
		t.Errorf("HTTPError = %+v", he)
	}
}

func TestClient_BreakerOpens(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := newTestUpstreamConfig(srv.URL)
	cfg.MaxRetries = 0
	cfg.BreakerMinRequests = 2
	cfg.BreakerFailureRatio = 0.5
	c, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		if _, err := c.Profile(context.Background(), tokenAuth("t")); !IsStatus(err, http.StatusInternalServerError) {
			t.Fatalf("call %d error = %v", i, err)
		}
	}
	if _, err := c.Profile(context.Background(), tokenAuth("t")); !errors.Is(err, ErrUnavailable) {
		t.Errorf("error = %v, want ErrUnavailable", err)
	}
	if calls.Load() != 2 {
		t.Errorf("upstream calls = %d, want 2", calls.Load())
	}
	if c.BreakerState() != "open" {
		t.Errorf("BreakerState() = %q", c.BreakerState())
	}
}

func TestClient_ClientErrorsDoNotTripBreaker(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	cfg := newTestUpstreamConfig(srv.URL)
	cfg.BreakerMinRequests = 1
	c, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if _, err := c.Profile(context.Background(), tokenAuth("t")); !IsStatus(err, http.StatusNotFound) {
			t.Fatalf("call %d error = %v", i, err)
		}
	}
	if c.BreakerState() != "closed" {
		t.Errorf("BreakerState() = %q, want closed", c.BreakerState())
	}
}

func TestPlacesByIDs(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if got := r.URL.Query().Get("id__in"); got != "1,42" {
			t.Errorf("id__in = %q", got)
		}
		_, _ = io.WriteString(w, `[`+featureOne+`]`)
	})

	places, err := c.PlacesByIDs(context.Background(), nil, []models.ID{"1", "42"})
	if err != nil {
		t.Fatal(err)
	}
	if len(places) != 1 || places[0].ID != "1" {
		t.Errorf("places = %+v", places)
	}

	empty, err := c.PlacesByIDs(context.Background(), nil, nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("PlacesByIDs(nil) = %v, %v", empty, err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, empty id list must not hit the upstream", calls.Load())
	}
}

func TestNearestPlaces(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/api/places/nearest/" || q.Get("lat") != "55.7961" || q.Get("lon") != "49.1064" || q.Get("radius_km") != "2" {
			t.Errorf("request = %s?%s", r.URL.Path, r.URL.RawQuery)
		}
		_, _ = io.WriteString(w, `[]`)
	})
	if _, err := c.NearestPlaces(context.Background(), nil, geo.Coordinates{Latitude: 55.7961, Longitude: 49.1064}, 2); err != nil {
		t.Fatal(err)
	}
	if _, err := c.NearestPlaces(context.Background(), nil, geo.Coordinates{Latitude: 95}, 2); err == nil {
		t.Error("invalid coordinates should be rejected before the request")
	}
}

func TestToggleFavorite(t *testing.T) {
	t.Parallel()

	var status atomic.Int32
	status.Store(http.StatusCreated)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/places/3/toggle_favorite/" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(int(status.Load()))
		_, _ = io.WriteString(w, `{"status":"ok"}`)
	})

	added, err := c.ToggleFavorite(context.Background(), tokenAuth("t"), "3")
	if err != nil || !added {
		t.Errorf("ToggleFavorite() = %v, %v, want added", added, err)
	}
	status.Store(http.StatusOK)
	added, err = c.ToggleFavorite(context.Background(), tokenAuth("t"), "3")
	if err != nil || added {
		t.Errorf("ToggleFavorite() = %v, %v, want removed", added, err)
	}
}

func TestModerate(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/api/comments/9/reject/" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"rejection_reason":"spam"}` {
			t.Errorf("body = %s", body)
		}
		_, _ = io.WriteString(w, `{"status":"comment rejected","id":9}`)
	})
	if err := c.Moderate(context.Background(), tokenAuth("t"), TargetComment, "9", ActionReject, "spam"); err != nil {
		t.Fatal(err)
	}
	if err := c.Moderate(context.Background(), tokenAuth("t"), "user", "9", ActionReject, ""); !errors.Is(err, ErrInvalidModeration) {
		t.Errorf("unknown target error = %v", err)
	}
	if err := c.Moderate(context.Background(), tokenAuth("t"), TargetNote, "9", "delete", ""); !errors.Is(err, ErrInvalidModeration) {
		t.Errorf("unknown action error = %v", err)
	}
}

func TestListNotes_SetsKind(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("user") != "7" || q.Get("moderation_status") != "pending" {
			t.Errorf("query = %v", q)
		}
		_, _ = io.WriteString(w, `{"count":1,"next":null,"results":[{"id":1,"place":2,"text":"x"}]}`)
	})
	notes, err := c.ListNotes(context.Background(), tokenAuth("t"), AnnotationQuery{User: "7", Status: models.StatusPending})
	if err != nil {
		t.Fatal(err)
	}
	if len(notes) != 1 || notes[0].Kind != models.KindNote {
		t.Errorf("notes = %+v", notes)
	}
}

func TestCreateNote_RatingRange(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":5,"place":2,"text":"ok","rating":4,"moderation_status":"pending"}`)
	})
	bad := 6
	if _, err := c.CreateNote(context.Background(), tokenAuth("t"), models.NoteSubmission{PlaceID: "2", Text: "x", Rating: &bad}); err == nil {
		t.Error("rating 6 should be rejected")
	}
	good := 4
	n, err := c.CreateNote(context.Background(), tokenAuth("t"), models.NoteSubmission{PlaceID: "2", Text: "ok", Rating: &good})
	if err != nil {
		t.Fatal(err)
	}
	if n.Kind != models.KindNote || n.Status != models.StatusPending {
		t.Errorf("note = %+v", n)
	}
}

func TestLoginAndProfile(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login/":
			_, _ = io.WriteString(w, `{"token":"tok","user_id":7,"username":"ann","email":"a@x.org"}`)
		case "/api/auth/profile/":
			if r.Header.Get("Authorization") != "Token tok" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_, _ = io.WriteString(w, `{"id":7,"username":"ann","is_superuser":false,"groups":["Moderators"]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	res, err := c.Login(context.Background(), "ann", "secret")
	if err != nil || res.Token != "tok" || res.UserID != "7" {
		t.Fatalf("Login() = %+v, %v", res, err)
	}
	u, err := c.Profile(context.Background(), tokenAuth(res.Token))
	if err != nil {
		t.Fatal(err)
	}
	if !u.IsModeratorOrAdmin() {
		t.Errorf("profile = %+v", u)
	}
	if _, err := c.Profile(context.Background(), tokenAuth("bad")); !IsStatus(err, http.StatusUnauthorized) {
		t.Errorf("Profile(bad) error = %v", err)
	}
}

func TestLogin_EmptyToken(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"user_id":7}`)
	})
	if _, err := c.Login(context.Background(), "ann", "x"); !errors.Is(err, ErrEmptyToken) {
		t.Errorf("error = %v, want ErrEmptyToken", err)
	}
}

func TestBackoff(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		attempt    int
		retryAfter string
		want       time.Duration
	}{
		{"exponential", 2, "", 400 * time.Millisecond},
		{"retry after seconds", 0, "3", 3 * time.Second},
		{"capped", 10, "", maxRetryDelay},
		{"garbage header", 1, "soon", 200 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := backoff(100*time.Millisecond, tt.attempt, tt.retryAfter); got != tt.want {
			t.Errorf("%s: backoff = %v, want %v", tt.name, got, tt.want)
		}
	}
}
