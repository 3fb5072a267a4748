// Mythmap - Myths and Legends Map Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mythmap

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/mythmap/internal/apiclient"
	"github.com/tomtom215/mythmap/internal/authz"
	"github.com/tomtom215/mythmap/internal/catalog"
	"github.com/tomtom215/mythmap/internal/geo"
	"github.com/tomtom215/mythmap/internal/models"
	"github.com/tomtom215/mythmap/internal/moderation"
	"github.com/tomtom215/mythmap/internal/profile"
	"github.com/tomtom215/mythmap/internal/session"
)

// =====================================================
// Fakes
// =====================================================

type fakeCatalog struct {
	mu          sync.Mutex
	places      []models.Place
	nearby      []catalog.NearbyPlace
	categories  []string
	err         error
	lastView    catalog.View
	lastRadius  float64
	favorites   map[models.ID]bool
	invalidated []string
}

func (f *fakeCatalog) Places(_ context.Context, _ *session.Session, v catalog.View) ([]models.Place, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastView = v
	if f.err != nil {
		return nil, f.err
	}
	return f.places, nil
}

func (f *fakeCatalog) Categories(context.Context, *session.Session) ([]string, error) {
	return f.categories, f.err
}

func (f *fakeCatalog) Nearest(_ context.Context, _ *session.Session, _ geo.Coordinates, radiusKm float64) ([]catalog.NearbyPlace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastRadius = radiusKm
	return f.nearby, f.err
}

func (f *fakeCatalog) ToggleFavorite(_ context.Context, _ *session.Session, id models.ID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	if f.favorites == nil {
		f.favorites = make(map[models.ID]bool)
	}
	f.favorites[id] = !f.favorites[id]
	return f.favorites[id], nil
}

func (f *fakeCatalog) Invalidate(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated = append(f.invalidated, key)
}

func (f *fakeCatalog) Len() int { return 1 }

type fakeSessions struct {
	mu     sync.Mutex
	byKey  map[string]*session.Session
	closed []string
}

func newFakeSessions(sessions ...*session.Session) *fakeSessions {
	f := &fakeSessions{byKey: make(map[string]*session.Session)}
	for _, s := range sessions {
		f.byKey[s.Key()] = s
	}
	return f
}

func (f *fakeSessions) Start(_ context.Context, username, password string) (*session.Session, error) {
	if password != "correct horse" {
		return nil, session.ErrInvalidCredentials
	}
	s := session.New("tok-"+username, models.User{ID: "42", Username: username}, time.Now())
	f.mu.Lock()
	f.byKey[s.Key()] = s
	f.mu.Unlock()
	return s, nil
}

func (f *fakeSessions) Register(_ context.Context, username, _, password string) (*session.Session, error) {
	if username == "taken" {
		return nil, &apiclient.HTTPError{Operation: "register", StatusCode: http.StatusBadRequest, Detail: "username taken"}
	}
	return f.Start(context.Background(), username, password)
}

func (f *fakeSessions) Resume(_ context.Context, token string) (*session.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byKey[token]
	if !ok {
		return nil, session.ErrNoSession
	}
	return s, nil
}

func (f *fakeSessions) Close(_ context.Context, s *session.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byKey, s.Key())
	f.closed = append(f.closed, s.Key())
	return nil
}

func (f *fakeSessions) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byKey)
}

type decision struct {
	target apiclient.ModerationTarget
	id     models.ID
	action apiclient.ModerationAction
	reason string
}

type fakeModeration struct {
	mu        sync.Mutex
	items     []moderation.Item
	decisions []decision
	err       error
}

func (f *fakeModeration) Pending(context.Context, *session.Session) ([]moderation.Item, error) {
	return f.items, f.err
}

func (f *fakeModeration) Decide(_ context.Context, _ *session.Session, target apiclient.ModerationTarget, id models.ID, action apiclient.ModerationAction, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.decisions = append(f.decisions, decision{target, id, action, reason})
	return nil
}

type fakeProfiles struct{}

func (fakeProfiles) Load(_ context.Context, s *session.Session) (*profile.View, error) {
	return &profile.View{User: *s.User(), RoleLabel: s.User().RoleLabel()}, nil
}

type fakeUpstream struct {
	mu      sync.Mutex
	places  map[models.ID]models.Place
	lookups [][]models.ID
	created []models.PlaceSubmission
	notes   []models.NoteSubmission
	state   string
}

func (f *fakeUpstream) PlacesByIDs(_ context.Context, _ apiclient.Authorizer, ids []models.ID) ([]models.Place, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups = append(f.lookups, ids)
	var out []models.Place
	for _, id := range ids {
		if p, ok := f.places[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeUpstream) CreatePlace(_ context.Context, _ apiclient.Authorizer, sub models.PlaceSubmission) (models.Place, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, sub)
	return models.Place{ID: "100", Name: sub.Name, Status: models.StatusPending}, nil
}

func (f *fakeUpstream) CreateNote(_ context.Context, _ apiclient.Authorizer, sub models.NoteSubmission) (models.Annotation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notes = append(f.notes, sub)
	return models.Annotation{Kind: models.KindNote, ID: "7", PlaceID: sub.PlaceID, Text: sub.Text, Rating: sub.Rating}, nil
}

func (f *fakeUpstream) CreateComment(_ context.Context, _ apiclient.Authorizer, sub models.CommentSubmission) (models.Annotation, error) {
	return models.Annotation{Kind: models.KindComment, ID: "8", PlaceID: sub.PlaceID, Text: sub.Text}, nil
}

func (f *fakeUpstream) BreakerState() string {
	if f.state == "" {
		return "closed"
	}
	return f.state
}

// =====================================================
// Test Helpers
// =====================================================

var (
	testUser      = session.New("tok-user", models.User{ID: "1", Username: "anna"}, time.Unix(1700000000, 0))
	testModerator = session.New("tok-moder", models.User{ID: "2", Username: "moder", Groups: []string{models.ModeratorsGroup}}, time.Unix(1700000000, 0))
)

type testEnv struct {
	catalog    *fakeCatalog
	sessions   *fakeSessions
	moderation *fakeModeration
	upstream   *fakeUpstream
	server     http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithConfig(t, &ChiMiddlewareConfig{RateLimitDisabled: true})
}

func newTestEnvWithConfig(t *testing.T, cfg *ChiMiddlewareConfig) *testEnv {
	t.Helper()
	env := &testEnv{
		catalog:    &fakeCatalog{},
		sessions:   newFakeSessions(testUser, testModerator),
		moderation: &fakeModeration{},
		upstream:   &fakeUpstream{places: map[models.ID]models.Place{}},
	}

	enforcer, err := authz.NewEnforcer(context.Background(), nil)
	if err != nil {
		t.Fatalf("NewEnforcer() error = %v", err)
	}
	t.Cleanup(enforcer.Close)

	handler := NewHandler(Deps{
		Catalog:    env.catalog,
		Sessions:   env.sessions,
		Moderation: env.moderation,
		Profiles:   fakeProfiles{},
		Upstream:   env.upstream,
	})
	env.server = NewRouter(handler, enforcer, cfg).SetupChi()
	return env
}

// do sends a request as s (nil for anonymous) and returns the recorder.
func (env *testEnv) do(t *testing.T, method, target, body string, s *session.Session) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if s != nil {
		req.Header.Set("Authorization", "Token "+s.Key())
	}
	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
	Meta    *APIMeta        `json:"meta"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return env
}

func expectError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) envelope {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d; body = %s", rec.Code, status, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	if env.Success || env.Error == nil {
		t.Fatalf("expected error envelope, got %s", rec.Body.String())
	}
	if env.Error.Code != code {
		t.Errorf("error code = %q, want %q", env.Error.Code, code)
	}
	return env
}

func expectSuccess(t *testing.T, rec *httptest.ResponseRecorder, status int, data any) envelope {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d; body = %s", rec.Code, status, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	if !env.Success {
		t.Fatalf("expected success envelope, got %s", rec.Body.String())
	}
	if data != nil {
		if err := json.Unmarshal(env.Data, data); err != nil {
			t.Fatalf("decode data %s: %v", env.Data, err)
		}
	}
	return env
}
