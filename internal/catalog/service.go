// Mythmap - Myths and Legends Map Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mythmap

package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/mythmap/internal/apiclient"
	"github.com/tomtom215/mythmap/internal/config"
	"github.com/tomtom215/mythmap/internal/geo"
	"github.com/tomtom215/mythmap/internal/logging"
	"github.com/tomtom215/mythmap/internal/metrics"
	"github.com/tomtom215/mythmap/internal/models"
	"github.com/tomtom215/mythmap/internal/session"
)

// ErrNotLoaded is returned when a store has no committed snapshot to serve.
var ErrNotLoaded = errors.New("catalog snapshot not loaded")

// Refresh triggers, used as metric labels.
const (
	TriggerInitial     = "initial"
	TriggerStale       = "stale"
	TriggerInvalidated = "invalidated"
	TriggerTicker      = "ticker"
	TriggerManual      = "manual"
)

// Source is the upstream place API.
type Source interface {
	ListPlaces(ctx context.Context, auth apiclient.Authorizer, q apiclient.PlaceQuery) ([]models.Place, error)
	NearestPlaces(ctx context.Context, auth apiclient.Authorizer, center geo.Coordinates, radiusKm float64) ([]models.Place, error)
	ToggleFavorite(ctx context.Context, auth apiclient.Authorizer, id models.ID) (bool, error)
}

type storeEntry struct {
	store       *Store
	invalidated atomic.Bool
}

// Service keeps one place store per session. Favorite flags are computed
// upstream for the requesting user, so snapshots are not shared between
// users. Anonymous visitors share the store keyed "".
type Service struct {
	source Source
	cfg    config.CatalogConfig
	now    func() time.Time

	mu     sync.Mutex
	stores map[string]*storeEntry

	fetches singleflight.Group
}

// NewService creates a catalog service.
func NewService(source Source, cfg config.CatalogConfig) *Service {
	return &Service{
		source: source,
		cfg:    cfg,
		now:    time.Now,
		stores: make(map[string]*storeEntry),
	}
}

func (svc *Service) entry(key string) *storeEntry {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	e, ok := svc.stores[key]
	if !ok {
		e = &storeEntry{store: NewStore(svc.cfg.GridCellKm)}
		svc.stores[key] = e
	}
	return e
}

// Store returns the place store of s, refreshing it first when it was never
// loaded, is older than the configured max age, or was invalidated. A failed
// refresh of a loaded store is logged and the previous snapshot is served.
func (svc *Service) Store(ctx context.Context, s *session.Session) (*Store, error) {
	e := svc.entry(s.Key())
	snap := e.store.Snapshot()

	trigger := ""
	switch {
	case snap.Generation == 0:
		trigger = TriggerInitial
	case e.invalidated.Load():
		trigger = TriggerInvalidated
	case svc.cfg.MaxAge > 0 && svc.now().Sub(snap.FetchedAt) > svc.cfg.MaxAge:
		trigger = TriggerStale
	}
	if trigger == "" {
		return e.store, nil
	}

	err := svc.refresh(ctx, s, e, trigger)
	if err == nil && e.store.Snapshot().Generation == 0 {
		// the first fetch was superseded by an invalidation
		err = svc.refresh(ctx, s, e, TriggerInvalidated)
		if err == nil && e.store.Snapshot().Generation == 0 {
			err = ErrNotLoaded
		}
	}
	if err != nil {
		if snap.Generation == 0 {
			return nil, err
		}
		logging.Ctx(ctx).Warn().Err(err).Str("trigger", trigger).Msg("Catalog refresh failed, serving previous snapshot")
	}
	return e.store, nil
}

// Refresh reloads the store of s from upstream.
func (svc *Service) Refresh(ctx context.Context, s *session.Session) error {
	return svc.refresh(ctx, s, svc.entry(s.Key()), TriggerManual)
}

// refresh coalesces concurrent refreshes of one store. The fetch is detached
// from the caller's cancellation because other callers may be waiting on it.
func (svc *Service) refresh(ctx context.Context, s *session.Session, e *storeEntry, trigger string) error {
	_, err, _ := svc.fetches.Do(s.Key(), func() (any, error) {
		gen := e.store.Begin()
		e.invalidated.Store(false)

		places, err := svc.source.ListPlaces(context.WithoutCancel(ctx), s, apiclient.PlaceQuery{})
		metrics.RecordCatalogRefresh(trigger, err)
		if err != nil {
			e.invalidated.Store(true)
			return nil, fmt.Errorf("refresh catalog: %w", err)
		}
		if !e.store.Commit(gen, places) {
			logging.Ctx(ctx).Debug().Uint64("generation", uint64(gen)).Msg("Discarded superseded catalog fetch")
		}
		return nil, nil
	})
	return err
}

// Invalidate marks the store of key for refresh on next read. A fetch
// already in flight is superseded.
func (svc *Service) Invalidate(key string) {
	svc.mu.Lock()
	e, ok := svc.stores[key]
	svc.mu.Unlock()
	if !ok {
		return
	}
	e.invalidated.Store(true)
	e.store.Begin()
	svc.fetches.Forget(key)
}

// InvalidateAll marks every store for refresh. Moderation decisions change
// what every user sees.
func (svc *Service) InvalidateAll() {
	svc.mu.Lock()
	keys := make([]string, 0, len(svc.stores))
	for key := range svc.stores {
		keys = append(keys, key)
	}
	svc.mu.Unlock()

	for _, key := range keys {
		svc.Invalidate(key)
	}
}

// Drop forgets the store of key. It is registered as a session close hook.
func (svc *Service) Drop(key string) {
	svc.mu.Lock()
	delete(svc.stores, key)
	svc.mu.Unlock()
	svc.fetches.Forget(key)
}

// Len returns the number of stores held.
func (svc *Service) Len() int {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return len(svc.stores)
}

// Places applies v to the places visible to s.
func (svc *Service) Places(ctx context.Context, s *session.Session, v View) ([]models.Place, error) {
	st, err := svc.Store(ctx, s)
	if err != nil {
		return nil, err
	}
	return st.ApplyView(v), nil
}

// Categories returns the category vocabulary of the places visible to s.
func (svc *Service) Categories(ctx context.Context, s *session.Session) ([]string, error) {
	st, err := svc.Store(ctx, s)
	if err != nil {
		return nil, err
	}
	return st.Snapshot().Categories, nil
}

// ToggleFavorite flips the favorite flag of a place for the signed in user
// and updates the cached snapshot without a refetch.
func (svc *Service) ToggleFavorite(ctx context.Context, s *session.Session, id models.ID) (bool, error) {
	if s == nil {
		return false, session.ErrNoSession
	}
	added, err := svc.source.ToggleFavorite(ctx, s, id)
	if err != nil {
		return false, err
	}
	e := svc.entry(s.Key())
	if !e.store.SetFavorite(id, added) {
		e.invalidated.Store(true)
	}
	return added, nil
}

// NearbyPlace is a place with its distance from the query point.
type NearbyPlace struct {
	models.Place
	DistanceMeters float64 `json:"distance_m"`
	DistanceLabel  string  `json:"distance_label"`
}

// Nearest returns places within radiusKm of center, closest first. A
// non-positive radius uses the configured nearest radius. Places without a
// parsable location are skipped.
func (svc *Service) Nearest(ctx context.Context, s *session.Session, center geo.Coordinates, radiusKm float64) ([]NearbyPlace, error) {
	if radiusKm <= 0 {
		radiusKm = svc.cfg.NearestRadiusKm
	}
	places, err := svc.source.NearestPlaces(ctx, s, center, radiusKm)
	if err != nil {
		return nil, err
	}

	out := make([]NearbyPlace, 0, len(places))
	for _, p := range places {
		c, ok := p.Coordinates()
		if !ok {
			continue
		}
		d := geo.HaversineMeters(center, c)
		out = append(out, NearbyPlace{Place: p, DistanceMeters: d, DistanceLabel: geo.FormatDistance(d)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DistanceMeters < out[j].DistanceMeters })
	return out, nil
}

// Serve keeps the shared anonymous snapshot warm until ctx is done. It
// implements suture.Service.
func (svc *Service) Serve(ctx context.Context) error {
	if svc.cfg.RefreshInterval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}
	ticker := time.NewTicker(svc.cfg.RefreshInterval)
	defer ticker.Stop()

	anon := svc.entry("")
	if err := svc.refresh(ctx, nil, anon, TriggerInitial); err != nil {
		logging.Warn().Err(err).Msg("Initial catalog load failed")
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := svc.refresh(ctx, nil, anon, TriggerTicker); err != nil {
				logging.Warn().Err(err).Msg("Periodic catalog refresh failed")
			}
		}
	}
}

// String names the refresher service in supervisor logs.
func (svc *Service) String() string { return "catalog-refresher" }
