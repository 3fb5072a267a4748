// Mythmap - Myths and Legends Map Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mythmap

package xref

import (
	"context"
	"time"

	"github.com/graph-gophers/dataloader/v7"

	"github.com/tomtom215/mythmap/internal/metrics"
	"github.com/tomtom215/mythmap/internal/models"
)

const (
	maxBatch = 100
	wait     = 2 * time.Millisecond
)

// Loader coalesces concurrent place lookups into batched id__in fetches.
// Loaders cache results, so create one per request or per session view.
type Loader struct {
	loader *dataloader.Loader[models.ID, Resolution]
}

// NewLoader creates a loader backed by fetcher.
func NewLoader(fetcher PlaceFetcher) *Loader {
	return &Loader{
		loader: dataloader.NewBatchedLoader(
			newPlaceBatchFn(fetcher),
			dataloader.WithWait[models.ID, Resolution](wait),
			dataloader.WithBatchCapacity[models.ID, Resolution](maxBatch),
		),
	}
}

func newPlaceBatchFn(fetcher PlaceFetcher) dataloader.BatchFunc[models.ID, Resolution] {
	return func(ctx context.Context, keys []models.ID) []*dataloader.Result[Resolution] {
		metrics.XrefBatchSize.Observe(float64(len(keys)))
		places, err := fetcher.FetchPlacesByIDs(ctx, keys)
		if err != nil {
			return errorResults(len(keys), err)
		}

		names := make(map[models.ID]string, len(places))
		for i := range places {
			names[places[i].ID] = places[i].Name
		}

		results := make([]*dataloader.Result[Resolution], len(keys))
		for i, key := range keys {
			results[i] = &dataloader.Result[Resolution]{Data: Lookup(key, true, names)}
		}
		return results
	}
}

func errorResults(n int, err error) []*dataloader.Result[Resolution] {
	results := make([]*dataloader.Result[Resolution], n)
	for i := range results {
		results[i] = &dataloader.Result[Resolution]{Error: err}
	}
	return results
}

// Load resolves the place reference of a. Orphaned annotations resolve
// without a fetch.
func (l *Loader) Load(ctx context.Context, a *models.Annotation) (Resolution, error) {
	id, ok := ExtractPlaceID(a)
	if !ok {
		metrics.XrefResolutions.WithLabelValues(StateOrphaned.String()).Inc()
		return Orphaned(), nil
	}
	res, err := l.loader.Load(ctx, id)()
	if err != nil {
		return Resolution{}, err
	}
	metrics.XrefResolutions.WithLabelValues(res.State.String()).Inc()
	return res, nil
}

// LoadAll resolves every annotation, in order. Lookups are issued before any
// result is awaited so they share batches.
func (l *Loader) LoadAll(ctx context.Context, annotations []models.Annotation) ([]Resolution, error) {
	thunks := make([]dataloader.Thunk[Resolution], len(annotations))
	for i := range annotations {
		if id, ok := ExtractPlaceID(&annotations[i]); ok {
			thunks[i] = l.loader.Load(ctx, id)
		}
	}

	out := make([]Resolution, len(annotations))
	for i, thunk := range thunks {
		if thunk == nil {
			out[i] = Orphaned()
		} else {
			res, err := thunk()
			if err != nil {
				return nil, err
			}
			out[i] = res
		}
		metrics.XrefResolutions.WithLabelValues(out[i].State.String()).Inc()
	}
	return out, nil
}
