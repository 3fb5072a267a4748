// Mythmap - Myths and Legends Map Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mythmap

package catalog

import (
	"sort"
	"strings"

	"github.com/tomtom215/mythmap/internal/models"
)

// ParseCategories splits a comma separated categories field into trimmed,
// non-empty, unique tags in first-seen order.
func ParseCategories(field string) []string {
	if strings.TrimSpace(field) == "" {
		return nil
	}
	parts := strings.Split(field, ",")
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		tag := strings.TrimSpace(p)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// ExtractCategories returns the sorted set of tags used across places.
// The result is never nil.
func ExtractCategories(places []models.Place) []string {
	seen := make(map[string]struct{})
	for i := range places {
		for _, tag := range ParseCategories(places[i].Categories) {
			seen[tag] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for tag := range seen {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}
