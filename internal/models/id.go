// Mythmap - Myths and Legends Map Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mythmap

package models

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// ID is an opaque record identifier. The upstream emits integers; strings are
// accepted too. The zero value means "no id".
type ID string

// IDFromInt converts an integer id.
func IDFromInt(n int64) ID {
	return ID(strconv.FormatInt(n, 10))
}

// IsZero reports whether id is empty.
func (id ID) IsZero() bool {
	return id == ""
}

func (id ID) String() string {
	return string(id)
}

// numeric reports whether id is a plain base-10 integer.
func (id ID) numeric() bool {
	if id == "" {
		return false
	}
	_, err := strconv.ParseInt(string(id), 10, 64)
	return err == nil
}

// MarshalJSON writes numeric ids as JSON numbers and everything else as strings.
func (id ID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	if id.numeric() {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// UnmarshalJSON accepts a number, a string or null.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*id = ""
		return nil
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	case b[0] == '-' || (b[0] >= '0' && b[0] <= '9'):
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return err
		}
		if i, err := n.Int64(); err == nil {
			*id = IDFromInt(i)
			return nil
		}
		*id = ID(n.String())
		return nil
	default:
		return fmt.Errorf("id: unsupported JSON value %s", truncateJSON(b))
	}
}

// JoinIDs renders ids as a comma separated list, as used by id__in filters.
func JoinIDs(ids []ID) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		if !id.IsZero() {
			parts = append(parts, string(id))
		}
	}
	return strings.Join(parts, ",")
}

func truncateJSON(b []byte) string {
	if len(b) > 32 {
		return string(b[:32]) + "..."
	}
	return string(b)
}
