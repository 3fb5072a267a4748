// Mythmap - Myths and Legends Map Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mythmap

package models

// ModeratorsGroup is the upstream group granting moderation rights.
const ModeratorsGroup = "Moderators"

// UnknownUsername is shown for records whose author is not available.
const UnknownUsername = "Unknown"

// User is an upstream account.
type User struct {
	ID          ID       `json:"id"`
	Username    string   `json:"username"`
	Email       string   `json:"email,omitempty"`
	IsSuperuser bool     `json:"is_superuser"`
	Groups      []string `json:"groups"`
}

// IsModeratorOrAdmin reports whether u may approve or reject submissions.
func (u *User) IsModeratorOrAdmin() bool {
	if u == nil {
		return false
	}
	if u.IsSuperuser {
		return true
	}
	for _, g := range u.Groups {
		if g == ModeratorsGroup {
			return true
		}
	}
	return false
}

// Role returns the authorization role name: "admin", "moderator" or "user".
// A nil user is "anonymous".
func (u *User) Role() string {
	switch {
	case u == nil:
		return "anonymous"
	case u.IsSuperuser:
		return "admin"
	case u.IsModeratorOrAdmin():
		return "moderator"
	default:
		return "user"
	}
}

// RoleLabel is the display label for the user's role.
func (u *User) RoleLabel() string {
	switch u.Role() {
	case "admin":
		return "Администратор"
	case "moderator":
		return "Модератор"
	case "user":
		return "Пользователь"
	default:
		return "Гость"
	}
}

// Normalized returns a copy with the username defaulted and groups non-nil.
func (u *User) Normalized() User {
	if u == nil {
		return User{Username: UnknownUsername, Groups: []string{}}
	}
	out := *u
	if out.Username == "" {
		out.Username = UnknownUsername
	}
	if out.Groups == nil {
		out.Groups = []string{}
	}
	return out
}
