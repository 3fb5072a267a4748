// Mythmap - Myths and Legends Map Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mythmap

package apiclient

import (
	"context"
	"errors"
	"net/http"

	"github.com/tomtom215/mythmap/internal/models"
)

// ErrEmptyToken is returned when login succeeds without a token.
var ErrEmptyToken = errors.New("upstream returned an empty token")

// LoginResult is the token response of login and register.
type LoginResult struct {
	Token    string    `json:"token"`
	UserID   models.ID `json:"user_id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
}

type credentials struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
}

// Login exchanges credentials for an upstream token.
func (c *Client) Login(ctx context.Context, username, password string) (LoginResult, error) {
	return c.tokenRequest(ctx, "login", "/api/auth/login/", credentials{Username: username, Password: password})
}

// Register creates an account and returns its token.
func (c *Client) Register(ctx context.Context, username, email, password string) (LoginResult, error) {
	return c.tokenRequest(ctx, "register", "/api/auth/register/", credentials{Username: username, Email: email, Password: password})
}

func (c *Client) tokenRequest(ctx context.Context, op, path string, body credentials) (LoginResult, error) {
	resp, err := c.do(ctx, request{op: op, method: http.MethodPost, path: path, body: body})
	if err != nil {
		return LoginResult{}, err
	}
	var out LoginResult
	if err := decodeObject(op, resp.body, &out); err != nil {
		return LoginResult{}, err
	}
	if out.Token == "" {
		return LoginResult{}, ErrEmptyToken
	}
	return out, nil
}

// Logout revokes the token of auth upstream.
func (c *Client) Logout(ctx context.Context, auth Authorizer) error {
	_, err := c.do(ctx, request{op: "logout", method: http.MethodPost, path: "/api/auth/logout/", auth: auth})
	return err
}

// Profile returns the account of auth. It doubles as token validation.
func (c *Client) Profile(ctx context.Context, auth Authorizer) (models.User, error) {
	var u models.User
	if err := c.getJSON(ctx, "profile", "/api/auth/profile/", nil, auth, &u); err != nil {
		return models.User{}, err
	}
	if u.Groups == nil {
		u.Groups = []string{}
	}
	return u, nil
}
