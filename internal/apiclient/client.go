// Mythmap - Myths and Legends Map Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mythmap

package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/mythmap/internal/config"
	"github.com/tomtom215/mythmap/internal/logging"
	"github.com/tomtom215/mythmap/internal/metrics"
)

const (
	// maxErrorBodySize bounds the body kept on an HTTPError.
	maxErrorBodySize = 4 << 10
	// maxResponseSize bounds any upstream response body.
	maxResponseSize = 32 << 20
	// maxRetryDelay caps the backoff and Retry-After waits.
	maxRetryDelay = 30 * time.Second
	// maxPages bounds how many "next" links a listing follows.
	maxPages = 50
)

// Authorizer supplies the upstream token for a request. A nil Authorizer or
// an empty token sends an anonymous request.
type Authorizer interface {
	AuthToken() string
}

// Client talks to the myths REST API. It is safe for concurrent use.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *breaker
	maxRetries int
	retryDelay time.Duration
	pageSize   int
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a client for cfg.BaseURL.
func New(cfg *config.UpstreamConfig, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse upstream url: %w", err)
	}
	limit := rate.Inf
	if cfg.RateLimitRPS > 0 {
		limit = rate.Limit(cfg.RateLimitRPS)
	}
	c := &Client{
		baseURL:    base,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, max(cfg.RateLimitBurst, 1)),
		breaker:    newBreaker(cfg),
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		pageSize:   cfg.PageSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BreakerState returns the circuit breaker state: closed, half-open or open.
func (c *Client) BreakerState() string {
	return c.breaker.State()
}

// request describes one upstream call.
type request struct {
	op     string
	method string
	path   string // relative to the base URL, or an absolute "next" link
	query  url.Values
	body   any
	auth   Authorizer
}

type response struct {
	status int
	body   []byte
}

// do executes r through the rate limiter, retry loop and circuit breaker.
// Non-2xx responses become *HTTPError.
func (c *Client) do(ctx context.Context, r request) (*response, error) {
	target, err := c.resolve(r.path, r.query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.op, err)
	}
	var payload []byte
	if r.body != nil {
		if payload, err = json.Marshal(r.body); err != nil {
			return nil, fmt.Errorf("%s: encode request: %w", r.op, err)
		}
	}
	return c.breaker.execute(func() (*response, error) {
		return c.roundTrip(ctx, r, target, payload)
	})
}

// roundTrip retries on HTTP 429 and 503 with exponential backoff, honoring
// Retry-After when the upstream sends it.
func (c *Client) roundTrip(ctx context.Context, r request, target string, payload []byte) (*response, error) {
	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%s: rate limiter: %w", r.op, err)
		}

		resp, err := c.send(ctx, r, target, payload)
		if err != nil {
			return nil, err
		}
		if resp.status != http.StatusTooManyRequests && resp.status != http.StatusServiceUnavailable {
			if resp.status < 200 || resp.status > 299 {
				return nil, newHTTPError(r.op, resp.status, resp.body)
			}
			return &response{status: resp.status, body: resp.body}, nil
		}

		if attempt >= c.maxRetries {
			return nil, fmt.Errorf("%s: %w after %d retries: %w", r.op, ErrRateLimited, c.maxRetries, newHTTPError(r.op, resp.status, resp.body))
		}

		delay := backoff(c.retryDelay, attempt, resp.retryAfter)
		logging.Warn().
			Str("operation", r.op).
			Int("status", resp.status).
			Dur("retry_delay", delay).
			Int("attempt", attempt+1).
			Int("max_retries", c.maxRetries).
			Msg("Myths API throttled, retrying")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

type rawResponse struct {
	status     int
	body       []byte
	retryAfter string
}

func (c *Client) send(ctx context.Context, r request, target string, payload []byte) (*rawResponse, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, target, body)
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", r.op, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.auth != nil {
		if token := r.auth.AuthToken(); token != "" {
			req.Header.Set("Authorization", "Token "+token)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordUpstreamRequest(r.op, 0, time.Since(start))
		return nil, fmt.Errorf("%s: execute request: %w", r.op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	metrics.RecordUpstreamRequest(r.op, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", r.op, err)
	}
	logging.Ctx(ctx).Debug().
		Str("operation", r.op).
		Str("method", r.method).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Myths API call")

	return &rawResponse{status: resp.StatusCode, body: data, retryAfter: resp.Header.Get("Retry-After")}, nil
}

// resolve builds the request URL. Absolute links must point at the upstream host.
func (c *Client) resolve(path string, query url.Values) (string, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("parse path %q: %w", path, err)
	}
	var u *url.URL
	if ref.IsAbs() {
		if ref.Host != c.baseURL.Host {
			return "", fmt.Errorf("refusing link to foreign host %q", ref.Host)
		}
		u = ref
	} else {
		u = c.baseURL.JoinPath(ref.Path)
		// the REST framework routes need the trailing slash
		if strings.HasSuffix(ref.Path, "/") && !strings.HasSuffix(u.Path, "/") {
			u.Path += "/"
		}
	}
	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// backoff returns the wait before retry attempt+1.
func backoff(base time.Duration, attempt int, retryAfter string) time.Duration {
	delay := base << attempt
	if retryAfter != "" {
		if seconds, err := strconv.Atoi(strings.TrimSpace(retryAfter)); err == nil && seconds >= 0 {
			delay = time.Duration(seconds) * time.Second
		} else if at, err := http.ParseTime(retryAfter); err == nil {
			delay = time.Until(at)
		}
	}
	if delay < 0 {
		delay = 0
	}
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	return delay
}

// getJSON issues a GET and decodes a single object into out.
func (c *Client) getJSON(ctx context.Context, op, path string, query url.Values, auth Authorizer, out any) error {
	resp, err := c.do(ctx, request{op: op, method: http.MethodGet, path: path, query: query, auth: auth})
	if err != nil {
		return err
	}
	return decodeObject(op, resp.body, out)
}

func decodeObject(op string, body []byte, out any) error {
	if err := json.Unmarshal(body, out); err != nil {
		return decodeFailed(op, &DecodeError{Reason: "malformed object", Snippet: truncate(body, 64), Err: err})
	}
	return nil
}
