// Echotrace - Social Post Engagement Tracking and Analytics
// Copyright 2026 Echotrace Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/echotrace/echotrace

package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/echotrace/echotrace/internal/config"
	"github.com/echotrace/echotrace/internal/metrics"
)

// maxErrorBodySize limits how much of an error response body is read for
// diagnostics, preventing unbounded allocation on large error pages.
const maxErrorBodySize = 64 * 1024 // 64KB

// Client is the provider API surface the monitor consumes. Implemented by
// HTTPClient for production, BreakerClient as a resilience wrapper, and by
// test fakes.
//
// All methods are safe for concurrent use and honor context cancellation.
type Client interface {
	// PostDetail fetches a post's current full detail.
	PostDetail(ctx context.Context, postID string) (*PostDetail, error)

	// Comments fetches the post's conversation replies. A non-zero since
	// narrows the search to replies created after that time.
	Comments(ctx context.Context, postID string, since time.Time) ([]Post, error)

	// Retweeters fetches the accounts that re-shared the post.
	Retweeters(ctx context.Context, postID string) ([]User, error)

	// Quotes fetches the posts quoting the post.
	Quotes(ctx context.Context, postID string) ([]Post, error)

	// Account resolves an account by screen name.
	Account(ctx context.Context, screenName string) (*User, error)

	// AccountPosts fetches an account's posts created after since.
	AccountPosts(ctx context.Context, screenName string, since time.Time) ([]Post, error)
}

// HTTPClient talks to the social-data HTTP API.
//
// Each request is gated by the client-side rate limiter, carries the
// bearer API key, and classifies the response status into the three
// provider outcomes. HTTP 429 responses are retried with exponential
// backoff before surfacing as ErrQuotaExhausted.
type HTTPClient struct {
	baseURL        string
	apiKey         string
	client         *http.Client
	limiter        *rate.Limiter
	maxRetries     int
	retryBaseDelay time.Duration
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a provider client from configuration.
func NewHTTPClient(cfg *config.ProviderConfig) *HTTPClient {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)
	}
	return &HTTPClient{
		baseURL:        cfg.BaseURL,
		apiKey:         cfg.APIKey,
		client:         &http.Client{Timeout: cfg.Timeout},
		limiter:        limiter,
		maxRetries:     cfg.MaxRetries,
		retryBaseDelay: cfg.RetryBaseDelay,
	}
}

// PostDetail fetches a post's current detail, keeping the raw payload.
func (c *HTTPClient) PostDetail(ctx context.Context, postID string) (*PostDetail, error) {
	raw, err := c.get(ctx, "post_detail", "/twitter/tweets/"+url.PathEscape(postID), nil)
	if err != nil {
		return nil, err
	}
	detail := &PostDetail{Raw: raw}
	if err := json.Unmarshal(raw, &detail.Post); err != nil {
		return nil, fmt.Errorf("failed to decode post detail for %s: %w", postID, err)
	}
	return detail, nil
}

// Comments fetches the post's conversation replies via cursor-paginated
// search.
func (c *HTTPClient) Comments(ctx context.Context, postID string, since time.Time) ([]Post, error) {
	query := "conversation_id:" + postID
	if !since.IsZero() {
		query += " since_time:" + strconv.FormatInt(since.Unix(), 10)
	}
	return c.searchPosts(ctx, "comments", query)
}

// Retweeters fetches the accounts that re-shared the post.
func (c *HTTPClient) Retweeters(ctx context.Context, postID string) ([]User, error) {
	var all []User
	cursor := ""
	for {
		params := url.Values{}
		if cursor != "" {
			params.Set("cursor", cursor)
		}
		raw, err := c.get(ctx, "retweeters", "/twitter/tweets/"+url.PathEscape(postID)+"/retweeted_by", params)
		if err != nil {
			return nil, err
		}
		var page retweetersPage
		if err := json.Unmarshal(raw, &page); err != nil {
			return nil, fmt.Errorf("failed to decode retweeters page for %s: %w", postID, err)
		}
		all = append(all, page.Users...)
		if page.NextCursor == "" {
			return all, nil
		}
		cursor = page.NextCursor
	}
}

// Quotes fetches the posts quoting the post.
func (c *HTTPClient) Quotes(ctx context.Context, postID string) ([]Post, error) {
	return c.searchPosts(ctx, "quotes", "quoted_tweet_id:"+postID)
}

// Account resolves an account by screen name.
func (c *HTTPClient) Account(ctx context.Context, screenName string) (*User, error) {
	raw, err := c.get(ctx, "account", "/twitter/user/"+url.PathEscape(screenName), nil)
	if err != nil {
		return nil, err
	}
	user := &User{}
	if err := json.Unmarshal(raw, user); err != nil {
		return nil, fmt.Errorf("failed to decode account %s: %w", screenName, err)
	}
	return user, nil
}

// AccountPosts fetches an account's posts created after since.
func (c *HTTPClient) AccountPosts(ctx context.Context, screenName string, since time.Time) ([]Post, error) {
	query := "from:" + screenName
	if !since.IsZero() {
		query += " since_time:" + strconv.FormatInt(since.Unix(), 10)
	}
	return c.searchPosts(ctx, "account_posts", query)
}

// searchPosts walks the cursor-paginated search endpoint until the cursor
// runs out.
func (c *HTTPClient) searchPosts(ctx context.Context, endpoint, query string) ([]Post, error) {
	var all []Post
	cursor := ""
	for {
		params := url.Values{}
		params.Set("query", query)
		if cursor != "" {
			params.Set("cursor", cursor)
		}
		raw, err := c.get(ctx, endpoint, "/twitter/search", params)
		if err != nil {
			return nil, err
		}
		var page searchPage
		if err := json.Unmarshal(raw, &page); err != nil {
			return nil, fmt.Errorf("failed to decode %s search page: %w", endpoint, err)
		}
		all = append(all, page.Tweets...)
		if page.NextCursor == "" {
			return all, nil
		}
		cursor = page.NextCursor
	}
}

// get performs one rate-limited, retry-protected GET and classifies the
// response status into a provider outcome.
func (c *HTTPClient) get(ctx context.Context, endpoint, path string, params url.Values) (json.RawMessage, error) {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	start := time.Now()
	raw, err := c.doRequestWithRateLimit(ctx, reqURL)
	metrics.ProviderRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	metrics.ProviderRequestsTotal.WithLabelValues(endpoint, outcomeLabel(err)).Inc()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", endpoint, err)
	}
	return raw, nil
}

// doRequestWithRateLimit performs a GET with rate limiting and automatic
// 429 handling. Backoff doubles each retry (1s, 2s, 4s, 8s, 16s) and the
// Retry-After header takes precedence when present. The context is honored
// during backoff waits.
func (c *HTTPClient) doRequestWithRateLimit(ctx context.Context, reqURL string) (json.RawMessage, error) {
	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("HTTP request failed: %w", err)
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			return classifyResponse(resp)
		}

		delay := c.retryBaseDelay * time.Duration(1<<uint(attempt))
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if seconds, perr := strconv.Atoi(retryAfter); perr == nil {
				delay = time.Duration(seconds) * time.Second
			}
		}
		_ = resp.Body.Close() // retrying, body content is irrelevant

		if attempt == c.maxRetries {
			return nil, fmt.Errorf("rate limited after %d retries: %w", c.maxRetries, ErrQuotaExhausted)
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// classifyResponse maps an HTTP response to a provider outcome. Consumes
// and closes the body.
func classifyResponse(resp *http.Response) (json.RawMessage, error) {
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read response body: %w", err)
		}
		return body, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode == http.StatusPaymentRequired:
		return nil, ErrQuotaExhausted
	default:
		body := readBodyForError(resp.Body)
		return nil, fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}
}

// readBodyForError reads at most maxErrorBodySize bytes for diagnostics.
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("... (truncated)")...)
	}
	return body
}

// outcomeLabel maps a call error to the metrics outcome label.
func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case IsNotFound(err):
		return "not_found"
	case IsQuotaExhausted(err):
		return "quota_exhausted"
	default:
		return "error"
	}
}
