// Package base provides the resilient HTTP client shared by all provider
// clients: cache-check, rate-limit wait, retry-with-backoff, cache-write.
// Provider clients compose a *Client rather than extending it.
package base

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/atlasresearch/atlas/internal/cache"
	"github.com/atlasresearch/atlas/internal/ratelimit"
)

// HTTPError is a non-2xx upstream response. Status drives retry policy
// and not-found mapping at the provider-client boundary.
type HTTPError struct {
	Status int
	URL    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d from %s", e.Status, e.URL)
}

// IsNotFound reports whether err is an upstream 404.
func IsNotFound(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status == http.StatusNotFound
	}
	return false
}

// Config is the per-provider static configuration. Immutable after
// construction.
type Config struct {
	BaseURL         string
	Headers         map[string]string
	Timeout         time.Duration // default 10s
	RateLimitKey    string        // empty disables rate limiting
	RateLimitMax    int
	RateLimitWindow time.Duration
	CacheTTL        time.Duration // provider default; zero defers to the store's default TTL
	RetryAttempts   int           // default 3
	RetryDelay      time.Duration // default 1s, linear backoff (delay * attempt)
}

// RequestOptions control caching and rate limiting per request.
type RequestOptions struct {
	CacheKey      string
	CacheTTL      time.Duration // overrides the provider default when set
	SkipCache     bool
	SkipRateLimit bool
}

// Client wraps an HTTP transport with caching, rate limiting, and retry.
type Client struct {
	httpClient *http.Client
	store      cache.Store
	limiter    *ratelimit.Limiter
	cfg        Config
	log        zerolog.Logger
}

// New creates a resilient client for one provider.
func New(name string, cfg Config, store cache.Store, limiter *ratelimit.Limiter, log zerolog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		store:      store,
		limiter:    limiter,
		cfg:        cfg,
		log:        log.With().Str("client", name).Logger(),
	}
}

// GetJSON performs a GET against path with query params, decoding the JSON
// response into out. The full pipeline runs: cache lookup, rate-limit wait,
// HTTP with retry, cache write-through.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, opts RequestOptions, out interface{}) error {
	// 1. Cache lookup
	if opts.CacheKey != "" && !opts.SkipCache {
		data, ok, err := c.store.Get(ctx, opts.CacheKey)
		if err != nil {
			c.log.Warn().Err(err).Str("key", opts.CacheKey).Msg("Cache read failed")
		} else if ok {
			c.log.Debug().Str("key", opts.CacheKey).Msg("Cache hit")
			return json.Unmarshal(data, out)
		}
	}

	// 2. Rate-limit wait
	if c.cfg.RateLimitKey != "" && !opts.SkipRateLimit {
		err := c.limiter.WaitForSlot(ctx, c.cfg.RateLimitKey, ratelimit.Config{
			MaxRequests: c.cfg.RateLimitMax,
			Window:      c.cfg.RateLimitWindow,
		}, 0)
		if err != nil {
			return err
		}
	}

	// 3. HTTP with retry
	body, err := c.doWithRetry(ctx, path, query)
	if err != nil {
		return err
	}

	// 4. Cache write-through
	if opts.CacheKey != "" && !opts.SkipCache {
		// Zero TTL falls through to the store's configured default.
		ttl := opts.CacheTTL
		if ttl <= 0 {
			ttl = c.cfg.CacheTTL
		}
		if err := c.store.Set(ctx, opts.CacheKey, body, ttl); err != nil {
			c.log.Warn().Err(err).Str("key", opts.CacheKey).Msg("Cache write failed")
		} else {
			c.log.Debug().Str("key", opts.CacheKey).Dur("ttl", ttl).Msg("Cached")
		}
	}

	return json.Unmarshal(body, out)
}

// doWithRetry executes the HTTP call, retrying retryable failures with
// linear backoff (RetryDelay * attempt, attempt indexed from 1).
func (c *Client) doWithRetry(ctx context.Context, path string, query url.Values) ([]byte, error) {
	var lastErr error

	for attempt := 1; attempt <= c.cfg.RetryAttempts; attempt++ {
		body, err := c.do(ctx, path, query)
		if err == nil {
			return body, nil
		}

		lastErr = err

		if attempt < c.cfg.RetryAttempts && isRetryable(err) {
			delay := c.cfg.RetryDelay * time.Duration(attempt)
			c.log.Warn().
				Int("attempt", attempt).
				Int("max_attempts", c.cfg.RetryAttempts).
				Dur("delay", delay).
				Msg("Retrying request")

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			continue
		}

		break
	}

	return nil, lastErr
}

// do executes a single GET request.
func (c *Client) do(ctx context.Context, path string, query url.Values) ([]byte, error) {
	fullURL := c.cfg.BaseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", fullURL, err)
	}
	for k, v := range c.cfg.Headers {
		req.Header.Set(k, v)
	}

	c.log.Debug().Str("url", fullURL).Msg("Request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", fullURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &HTTPError{Status: resp.StatusCode, URL: fullURL}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", fullURL, err)
	}

	return body, nil
}

// isRetryable reports whether a failed call should be retried: transport
// errors (no HTTP status at all) and HTTP 429/5xx.
func isRetryable(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status == http.StatusTooManyRequests || httpErr.Status >= 500
	}

	// Rate-limit timeouts are not transport failures - retrying inside the
	// same request would just wait again.
	var rlErr *ratelimit.TimeoutError
	if errors.As(err, &rlErr) {
		return false
	}

	// Network error, timeout, connection refused - retryable.
	return true
}

// CacheKey builds a deterministic cache key: prefix plus key=value pairs
// sorted by key name. Identical logical requests collide regardless of
// parameter insertion order.
func CacheKey(prefix string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}

	return prefix + ":" + strings.Join(pairs, "&")
}
