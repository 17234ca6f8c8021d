package base

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlasresearch/atlas/internal/ratelimit"
)

// memoryStore is an in-memory cache.Store for tests.
type memoryStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[string][]byte)}
}

func (m *memoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memoryStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memoryStore) Del(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memoryStore) Keys(_ context.Context, _ string) ([]string, error) { return nil, nil }
func (m *memoryStore) FlushAll(_ context.Context) error                   { return nil }
func (m *memoryStore) Close() error                                       { return nil }

func newTestClient(serverURL string, cfg Config) *Client {
	cfg.BaseURL = serverURL
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Millisecond
	}
	return New("test", cfg, newMemoryStore(), ratelimit.New(), zerolog.Nop())
}

func TestCacheKey_OrderIndependent(t *testing.T) {
	a := CacheKey("p", map[string]string{"b": "2", "a": "1"})
	b := CacheKey("p", map[string]string{"a": "1", "b": "2"})

	assert.Equal(t, a, b)
	assert.Equal(t, "p:a=1&b=2", a)
}

func TestGetJSON_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"name":"Apple"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, Config{})

	var out struct {
		Name string `json:"name"`
	}
	err := client.GetJSON(context.Background(), "/company", nil, RequestOptions{}, &out)
	require.NoError(t, err)
	assert.Equal(t, "Apple", out.Name)
}

func TestGetJSON_RetriesOn503ThenSucceeds(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, Config{RetryAttempts: 3})

	var out struct {
		OK bool `json:"ok"`
	}
	err := client.GetJSON(context.Background(), "/", nil, RequestOptions{}, &out)
	require.NoError(t, err)
	assert.True(t, out.OK)
	assert.Equal(t, 3, calls)
}

func TestGetJSON_DoesNotRetryOn400(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := newTestClient(server.URL, Config{RetryAttempts: 3})

	var out map[string]interface{}
	err := client.GetJSON(context.Background(), "/", nil, RequestOptions{}, &out)
	require.Error(t, err)

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.Status)
	assert.Equal(t, 1, calls, "400 responses must not be retried")
}

func TestGetJSON_ExhaustedRetriesPropagates(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server.URL, Config{RetryAttempts: 2})

	var out map[string]interface{}
	err := client.GetJSON(context.Background(), "/", nil, RequestOptions{}, &out)
	require.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestGetJSON_CacheHitSkipsHTTP(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{"value":1}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, Config{})
	opts := RequestOptions{CacheKey: "test:key"}

	var out map[string]interface{}
	require.NoError(t, client.GetJSON(context.Background(), "/", nil, opts, &out))
	require.NoError(t, client.GetJSON(context.Background(), "/", nil, opts, &out))

	assert.Equal(t, 1, calls, "second request should be served from cache")
}

func TestGetJSON_SkipCacheBypassesStore(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{"value":1}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, Config{})
	opts := RequestOptions{CacheKey: "test:key", SkipCache: true}

	var out map[string]interface{}
	require.NoError(t, client.GetJSON(context.Background(), "/", nil, opts, &out))
	require.NoError(t, client.GetJSON(context.Background(), "/", nil, opts, &out))

	assert.Equal(t, 2, calls)
}

func TestGetJSON_RateLimitTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	limiter := ratelimit.New()
	cfg := Config{
		BaseURL:         server.URL,
		RateLimitKey:    "test",
		RateLimitMax:    1,
		RateLimitWindow: time.Hour,
		RetryDelay:      time.Millisecond,
	}
	client := New("test", cfg, newMemoryStore(), limiter, zerolog.Nop())

	// Exhaust the budget out of band
	require.True(t, limiter.CheckLimit("test", ratelimit.Config{MaxRequests: 1, Window: time.Hour}))

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	var out map[string]interface{}
	err := client.GetJSON(ctx, "/", nil, RequestOptions{}, &out)
	require.Error(t, err)
}

func TestGetJSON_QueryAndHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "AAPL", r.URL.Query().Get("symbols"))
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, Config{
		Headers: map[string]string{"User-Agent": "test-agent"},
	})

	query := url.Values{}
	query.Set("symbols", "AAPL")

	var out map[string]interface{}
	require.NoError(t, client.GetJSON(context.Background(), "/quote", query, RequestOptions{}, &out))
}
