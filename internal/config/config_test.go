package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load reads so host environment does not
// leak into assertions.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ATLAS_DATA_DIR", "DATA_DIR", "PORT", "DEV_MODE", "LOG_LEVEL",
		"SEC_EDGAR_USER_AGENT", "OPENCORPORATES_API_KEY", "NEWS_API_KEY",
		"REDIS_HOST", "REDIS_PORT", "RATE_LIMIT_TTL", "RATE_LIMIT_MAX",
		"DEFAULT_CACHE_TTL_SECONDS", "MARKET_DATA_TTL_SECONDS", "NEWS_TTL_SECONDS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATA_DIR", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3001, cfg.Port)
	assert.Equal(t, 100, cfg.RateLimitMax)
	assert.Equal(t, time.Minute, cfg.RateLimitWindow)
	assert.Equal(t, 7*24*time.Hour, cfg.DefaultCacheTTL)
	assert.Equal(t, 5*time.Minute, cfg.MarketDataTTL)
	assert.Equal(t, 30*time.Minute, cfg.NewsTTL)
}

func TestLoad_DataDirPrecedence(t *testing.T) {
	clearEnv(t)
	generic := t.TempDir()
	prefixed := t.TempDir()

	t.Setenv("DATA_DIR", generic)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, generic, cfg.DataDir)

	t.Setenv("ATLAS_DATA_DIR", prefixed)
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, prefixed, cfg.DataDir)
}

func TestLoad_TTLsFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATA_DIR", t.TempDir())
	t.Setenv("DEFAULT_CACHE_TTL_SECONDS", "120")
	t.Setenv("RATE_LIMIT_TTL", "30")
	t.Setenv("RATE_LIMIT_MAX", "10")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2*time.Minute, cfg.DefaultCacheTTL)
	assert.Equal(t, 30*time.Second, cfg.RateLimitWindow)
	assert.Equal(t, 10, cfg.RateLimitMax)
}

func TestValidate_RejectsNonPositiveRateLimit(t *testing.T) {
	cfg := &Config{Port: 3001, RateLimitMax: 0}
	assert.Error(t, cfg.Validate())
}
