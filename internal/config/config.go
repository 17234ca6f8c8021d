// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for all databases (always absolute)
	LogLevel string
	Port     int
	DevMode  bool

	// External data provider credentials. All optional - clients degrade
	// gracefully when a key is missing.
	SECEdgarUserAgent string // SEC requires a descriptive User-Agent with contact info
	OpenCorporatesKey string
	NewsAPIKey        string

	// Redis cache backend. When Host is empty the SQLite cache store is used.
	RedisHost string
	RedisPort int

	// Rate limiting defaults (per-provider overrides live in the client configs)
	RateLimitWindow time.Duration
	RateLimitMax    int

	// Cache TTLs
	DefaultCacheTTL time.Duration
	MarketDataTTL   time.Duration
	NewsTTL         time.Duration
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	// ATLAS_DATA_DIR wins over the generic DATA_DIR when both are set.
	dataDir := getEnv("ATLAS_DATA_DIR", "")
	if dataDir == "" {
		dataDir = getEnv("DATA_DIR", "./data")
	}

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	// Ensure directory exists
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:  absDataDir,
		Port:     getEnvAsInt("PORT", 3001),
		DevMode:  getEnvAsBool("DEV_MODE", false),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		SECEdgarUserAgent: getEnv("SEC_EDGAR_USER_AGENT", "AtlasResearch/1.0 (research@atlasresearch.dev)"),
		OpenCorporatesKey: getEnv("OPENCORPORATES_API_KEY", ""),
		NewsAPIKey:        getEnv("NEWS_API_KEY", ""),

		RedisHost: getEnv("REDIS_HOST", ""),
		RedisPort: getEnvAsInt("REDIS_PORT", 6379),

		RateLimitWindow: time.Duration(getEnvAsInt("RATE_LIMIT_TTL", 60)) * time.Second,
		RateLimitMax:    getEnvAsInt("RATE_LIMIT_MAX", 100),

		DefaultCacheTTL: time.Duration(getEnvAsInt("DEFAULT_CACHE_TTL_SECONDS", 604800)) * time.Second,
		MarketDataTTL:   time.Duration(getEnvAsInt("MARKET_DATA_TTL_SECONDS", 300)) * time.Second,
		NewsTTL:         time.Duration(getEnvAsInt("NEWS_TTL_SECONDS", 1800)) * time.Second,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.RateLimitMax <= 0 {
		return fmt.Errorf("RATE_LIMIT_MAX must be positive, got %d", c.RateLimitMax)
	}
	return nil
}

// RedisAddr returns the host:port address of the Redis cache backend,
// or an empty string when Redis is not configured.
func (c *Config) RedisAddr() string {
	if c.RedisHost == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
