package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisStore backs the cache with a Redis server.
type RedisStore struct {
	client     *redis.Client
	defaultTTL time.Duration
	log        zerolog.Logger
}

// NewRedisStore connects to Redis at addr (host:port) and verifies the
// connection with a ping. defaultTTL applies to writes that do not specify
// a TTL; zero falls back to DefaultTTL.
func NewRedisStore(addr string, defaultTTL time.Duration, log zerolog.Logger) (*RedisStore, error) {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	return &RedisStore{
		client:     client,
		defaultTTL: defaultTTL,
		log:        log.With().Str("cache", "redis").Logger(),
	}, nil
}

// Get returns the cached payload for key.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return value, true, nil
}

// Set writes a payload with the given TTL.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Del removes a single key.
func (s *RedisStore) Del(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// Keys returns keys matching a glob-style pattern.
func (s *RedisStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	keys, err := s.client.Keys(ctx, pattern).Result()
	if err != nil {
		return nil, fmt.Errorf("redis keys %s: %w", pattern, err)
	}
	return keys, nil
}

// FlushAll removes every entry.
func (s *RedisStore) FlushAll(ctx context.Context) error {
	if err := s.client.FlushAll(ctx).Err(); err != nil {
		return fmt.Errorf("redis flushall: %w", err)
	}
	return nil
}

// Close releases the connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
