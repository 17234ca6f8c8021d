package cache

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// SQLiteStore backs the cache with the api_cache table in the cache
// database. Expiry is a unix-epoch column checked on read; expired rows
// are reclaimed by the periodic DeleteExpired sweep.
type SQLiteStore struct {
	db         *sql.DB
	defaultTTL time.Duration
	log        zerolog.Logger

	// now is swappable for tests
	now func() time.Time
}

// NewSQLiteStore creates a SQLite-backed cache store. defaultTTL applies to
// writes that do not specify a TTL; zero falls back to DefaultTTL.
func NewSQLiteStore(db *sql.DB, defaultTTL time.Duration, log zerolog.Logger) *SQLiteStore {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	return &SQLiteStore{
		db:         db,
		defaultTTL: defaultTTL,
		log:        log.With().Str("cache", "sqlite").Logger(),
		now:        time.Now,
	}
}

// Get returns the cached payload for key if it has not expired.
func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		"SELECT data FROM api_cache WHERE key = ? AND expires_at > ?",
		key, s.now().Unix(),
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get %s: %w", key, err)
	}
	return []byte(data), true, nil
}

// Set writes a payload with the given TTL, replacing any existing entry.
func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	expiresAt := s.now().Add(ttl).Unix()

	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO api_cache (key, data, expires_at) VALUES (?, ?, ?)",
		key, string(value), expiresAt,
	)
	if err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// Del removes a single key.
func (s *SQLiteStore) Del(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM api_cache WHERE key = ?", key)
	if err != nil {
		return fmt.Errorf("cache del %s: %w", key, err)
	}
	return nil
}

// Keys returns keys matching a glob-style pattern. The Redis-style "*"
// wildcard is translated to SQL LIKE's "%".
func (s *SQLiteStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	like := strings.ReplaceAll(pattern, "*", "%")

	rows, err := s.db.QueryContext(ctx,
		"SELECT key FROM api_cache WHERE key LIKE ? AND expires_at > ?",
		like, s.now().Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("cache keys %s: %w", pattern, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("cache keys scan: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// FlushAll removes every entry.
func (s *SQLiteStore) FlushAll(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM api_cache")
	if err != nil {
		return fmt.Errorf("cache flushall: %w", err)
	}
	return nil
}

// DeleteExpired removes entries whose expiry has passed. Returns the
// number of rows reclaimed. Run periodically by the scheduler.
func (s *SQLiteStore) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM api_cache WHERE expires_at <= ?", s.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("cache delete expired: %w", err)
	}
	n, _ := result.RowsAffected()
	if n > 0 {
		s.log.Debug().Int64("rows", n).Msg("Reclaimed expired cache entries")
	}
	return n, nil
}

// Close is a no-op; the database connection is owned by the caller.
func (s *SQLiteStore) Close() error {
	return nil
}
