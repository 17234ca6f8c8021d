// Package ratelimit provides sliding-window request admission control
// keyed by provider name. State is in-memory and process-wide; the whole
// server is the rate-limited client, so no cross-process coordination exists.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Config holds the admission budget for one key.
type Config struct {
	MaxRequests int
	Window      time.Duration
}

// TimeoutError is returned when WaitForSlot exhausts its wait budget.
// Callers use it to distinguish "self-throttled" from "upstream down".
type TimeoutError struct {
	Key string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("rate limit timeout for %s", e.Key)
}

// Limiter admits requests under per-key sliding-window budgets.
// Construct one per process and inject it into every client.
type Limiter struct {
	mu     sync.Mutex
	limits map[string][]time.Time

	// now is swappable for tests
	now func() time.Time

	// pollInterval controls how often WaitForSlot re-checks admission
	pollInterval time.Duration
}

// New creates a new rate limiter.
func New() *Limiter {
	return &Limiter{
		limits:       make(map[string][]time.Time),
		now:          time.Now,
		pollInterval: 100 * time.Millisecond,
	}
}

// CheckLimit reports whether a request is admitted under the key's budget.
// On admission the current timestamp is recorded. Timestamps older than the
// window are pruned lazily on every check.
func (l *Limiter) CheckLimit(key string, cfg Config) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	windowStart := now.Add(-cfg.Window)

	timestamps := l.limits[key]
	kept := timestamps[:0]
	for _, ts := range timestamps {
		if ts.After(windowStart) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= cfg.MaxRequests {
		l.limits[key] = kept
		return false
	}

	l.limits[key] = append(kept, now)
	return true
}

// WaitForSlot blocks until a request is admitted or maxWait elapses.
// A zero maxWait uses the default of 10 seconds. Returns a *TimeoutError
// when the wait budget is exhausted, or the context error on cancellation.
func (l *Limiter) WaitForSlot(ctx context.Context, key string, cfg Config, maxWait time.Duration) error {
	if maxWait <= 0 {
		maxWait = 10 * time.Second
	}

	deadline := l.now().Add(maxWait)

	for !l.CheckLimit(key, cfg) {
		if l.now().After(deadline) {
			return &TimeoutError{Key: key}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.pollInterval):
		}
	}

	return nil
}

// TimeUntilReset returns how long until the oldest recorded timestamp
// exits the window, or zero if no timestamps are recorded.
func (l *Limiter) TimeUntilReset(key string, cfg Config) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamps := l.limits[key]
	if len(timestamps) == 0 {
		return 0
	}

	oldest := timestamps[0]
	for _, ts := range timestamps[1:] {
		if ts.Before(oldest) {
			oldest = ts
		}
	}

	remaining := oldest.Add(cfg.Window).Sub(l.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Reset clears recorded state for one key. Used by tests.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.limits, key)
}

// ResetAll clears all recorded state. Used by tests.
func (l *Limiter) ResetAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.limits = make(map[string][]time.Time)
}
