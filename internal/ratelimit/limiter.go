// Package ratelimit implements the soft per-principal call budget in front
// of the language model. It is a best-effort limiter: counters live only in
// Redis with a window expiry, nothing survives a restart, and any doubt
// (timeout, store error) resolves in the caller's favor.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shelfwise/shelfwise/internal/cache"
	"github.com/shelfwise/shelfwise/internal/telemetry"
)

const (
	// DefaultMaxCalls is the admit ceiling per window.
	DefaultMaxCalls = 4
	// DefaultWindow is the length of the counting window.
	DefaultWindow = time.Minute
)

// Limiter admits or rejects calls against a fixed window counter kept in
// the bounded cache. The counter key is created with an expiry on first
// increment and resets implicitly when the window elapses.
type Limiter struct {
	cache    *cache.Bounded
	maxCalls int64
	window   time.Duration
	metrics  *telemetry.Metrics
}

// NewLimiter creates a limiter. Non-positive maxCalls or window fall back
// to the defaults. metrics may be nil.
func NewLimiter(c *cache.Bounded, maxCalls int64, window time.Duration, metrics *telemetry.Metrics) *Limiter {
	if maxCalls <= 0 {
		maxCalls = DefaultMaxCalls
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Limiter{cache: c, maxCalls: maxCalls, window: window, metrics: metrics}
}

func rateKey(principalID string) string {
	return fmt.Sprintf("rate:%s", principalID)
}

// Admit increments the principal's window counter and admits the call when
// the post-increment count is within the ceiling. When the store does not
// answer before the cache deadline, the limiter fails open: availability of
// the assistant is worth more than strict quota enforcement.
func (l *Limiter) Admit(ctx context.Context, principalID string) bool {
	count, ok := l.cache.Increment(ctx, rateKey(principalID), l.window)
	if !ok {
		slog.Warn("rate limit check degraded, allowing request", "principal", principalID)
		l.record("degraded")
		return true
	}

	if count > l.maxCalls {
		slog.Warn("rate limit exceeded",
			"principal", principalID,
			"count", count,
			"limit", l.maxCalls,
		)
		l.record("rejected")
		return false
	}
	l.record("admitted")
	return true
}

func (l *Limiter) record(outcome string) {
	if l.metrics != nil {
		l.metrics.RecordRateLimit(outcome)
	}
}
