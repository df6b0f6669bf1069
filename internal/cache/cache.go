// Package cache wraps the external Redis store so that every operation is
// raced against a fixed deadline. The cache is a performance optimization,
// not a correctness dependency: callers are shielded from cache latency and
// unavailability, and every failure degrades to a neutral outcome (a miss,
// an abandoned write, an "allow") instead of an error.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shelfwise/shelfwise/internal/telemetry"
)

// DefaultDeadline bounds every underlying cache call.
const DefaultDeadline = 500 * time.Millisecond

// Bounded is a deadline-raced view of a Redis client. The zero deadline is
// replaced with DefaultDeadline. A nil client behaves as an always-empty
// cache (every read misses, every write is a no-op).
type Bounded struct {
	rdb      *redis.Client
	deadline time.Duration
	metrics  *telemetry.Metrics
}

// New creates a bounded cache over rdb. metrics may be nil.
func New(rdb *redis.Client, deadline time.Duration, metrics *telemetry.Metrics) *Bounded {
	if deadline <= 0 {
		deadline = DefaultDeadline
	}
	return &Bounded{rdb: rdb, deadline: deadline, metrics: metrics}
}

// race runs op in its own goroutine and waits for it up to the deadline.
// The losing branch is not cancelled: it runs to completion and its result
// is discarded. That bounded leak is accepted in exchange for a request
// path that can never block on the cache.
func (c *Bounded) race(ctx context.Context, name string, op func(ctx context.Context) error) error {
	done := make(chan error, 1)
	opCtx := context.WithoutCancel(ctx)
	go func() {
		done <- op(opCtx)
	}()

	timer := time.NewTimer(c.deadline)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		slog.Warn("cache operation timed out", "op", name, "deadline", c.deadline)
		c.record(name, "timeout")
		return errDeadline
	}
}

var errDeadline = errors.New("cache deadline elapsed")

func (c *Bounded) record(op, outcome string) {
	if c.metrics != nil {
		c.metrics.RecordCacheOp(op, outcome)
	}
}

// Get reads key and JSON-decodes it into dest. Returns false on a miss, a
// decode failure, a timeout, or any underlying error; it never fails the
// caller.
func (c *Bounded) Get(ctx context.Context, key string, dest any) bool {
	if c.rdb == nil {
		return false
	}

	var raw []byte
	err := c.race(ctx, "get", func(ctx context.Context) error {
		b, err := c.rdb.Get(ctx, key).Bytes()
		if err != nil {
			return err
		}
		raw = b
		return nil
	})
	if err != nil {
		if err != redis.Nil && err != errDeadline {
			slog.Warn("cache read failed", "key", key, "error", err)
			c.record("get", "error")
		}
		if err == redis.Nil {
			c.record("get", "miss")
		}
		return false
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		slog.Warn("cache entry undecodable, treating as miss", "key", key, "error", err)
		c.record("get", "error")
		return false
	}
	c.record("get", "hit")
	return true
}

// Set JSON-encodes value and stores it under key with the given TTL. A
// timeout abandons the write silently; errors are logged, never returned.
func (c *Bounded) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	if c.rdb == nil {
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		slog.Warn("cache value not serializable", "key", key, "error", err)
		c.record("set", "error")
		return
	}

	err = c.race(ctx, "set", func(ctx context.Context) error {
		return c.rdb.Set(ctx, key, data, ttl).Err()
	})
	if err != nil && err != errDeadline {
		slog.Warn("cache write failed", "key", key, "error", err)
		c.record("set", "error")
		return
	}
	if err == nil {
		c.record("set", "ok")
	}
}

// Remove deletes the given keys. Failures are logged and swallowed.
func (c *Bounded) Remove(ctx context.Context, keys ...string) {
	if c.rdb == nil || len(keys) == 0 {
		return
	}

	err := c.race(ctx, "remove", func(ctx context.Context) error {
		return c.rdb.Del(ctx, keys...).Err()
	})
	if err != nil && err != errDeadline {
		slog.Warn("cache delete failed", "keys", keys, "error", err)
		c.record("remove", "error")
		return
	}
	if err == nil {
		c.record("remove", "ok")
	}
}

// RemoveByPattern deletes every key matching a glob pattern via SCAN so the
// server is never blocked by a KEYS call. Failures are logged and swallowed.
func (c *Bounded) RemoveByPattern(ctx context.Context, pattern string) {
	if c.rdb == nil {
		return
	}

	err := c.race(ctx, "remove_pattern", func(ctx context.Context) error {
		iter := c.rdb.Scan(ctx, 0, pattern, 100).Iterator()
		var keys []string
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			return err
		}
		if len(keys) == 0 {
			return nil
		}
		return c.rdb.Del(ctx, keys...).Err()
	})
	if err != nil && err != errDeadline {
		slog.Warn("cache pattern delete failed", "pattern", pattern, "error", err)
		c.record("remove_pattern", "error")
		return
	}
	if err == nil {
		c.record("remove_pattern", "ok")
	}
}

// incrementScript atomically increments the counter and arms the expiry in
// the same server call, so a dropped connection can never leave a counter
// behind with no TTL. The PTTL check also heals any such counter written
// before this script existed.
// KEYS[1] = counter key
// ARGV[1] = window in milliseconds
// Returns: post-increment count
var incrementScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
local window = tonumber(ARGV[1])
if window > 0 and (count == 1 or redis.call('PTTL', KEYS[1]) < 0) then
    redis.call('PEXPIRE', KEYS[1], window)
end
return count
`)

// Increment atomically increments key, setting the expiry when the key is
// first created so the counter resets itself after window. Returns the
// post-increment count and true on success; (0, false) when the store did
// not answer in time or errored, which callers must treat as "allow".
func (c *Bounded) Increment(ctx context.Context, key string, window time.Duration) (int64, bool) {
	if c.rdb == nil {
		return 0, false
	}

	var count int64
	err := c.race(ctx, "increment", func(ctx context.Context) error {
		n, err := incrementScript.Run(ctx, c.rdb, []string{key}, window.Milliseconds()).Int64()
		if err != nil {
			return err
		}
		count = n
		return nil
	})
	if err != nil {
		if err != errDeadline {
			slog.Warn("cache increment failed", "key", key, "error", err)
			c.record("increment", "error")
		}
		return 0, false
	}
	c.record("increment", "ok")
	return count, true
}
