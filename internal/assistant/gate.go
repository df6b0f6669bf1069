package assistant

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/shelfwise/shelfwise/internal/cache"
	"github.com/shelfwise/shelfwise/internal/types"
)

const (
	// Fast-moving views reflect data the user actively mutates while
	// browsing, so they turn over quickly.
	DefaultTTLFast   = 30 * time.Second
	DefaultTTLNormal = 3 * time.Minute
)

// CacheGate short-circuits the full query pipeline on a cache hit and
// stores successful responses without blocking the caller.
type CacheGate struct {
	cache     *cache.Bounded
	ttlFast   time.Duration
	ttlNormal time.Duration
}

func NewCacheGate(c *cache.Bounded, ttlFast, ttlNormal time.Duration) *CacheGate {
	if ttlFast <= 0 {
		ttlFast = DefaultTTLFast
	}
	if ttlNormal <= 0 {
		ttlNormal = DefaultTTLNormal
	}
	return &CacheGate{cache: c, ttlFast: ttlFast, ttlNormal: ttlNormal}
}

// queryKey fingerprints the question so equivalent requests from the same
// principal share an entry. The raw question never appears in the key.
func queryKey(principalID, question string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(question)))
	return fmt.Sprintf("aiquery:%s:%s", principalID, hex.EncodeToString(sum[:]))
}

func (g *CacheGate) ttlFor(qt types.QueryType) time.Duration {
	switch qt {
	case types.QueryUserStatistics, types.QueryCurrentlyReading:
		return g.ttlFast
	default:
		return g.ttlNormal
	}
}

// Execute returns the cached response for (principal, question) when one
// exists, otherwise runs compute and asynchronously stores a successful
// result. The write never delays the response; if it loses the race with
// the store's deadline the entry is simply absent next time. Concurrent
// misses for the same key each run compute; the last write wins.
func (g *CacheGate) Execute(ctx context.Context, principalID, question string, compute func(context.Context) (*types.QueryResponse, error)) (*types.QueryResponse, bool, error) {
	key := queryKey(principalID, question)

	var cached types.QueryResponse
	if g.cache.Get(ctx, key, &cached) {
		return &cached, true, nil
	}

	resp, err := compute(ctx)
	if err != nil {
		return nil, false, err
	}

	if resp.Success {
		stored := *resp
		ttl := g.ttlFor(resp.InterpretedQuery)
		bg := context.WithoutCancel(ctx)
		go g.cache.Set(bg, key, stored, ttl)
	}
	return resp, false, nil
}
