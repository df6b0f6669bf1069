package assistant

import (
	"context"
	"fmt"

	"github.com/shelfwise/shelfwise/internal/cache"
	"github.com/shelfwise/shelfwise/internal/telemetry"
)

// adminScope is the cache namespace shared by privileged aggregate views.
const adminScope = "admin"

// Broadcaster evicts cached query responses after a library mutation. A
// write invalidates the owner's entries and the privileged aggregate
// namespace, since admin-wide views may include any user's books. Eviction
// is fire-and-forget; entries that survive a degraded store expire on
// their own TTL.
type Broadcaster struct {
	cache   *cache.Bounded
	metrics *telemetry.Metrics
}

func NewBroadcaster(c *cache.Bounded, m *telemetry.Metrics) *Broadcaster {
	return &Broadcaster{cache: c, metrics: m}
}

// Invalidate schedules eviction for the principal's cached queries. It
// returns immediately; the caller's mutation is already committed and must
// not block on cache health.
func (b *Broadcaster) Invalidate(ctx context.Context, principalID string) {
	bg := context.WithoutCancel(ctx)
	go func() {
		b.cache.RemoveByPattern(bg, fmt.Sprintf("aiquery:%s:*", principalID))
		b.cache.RemoveByPattern(bg, fmt.Sprintf("aiquery:%s:*", adminScope))
		if b.metrics != nil {
			b.metrics.RecordInvalidation("broadcast")
		}
	}()
}
