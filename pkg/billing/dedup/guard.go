// Package dedup provides a Redis-backed duplicate-delivery guard for webhook
// events. The guard is advisory: a miss or an unreachable Redis only means an
// event is reprocessed, which the billing reconcilers already tolerate.
package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "billing:webhook:event:"

// DefaultTTL bounds guard memory. Provider retries stop well within a day,
// so 24h covers the retry window with margin.
const DefaultTTL = 24 * time.Hour

// Guard marks provider event ids as seen using SETNX semantics.
type Guard struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// New panics on a nil client. A zero or negative ttl falls back to
// DefaultTTL.
func New(client redis.UniversalClient, ttl time.Duration) *Guard {
	if client == nil {
		panic("dedup: redis client is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Guard{client: client, ttl: ttl}
}

// FirstDelivery atomically claims the event id. It returns true exactly once
// per id within the TTL window.
func (g *Guard) FirstDelivery(ctx context.Context, providerEventID string) (bool, error) {
	first, err := g.client.SetNX(ctx, keyPrefix+providerEventID, 1, g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup: claim event id: %w", err)
	}
	return first, nil
}

// Release drops the claim on an event id, letting the next delivery of the
// same id dispatch again.
func (g *Guard) Release(ctx context.Context, providerEventID string) error {
	if err := g.client.Del(ctx, keyPrefix+providerEventID).Err(); err != nil {
		return fmt.Errorf("dedup: release event id: %w", err)
	}
	return nil
}
