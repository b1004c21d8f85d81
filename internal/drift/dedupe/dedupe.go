// Package dedupe suppresses identical drift reports inside a rolling window.
//
// Claim is the first line of defence; the drift_events unique index on
// (npi, page_url, category, current_hash, hour_bucket) is the second.
package dedupe

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "drift:dedupe:"

// DefaultWindow is how long an identical report is suppressed.
const DefaultWindow = time.Hour

// RedisGuard claims keys with SET NX EX so replicas share one window.
type RedisGuard struct {
	client *redis.Client
}

func NewRedisGuard(client *redis.Client) *RedisGuard {
	return &RedisGuard{client: client}
}

// Claim returns true when key was not seen within window.
func (g *RedisGuard) Claim(ctx context.Context, key string, window time.Duration) (bool, error) {
	return g.client.SetNX(ctx, keyPrefix+key, "1", window).Result()
}

// Release forgets key so a retried report is not suppressed.
func (g *RedisGuard) Release(ctx context.Context, key string) error {
	return g.client.Del(ctx, keyPrefix+key).Err()
}

// MemoryGuard is a process-local guard for single-instance and test setups.
// go-cache's Add is an atomic claim-if-absent with a per-key expiry.
type MemoryGuard struct {
	cache *gocache.Cache
}

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{cache: gocache.New(DefaultWindow, 10*time.Minute)}
}

func (g *MemoryGuard) Claim(_ context.Context, key string, window time.Duration) (bool, error) {
	return g.cache.Add(key, struct{}{}, window) == nil, nil
}

func (g *MemoryGuard) Release(_ context.Context, key string) error {
	g.cache.Delete(key)
	return nil
}
