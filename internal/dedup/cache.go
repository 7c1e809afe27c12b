// Package dedup keeps a short-lived cache of match ids the discovery
// service has already handled, so repeated sweeps skip the store lookup
// for matches seen minutes ago.
package dedup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix  = "match:seen:"
	defaultTTL = 14 * 24 * time.Hour
)

// Cache is a Redis-backed seen-set. A nil *Cache is valid and caches
// nothing, so callers need no branching when Redis is not configured.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New connects to Redis and verifies the connection. An empty url
// disables the cache.
func New(ctx context.Context, url string) (*Cache, error) {
	if url == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Cache{rdb: rdb, ttl: defaultTTL}, nil
}

// Seen reports whether the match id was marked recently. Cache errors are
// treated as a miss; the store check behind the cache is authoritative.
func (c *Cache) Seen(ctx context.Context, matchID string) bool {
	if c == nil {
		return false
	}
	err := c.rdb.Get(ctx, keyPrefix+matchID).Err()
	if err != nil {
		return false
	}
	return true
}

// MarkSeen records the match id with the cache TTL.
func (c *Cache) MarkSeen(ctx context.Context, matchID string) error {
	if c == nil {
		return nil
	}
	if err := c.rdb.Set(ctx, keyPrefix+matchID, "1", c.ttl).Err(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("mark match %s seen: %w", matchID, err)
	}
	return nil
}

// Warm seeds the cache from known ids, typically the store's recent window
// at startup.
func (c *Cache) Warm(ctx context.Context, matchIDs []string) error {
	if c == nil || len(matchIDs) == 0 {
		return nil
	}
	pipe := c.rdb.Pipeline()
	for _, id := range matchIDs {
		pipe.Set(ctx, keyPrefix+id, "1", c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("warm dedup cache: %w", err)
	}
	return nil
}

// Close releases the Redis connection.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.rdb.Close()
}
