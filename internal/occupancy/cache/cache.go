// Package cache mirrors live occupancy counts into Redis for cheap reads by
// dashboards and door devices. The ledger in Postgres stays authoritative; a
// stale or missing cache entry only means the reader falls through to the
// snapshot table.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	platformredis "headcount/internal/platform/redis"
	id "headcount/pkg/domain"
	"headcount/pkg/platform/sentinel"
)

const defaultTTL = 5 * time.Minute

// LiveCache holds per-area occupancy under occupancy:area:<id>. A nil
// LiveCache (or one built from a nil client) disables caching; every method
// becomes a no-op or a miss.
type LiveCache struct {
	client *platformredis.Client
	ttl    time.Duration
}

func New(client *platformredis.Client) *LiveCache {
	if client == nil {
		return nil
	}
	return &LiveCache{client: client, ttl: defaultTTL}
}

func key(areaID id.AreaID) string {
	return "occupancy:area:" + areaID.String()
}

// Set records the latest occupancy for an area.
func (c *LiveCache) Set(ctx context.Context, areaID id.AreaID, occupancy int) error {
	if c == nil {
		return nil
	}
	if err := c.client.Set(ctx, key(areaID), occupancy, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache occupancy: %w", err)
	}
	return nil
}

// Get returns the cached occupancy, or sentinel.ErrNotFound on a miss.
func (c *LiveCache) Get(ctx context.Context, areaID id.AreaID) (int, error) {
	if c == nil {
		return 0, sentinel.ErrNotFound
	}
	val, err := c.client.Get(ctx, key(areaID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, sentinel.ErrNotFound
		}
		return 0, fmt.Errorf("read cached occupancy: %w", err)
	}
	occupancy, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("parse cached occupancy: %w", err)
	}
	return occupancy, nil
}

// Invalidate drops the cached value for an area.
func (c *LiveCache) Invalidate(ctx context.Context, areaID id.AreaID) error {
	if c == nil {
		return nil
	}
	if err := c.client.Del(ctx, key(areaID)).Err(); err != nil {
		return fmt.Errorf("invalidate cached occupancy: %w", err)
	}
	return nil
}
