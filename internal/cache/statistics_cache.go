// Package cache keeps computed statistics in Redis. Entries are keyed by a
// generation counter that every committed analysis increments, so a write
// makes all earlier entries unreachable at once.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/garnizeh/wellbeing/pkg/models"
)

const keyPrefix = "wellbeing:stats"

type StatisticsCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStatisticsCache creates a cache on client. Entries expire after ttl.
func NewStatisticsCache(client *redis.Client, ttl time.Duration) *StatisticsCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &StatisticsCache{client: client, ttl: ttl}
}

func (c *StatisticsCache) generationKey() string {
	return keyPrefix + ":generation"
}

func (c *StatisticsCache) entryKey(generation int64, f models.StatisticsFilter) string {
	return fmt.Sprintf("%s:g%d:%s", keyPrefix, generation, FilterKey(f))
}

// FilterKey is the stable cache identity of a filter.
func FilterKey(f models.StatisticsFilter) string {
	dept := f.Department
	if dept == "" {
		dept = "*"
	}
	if !f.HasDateRange() {
		return fmt.Sprintf("d=%s:all", dept)
	}
	return fmt.Sprintf("d=%s:%d-%d", dept, f.Start.UTC().UnixMilli(), f.End.UTC().UnixMilli())
}

func (c *StatisticsCache) generation(ctx context.Context) (int64, error) {
	n, err := c.client.Get(ctx, c.generationKey()).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return n, err
}

// Get returns the cached statistics for f, or nil on a miss. The returned key
// must be passed to Put so that a result computed across an invalidation is
// stored under the old generation.
func (c *StatisticsCache) Get(ctx context.Context, f models.StatisticsFilter) (*models.Statistics, string, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return nil, "", err
	}
	key := c.entryKey(gen, f)

	data, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, key, nil
	}
	if err != nil {
		return nil, "", err
	}

	var s models.Statistics
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return nil, key, fmt.Errorf("decode cached statistics: %w", err)
	}
	return &s, key, nil
}

func (c *StatisticsCache) Put(ctx context.Context, key string, s *models.Statistics) error {
	if key == "" || s == nil {
		return nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// Invalidate starts a new generation.
func (c *StatisticsCache) Invalidate(ctx context.Context) error {
	return c.client.Incr(ctx, c.generationKey()).Err()
}

func (c *StatisticsCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Nop is used when no Redis address is configured.
type Nop struct{}

func (Nop) Get(ctx context.Context, f models.StatisticsFilter) (*models.Statistics, string, error) {
	return nil, "", nil
}

func (Nop) Put(ctx context.Context, key string, s *models.Statistics) error { return nil }

func (Nop) Invalidate(ctx context.Context) error { return nil }

func (Nop) Ping(ctx context.Context) error { return nil }
