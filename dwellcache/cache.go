// Package dwellcache wraps a dwell.HistorySource with a short-lived Redis
// read-through cache. The dwell tracker repeats the same lookups for every
// machine on every poll cycle and every snapshot; caching the underlying
// Postgres lookups for the caller-supplied TTL avoids hammering the
// database without affecting the dwell predicate's correctness, since the
// predicate only needs minute-level freshness.
package dwellcache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ptindo/fleet-worker/dwell"
	"github.com/ptindo/fleet-worker/models"
)

// Cache decorates a dwell.HistorySource. A Redis failure is logged and
// falls through to source rather than failing the lookup: the cache is
// strictly an optimization.
type Cache struct {
	redis  *redis.Client
	source dwell.HistorySource
	ttl    time.Duration
}

// New wraps source with a Redis cache using the given TTL.
func New(redisClient *redis.Client, source dwell.HistorySource, ttl time.Duration) *Cache {
	return &Cache{redis: redisClient, source: source, ttl: ttl}
}

func (c *Cache) RecentTemperatures(machineID int64, since time.Time) ([]dwell.Sample, error) {
	ctx := context.Background()
	key := fmt.Sprintf("dwell:temps:%d", machineID)

	if data, err := c.redis.Get(ctx, key).Result(); err == nil {
		var samples []dwell.Sample
		if jsonErr := json.Unmarshal([]byte(data), &samples); jsonErr == nil {
			return sinceFilter(samples, since), nil
		}
	} else if err != redis.Nil {
		log.Printf("WARNING: dwell cache read failed for machine %d: %v", machineID, err)
	}

	samples, err := c.source.RecentTemperatures(machineID, since)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(samples); err == nil {
		if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
			log.Printf("WARNING: dwell cache write failed for machine %d: %v", machineID, err)
		}
	}
	return samples, nil
}

func (c *Cache) LastCondition(machineID int64) (models.Condition, bool, error) {
	ctx := context.Background()
	key := fmt.Sprintf("dwell:lastcond:%d", machineID)

	if val, err := c.redis.Get(ctx, key).Result(); err == nil {
		if val == "" {
			return "", false, nil
		}
		return models.Condition(val), true, nil
	} else if err != redis.Nil {
		log.Printf("WARNING: dwell cache read failed for machine %d: %v", machineID, err)
	}

	cond, ok, err := c.source.LastCondition(machineID)
	if err != nil {
		return "", false, err
	}

	value := ""
	if ok {
		value = string(cond)
	}
	if err := c.redis.Set(ctx, key, value, c.ttl).Err(); err != nil {
		log.Printf("WARNING: dwell cache write failed for machine %d: %v", machineID, err)
	}
	return cond, ok, nil
}

func sinceFilter(samples []dwell.Sample, since time.Time) []dwell.Sample {
	filtered := make([]dwell.Sample, 0, len(samples))
	for _, s := range samples {
		if !s.Timestamp.Before(since) {
			filtered = append(filtered, s)
		}
	}
	return filtered
}
