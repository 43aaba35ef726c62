// Package cache implements the two-tier cache tier described in the
// component design: an in-process LRU (L1) backed by a shared KV store
// (L2, Redis when configured, an in-process TTL cache otherwise).
//
// get consults L1, then L2 (back-filling L1 on an L2 hit), then misses.
// set writes to both. Keys are namespaced by caller
// (velocity:<email>:<bucket>, ip_history:<ip>:<bucket>, ...); time
// bucketing in the key itself is the staleness-control mechanism.
package cache

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/dygsom/fraud-api/internal/config"
	"github.com/dygsom/fraud-api/internal/metrics"
	"github.com/dygsom/fraud-api/internal/store/redis"
)

// Configuration mutates a Cache at construction time, mirroring the
// functional-options pattern used elsewhere for cache wiring.
type Configuration func(*Cache) error

// Cache is the two-tier cache. L2 is either a Redis client or, when no
// REDIS_URL is configured, an in-process TTL map — in both cases the
// L1 LRU sits in front of it.
type Cache struct {
	l1      *lru.Cache[string, []byte]
	redis   *redis.Client
	memory  *gocache.Cache
	logger  *zap.Logger
	metrics *metrics.Metrics

	hits Counters
}

// Counters tracks cache hit/miss per layer for the metrics surface.
// Fields are updated with atomic operations since Get is called
// concurrently from every in-flight request.
type Counters struct {
	L1Hits, L2Hits, Misses int64
}

// New builds a Cache from the given configuration functions.
func New(cfg config.CacheConfig, logger *zap.Logger, configs ...Configuration) (*Cache, error) {
	l1, err := lru.New[string, []byte](cfg.L1MaxSize)
	if err != nil {
		return nil, err
	}

	c := &Cache{l1: l1, logger: logger}
	for _, apply := range configs {
		if err := apply(c); err != nil {
			return nil, err
		}
	}
	if c.redis == nil && c.memory == nil {
		c.memory = gocache.New(5*time.Minute, 10*time.Minute)
	}
	return c, nil
}

// WithRedis configures the L2 tier to use the given Redis client.
func WithRedis(rdb *redis.Client) Configuration {
	return func(c *Cache) error {
		c.redis = rdb
		return nil
	}
}

// WithMetrics attaches the process-wide metrics collector so cache
// hit/miss events surface on /metrics as well as through Stats.
func WithMetrics(m *metrics.Metrics) Configuration {
	return func(c *Cache) error {
		c.metrics = m
		return nil
	}
}

// Get looks up key, consulting L1 then L2, and back-fills L1 on an L2
// hit. ok is false on a miss at both layers. Redis errors are
// downgraded to misses; the cache must never fail a request.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (ok bool) {
	if raw, found := c.l1.Get(key); found {
		atomic.AddInt64(&c.hits.L1Hits, 1)
		if c.metrics != nil {
			c.metrics.ObserveCacheHit("l1")
		}
		return unmarshal(raw, dest)
	}

	raw, found := c.getL2(ctx, key)
	if !found {
		atomic.AddInt64(&c.hits.Misses, 1)
		if c.metrics != nil {
			c.metrics.ObserveCacheMiss("l2")
		}
		return false
	}
	atomic.AddInt64(&c.hits.L2Hits, 1)
	if c.metrics != nil {
		c.metrics.ObserveCacheHit("l2")
	}
	c.l1.Add(key, raw)
	return unmarshal(raw, dest)
}

// Set writes value to both tiers with the given TTL.
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	raw, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("cache marshal failed", zap.String("key", key), zap.Error(err))
		return
	}
	c.l1.Add(key, raw)
	c.setL2(ctx, key, raw, ttl)
}

func (c *Cache) getL2(ctx context.Context, key string) ([]byte, bool) {
	if c.redis != nil {
		val, err := c.redis.Get(ctx, key).Bytes()
		if err != nil {
			return nil, false
		}
		return val, true
	}
	if raw, found := c.memory.Get(key); found {
		return raw.([]byte), true
	}
	return nil, false
}

func (c *Cache) setL2(ctx context.Context, key string, raw []byte, ttl time.Duration) {
	if c.redis != nil {
		if err := c.redis.Set(ctx, key, raw, ttl).Err(); err != nil {
			c.logger.Warn("redis cache write failed", zap.String("key", key), zap.Error(err))
		}
		return
	}
	c.memory.Set(key, raw, ttl)
}

func unmarshal(raw []byte, dest interface{}) bool {
	return json.Unmarshal(raw, dest) == nil
}

// Stats returns a snapshot of hit/miss counts for the metrics tap.
func (c *Cache) Stats() Counters {
	return Counters{
		L1Hits: atomic.LoadInt64(&c.hits.L1Hits),
		L2Hits: atomic.LoadInt64(&c.hits.L2Hits),
		Misses: atomic.LoadInt64(&c.hits.Misses),
	}
}
