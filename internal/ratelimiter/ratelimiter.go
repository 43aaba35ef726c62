// Package ratelimiter implements the per-API-key sliding-window request
// limiter backed by a Redis sorted set. Each allowed request timestamp
// is recorded as a set member scored by its own Unix-nanosecond value;
// checking a window means trimming everything older than the window
// and counting what's left.
package ratelimiter

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	window    = 60 * time.Second
	keyExpiry = window + 10*time.Second
)

// Limiter enforces a sliding 60s window per key. When Redis is
// unavailable it fails open: a dependency outage must never block the
// scoring hot path on its own.
type Limiter struct {
	client *redis.Client
}

// New builds a Limiter over rdb. rdb may be nil, in which case Allow
// always succeeds (no Redis configured, no rate limiting enforced).
func New(rdb *redis.Client) *Limiter {
	return &Limiter{client: rdb}
}

// Result carries the values the HTTP surface renders as X-RateLimit-*
// response headers.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
}

// Allow records one request for key (typically the API key ID) and
// reports whether it fits within limit requests per 60s window.
func (l *Limiter) Allow(ctx context.Context, key string, limit int) (Result, error) {
	if l.client == nil {
		return Result{Allowed: true, Limit: limit, Remaining: limit}, nil
	}

	now := time.Now()
	redisKey := fmt.Sprintf("ratelimit:%s", key)
	windowStart := now.Add(-window)

	trimPipe := l.client.TxPipeline()
	trimPipe.ZRemRangeByScore(ctx, redisKey, "0", fmt.Sprintf("%d", windowStart.UnixNano()))
	countCmd := trimPipe.ZCard(ctx, redisKey)
	if _, err := trimPipe.Exec(ctx); err != nil {
		return Result{Allowed: true, Limit: limit, Remaining: limit}, nil
	}

	count := int(countCmd.Val())
	if count >= limit {
		return Result{Allowed: false, Limit: limit, Remaining: 0}, nil
	}

	insertPipe := l.client.TxPipeline()
	insertPipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixNano()), Member: now.UnixNano()})
	insertPipe.Expire(ctx, redisKey, keyExpiry)
	if _, err := insertPipe.Exec(ctx); err != nil {
		return Result{Allowed: true, Limit: limit, Remaining: limit}, nil
	}

	return Result{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - count - 1,
	}, nil
}
