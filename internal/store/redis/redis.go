// Package redis wraps the go-redis client used as the L2 cache tier and
// the rate limiter's sorted-set store.
package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dygsom/fraud-api/internal/config"
)

// Client wraps *redis.Client with the pool settings from config.
type Client struct {
	*redis.Client
}

// New parses cfg.URL and builds a pooled client. Returns (nil, nil)
// when no URL is configured, so callers can fall back to in-process
// cache modes.
func New(cfg config.RedisConfig) (*Client, error) {
	if !cfg.Enabled() {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	opt.MaxRetries = cfg.MaxRetries
	opt.DialTimeout = cfg.DialTimeout
	opt.ReadTimeout = cfg.ReadTimeout
	opt.WriteTimeout = cfg.WriteTimeout
	opt.PoolSize = cfg.PoolSize

	return &Client{Client: redis.NewClient(opt)}, nil
}

// Ping verifies connectivity within a 2s deadline, used by /health/ready.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return c.Client.Ping(ctx).Err()
}
