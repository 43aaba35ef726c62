// Package velocity implements the Velocity Aggregator: a cache-first
// lookup of the rolling-window activity snapshot consumed by the
// feature extractor, falling back to a fan-out of persistence queries
// on a cache miss.
package velocity

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dygsom/fraud-api/internal/cache"
	"github.com/dygsom/fraud-api/internal/domain/velocity"
)

const (
	window1h  = time.Hour
	window24h = 24 * time.Hour
	window7d  = 7 * 24 * time.Hour

	ttlCustomer = 60 * time.Second
	ttlIP       = 300 * time.Second
)

// Gateway is the subset of the Persistence Gateway the aggregator needs.
// The schema carries no device fingerprint, so device counts are
// derived from the same IP query as a stand-in (see fetch).
type Gateway interface {
	CustomerTxCount(ctx context.Context, email string, window time.Duration) (int64, error)
	CustomerAmountSum(ctx context.Context, email string, window time.Duration) (decimal.Decimal, error)
	IPTxCount(ctx context.Context, ip string, window time.Duration) (int64, error)
}

// Aggregator resolves velocity.Snapshot values, preferring the cache and
// falling back to a parallel fan-out of Gateway queries on a miss.
type Aggregator struct {
	cache   *cache.Cache
	gateway Gateway
}

// New builds an Aggregator over the given cache and persistence gateway.
func New(c *cache.Cache, g Gateway) *Aggregator {
	return &Aggregator{cache: c, gateway: g}
}

// Get returns the velocity.Snapshot for (email, ip) as of now, serving
// from cache when a fresh entry exists and falling back to a fan-out of
// persistence queries otherwise. The result is written back to cache
// before returning.
func (a *Aggregator) Get(ctx context.Context, email, ip string, now time.Time) (velocity.Snapshot, error) {
	var snap velocity.Snapshot
	key := customerKey(email, now.Unix()/60)
	if a.cache.Get(ctx, key, &snap) {
		return snap, nil
	}

	snap, err := a.fetch(ctx, email, ip)
	if err != nil {
		return velocity.Empty(), err
	}

	a.cache.Set(ctx, key, snap, ttlCustomer)
	a.cache.Set(ctx, ipKey(ip, now.Unix()/300), snap, ttlIP)
	return snap, nil
}

// fetch runs four dimensions concurrently: customer transaction counts,
// customer amount sums, IP transaction counts, and device transaction
// counts (derived from the IP query, since the persisted schema has no
// separate device fingerprint).
func (a *Aggregator) fetch(ctx context.Context, email, ip string) (velocity.Snapshot, error) {
	snap := velocity.Empty()
	errs := make(chan error, 4)

	go func() {
		var err error
		snap.CustomerTxCount1h, err = a.gateway.CustomerTxCount(ctx, email, window1h)
		if err == nil {
			snap.CustomerTxCount24h, err = a.gateway.CustomerTxCount(ctx, email, window24h)
		}
		if err == nil {
			snap.CustomerTxCount7d, err = a.gateway.CustomerTxCount(ctx, email, window7d)
		}
		errs <- err
	}()

	go func() {
		var err error
		snap.CustomerAmountSum1h, err = a.gateway.CustomerAmountSum(ctx, email, window1h)
		if err == nil {
			snap.CustomerAmountSum24h, err = a.gateway.CustomerAmountSum(ctx, email, window24h)
		}
		if err == nil {
			snap.CustomerAmountSum7d, err = a.gateway.CustomerAmountSum(ctx, email, window7d)
		}
		errs <- err
	}()

	go func() {
		var err error
		snap.IPTxCount1h, err = a.gateway.IPTxCount(ctx, ip, window1h)
		if err == nil {
			snap.IPTxCount24h, err = a.gateway.IPTxCount(ctx, ip, window24h)
		}
		errs <- err
	}()

	go func() {
		var err error
		snap.DeviceTxCount1h, err = a.gateway.IPTxCount(ctx, ip, window1h)
		if err == nil {
			snap.DeviceTxCount24h, err = a.gateway.IPTxCount(ctx, ip, window24h)
		}
		errs <- err
	}()

	for i := 0; i < 4; i++ {
		if err := <-errs; err != nil {
			return velocity.Empty(), err
		}
	}
	return snap, nil
}

func customerKey(email string, bucket int64) string {
	return fmt.Sprintf("velocity:%s:%d", email, bucket)
}

func ipKey(ip string, bucket int64) string {
	return fmt.Sprintf("ip_history:%s:%d", ip, bucket)
}
