package velocity

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dygsom/fraud-api/internal/cache"
	"github.com/dygsom/fraud-api/internal/config"
	"github.com/dygsom/fraud-api/internal/domain/velocity"
)

type fakeGateway struct {
	customerTxCount1h, customerTxCount24h, customerTxCount7d int64
	customerAmountSum                                        decimal.Decimal
	ipTxCount                                                 int64
	calls                                                     int64
}

func (f *fakeGateway) CustomerTxCount(ctx context.Context, email string, window time.Duration) (int64, error) {
	atomic.AddInt64(&f.calls, 1)
	switch window {
	case window1h:
		return f.customerTxCount1h, nil
	case window24h:
		return f.customerTxCount24h, nil
	default:
		return f.customerTxCount7d, nil
	}
}

func (f *fakeGateway) CustomerAmountSum(ctx context.Context, email string, window time.Duration) (decimal.Decimal, error) {
	atomic.AddInt64(&f.calls, 1)
	return f.customerAmountSum, nil
}

func (f *fakeGateway) IPTxCount(ctx context.Context, ip string, window time.Duration) (int64, error) {
	atomic.AddInt64(&f.calls, 1)
	return f.ipTxCount, nil
}

func newTestCache(t *testing.T) *cache.Cache {
	t.Helper()
	c, err := cache.New(config.CacheConfig{L1MaxSize: 100}, zap.NewNop())
	require.NoError(t, err)
	return c
}

func TestGet_MissFetchesAndPopulatesCache(t *testing.T) {
	gw := &fakeGateway{customerTxCount1h: 3, customerTxCount24h: 12, customerTxCount7d: 40, ipTxCount: 2}
	c := newTestCache(t)
	agg := New(c, gw)
	now := time.Now()

	snap, err := agg.Get(context.Background(), "hot@example.com", "181.67.45.123", now)

	require.NoError(t, err)
	assert.Equal(t, int64(3), snap.CustomerTxCount1h)
	assert.Equal(t, int64(12), snap.CustomerTxCount24h)
	assert.Equal(t, int64(40), snap.CustomerTxCount7d)
	assert.Equal(t, int64(2), snap.IPTxCount1h)
	assert.Equal(t, int64(2), snap.DeviceTxCount1h) // derived from the same IP query, see Gateway doc

	var cached velocity.Snapshot
	require.True(t, c.Get(context.Background(), customerKey("hot@example.com", now.Unix()/60), &cached))
	assert.Equal(t, int64(12), cached.CustomerTxCount24h)
}

func TestGet_CacheHitSkipsGateway(t *testing.T) {
	gw := &fakeGateway{customerTxCount1h: 5}
	agg := New(newTestCache(t), gw)
	now := time.Now().Truncate(time.Minute).Add(time.Second)

	_, err := agg.Get(context.Background(), "cached@example.com", "1.2.3.4", now)
	require.NoError(t, err)
	callsAfterFirst := atomic.LoadInt64(&gw.calls)
	require.Greater(t, callsAfterFirst, int64(0))

	snap, err := agg.Get(context.Background(), "cached@example.com", "1.2.3.4", now.Add(time.Second))
	require.NoError(t, err)

	assert.Equal(t, int64(5), snap.CustomerTxCount1h)
	assert.Equal(t, callsAfterFirst, atomic.LoadInt64(&gw.calls))
}

func TestGet_DifferentMinuteBucketRefetches(t *testing.T) {
	gw := &fakeGateway{customerTxCount1h: 1}
	agg := New(newTestCache(t), gw)
	now := time.Now().Truncate(time.Minute).Add(time.Second)

	_, err := agg.Get(context.Background(), "bucketed@example.com", "1.2.3.4", now)
	require.NoError(t, err)
	callsAfterFirst := atomic.LoadInt64(&gw.calls)

	_, err = agg.Get(context.Background(), "bucketed@example.com", "1.2.3.4", now.Add(2*time.Minute))
	require.NoError(t, err)

	assert.Greater(t, atomic.LoadInt64(&gw.calls), callsAfterFirst)
}
