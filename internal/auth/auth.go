// Package auth implements the API-key Auth Gate: resolves the
// X-API-Key header to a tenant's key record via a salted-hash lookup,
// cached briefly to keep the hot path off the database, and fires a
// best-effort usage increment in the background.
package auth

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/dygsom/fraud-api/internal/config"
	"github.com/dygsom/fraud-api/internal/domain/apikey"
	"github.com/dygsom/fraud-api/internal/platform/crypto"
	pkgerrors "github.com/dygsom/fraud-api/pkg/errors"
)

// Gateway is the subset of the Persistence Gateway the auth gate needs.
type Gateway interface {
	FindAPIKeyByHash(ctx context.Context, hash string) (apikey.APIKey, error)
	IncrementAPIKeyUsage(ctx context.Context, id string) error
}

type cacheEntry struct {
	key       apikey.APIKey
	cachedAt  time.Time
}

// Gate resolves API keys and caches the result for a short TTL, since
// the same key authenticates every request from a given caller.
type Gate struct {
	gateway Gateway
	salt    string
	ttl     time.Duration
	cache   *lru.Cache[string, cacheEntry]
	logger  *zap.Logger
}

// New builds a Gate. cacheSize bounds the LRU; ttl is typically a few
// seconds, per AuthConfig.AuthCacheTTL.
func New(cfg config.AuthConfig, gateway Gateway, logger *zap.Logger, cacheSize int) (*Gate, error) {
	c, err := lru.New[string, cacheEntry](cacheSize)
	if err != nil {
		return nil, err
	}
	return &Gate{gateway: gateway, salt: cfg.APIKeySalt, ttl: cfg.AuthCacheTTL, cache: c, logger: logger}, nil
}

// Authenticate resolves rawKey to its APIKey record, validating it is
// active and unexpired as of now. On success it fires an async,
// best-effort usage increment that never blocks or fails the caller.
func (g *Gate) Authenticate(ctx context.Context, rawKey string, now time.Time) (apikey.APIKey, error) {
	hash := crypto.HashAPIKey(rawKey, g.salt)

	if entry, ok := g.cache.Get(hash); ok && now.Sub(entry.cachedAt) < g.ttl {
		result, err := g.validate(entry.key, now)
		if err == nil {
			go g.incrementUsage(entry.key.ID)
		}
		return result, err
	}

	key, err := g.gateway.FindAPIKeyByHash(ctx, hash)
	if err != nil {
		if pkgerrors.Is(err, pkgerrors.ErrNotFound) {
			return apikey.APIKey{}, pkgerrors.ErrAPIKeyNotFound
		}
		return apikey.APIKey{}, err
	}

	g.cache.Add(hash, cacheEntry{key: key, cachedAt: now})
	result, err := g.validate(key, now)
	if err == nil {
		go g.incrementUsage(key.ID)
	}
	return result, err
}

func (g *Gate) validate(key apikey.APIKey, now time.Time) (apikey.APIKey, error) {
	if !key.IsActive {
		return apikey.APIKey{}, pkgerrors.ErrAPIKeyInactive
	}
	if key.ExpiresAt != nil && !key.ExpiresAt.After(now) {
		return apikey.APIKey{}, pkgerrors.ErrAPIKeyExpired
	}
	return key, nil
}

func (g *Gate) incrementUsage(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := g.gateway.IncrementAPIKeyUsage(ctx, id); err != nil {
		g.logger.Warn("api key usage increment failed", zap.String("api_key_id", id), zap.Error(err))
	}
}
