package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dygsom/fraud-api/internal/auth"
	"github.com/dygsom/fraud-api/internal/domain/apikey"
	"github.com/dygsom/fraud-api/internal/metrics"
	"github.com/dygsom/fraud-api/internal/ratelimiter"
	"github.com/dygsom/fraud-api/pkg/errors"
	"github.com/dygsom/fraud-api/pkg/httputil"
)

type ctxKey string

const apiKeyCtxKey ctxKey = "api_key"

// Authenticate resolves the X-API-Key header via gate and attaches the
// resolved key record to the request context. A missing or
// non-resolving key yields 401 immediately.
func Authenticate(gate *auth.Gate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(httputil.HeaderAPIKey)
			if raw == "" {
				WriteError(w, r, errors.ErrAPIKeyNotFound)
				return
			}

			key, err := gate.Authenticate(r.Context(), raw, time.Now())
			if err != nil {
				WriteError(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), apiKeyCtxKey, key)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// APIKeyFromContext extracts the authenticated key resolved upstream by
// Authenticate.
func APIKeyFromContext(ctx context.Context) (apikey.APIKey, bool) {
	key, ok := ctx.Value(apiKeyCtxKey).(apikey.APIKey)
	return key, ok
}

// RateLimit enforces the sliding-window limit for the caller's API key,
// setting X-RateLimit-* headers on every response and rejecting with
// 429 + Retry-After once the window's quota is spent.
func RateLimit(limiter *ratelimiter.Limiter, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, ok := APIKeyFromContext(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			result, err := limiter.Allow(r.Context(), key.ID, key.RateLimit)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set(httputil.HeaderRateLimitLimit, fmt.Sprintf("%d", result.Limit))
			w.Header().Set(httputil.HeaderRateLimitRemaining, fmt.Sprintf("%d", result.Remaining))

			if !result.Allowed {
				if m != nil {
					m.ObserveRateLimitHit()
				}
				w.Header().Set(httputil.HeaderRetryAfter, "60")
				WriteError(w, r, errors.ErrQuota)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
