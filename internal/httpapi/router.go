package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/dygsom/fraud-api/internal/auth"
	"github.com/dygsom/fraud-api/internal/config"
	"github.com/dygsom/fraud-api/internal/httpapi/middleware"
	"github.com/dygsom/fraud-api/internal/metrics"
	"github.com/dygsom/fraud-api/internal/ratelimiter"
)

// RouterConfig holds everything NewRouter needs to wire the scoring API.
type RouterConfig struct {
	Config   *config.ServerConfig
	Handlers *Handlers
	Gate     *auth.Gate
	Limiter  *ratelimiter.Limiter
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
}

// NewRouter builds the chi mux for the fraud-scoring API: security and
// observability middleware first, then CORS, then the authenticated and
// rate-limited v1 routes.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer(cfg.Logger))
	r.Use(middleware.SecurityHeaders)
	r.Use(render.SetContentType(render.ContentTypeJSON))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}

	if cfg.Config.EnableCORS {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Config.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-API-Key", "X-Request-ID"},
			ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-Request-ID"},
			MaxAge:           300,
		}))
	}

	r.Get("/health", cfg.Handlers.Health)
	r.Get("/health/ready", cfg.Handlers.Ready)
	if cfg.Metrics != nil {
		r.Get(cfg.Metrics.Path(), cfg.Metrics.Handler().ServeHTTP)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Authenticate(cfg.Gate))
		r.Use(middleware.RateLimit(cfg.Limiter, cfg.Metrics))

		r.Route("/fraud", func(r chi.Router) {
			r.With(timeout(cfg.Config.RequestTimeout)).Post("/score", cfg.Handlers.Score)
		})
	})

	return r
}

// timeout bounds a single route's handling time, distinct from the
// server-wide ReadTimeout/WriteTimeout.
func timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, `{"detail":"request timed out"}`)
	}
}
