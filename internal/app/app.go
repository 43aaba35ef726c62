// Package app wires the fraud-scoring service's components into a
// runnable process: configuration, the Postgres gateway, the Redis
// client, the two-tier cache, the model manager, the auth gate, the
// rate limiter, the velocity aggregator, the scoring orchestrator, and
// the HTTP server, plus the phased graceful shutdown that tears them
// back down in the right order.
package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dygsom/fraud-api/internal/auth"
	"github.com/dygsom/fraud-api/internal/cache"
	"github.com/dygsom/fraud-api/internal/config"
	"github.com/dygsom/fraud-api/internal/domain/decision"
	"github.com/dygsom/fraud-api/internal/httpapi"
	"github.com/dygsom/fraud-api/internal/metrics"
	"github.com/dygsom/fraud-api/internal/model"
	"github.com/dygsom/fraud-api/internal/platform/log"
	"github.com/dygsom/fraud-api/internal/platform/shutdown"
	"github.com/dygsom/fraud-api/internal/ratelimiter"
	"github.com/dygsom/fraud-api/internal/scoring"
	"github.com/dygsom/fraud-api/internal/store/postgres"
	storeredis "github.com/dygsom/fraud-api/internal/store/redis"
	"github.com/dygsom/fraud-api/internal/velocity"
	"github.com/dygsom/fraud-api/pkg/validator"
)

// App holds every long-lived dependency the process needs, assembled
// once at startup and torn down once at shutdown.
type App struct {
	logger *zap.Logger
	config *config.Config

	db    *postgres.Gateway
	redis *storeredis.Client

	metrics       *metrics.Metrics
	server        *http.Server
	poolStatsDone chan struct{}
}

// New builds the application. Bootstrap order matters: config first,
// since the logger is built for the configured environment; the logger
// next, so every later step can log; then the persistence and
// cache layers the rest of the pipeline depends on; then the scoring
// pipeline itself; finally the HTTP server.
func New() (*App, error) {
	cfg := config.MustLoad("")

	logger, err := log.New(cfg.App.Environment)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	app := &App{logger: logger, config: cfg}
	logger.Info("configuration loaded",
		zap.String("environment", cfg.App.Environment),
		zap.Int("port", cfg.Server.Port),
	)

	db, err := postgres.Open(cfg.Database)
	if err != nil {
		logger.Error("database init failed", zap.Error(err))
		return nil, err
	}
	app.db = db
	logger.Info("database pool initialized")

	redisClient, err := storeredis.New(cfg.Redis)
	if err != nil {
		logger.Error("redis init failed", zap.Error(err))
		return nil, err
	}
	app.redis = redisClient
	if redisClient != nil {
		logger.Info("redis client initialized")
	} else {
		logger.Warn("no REDIS_URL configured, falling back to in-process cache; rate limiting is not enforced")
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(cfg.Metrics)
	}
	app.metrics = m

	db.WithMetrics(m)

	cacheOpts := []cache.Configuration{}
	if redisClient != nil {
		cacheOpts = append(cacheOpts, cache.WithRedis(redisClient))
	}
	if m != nil {
		cacheOpts = append(cacheOpts, cache.WithMetrics(m))
	}
	cacheTier, err := cache.New(cfg.Cache, logger, cacheOpts...)
	if err != nil {
		logger.Error("cache init failed", zap.Error(err))
		return nil, err
	}
	logger.Info("cache tier initialized")

	gate, err := auth.New(cfg.Auth, db, logger, cfg.Cache.L1MaxSize)
	if err != nil {
		logger.Error("auth gate init failed", zap.Error(err))
		return nil, err
	}

	var rawRedis *goredis.Client
	if redisClient != nil {
		rawRedis = redisClient.Client
	}
	limiter := ratelimiter.New(rawRedis)

	velocityAggregator := velocity.New(cacheTier, db)

	modelManager := model.New(cfg.Model.Path)
	if modelManager.Loaded() {
		logger.Info("fraud model artifact loaded", zap.String("path", cfg.Model.Path))
	} else {
		logger.Info("no fraud model artifact loaded, using rule-based fallback scorer")
	}

	thresholds := decision.Thresholds{
		Low:    cfg.Model.LowThreshold,
		Medium: cfg.Model.MediumThreshold,
		High:   cfg.Model.HighThreshold,
	}
	orchestrator := scoring.New(velocityAggregator, db, modelManager, thresholds).WithMetrics(m)

	validate := validator.New()
	handlers := httpapi.NewHandlers(orchestrator, validate, logger, db, pingerOrNil(redisClient))

	router := httpapi.NewRouter(httpapi.RouterConfig{
		Config:   &cfg.Server,
		Handlers: handlers,
		Gate:     gate,
		Limiter:  limiter,
		Metrics:  m,
		Logger:   logger,
	})

	app.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	if m != nil {
		app.poolStatsDone = make(chan struct{})
		go app.samplePoolStats()
	}

	logger.Info("application assembled")
	return app, nil
}

// samplePoolStats periodically refreshes the connection-pool gauges
// until the app shuts down, since sql.DBStats is a pull-only snapshot
// with no push/callback hook.
func (a *App) samplePoolStats() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			a.metrics.ObserveDBPoolStats(a.db)
		case <-a.poolStatsDone:
			return
		}
	}
}

// Run starts the HTTP server and blocks until an interrupt or SIGTERM
// arrives, then executes the phased shutdown sequence.
func (a *App) Run() error {
	go func() {
		a.logger.Info("http server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("http server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	sig := <-quit
	a.logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	if a.poolStatsDone != nil {
		close(a.poolStatsDone)
	}

	mgr := shutdown.NewManager(a.logger)
	mgr.RegisterDefaultHooks(a.server, closerFunc(a.db.Close))

	if a.redis != nil {
		mgr.RegisterHook(shutdown.PhaseCleanup, "close_redis", func(ctx context.Context) error {
			return a.redis.Close()
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
	defer cancel()

	if err := mgr.Shutdown(ctx); err != nil {
		a.logger.Error("graceful shutdown completed with errors", zap.Error(err))
		return err
	}

	a.logger.Info("application stopped gracefully")
	return nil
}

// closerFunc adapts a bare close function to shutdown.ShutdownableRepos.
type closerFunc func()

func (f closerFunc) Close() { f() }

// pingerOrNil returns redisClient as an httpapi.Pinger, or a genuinely
// nil interface value when no Redis tier is configured (a non-nil
// interface wrapping a nil *storeredis.Client would panic on Ping).
func pingerOrNil(redisClient *storeredis.Client) httpapi.Pinger {
	if redisClient == nil {
		return nil
	}
	return redisClient
}
