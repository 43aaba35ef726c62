// Package log configures structured logging for the service and carries
// a per-request logger through context.Context.
package log

import (
	"context"
	"os"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ctxKey string

const (
	loggerKey    ctxKey = "logger"
	requestIDKey ctxKey = "request_id"
)

var (
	defaultLogger *zap.Logger
	once          sync.Once
)

// New builds a zap.Logger according to APP_ENV: development config with a
// console encoder and debug level outside "production", JSON/ISO8601
// otherwise. Caller is responsible for calling Sync() at shutdown.
func New(environment string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if environment != "production" {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stdout"}

	return cfg.Build()
}

// GetLogger returns a singleton fallback logger for code paths that run
// before the configured logger is wired (e.g. config loading errors).
func GetLogger() *zap.Logger {
	once.Do(func() {
		l, err := New(os.Getenv("APP_ENV"))
		if err != nil {
			l = zap.NewExample()
		}
		defaultLogger = l
	})
	return defaultLogger
}

// WithLogger returns a new context carrying the given logger.
func WithLogger(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext returns the logger stored in ctx, or the process fallback.
func FromContext(ctx context.Context) *zap.Logger {
	if ctx == nil {
		return GetLogger()
	}
	if l, ok := ctx.Value(loggerKey).(*zap.Logger); ok && l != nil {
		return l
	}
	return GetLogger()
}

// WithRequestID attaches a request ID to both the context and the
// context-scoped logger, so every log line in the request carries it.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	ctx = context.WithValue(ctx, requestIDKey, requestID)
	logger := FromContext(ctx).With(zap.String("request_id", requestID))
	return WithLogger(ctx, logger)
}

// RequestID extracts the request ID from ctx, or "" if absent.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// NewRequestID generates a per-call UUID used for the X-Request-ID
// correlation header and propagated through every log line for the
// request.
func NewRequestID() string {
	return uuid.NewString()
}
