// Package middleware provides the cross-cutting HTTP concerns for the
// scoring API: request correlation, structured logging, panic recovery,
// and the security headers mandated for every response.
package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/dygsom/fraud-api/internal/httpapi/dto"
	"github.com/dygsom/fraud-api/internal/platform/log"
	"github.com/dygsom/fraud-api/pkg/errors"
	"github.com/dygsom/fraud-api/pkg/httputil"
)

// responseWriter wraps http.ResponseWriter to capture the status code
// written, for request logging.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (w *responseWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// RequestID attaches a per-call UUID to the context, the logger, and
// the X-Request-ID response header, honoring a caller-supplied ID.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(httputil.HeaderRequestID)
		if requestID == "" {
			requestID = log.NewRequestID()
		}
		ctx := log.WithRequestID(r.Context(), requestID)
		w.Header().Set(httputil.HeaderRequestID, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestLogger logs each request's method, path, status and duration
// at completion, using logger tagged with the request ID attached by
// RequestID; the same tagged logger is placed in the request context.
func RequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}

			reqLogger := logger.With(zap.String("request_id", log.RequestID(r.Context())))
			ctx := log.WithLogger(r.Context(), reqLogger)
			next.ServeHTTP(wrapped, r.WithContext(ctx))

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", wrapped.status),
				zap.Duration("duration", time.Since(start)),
			}
			switch {
			case httputil.IsServerError(wrapped.status):
				reqLogger.Error("request completed", fields...)
			case httputil.IsClientError(wrapped.status):
				reqLogger.Warn("request completed", fields...)
			default:
				reqLogger.Info("request completed", fields...)
			}
		})
	}
}

// Recoverer converts a panic into a 500 JSON error response instead of
// crashing the connection.
func Recoverer(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rec),
						zap.String("path", r.URL.Path),
					)
					WriteError(w, r, errors.ErrInternal)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// SecurityHeaders sets the hardening headers required on every response.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains")
		next.ServeHTTP(w, r)
	})
}

// WriteError renders err as a {"detail": "..."} JSON body with the
// status mapped from the domain error taxonomy, via render.Status/
// render.JSON the way the teacher's handlers render every response.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	render.Status(r, errors.GetHTTPStatus(err))
	render.JSON(w, r, dto.NewErrorResponse(err))
}
