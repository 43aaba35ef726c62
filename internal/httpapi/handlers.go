// Package httpapi assembles the fraud-scoring HTTP surface: the router,
// its handlers, and the dependencies they're closed over.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/dygsom/fraud-api/internal/domain/transaction"
	"github.com/dygsom/fraud-api/internal/httpapi/dto"
	"github.com/dygsom/fraud-api/internal/httpapi/middleware"
	"github.com/dygsom/fraud-api/internal/scoring"
	pkgerrors "github.com/dygsom/fraud-api/pkg/errors"
	"github.com/dygsom/fraud-api/pkg/validator"
)

// Pinger is satisfied by the Postgres gateway and the Redis client, for
// the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers holds the scoring API's HTTP handler dependencies.
type Handlers struct {
	orchestrator *scoring.Orchestrator
	validate     *validator.Validator
	logger       *zap.Logger
	db           Pinger
	redis        Pinger
}

// NewHandlers builds a Handlers. redis may be nil when no Redis tier is
// configured, in which case readiness reports it as "disabled".
func NewHandlers(orchestrator *scoring.Orchestrator, validate *validator.Validator, logger *zap.Logger, db Pinger, redis Pinger) *Handlers {
	return &Handlers{orchestrator: orchestrator, validate: validate, logger: logger, db: db, redis: redis}
}

// Score handles POST /api/v1/fraud/score.
func (h *Handlers) Score(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var tx transaction.Transaction
	if err := json.NewDecoder(r.Body).Decode(&tx); err != nil {
		middleware.WriteError(w, r, pkgerrors.ErrInvalidTransaction.Wrap(err))
		return
	}

	tx.Normalize(start.UTC())

	if err := h.validate.Validate(tx); err != nil {
		middleware.WriteError(w, r, pkgerrors.ErrInvalidTransaction.Wrap(err))
		return
	}
	if err := tx.ValidateAmount(); err != nil {
		middleware.WriteError(w, r, pkgerrors.ErrInvalidTransaction.Wrap(err))
		return
	}

	result, err := h.orchestrator.Score(r.Context(), tx)
	if err != nil {
		if pkgerrors.Is(err, pkgerrors.ErrDuplicateTransaction) {
			middleware.WriteError(w, r, err)
			return
		}
		h.logger.Error("scoring failed", zap.Error(err), zap.String("business_id", tx.BusinessID))
		middleware.WriteError(w, r, err)
		return
	}

	resp := dto.NewScoreResponse(result, tx, time.Since(start))
	render.Status(r, http.StatusOK)
	render.JSON(w, r, resp)
}

// Health handles GET /health: a liveness probe that never touches a
// dependency.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, dto.HealthResponse{Status: "healthy"})
}

// Ready handles GET /health/ready: checks every dependency the hot path
// needs and reports 503 if any is down.
func (h *Handlers) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	components := map[string]string{}
	healthy := true

	if err := h.db.Ping(ctx); err != nil {
		components["database"] = "unhealthy"
		healthy = false
	} else {
		components["database"] = "ok"
	}

	if h.redis == nil {
		components["redis"] = "disabled"
	} else if err := h.redis.Ping(ctx); err != nil {
		components["redis"] = "unhealthy"
		healthy = false
	} else {
		components["redis"] = "ok"
	}

	status := "ok"
	code := http.StatusOK
	if !healthy {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	render.Status(r, code)
	render.JSON(w, r, dto.ReadyResponse{Status: status, Components: components})
}
