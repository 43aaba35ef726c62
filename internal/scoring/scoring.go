// Package scoring implements the Scoring Orchestrator: the single
// request-scoped coordinator that pulls a velocity snapshot, builds the
// feature vector, calls the Model Manager, derives the decision, and
// persists the outcome before a response can be returned.
package scoring

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dygsom/fraud-api/internal/domain/decision"
	"github.com/dygsom/fraud-api/internal/domain/transaction"
	"github.com/dygsom/fraud-api/internal/domain/velocity"
	"github.com/dygsom/fraud-api/internal/features"
	"github.com/dygsom/fraud-api/internal/metrics"
	"github.com/dygsom/fraud-api/internal/model"
	pkgerrors "github.com/dygsom/fraud-api/pkg/errors"
)

// VelocitySource resolves the rolling-window snapshot for a request.
type VelocitySource interface {
	Get(ctx context.Context, email, ip string, now time.Time) (velocity.Snapshot, error)
}

// Persister durably records a scored transaction. InsertTransaction must
// succeed before the orchestrator returns a result to its caller.
type Persister interface {
	InsertTransaction(ctx context.Context, rec transaction.Record) (string, error)
}

// Result is what the HTTP handler renders back to the caller.
type Result struct {
	TransactionID  string
	FraudScore     float64
	RiskLevel      string
	Recommendation string
	ModelUsed      bool
	Confidence     string
	Velocity       velocity.Snapshot
}

// Orchestrator wires the velocity, feature, model and persistence
// stages together for a single request.
type Orchestrator struct {
	velocity   VelocitySource
	persister  Persister
	model      *model.Manager
	thresholds decision.Thresholds
	metrics    *metrics.Metrics
}

// New builds an Orchestrator. thresholds comes from the loaded config's
// Model section.
func New(v VelocitySource, p Persister, m *model.Manager, thresholds decision.Thresholds) *Orchestrator {
	return &Orchestrator{velocity: v, persister: p, model: m, thresholds: thresholds}
}

// WithMetrics attaches the process-wide metrics collector, enabling
// score/decision observations. Safe to leave unset (nil metrics is a
// no-op) for tests that don't need Prometheus wiring.
func (o *Orchestrator) WithMetrics(m *metrics.Metrics) *Orchestrator {
	o.metrics = m
	return o
}

// Score runs the full pipeline for tx: (1) velocity snapshot, (2)
// feature vector, (3) model prediction, (4) decision, (5) persistence,
// and returns the Result only once persistence has succeeded.
//
// Steps 1 and 2 could run concurrently (feature extraction doesn't
// depend on velocity for its non-velocity groups), but the velocity
// fetch in practice completes well inside the cache-hit path's latency
// budget, so this keeps the simpler sequential form.
func (o *Orchestrator) Score(ctx context.Context, tx transaction.Transaction) (Result, error) {
	snap, err := o.velocity.Get(ctx, tx.Customer.Email, tx.Customer.IP, tx.Timestamp)
	if err != nil {
		return Result{}, pkgerrors.ErrDependency.Wrap(err)
	}

	featureStart := time.Now()
	vec := features.Extract(tx, snap)
	if o.metrics != nil {
		o.metrics.ObserveFeatureExtractDuration(time.Since(featureStart))
	}

	predictStart := time.Now()
	pred := o.model.Predict(vec)
	if o.metrics != nil {
		o.metrics.ObserveModelPredictDuration(time.Since(predictStart))
	}

	outcome := decision.ForThresholds(pred.Probability, o.thresholds)
	if o.metrics != nil {
		o.metrics.ObserveFraudScore(pred.Probability, outcome.RiskLevel, outcome.Recommendation)
	}

	id := uuid.NewString()
	rec := transaction.NewRecord(id, tx, pred.Probability, outcome.RiskLevel, outcome.Recommendation, time.Now().UTC())

	if _, err := o.persister.InsertTransaction(ctx, rec); err != nil {
		return Result{}, err
	}

	return Result{
		TransactionID:  id,
		FraudScore:     pred.Probability,
		RiskLevel:      outcome.RiskLevel,
		Recommendation: outcome.Recommendation,
		ModelUsed:      pred.ModelUsed,
		Confidence:     pred.Confidence,
		Velocity:       snap,
	}, nil
}
