// Package dto holds the HTTP-facing request/response shapes for the
// scoring API, kept separate from the domain types they're built from.
package dto

import (
	"time"

	"github.com/dygsom/fraud-api/internal/domain/transaction"
	"github.com/dygsom/fraud-api/internal/scoring"
)

// ErrorResponse is the error wire format: {"detail": "..."}.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// NewErrorResponse builds an ErrorResponse from any error's message.
func NewErrorResponse(err error) ErrorResponse {
	return ErrorResponse{Detail: err.Error()}
}

// VelocityChecks mirrors the velocity snapshot fields surfaced to the
// caller so integration tests can assert on cumulative counts.
type VelocityChecks struct {
	CustomerTxCount1h  int64  `json:"customer_tx_count_1h"`
	CustomerTxCount24h int64  `json:"customer_tx_count_24h"`
	CustomerTxCount7d  int64  `json:"customer_tx_count_7d"`
	IPTxCount1h        int64  `json:"ip_tx_count_1h"`
	IPTxCount24h       int64  `json:"ip_tx_count_24h"`
	CustomerAmountSum24h string `json:"customer_amount_sum_24h"`
}

// ScoreDetails is the `details` sub-object of a score response.
type ScoreDetails struct {
	Amount         string          `json:"amount"`
	Currency       string          `json:"currency"`
	CustomerEmail  string          `json:"customer_email"`
	VelocityChecks VelocityChecks  `json:"velocity_checks"`
}

// ScoreResponse is the POST /api/v1/fraud/score response body.
type ScoreResponse struct {
	TransactionID    string       `json:"transaction_id"`
	FraudScore       float64      `json:"fraud_score"`
	RiskLevel        string       `json:"risk_level"`
	Recommendation   string       `json:"recommendation"`
	ProcessingTimeMs int64        `json:"processing_time_ms"`
	Timestamp        time.Time    `json:"timestamp"`
	Details          ScoreDetails `json:"details"`
}

// NewScoreResponse assembles the response body from the orchestrator's
// result plus the request-scoped data needed for the details block.
func NewScoreResponse(res scoring.Result, tx transaction.Transaction, processingTime time.Duration) ScoreResponse {
	snap := res.Velocity
	return ScoreResponse{
		TransactionID:    res.TransactionID,
		FraudScore:       res.FraudScore,
		RiskLevel:        res.RiskLevel,
		Recommendation:   res.Recommendation,
		ProcessingTimeMs: processingTime.Milliseconds(),
		Timestamp:        time.Now().UTC(),
		Details: ScoreDetails{
			Amount:        tx.Amount.StringFixed(2),
			Currency:      tx.Currency,
			CustomerEmail: tx.Customer.Email,
			VelocityChecks: VelocityChecks{
				CustomerTxCount1h:    snap.CustomerTxCount1h,
				CustomerTxCount24h:   snap.CustomerTxCount24h,
				CustomerTxCount7d:    snap.CustomerTxCount7d,
				IPTxCount1h:          snap.IPTxCount1h,
				IPTxCount24h:         snap.IPTxCount24h,
				CustomerAmountSum24h: snap.CustomerAmountSum24h.StringFixed(2),
			},
		},
	}
}

// HealthResponse is the /health body.
type HealthResponse struct {
	Status string `json:"status"`
}

// ReadyResponse is the /health/ready body.
type ReadyResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
}
