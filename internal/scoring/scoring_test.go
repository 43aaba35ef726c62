package scoring

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dygsom/fraud-api/internal/domain/decision"
	"github.com/dygsom/fraud-api/internal/domain/transaction"
	"github.com/dygsom/fraud-api/internal/domain/velocity"
	"github.com/dygsom/fraud-api/internal/model"
	pkgerrors "github.com/dygsom/fraud-api/pkg/errors"
)

type fakeVelocitySource struct {
	snap velocity.Snapshot
	err  error
}

func (f fakeVelocitySource) Get(ctx context.Context, email, ip string, now time.Time) (velocity.Snapshot, error) {
	return f.snap, f.err
}

type fakePersister struct {
	inserted []transaction.Record
	err      error
}

func (f *fakePersister) InsertTransaction(ctx context.Context, rec transaction.Record) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.inserted = append(f.inserted, rec)
	return rec.ID, nil
}

func lowRiskTx() transaction.Transaction {
	return transaction.Transaction{
		BusinessID: "tx_1",
		Amount:     decimal.NewFromFloat(150.50),
		Currency:   "PEN",
		Timestamp:  time.Now().UTC(),
		Customer: transaction.Customer{
			Email: "juan.perez@gmail.com",
			Phone: "+51987654321",
			IP:    "181.67.45.123",
		},
		Payment: transaction.Payment{
			Type:  "credit_card",
			BIN:   "411111",
			Last4: "1111",
			Brand: "Visa",
		},
		MerchantCategory: transaction.MerchantEcommerce,
	}
}

func TestScore_LowRiskApproval(t *testing.T) {
	persister := &fakePersister{}
	orch := New(fakeVelocitySource{snap: velocity.Empty()}, persister, model.New(""), decision.DefaultThresholds)

	result, err := orch.Score(context.Background(), lowRiskTx())

	require.NoError(t, err)
	assert.Equal(t, decision.RiskLow, result.RiskLevel)
	assert.Equal(t, decision.RecommendApprove, result.Recommendation)
	assert.Less(t, result.FraudScore, 0.30)
	assert.Len(t, persister.inserted, 1)
	assert.Equal(t, result.TransactionID, persister.inserted[0].ID)
}

func TestScore_VelocityFailurePropagatesAsDependencyError(t *testing.T) {
	persister := &fakePersister{}
	boom := assert.AnError
	orch := New(fakeVelocitySource{err: boom}, persister, model.New(""), decision.DefaultThresholds)

	_, err := orch.Score(context.Background(), lowRiskTx())

	assert.ErrorIs(t, err, pkgerrors.ErrDependency)
	assert.Empty(t, persister.inserted)
}

func TestScore_PersistenceFailureIsNotSwallowed(t *testing.T) {
	persister := &fakePersister{err: pkgerrors.ErrPersistence}
	orch := New(fakeVelocitySource{snap: velocity.Empty()}, persister, model.New(""), decision.DefaultThresholds)

	_, err := orch.Score(context.Background(), lowRiskTx())

	assert.ErrorIs(t, err, pkgerrors.ErrPersistence)
}

func TestScore_FraudScoreAlwaysInUnitInterval(t *testing.T) {
	persister := &fakePersister{}
	orch := New(fakeVelocitySource{snap: velocity.Empty()}, persister, model.New(""), decision.DefaultThresholds)

	tx := lowRiskTx()
	tx.Customer.Email = "fraudster@tempmail.com"
	tx.Amount = decimal.NewFromFloat(7500)

	result, err := orch.Score(context.Background(), tx)

	require.NoError(t, err)
	assert.GreaterOrEqual(t, result.FraudScore, 0.0)
	assert.LessOrEqual(t, result.FraudScore, 1.0)
	assert.GreaterOrEqual(t, result.FraudScore, 0.55)
}

func TestScore_VelocityAmplification(t *testing.T) {
	persister := &fakePersister{}
	snap := velocity.Empty()
	snap.CustomerTxCount1h = 12
	orch := New(fakeVelocitySource{snap: snap}, persister, model.New(""), decision.DefaultThresholds)

	tx := lowRiskTx()
	tx.Amount = decimal.NewFromFloat(5)

	result, err := orch.Score(context.Background(), tx)

	require.NoError(t, err)
	assert.GreaterOrEqual(t, result.Velocity.CustomerTxCount1h, int64(12))
}

func TestScore_IdenticalInputsYieldIdenticalScores(t *testing.T) {
	snap := velocity.Empty()
	tx := lowRiskTx()

	first := New(fakeVelocitySource{snap: snap}, &fakePersister{}, model.New(""), decision.DefaultThresholds)
	second := New(fakeVelocitySource{snap: snap}, &fakePersister{}, model.New(""), decision.DefaultThresholds)

	r1, err := first.Score(context.Background(), tx)
	require.NoError(t, err)
	r2, err := second.Score(context.Background(), tx)
	require.NoError(t, err)

	assert.Equal(t, r1.FraudScore, r2.FraudScore)
	assert.Equal(t, r1.RiskLevel, r2.RiskLevel)
}

func TestScore_WithMetrics_NilMetricsIsNoOp(t *testing.T) {
	persister := &fakePersister{}
	orch := New(fakeVelocitySource{snap: velocity.Empty()}, persister, model.New(""), decision.DefaultThresholds).WithMetrics(nil)

	_, err := orch.Score(context.Background(), lowRiskTx())

	assert.NoError(t, err)
}
