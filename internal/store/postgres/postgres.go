// Package postgres is the Persistence Gateway: typed accessors for
// transaction records and API keys, backed by sqlx over a pgx
// connection pool. It is the exclusive owner of durable state — no
// other component mutates these tables directly.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/dygsom/fraud-api/internal/config"
	"github.com/dygsom/fraud-api/internal/domain/apikey"
	"github.com/dygsom/fraud-api/internal/domain/transaction"
	"github.com/dygsom/fraud-api/internal/metrics"
	pkgerrors "github.com/dygsom/fraud-api/pkg/errors"
)

// pgUniqueViolation is the SQLSTATE code for a unique-constraint
// violation, used to tell a duplicate business_id apart from any other
// insert failure.
const pgUniqueViolation = "23505"

const queryTimeout = 30 * time.Second

// velocityQueryTimeout bounds the velocity aggregator's sub-queries
// tighter than the general 30s ceiling, per the component design's
// latency budget for the hot path.
const velocityQueryTimeout = 50 * time.Millisecond

// Gateway is the Persistence Gateway described in the component design:
// typed operations for transactions and API keys, each with a hard
// per-query ceiling.
type Gateway struct {
	db      *sqlx.DB
	metrics *metrics.Metrics
}

// HandleSQLError maps a raw database/sql error onto the domain error
// taxonomy: a missing row becomes ErrNotFound, everything else is
// wrapped as ErrDatabase. A nil input passes through unchanged.
func HandleSQLError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return pkgerrors.ErrNotFound.Wrap(err)
	}
	return pkgerrors.ErrDatabase.Wrap(err)
}

// Open establishes the connection pool against cfg.URL using the pgx
// driver wrapped for database/sql, and configures pool limits.
func Open(cfg config.DatabaseConfig) (*Gateway, error) {
	connConfig, err := pgx.ParseConfig(cfg.URL)
	if err != nil {
		return nil, pkgerrors.ErrDatabase.Wrap(err)
	}

	sqlDB := stdlib.OpenDB(*connConfig)
	db := sqlx.NewDb(sqlDB, "pgx")

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return &Gateway{db: db}, nil
}

// WithMetrics attaches the process-wide metrics collector so every
// query records its duration on /metrics.
func (g *Gateway) WithMetrics(m *metrics.Metrics) *Gateway {
	g.metrics = m
	return g
}

func (g *Gateway) observe(operation string, start time.Time) {
	if g.metrics != nil {
		g.metrics.ObservePersistenceQueryDuration(operation, time.Since(start))
	}
}

// Close releases the underlying connection pool. Registered with the
// shutdown manager's cleanup phase.
func (g *Gateway) Close() {
	_ = g.db.Close()
}

// Ping verifies the pool can reach the database within the given
// context's deadline, used by the /health/ready probe.
func (g *Gateway) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return g.db.PingContext(ctx)
}

// Stats exposes the pool's connection counts for the connections-pool
// high-water-mark metric required by the component design.
func (g *Gateway) Stats() sql.DBStats {
	return g.db.Stats()
}

// FindAPIKeyByHash resolves a salted-hash to its key record, applying
// the active-and-unexpired filter in the query itself.
func (g *Gateway) FindAPIKeyByHash(ctx context.Context, hash string) (apikey.APIKey, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	defer g.observe("find_api_key_by_hash", time.Now())

	var key apikey.APIKey
	query := `SELECT * FROM api_keys WHERE key_hash=$1 AND is_active AND (expires_at IS NULL OR expires_at > now())`
	err := g.db.GetContext(ctx, &key, query, hash)
	return key, HandleSQLError(err)
}

// InsertAPIKey persists a newly minted key record. Called by the
// apikeygen tool; never by the request-serving process.
func (g *Gateway) InsertAPIKey(ctx context.Context, key apikey.APIKey) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	defer g.observe("insert_api_key", time.Now())

	query := `INSERT INTO api_keys (id, key_hash, name, tenant_id, rate_limit, is_active, expires_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	_, err := g.db.ExecContext(ctx, query,
		key.ID, key.KeyHash, key.Name, key.TenantID, key.RateLimit, key.IsActive, key.ExpiresAt, key.CreatedAt)
	return HandleSQLError(err)
}

// IncrementAPIKeyUsage bumps request_count and last_used_at. Called
// asynchronously by the auth gate on a best-effort basis; failures here
// must never fail the request.
func (g *Gateway) IncrementAPIKeyUsage(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	defer g.observe("increment_api_key_usage", time.Now())

	_, err := g.db.ExecContext(ctx,
		`UPDATE api_keys SET request_count = request_count + 1, last_used_at = now() WHERE id=$1`, id)
	return HandleSQLError(err)
}

// InsertTransaction persists a scored transaction record. A 200
// response is only returned once this has succeeded.
func (g *Gateway) InsertTransaction(ctx context.Context, rec transaction.Record) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	defer g.observe("insert_transaction", time.Now())

	query := `INSERT INTO transactions
		(id, business_id, amount, currency, timestamp, customer_email, customer_phone,
		 customer_ip, payment_type, payment_bin, payment_last4, payment_brand,
		 merchant_category, fraud_score, risk_level, decision, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
		RETURNING id`

	var id string
	err := g.db.QueryRowContext(ctx, query,
		rec.ID, rec.BusinessID, rec.Amount, rec.Currency, rec.Timestamp, rec.CustomerEmail,
		rec.CustomerPhone, rec.CustomerIP, rec.PaymentType, rec.PaymentBIN, rec.PaymentLast4,
		rec.PaymentBrand, rec.MerchantCategory, rec.FraudScore, rec.RiskLevel, rec.Decision,
		rec.CreatedAt,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return "", pkgerrors.ErrDuplicateTransaction.Wrap(err)
		}
		return "", pkgerrors.ErrPersistence.Wrap(err)
	}
	return id, nil
}

// CustomerTxCount returns the number of transactions for email within
// the last `window`, used by the velocity aggregator.
func (g *Gateway) CustomerTxCount(ctx context.Context, email string, window time.Duration) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, velocityQueryTimeout)
	defer cancel()
	defer g.observe("customer_tx_count", time.Now())

	var count int64
	query := `SELECT COUNT(*) FROM transactions WHERE customer_email=$1 AND timestamp > now() - $2::interval`
	err := g.db.GetContext(ctx, &count, query, email, intervalLiteral(window))
	return count, HandleSQLError(err)
}

// CustomerAmountSum sums the amount of transactions for email within
// the last `window`.
func (g *Gateway) CustomerAmountSum(ctx context.Context, email string, window time.Duration) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, velocityQueryTimeout)
	defer cancel()
	defer g.observe("customer_amount_sum", time.Now())

	var sum sql.NullString
	query := `SELECT COALESCE(SUM(amount), 0)::text FROM transactions WHERE customer_email=$1 AND timestamp > now() - $2::interval`
	err := g.db.GetContext(ctx, &sum, query, email, intervalLiteral(window))
	if err != nil {
		return decimal.Zero, HandleSQLError(err)
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	d, perr := decimal.NewFromString(sum.String)
	if perr != nil {
		return decimal.Zero, pkgerrors.ErrDatabase.Wrap(perr)
	}
	return d, nil
}

// IPTxCount returns the number of transactions from ip within the last
// `window`.
func (g *Gateway) IPTxCount(ctx context.Context, ip string, window time.Duration) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, velocityQueryTimeout)
	defer cancel()
	defer g.observe("ip_tx_count", time.Now())

	var count int64
	query := `SELECT COUNT(*) FROM transactions WHERE customer_ip=$1 AND timestamp > now() - $2::interval`
	err := g.db.GetContext(ctx, &count, query, ip, intervalLiteral(window))
	return count, HandleSQLError(err)
}

func intervalLiteral(d time.Duration) string {
	return fmt.Sprintf("%d seconds", int64(d.Seconds()))
}
