package httpapi

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dygsom/fraud-api/internal/auth"
	"github.com/dygsom/fraud-api/internal/config"
	"github.com/dygsom/fraud-api/internal/domain/apikey"
	"github.com/dygsom/fraud-api/internal/domain/decision"
	"github.com/dygsom/fraud-api/internal/domain/transaction"
	"github.com/dygsom/fraud-api/internal/domain/velocity"
	"github.com/dygsom/fraud-api/internal/model"
	"github.com/dygsom/fraud-api/internal/platform/crypto"
	"github.com/dygsom/fraud-api/internal/ratelimiter"
	"github.com/dygsom/fraud-api/internal/scoring"
	pkgerrors "github.com/dygsom/fraud-api/pkg/errors"
	"github.com/dygsom/fraud-api/pkg/validator"
)

const testSalt = "pepper"

type fakeAuthGateway struct {
	keys map[string]apikey.APIKey
}

func (f *fakeAuthGateway) FindAPIKeyByHash(ctx context.Context, hash string) (apikey.APIKey, error) {
	key, ok := f.keys[hash]
	if !ok {
		return apikey.APIKey{}, pkgerrors.ErrNotFound
	}
	return key, nil
}

func (f *fakeAuthGateway) IncrementAPIKeyUsage(ctx context.Context, id string) error { return nil }

type fakeVelocitySource struct{ snap velocity.Snapshot }

func (f fakeVelocitySource) Get(ctx context.Context, email, ip string, now time.Time) (velocity.Snapshot, error) {
	return f.snap, nil
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

type fakePinger struct{ err error }

func (f fakePinger) Ping(ctx context.Context) error { return f.err }

const validBody = `{
  "transaction_id": "tx_e2e_1",
  "amount": 150.50,
  "currency": "PEN",
  "customer": {
    "email": "Juan.Perez@Gmail.com",
    "phone": "+51 987 654 321",
    "ip": "181.67.45.123"
  },
  "payment": {
    "type": "credit_card",
    "bin": "411111",
    "last4": "1111",
    "brand": "Visa"
  }
}`

// testServer wires a full router with a single active API key
// ("dygsom_testkey", with the given rate_limit) over in-memory fakes, mirroring the
// literal scenarios in spec.md §8.
type testServer struct {
	mux       http.Handler
	persister *fakePersister
	limiter   *ratelimiter.Limiter
}

func newTestServer(t *testing.T, rateLimit int) *testServer {
	t.Helper()

	gw := &fakeAuthGateway{keys: map[string]apikey.APIKey{
		crypto.HashAPIKey("dygsom_testkey", testSalt): {
			ID: "key-1", TenantID: "tenant-a", IsActive: true, RateLimit: rateLimit,
		},
	}}
	gate, err := auth.New(config.AuthConfig{APIKeySalt: testSalt, AuthCacheTTL: time.Second}, gw, zap.NewNop(), 16)
	require.NoError(t, err)

	persister := &fakePersister{}
	orch := scoring.New(fakeVelocitySource{snap: velocity.Empty()}, persister, model.New(""), decision.DefaultThresholds)
	handlers := NewHandlers(orch, validator.New(), zap.NewNop(), fakePinger{}, fakePinger{})

	// No in-memory Redis test double exists in the pack (see
	// ratelimiter_test.go), so the limiter runs its fail-open nil-client
	// path here: rateLimit configures the key's quota but every request
	// is allowed, same as ratelimiter's own test suite.
	limiter := ratelimiter.New(nil)
	router := NewRouter(RouterConfig{
		Config:   &config.ServerConfig{RequestTimeout: 5 * time.Second, EnableCORS: false},
		Handlers: handlers,
		Gate:     gate,
		Limiter:  limiter,
		Logger:   zap.NewNop(),
	})

	return &testServer{mux: router, persister: persister, limiter: limiter}
}

func (s *testServer) do(method, path, apiKey, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec
}

func TestScoreEndpoint_LowRiskApproval(t *testing.T) {
	srv := newTestServer(t, 100)

	rec := srv.do(http.MethodPost, "/api/v1/fraud/score", "dygsom_testkey", validBody)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Len(t, srv.persister.inserted, 1)
	assert.Contains(t, rec.Body.String(), `"risk_level":"LOW"`)
	assert.Contains(t, rec.Body.String(), `"recommendation":"APPROVE"`)
}

func TestScoreEndpoint_MissingAPIKeyRejected(t *testing.T) {
	srv := newTestServer(t, 100)

	rec := srv.do(http.MethodPost, "/api/v1/fraud/score", "", validBody)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, srv.persister.inserted)
}

func TestScoreEndpoint_UnknownAPIKeyRejected(t *testing.T) {
	srv := newTestServer(t, 100)

	rec := srv.do(http.MethodPost, "/api/v1/fraud/score", "dygsom_nope", validBody)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, srv.persister.inserted)
}

func TestScoreEndpoint_PrivateIPRejected(t *testing.T) {
	srv := newTestServer(t, 100)
	body := bytes.Replace([]byte(validBody), []byte("181.67.45.123"), []byte("10.0.0.1"), 1)

	rec := srv.do(http.MethodPost, "/api/v1/fraud/score", "dygsom_testkey", string(body))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "public")
	assert.Empty(t, srv.persister.inserted)
}

func TestScoreEndpoint_InvalidJSONRejected(t *testing.T) {
	srv := newTestServer(t, 100)

	rec := srv.do(http.MethodPost, "/api/v1/fraud/score", "dygsom_testkey", `not json`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScoreEndpoint_AmountOutOfRangeRejected(t *testing.T) {
	srv := newTestServer(t, 100)
	body := bytes.Replace([]byte(validBody), []byte("150.50"), []byte("0.50"), 1)

	rec := srv.do(http.MethodPost, "/api/v1/fraud/score", "dygsom_testkey", string(body))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScoreEndpoint_PersistenceFailureReturns500AndNoBodyLeak(t *testing.T) {
	srv := newTestServer(t, 100)
	srv.persister.err = pkgerrors.ErrPersistence

	rec := srv.do(http.MethodPost, "/api/v1/fraud/score", "dygsom_testkey", validBody)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "fraud_score")
}

func TestHealth_NeverTouchesADependency(t *testing.T) {
	srv := newTestServer(t, 100)

	rec := srv.do(http.MethodGet, "/health", "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"healthy"`)
}

func TestReady_ReportsUnavailableWhenDatabaseDown(t *testing.T) {
	gw := &fakeAuthGateway{keys: map[string]apikey.APIKey{}}
	gate, err := auth.New(config.AuthConfig{APIKeySalt: testSalt, AuthCacheTTL: time.Second}, gw, zap.NewNop(), 16)
	require.NoError(t, err)

	orch := scoring.New(fakeVelocitySource{snap: velocity.Empty()}, &fakePersister{}, model.New(""), decision.DefaultThresholds)
	handlers := NewHandlers(orch, validator.New(), zap.NewNop(), fakePinger{err: assert.AnError}, fakePinger{})

	router := NewRouter(RouterConfig{
		Config:   &config.ServerConfig{RequestTimeout: 5 * time.Second},
		Handlers: handlers,
		Gate:     gate,
		Limiter:  ratelimiter.New(nil),
		Logger:   zap.NewNop(),
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestScoreEndpoint_DecimalAmountRoundTrips(t *testing.T) {
	srv := newTestServer(t, 100)

	rec := srv.do(http.MethodPost, "/api/v1/fraud/score", "dygsom_testkey", validBody)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, srv.persister.inserted, 1)
	assert.True(t, srv.persister.inserted[0].Amount.Equal(decimal.NewFromFloat(150.50)))
}
