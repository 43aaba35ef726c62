package features

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dygsom/fraud-api/internal/domain/transaction"
	"github.com/dygsom/fraud-api/internal/domain/velocity"
)

func fixtureTx() transaction.Transaction {
	return transaction.Transaction{
		BusinessID: "tx_golden_1",
		Amount:     decimal.NewFromFloat(150.50),
		Currency:   "PEN",
		Timestamp:  time.Date(2026, time.March, 15, 14, 30, 0, 0, time.UTC),
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

// namedVector returns vec as a name->value map, asserting it matches
// Names' length so the golden fixture below stays honest about the
// feature contract.
func namedVector(t *testing.T, vec Vector) map[string]float64 {
	t.Helper()
	require.Len(t, vec, len(Names))
	out := make(map[string]float64, len(vec))
	for i, name := range Names {
		out[name] = vec[i]
	}
	return out
}

// TestExtract_GoldenFixture pins the exact feature map for a fixed input,
// per the feature-stability testable property: identical input must
// produce a byte-for-byte (here, value-for-value) identical vector.
func TestExtract_GoldenFixture(t *testing.T) {
	tx := fixtureTx()
	snap := velocity.Snapshot{
		CustomerTxCount1h:    1,
		CustomerTxCount24h:   3,
		CustomerTxCount7d:    10,
		CustomerAmountSum1h:  decimal.NewFromFloat(150.50),
		CustomerAmountSum24h: decimal.NewFromFloat(450.00),
		CustomerAmountSum7d:  decimal.NewFromFloat(1200.00),
		IPTxCount1h:          1,
		IPTxCount24h:         2,
		DeviceTxCount1h:      1,
		DeviceTxCount24h:     2,
	}

	got := namedVector(t, Extract(tx, snap))

	want := map[string]float64{
		"hour_of_day":       14,
		"day_of_week":       6, // 2026-03-15 is a Sunday
		"is_weekend":        1,
		"is_night":          0,
		"is_business_hours": 1,
		"day_of_month":      15,
		"is_month_start":    0,
		"is_month_end":      0,

		"amount":                150.5,
		"amount_rounded":        0,
		"amount_decimal_places": 1,
		"is_high_value":         0,
		"is_very_high_value":    0,

		"email_length":         20,
		"is_disposable_email":  0,
		"is_gmail":              1,
		"is_yahoo":              0,
		"is_corporate_email":   0,
		"email_has_numbers":    0,
		"email_numeric_ratio":  0,

		"velocity_customer_tx_count_1h":  1,
		"velocity_customer_tx_count_24h": 3,
		"velocity_customer_tx_count_7d":  10,
		"velocity_ip_tx_count_1h":        1,
		"velocity_ip_tx_count_24h":       2,
		"velocity_device_tx_count_1h":    1,
		"velocity_device_tx_count_24h":   2,

		"currency_PEN":           1,
		"currency_USD":           0,
		"payment_credit_card":    1,
		"payment_debit_card":     0,
		"payment_digital_wallet": 0,
		"merchant_retail":        0,
		"merchant_ecommerce":     1,
		"merchant_services":      0,
	}

	for name, value := range want {
		assert.Equalf(t, value, got[name], "feature %q", name)
	}
}

func TestExtract_IsDeterministic(t *testing.T) {
	tx := fixtureTx()
	snap := velocity.Empty()

	first := Extract(tx, snap)
	second := Extract(tx, snap)

	assert.Equal(t, first, second)
}

func TestExtract_VectorLengthMatchesNames(t *testing.T) {
	vec := Extract(fixtureTx(), velocity.Empty())
	assert.Len(t, vec, len(Names))
}

func TestAmountFeatures_HighValueFlags(t *testing.T) {
	tests := []struct {
		name           string
		amount         float64
		wantHighValue  float64
		wantVeryHigh   float64
	}{
		{"low amount", 150.50, 0, 0},
		{"just above high threshold", 1000.01, 1, 0},
		{"above very-high threshold", 5000.01, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := amountFeatures(tt.amount)
			assert.Equal(t, tt.wantHighValue, f[4], "is_high_value")
			assert.Equal(t, tt.wantVeryHigh, f[5], "is_very_high_value")
		})
	}
}

func TestEmailFeatures_DisposableDomain(t *testing.T) {
	f := emailFeatures("user@tempmail.com")
	assert.Equal(t, float64(1), f[2], "is_disposable_email")
}

func TestEmailFeatures_UnknownDomainFallsBackGracefully(t *testing.T) {
	require.NotPanics(t, func() {
		emailFeatures("not-an-email")
	})
}

func TestLastDayOfMonth_LeapFebruary(t *testing.T) {
	// 2028 is a leap year; last day of February must be 29, not 28.
	ts := time.Date(2028, time.February, 29, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, 29, lastDayOfMonth(ts))
}
