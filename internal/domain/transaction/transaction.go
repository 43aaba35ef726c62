// Package transaction holds the Transaction input DTO and its persisted
// record, and the struct-tag validation contract for the former.
package transaction

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var errAmountOutOfRange = errors.New("amount must be between 1.00 and 1,000,000.00")

// Customer is the customer block of an incoming transaction.
type Customer struct {
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"required,phone_digits"`
	IP    string `json:"ip" validate:"required,ipv4,public_ipv4"`
}

// Payment is the payment block of an incoming transaction.
type Payment struct {
	Type   string `json:"type" validate:"required,oneof=credit_card debit_card"`
	BIN    string `json:"bin" validate:"required,bin"`
	Last4  string `json:"last4" validate:"required,last4"`
	Brand  string `json:"brand" validate:"required,card_brand"`
}

// MerchantCategory enumerates the categorical indicator used by the
// feature extractor. It defaults to "ecommerce" when omitted.
type MerchantCategory string

const (
	MerchantRetail    MerchantCategory = "retail"
	MerchantEcommerce MerchantCategory = "ecommerce"
	MerchantServices  MerchantCategory = "services"
)

// Transaction is the validated, external-facing input to the scoring
// hot path. BusinessID is the caller-supplied idempotency identifier,
// distinct from the internal UUID assigned at persistence.
type Transaction struct {
	BusinessID       string           `json:"transaction_id" validate:"required,min=3,max=100,alphanum_dash"`
	// Amount range (1.00 <= amount <= 1,000,000.00) is enforced by
	// ValidateAmount rather than a struct tag: the validator library has
	// no first-class decimal.Decimal comparison.
	Amount           decimal.Decimal  `json:"amount" validate:"required"`
	Currency         string           `json:"currency" validate:"required,currency"`
	Timestamp        time.Time        `json:"timestamp"`
	Customer         Customer         `json:"customer" validate:"required"`
	Payment          Payment          `json:"payment" validate:"required"`
	MerchantCategory MerchantCategory `json:"merchant_category"`
}

// Normalize applies the defaulting and canonicalization rules that
// aren't expressible as validator struct tags: timestamp defaulting,
// email lowercasing, merchant-category defaulting.
func (t *Transaction) Normalize(now time.Time) {
	if t.Timestamp.IsZero() {
		t.Timestamp = now
	} else {
		t.Timestamp = t.Timestamp.UTC()
	}
	t.Customer.Email = normalizeEmail(t.Customer.Email)
	if t.MerchantCategory == "" {
		t.MerchantCategory = MerchantEcommerce
	}
}

var (
	minAmount = decimal.NewFromFloat(1.00)
	maxAmount = decimal.NewFromFloat(1000000.00)
)

// ValidateAmount enforces the 1.00 <= amount <= 1,000,000.00 range and
// rounds to 2 decimal places, per the monetary-amount invariant.
func (t *Transaction) ValidateAmount() error {
	t.Amount = t.Amount.Round(2)
	if t.Amount.LessThan(minAmount) || t.Amount.GreaterThan(maxAmount) {
		return errAmountOutOfRange
	}
	return nil
}

func normalizeEmail(email string) string {
	out := make([]byte, len(email))
	for i := 0; i < len(email); i++ {
		c := email[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}

// Record is the persisted transaction row: the input fields plus the
// scoring outcome. It is created once and never mutated.
type Record struct {
	ID               string           `db:"id" json:"id"`
	BusinessID       string           `db:"business_id" json:"transaction_id"`
	Amount           decimal.Decimal  `db:"amount" json:"amount"`
	Currency         string           `db:"currency" json:"currency"`
	Timestamp        time.Time        `db:"timestamp" json:"timestamp"`
	CustomerEmail    string           `db:"customer_email" json:"customer_email"`
	CustomerPhone    string           `db:"customer_phone" json:"customer_phone"`
	CustomerIP       string           `db:"customer_ip" json:"customer_ip"`
	PaymentType      string           `db:"payment_type" json:"payment_type"`
	PaymentBIN       string           `db:"payment_bin" json:"payment_bin"`
	PaymentLast4     string           `db:"payment_last4" json:"payment_last4"`
	PaymentBrand     string           `db:"payment_brand" json:"payment_brand"`
	MerchantCategory string           `db:"merchant_category" json:"merchant_category"`
	FraudScore       float64          `db:"fraud_score" json:"fraud_score"`
	RiskLevel        string           `db:"risk_level" json:"risk_level"`
	Decision         string           `db:"decision" json:"decision"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
}

// NewRecord builds a Record from a validated Transaction and a scoring
// outcome. id is the internal UUID assigned by the orchestrator.
func NewRecord(id string, tx Transaction, fraudScore float64, riskLevel, decision string, createdAt time.Time) Record {
	return Record{
		ID:               id,
		BusinessID:       tx.BusinessID,
		Amount:           tx.Amount,
		Currency:         tx.Currency,
		Timestamp:        tx.Timestamp,
		CustomerEmail:    tx.Customer.Email,
		CustomerPhone:    tx.Customer.Phone,
		CustomerIP:       tx.Customer.IP,
		PaymentType:      tx.Payment.Type,
		PaymentBIN:       tx.Payment.BIN,
		PaymentLast4:     tx.Payment.Last4,
		PaymentBrand:     tx.Payment.Brand,
		MerchantCategory: string(tx.MerchantCategory),
		FraudScore:       fraudScore,
		RiskLevel:        riskLevel,
		Decision:         decision,
		CreatedAt:        createdAt,
	}
}
