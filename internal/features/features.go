// Package features implements the Feature Extractor: pure, deterministic
// functions that turn a validated transaction and its velocity snapshot
// into the fixed-order numeric vector the Model Manager consumes.
//
// Each feature group is a small pure function composed by Extract, per
// the "list of pure functions (input, velocity) -> partial vector"
// shape; new features are added by registering a function and
// extending Names.
package features

import (
	"hash/fnv"
	"math"
	"strings"
	"time"

	"github.com/dygsom/fraud-api/internal/domain/transaction"
	"github.com/dygsom/fraud-api/internal/domain/velocity"
)

// Names is the fixed, ordered feature-name list. Its order is the
// model's input contract and must never change without a model reload.
var Names = []string{
	"hour_of_day", "day_of_week", "is_weekend", "is_night", "is_business_hours",
	"day_of_month", "is_month_start", "is_month_end",

	"amount", "amount_log", "amount_rounded", "amount_decimal_places",
	"is_high_value", "is_very_high_value", "amount_percentile",

	"email_length", "email_domain", "is_disposable_email", "is_gmail",
	"is_yahoo", "is_corporate_email", "email_has_numbers", "email_numeric_ratio",

	"velocity_customer_tx_count_1h", "velocity_customer_tx_count_24h", "velocity_customer_tx_count_7d",
	"velocity_customer_amount_1h", "velocity_customer_amount_24h", "velocity_customer_amount_7d",
	"velocity_ip_tx_count_1h", "velocity_ip_tx_count_24h",
	"velocity_device_tx_count_1h", "velocity_device_tx_count_24h",

	"currency_PEN", "currency_USD",
	"payment_credit_card", "payment_debit_card", "payment_digital_wallet",
	"merchant_retail", "merchant_ecommerce", "merchant_services",
}

// Vector is the fixed-cardinality feature vector, indexed by Names.
type Vector []float64

var disposableDomains = map[string]bool{
	"tempmail.com": true, "guerrillamail.com": true, "10minutemail.com": true,
	"throwaway.email": true, "mailinator.com": true, "trashmail.com": true,
	"maildrop.cc": true, "yopmail.com": true, "temp-mail.org": true,
}

var freeProviders = map[string]bool{
	"gmail.com": true, "yahoo.com": true, "hotmail.com": true, "outlook.com": true,
	"live.com": true, "aol.com": true, "icloud.com": true, "protonmail.com": true,
}

var percentileThresholds = []float64{10, 25, 50, 100, 200, 500, 1000, 2000, 5000, 10000}

// Extract builds the feature vector for tx given its velocity snapshot.
// Given the same inputs it always returns the same vector.
func Extract(tx transaction.Transaction, snap velocity.Snapshot) Vector {
	v := make(Vector, 0, len(Names))
	v = append(v, timeFeatures(tx.Timestamp)...)
	v = append(v, amountFeatures(tx.Amount.InexactFloat64())...)
	v = append(v, emailFeatures(tx.Customer.Email)...)
	v = append(v, velocityFeatures(snap)...)
	v = append(v, categoricalFeatures(tx)...)
	return v
}

func timeFeatures(ts time.Time) []float64 {
	ts = ts.UTC()
	hour := ts.Hour()
	dayOfWeek := int(ts.Weekday()+6) % 7 // Monday=0 .. Sunday=6, matching Python's weekday()
	dayOfMonth := ts.Day()
	lastDay := lastDayOfMonth(ts)

	return []float64{
		float64(hour),
		float64(dayOfWeek),
		boolF(dayOfWeek >= 5),
		boolF(hour >= 22 || hour < 6),
		boolF(hour >= 9 && hour < 18),
		float64(dayOfMonth),
		boolF(dayOfMonth <= 3),
		boolF(dayOfMonth > lastDay-3),
	}
}

// lastDayOfMonth returns the number of days in ts's month, computed via
// normalization so leap-year Februaries come out correct.
func lastDayOfMonth(ts time.Time) int {
	firstOfNextMonth := time.Date(ts.Year(), ts.Month()+1, 1, 0, 0, 0, 0, time.UTC)
	lastOfMonth := firstOfNextMonth.AddDate(0, 0, -1)
	return lastOfMonth.Day()
}

func amountFeatures(amount float64) []float64 {
	if amount < 0 {
		amount = math.Abs(amount)
	}
	log1p := math.Log1p(amount)
	decimalPlaces := decimalPlacesOf(amount)
	isRounded := decimalPlaces == 0 && (math.Mod(amount, 10) == 0 || math.Mod(amount, 100) == 0 || math.Mod(amount, 1000) == 0)

	percentile := 0.0
	for i, threshold := range percentileThresholds {
		if amount >= threshold {
			percentile = float64((i + 1) * 10)
		}
	}
	if percentile > 100 {
		percentile = 100
	}

	return []float64{
		amount,
		log1p,
		boolF(isRounded),
		float64(decimalPlaces),
		boolF(amount > 1000),
		boolF(amount > 5000),
		percentile,
	}
}

func decimalPlacesOf(amount float64) int {
	rounded := math.Round(amount*100) / 100
	cents := int64(math.Round(rounded * 100))
	if cents%100 == 0 {
		return 0
	}
	if cents%10 == 0 {
		return 1
	}
	return 2
}

func emailFeatures(email string) []float64 {
	local, domain := splitEmail(email)

	isDisposable := disposableDomains[domain]
	isGmail := domain == "gmail.com"
	isYahoo := domain == "yahoo.com"
	isCorporate := !freeProviders[domain] && !isDisposable && strings.Contains(domain, ".") && len(domain) > 5

	numDigits := 0
	for _, c := range local {
		if c >= '0' && c <= '9' {
			numDigits++
		}
	}
	numericRatio := 0.0
	if len(local) > 0 {
		numericRatio = float64(numDigits) / float64(len(local))
	}

	return []float64{
		float64(len(email)),
		float64(domainHash(domain)),
		boolF(isDisposable),
		boolF(isGmail),
		boolF(isYahoo),
		boolF(isCorporate),
		boolF(numDigits > 0),
		numericRatio,
	}
}

func splitEmail(email string) (local, domain string) {
	at := strings.IndexByte(email, '@')
	if at < 0 {
		return email, "unknown.com"
	}
	return email[:at], email[at+1:]
}

// domainHash returns a stable hash of domain, mod 10000, used as a
// categorical encoding without persisting the raw domain string.
func domainHash(domain string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(domain))
	return h.Sum32() % 10000
}

func velocityFeatures(s velocity.Snapshot) []float64 {
	return []float64{
		float64(s.CustomerTxCount1h),
		float64(s.CustomerTxCount24h),
		float64(s.CustomerTxCount7d),
		s.CustomerAmountSum1h.InexactFloat64(),
		s.CustomerAmountSum24h.InexactFloat64(),
		s.CustomerAmountSum7d.InexactFloat64(),
		float64(s.IPTxCount1h),
		float64(s.IPTxCount24h),
		float64(s.DeviceTxCount1h),
		float64(s.DeviceTxCount24h),
	}
}

func categoricalFeatures(tx transaction.Transaction) []float64 {
	return []float64{
		boolF(tx.Currency == "PEN"),
		boolF(tx.Currency == "USD"),
		boolF(tx.Payment.Type == "credit_card"),
		boolF(tx.Payment.Type == "debit_card"),
		boolF(tx.Payment.Type == "digital_wallet"),
		boolF(tx.MerchantCategory == transaction.MerchantRetail),
		boolF(tx.MerchantCategory == transaction.MerchantEcommerce),
		boolF(tx.MerchantCategory == transaction.MerchantServices),
	}
}

func boolF(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
