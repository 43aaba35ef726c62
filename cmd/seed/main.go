// Command seed populates the transactions table with synthetic history
// so the velocity aggregator and cache tier have real data to work
// against in integration tests. It is not part of the request-serving
// process.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dygsom/fraud-api/internal/config"
	"github.com/dygsom/fraud-api/internal/domain/decision"
	"github.com/dygsom/fraud-api/internal/domain/transaction"
	"github.com/dygsom/fraud-api/internal/store/postgres"
)

const (
	legitimateCount = 800
	suspiciousCount = 150
	fraudulentCount = 50
)

var (
	disposableDomains = []string{"tempmail.com", "throwaway.email", "guerrillamail.com"}
	legitimateDomains = []string{"gmail.com", "outlook.com", "yahoo.com", "hotmail.com"}

	cardBrands = map[string][]string{
		"Visa":       {"411111", "424242", "400000", "450000", "470000"},
		"Mastercard": {"555555", "540000", "530000", "520000"},
		"Amex":       {"378282", "371449", "370000"},
	}
	brandNames = []string{"Visa", "Mastercard", "Amex"}
)

func main() {
	var count int
	flag.IntVar(&count, "count", legitimateCount+suspiciousCount+fraudulentCount, "total number of synthetic transactions to insert")
	flag.Parse()

	cfg := config.MustLoad("")
	db, err := postgres.Open(cfg.Database)
	if err != nil {
		log.Fatalf("connecting to database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	scale := float64(count) / float64(legitimateCount+suspiciousCount+fraudulentCount)
	buckets := []struct {
		tier  string
		count int
	}{
		{"legitimate", int(float64(legitimateCount) * scale)},
		{"suspicious", int(float64(suspiciousCount) * scale)},
		{"fraudulent", int(float64(fraudulentCount) * scale)},
	}

	inserted := 0
	for _, b := range buckets {
		for i := 0; i < b.count; i++ {
			rec := generate(b.tier)
			if _, err := db.InsertTransaction(ctx, rec); err != nil {
				log.Printf("insert failed for %s: %v", rec.BusinessID, err)
				continue
			}
			inserted++
		}
		fmt.Printf("seeded %d %s transactions\n", b.count, b.tier)
	}

	fmt.Printf("done: %d/%d transactions inserted\n", inserted, count)
}

func generate(tier string) transaction.Record {
	var fraudScore float64
	var amount decimal.Decimal

	switch tier {
	case "legitimate":
		fraudScore = roundScore(rand.Float64() * 0.29)
		amount = randomAmount(10, 2000)
	case "suspicious":
		fraudScore = roundScore(0.30 + rand.Float64()*0.49)
		amount = randomAmount(1000, 5000)
	default: // fraudulent
		fraudScore = roundScore(0.80 + rand.Float64()*0.20)
		amount = randomAmount(3000, 10000)
	}

	outcome := decision.For(fraudScore)
	brand := brandNames[rand.Intn(len(brandNames))]
	bins := cardBrands[brand]

	ts := time.Now().UTC().Add(-time.Duration(rand.Intn(30*24*60)) * time.Minute)

	return transaction.Record{
		ID:               uuid.NewString(),
		BusinessID:       fmt.Sprintf("seed_%s", uuid.NewString()[:12]),
		Amount:           amount,
		Currency:         "PEN",
		Timestamp:        ts,
		CustomerEmail:    randomEmail(tier),
		CustomerPhone:    randomPhone(),
		CustomerIP:       randomIP(tier),
		PaymentType:      "credit_card",
		PaymentBIN:       bins[rand.Intn(len(bins))],
		PaymentLast4:     fmt.Sprintf("%04d", rand.Intn(10000)),
		PaymentBrand:     brand,
		MerchantCategory: "ecommerce",
		FraudScore:       fraudScore,
		RiskLevel:        outcome.RiskLevel,
		Decision:         outcome.Recommendation,
		CreatedAt:        time.Now().UTC(),
	}
}

func roundScore(f float64) float64 {
	return float64(int(f*10000)) / 10000
}

func randomAmount(min, max float64) decimal.Decimal {
	v := min + rand.Float64()*(max-min)
	return decimal.NewFromFloat(v).Round(2)
}

func randomEmail(tier string) string {
	username := fmt.Sprintf("user%d", rand.Intn(1_000_000))
	if tier == "fraudulent" {
		return fmt.Sprintf("%s@%s", username, disposableDomains[rand.Intn(len(disposableDomains))])
	}
	return fmt.Sprintf("%s@%s", username, legitimateDomains[rand.Intn(len(legitimateDomains))])
}

func randomPhone() string {
	return fmt.Sprintf("+519%08d", rand.Intn(100_000_000))
}

func randomIP(tier string) string {
	var octet int
	if tier == "fraudulent" {
		candidates := []int{45, 91, 185}
		octet = candidates[rand.Intn(len(candidates))]
	} else {
		candidates := []int{181, 190, 200}
		octet = candidates[rand.Intn(len(candidates))]
	}
	return fmt.Sprintf("%d.%d.%d.%d", octet, rand.Intn(256), rand.Intn(256), 1+rand.Intn(254))
}
