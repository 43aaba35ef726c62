package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/dygsom/fraud-api/internal/config"
	"github.com/dygsom/fraud-api/internal/domain/apikey"
	"github.com/dygsom/fraud-api/internal/platform/crypto"
	"github.com/dygsom/fraud-api/internal/store/postgres"
)

func main() {
	var (
		name      string
		tenantID  string
		rateLimit int
		ttl       time.Duration
	)
	flag.StringVar(&name, "name", "", "human-readable label for the key")
	flag.StringVar(&tenantID, "tenant", "", "tenant the key belongs to")
	flag.IntVar(&rateLimit, "rate-limit", 100, "requests per minute allowed for this key")
	flag.DurationVar(&ttl, "ttl", 0, "key lifetime (0 = never expires)")
	flag.Parse()

	if name == "" || tenantID == "" {
		log.Fatal("-name and -tenant are required")
	}

	cfg := config.MustLoad("")

	plaintext, err := crypto.GenerateAPIKey(cfg.Auth.APIKeyPrefix)
	if err != nil {
		log.Fatalf("generating key: %v", err)
	}

	now := time.Now().UTC()
	key := apikey.APIKey{
		ID:        uuid.NewString(),
		KeyHash:   crypto.HashAPIKey(plaintext, cfg.Auth.APIKeySalt),
		Name:      name,
		TenantID:  tenantID,
		RateLimit: rateLimit,
		IsActive:  true,
		CreatedAt: now,
	}
	if ttl > 0 {
		expiresAt := now.Add(ttl)
		key.ExpiresAt = &expiresAt
	}

	db, err := postgres.Open(cfg.Database)
	if err != nil {
		log.Fatalf("connecting to database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.InsertAPIKey(ctx, key); err != nil {
		log.Fatalf("inserting api key: %v", err)
	}

	fmt.Printf("api key minted for tenant %q\n", tenantID)
	fmt.Printf("id:    %s\n", key.ID)
	fmt.Printf("key:   %s\n", plaintext)
	fmt.Println("this plaintext key is shown once and is not recoverable; store it now")
}
