package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/dygsom/fraud-api/internal/app"
)

// Application entry point. The boot sequence and graceful shutdown
// phases live in internal/app; main only starts and stops it.
func main() {
	// Load .env ahead of viper's env binding, if present. A missing
	// file is not an error: production deployments set env vars
	// directly.
	_ = godotenv.Load()

	application, err := app.New()
	if err != nil {
		log.Fatalf("failed to create application: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("application error: %v", err)
	}
}
