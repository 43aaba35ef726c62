package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/dygsom/fraud-api/internal/config"
	"github.com/dygsom/fraud-api/internal/store/postgres"
)

func main() {
	var dir string
	flag.StringVar(&dir, "dir", "", "migration source directory (defaults to the configured database.migration_path)")
	flag.Parse()

	cfg := config.MustLoad("")
	if dir == "" {
		dir = cfg.Database.MigrationPath
	}

	if cfg.Database.URL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	fmt.Printf("running migrations from %s\n", dir)
	if err := postgres.Migrate(cfg.Database.URL, dir); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	fmt.Println("migrations applied")
	os.Exit(0)
}
