package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/safar/storefront/internal/config"
	"github.com/safar/storefront/internal/database"
)

func main() {
	flag.Parse()
	if flag.NArg() < 1 {
		log.Fatal("Usage: go run scripts/run_migrations.go [up|down]")
	}

	direction := flag.Arg(0)
	if direction != database.MigrateUp && direction != database.MigrateDown {
		log.Fatal("Direction must be 'up' or 'down'")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}

	db, err := database.NewConnection(&cfg.Storage)
	if err != nil {
		log.Fatalf("Connect to %s storage: %v", cfg.Storage.Driver, err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	n, err := database.Migrate(ctx, db, direction)
	if err != nil {
		log.Fatalf("Run migrations: %v", err)
	}

	log.Printf("Successfully ran %d migration(s) %s on %s", n, direction, cfg.Storage.Driver)
}
