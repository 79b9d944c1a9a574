package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"commodity-feature-lab/internal/events"
	"commodity-feature-lab/internal/storage/migrations"
	pgstore "commodity-feature-lab/internal/storage/postgres"
)

func main() {
	// Parse flags (env vars as defaults)
	eventsPath := flag.String("events", "", "Path to events CSV (required)")
	entityImpactsPath := flag.String("entity-impacts", "", "Path to entity impacts CSV (optional)")
	categoryImpactsPath := flag.String("category-impacts", "", "Path to category impacts CSV (optional)")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	dryRun := flag.Bool("dry-run", false, "Validate the catalog without writing to the database")

	flag.Parse()

	logger := log.New(os.Stdout, "[seedevents] ", log.LstdFlags)

	if *eventsPath == "" {
		logger.Fatal("--events is required")
	}
	if !*dryRun && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (or use --dry-run to validate only)")
	}

	catalog, err := events.LoadCatalog(*eventsPath, *entityImpactsPath, *categoryImpactsPath)
	if err != nil {
		logger.Fatalf("Load catalog: %v", err)
	}
	logger.Printf("Loaded %d events, %d entity impacts, %d category impacts",
		len(catalog.Events), len(catalog.EntityImpacts), len(catalog.CategoryImpacts))

	if *dryRun {
		logger.Println("Dry run, nothing written")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, aborting...", sig)
		cancel()
	}()

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		logger.Fatalf("Connect to postgres: %v", err)
	}
	defer pool.Close()

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		logger.Fatalf("Postgres migrations: %v", err)
	}

	store := pgstore.NewEventStore(pool)
	if err := events.Seed(ctx, store, catalog); err != nil {
		logger.Fatalf("Seed event catalog: %v", err)
	}

	logger.Println("Event catalog seeded")
}
