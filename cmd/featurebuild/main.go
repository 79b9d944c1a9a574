package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"commodity-feature-lab/internal/dataset"
	"commodity-feature-lab/internal/domain"
	"commodity-feature-lab/internal/observability"
	"commodity-feature-lab/internal/registry"
	"commodity-feature-lab/internal/storage"
	chstore "commodity-feature-lab/internal/storage/clickhouse"
	"commodity-feature-lab/internal/storage/memory"
	"commodity-feature-lab/internal/storage/migrations"
	pgstore "commodity-feature-lab/internal/storage/postgres"
)

func main() {
	// Parse flags (env vars as defaults)
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage with demo fixtures")
	groups := flag.String("groups", "standard", "Comma-separated market group slugs to build")
	startStr := flag.String("start", "", "Window start date (YYYY-MM-DD); defaults to end minus training lookback")
	endStr := flag.String("end", "", "Window end date (YYYY-MM-DD); defaults to today")
	outputDir := flag.String("output-dir", "output", "Output directory for feature artifacts")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address (empty disables)")
	lagDays := flag.String("lag-days", "", "Comma-separated lag lookbacks in days (default 1,3,7,14,28)")
	rollingWindows := flag.String("rolling-windows", "", "Comma-separated rolling window lengths (default 7,14,28)")
	targetHorizons := flag.String("target-horizons", "", "Comma-separated target horizons in days (default 1,7,28)")
	coldStartThreshold := flag.Int("cold-start-threshold", 0, "Min observations before an entity leaves cold start (default 30)")
	verbose := flag.Bool("verbose", false, "Verbose logging")

	flag.Parse()

	logger := log.New(os.Stdout, "[featurebuild] ", log.LstdFlags)

	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for demo fixtures)")
	}

	cfg, err := buildConfig(*lagDays, *rollingWindows, *targetHorizons, *coldStartThreshold)
	if err != nil {
		logger.Fatalf("Invalid feature config: %v", err)
	}

	start, end, err := resolveWindow(*startStr, *endStr, cfg.TrainingLookbackDays)
	if err != nil {
		logger.Fatalf("Invalid window: %v", err)
	}

	groupIDs := splitList(*groups)
	if len(groupIDs) == 0 {
		logger.Fatal("--groups must name at least one group")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, cancelling build...", sig)
		cancel()
	}()

	// Create stores based on mode
	var (
		obsStore   storage.ObservationStore
		metaStore  storage.EntityMetadataStore
		eventStore storage.EventStore
	)

	if *useMemory {
		memObs := memory.NewObservationStore()
		memMeta := memory.NewEntityMetadataStore()
		memEvents := memory.NewEventStore()
		if err := loadFixtures(ctx, memObs, memMeta, memEvents); err != nil {
			logger.Fatalf("Load fixtures: %v", err)
		}
		obsStore, metaStore, eventStore = memObs, memMeta, memEvents
		logger.Println("Using in-memory storage with demo fixtures")
	} else {
		pgPool, err := pgstore.NewPool(ctx, *postgresDSN)
		if err != nil {
			logger.Fatalf("Connect to postgres: %v", err)
		}
		defer pgPool.Close()

		if err := migrations.RunPostgresMigrations(ctx, pgPool); err != nil {
			logger.Fatalf("Postgres migrations: %v", err)
		}

		chConn, err := migrations.RunClickhouseMigrations(ctx, *clickhouseDSN)
		if err != nil {
			logger.Fatalf("Clickhouse migrations: %v", err)
		}
		defer chConn.Close()

		obsStore = chstore.NewObservationStore(chConn)
		metaStore = pgstore.NewEntityMetadataStore(pgPool)
		eventStore = pgstore.NewEventStore(pgPool)
	}

	reg, err := registry.New(cfg)
	if err != nil {
		logger.Fatalf("Build feature registry: %v", err)
	}

	var metrics *observability.Metrics
	if *metricsAddr != "" {
		metrics = observability.NewMetrics("commodity_feature_lab")
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			logger.Printf("Metrics listening on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	builder := dataset.New(dataset.Options{
		ObservationStore:    obsStore,
		EntityMetadataStore: metaStore,
		EventStore:          eventStore,
		Registry:            reg,
		Config:              cfg,
		Metrics:             metrics,
		OutputDir:           *outputDir,
		Verbose:             *verbose,
	})

	result, err := builder.Build(ctx, groupIDs, start, end)
	if err != nil {
		logger.Fatalf("Build failed: %v", err)
	}

	logger.Printf("Run %s complete: %d groups built, %d skipped, %d training rows, %d inference rows",
		result.RunID, result.GroupsProcessed, result.GroupsSkipped,
		result.TrainingRows, result.InferenceRows)
	for _, g := range result.Groups {
		logger.Printf("  %s: %s (%d rows), %s (%d rows)",
			g.GroupID, g.TrainingFile, g.TrainingRows, g.InferenceFile, g.InferenceRows)
	}
	for _, e := range result.Errors {
		logger.Printf("  error: %s", e)
	}

	if len(result.Errors) > 0 {
		os.Exit(1)
	}
}

// buildConfig starts from the defaults and overrides whatever the flags set.
func buildConfig(lagDays, rollingWindows, targetHorizons string, coldStart int) (domain.FeatureConfig, error) {
	cfg := domain.DefaultFeatureConfig()

	if lagDays != "" {
		v, err := parseIntList(lagDays)
		if err != nil {
			return cfg, fmt.Errorf("lag-days: %w", err)
		}
		cfg.LagDays = v
	}
	if rollingWindows != "" {
		v, err := parseIntList(rollingWindows)
		if err != nil {
			return cfg, fmt.Errorf("rolling-windows: %w", err)
		}
		cfg.RollingWindows = v
	}
	if targetHorizons != "" {
		v, err := parseIntList(targetHorizons)
		if err != nil {
			return cfg, fmt.Errorf("target-horizons: %w", err)
		}
		cfg.TargetHorizonsDays = v
	}
	if coldStart > 0 {
		cfg.ColdStartThreshold = coldStart
	}

	return cfg, nil
}

// resolveWindow parses the requested dates. The builder clamps to the actual
// data extent per group, so a generous default window is harmless.
func resolveWindow(startStr, endStr string, lookbackDays int) (time.Time, time.Time, error) {
	end := time.Now().UTC().Truncate(24 * time.Hour)
	if endStr != "" {
		var err error
		end, err = time.Parse("2006-01-02", endStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parse end date: %w", err)
		}
	}

	start := end.AddDate(0, 0, -lookbackDays)
	if startStr != "" {
		var err error
		start, err = time.Parse("2006-01-02", startStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parse start date: %w", err)
		}
	}

	if end.Before(start) {
		return time.Time{}, time.Time{}, errors.New("end date before start date")
	}

	return start, end, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseIntList(s string) ([]int, error) {
	var out []int
	for _, part := range splitList(s) {
		v, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", part, err)
		}
		if v <= 0 {
			return nil, fmt.Errorf("value %d must be positive", v)
		}
		out = append(out, v)
	}
	return out, nil
}
