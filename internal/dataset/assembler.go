// Package dataset assembles the per-group feature tables and writes the
// training, inference, and manifest artifacts.
// Flow per group: aggregation → window features → enrichment → event
// features → calendar features → quality check → artifacts.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"commodity-feature-lab/internal/aggregation"
	"commodity-feature-lab/internal/domain"
	"commodity-feature-lab/internal/features"
	"commodity-feature-lab/internal/idhash"
	"commodity-feature-lab/internal/observability"
	"commodity-feature-lab/internal/quality"
	"commodity-feature-lab/internal/registry"
	"commodity-feature-lab/internal/storage"
)

// Builder coordinates the feature build across groups. Groups are isolated:
// one group's storage failure is recorded and skipped, never aborting the
// others. The only fatal per-group error is a schema violation, which means
// the pipeline itself is broken.
type Builder struct {
	observations storage.ObservationStore
	metadata     storage.EntityMetadataStore
	events       storage.EventStore

	registry *registry.Registry
	cfg      domain.FeatureConfig

	metrics   *observability.Metrics
	outputDir string
	verbose   bool
	now       func() time.Time // Injectable clock for deterministic output
}

// Options for creating a Builder.
type Options struct {
	// Required stores
	ObservationStore    storage.ObservationStore
	EntityMetadataStore storage.EntityMetadataStore
	EventStore          storage.EventStore

	// Schema and feature configuration
	Registry *registry.Registry
	Config   domain.FeatureConfig

	// Options
	Metrics   *observability.Metrics // nil disables instrumentation
	OutputDir string
	Verbose   bool
}

// New creates a new Builder.
func New(opts Options) *Builder {
	return &Builder{
		observations: opts.ObservationStore,
		metadata:     opts.EntityMetadataStore,
		events:       opts.EventStore,
		registry:     opts.Registry,
		cfg:          opts.Config,
		metrics:      opts.Metrics,
		outputDir:    opts.OutputDir,
		verbose:      opts.Verbose,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// GroupResult describes one group's artifacts.
type GroupResult struct {
	GroupID       string
	TrainingFile  string
	InferenceFile string
	ManifestFile  string
	TrainingRows  int
	InferenceRows int
	Report        *quality.Report
}

// BuildResult contains results from a full build run.
type BuildResult struct {
	RunID           string
	GroupsProcessed int
	GroupsSkipped   int
	TrainingRows    int
	InferenceRows   int
	Groups          []*GroupResult
	Errors          []string
}

// lookups holds the cross-group reference data, loaded once per build.
type lookups struct {
	metadata        map[int64]*domain.EntityMetadata
	events          []*domain.EventRecord
	entityImpacts   map[int64][]*domain.EntityImpact
	categoryImpacts map[int64][]*domain.CategoryImpact
	anchor          *time.Time
}

// Build assembles feature tables for every group over [start, end].
// Phases:
//  1. Load shared lookups (metadata, event catalog, impacts)
//  2. Build each group: aggregate, enrich, check, write artifacts
func (b *Builder) Build(ctx context.Context, groupIDs []string, start, end time.Time) (*BuildResult, error) {
	result := &BuildResult{
		RunID: idhash.ComputeRunID(groupIDs, start, end, b.registry.Names("")),
	}

	b.log("Phase 1: Loading shared lookups...")
	shared, err := b.loadLookups(ctx)
	if err != nil {
		return nil, fmt.Errorf("phase 1 (load lookups) failed: %w", err)
	}
	b.log("  %d classified entities, %d announced events", len(shared.metadata), len(shared.events))

	b.log("Phase 2: Building %d groups...", len(groupIDs))
	for _, groupID := range groupIDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		groupStart := b.now()
		gr, err := b.buildGroup(ctx, groupID, start, end, shared, result.RunID)
		if err != nil {
			// A schema violation means the pipeline produced a row it
			// cannot legally render. Nothing downstream is trustworthy.
			if errors.Is(err, registry.ErrSchemaViolation) {
				b.recordBuild("schema_violation")
				return nil, fmt.Errorf("build group %s: %w", groupID, err)
			}
			result.GroupsSkipped++
			result.Errors = append(result.Errors, fmt.Sprintf("build group %s: %v", groupID, err))
			b.recordSkip("error")
			continue
		}
		if gr == nil {
			result.GroupsSkipped++
			b.log("  Group %s: no data in window, skipped", groupID)
			b.recordSkip("no_data")
			continue
		}

		result.GroupsProcessed++
		result.TrainingRows += gr.TrainingRows
		result.InferenceRows += gr.InferenceRows
		result.Groups = append(result.Groups, gr)

		if b.metrics != nil {
			b.metrics.GroupsProcessed.Inc()
			b.metrics.TrainingRows.Add(float64(gr.TrainingRows))
			b.metrics.InferenceRows.Add(float64(gr.InferenceRows))
			b.metrics.BuildDuration.WithLabelValues(groupID).Observe(b.now().Sub(groupStart).Seconds())
			b.metrics.ExcludedEntities.Add(float64(gr.Report.ExcludedEntities))
			for range gr.Report.Warnings {
				b.metrics.QualityWarnings.WithLabelValues("report").Inc()
			}
		}
		b.log("  Group %s: %d training rows, %d inference rows (%d warnings)",
			groupID, gr.TrainingRows, gr.InferenceRows, len(gr.Report.Warnings))
	}

	b.recordBuild("ok")
	if b.metrics != nil {
		b.metrics.LastSuccessfulBuild.Set(float64(b.now().Unix()))
	}
	b.log("Build completed: %d groups, %d skipped, %d training rows",
		result.GroupsProcessed, result.GroupsSkipped, result.TrainingRows)

	return result, nil
}

func (b *Builder) loadLookups(ctx context.Context) (*lookups, error) {
	metadata, err := b.metadata.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load entity metadata: %w", err)
	}
	events, err := b.events.AnnouncedEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	entityImpacts, err := b.events.EntityImpacts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load entity impacts: %w", err)
	}
	categoryImpacts, err := b.events.CategoryImpacts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load category impacts: %w", err)
	}

	return &lookups{
		metadata:        metadata,
		events:          events,
		entityImpacts:   entityImpacts,
		categoryImpacts: categoryImpacts,
		anchor:          features.AnchorDate(events),
	}, nil
}

// buildGroup assembles and writes one group. Returns (nil, nil) when the
// group has no data in the window.
func (b *Builder) buildGroup(ctx context.Context, groupID string, start, end time.Time, shared *lookups, runID string) (*GroupResult, error) {
	agg := aggregation.New(b.observations)
	aggRes, err := agg.Aggregate(ctx, groupID, start, end, shared.metadata)
	if err != nil {
		return nil, err
	}
	if len(aggRes.Points) == 0 {
		return nil, nil
	}

	obsCounts, err := b.observations.ObservationCountsByEntity(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("observation counts: %w", err)
	}
	itemCounts, err := b.observations.ItemCountsByEntity(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("item counts: %w", err)
	}

	rows := features.ComputeWindows(aggRes.Points, b.cfg)
	rows = features.EnrichEntities(rows, shared.metadata, obsCounts, itemCounts, b.cfg.ColdStartThreshold)
	rows = features.ComputeEventFeatures(rows, shared.events, shared.entityImpacts, shared.categoryImpacts)
	rows = features.ComputeCalendar(rows, shared.anchor)

	report, err := quality.Check(groupID, rows, b.registry, aggRes.ExcludedEntities)
	if err != nil {
		return nil, err
	}
	for _, w := range report.Warnings {
		log.Printf("[dataset] group %s quality: %s", groupID, w)
	}

	inference := LatestRows(rows)

	trainingCSV, err := RenderCSV(rows, b.registry.TrainingColumns())
	if err != nil {
		return nil, err
	}
	inferenceCSV, err := RenderCSV(inference, b.registry.InferenceColumns())
	if err != nil {
		return nil, err
	}

	gr := &GroupResult{
		GroupID:       groupID,
		TrainingFile:  trainingFileName(groupID, aggRes.Start, aggRes.End),
		InferenceFile: inferenceFileName(groupID, aggRes.End),
		ManifestFile:  manifestFileName(groupID, aggRes.End),
		TrainingRows:  len(rows),
		InferenceRows: len(inference),
		Report:        report,
	}

	manifest := newManifest(runID, groupID, b.now(), aggRes.Start, aggRes.End, b.cfg)
	manifest.Quality = report
	manifest.Files = []FileEntry{
		{Name: gr.TrainingFile, Rows: gr.TrainingRows, SHA256: idhash.ComputeFileDigest([]byte(trainingCSV))},
		{Name: gr.InferenceFile, Rows: gr.InferenceRows, SHA256: idhash.ComputeFileDigest([]byte(inferenceCSV))},
	}
	manifestJSON, err := manifest.Render()
	if err != nil {
		return nil, fmt.Errorf("render manifest: %w", err)
	}

	if err := b.writeArtifact("training", gr.TrainingFile, []byte(trainingCSV)); err != nil {
		return nil, err
	}
	if err := b.writeArtifact("inference", gr.InferenceFile, []byte(inferenceCSV)); err != nil {
		return nil, err
	}
	if err := b.writeArtifact("manifests", gr.ManifestFile, manifestJSON); err != nil {
		return nil, err
	}

	return gr, nil
}

func (b *Builder) writeArtifact(subdir, name string, contents []byte) error {
	dir := filepath.Join(b.outputDir, "features", subdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, contents, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func (b *Builder) recordBuild(status string) {
	if b.metrics != nil {
		b.metrics.BuildsTotal.WithLabelValues(status).Inc()
	}
}

func (b *Builder) recordSkip(reason string) {
	if b.metrics != nil {
		b.metrics.GroupsSkipped.WithLabelValues(reason).Inc()
	}
}

func (b *Builder) log(format string, args ...interface{}) {
	if b.verbose {
		log.Printf("[dataset] "+format, args...)
	}
}
