package storage

import (
	"context"
	"time"

	"commodity-feature-lab/internal/domain"
)

// ObservationStore provides access to normalized market observations and the
// daily aggregates derived from them. The feature pipeline only reads from
// it; InsertBulk exists for ingestion tooling and test fixtures.
//
// Outlier-flagged observations never contribute to any query result below
// except the raw insert path. Entity classification is not this store's
// concern — the daily aggregator filters unclassified entities using the
// metadata store.
type ObservationStore interface {
	// InsertBulk adds multiple observations. Fails the entire batch on any
	// duplicate (entity_id, group_id, item_id, observed_at).
	InsertBulk(ctx context.Context, obs []*domain.RawObservation) error

	// DataExtent returns the earliest and latest observation dates (UTC
	// midnights) for a group. ok is false when the group has no usable data.
	DataExtent(ctx context.Context, groupID string) (start, end time.Time, ok bool, err error)

	// DailyAggregates returns per-(entity, date) aggregates for a group
	// within [start, end] (inclusive, UTC midnights), sorted by
	// (entity_id, date). Only days with at least one contributing scan are
	// returned; the date spine is the aggregator's job.
	DailyAggregates(ctx context.Context, groupID string, start, end time.Time) ([]*domain.DailySeriesPoint, error)

	// ObservationCountsByEntity returns total non-outlier observation counts
	// per entity in a group. Used for cold-start detection.
	ObservationCountsByEntity(ctx context.Context, groupID string) (map[int64]int, error)

	// ItemCountsByEntity returns the number of distinct items contributing
	// to each entity's series in a group.
	ItemCountsByEntity(ctx context.Context, groupID string) (map[int64]int, error)
}

// EntityMetadataStore provides access to static entity classification.
type EntityMetadataStore interface {
	// Insert adds a metadata record. Returns ErrDuplicateKey if entity_id exists.
	Insert(ctx context.Context, m *domain.EntityMetadata) error

	// GetByID retrieves metadata for one entity. Returns ErrNotFound if absent.
	GetByID(ctx context.Context, entityID int64) (*domain.EntityMetadata, error)

	// GetAll retrieves all metadata records keyed by entity_id.
	GetAll(ctx context.Context) (map[int64]*domain.EntityMetadata, error)
}

// EventStore provides access to the event catalog and impact records.
//
// AnnouncedEvents is the first leakage-guard layer: events whose announcement
// timestamp is unknown are stored but never returned to feature code.
type EventStore interface {
	// InsertEvents adds events. Returns ErrDuplicateKey on a duplicate slug.
	InsertEvents(ctx context.Context, events []*domain.EventRecord) error

	// InsertEntityImpacts adds per-entity impact records.
	InsertEntityImpacts(ctx context.Context, impacts []*domain.EntityImpact) error

	// InsertCategoryImpacts adds per-category impact records.
	InsertCategoryImpacts(ctx context.Context, impacts []*domain.CategoryImpact) error

	// AnnouncedEvents returns events with a non-nil announcement timestamp,
	// sorted by start_date then event_id. Events without one are
	// unconditionally excluded (leakage guard, layer 1).
	AnnouncedEvents(ctx context.Context) ([]*domain.EventRecord, error)

	// EntityImpacts returns per-entity impact records keyed by event_id.
	EntityImpacts(ctx context.Context) (map[int64][]*domain.EntityImpact, error)

	// CategoryImpacts returns per-category impact records keyed by event_id.
	CategoryImpacts(ctx context.Context) (map[int64][]*domain.CategoryImpact, error)
}
