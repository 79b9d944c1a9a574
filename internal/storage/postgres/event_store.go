package postgres

import (
	"context"
	"fmt"
	"time"

	"commodity-feature-lab/internal/domain"
	"commodity-feature-lab/internal/storage"
)

// EventStore implements storage.EventStore using PostgreSQL.
type EventStore struct {
	pool *Pool
}

// NewEventStore creates a new EventStore.
func NewEventStore(pool *Pool) *EventStore {
	return &EventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.EventStore = (*EventStore)(nil)

// InsertEvents adds events. Returns ErrDuplicateKey on a duplicate slug or
// event_id. Event IDs are caller-assigned so impact records can reference
// them before insertion.
func (s *EventStore) InsertEvents(ctx context.Context, events []*domain.EventRecord) error {
	for _, e := range events {
		if e == nil || e.Slug == "" || e.EventID == 0 || !e.Severity.IsValid() {
			return storage.ErrInvalidInput
		}
	}

	query := `
		INSERT INTO events (
			event_id, slug, display_name, event_type, severity,
			start_date, end_date, announced_at, is_anchor, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	for _, e := range events {
		_, err := s.pool.Exec(ctx, query,
			e.EventID,
			e.Slug,
			e.DisplayName,
			e.EventType,
			string(e.Severity),
			e.StartDate,
			e.EndDate,
			e.AnnouncedAt,
			e.IsAnchor,
			e.Notes,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert event %s: %w", e.Slug, err)
		}
	}
	return nil
}

// InsertEntityImpacts adds per-entity impact records.
func (s *EventStore) InsertEntityImpacts(ctx context.Context, impacts []*domain.EntityImpact) error {
	for _, im := range impacts {
		if im == nil || !im.Direction.IsValid() {
			return storage.ErrInvalidInput
		}
	}

	query := `
		INSERT INTO event_entity_impacts (event_id, entity_id, direction, lag_days, duration_days)
		VALUES ($1, $2, $3, $4, $5)
	`

	for _, im := range impacts {
		_, err := s.pool.Exec(ctx, query,
			im.EventID, im.EntityID, string(im.Direction), im.LagDays, im.DurationDays,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert entity impact: %w", err)
		}
	}
	return nil
}

// InsertCategoryImpacts adds per-category impact records.
func (s *EventStore) InsertCategoryImpacts(ctx context.Context, impacts []*domain.CategoryImpact) error {
	for _, im := range impacts {
		if im == nil || im.Category == "" || !im.Direction.IsValid() {
			return storage.ErrInvalidInput
		}
	}

	query := `
		INSERT INTO event_category_impacts (
			event_id, category, direction, typical_magnitude, lag_days, duration_days
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	for _, im := range impacts {
		_, err := s.pool.Exec(ctx, query,
			im.EventID, im.Category, string(im.Direction),
			im.TypicalMagnitude, im.LagDays, im.DurationDays,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert category impact: %w", err)
		}
	}
	return nil
}

// AnnouncedEvents returns events with a non-nil announcement timestamp,
// sorted by start_date then event_id. The WHERE clause is the first
// leakage-guard layer: unannounced events never leave this store.
func (s *EventStore) AnnouncedEvents(ctx context.Context) ([]*domain.EventRecord, error) {
	query := `
		SELECT event_id, slug, display_name, event_type, severity,
		       start_date, end_date, announced_at, is_anchor, notes
		FROM events
		WHERE announced_at IS NOT NULL
		ORDER BY start_date, event_id
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query announced events: %w", err)
	}
	defer rows.Close()

	var events []*domain.EventRecord
	for rows.Next() {
		var e domain.EventRecord
		var severity string
		err := rows.Scan(
			&e.EventID, &e.Slug, &e.DisplayName, &e.EventType, &severity,
			&e.StartDate, &e.EndDate, &e.AnnouncedAt, &e.IsAnchor, &e.Notes,
		)
		if err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		e.Severity = domain.Severity(severity)
		normalizeEventDates(&e)
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event rows: %w", err)
	}

	return events, nil
}

// EntityImpacts returns per-entity impact records keyed by event_id.
func (s *EventStore) EntityImpacts(ctx context.Context) (map[int64][]*domain.EntityImpact, error) {
	query := `
		SELECT event_id, entity_id, direction, lag_days, duration_days
		FROM event_entity_impacts
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query entity impacts: %w", err)
	}
	defer rows.Close()

	result := make(map[int64][]*domain.EntityImpact)
	for rows.Next() {
		var im domain.EntityImpact
		var direction string
		err := rows.Scan(&im.EventID, &im.EntityID, &direction, &im.LagDays, &im.DurationDays)
		if err != nil {
			return nil, fmt.Errorf("scan entity impact row: %w", err)
		}
		im.Direction = domain.ImpactDirection(direction)
		result[im.EventID] = append(result[im.EventID], &im)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entity impact rows: %w", err)
	}

	return result, nil
}

// CategoryImpacts returns per-category impact records keyed by event_id.
func (s *EventStore) CategoryImpacts(ctx context.Context) (map[int64][]*domain.CategoryImpact, error) {
	query := `
		SELECT event_id, category, direction, typical_magnitude, lag_days, duration_days
		FROM event_category_impacts
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query category impacts: %w", err)
	}
	defer rows.Close()

	result := make(map[int64][]*domain.CategoryImpact)
	for rows.Next() {
		var im domain.CategoryImpact
		var direction string
		err := rows.Scan(&im.EventID, &im.Category, &direction,
			&im.TypicalMagnitude, &im.LagDays, &im.DurationDays)
		if err != nil {
			return nil, fmt.Errorf("scan category impact row: %w", err)
		}
		im.Direction = domain.ImpactDirection(direction)
		result[im.EventID] = append(result[im.EventID], &im)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category impact rows: %w", err)
	}

	return result, nil
}

// normalizeEventDates forces DATE columns to UTC midnight. pgx scans DATE
// into a time.Time whose location depends on the connection; the pipeline
// compares dates by equality, so they must be canonical.
func normalizeEventDates(e *domain.EventRecord) {
	e.StartDate = toUTCDate(e.StartDate)
	if e.EndDate != nil {
		d := toUTCDate(*e.EndDate)
		e.EndDate = &d
	}
	if e.AnnouncedAt != nil {
		t := e.AnnouncedAt.UTC()
		e.AnnouncedAt = &t
	}
}

func toUTCDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
