// Package events loads the event catalog from CSV files and seeds it into
// an event store. The catalog is maintained by hand, so the loader
// validates aggressively and reports the offending line on every error.
package events

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"commodity-feature-lab/internal/domain"
	"commodity-feature-lab/internal/storage"
)

// Catalog is a parsed, validated event catalog ready for seeding.
type Catalog struct {
	Events          []*domain.EventRecord
	EntityImpacts   []*domain.EntityImpact
	CategoryImpacts []*domain.CategoryImpact
}

// LoadCatalog parses the three catalog files. The impact paths may be empty
// when a catalog ships without impact annotations.
//
// events.csv columns:
//
//	slug,display_name,event_type,severity,start_date,end_date,announced_at,is_anchor,notes
//
// entity_impacts.csv columns:
//
//	event_slug,entity_id,direction,lag_days,duration_days
//
// category_impacts.csv columns:
//
//	event_slug,category,direction,typical_magnitude,lag_days,duration_days
func LoadCatalog(eventsPath, entityImpactsPath, categoryImpactsPath string) (*Catalog, error) {
	events, slugIDs, err := loadEvents(eventsPath)
	if err != nil {
		return nil, err
	}

	catalog := &Catalog{Events: events}

	if entityImpactsPath != "" {
		catalog.EntityImpacts, err = loadEntityImpacts(entityImpactsPath, slugIDs)
		if err != nil {
			return nil, err
		}
	}
	if categoryImpactsPath != "" {
		catalog.CategoryImpacts, err = loadCategoryImpacts(categoryImpactsPath, slugIDs)
		if err != nil {
			return nil, err
		}
	}

	return catalog, nil
}

// Seed inserts a catalog into the event store.
func Seed(ctx context.Context, store storage.EventStore, c *Catalog) error {
	if err := store.InsertEvents(ctx, c.Events); err != nil {
		return fmt.Errorf("seed events: %w", err)
	}
	if len(c.EntityImpacts) > 0 {
		if err := store.InsertEntityImpacts(ctx, c.EntityImpacts); err != nil {
			return fmt.Errorf("seed entity impacts: %w", err)
		}
	}
	if len(c.CategoryImpacts) > 0 {
		if err := store.InsertCategoryImpacts(ctx, c.CategoryImpacts); err != nil {
			return fmt.Errorf("seed category impacts: %w", err)
		}
	}
	return nil
}

func loadEvents(path string) ([]*domain.EventRecord, map[string]int64, error) {
	rows, err := readCSV(path)
	if err != nil {
		return nil, nil, err
	}

	var events []*domain.EventRecord
	slugIDs := make(map[string]int64)
	// Event IDs are assigned by file order so impact files can reference
	// events before the store sees any of them.
	nextID := int64(1)

	for i, rec := range rows {
		line := i + 2 // 1-based, after the header
		if len(rec) != 9 {
			return nil, nil, fmt.Errorf("%s line %d: expected 9 columns, got %d", path, line, len(rec))
		}

		slug := strings.TrimSpace(rec[0])
		if slug == "" {
			return nil, nil, fmt.Errorf("%s line %d: empty slug", path, line)
		}
		if _, dup := slugIDs[slug]; dup {
			return nil, nil, fmt.Errorf("%s line %d: duplicate slug %q", path, line, slug)
		}

		severity := domain.Severity(strings.TrimSpace(rec[3]))
		if !severity.IsValid() {
			return nil, nil, fmt.Errorf("%s line %d: unknown severity %q", path, line, rec[3])
		}

		startDate, err := parseDate(rec[4])
		if err != nil {
			return nil, nil, fmt.Errorf("%s line %d: start_date: %w", path, line, err)
		}
		endDate, err := parseOptionalDate(rec[5])
		if err != nil {
			return nil, nil, fmt.Errorf("%s line %d: end_date: %w", path, line, err)
		}
		if endDate != nil && endDate.Before(startDate) {
			return nil, nil, fmt.Errorf("%s line %d: end_date before start_date", path, line)
		}
		announcedAt, err := parseOptionalTimestamp(rec[6])
		if err != nil {
			return nil, nil, fmt.Errorf("%s line %d: announced_at: %w", path, line, err)
		}
		isAnchor, err := parseOptionalBool(rec[7])
		if err != nil {
			return nil, nil, fmt.Errorf("%s line %d: is_anchor: %w", path, line, err)
		}

		e := &domain.EventRecord{
			EventID:     nextID,
			Slug:        slug,
			DisplayName: strings.TrimSpace(rec[1]),
			EventType:   strings.TrimSpace(rec[2]),
			Severity:    severity,
			StartDate:   startDate,
			EndDate:     endDate,
			AnnouncedAt: announcedAt,
			IsAnchor:    isAnchor,
		}
		if notes := strings.TrimSpace(rec[8]); notes != "" {
			e.Notes = &notes
		}

		slugIDs[slug] = nextID
		nextID++
		events = append(events, e)
	}

	return events, slugIDs, nil
}

func loadEntityImpacts(path string, slugIDs map[string]int64) ([]*domain.EntityImpact, error) {
	rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	var impacts []*domain.EntityImpact
	for i, rec := range rows {
		line := i + 2
		if len(rec) != 5 {
			return nil, fmt.Errorf("%s line %d: expected 5 columns, got %d", path, line, len(rec))
		}

		eventID, ok := slugIDs[strings.TrimSpace(rec[0])]
		if !ok {
			return nil, fmt.Errorf("%s line %d: unknown event slug %q", path, line, rec[0])
		}
		entityID, err := strconv.ParseInt(strings.TrimSpace(rec[1]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: entity_id: %w", path, line, err)
		}
		direction := domain.ImpactDirection(strings.TrimSpace(rec[2]))
		if !direction.IsValid() {
			return nil, fmt.Errorf("%s line %d: unknown direction %q", path, line, rec[2])
		}
		lagDays, err := parseOptionalInt(rec[3])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: lag_days: %w", path, line, err)
		}
		durationDays, err := parseOptionalInt(rec[4])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: duration_days: %w", path, line, err)
		}

		impacts = append(impacts, &domain.EntityImpact{
			EventID:      eventID,
			EntityID:     entityID,
			Direction:    direction,
			LagDays:      lagDays,
			DurationDays: durationDays,
		})
	}

	return impacts, nil
}

func loadCategoryImpacts(path string, slugIDs map[string]int64) ([]*domain.CategoryImpact, error) {
	rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	var impacts []*domain.CategoryImpact
	for i, rec := range rows {
		line := i + 2
		if len(rec) != 6 {
			return nil, fmt.Errorf("%s line %d: expected 6 columns, got %d", path, line, len(rec))
		}

		eventID, ok := slugIDs[strings.TrimSpace(rec[0])]
		if !ok {
			return nil, fmt.Errorf("%s line %d: unknown event slug %q", path, line, rec[0])
		}
		category := strings.TrimSpace(rec[1])
		if category == "" {
			return nil, fmt.Errorf("%s line %d: empty category", path, line)
		}
		direction := domain.ImpactDirection(strings.TrimSpace(rec[2]))
		if !direction.IsValid() {
			return nil, fmt.Errorf("%s line %d: unknown direction %q", path, line, rec[2])
		}
		magnitude, err := parseOptionalFloat(rec[3])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: typical_magnitude: %w", path, line, err)
		}
		lagDays, err := parseOptionalInt(rec[4])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: lag_days: %w", path, line, err)
		}
		durationDays, err := parseOptionalInt(rec[5])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: duration_days: %w", path, line, err)
		}

		impacts = append(impacts, &domain.CategoryImpact{
			EventID:          eventID,
			Category:         category,
			Direction:        direction,
			TypicalMagnitude: magnitude,
			LagDays:          lagDays,
			DurationDays:     durationDays,
		})
	}

	return impacts, nil
}

// readCSV reads all records after the header row.
func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // column counts validated per file

	if _, err := r.Read(); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("%s: empty file", path)
		}
		return nil, fmt.Errorf("%s: read header: %w", path, err)
	}

	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		rows = append(rows, rec)
	}

	return rows, nil
}

func parseDate(s string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", strings.TrimSpace(s), time.UTC)
}

func parseOptionalDate(s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := parseDate(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// parseOptionalTimestamp accepts RFC 3339 or a bare date (taken as UTC
// midnight).
func parseOptionalTimestamp(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := parseDate(s)
	if err != nil {
		return nil, fmt.Errorf("expected RFC 3339 or YYYY-MM-DD, got %q", s)
	}
	return &t, nil
}

func parseOptionalBool(s string) (bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return false, nil
	}
	return strconv.ParseBool(s)
}

func parseOptionalInt(s string) (*int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func parseOptionalFloat(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
