// Package aggregation turns sparse market observations into dense daily
// series: one row per classified entity per calendar day of the requested
// window, with nil price fields on days without data.
package aggregation

import (
	"context"
	"fmt"
	"sort"
	"time"

	"commodity-feature-lab/internal/domain"
	"commodity-feature-lab/internal/storage"
)

// Result is the output of one group aggregation.
type Result struct {
	Points []*domain.DailySeriesPoint // dense, sorted by (entity_id, date)

	// Window actually aggregated after clamping to the data extent.
	Start time.Time
	End   time.Time

	// ExcludedEntities counts entities dropped for missing classification
	// metadata. Surfaced so the quality report can flag silent data loss.
	ExcludedEntities int
}

// Aggregator builds dense daily series for one observation group at a time.
type Aggregator struct {
	store storage.ObservationStore
}

// New creates an aggregator backed by the given observation store.
func New(store storage.ObservationStore) *Aggregator {
	return &Aggregator{store: store}
}

// Aggregate produces the dense daily table for a group over [start, end].
// The window is clamped to the group's actual data extent so the spine never
// extends past observed history. classified is the set of entities with
// metadata; rows for unclassified entities are dropped and counted.
//
// An empty result (no data in the window, or no data at all) is not an
// error: Points is empty and the caller decides whether to skip the group.
func (a *Aggregator) Aggregate(ctx context.Context, groupID string, start, end time.Time, classified map[int64]*domain.EntityMetadata) (*Result, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("aggregate %s: end %s before start %s", groupID, end.Format("2006-01-02"), start.Format("2006-01-02"))
	}

	extStart, extEnd, ok, err := a.store.DataExtent(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("aggregate %s: data extent: %w", groupID, err)
	}
	if !ok {
		return &Result{Start: start, End: end}, nil
	}

	// Clamp to observed history on both sides.
	if start.Before(extStart) {
		start = extStart
	}
	if end.After(extEnd) {
		end = extEnd
	}
	if end.Before(start) {
		return &Result{Start: start, End: end}, nil
	}

	observed, err := a.store.DailyAggregates(ctx, groupID, start, end)
	if err != nil {
		return nil, fmt.Errorf("aggregate %s: daily aggregates: %w", groupID, err)
	}

	excludedSet := make(map[int64]struct{})
	entitySet := make(map[int64]struct{})
	byKey := make(map[int64]map[time.Time]*domain.DailySeriesPoint)
	for _, p := range observed {
		if _, ok := classified[p.EntityID]; !ok {
			excludedSet[p.EntityID] = struct{}{}
			continue
		}
		entitySet[p.EntityID] = struct{}{}
		days := byKey[p.EntityID]
		if days == nil {
			days = make(map[time.Time]*domain.DailySeriesPoint)
			byKey[p.EntityID] = days
		}
		days[p.Date] = p
	}

	entities := make([]int64, 0, len(entitySet))
	for id := range entitySet {
		entities = append(entities, id)
	}
	sort.Slice(entities, func(i, j int) bool { return entities[i] < entities[j] })

	spineDays := domain.DaysBetween(start, end) + 1
	points := make([]*domain.DailySeriesPoint, 0, len(entities)*spineDays)
	for _, entityID := range entities {
		days := byKey[entityID]
		for d := start; !d.After(end); d = domain.AddDays(d, 1) {
			if p, ok := days[d]; ok {
				points = append(points, p)
				continue
			}
			// Spine fill: a calendar day with no scans. Price fields stay
			// nil; the day still exists so lag arithmetic is calendar-exact.
			points = append(points, &domain.DailySeriesPoint{
				EntityID:      entityID,
				GroupID:       groupID,
				Date:          d,
				IsVolumeProxy: true,
			})
		}
	}

	return &Result{
		Points:           points,
		Start:            start,
		End:              end,
		ExcludedEntities: len(excludedSet),
	}, nil
}
