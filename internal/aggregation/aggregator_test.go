package aggregation

import (
	"context"
	"testing"
	"time"

	"commodity-feature-lab/internal/domain"
	"commodity-feature-lab/internal/storage/memory"
)

func seedObservations(t *testing.T, store *memory.ObservationStore, obs []*domain.RawObservation) {
	t.Helper()
	if err := store.InsertBulk(context.Background(), obs); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}
}

func classifiedSet(ids ...int64) map[int64]*domain.EntityMetadata {
	m := make(map[int64]*domain.EntityMetadata, len(ids))
	for _, id := range ids {
		m[id] = &domain.EntityMetadata{EntityID: id, Category: "material"}
	}
	return m
}

func rawObs(entityID int64, day time.Time, price float64) *domain.RawObservation {
	return &domain.RawObservation{
		EntityID:   entityID,
		GroupID:    "g1",
		ItemID:     entityID * 10,
		ObservedAt: day.Add(6 * time.Hour),
		Price:      price,
	}
}

func TestAggregate_DenseSpine(t *testing.T) {
	store := memory.NewObservationStore()
	seedObservations(t, store, []*domain.RawObservation{
		rawObs(1, domain.Date(2024, 3, 10), 10.0),
		rawObs(1, domain.Date(2024, 3, 13), 13.0), // 2-day gap
	})

	agg := New(store)
	res, err := agg.Aggregate(context.Background(), "g1",
		domain.Date(2024, 3, 10), domain.Date(2024, 3, 13), classifiedSet(1))
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}

	if len(res.Points) != 4 {
		t.Fatalf("Expected 4 spine days, got %d", len(res.Points))
	}

	// Gap days carry nil prices and zero obs count.
	gap := res.Points[1]
	if !gap.Date.Equal(domain.Date(2024, 3, 11)) {
		t.Errorf("Expected gap day 2024-03-11, got %v", gap.Date)
	}
	if gap.PriceMean != nil {
		t.Errorf("Expected nil price on gap day, got %v", *gap.PriceMean)
	}
	if gap.ObsCount != 0 {
		t.Errorf("Expected obs_count 0 on gap day, got %d", gap.ObsCount)
	}

	last := res.Points[3]
	if last.PriceMean == nil || *last.PriceMean != 13.0 {
		t.Errorf("Expected price 13.0 on last day, got %v", last.PriceMean)
	}
}

func TestAggregate_ClampsToDataExtent(t *testing.T) {
	store := memory.NewObservationStore()
	seedObservations(t, store, []*domain.RawObservation{
		rawObs(1, domain.Date(2024, 3, 10), 10.0),
		rawObs(1, domain.Date(2024, 3, 12), 12.0),
	})

	agg := New(store)
	res, err := agg.Aggregate(context.Background(), "g1",
		domain.Date(2024, 1, 1), domain.Date(2024, 12, 31), classifiedSet(1))
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}

	if !res.Start.Equal(domain.Date(2024, 3, 10)) {
		t.Errorf("Expected clamped start 2024-03-10, got %v", res.Start)
	}
	if !res.End.Equal(domain.Date(2024, 3, 12)) {
		t.Errorf("Expected clamped end 2024-03-12, got %v", res.End)
	}
	if len(res.Points) != 3 {
		t.Errorf("Expected 3 spine days after clamping, got %d", len(res.Points))
	}
}

func TestAggregate_UnclassifiedExcludedAndCounted(t *testing.T) {
	store := memory.NewObservationStore()
	seedObservations(t, store, []*domain.RawObservation{
		rawObs(1, domain.Date(2024, 3, 10), 10.0),
		rawObs(2, domain.Date(2024, 3, 10), 20.0), // no metadata
		rawObs(3, domain.Date(2024, 3, 10), 30.0), // no metadata
	})

	agg := New(store)
	res, err := agg.Aggregate(context.Background(), "g1",
		domain.Date(2024, 3, 10), domain.Date(2024, 3, 10), classifiedSet(1))
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}

	if res.ExcludedEntities != 2 {
		t.Errorf("Expected 2 excluded entities, got %d", res.ExcludedEntities)
	}
	if len(res.Points) != 1 {
		t.Fatalf("Expected 1 point, got %d", len(res.Points))
	}
	if res.Points[0].EntityID != 1 {
		t.Errorf("Expected entity 1 only, got %d", res.Points[0].EntityID)
	}
}

func TestAggregate_EmptyGroupNotAnError(t *testing.T) {
	store := memory.NewObservationStore()

	agg := New(store)
	res, err := agg.Aggregate(context.Background(), "empty",
		domain.Date(2024, 3, 1), domain.Date(2024, 3, 31), classifiedSet(1))
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if len(res.Points) != 0 {
		t.Errorf("Expected no points for empty group, got %d", len(res.Points))
	}
}

func TestAggregate_WindowOutsideExtent(t *testing.T) {
	store := memory.NewObservationStore()
	seedObservations(t, store, []*domain.RawObservation{
		rawObs(1, domain.Date(2024, 3, 10), 10.0),
	})

	agg := New(store)
	res, err := agg.Aggregate(context.Background(), "g1",
		domain.Date(2025, 1, 1), domain.Date(2025, 1, 31), classifiedSet(1))
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if len(res.Points) != 0 {
		t.Errorf("Expected no points when window is past the extent, got %d", len(res.Points))
	}
}

func TestAggregate_InvertedWindowRejected(t *testing.T) {
	store := memory.NewObservationStore()

	agg := New(store)
	_, err := agg.Aggregate(context.Background(), "g1",
		domain.Date(2024, 3, 31), domain.Date(2024, 3, 1), classifiedSet(1))
	if err == nil {
		t.Error("Expected error for inverted window")
	}
}

func TestAggregate_SortedByEntityThenDate(t *testing.T) {
	store := memory.NewObservationStore()
	seedObservations(t, store, []*domain.RawObservation{
		rawObs(2, domain.Date(2024, 3, 11), 21.0),
		rawObs(1, domain.Date(2024, 3, 10), 10.0),
		rawObs(2, domain.Date(2024, 3, 10), 20.0),
	})

	agg := New(store)
	res, err := agg.Aggregate(context.Background(), "g1",
		domain.Date(2024, 3, 10), domain.Date(2024, 3, 11), classifiedSet(1, 2))
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}

	if len(res.Points) != 4 {
		t.Fatalf("Expected 4 points (2 entities x 2 days), got %d", len(res.Points))
	}
	for i := 1; i < len(res.Points); i++ {
		prev, cur := res.Points[i-1], res.Points[i]
		if cur.EntityID < prev.EntityID {
			t.Errorf("Not sorted by entity at index %d", i)
		}
		if cur.EntityID == prev.EntityID && !cur.Date.After(prev.Date) {
			t.Errorf("Not sorted by date within entity at index %d", i)
		}
	}
}
