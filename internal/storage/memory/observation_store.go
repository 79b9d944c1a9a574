package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"commodity-feature-lab/internal/domain"
	"commodity-feature-lab/internal/storage"
)

// ObservationStore is an in-memory implementation of storage.ObservationStore.
// Daily aggregation is computed on read, mirroring the GROUP BY query the
// ClickHouse implementation runs.
type ObservationStore struct {
	mu   sync.RWMutex
	data map[string]*domain.RawObservation // keyed by (entity, group, item, observed_at)
}

// NewObservationStore creates a new in-memory observation store.
func NewObservationStore() *ObservationStore {
	return &ObservationStore{
		data: make(map[string]*domain.RawObservation),
	}
}

var _ storage.ObservationStore = (*ObservationStore)(nil)

func obsKey(o *domain.RawObservation) string {
	return fmt.Sprintf("%d|%s|%d|%d", o.EntityID, o.GroupID, o.ItemID, o.ObservedAt.UTC().UnixNano())
}

// InsertBulk adds multiple observations. Fails the entire batch on any duplicate.
func (s *ObservationStore) InsertBulk(_ context.Context, obs []*domain.RawObservation) error {
	if len(obs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(obs))
	for _, o := range obs {
		if o == nil || o.GroupID == "" {
			return storage.ErrInvalidInput
		}
		key := obsKey(o)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, o := range obs {
		obsCopy := *o
		s.data[obsKey(o)] = &obsCopy
	}

	return nil
}

// DataExtent returns the earliest and latest observation dates for a group.
func (s *ObservationStore) DataExtent(_ context.Context, groupID string) (time.Time, time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var start, end time.Time
	found := false
	for _, o := range s.data {
		if o.GroupID != groupID || o.IsOutlier {
			continue
		}
		d := domain.Midnight(o.ObservedAt)
		if !found {
			start, end = d, d
			found = true
			continue
		}
		if d.Before(start) {
			start = d
		}
		if d.After(end) {
			end = d
		}
	}

	return start, end, found, nil
}

// DailyAggregates computes per-(entity, date) aggregates for a group within
// [start, end], sorted by (entity_id, date).
func (s *ObservationStore) DailyAggregates(_ context.Context, groupID string, start, end time.Time) ([]*domain.DailySeriesPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type dayKey struct {
		entityID int64
		date     time.Time
	}

	type dayAcc struct {
		priceSum    float64
		priceCount  int
		priceMin    float64
		priceMax    float64
		marketSum   float64
		marketCount int
		histSum     float64
		histCount   int
		obsCount    int
		quantitySum float64
		hasQuantity bool
		listingSum  float64
		hasListing  bool
	}

	accs := make(map[dayKey]*dayAcc)
	for _, o := range s.data {
		if o.GroupID != groupID || o.IsOutlier {
			continue
		}
		d := domain.Midnight(o.ObservedAt)
		if d.Before(start) || d.After(end) {
			continue
		}

		key := dayKey{o.EntityID, d}
		acc := accs[key]
		if acc == nil {
			acc = &dayAcc{}
			accs[key] = acc
		}

		acc.obsCount++
		if o.Price > 0 {
			if acc.priceCount == 0 || o.Price < acc.priceMin {
				acc.priceMin = o.Price
			}
			if acc.priceCount == 0 || o.Price > acc.priceMax {
				acc.priceMax = o.Price
			}
			acc.priceSum += o.Price
			acc.priceCount++
		}
		if o.MarketValue != nil {
			acc.marketSum += *o.MarketValue
			acc.marketCount++
		}
		if o.HistoricalValue != nil {
			acc.histSum += *o.HistoricalValue
			acc.histCount++
		}
		if o.QuantityListed != nil {
			acc.quantitySum += *o.QuantityListed
			acc.hasQuantity = true
		}
		if o.ListingCount != nil {
			acc.listingSum += float64(*o.ListingCount)
			acc.hasListing = true
		}
	}

	result := make([]*domain.DailySeriesPoint, 0, len(accs))
	for key, acc := range accs {
		p := &domain.DailySeriesPoint{
			EntityID:      key.entityID,
			GroupID:       groupID,
			Date:          key.date,
			ObsCount:      acc.obsCount,
			IsVolumeProxy: !acc.hasQuantity,
		}
		if acc.priceCount > 0 {
			mean := acc.priceSum / float64(acc.priceCount)
			minV, maxV := acc.priceMin, acc.priceMax
			p.PriceMean, p.PriceMin, p.PriceMax = &mean, &minV, &maxV
		}
		if acc.marketCount > 0 {
			mean := acc.marketSum / float64(acc.marketCount)
			p.MarketValueMean = &mean
		}
		if acc.histCount > 0 {
			mean := acc.histSum / float64(acc.histCount)
			p.HistoricalValueMean = &mean
		}
		if acc.hasQuantity {
			qs := acc.quantitySum
			p.QuantitySum = &qs
		}
		if acc.hasListing {
			ls := acc.listingSum
			p.ListingSum = &ls
		}
		result = append(result, p)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].EntityID != result[j].EntityID {
			return result[i].EntityID < result[j].EntityID
		}
		return result[i].Date.Before(result[j].Date)
	})

	return result, nil
}

// ObservationCountsByEntity returns total non-outlier observation counts per entity.
func (s *ObservationStore) ObservationCountsByEntity(_ context.Context, groupID string) (map[int64]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[int64]int)
	for _, o := range s.data {
		if o.GroupID == groupID && !o.IsOutlier {
			counts[o.EntityID]++
		}
	}

	return counts, nil
}

// ItemCountsByEntity returns distinct contributing item counts per entity.
func (s *ObservationStore) ItemCountsByEntity(_ context.Context, groupID string) (map[int64]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type itemKey struct {
		entityID int64
		itemID   int64
	}
	seen := make(map[itemKey]struct{})
	for _, o := range s.data {
		if o.GroupID == groupID && !o.IsOutlier {
			seen[itemKey{o.EntityID, o.ItemID}] = struct{}{}
		}
	}

	counts := make(map[int64]int)
	for key := range seen {
		counts[key.entityID]++
	}

	return counts, nil
}
