package memory

import (
	"context"
	"sort"
	"sync"

	"commodity-feature-lab/internal/domain"
	"commodity-feature-lab/internal/storage"
)

// EventStore is an in-memory implementation of storage.EventStore.
type EventStore struct {
	mu              sync.RWMutex
	events          map[int64]*domain.EventRecord
	slugs           map[string]int64
	entityImpacts   []*domain.EntityImpact
	categoryImpacts []*domain.CategoryImpact
	nextID          int64
}

// NewEventStore creates a new in-memory event store.
func NewEventStore() *EventStore {
	return &EventStore{
		events: make(map[int64]*domain.EventRecord),
		slugs:  make(map[string]int64),
		nextID: 1,
	}
}

var _ storage.EventStore = (*EventStore)(nil)

// InsertEvents adds events. Events with a zero EventID get one assigned.
// Fails the entire batch on a duplicate slug.
func (s *EventStore) InsertEvents(_ context.Context, events []*domain.EventRecord) error {
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchSlugs := make(map[string]struct{}, len(events))
	for _, e := range events {
		if e == nil || e.Slug == "" || !e.Severity.IsValid() {
			return storage.ErrInvalidInput
		}
		if _, exists := s.slugs[e.Slug]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchSlugs[e.Slug]; exists {
			return storage.ErrDuplicateKey
		}
		batchSlugs[e.Slug] = struct{}{}
	}

	for _, e := range events {
		eCopy := *e
		if eCopy.EventID == 0 {
			eCopy.EventID = s.nextID
		}
		if eCopy.EventID >= s.nextID {
			s.nextID = eCopy.EventID + 1
		}
		s.events[eCopy.EventID] = &eCopy
		s.slugs[eCopy.Slug] = eCopy.EventID
	}

	return nil
}

// InsertEntityImpacts adds per-entity impact records.
func (s *EventStore) InsertEntityImpacts(_ context.Context, impacts []*domain.EntityImpact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, im := range impacts {
		if im == nil || !im.Direction.IsValid() {
			return storage.ErrInvalidInput
		}
	}
	for _, im := range impacts {
		imCopy := *im
		s.entityImpacts = append(s.entityImpacts, &imCopy)
	}

	return nil
}

// InsertCategoryImpacts adds per-category impact records.
func (s *EventStore) InsertCategoryImpacts(_ context.Context, impacts []*domain.CategoryImpact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, im := range impacts {
		if im == nil || im.Category == "" || !im.Direction.IsValid() {
			return storage.ErrInvalidInput
		}
	}
	for _, im := range impacts {
		imCopy := *im
		s.categoryImpacts = append(s.categoryImpacts, &imCopy)
	}

	return nil
}

// AnnouncedEvents returns events with a non-nil announcement timestamp,
// sorted by start_date then event_id.
func (s *EventStore) AnnouncedEvents(_ context.Context) ([]*domain.EventRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.EventRecord, 0, len(s.events))
	for _, e := range s.events {
		if e.AnnouncedAt == nil {
			continue
		}
		eCopy := *e
		result = append(result, &eCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].StartDate.Equal(result[j].StartDate) {
			return result[i].StartDate.Before(result[j].StartDate)
		}
		return result[i].EventID < result[j].EventID
	})

	return result, nil
}

// EntityImpacts returns per-entity impact records keyed by event_id.
func (s *EventStore) EntityImpacts(_ context.Context) (map[int64][]*domain.EntityImpact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[int64][]*domain.EntityImpact)
	for _, im := range s.entityImpacts {
		imCopy := *im
		result[im.EventID] = append(result[im.EventID], &imCopy)
	}

	return result, nil
}

// CategoryImpacts returns per-category impact records keyed by event_id.
func (s *EventStore) CategoryImpacts(_ context.Context) (map[int64][]*domain.CategoryImpact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[int64][]*domain.CategoryImpact)
	for _, im := range s.categoryImpacts {
		imCopy := *im
		result[im.EventID] = append(result[im.EventID], &imCopy)
	}

	return result, nil
}
