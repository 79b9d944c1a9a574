package memory

import (
	"context"
	"sync"

	"commodity-feature-lab/internal/domain"
	"commodity-feature-lab/internal/storage"
)

// EntityMetadataStore is an in-memory implementation of storage.EntityMetadataStore.
type EntityMetadataStore struct {
	mu   sync.RWMutex
	data map[int64]*domain.EntityMetadata
}

// NewEntityMetadataStore creates a new in-memory entity metadata store.
func NewEntityMetadataStore() *EntityMetadataStore {
	return &EntityMetadataStore{
		data: make(map[int64]*domain.EntityMetadata),
	}
}

var _ storage.EntityMetadataStore = (*EntityMetadataStore)(nil)

// Insert adds a metadata record.
func (s *EntityMetadataStore) Insert(_ context.Context, m *domain.EntityMetadata) error {
	if m == nil || m.Category == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[m.EntityID]; exists {
		return storage.ErrDuplicateKey
	}

	mCopy := *m
	s.data[m.EntityID] = &mCopy

	return nil
}

// GetByID retrieves metadata for one entity.
func (s *EntityMetadataStore) GetByID(_ context.Context, entityID int64) (*domain.EntityMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, exists := s.data[entityID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	mCopy := *m
	return &mCopy, nil
}

// GetAll retrieves all metadata records keyed by entity_id.
func (s *EntityMetadataStore) GetAll(_ context.Context) (map[int64]*domain.EntityMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[int64]*domain.EntityMetadata, len(s.data))
	for id, m := range s.data {
		mCopy := *m
		result[id] = &mCopy
	}

	return result, nil
}
