package postgres

import (
	"context"
	"fmt"

	"commodity-feature-lab/internal/domain"
	"commodity-feature-lab/internal/storage"
)

// EntityMetadataStore implements storage.EntityMetadataStore using PostgreSQL.
type EntityMetadataStore struct {
	pool *Pool
}

// NewEntityMetadataStore creates a new EntityMetadataStore.
func NewEntityMetadataStore(pool *Pool) *EntityMetadataStore {
	return &EntityMetadataStore{pool: pool}
}

// Compile-time interface check.
var _ storage.EntityMetadataStore = (*EntityMetadataStore)(nil)

// Insert adds a metadata record. Returns ErrDuplicateKey if entity_id exists.
func (s *EntityMetadataStore) Insert(ctx context.Context, m *domain.EntityMetadata) error {
	if m == nil || m.Category == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO entity_metadata (
			entity_id, category, sub_tag, is_transferable, has_transfer_mapping, transfer_confidence
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.pool.Exec(ctx, query,
		m.EntityID,
		m.Category,
		m.SubTag,
		m.IsTransferable,
		m.HasTransferMapping,
		m.TransferConfidence,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert entity metadata: %w", err)
	}
	return nil
}

// GetByID retrieves metadata for one entity. Returns ErrNotFound if absent.
func (s *EntityMetadataStore) GetByID(ctx context.Context, entityID int64) (*domain.EntityMetadata, error) {
	query := `
		SELECT entity_id, category, sub_tag, is_transferable, has_transfer_mapping, transfer_confidence
		FROM entity_metadata
		WHERE entity_id = $1
	`

	var m domain.EntityMetadata
	err := s.pool.QueryRow(ctx, query, entityID).Scan(
		&m.EntityID,
		&m.Category,
		&m.SubTag,
		&m.IsTransferable,
		&m.HasTransferMapping,
		&m.TransferConfidence,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get entity metadata by id: %w", err)
	}
	return &m, nil
}

// GetAll retrieves all metadata records keyed by entity_id.
func (s *EntityMetadataStore) GetAll(ctx context.Context) (map[int64]*domain.EntityMetadata, error) {
	query := `
		SELECT entity_id, category, sub_tag, is_transferable, has_transfer_mapping, transfer_confidence
		FROM entity_metadata
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query entity metadata: %w", err)
	}
	defer rows.Close()

	result := make(map[int64]*domain.EntityMetadata)
	for rows.Next() {
		var m domain.EntityMetadata
		err := rows.Scan(
			&m.EntityID,
			&m.Category,
			&m.SubTag,
			&m.IsTransferable,
			&m.HasTransferMapping,
			&m.TransferConfidence,
		)
		if err != nil {
			return nil, fmt.Errorf("scan entity metadata row: %w", err)
		}
		result[m.EntityID] = &m
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entity metadata rows: %w", err)
	}

	return result, nil
}
