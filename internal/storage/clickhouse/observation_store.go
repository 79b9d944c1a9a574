package clickhouse

import (
	"context"
	"fmt"
	"time"

	"commodity-feature-lab/internal/domain"
	"commodity-feature-lab/internal/storage"
)

// ObservationStore implements storage.ObservationStore using ClickHouse.
// Daily aggregation runs server-side over the market_observations table.
type ObservationStore struct {
	conn *Conn
}

// NewObservationStore creates a new ObservationStore.
func NewObservationStore(conn *Conn) *ObservationStore {
	return &ObservationStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ObservationStore = (*ObservationStore)(nil)

// InsertBulk adds multiple observations. Fails entire batch on duplicate
// (entity_id, group_id, item_id, observed_at).
func (s *ObservationStore) InsertBulk(ctx context.Context, obs []*domain.RawObservation) error {
	if len(obs) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		entityID   int64
		groupID    string
		itemID     int64
		observedAt int64
	}
	seen := make(map[key]struct{})
	for _, o := range obs {
		k := key{o.EntityID, o.GroupID, o.ItemID, o.ObservedAt.UnixNano()}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, o := range obs {
		exists, err := s.exists(ctx, o)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO market_observations (
			entity_id, group_id, item_id, observed_at, price,
			market_value, historical_value, quantity_listed, listing_count, is_outlier
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, o := range obs {
		err = batch.Append(
			o.EntityID, o.GroupID, o.ItemID, o.ObservedAt.UTC(), o.Price,
			o.MarketValue, o.HistoricalValue, o.QuantityListed, o.ListingCount,
			boolToUInt8(o.IsOutlier),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// DataExtent returns the earliest and latest non-outlier observation dates
// for a group as UTC midnights. ok is false when the group has no usable data.
func (s *ObservationStore) DataExtent(ctx context.Context, groupID string) (time.Time, time.Time, bool, error) {
	query := `
		SELECT count(), min(toDate(observed_at)), max(toDate(observed_at))
		FROM market_observations
		WHERE group_id = ? AND is_outlier = 0
	`

	var count uint64
	var minDay, maxDay time.Time
	err := s.conn.QueryRow(ctx, query, groupID).Scan(&count, &minDay, &maxDay)
	if err != nil {
		return time.Time{}, time.Time{}, false, fmt.Errorf("query data extent: %w", err)
	}
	if count == 0 {
		return time.Time{}, time.Time{}, false, nil
	}

	return toUTCDate(minDay), toUTCDate(maxDay), true, nil
}

// DailyAggregates returns per-(entity, date) aggregates within [start, end],
// sorted by (entity_id, date). Price stats only consider positive prices;
// ObsCount counts every contributing scan regardless.
func (s *ObservationStore) DailyAggregates(ctx context.Context, groupID string, start, end time.Time) ([]*domain.DailySeriesPoint, error) {
	query := `
		SELECT
			entity_id,
			toDate(observed_at) AS day,
			countIf(price > 0) AS price_count,
			avgIf(price, price > 0) AS price_mean,
			minIf(price, price > 0) AS price_min,
			maxIf(price, price > 0) AS price_max,
			avg(market_value) AS market_value_mean,
			avg(historical_value) AS historical_value_mean,
			count() AS obs_count,
			sum(quantity_listed) AS quantity_sum,
			toFloat64(sum(listing_count)) AS listing_sum,
			countIf(isNotNull(quantity_listed)) AS quantity_count
		FROM market_observations
		WHERE group_id = ? AND is_outlier = 0
		  AND toDate(observed_at) >= toDate(?) AND toDate(observed_at) <= toDate(?)
		GROUP BY entity_id, day
		ORDER BY entity_id, day
	`

	rows, err := s.conn.Query(ctx, query, groupID, start, end)
	if err != nil {
		return nil, fmt.Errorf("query daily aggregates: %w", err)
	}
	defer rows.Close()

	var points []*domain.DailySeriesPoint
	for rows.Next() {
		var (
			p             domain.DailySeriesPoint
			day           time.Time
			priceCount    uint64
			priceMean     float64
			priceMin      float64
			priceMax      float64
			obsCount      uint64
			quantityCount uint64
		)

		err := rows.Scan(
			&p.EntityID, &day, &priceCount,
			&priceMean, &priceMin, &priceMax,
			&p.MarketValueMean, &p.HistoricalValueMean,
			&obsCount, &p.QuantitySum, &p.ListingSum, &quantityCount,
		)
		if err != nil {
			return nil, fmt.Errorf("scan daily aggregate row: %w", err)
		}

		// avgIf/minIf/maxIf are undefined when no row matched the condition.
		// price_count is the authoritative guard.
		if priceCount > 0 {
			p.PriceMean = &priceMean
			p.PriceMin = &priceMin
			p.PriceMax = &priceMax
		}

		p.GroupID = groupID
		p.Date = toUTCDate(day)
		p.ObsCount = int(obsCount)
		p.IsVolumeProxy = quantityCount == 0
		points = append(points, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily aggregate rows: %w", err)
	}

	return points, nil
}

// ObservationCountsByEntity returns total non-outlier observation counts
// per entity in a group.
func (s *ObservationStore) ObservationCountsByEntity(ctx context.Context, groupID string) (map[int64]int, error) {
	query := `
		SELECT entity_id, count()
		FROM market_observations
		WHERE group_id = ? AND is_outlier = 0
		GROUP BY entity_id
	`

	return s.queryCounts(ctx, query, groupID)
}

// ItemCountsByEntity returns the number of distinct items contributing to
// each entity's series in a group.
func (s *ObservationStore) ItemCountsByEntity(ctx context.Context, groupID string) (map[int64]int, error) {
	query := `
		SELECT entity_id, uniqExact(item_id)
		FROM market_observations
		WHERE group_id = ? AND is_outlier = 0
		GROUP BY entity_id
	`

	return s.queryCounts(ctx, query, groupID)
}

func (s *ObservationStore) queryCounts(ctx context.Context, query, groupID string) (map[int64]int, error) {
	rows, err := s.conn.Query(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("query entity counts: %w", err)
	}
	defer rows.Close()

	result := make(map[int64]int)
	for rows.Next() {
		var entityID int64
		var count uint64
		if err := rows.Scan(&entityID, &count); err != nil {
			return nil, fmt.Errorf("scan entity count row: %w", err)
		}
		result[entityID] = int(count)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entity count rows: %w", err)
	}

	return result, nil
}

// exists checks if an observation with the given key exists.
func (s *ObservationStore) exists(ctx context.Context, o *domain.RawObservation) (bool, error) {
	query := `
		SELECT count(*) FROM market_observations
		WHERE entity_id = ? AND group_id = ? AND item_id = ? AND observed_at = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, o.EntityID, o.GroupID, o.ItemID, o.ObservedAt.UTC()).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func boolToUInt8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// toUTCDate pins a scanned Date column to UTC midnight. The pipeline compares
// dates by equality, so they must be canonical.
func toUTCDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
