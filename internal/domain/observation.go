package domain

import "time"

// RawObservation represents one normalized price scan from the ingestion
// collaborator. Corresponds to the market_observations table in ClickHouse.
// Rows are immutable once ingested; outlier-flagged rows never contribute
// to daily aggregation.
type RawObservation struct {
	EntityID        int64      // economic entity (archetype) identifier
	GroupID         string     // market group slug (partition dimension)
	ItemID          int64      // underlying tradeable item contributing to the entity
	ObservedAt      time.Time  // scan timestamp (UTC)
	Price           float64    // unit price; zero means no usable quote
	MarketValue     *float64   // source-provided market value, nil if absent
	HistoricalValue *float64   // source-provided long-run value, nil if absent
	QuantityListed  *float64   // units listed, nil when the source omits quantities
	ListingCount    *int64     // individual listings behind this scan, nil if absent
	IsOutlier       bool       // flagged by upstream outlier detection
}
