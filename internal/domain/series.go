package domain

import "time"

// DailySeriesPoint represents one calendar day of aggregated price data for
// one (entity, group) series. Every day of the clamped request window is
// present: days without observations carry nil price fields and ObsCount 0,
// so downstream lag features stay calendar-accurate.
type DailySeriesPoint struct {
	EntityID            int64     // economic entity identifier
	GroupID             string    // market group slug
	Date                time.Time // calendar date, UTC midnight
	PriceMean           *float64  // mean of non-zero, non-outlier prices; nil if no data
	PriceMin            *float64  // lowest price seen; nil if no data
	PriceMax            *float64  // highest price seen; nil if no data
	MarketValueMean     *float64  // mean market value; nil if absent
	HistoricalValueMean *float64  // mean historical value; nil if absent
	ObsCount            int       // raw scan count; 0 for spine-only rows
	QuantitySum         *float64  // SUM(quantity_listed); nil when unavailable
	ListingSum          *float64  // SUM(listing_count); nil when unavailable
	IsVolumeProxy       bool      // true when every scan lacked a quantity figure
}
