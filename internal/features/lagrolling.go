// Package features holds the per-row feature engines: lag/rolling windows,
// event proximity, entity enrichment, and calendar features. Each engine is
// pure — it reads its inputs and returns new rows, so stages compose without
// hidden ordering constraints beyond the obvious data dependencies.
package features

import (
	"math"
	"time"

	"commodity-feature-lab/internal/domain"
)

type seriesKey struct {
	entityID int64
	groupID  string
}

// ComputeWindows lifts dense daily points into feature rows with lag,
// rolling, momentum, and forward-target columns attached.
//
// All window arithmetic is calendar-exact: a 7-day lag means the price
// exactly 7 calendar days earlier, looked up by date, never "7 rows up".
// Rows from different (entity, group) series never see each other.
func ComputeWindows(points []*domain.DailySeriesPoint, cfg domain.FeatureConfig) []*domain.FeatureRow {
	bySeries := make(map[seriesKey]map[time.Time]*float64)
	for _, p := range points {
		key := seriesKey{p.EntityID, p.GroupID}
		dates := bySeries[key]
		if dates == nil {
			dates = make(map[time.Time]*float64)
			bySeries[key] = dates
		}
		dates[p.Date] = p.PriceMean
	}

	rows := make([]*domain.FeatureRow, 0, len(points))
	for _, p := range points {
		lookup := bySeries[seriesKey{p.EntityID, p.GroupID}]
		row := &domain.FeatureRow{
			DailySeriesPoint: *p,
			Lags:             make(map[int]*float64, len(cfg.LagDays)),
			RollMeans:        make(map[int]*float64, len(cfg.RollingWindows)),
			RollStds:         make(map[int]*float64, len(cfg.RollingWindows)),
			PctChanges:       make(map[int]*float64, len(cfg.RollingWindows)),
			Targets:          make(map[int]*float64, len(cfg.TargetHorizonsDays)),
		}

		for _, n := range cfg.LagDays {
			row.Lags[n] = priceAt(lookup, domain.AddDays(p.Date, -n))
		}
		for _, n := range cfg.RollingWindows {
			mean, std := rollingStats(lookup, p.Date, n)
			row.RollMeans[n] = mean
			row.RollStds[n] = std
			row.PctChanges[n] = pctChange(p.PriceMean, priceAt(lookup, domain.AddDays(p.Date, -n)))
		}
		for _, h := range cfg.TargetHorizonsDays {
			row.Targets[h] = priceAt(lookup, domain.AddDays(p.Date, h))
		}

		rows = append(rows, row)
	}

	return rows
}

func priceAt(lookup map[time.Time]*float64, d time.Time) *float64 {
	v, ok := lookup[d]
	if !ok || v == nil {
		return nil
	}
	out := *v
	return &out
}

// rollingStats computes mean and population std-dev over the window of n
// calendar days ending at date (inclusive), skipping days without a price.
// Both are nil when the window holds no prices; a single price yields
// std 0. The variance is clamped at zero before the square root so float
// cancellation can never produce NaN.
func rollingStats(lookup map[time.Time]*float64, date time.Time, n int) (*float64, *float64) {
	var sum, sumSq float64
	count := 0
	for i := 0; i < n; i++ {
		v := lookup[domain.AddDays(date, -i)]
		if v == nil {
			continue
		}
		sum += *v
		sumSq += *v * *v
		count++
	}
	if count == 0 {
		return nil, nil
	}

	mean := sum / float64(count)
	variance := sumSq/float64(count) - mean*mean
	if variance < 0 {
		variance = 0
	}
	std := math.Sqrt(variance)

	return &mean, &std
}

func pctChange(current, lagged *float64) *float64 {
	if current == nil || lagged == nil || *lagged == 0 {
		return nil
	}
	out := (*current - *lagged) / *lagged
	return &out
}
