// Package quality validates assembled feature tables before they are
// written. It never mutates rows: problems become either warnings in the
// report (logged and recorded in the manifest) or, for schema-level
// corruption, errors surfaced by the assembler.
package quality

import (
	"fmt"
	"time"

	"commodity-feature-lab/internal/domain"
	"commodity-feature-lab/internal/registry"
)

// highMissingnessThreshold flags columns that are mostly null. High
// missingness is expected for long-window features near the start of a
// series, so this warns rather than fails.
const highMissingnessThreshold = 0.5

// Report summarizes one group's assembled table.
type Report struct {
	GroupID     string    `json:"group_id"`
	TotalRows   int       `json:"total_rows"`
	EntityCount int       `json:"entity_count"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`

	ColumnMissingness map[string]float64 `json:"column_missingness"`
	HighMissingness   []string           `json:"high_missingness_columns,omitempty"`

	DuplicateKeys     int `json:"duplicate_keys"`
	LeakageViolations int `json:"leakage_violations"`
	ExcludedEntities  int `json:"excluded_entities"`

	VolumeProxyPct float64 `json:"volume_proxy_pct"`
	ColdStartPct   float64 `json:"cold_start_pct"`

	Warnings []string `json:"warnings,omitempty"`
}

// IsClean reports whether the table passed every hard check. High
// missingness and proxy/cold-start ratios are informational only.
func (r *Report) IsClean() bool {
	return r.DuplicateKeys == 0 && r.LeakageViolations == 0
}

// Check runs all quality checks over one group's rows. The rows are the
// fully enriched training table; excludedEntities comes from the aggregator.
func Check(groupID string, rows []*domain.FeatureRow, reg *registry.Registry, excludedEntities int) (*Report, error) {
	report := &Report{
		GroupID:           groupID,
		TotalRows:         len(rows),
		ExcludedEntities:  excludedEntities,
		ColumnMissingness: make(map[string]float64),
	}
	if excludedEntities > 0 {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("%d entities excluded for missing classification metadata", excludedEntities))
	}
	if len(rows) == 0 {
		return report, nil
	}

	type rowKey struct {
		entityID int64
		groupID  string
		date     time.Time
	}
	seen := make(map[rowKey]struct{}, len(rows))
	entities := make(map[int64]struct{})
	nullCounts := make(map[string]int)
	proxyRows, coldRows := 0, 0

	specs := reg.Specs()
	for _, row := range rows {
		key := rowKey{row.EntityID, row.GroupID, row.Date}
		if _, dup := seen[key]; dup {
			report.DuplicateKeys++
		}
		seen[key] = struct{}{}
		entities[row.EntityID] = struct{}{}

		if report.StartDate.IsZero() || row.Date.Before(report.StartDate) {
			report.StartDate = row.Date
		}
		if row.Date.After(report.EndDate) {
			report.EndDate = row.Date
		}

		// Leakage heuristic: a negative countdown means a "future" event
		// that already started, which can only happen if the announcement
		// gate let something through.
		if row.EventDaysToNext != nil && *row.EventDaysToNext < 0 {
			report.LeakageViolations++
		}
		if row.DaysUntilMajorEvent != nil && *row.DaysUntilMajorEvent < 0 {
			report.LeakageViolations++
		}

		if row.IsVolumeProxy {
			proxyRows++
		}
		if row.IsColdStart {
			coldRows++
		}

		for _, s := range specs {
			v, err := registry.Value(row, s)
			if err != nil {
				return nil, err
			}
			if v == nil {
				nullCounts[s.Name]++
			}
		}
	}

	report.EntityCount = len(entities)
	report.VolumeProxyPct = float64(proxyRows) / float64(len(rows))
	report.ColdStartPct = float64(coldRows) / float64(len(rows))

	for _, s := range specs {
		miss := float64(nullCounts[s.Name]) / float64(len(rows))
		report.ColumnMissingness[s.Name] = miss
		if miss > highMissingnessThreshold {
			report.HighMissingness = append(report.HighMissingness, s.Name)
		}
	}

	if report.DuplicateKeys > 0 {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("%d duplicate (entity, group, date) keys", report.DuplicateKeys))
	}
	if report.LeakageViolations > 0 {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("%d rows with negative event countdowns (possible leakage)", report.LeakageViolations))
	}
	if len(report.HighMissingness) > 0 {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("%d columns above %.0f%% missingness", len(report.HighMissingness), highMissingnessThreshold*100))
	}

	return report, nil
}
