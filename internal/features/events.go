package features

import (
	"sort"

	"commodity-feature-lab/internal/domain"
)

// preEventWindowDays is the run-up window flagged ahead of a major event.
const preEventWindowDays = 7

// ComputeEventFeatures attaches event-proximity columns to each row.
//
// Leakage guard, layer 2: every row is evaluated as of 23:59:59 UTC on its
// own calendar date, and only events already announced by that instant can
// influence it. An event announced during the row's day counts; one announced
// the next morning does not. Layer 1 (dropping events with no announcement
// timestamp at all) is the event store's read path.
//
// Rows must already carry EntityCategory — enrichment runs first so category
// impact fallback can resolve.
func ComputeEventFeatures(
	rows []*domain.FeatureRow,
	events []*domain.EventRecord,
	entityImpacts map[int64][]*domain.EntityImpact,
	categoryImpacts map[int64][]*domain.CategoryImpact,
) []*domain.FeatureRow {
	entityDirs := make(map[int64]map[int64]domain.ImpactDirection, len(entityImpacts))
	for eventID, impacts := range entityImpacts {
		dirs := make(map[int64]domain.ImpactDirection, len(impacts))
		for _, im := range impacts {
			dirs[im.EntityID] = im.Direction
		}
		entityDirs[eventID] = dirs
	}
	categoryByEvent := make(map[int64]map[string]*domain.CategoryImpact, len(categoryImpacts))
	for eventID, impacts := range categoryImpacts {
		byCat := make(map[string]*domain.CategoryImpact, len(impacts))
		for _, im := range impacts {
			byCat[im.Category] = im
		}
		categoryByEvent[eventID] = byCat
	}

	out := make([]*domain.FeatureRow, 0, len(rows))
	for _, r := range rows {
		row := r.Clone()
		asOf := domain.EndOfDay(row.Date)

		var active []*domain.EventRecord
		var daysToNext, daysSinceLast, daysUntilMajor *float64
		for _, e := range events {
			if !e.IsKnownAt(asOf) {
				continue
			}
			switch {
			case e.IsActiveOn(row.Date):
				active = append(active, e)
			case e.StartDate.After(row.Date):
				d := float64(domain.DaysBetween(row.Date, e.StartDate))
				if daysToNext == nil || d < *daysToNext {
					daysToNext = &d
				}
				if e.Severity.IsMajorOrAbove() {
					dm := d
					if daysUntilMajor == nil || dm < *daysUntilMajor {
						daysUntilMajor = &dm
					}
				}
			default: // ended before this row's date
				d := float64(domain.DaysBetween(e.EffectiveEnd(), row.Date))
				if daysSinceLast == nil || d < *daysSinceLast {
					daysSinceLast = &d
				}
			}
		}

		row.EventActive = len(active) > 0
		row.EventDaysToNext = daysToNext
		row.EventDaysSinceLast = daysSinceLast
		row.DaysUntilMajorEvent = daysUntilMajor
		row.IsPreEventWindow = daysUntilMajor != nil &&
			*daysUntilMajor > 0 && *daysUntilMajor <= preEventWindowDays
		row.EventSeverityMax = nil
		row.EventEntityImpact = nil
		row.EventImpactMagnitude = nil

		if len(active) > 0 {
			maxSev := active[0].Severity
			for _, e := range active[1:] {
				if e.Severity.Ordinal() > maxSev.Ordinal() {
					maxSev = e.Severity
				}
			}
			row.EventSeverityMax = &maxSev

			// Impact attribution scans active events newest-first (ties
			// break toward the lowest event ID) and falls through to older
			// events until one carries a record. Entity-specific records
			// beat category fallbacks regardless of event recency.
			sort.Slice(active, func(i, j int) bool {
				if !active[i].StartDate.Equal(active[j].StartDate) {
					return active[i].StartDate.After(active[j].StartDate)
				}
				return active[i].EventID < active[j].EventID
			})

			for _, e := range active {
				if dir, ok := entityDirs[e.EventID][row.EntityID]; ok {
					row.EventEntityImpact = &dir
					break
				}
			}
			if row.EventEntityImpact == nil {
				for _, e := range active {
					if catImpact, ok := categoryByEvent[e.EventID][row.EntityCategory]; ok {
						dir := catImpact.Direction
						row.EventEntityImpact = &dir
						break
					}
				}
			}

			// The magnitude stays keyed to the most recently started active
			// event's category record, whichever event won attribution.
			if catImpact, ok := categoryByEvent[active[0].EventID][row.EntityCategory]; ok {
				if catImpact.TypicalMagnitude != nil {
					mag := *catImpact.TypicalMagnitude
					row.EventImpactMagnitude = &mag
				}
			}
		}

		out = append(out, row)
	}

	return out
}
