package features

import (
	"time"

	"commodity-feature-lab/internal/domain"
)

// ComputeCalendar stamps calendar columns onto each row. The anchor is the
// start date of the catalog's anchor event (a league or season launch);
// days_since_anchor stays nil before it or when no anchor is known.
func ComputeCalendar(rows []*domain.FeatureRow, anchor *time.Time) []*domain.FeatureRow {
	out := make([]*domain.FeatureRow, 0, len(rows))
	for _, r := range rows {
		row := r.Clone()

		row.DayOfWeek = isoWeekday(row.Date)
		row.DayOfMonth = row.Date.Day()
		_, row.WeekOfYear = row.Date.ISOWeek()

		row.DaysSinceAnchor = nil
		if anchor != nil && !row.Date.Before(*anchor) {
			d := domain.DaysBetween(*anchor, row.Date)
			row.DaysSinceAnchor = &d
		}

		out = append(out, row)
	}

	return out
}

// isoWeekday maps Go's Sunday=0 weekday to ISO 1=Monday..7=Sunday.
func isoWeekday(d time.Time) int {
	wd := int(d.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// AnchorDate returns the start date of the first anchor-flagged event, or nil
// when the catalog has none.
func AnchorDate(events []*domain.EventRecord) *time.Time {
	for _, e := range events {
		if e.IsAnchor {
			d := e.StartDate
			return &d
		}
	}
	return nil
}
