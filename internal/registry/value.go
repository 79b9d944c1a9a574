package registry

import (
	"errors"
	"fmt"

	"commodity-feature-lab/internal/domain"
)

// ErrSchemaViolation marks a row that cannot legally be rendered: a nil
// value in a non-nullable column, or a column kind the registry knows but
// the extraction switch does not. Unlike quality warnings this aborts the
// build — a corrupted artifact is worse than no artifact.
var ErrSchemaViolation = errors.New("schema violation")

// Value extracts the column value for spec s from row r. The result is one
// of int64, float64, bool, string, time.Time, or nil for a legal null.
func Value(r *domain.FeatureRow, s FeatureSpec) (any, error) {
	v := rawValue(r, s)
	if v == unknownKind {
		return nil, fmt.Errorf("%w: no extraction for column %q (kind %q)",
			ErrSchemaViolation, s.Name, s.Kind)
	}
	if v == nil && !s.Nullable {
		return nil, fmt.Errorf("%w: null in non-nullable column %q (entity %d, %s)",
			ErrSchemaViolation, s.Name, r.EntityID, r.Date.Format("2006-01-02"))
	}
	return v, nil
}

// unknownKind is a sentinel distinguishing "legal null" from "the switch
// has no case for this kind".
var unknownKind any = struct{ unknown bool }{true}

func rawValue(r *domain.FeatureRow, s FeatureSpec) any {
	switch s.Kind {
	case KindEntityID:
		return r.EntityID
	case KindGroupID:
		return r.GroupID
	case KindCalendarDate:
		return r.Date
	case KindPriceMean:
		return deref(r.PriceMean)
	case KindPriceMin:
		return deref(r.PriceMin)
	case KindPriceMax:
		return deref(r.PriceMax)
	case KindMarketValueMean:
		return deref(r.MarketValueMean)
	case KindHistoricalValueMean:
		return deref(r.HistoricalValueMean)
	case KindObsCount:
		return int64(r.ObsCount)
	case KindQuantitySum:
		return deref(r.QuantitySum)
	case KindListingSum:
		return deref(r.ListingSum)
	case KindIsVolumeProxy:
		return r.IsVolumeProxy
	case KindLag:
		return deref(r.Lags[s.Window])
	case KindRollMean:
		return deref(r.RollMeans[s.Window])
	case KindRollStd:
		return deref(r.RollStds[s.Window])
	case KindPctChange:
		return deref(r.PctChanges[s.Window])
	case KindDayOfWeek:
		return int64(r.DayOfWeek)
	case KindDayOfMonth:
		return int64(r.DayOfMonth)
	case KindWeekOfYear:
		return int64(r.WeekOfYear)
	case KindDaysSinceAnchor:
		if r.DaysSinceAnchor == nil {
			return nil
		}
		return int64(*r.DaysSinceAnchor)
	case KindEventActive:
		return r.EventActive
	case KindEventDaysToNext:
		return deref(r.EventDaysToNext)
	case KindEventDaysSinceLast:
		return deref(r.EventDaysSinceLast)
	case KindEventSeverityMax:
		if r.EventSeverityMax == nil {
			return nil
		}
		return string(*r.EventSeverityMax)
	case KindEventEntityImpact:
		if r.EventEntityImpact == nil {
			return nil
		}
		return string(*r.EventEntityImpact)
	case KindEventImpactMag:
		return deref(r.EventImpactMagnitude)
	case KindDaysUntilMajorEvent:
		return deref(r.DaysUntilMajorEvent)
	case KindIsPreEventWindow:
		return r.IsPreEventWindow
	case KindEntityCategory:
		return r.EntityCategory
	case KindEntitySubTag:
		if r.EntitySubTag == nil {
			return nil
		}
		return *r.EntitySubTag
	case KindIsTransferable:
		return r.IsTransferable
	case KindIsColdStart:
		return r.IsColdStart
	case KindItemCount:
		return int64(r.ItemCountInEntity)
	case KindHasTransferMapping:
		return r.HasTransferMapping
	case KindTransferConfidence:
		return deref(r.TransferConfidence)
	case KindTarget:
		return deref(r.Targets[s.Window])
	}
	return unknownKind
}

func deref(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
