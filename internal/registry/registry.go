// Package registry defines the schema contract for the feature artifacts.
// It is the single source of truth for every column in the training and
// inference tables: all feature engines produce values the registry can
// resolve, and the dataset assembler validates rows against it before
// writing anything.
package registry

import (
	"fmt"

	"commodity-feature-lab/internal/domain"
)

// ColumnType is the artifact-level type of a feature column.
type ColumnType string

// Column types.
const (
	TypeInt64   ColumnType = "int64"
	TypeFloat64 ColumnType = "float64"
	TypeBool    ColumnType = "bool"
	TypeString  ColumnType = "string"
	TypeDate    ColumnType = "date"
)

// Kind identifies how a column's value is extracted from a FeatureRow.
// Window-parameterized kinds (lag, rolling, momentum, target) carry the day
// count in FeatureSpec.Window.
type Kind string

// Column kinds.
const (
	KindEntityID            Kind = "entity_id"
	KindGroupID             Kind = "group_id"
	KindCalendarDate        Kind = "calendar_date"
	KindPriceMean           Kind = "price_mean"
	KindPriceMin            Kind = "price_min"
	KindPriceMax            Kind = "price_max"
	KindMarketValueMean     Kind = "market_value_mean"
	KindHistoricalValueMean Kind = "historical_value_mean"
	KindObsCount            Kind = "obs_count"
	KindQuantitySum         Kind = "quantity_sum"
	KindListingSum          Kind = "listing_sum"
	KindIsVolumeProxy       Kind = "is_volume_proxy"
	KindLag                 Kind = "lag"
	KindRollMean            Kind = "roll_mean"
	KindRollStd             Kind = "roll_std"
	KindPctChange           Kind = "pct_change"
	KindDayOfWeek           Kind = "day_of_week"
	KindDayOfMonth          Kind = "day_of_month"
	KindWeekOfYear          Kind = "week_of_year"
	KindDaysSinceAnchor     Kind = "days_since_anchor"
	KindEventActive         Kind = "event_active"
	KindEventDaysToNext     Kind = "event_days_to_next"
	KindEventDaysSinceLast  Kind = "event_days_since_last"
	KindEventSeverityMax    Kind = "event_severity_max"
	KindEventEntityImpact   Kind = "event_entity_impact"
	KindEventImpactMag      Kind = "event_impact_magnitude"
	KindDaysUntilMajorEvent Kind = "days_until_major_event"
	KindIsPreEventWindow    Kind = "is_pre_event_window"
	KindEntityCategory      Kind = "entity_category"
	KindEntitySubTag        Kind = "entity_sub_tag"
	KindIsTransferable      Kind = "is_transferable"
	KindIsColdStart         Kind = "is_cold_start"
	KindItemCount           Kind = "item_count_in_entity"
	KindHasTransferMapping  Kind = "has_transfer_mapping"
	KindTransferConfidence  Kind = "transfer_confidence"
	KindTarget              Kind = "target"
)

// FeatureSpec describes one column of the output schema.
type FeatureSpec struct {
	Name     string     // column name in the artifacts
	Type     ColumnType // artifact-level type
	Group    string     // logical group (id, price, volume, lag, ...)
	Nullable bool       // whether null values are allowed
	IsTarget bool       // forward-looking label; excluded from inference
	Kind     Kind       // extraction kind
	Window   int        // day count for window-parameterized kinds
}

// Registry is an ordered, validated set of feature specs. Column order in
// the artifacts follows registry order.
type Registry struct {
	specs  []FeatureSpec
	byName map[string]int
}

// New builds the registry for a feature configuration. The fixed columns are
// always present; lag, rolling, momentum, and target columns are derived from
// the config's window lists. Returns an error on duplicate column names
// (e.g. a window listed twice).
func New(cfg domain.FeatureConfig) (*Registry, error) {
	specs := []FeatureSpec{
		// Identifiers / keys.
		{Name: "entity_id", Type: TypeInt64, Group: "id", Kind: KindEntityID},
		{Name: "group_id", Type: TypeString, Group: "id", Kind: KindGroupID},
		{Name: "calendar_date", Type: TypeDate, Group: "id", Kind: KindCalendarDate},

		// Daily price summary.
		{Name: "price_mean", Type: TypeFloat64, Group: "price", Nullable: true, Kind: KindPriceMean},
		{Name: "price_min", Type: TypeFloat64, Group: "price", Nullable: true, Kind: KindPriceMin},
		{Name: "price_max", Type: TypeFloat64, Group: "price", Nullable: true, Kind: KindPriceMax},
		{Name: "market_value_mean", Type: TypeFloat64, Group: "price", Nullable: true, Kind: KindMarketValueMean},
		{Name: "historical_value_mean", Type: TypeFloat64, Group: "price", Nullable: true, Kind: KindHistoricalValueMean},
		{Name: "obs_count", Type: TypeInt64, Group: "price", Kind: KindObsCount},

		// Volume / velocity.
		{Name: "quantity_sum", Type: TypeFloat64, Group: "volume", Nullable: true, Kind: KindQuantitySum},
		{Name: "listing_sum", Type: TypeFloat64, Group: "volume", Nullable: true, Kind: KindListingSum},
		{Name: "is_volume_proxy", Type: TypeBool, Group: "volume", Kind: KindIsVolumeProxy},
	}

	for _, n := range cfg.LagDays {
		specs = append(specs, FeatureSpec{
			Name: fmt.Sprintf("price_lag_%dd", n), Type: TypeFloat64,
			Group: "lag", Nullable: true, Kind: KindLag, Window: n,
		})
	}
	for _, n := range cfg.RollingWindows {
		specs = append(specs,
			FeatureSpec{
				Name: fmt.Sprintf("price_roll_mean_%dd", n), Type: TypeFloat64,
				Group: "rolling", Nullable: true, Kind: KindRollMean, Window: n,
			},
			FeatureSpec{
				Name: fmt.Sprintf("price_roll_std_%dd", n), Type: TypeFloat64,
				Group: "rolling", Nullable: true, Kind: KindRollStd, Window: n,
			},
		)
	}
	for _, n := range cfg.RollingWindows {
		specs = append(specs, FeatureSpec{
			Name: fmt.Sprintf("price_pct_change_%dd", n), Type: TypeFloat64,
			Group: "momentum", Nullable: true, Kind: KindPctChange, Window: n,
		})
	}

	specs = append(specs,
		// Calendar.
		FeatureSpec{Name: "day_of_week", Type: TypeInt64, Group: "calendar", Kind: KindDayOfWeek},
		FeatureSpec{Name: "day_of_month", Type: TypeInt64, Group: "calendar", Kind: KindDayOfMonth},
		FeatureSpec{Name: "week_of_year", Type: TypeInt64, Group: "calendar", Kind: KindWeekOfYear},
		FeatureSpec{Name: "days_since_anchor", Type: TypeInt64, Group: "calendar", Nullable: true, Kind: KindDaysSinceAnchor},

		// Event proximity (leakage-guarded).
		FeatureSpec{Name: "event_active", Type: TypeBool, Group: "event", Kind: KindEventActive},
		FeatureSpec{Name: "event_days_to_next", Type: TypeFloat64, Group: "event", Nullable: true, Kind: KindEventDaysToNext},
		FeatureSpec{Name: "event_days_since_last", Type: TypeFloat64, Group: "event", Nullable: true, Kind: KindEventDaysSinceLast},
		FeatureSpec{Name: "event_severity_max", Type: TypeString, Group: "event", Nullable: true, Kind: KindEventSeverityMax},
		FeatureSpec{Name: "event_entity_impact", Type: TypeString, Group: "event", Nullable: true, Kind: KindEventEntityImpact},
		FeatureSpec{Name: "event_impact_magnitude", Type: TypeFloat64, Group: "event", Nullable: true, Kind: KindEventImpactMag},
		FeatureSpec{Name: "days_until_major_event", Type: TypeFloat64, Group: "event", Nullable: true, Kind: KindDaysUntilMajorEvent},
		FeatureSpec{Name: "is_pre_event_window", Type: TypeBool, Group: "event", Kind: KindIsPreEventWindow},

		// Entity classification.
		FeatureSpec{Name: "entity_category", Type: TypeString, Group: "archetype", Kind: KindEntityCategory},
		FeatureSpec{Name: "entity_sub_tag", Type: TypeString, Group: "archetype", Nullable: true, Kind: KindEntitySubTag},
		FeatureSpec{Name: "is_transferable", Type: TypeBool, Group: "archetype", Kind: KindIsTransferable},
		FeatureSpec{Name: "is_cold_start", Type: TypeBool, Group: "archetype", Kind: KindIsColdStart},
		FeatureSpec{Name: "item_count_in_entity", Type: TypeInt64, Group: "archetype", Kind: KindItemCount},

		// Transfer learning.
		FeatureSpec{Name: "has_transfer_mapping", Type: TypeBool, Group: "transfer", Kind: KindHasTransferMapping},
		FeatureSpec{Name: "transfer_confidence", Type: TypeFloat64, Group: "transfer", Nullable: true, Kind: KindTransferConfidence},
	)

	// Forward-looking labels. Training artifact only; the assembler's
	// two-artifact split keeps them out of every inference feature vector.
	for _, h := range cfg.TargetHorizonsDays {
		specs = append(specs, FeatureSpec{
			Name: fmt.Sprintf("target_price_%dd", h), Type: TypeFloat64,
			Group: "target", Nullable: true, IsTarget: true, Kind: KindTarget, Window: h,
		})
	}

	byName := make(map[string]int, len(specs))
	for i, s := range specs {
		if _, dup := byName[s.Name]; dup {
			return nil, fmt.Errorf("registry: duplicate column name %q", s.Name)
		}
		byName[s.Name] = i
	}

	return &Registry{specs: specs, byName: byName}, nil
}

// Specs returns all specs in artifact column order.
func (r *Registry) Specs() []FeatureSpec {
	return r.specs
}

// TrainingColumns returns every spec, including targets.
func (r *Registry) TrainingColumns() []FeatureSpec {
	return r.specs
}

// InferenceColumns returns every non-target spec.
func (r *Registry) InferenceColumns() []FeatureSpec {
	out := make([]FeatureSpec, 0, len(r.specs))
	for _, s := range r.specs {
		if !s.IsTarget {
			out = append(out, s)
		}
	}
	return out
}

// TargetNames returns the names of the forward-looking label columns.
func (r *Registry) TargetNames() []string {
	var out []string
	for _, s := range r.specs {
		if s.IsTarget {
			out = append(out, s.Name)
		}
	}
	return out
}

// Names returns column names, optionally filtered to one group. Pass "" for
// all columns.
func (r *Registry) Names(group string) []string {
	var out []string
	for _, s := range r.specs {
		if group == "" || s.Group == group {
			out = append(out, s.Name)
		}
	}
	return out
}

// Spec returns the spec for a column name.
func (r *Registry) Spec(name string) (FeatureSpec, bool) {
	i, ok := r.byName[name]
	if !ok {
		return FeatureSpec{}, false
	}
	return r.specs[i], true
}

// Groups returns unique group names in registry order.
func (r *Registry) Groups() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, s := range r.specs {
		if _, ok := seen[s.Group]; !ok {
			seen[s.Group] = struct{}{}
			out = append(out, s.Group)
		}
	}
	return out
}
