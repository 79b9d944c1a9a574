package domain

// FeatureRow is a DailySeriesPoint progressively enriched by the feature
// engines. Keyed by (EntityID, GroupID, Date); the key must be unique across
// the assembled output. Engines never mutate input rows in place — each stage
// returns new copies.
//
// Window-parameterized columns (lags, rolling stats, momentum, targets) are
// keyed by their day count so the set of columns follows FeatureConfig; the
// registry resolves names like "price_lag_7d" to Lags[7].
type FeatureRow struct {
	DailySeriesPoint

	// Lag / rolling / momentum / target features, keyed by window days.
	Lags       map[int]*float64 // price_mean exactly N calendar days prior
	RollMeans  map[int]*float64 // rolling mean over the last N calendar days
	RollStds   map[int]*float64 // rolling std-dev over the last N calendar days
	PctChanges map[int]*float64 // (price - lag(N)) / lag(N)
	Targets    map[int]*float64 // price_mean exactly H calendar days forward

	// Event proximity features (leakage-guarded).
	EventActive          bool
	EventDaysToNext      *float64
	EventDaysSinceLast   *float64
	EventSeverityMax     *Severity
	EventEntityImpact    *ImpactDirection
	EventImpactMagnitude *float64
	DaysUntilMajorEvent  *float64
	IsPreEventWindow     bool

	// Entity / transfer features (static within one series).
	EntityCategory     string
	EntitySubTag       *string
	IsTransferable     bool
	IsColdStart        bool
	ItemCountInEntity  int
	HasTransferMapping bool
	TransferConfidence *float64

	// Calendar features.
	DayOfWeek       int  // ISO weekday, 1=Mon .. 7=Sun
	DayOfMonth      int  // 1..31
	WeekOfYear      int  // ISO week number 1..53
	DaysSinceAnchor *int // days since the anchor event; nil if none known
}

// Clone returns a deep copy of the row. The window maps are copied so a
// downstream stage can extend them without aliasing the input.
func (r *FeatureRow) Clone() *FeatureRow {
	out := *r
	out.Lags = cloneWindowMap(r.Lags)
	out.RollMeans = cloneWindowMap(r.RollMeans)
	out.RollStds = cloneWindowMap(r.RollStds)
	out.PctChanges = cloneWindowMap(r.PctChanges)
	out.Targets = cloneWindowMap(r.Targets)
	return &out
}

func cloneWindowMap(m map[int]*float64) map[int]*float64 {
	if m == nil {
		return nil
	}
	out := make(map[int]*float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
