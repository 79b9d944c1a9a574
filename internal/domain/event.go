package domain

import "time"

// Severity is the expected magnitude of market impact for an event.
type Severity string

// Severity levels, lowest to highest.
const (
	SeverityNegligible Severity = "negligible"
	SeverityMinor      Severity = "minor"
	SeverityModerate   Severity = "moderate"
	SeverityMajor      Severity = "major"
	SeverityCritical   Severity = "critical"
)

var severityOrdinals = map[Severity]int{
	SeverityNegligible: 0,
	SeverityMinor:      1,
	SeverityModerate:   2,
	SeverityMajor:      3,
	SeverityCritical:   4,
}

// Ordinal returns the severity rank (0..4). Unknown severities rank lowest.
func (s Severity) Ordinal() int {
	return severityOrdinals[s]
}

// IsValid reports whether s is a known severity level.
func (s Severity) IsValid() bool {
	_, ok := severityOrdinals[s]
	return ok
}

// IsMajorOrAbove reports whether s is in the major-or-above tier.
func (s Severity) IsMajorOrAbove() bool {
	return s.Ordinal() >= severityOrdinals[SeverityMajor]
}

// ImpactDirection describes expected price movement for an entity or
// category during an event.
type ImpactDirection string

// Impact directions.
const (
	ImpactSpike   ImpactDirection = "spike"
	ImpactCrash   ImpactDirection = "crash"
	ImpactMixed   ImpactDirection = "mixed"
	ImpactNeutral ImpactDirection = "neutral"
)

// IsValid reports whether d is a known impact direction.
func (d ImpactDirection) IsValid() bool {
	switch d {
	case ImpactSpike, ImpactCrash, ImpactMixed, ImpactNeutral:
		return true
	}
	return false
}

// EventRecord is a dated market event from the event catalog.
//
// AnnouncedAt is the look-ahead-bias guard: an event with a nil AnnouncedAt
// must never influence any feature, regardless of its date range. The event
// store's read path enforces that filter (Layer 1); IsKnownAt is the per-row
// gate (Layer 2).
type EventRecord struct {
	EventID     int64
	Slug        string     // unique machine-readable identifier
	DisplayName string     // human-readable name
	EventType   string     // catalog event type slug
	Severity    Severity   // expected impact magnitude
	StartDate   time.Time  // first active day (UTC midnight)
	EndDate     *time.Time // last active day; nil if ongoing/unknown
	AnnouncedAt *time.Time // public announcement instant (UTC); nil = unknown
	IsAnchor    bool       // anchors the days_since_anchor calendar feature
	Notes       *string
}

// IsKnownAt reports whether the event was publicly announced at or before
// asOf. A nil AnnouncedAt is conservatively treated as unknown — it is better
// to under-use event features than to leak future information.
func (e *EventRecord) IsKnownAt(asOf time.Time) bool {
	if e.AnnouncedAt == nil {
		return false
	}
	return !e.AnnouncedAt.After(asOf)
}

// IsActiveOn reports whether d falls within the event's active window.
func (e *EventRecord) IsActiveOn(d time.Time) bool {
	if d.Before(e.StartDate) {
		return false
	}
	if e.EndDate != nil && d.After(*e.EndDate) {
		return false
	}
	return true
}

// EffectiveEnd returns the event's end date, falling back to the start date
// for events without one.
func (e *EventRecord) EffectiveEnd() time.Time {
	if e.EndDate != nil {
		return *e.EndDate
	}
	return e.StartDate
}

// EntityImpact records the expected impact direction of an event on one
// specific entity.
type EntityImpact struct {
	EventID      int64
	EntityID     int64
	Direction    ImpactDirection
	LagDays      *int // days until the impact typically materializes
	DurationDays *int // how long the impact typically persists
}

// CategoryImpact records the typical impact of an event on a whole entity
// category, including the typical magnitude of the price move.
type CategoryImpact struct {
	EventID          int64
	Category         string
	Direction        ImpactDirection
	TypicalMagnitude *float64 // typical fractional price move, nil if unknown
	LagDays          *int
	DurationDays     *int
}
