package domain

// EntityMetadata holds the static classification of one economic entity.
// Entities without a metadata record are excluded from aggregation; their
// count is surfaced through the quality report rather than silently dropped.
type EntityMetadata struct {
	EntityID           int64
	Category           string   // category slug (e.g. "consumable", "material")
	SubTag             *string  // finer-grained tag; nil if unclassified below category
	IsTransferable     bool     // expected to have an analogue in the target domain
	HasTransferMapping bool     // a cross-domain mapping exists for this entity
	TransferConfidence *float64 // max confidence across mappings; nil without a mapping
}
