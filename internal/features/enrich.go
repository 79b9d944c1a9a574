package features

import "commodity-feature-lab/internal/domain"

// fallbackCategory is stamped when an entity somehow reaches enrichment
// without metadata. The aggregator filters unclassified entities, so this
// only shows up if the two stores drift between loads.
const fallbackCategory = "unknown"

// EnrichEntities stamps static classification and transfer-learning columns
// onto each row. These values are constant within one (entity, group) series:
// they come from the metadata record and whole-history observation counts,
// not from the row's date.
func EnrichEntities(
	rows []*domain.FeatureRow,
	metadata map[int64]*domain.EntityMetadata,
	obsCounts map[int64]int,
	itemCounts map[int64]int,
	coldStartThreshold int,
) []*domain.FeatureRow {
	out := make([]*domain.FeatureRow, 0, len(rows))
	for _, r := range rows {
		row := r.Clone()

		if m, ok := metadata[row.EntityID]; ok {
			row.EntityCategory = m.Category
			row.EntitySubTag = m.SubTag
			row.IsTransferable = m.IsTransferable
			row.HasTransferMapping = m.HasTransferMapping
			row.TransferConfidence = m.TransferConfidence
		} else {
			row.EntityCategory = fallbackCategory
		}

		row.IsColdStart = obsCounts[row.EntityID] < coldStartThreshold
		row.ItemCountInEntity = itemCounts[row.EntityID]

		out = append(out, row)
	}

	return out
}
