package features

import (
	"testing"

	"commodity-feature-lab/internal/domain"
)

func TestEnrichEntities_StampsMetadata(t *testing.T) {
	sub := "currency"
	conf := 0.9
	metadata := map[int64]*domain.EntityMetadata{
		1: {
			EntityID:           1,
			Category:           "material",
			SubTag:             &sub,
			IsTransferable:     true,
			HasTransferMapping: true,
			TransferConfidence: &conf,
		},
	}
	rows := []*domain.FeatureRow{
		featureRow(1, 10, ""),
		featureRow(1, 11, ""),
	}

	out := EnrichEntities(rows, metadata, map[int64]int{1: 100}, map[int64]int{1: 4}, 30)

	for _, r := range out {
		if r.EntityCategory != "material" {
			t.Errorf("Expected category material, got %s", r.EntityCategory)
		}
		if r.EntitySubTag == nil || *r.EntitySubTag != "currency" {
			t.Errorf("Expected sub tag currency, got %v", r.EntitySubTag)
		}
		if !r.IsTransferable || !r.HasTransferMapping {
			t.Error("Transfer flags not stamped")
		}
		if r.TransferConfidence == nil || *r.TransferConfidence != 0.9 {
			t.Errorf("Expected confidence 0.9, got %v", r.TransferConfidence)
		}
		if r.ItemCountInEntity != 4 {
			t.Errorf("Expected item count 4, got %d", r.ItemCountInEntity)
		}
	}
}

func TestEnrichEntities_StaticWithinSeries(t *testing.T) {
	metadata := map[int64]*domain.EntityMetadata{
		1: {EntityID: 1, Category: "material"},
	}
	rows := []*domain.FeatureRow{
		featureRow(1, 10, ""),
		featureRow(1, 20, ""),
	}

	out := EnrichEntities(rows, metadata, map[int64]int{1: 50}, nil, 30)

	if out[0].EntityCategory != out[1].EntityCategory {
		t.Error("Category varies within one series")
	}
	if out[0].IsColdStart != out[1].IsColdStart {
		t.Error("Cold-start flag varies within one series")
	}
}

func TestEnrichEntities_ColdStartThreshold(t *testing.T) {
	metadata := map[int64]*domain.EntityMetadata{
		1: {EntityID: 1, Category: "material"},
		2: {EntityID: 2, Category: "material"},
		3: {EntityID: 3, Category: "material"},
	}
	rows := []*domain.FeatureRow{
		featureRow(1, 10, ""),
		featureRow(2, 10, ""),
		featureRow(3, 10, ""),
	}
	obsCounts := map[int64]int{1: 29, 2: 30, 3: 100}

	out := EnrichEntities(rows, metadata, obsCounts, nil, 30)

	if !out[0].IsColdStart {
		t.Error("Entity below threshold not flagged cold start")
	}
	if out[1].IsColdStart {
		t.Error("Entity at threshold flagged cold start")
	}
	if out[2].IsColdStart {
		t.Error("Entity above threshold flagged cold start")
	}
}

func TestEnrichEntities_MissingMetadataFallback(t *testing.T) {
	rows := []*domain.FeatureRow{featureRow(7, 10, "")}

	out := EnrichEntities(rows, map[int64]*domain.EntityMetadata{}, nil, nil, 30)

	if out[0].EntityCategory != "unknown" {
		t.Errorf("Expected fallback category unknown, got %s", out[0].EntityCategory)
	}
	if out[0].EntitySubTag != nil {
		t.Errorf("Expected nil sub tag, got %v", *out[0].EntitySubTag)
	}
	if !out[0].IsColdStart {
		t.Error("Entity with no observation count should be cold start")
	}
}
