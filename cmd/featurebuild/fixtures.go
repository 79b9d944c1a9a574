package main

import (
	"context"
	"fmt"
	"math"
	"time"

	"commodity-feature-lab/internal/domain"
	"commodity-feature-lab/internal/storage/memory"
)

// loadFixtures seeds the memory stores with a small synthetic market: three
// classified entities across two groups, ninety days of scans, and an
// announced anchor event. Enough to exercise every feature family end to end.
func loadFixtures(ctx context.Context, obs *memory.ObservationStore, meta *memory.EntityMetadataStore, events *memory.EventStore) error {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	firstDay := today.AddDate(0, 0, -89)

	metadata := []*domain.EntityMetadata{
		{EntityID: 1, Category: "material", SubTag: strPtr("ore"), IsTransferable: true, HasTransferMapping: true, TransferConfidence: f64Ptr(0.9)},
		{EntityID: 2, Category: "consumable", IsTransferable: true},
		{EntityID: 3, Category: "equipment", SubTag: strPtr("weapon")},
	}
	for _, m := range metadata {
		if err := meta.Insert(ctx, m); err != nil {
			return fmt.Errorf("seed metadata for entity %d: %w", m.EntityID, err)
		}
	}

	var scans []*domain.RawObservation
	for _, groupID := range []string{"standard", "hardcore"} {
		groupScale := 1.0
		if groupID == "hardcore" {
			groupScale = 1.6
		}
		for _, m := range metadata {
			base := 40.0 * float64(m.EntityID) * groupScale
			for d := 0; d < 90; d++ {
				// Entity 3 trades thinly: two scans out of three days.
				if m.EntityID == 3 && d%3 == 0 {
					continue
				}
				day := firstDay.AddDate(0, 0, d)
				price := base * (1 + 0.1*math.Sin(float64(d)/7))
				scan := &domain.RawObservation{
					EntityID:   m.EntityID,
					GroupID:    groupID,
					ItemID:     m.EntityID * 100,
					ObservedAt: day.Add(9 * time.Hour),
					Price:      price,
				}
				if m.EntityID != 3 {
					scan.QuantityListed = f64Ptr(100 + 10*float64(d%5))
					scan.ListingCount = i64Ptr(int64(5 + d%3))
				}
				scans = append(scans, scan)
			}
		}
	}
	if err := obs.InsertBulk(ctx, scans); err != nil {
		return fmt.Errorf("seed observations: %w", err)
	}

	leagueStart := today.AddDate(0, 0, -30)
	leagueAnnounced := today.AddDate(0, 0, -45)
	patchStart := today.AddDate(0, 0, 5)
	patchAnnounced := today.AddDate(0, 0, -3)

	catalog := []*domain.EventRecord{
		{
			Slug:        "season-league",
			DisplayName: "Season League",
			EventType:   "league_start",
			Severity:    domain.SeverityMajor,
			StartDate:   leagueStart,
			AnnouncedAt: &leagueAnnounced,
			IsAnchor:    true,
		},
		{
			Slug:        "balance-patch",
			DisplayName: "Balance Patch",
			EventType:   "patch",
			Severity:    domain.SeverityModerate,
			StartDate:   patchStart,
			AnnouncedAt: &patchAnnounced,
		},
	}
	if err := events.InsertEvents(ctx, catalog); err != nil {
		return fmt.Errorf("seed events: %w", err)
	}

	seeded, err := events.AnnouncedEvents(ctx)
	if err != nil {
		return fmt.Errorf("read seeded events: %w", err)
	}
	idBySlug := make(map[string]int64, len(seeded))
	for _, e := range seeded {
		idBySlug[e.Slug] = e.EventID
	}

	entityImpacts := []*domain.EntityImpact{
		{EventID: idBySlug["season-league"], EntityID: 1, Direction: domain.ImpactSpike, LagDays: intPtr(1), DurationDays: intPtr(14)},
	}
	if err := events.InsertEntityImpacts(ctx, entityImpacts); err != nil {
		return fmt.Errorf("seed entity impacts: %w", err)
	}

	categoryImpacts := []*domain.CategoryImpact{
		{EventID: idBySlug["season-league"], Category: "consumable", Direction: domain.ImpactSpike, TypicalMagnitude: f64Ptr(0.25)},
		{EventID: idBySlug["balance-patch"], Category: "equipment", Direction: domain.ImpactCrash, TypicalMagnitude: f64Ptr(0.15)},
	}
	if err := events.InsertCategoryImpacts(ctx, categoryImpacts); err != nil {
		return fmt.Errorf("seed category impacts: %w", err)
	}

	return nil
}

func strPtr(s string) *string   { return &s }
func f64Ptr(v float64) *float64 { return &v }
func i64Ptr(v int64) *int64     { return &v }
func intPtr(v int) *int         { return &v }
