package events

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"commodity-feature-lab/internal/domain"
	"commodity-feature-lab/internal/storage/memory"
)

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("Write %s failed: %v", name, err)
	}
	return path
}

const eventsHeader = "slug,display_name,event_type,severity,start_date,end_date,announced_at,is_anchor,notes\n"

func TestLoadCatalog_Full(t *testing.T) {
	dir := t.TempDir()
	eventsPath := writeFile(t, dir, "events.csv", eventsHeader+
		"spring-league,Spring League,league_start,major,2024-04-01,2024-07-01,2024-03-20T15:00:00Z,true,seasonal reset\n"+
		"balance-patch,Balance Patch,patch,moderate,2024-05-10,,2024-05-10,,\n")
	entityPath := writeFile(t, dir, "entity_impacts.csv",
		"event_slug,entity_id,direction,lag_days,duration_days\n"+
			"spring-league,42,spike,1,14\n")
	categoryPath := writeFile(t, dir, "category_impacts.csv",
		"event_slug,category,direction,typical_magnitude,lag_days,duration_days\n"+
			"balance-patch,consumable,crash,0.3,,7\n")

	c, err := LoadCatalog(eventsPath, entityPath, categoryPath)
	if err != nil {
		t.Fatalf("LoadCatalog failed: %v", err)
	}

	if len(c.Events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(c.Events))
	}

	spring := c.Events[0]
	if spring.Slug != "spring-league" || spring.Severity != domain.SeverityMajor {
		t.Errorf("Unexpected first event: %+v", spring)
	}
	if !spring.IsAnchor {
		t.Error("is_anchor not parsed")
	}
	if spring.AnnouncedAt == nil || spring.AnnouncedAt.Hour() != 15 {
		t.Errorf("announced_at not parsed as RFC 3339: %v", spring.AnnouncedAt)
	}
	if spring.Notes == nil || *spring.Notes != "seasonal reset" {
		t.Errorf("notes not parsed: %v", spring.Notes)
	}

	patch := c.Events[1]
	if patch.EndDate != nil {
		t.Errorf("Expected open end date, got %v", patch.EndDate)
	}
	if patch.AnnouncedAt == nil {
		t.Error("Bare-date announced_at not parsed")
	}

	if len(c.EntityImpacts) != 1 {
		t.Fatalf("Expected 1 entity impact, got %d", len(c.EntityImpacts))
	}
	if c.EntityImpacts[0].EventID != spring.EventID {
		t.Errorf("Entity impact not resolved to spring-league's ID: %d", c.EntityImpacts[0].EventID)
	}
	if c.EntityImpacts[0].LagDays == nil || *c.EntityImpacts[0].LagDays != 1 {
		t.Errorf("lag_days not parsed: %v", c.EntityImpacts[0].LagDays)
	}

	if len(c.CategoryImpacts) != 1 {
		t.Fatalf("Expected 1 category impact, got %d", len(c.CategoryImpacts))
	}
	ci := c.CategoryImpacts[0]
	if ci.EventID != patch.EventID || ci.Category != "consumable" {
		t.Errorf("Unexpected category impact: %+v", ci)
	}
	if ci.TypicalMagnitude == nil || *ci.TypicalMagnitude != 0.3 {
		t.Errorf("typical_magnitude not parsed: %v", ci.TypicalMagnitude)
	}
}

func TestLoadCatalog_EventsOnly(t *testing.T) {
	dir := t.TempDir()
	eventsPath := writeFile(t, dir, "events.csv", eventsHeader+
		"solo-event,Solo,patch,minor,2024-04-01,,,,\n")

	c, err := LoadCatalog(eventsPath, "", "")
	if err != nil {
		t.Fatalf("LoadCatalog failed: %v", err)
	}
	if len(c.Events) != 1 || len(c.EntityImpacts) != 0 || len(c.CategoryImpacts) != 0 {
		t.Errorf("Unexpected catalog: %+v", c)
	}
	// No announcement timestamp: stored but conservatively unusable.
	if c.Events[0].AnnouncedAt != nil {
		t.Error("Expected nil announced_at")
	}
}

func TestLoadCatalog_Validation(t *testing.T) {
	dir := t.TempDir()

	cases := []struct {
		name string
		row  string
		want string
	}{
		{"duplicate slug", "a,A,patch,minor,2024-04-01,,,,\na,A,patch,minor,2024-04-02,,,,", "duplicate slug"},
		{"bad severity", "a,A,patch,huge,2024-04-01,,,,", "unknown severity"},
		{"end before start", "a,A,patch,minor,2024-04-10,2024-04-01,,,", "end_date before start_date"},
		{"bad date", "a,A,patch,minor,04/01/2024,,,,", "start_date"},
		{"empty slug", ",A,patch,minor,2024-04-01,,,,", "empty slug"},
	}

	for _, tc := range cases {
		path := writeFile(t, dir, "bad.csv", eventsHeader+tc.row+"\n")
		_, err := LoadCatalog(path, "", "")
		if err == nil {
			t.Errorf("%s: expected error", tc.name)
			continue
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Errorf("%s: expected %q in error, got %v", tc.name, tc.want, err)
		}
	}
}

func TestLoadCatalog_UnknownSlugInImpacts(t *testing.T) {
	dir := t.TempDir()
	eventsPath := writeFile(t, dir, "events.csv", eventsHeader+
		"a,A,patch,minor,2024-04-01,,,,\n")
	entityPath := writeFile(t, dir, "entity_impacts.csv",
		"event_slug,entity_id,direction,lag_days,duration_days\n"+
			"missing,42,spike,,\n")

	_, err := LoadCatalog(eventsPath, entityPath, "")
	if err == nil || !strings.Contains(err.Error(), "unknown event slug") {
		t.Errorf("Expected unknown slug error, got %v", err)
	}
}

func TestSeed(t *testing.T) {
	dir := t.TempDir()
	eventsPath := writeFile(t, dir, "events.csv", eventsHeader+
		"spring-league,Spring League,league_start,major,2024-04-01,2024-07-01,2024-03-20,true,\n")
	categoryPath := writeFile(t, dir, "category_impacts.csv",
		"event_slug,category,direction,typical_magnitude,lag_days,duration_days\n"+
			"spring-league,material,spike,0.2,,\n")

	c, err := LoadCatalog(eventsPath, "", categoryPath)
	if err != nil {
		t.Fatalf("LoadCatalog failed: %v", err)
	}

	store := memory.NewEventStore()
	if err := Seed(context.Background(), store, c); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}

	announced, err := store.AnnouncedEvents(context.Background())
	if err != nil {
		t.Fatalf("AnnouncedEvents failed: %v", err)
	}
	if len(announced) != 1 {
		t.Fatalf("Expected 1 seeded event, got %d", len(announced))
	}

	impacts, err := store.CategoryImpacts(context.Background())
	if err != nil {
		t.Fatalf("CategoryImpacts failed: %v", err)
	}
	if len(impacts[announced[0].EventID]) != 1 {
		t.Errorf("Category impact not linked to seeded event")
	}
}
