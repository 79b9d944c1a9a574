package dataset

import (
	"strings"
	"testing"
	"time"

	"commodity-feature-lab/internal/domain"
)

func TestManifestConfigSnapshotComplete(t *testing.T) {
	cfg := domain.FeatureConfig{
		LagDays:              []int{1, 7},
		RollingWindows:       []int{7},
		TargetHorizonsDays:   []int{1},
		ColdStartThreshold:   30,
		TrainingLookbackDays: 365,
	}
	builtAt := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	m := newManifest("abc123", "standard", builtAt,
		domain.Date(2024, 3, 1), domain.Date(2024, 3, 10), cfg)

	out, err := m.Render()
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	rendered := string(out)
	for _, field := range []string{
		`"lag_days"`,
		`"rolling_windows"`,
		`"target_horizons_days"`,
		`"cold_start_threshold": 30`,
		`"training_lookback_days": 365`,
	} {
		if !strings.Contains(rendered, field) {
			t.Errorf("Manifest config snapshot missing %s", field)
		}
	}
}
