package registry

import (
	"errors"
	"testing"

	"commodity-feature-lab/internal/domain"
)

func testConfig() domain.FeatureConfig {
	return domain.FeatureConfig{
		LagDays:            []int{1, 7},
		RollingWindows:     []int{7},
		TargetHorizonsDays: []int{1, 7},
		ColdStartThreshold: 30,
	}
}

func TestNew_ColumnOrderStable(t *testing.T) {
	r1, err := New(testConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	r2, err := New(testConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	n1, n2 := r1.Names(""), r2.Names("")
	if len(n1) != len(n2) {
		t.Fatalf("Column counts differ: %d vs %d", len(n1), len(n2))
	}
	for i := range n1 {
		if n1[i] != n2[i] {
			t.Errorf("Column order differs at %d: %s vs %s", i, n1[i], n2[i])
		}
	}

	if n1[0] != "entity_id" || n1[1] != "group_id" || n1[2] != "calendar_date" {
		t.Errorf("Key columns not first: %v", n1[:3])
	}
}

func TestNew_WindowColumns(t *testing.T) {
	r, err := New(testConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	for _, name := range []string{"price_lag_1d", "price_lag_7d", "price_roll_mean_7d", "price_roll_std_7d", "price_pct_change_7d", "target_price_1d", "target_price_7d"} {
		if _, ok := r.Spec(name); !ok {
			t.Errorf("Missing expected column %s", name)
		}
	}

	if _, ok := r.Spec("price_lag_3d"); ok {
		t.Error("Unconfigured lag column present")
	}
}

func TestNew_DuplicateWindowRejected(t *testing.T) {
	cfg := testConfig()
	cfg.LagDays = []int{7, 7}

	if _, err := New(cfg); err == nil {
		t.Error("Expected error for duplicate lag window")
	}
}

func TestInferenceColumnsExcludeTargets(t *testing.T) {
	r, err := New(testConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	for _, s := range r.InferenceColumns() {
		if s.IsTarget {
			t.Errorf("Target column %s leaked into inference schema", s.Name)
		}
	}

	targets := r.TargetNames()
	if len(targets) != 2 {
		t.Errorf("Expected 2 target columns, got %d", len(targets))
	}
	if len(r.TrainingColumns())-len(r.InferenceColumns()) != len(targets) {
		t.Error("Training/inference column counts inconsistent with target count")
	}
}

func TestValue_Extraction(t *testing.T) {
	r, err := New(testConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	price := 42.5
	lag := 40.0
	row := &domain.FeatureRow{
		DailySeriesPoint: domain.DailySeriesPoint{
			EntityID:  7,
			GroupID:   "g1",
			Date:      domain.Date(2024, 3, 10),
			PriceMean: &price,
			ObsCount:  3,
		},
		Lags:           map[int]*float64{1: &lag, 7: nil},
		RollMeans:      map[int]*float64{7: &price},
		RollStds:       map[int]*float64{7: nil},
		PctChanges:     map[int]*float64{7: nil},
		Targets:        map[int]*float64{1: nil, 7: nil},
		EntityCategory: "material",
		DayOfWeek:      7,
	}

	spec, _ := r.Spec("entity_id")
	v, err := Value(row, spec)
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}
	if v != int64(7) {
		t.Errorf("Expected entity_id 7, got %v", v)
	}

	spec, _ = r.Spec("price_lag_1d")
	v, err = Value(row, spec)
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}
	if v != 40.0 {
		t.Errorf("Expected lag 40.0, got %v", v)
	}

	spec, _ = r.Spec("price_lag_7d")
	v, err = Value(row, spec)
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}
	if v != nil {
		t.Errorf("Expected nil lag, got %v", v)
	}
}

func TestValue_NonNullableNilIsSchemaViolation(t *testing.T) {
	r, err := New(testConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	row := &domain.FeatureRow{
		DailySeriesPoint: domain.DailySeriesPoint{
			EntityID: 7,
			Date:     domain.Date(2024, 3, 10),
		},
	}

	spec, _ := r.Spec("days_since_anchor")
	if _, err := Value(row, spec); err != nil {
		t.Errorf("Nullable nil should be legal, got %v", err)
	}

	// price_mean is nullable in the real registry; strip the flag to
	// exercise the violation path.
	bad := FeatureSpec{Name: "price_mean", Type: TypeFloat64, Kind: KindPriceMean, Nullable: false}
	_, err = Value(row, bad)
	if !errors.Is(err, ErrSchemaViolation) {
		t.Errorf("Expected ErrSchemaViolation, got %v", err)
	}
}

func TestValue_UnknownKindIsSchemaViolation(t *testing.T) {
	row := &domain.FeatureRow{}
	bad := FeatureSpec{Name: "mystery", Type: TypeFloat64, Kind: "mystery", Nullable: true}

	_, err := Value(row, bad)
	if !errors.Is(err, ErrSchemaViolation) {
		t.Errorf("Expected ErrSchemaViolation for unknown kind, got %v", err)
	}
}

func TestGroups(t *testing.T) {
	r, err := New(testConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	groups := r.Groups()
	if groups[0] != "id" {
		t.Errorf("Expected id group first, got %s", groups[0])
	}
	if groups[len(groups)-1] != "target" {
		t.Errorf("Expected target group last, got %s", groups[len(groups)-1])
	}
}
