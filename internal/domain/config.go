package domain

// FeatureConfig controls the windowed feature columns and cold-start
// detection. The column set of the feature registry is derived from it, so
// two builds with the same config produce identical schemas.
type FeatureConfig struct {
	LagDays              []int // lag lookbacks in calendar days
	RollingWindows       []int // rolling mean/std and momentum windows
	TargetHorizonsDays   []int // forward-looking label horizons
	ColdStartThreshold   int   // min observations before an entity leaves cold start
	TrainingLookbackDays int   // default training window length
}

// DefaultFeatureConfig returns the canonical configuration.
func DefaultFeatureConfig() FeatureConfig {
	return FeatureConfig{
		LagDays:              []int{1, 3, 7, 14, 28},
		RollingWindows:       []int{7, 14, 28},
		TargetHorizonsDays:   []int{1, 7, 28},
		ColdStartThreshold:   30,
		TrainingLookbackDays: 365,
	}
}
