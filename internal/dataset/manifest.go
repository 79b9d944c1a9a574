package dataset

import (
	"encoding/json"
	"time"

	"commodity-feature-lab/internal/domain"
	"commodity-feature-lab/internal/quality"
)

// schemaVersion is bumped whenever the artifact column contract changes in
// a way consumers must know about.
const schemaVersion = 1

// Manifest describes one group's artifacts: what was built, from what
// window, with what config, and the digest of every file. Training runs
// record the manifest next to the CSVs so a model can verify its inputs.
type Manifest struct {
	SchemaVersion int       `json:"schema_version"`
	RunID         string    `json:"run_id"`
	GroupID       string    `json:"group_id"`
	BuiltAt       time.Time `json:"built_at"`
	StartDate     string    `json:"start_date"`
	EndDate       string    `json:"end_date"`

	Files []FileEntry `json:"files"`

	Quality *quality.Report `json:"quality"`

	Config ConfigSnapshot `json:"config"`
}

// FileEntry records one artifact file.
type FileEntry struct {
	Name   string `json:"name"`
	Rows   int    `json:"rows"`
	SHA256 string `json:"sha256"`
}

// ConfigSnapshot pins the feature configuration the artifacts were built
// with. Window lists here must match the artifact's column set.
type ConfigSnapshot struct {
	LagDays              []int `json:"lag_days"`
	RollingWindows       []int `json:"rolling_windows"`
	TargetHorizonsDays   []int `json:"target_horizons_days"`
	ColdStartThreshold   int   `json:"cold_start_threshold"`
	TrainingLookbackDays int   `json:"training_lookback_days"`
}

func newManifest(runID, groupID string, builtAt, start, end time.Time, cfg domain.FeatureConfig) *Manifest {
	return &Manifest{
		SchemaVersion: schemaVersion,
		RunID:         runID,
		GroupID:       groupID,
		BuiltAt:       builtAt,
		StartDate:     start.Format("2006-01-02"),
		EndDate:       end.Format("2006-01-02"),
		Config: ConfigSnapshot{
			LagDays:              cfg.LagDays,
			RollingWindows:       cfg.RollingWindows,
			TargetHorizonsDays:   cfg.TargetHorizonsDays,
			ColdStartThreshold:   cfg.ColdStartThreshold,
			TrainingLookbackDays: cfg.TrainingLookbackDays,
		},
	}
}

// Render serializes the manifest as indented JSON.
func (m *Manifest) Render() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}
