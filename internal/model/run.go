// Package model holds the persisted records of siting analysis runs.
package model

import (
	"time"

	"github.com/sells-group/siting-cli/internal/suitability"
)

// RunStatus represents the current state of an analysis run.
type RunStatus string

const (
	RunStatusQueued      RunStatus = "queued"
	RunStatusDeriving    RunStatus = "deriving"
	RunStatusClassifying RunStatus = "classifying"
	RunStatusOverlaying  RunStatus = "overlaying"
	RunStatusExtracting  RunStatus = "extracting"
	RunStatusComplete    RunStatus = "complete"
	RunStatusFailed      RunStatus = "failed"
)

// RunParams is the configuration snapshot a run was started with.
type RunParams struct {
	DEMPath         string             `json:"dem_path" yaml:"dem_path"`
	RoadsPath       string             `json:"roads_path" yaml:"roads_path"`
	MaskPath        string             `json:"mask_path,omitempty" yaml:"mask_path,omitempty"`
	Weights         map[string]float64 `json:"weights" yaml:"weights"`
	Tables          map[string]string  `json:"tables" yaml:"tables"`
	QuantileClasses int                `json:"quantile_classes" yaml:"quantile_classes"`
	Threshold       float64            `json:"threshold" yaml:"threshold"`
	MinAreaHa       float64            `json:"min_area_ha" yaml:"min_area_ha"`
	DistanceCeiling float64            `json:"distance_ceiling" yaml:"distance_ceiling"`
}

// Run represents a single analysis run.
type Run struct {
	ID        string     `json:"id"`
	Params    RunParams  `json:"params"`
	Status    RunStatus  `json:"status"`
	Result    *RunResult `json:"result,omitempty"`
	Error     string     `json:"error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// RunResult holds the final outcome of a run.
type RunResult struct {
	Grid        GridInfo                     `json:"grid" yaml:"grid"`
	Criteria    map[string]suitability.Stats `json:"criteria" yaml:"criteria"`
	Surface     suitability.Stats            `json:"surface" yaml:"surface"`
	ZoneCount   int                          `json:"zone_count" yaml:"zone_count"`
	TotalAreaHa float64                      `json:"total_area_ha" yaml:"total_area_ha"`
	Stages      []StageResult                `json:"stages" yaml:"stages"`
	Diagnostics []Diagnostic                 `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
}

// GridInfo describes the analysis grid. The NoData sentinel is left out as
// it may be NaN.
type GridInfo struct {
	CellSize float64           `json:"cell_size" yaml:"cell_size"`
	Width    int               `json:"width" yaml:"width"`
	Height   int               `json:"height" yaml:"height"`
	Origin   suitability.Point `json:"origin" yaml:"origin"`
}

// NewGridInfo copies the alignment fields of h.
func NewGridInfo(h suitability.Header) GridInfo {
	return GridInfo{CellSize: h.CellSize, Width: h.Width, Height: h.Height, Origin: h.Origin}
}

// Diagnostic is a non-fatal condition reported by a stage.
type Diagnostic struct {
	Criterion string `json:"criterion" yaml:"criterion"`
	Code      string `json:"code" yaml:"code"`
	Message   string `json:"message" yaml:"message"`
}

// RunStage represents a stage within a run.
type RunStage struct {
	ID        string       `json:"id"`
	RunID     string       `json:"run_id"`
	Name      string       `json:"name"`
	Status    StageStatus  `json:"status"`
	Result    *StageResult `json:"result,omitempty"`
	StartedAt time.Time    `json:"started_at"`
}

// StageStatus represents the current state of a pipeline stage.
type StageStatus string

const (
	StageStatusRunning  StageStatus = "running"
	StageStatusComplete StageStatus = "complete"
	StageStatusFailed   StageStatus = "failed"
	StageStatusSkipped  StageStatus = "skipped"
)

// StageResult holds the outcome of a pipeline stage.
type StageResult struct {
	Name     string         `json:"name" yaml:"name"`
	Status   StageStatus    `json:"status" yaml:"status"`
	Duration int64          `json:"duration_ms" yaml:"duration_ms"`
	Error    string         `json:"error,omitempty" yaml:"error,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Zone is a persisted candidate zone. Geometry is the EWKB polygon.
type Zone struct {
	RunID     string             `json:"run_id"`
	RegionID  int                `json:"region_id"`
	FirstCell int                `json:"first_cell"`
	CellCount int                `json:"cell_count"`
	AreaHa    float64            `json:"area_ha"`
	MinValue  float64            `json:"min_value"`
	MaxValue  float64            `json:"max_value"`
	MeanValue float64            `json:"mean_value"`
	Bounds    suitability.Bounds `json:"bounds"`
	Geometry  []byte             `json:"-"`
}

// NewZone builds the persisted record of a region.
func NewZone(runID string, r suitability.Region, geometry []byte) Zone {
	return Zone{
		RunID:     runID,
		RegionID:  r.ID,
		FirstCell: r.FirstCell,
		CellCount: r.CellCount,
		AreaHa:    r.AreaHectares,
		MinValue:  r.MinValue,
		MaxValue:  r.MaxValue,
		MeanValue: r.MeanValue,
		Bounds:    r.Bounds,
		Geometry:  geometry,
	}
}
