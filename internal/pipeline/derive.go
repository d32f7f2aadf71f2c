package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/siting-cli/internal/config"
	"github.com/sells-group/siting-cli/internal/suitability"
	"github.com/sells-group/siting-cli/internal/terrain"
)

// Layers are the input layers criteria are derived from.
type Layers struct {
	DEM   *suitability.Grid
	Roads []*geom.LineString
}

// Deriver produces the continuous grid of one criterion, aligned to the DEM.
type Deriver interface {
	Derive(ctx context.Context, criterion string, layers Layers) (*suitability.Grid, error)
}

// TerrainDeriver derives criteria with the terrain package.
type TerrainDeriver struct {
	solar   terrain.SolarParams
	ceiling float64
}

// NewTerrainDeriver builds a TerrainDeriver from the analysis configuration.
func NewTerrainDeriver(cfg config.AnalysisConfig) (*TerrainDeriver, error) {
	solar, err := cfg.SolarParams()
	if err != nil {
		return nil, err
	}
	if !(cfg.DistanceCeiling > 0) {
		return nil, eris.Errorf("pipeline: distance ceiling must be > 0, got %g", cfg.DistanceCeiling)
	}
	return &TerrainDeriver{solar: solar, ceiling: cfg.DistanceCeiling}, nil
}

// Derive implements Deriver.
func (d *TerrainDeriver) Derive(ctx context.Context, criterion string, layers Layers) (*suitability.Grid, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch criterion {
	case suitability.CriterionSlope:
		return terrain.Slope(layers.DEM), nil
	case suitability.CriterionAspect:
		return terrain.Aspect(layers.DEM), nil
	case suitability.CriterionSolar:
		return terrain.SolarExposure(layers.DEM, d.solar)
	case suitability.CriterionDistance:
		return terrain.Distance(layers.DEM, layers.Roads, d.ceiling)
	default:
		return nil, eris.Errorf("pipeline: unknown criterion %q", criterion)
	}
}
