// Package pipeline orchestrates a siting analysis run: criterion derivation,
// classification, weighted overlay, zone extraction and the products each
// stage leaves in the workspace and run store.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/siting-cli/internal/config"
	"github.com/sells-group/siting-cli/internal/model"
	"github.com/sells-group/siting-cli/internal/report"
	"github.com/sells-group/siting-cli/internal/store"
	"github.com/sells-group/siting-cli/internal/suitability"
	"github.com/sells-group/siting-cli/internal/vector"
	"github.com/sells-group/siting-cli/internal/workspace"
)

// Stage names, in execution order.
const (
	StageDerive    = "1_derive"
	StageClassify  = "2_classify"
	StageOverlay   = "3_overlay"
	StageExtract   = "4_extract"
	StageVectorize = "5_vectorize"
	StageReport    = "6_report"
)

// DiagDistanceAtCeiling flags a distance grid with no cell below the ceiling,
// which happens when no road crosses the analysis extent.
const DiagDistanceAtCeiling = "distance_at_ceiling"

// DiagNoZones flags a run where no region passed the threshold and area filter.
const DiagNoZones = "no_zones"

// Pipeline runs siting analyses.
type Pipeline struct {
	cfg     *config.Config
	store   store.Store
	layout  workspace.Layout
	deriver Deriver
}

// New creates a Pipeline. st may be nil, in which case runs are not recorded.
func New(cfg *config.Config, st store.Store, layout workspace.Layout, deriver Deriver) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		store:   st,
		layout:  layout,
		deriver: deriver,
	}
}

// Result is the outcome of a completed run.
type Result struct {
	RunID    string
	Summary  *model.RunResult
	Surface  *suitability.Grid
	Regions  []suitability.Region
	Features []vector.Feature
	Zones    []model.Zone
}

// analysis is the validated model a run executes.
type analysis struct {
	weights     suitability.Weights
	classifiers map[string]suitability.Classifier
	params      model.RunParams
}

func (p *Pipeline) prepare(in workspace.Inputs) (*analysis, error) {
	if err := p.cfg.Validate("analyze"); err != nil {
		return nil, err
	}
	a := p.cfg.Analysis
	slope, err := a.SlopeTable()
	if err != nil {
		return nil, err
	}
	aspect, err := a.AspectTable()
	if err != nil {
		return nil, err
	}
	distance, err := a.DistanceTable()
	if err != nil {
		return nil, err
	}
	return &analysis{
		weights: a.WeightSet(),
		classifiers: map[string]suitability.Classifier{
			suitability.CriterionSlope:    suitability.FixedClassifier{Table: slope},
			suitability.CriterionAspect:   suitability.FixedClassifier{Table: aspect},
			suitability.CriterionDistance: suitability.FixedClassifier{Table: distance},
			suitability.CriterionSolar: suitability.QuantileClassifier{
				Classes: a.QuantileClasses,
				Exclude: suitability.ExcludeNonPositive,
			},
		},
		params: model.RunParams{
			DEMPath:   in.DEMPath,
			RoadsPath: in.RoadsPath,
			MaskPath:  in.MaskPath,
			Weights:   a.Weights,
			Tables: map[string]string{
				suitability.CriterionSlope:    slope.String(),
				suitability.CriterionAspect:   aspect.String(),
				suitability.CriterionDistance: distance.String(),
			},
			QuantileClasses: a.QuantileClasses,
			Threshold:       a.Threshold,
			MinAreaHa:       a.MinAreaHa,
			DistanceCeiling: a.DistanceCeiling,
		},
	}, nil
}

// Run executes a full analysis over the given inputs. Configuration and
// input problems are reported before any raster work begins.
func (p *Pipeline) Run(ctx context.Context, in workspace.Inputs) (*Result, error) {
	a, err := p.prepare(in)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: validate configuration")
	}
	loaded, err := workspace.CheckInputs(in)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: check inputs")
	}
	roads, err := vector.ReadLines(in.RoadsPath)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: read roads")
	}

	runID, err := p.createRun(ctx, a.params)
	if err != nil {
		return nil, err
	}
	log := zap.L().With(zap.String("run_id", runID))
	log.Info("pipeline: starting analysis",
		zap.String("dem", in.DEMPath),
		zap.String("grid", loaded.DEM.Header().String()),
		zap.Int("roads", len(roads)),
	)

	r := &run{
		Pipeline: p,
		id:       runID,
		log:      log,
		analysis: a,
		layers:   Layers{DEM: loaded.DEM, Roads: roads},
		mask:     loaded.Mask,
		summary: &model.RunResult{
			Grid:     model.NewGridInfo(loaded.DEM.Header()),
			Criteria: make(map[string]suitability.Stats, len(suitability.Criteria)),
		},
	}
	res, err := r.execute(ctx)
	if err != nil {
		p.failRun(ctx, log, runID, err)
		return nil, err
	}
	log.Info("pipeline: analysis complete",
		zap.Int("zones", res.Summary.ZoneCount),
		zap.Float64("area_ha", res.Summary.TotalAreaHa),
	)
	return res, nil
}

func (p *Pipeline) createRun(ctx context.Context, params model.RunParams) (string, error) {
	if p.store == nil {
		return uuid.NewString(), nil
	}
	created, err := p.store.CreateRun(ctx, params)
	if err != nil {
		return "", eris.Wrap(err, "pipeline: create run")
	}
	return created.ID, nil
}

func (p *Pipeline) failRun(ctx context.Context, log *zap.Logger, runID string, cause error) {
	if p.store == nil {
		return
	}
	if err := p.store.FailRun(context.WithoutCancel(ctx), runID, cause.Error()); err != nil {
		log.Error("pipeline: failed to record run failure", zap.Error(err))
	}
}

// run carries the state of one execution.
type run struct {
	*Pipeline
	id       string
	log      *zap.Logger
	analysis *analysis
	layers   Layers
	mask     *suitability.Grid
	summary  *model.RunResult
}

func (r *run) setStatus(ctx context.Context, status model.RunStatus) {
	if r.store == nil {
		return
	}
	if err := r.store.UpdateRunStatus(ctx, r.id, status); err != nil {
		r.log.Warn("pipeline: failed to update status", zap.Error(err))
	}
}

// stage runs fn as a tracked stage. The returned metadata is attached to the
// stage record.
func (r *run) stage(ctx context.Context, name string, fn func() (map[string]any, error)) error {
	var stageID string
	if r.store != nil {
		st, err := r.store.CreateStage(ctx, r.id, name)
		if err != nil {
			r.log.Warn("pipeline: failed to create stage", zap.String("stage", name), zap.Error(err))
		} else {
			stageID = st.ID
		}
	}

	start := time.Now()
	meta, fnErr := fn()
	result := model.StageResult{
		Name:     name,
		Status:   model.StageStatusComplete,
		Duration: time.Since(start).Milliseconds(),
		Metadata: meta,
	}
	if fnErr != nil {
		result.Status = model.StageStatusFailed
		result.Error = fnErr.Error()
		r.log.Error("pipeline: stage failed",
			zap.String("stage", name),
			zap.Int64("duration_ms", result.Duration),
			zap.Error(fnErr),
		)
	} else {
		r.log.Info("pipeline: stage complete",
			zap.String("stage", name),
			zap.Int64("duration_ms", result.Duration),
		)
	}

	if stageID != "" {
		if err := r.store.CompleteStage(context.WithoutCancel(ctx), stageID, &result); err != nil {
			r.log.Error("pipeline: failed to complete stage", zap.String("stage", name), zap.Error(err))
		}
	}
	r.summary.Stages = append(r.summary.Stages, result)
	return fnErr
}

func (r *run) diagnose(criterion string, d suitability.Diagnostic) {
	r.log.Warn("pipeline: diagnostic",
		zap.String("criterion", criterion),
		zap.String("code", d.Code),
		zap.String("message", d.Message),
	)
	r.summary.Diagnostics = append(r.summary.Diagnostics, model.Diagnostic{
		Criterion: criterion,
		Code:      d.Code,
		Message:   d.Message,
	})
}

func (r *run) execute(ctx context.Context) (*Result, error) {
	criteria := suitability.Criteria
	derived := make([]*suitability.Grid, len(criteria))
	scores := make([]*suitability.Grid, len(criteria))
	diags := make([][]suitability.Diagnostic, len(criteria))

	// ===== Stage 1: derive criterion grids (concurrent, fixed slots) =====
	r.setStatus(ctx, model.RunStatusDeriving)
	err := r.stage(ctx, StageDerive, func() (map[string]any, error) {
		g, gctx := errgroup.WithContext(ctx)
		for i, name := range criteria {
			g.Go(func() error {
				grid, err := r.deriver.Derive(gctx, name, r.layers)
				if err != nil {
					return eris.Wrapf(err, "pipeline: derive %s", name)
				}
				if err := r.layers.DEM.Aligned(grid); err != nil {
					return eris.Wrapf(err, "pipeline: derive %s", name)
				}
				derived[i] = grid
				return workspace.SaveGrid(r.layout.CriterionGrid(name), grid)
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		meta := make(map[string]any, len(criteria))
		for i, name := range criteria {
			stats := derived[i].Stats()
			r.summary.Criteria[name] = stats
			meta[name] = stats.Count
		}
		return meta, nil
	})
	if err != nil {
		return nil, err
	}
	for i, name := range criteria {
		if name == suitability.CriterionDistance {
			if stats := derived[i].Stats(); stats.Count > 0 && stats.Min >= r.cfg.Analysis.DistanceCeiling {
				r.diagnose(name, suitability.Diagnostic{
					Code:    DiagDistanceAtCeiling,
					Message: "no road cell within the analysis extent; every cell is at the distance ceiling",
				})
			}
		}
	}

	// ===== Stage 2: classify into 1-5 scores (concurrent, fixed slots) =====
	r.setStatus(ctx, model.RunStatusClassifying)
	err = r.stage(ctx, StageClassify, func() (map[string]any, error) {
		var g errgroup.Group
		for i, name := range criteria {
			g.Go(func() error {
				score, d, err := r.analysis.classifiers[name].Classify(derived[i])
				if err != nil {
					return eris.Wrapf(err, "pipeline: classify %s", name)
				}
				scores[i], diags[i] = score, d
				return workspace.SaveGrid(r.layout.ScoreGrid(name), score)
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		meta := make(map[string]any, len(criteria))
		for i, name := range criteria {
			meta[name] = scores[i].ValidCount()
		}
		return meta, nil
	})
	if err != nil {
		return nil, err
	}
	for i, name := range criteria {
		for _, d := range diags[i] {
			r.diagnose(name, d)
		}
	}

	// ===== Stage 3: weighted overlay =====
	r.setStatus(ctx, model.RunStatusOverlaying)
	var surface *suitability.Grid
	err = r.stage(ctx, StageOverlay, func() (map[string]any, error) {
		byName := make(map[string]*suitability.Grid, len(criteria))
		for i, name := range criteria {
			byName[name] = scores[i]
		}
		var err error
		surface, err = suitability.Overlay(byName, r.analysis.weights, r.mask)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: overlay")
		}
		r.summary.Surface = surface.Stats()
		if err := workspace.SaveGrid(r.layout.Suitability(), surface); err != nil {
			return nil, err
		}
		return map[string]any{"valid_cells": r.summary.Surface.Count, "masked": r.mask != nil}, nil
	})
	if err != nil {
		return nil, err
	}

	// ===== Stage 4: zone extraction =====
	r.setStatus(ctx, model.RunStatusExtracting)
	var regions []suitability.Region
	err = r.stage(ctx, StageExtract, func() (map[string]any, error) {
		var err error
		regions, err = suitability.ExtractZones(surface, r.analysis.params.Threshold, r.analysis.params.MinAreaHa)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: extract zones")
		}
		labels := suitability.LabelGrid(surface.Header(), regions)
		if err := workspace.SaveGrid(r.layout.ZoneLabels(), labels); err != nil {
			return nil, err
		}
		return map[string]any{"regions": len(regions)}, nil
	})
	if err != nil {
		return nil, err
	}
	if len(regions) == 0 {
		r.diagnose("", suitability.Diagnostic{
			Code:    DiagNoZones,
			Message: "no region meets the suitability threshold and minimum area",
		})
	}

	// ===== Stage 5: vectorize zones =====
	var features []vector.Feature
	var zones []model.Zone
	err = r.stage(ctx, StageVectorize, func() (map[string]any, error) {
		var err error
		features, err = vector.Features(surface.Header(), regions)
		if err != nil {
			return nil, err
		}
		if err := vector.WriteShapefile(r.layout.ZonesShapefile(), features); err != nil {
			return nil, err
		}
		if err := vector.WriteGeoJSON(r.layout.ZonesGeoJSON(), features); err != nil {
			return nil, err
		}
		zones = make([]model.Zone, 0, len(features))
		for _, f := range features {
			geometry, err := vector.EncodeEWKB(f, 0)
			if err != nil {
				return nil, err
			}
			zones = append(zones, model.NewZone(r.id, f.Region, geometry))
			r.summary.TotalAreaHa += f.AreaHa
		}
		r.summary.ZoneCount = len(zones)
		if r.store != nil && len(zones) > 0 {
			n, err := r.store.SaveZones(ctx, r.id, zones)
			if err != nil {
				return nil, eris.Wrap(err, "pipeline: save zones")
			}
			return map[string]any{"features": len(features), "stored": n}, nil
		}
		return map[string]any{"features": len(features)}, nil
	})
	if err != nil {
		return nil, err
	}

	// ===== Stage 6: reports =====
	err = r.stage(ctx, StageReport, func() (map[string]any, error) {
		if err := report.WriteXLSX(r.layout.ZonesWorkbook(), zones, r.summary); err != nil {
			return nil, err
		}
		return nil, report.WriteSummary(r.layout.Summary(), report.NewSummary(r.id, r.analysis.params, r.summary))
	})
	if err != nil {
		return nil, err
	}

	if r.store != nil {
		if err := r.store.UpdateRunResult(ctx, r.id, r.summary); err != nil {
			return nil, eris.Wrap(err, "pipeline: record result")
		}
	}

	return &Result{
		RunID:    r.id,
		Summary:  r.summary,
		Surface:  surface,
		Regions:  regions,
		Features: features,
		Zones:    zones,
	}, nil
}
