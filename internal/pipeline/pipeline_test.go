package pipeline

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/siting-cli/internal/model"
	"github.com/sells-group/siting-cli/internal/report"
	"github.com/sells-group/siting-cli/internal/store"
	"github.com/sells-group/siting-cli/internal/suitability"
	"github.com/sells-group/siting-cli/internal/vector"
	"github.com/sells-group/siting-cli/internal/workspace"
)

func TestPipeline_Run_AllFive(t *testing.T) {
	ctx := context.Background()
	layout, in := setupWorkspace(t, filled(t, 250), nil)
	st := newTestStore(t)
	deriver := allFive(t, 0)

	p := New(testConfig(), st, layout, deriver)
	res, err := p.Run(ctx, in)
	require.NoError(t, err)
	deriver.AssertExpectations(t)

	for _, v := range res.Surface.Values() {
		assert.Equal(t, 5.0, v)
	}
	require.Len(t, res.Regions, 1)
	assert.Equal(t, 9, res.Regions[0].CellCount)
	assert.InDelta(t, 9.0, res.Regions[0].AreaHectares, 1e-9)
	require.Len(t, res.Features, 1)
	assert.InDelta(t, 9.0, res.Features[0].AreaHa, 1e-9)
	assert.Equal(t, 1, res.Summary.ZoneCount)
	assert.InDelta(t, 9.0, res.Summary.TotalAreaHa, 1e-9)

	// Uniform solar collapses to a single class.
	require.Len(t, res.Summary.Diagnostics, 1)
	assert.Equal(t, suitability.CriterionSolar, res.Summary.Diagnostics[0].Criterion)
	assert.Equal(t, suitability.DiagSingleValue, res.Summary.Diagnostics[0].Code)

	// Workspace products.
	for _, path := range []string{
		layout.CriterionGrid(suitability.CriterionSlope),
		layout.ScoreGrid(suitability.CriterionSolar),
		layout.Suitability(),
		layout.ZoneLabels(),
		layout.ZonesShapefile(),
		layout.ZonesGeoJSON(),
		layout.ZonesWorkbook(),
		layout.Summary(),
	} {
		_, err := os.Stat(path)
		assert.NoError(t, err, path)
	}
	labels, err := workspace.LoadGrid(layout.ZoneLabels())
	require.NoError(t, err)
	for _, v := range labels.Values() {
		assert.Equal(t, 1.0, v)
	}
	summary, err := report.ReadSummary(layout.Summary())
	require.NoError(t, err)
	assert.Equal(t, res.RunID, summary.RunID)
	assert.Equal(t, 1, summary.Result.ZoneCount)

	// Run history.
	run, err := st.GetRun(ctx, res.RunID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, run.Status)
	require.NotNil(t, run.Result)
	assert.Equal(t, 1, run.Result.ZoneCount)
	assert.Equal(t, in.DEMPath, run.Params.DEMPath)

	stages, err := st.ListStages(ctx, res.RunID)
	require.NoError(t, err)
	require.Len(t, stages, 6)
	for _, s := range stages {
		assert.Equal(t, model.StageStatusComplete, s.Status, s.Name)
	}

	zones, err := st.ListZones(ctx, res.RunID)
	require.NoError(t, err)
	require.Len(t, zones, 1)
	assert.Equal(t, 9, zones[0].CellCount)
	poly, err := vector.DecodeEWKB(zones[0].Geometry)
	require.NoError(t, err)
	assert.InDelta(t, 90000.0, poly.Area(), 1e-6)
}

func TestPipeline_Run_SlopeBoundaryScoresFour(t *testing.T) {
	layout, in := setupWorkspace(t, filled(t, 250), nil)
	p := New(testConfig(), nil, layout, allFive(t, 5))

	res, err := p.Run(context.Background(), in)
	require.NoError(t, err)

	scores, err := workspace.LoadGrid(layout.ScoreGrid(suitability.CriterionSlope))
	require.NoError(t, err)
	for _, v := range scores.Values() {
		assert.Equal(t, 4.0, v)
	}
	// 0.3*5 + 0.3*5 + 0.4*4 still clears the 4.5 threshold.
	for _, v := range res.Surface.Values() {
		assert.InDelta(t, 4.6, v, 1e-12)
	}
	assert.Len(t, res.Regions, 1)
}

func TestPipeline_Run_NoStore(t *testing.T) {
	layout, in := setupWorkspace(t, filled(t, 250), nil)
	p := New(testConfig(), nil, layout, allFive(t, 0))

	res, err := p.Run(context.Background(), in)
	require.NoError(t, err)
	_, err = uuid.Parse(res.RunID)
	assert.NoError(t, err)
	assert.Len(t, res.Summary.Stages, 6)
}

func TestPipeline_Run_InvalidWeights(t *testing.T) {
	ctx := context.Background()
	layout, in := setupWorkspace(t, filled(t, 250), nil)
	st := newTestStore(t)
	deriver := &mockDeriver{}

	cfg := testConfig()
	cfg.Analysis.Weights[suitability.CriterionSlope] = 0.3

	_, err := New(cfg, st, layout, deriver).Run(ctx, in)
	require.Error(t, err)
	assert.True(t, suitability.IsConfiguration(err))
	assert.Contains(t, err.Error(), "weights must sum to 1")
	deriver.AssertNotCalled(t, "Derive", mock.Anything, mock.Anything, mock.Anything)

	runs, err := st.ListRuns(ctx, store.RunFilter{})
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestPipeline_Run_MisalignedMask(t *testing.T) {
	h := testHeader()
	h.Width = 4
	mask, err := suitability.Filled(h, 1)
	require.NoError(t, err)

	layout, in := setupWorkspace(t, filled(t, 250), mask)
	deriver := &mockDeriver{}

	_, err = New(testConfig(), nil, layout, deriver).Run(context.Background(), in)
	require.Error(t, err)
	assert.True(t, suitability.IsGridMismatch(err))
	deriver.AssertNotCalled(t, "Derive", mock.Anything, mock.Anything, mock.Anything)
}

func TestPipeline_Run_MaskExcludesCentre(t *testing.T) {
	mask := filled(t, 1)
	vals := mask.Values()
	vals[4] = 0
	mask, err := suitability.New(testHeader(), vals)
	require.NoError(t, err)

	layout, in := setupWorkspace(t, filled(t, 250), mask)
	res, err := New(testConfig(), nil, layout, allFive(t, 0)).Run(context.Background(), in)
	require.NoError(t, err)

	assert.False(t, res.Surface.Valid(4))
	require.Len(t, res.Regions, 1)
	assert.Equal(t, 8, res.Regions[0].CellCount)
	assert.False(t, res.Regions[0].Contains(4))
	// The ring polygon carries the masked cell as a hole.
	assert.Equal(t, 2, res.Features[0].Polygon.NumLinearRings())
}

func TestPipeline_Run_NoZones(t *testing.T) {
	layout, in := setupWorkspace(t, filled(t, 250), nil)
	cfg := testConfig()
	cfg.Analysis.Threshold = 5.5

	res, err := New(cfg, nil, layout, allFive(t, 0)).Run(context.Background(), in)
	require.NoError(t, err)
	assert.Empty(t, res.Regions)
	assert.Empty(t, res.Features)
	assert.Equal(t, 0, res.Summary.ZoneCount)

	var codes []string
	for _, d := range res.Summary.Diagnostics {
		codes = append(codes, d.Code)
	}
	assert.Contains(t, codes, DiagNoZones)

	_, err = os.Stat(layout.ZonesShapefile())
	assert.NoError(t, err)
}

func TestPipeline_Run_DeriverFails(t *testing.T) {
	ctx := context.Background()
	layout, in := setupWorkspace(t, filled(t, 250), nil)
	st := newTestStore(t)

	boom := errors.New("boom")
	deriver := &mockDeriver{}
	deriver.On("Derive", mock.Anything, suitability.CriterionSlope, mock.Anything).Return(nil, boom)
	deriver.On("Derive", mock.Anything, mock.Anything, mock.Anything).Return(filled(t, 1), nil).Maybe()

	_, err := New(testConfig(), st, layout, deriver).Run(ctx, in)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "derive slope")

	runs, err := st.ListRuns(ctx, store.RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunStatusFailed, runs[0].Status)
	assert.Contains(t, runs[0].Error, "boom")

	stages, err := st.ListStages(ctx, runs[0].ID)
	require.NoError(t, err)
	require.Len(t, stages, 1)
	assert.Equal(t, StageDerive, stages[0].Name)
	assert.Equal(t, model.StageStatusFailed, stages[0].Status)
}

func TestPipeline_Run_MisalignedDerivedGrid(t *testing.T) {
	h := testHeader()
	h.CellSize = 50
	wrong, err := suitability.Filled(h, 0)
	require.NoError(t, err)

	layout, in := setupWorkspace(t, filled(t, 250), nil)
	deriver := &mockDeriver{}
	deriver.On("Derive", mock.Anything, suitability.CriterionSlope, mock.Anything).Return(wrong, nil)
	deriver.On("Derive", mock.Anything, mock.Anything, mock.Anything).Return(filled(t, 1), nil).Maybe()

	_, err = New(testConfig(), nil, layout, deriver).Run(context.Background(), in)
	require.Error(t, err)
	assert.True(t, suitability.IsGridMismatch(err))
}

func TestPipeline_Run_OutOfRangeScore(t *testing.T) {
	layout, in := setupWorkspace(t, filled(t, 250), nil)
	deriver := &mockDeriver{}
	deriver.On("Derive", mock.Anything, suitability.CriterionSlope, mock.Anything).Return(filled(t, 95), nil)
	deriver.On("Derive", mock.Anything, suitability.CriterionAspect, mock.Anything).Return(filled(t, 180), nil)
	deriver.On("Derive", mock.Anything, suitability.CriterionDistance, mock.Anything).Return(filled(t, 100), nil)
	deriver.On("Derive", mock.Anything, suitability.CriterionSolar, mock.Anything).Return(filled(t, 1000), nil)

	_, err := New(testConfig(), nil, layout, deriver).Run(context.Background(), in)
	require.Error(t, err)
	assert.True(t, suitability.IsOutOfRange(err))
	assert.Contains(t, err.Error(), "classify slope")
}

func sloped(t *testing.T) *suitability.Grid {
	t.Helper()
	h := testHeader()
	h.Width, h.Height = 8, 6
	vals := make([]float64, h.Cells())
	for i := range vals {
		r, c := h.RowCol(i)
		vals[i] = 200 + 3*float64(r) + 0.5*float64(c*c)
	}
	g, err := suitability.New(h, vals)
	require.NoError(t, err)
	return g
}

func TestPipeline_Run_Deterministic(t *testing.T) {
	cfg := testConfig()
	cfg.Analysis.Weights = suitability.DefaultWeights()
	cfg.Analysis.Threshold = 3
	cfg.Analysis.MinAreaHa = 0

	analyze := func() *Result {
		layout, in := setupWorkspace(t, sloped(t), nil)
		deriver, err := NewTerrainDeriver(cfg.Analysis)
		require.NoError(t, err)
		res, err := New(cfg, nil, layout, deriver).Run(context.Background(), in)
		require.NoError(t, err)
		return res
	}

	a, b := analyze(), analyze()
	if diff := cmp.Diff(a.Surface.Values(), b.Surface.Values()); diff != "" {
		t.Errorf("surface mismatch (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(a.Regions, b.Regions); diff != "" {
		t.Errorf("regions mismatch (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(a.Summary.Criteria, b.Summary.Criteria); diff != "" {
		t.Errorf("criteria stats mismatch (-first +second):\n%s", diff)
	}
}
