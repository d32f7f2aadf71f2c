package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/siting-cli/internal/config"
	"github.com/sells-group/siting-cli/internal/store"
	"github.com/sells-group/siting-cli/internal/suitability"
	"github.com/sells-group/siting-cli/internal/workspace"
)

// --- Deriver Mock ---

type mockDeriver struct {
	mock.Mock
}

func (m *mockDeriver) Derive(ctx context.Context, criterion string, layers Layers) (*suitability.Grid, error) {
	args := m.Called(ctx, criterion, layers)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*suitability.Grid), args.Error(1)
}

// --- Fixtures ---

const (
	originX = 500000.0
	originY = 5300000.0
)

func testHeader() suitability.Header {
	return suitability.Header{
		CellSize: 100,
		Width:    3,
		Height:   3,
		Origin:   suitability.Point{X: originX, Y: originY},
		NoData:   -9999,
	}
}

func filled(t *testing.T, v float64) *suitability.Grid {
	t.Helper()
	g, err := suitability.Filled(testHeader(), v)
	require.NoError(t, err)
	return g
}

// testConfig leaves solar out of the overlay so a uniform 5 on the other
// criteria yields a surface of exactly 5.
func testConfig() *config.Config {
	return &config.Config{
		Store: config.StoreConfig{Driver: "sqlite", DatabaseURL: "siting.db"},
		Analysis: config.AnalysisConfig{
			Weights: map[string]float64{
				suitability.CriterionAspect:   0.3,
				suitability.CriterionDistance: 0.3,
				suitability.CriterionSlope:    0.4,
				suitability.CriterionSolar:    0,
			},
			Threshold:       4.5,
			MinAreaHa:       2,
			QuantileClasses: 5,
			DistanceCeiling: 100000,
			Solar: config.SolarConfig{
				Latitude:       48.5,
				StartDate:      "2020-06-01",
				EndDate:        "2020-08-31",
				DayInterval:    14,
				HourInterval:   2,
				Transmissivity: 0.5,
			},
		},
	}
}

// setupWorkspace writes a DEM, a roads shapefile along the middle row and an
// optional mask into a fresh workspace.
func setupWorkspace(t *testing.T, dem, mask *suitability.Grid) (workspace.Layout, workspace.Inputs) {
	t.Helper()
	root := t.TempDir()
	layout, err := workspace.Setup(root)
	require.NoError(t, err)

	inputDir := filepath.Join(root, "inputs")
	require.NoError(t, os.Mkdir(inputDir, 0o755))
	in := workspace.Inputs{
		DEMPath:   filepath.Join(inputDir, "dem.json"),
		RoadsPath: filepath.Join(inputDir, "roads.shp"),
	}
	require.NoError(t, workspace.SaveGrid(in.DEMPath, dem))
	writeRoads(t, in.RoadsPath, [][]shp.Point{{
		{X: originX + 1, Y: originY - 150},
		{X: originX + 299, Y: originY - 150},
	}})
	if mask != nil {
		in.MaskPath = filepath.Join(inputDir, "mask.json")
		require.NoError(t, workspace.SaveGrid(in.MaskPath, mask))
	}
	return layout, in
}

func writeRoads(t *testing.T, path string, parts [][]shp.Point) {
	t.Helper()
	w, err := shp.Create(path, shp.POLYLINE)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{shp.StringField("NAME", 20)}))
	row := w.Write(shp.NewPolyLine(parts))
	require.NoError(t, w.WriteAttribute(int(row), 0, "main"))
	w.Close()
}

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

// allFive returns a deriver whose grids score 5 on every fixed table and a
// uniform solar grid.
func allFive(t *testing.T, slope float64) *mockDeriver {
	d := &mockDeriver{}
	d.On("Derive", mock.Anything, suitability.CriterionSlope, mock.Anything).Return(filled(t, slope), nil)
	d.On("Derive", mock.Anything, suitability.CriterionAspect, mock.Anything).Return(filled(t, 180), nil)
	d.On("Derive", mock.Anything, suitability.CriterionDistance, mock.Anything).Return(filled(t, 100), nil)
	d.On("Derive", mock.Anything, suitability.CriterionSolar, mock.Anything).Return(filled(t, 1000), nil)
	return d
}
