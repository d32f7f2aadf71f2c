// Package workspace owns the on-disk layout of an analysis: the results
// directories, input checks and grid documents.
package workspace

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Directory names under the workspace root.
const (
	ResultsDir     = "results"
	ScoresDir      = "scores"
	OutputZonesDir = "output_zones"
)

// Layout resolves output paths under a workspace root.
type Layout struct {
	Root string
}

// Results is the directory holding the continuous criterion grids and the
// suitability surface.
func (l Layout) Results() string { return filepath.Join(l.Root, ResultsDir) }

// Scores is the directory holding the per-criterion score grids.
func (l Layout) Scores() string { return filepath.Join(l.Results(), ScoresDir) }

// OutputZones is the directory holding the zone label grid and polygons.
func (l Layout) OutputZones() string { return filepath.Join(l.Results(), OutputZonesDir) }

// CriterionGrid is the path of a continuous criterion grid.
func (l Layout) CriterionGrid(name string) string {
	return filepath.Join(l.Results(), name+".json")
}

// ScoreGrid is the path of a criterion's score grid.
func (l Layout) ScoreGrid(name string) string {
	return filepath.Join(l.Scores(), name+"_score.json")
}

// Suitability is the path of the weighted overlay surface.
func (l Layout) Suitability() string { return filepath.Join(l.Results(), "suitability.json") }

// ZoneLabels is the path of the candidate zone label grid.
func (l Layout) ZoneLabels() string { return filepath.Join(l.OutputZones(), "best_zones.json") }

// ZonesShapefile is the path of the selected zone polygons.
func (l Layout) ZonesShapefile() string {
	return filepath.Join(l.OutputZones(), "selected_zones.shp")
}

// ZonesGeoJSON is the path of the selected zone polygons as GeoJSON.
func (l Layout) ZonesGeoJSON() string {
	return filepath.Join(l.OutputZones(), "selected_zones.geojson")
}

// ZonesWorkbook is the path of the zone spreadsheet report.
func (l Layout) ZonesWorkbook() string { return filepath.Join(l.Results(), "zones.xlsx") }

// Summary is the path of the run summary document.
func (l Layout) Summary() string { return filepath.Join(l.Results(), "summary.yaml") }

// Setup checks that the workspace root exists and creates the results
// directories beneath it.
func Setup(root string) (Layout, error) {
	info, err := os.Stat(root)
	if err != nil {
		return Layout{}, eris.Wrapf(err, "workspace: root %s", root)
	}
	if !info.IsDir() {
		return Layout{}, eris.Errorf("workspace: root %s is not a directory", root)
	}
	l := Layout{Root: root}
	for _, dir := range []string{l.Results(), l.Scores(), l.OutputZones()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Layout{}, eris.Wrapf(err, "workspace: create %s", dir)
		}
	}
	zap.L().Debug("workspace: ready", zap.String("root", root))
	return l, nil
}
