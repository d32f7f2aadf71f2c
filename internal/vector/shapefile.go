package vector

import (
	"os"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
)

// Attribute columns written with every zone polygon.
const (
	FieldAreaHa   = "Area_Ha"
	FieldRegionID = "REGION_ID"
	FieldCells    = "CELLS"
	FieldMean     = "MEAN"
)

// ReadLines reads every PolyLine record of a shapefile as line strings, one
// per part. Records of other shape types are skipped.
func ReadLines(path string) ([]*geom.LineString, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "vector: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	var lines []*geom.LineString
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()
		var parts []int32
		var points []shp.Point
		switch s := shape.(type) {
		case *shp.PolyLine:
			parts, points = s.Parts, s.Points
		case *shp.PolyLineZ:
			parts, points = s.Parts, s.Points
		case *shp.PolyLineM:
			parts, points = s.Parts, s.Points
		default:
			skipped++
			continue
		}
		lines = append(lines, splitParts(parts, points)...)
	}
	if skipped > 0 {
		zap.L().Debug("vector: skipped non-line shapefile records",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	return lines, nil
}

// splitParts turns a multi-part point list into line strings. Parts with
// fewer than two points are dropped.
func splitParts(parts []int32, points []shp.Point) []*geom.LineString {
	var out []*geom.LineString
	for i, start := range parts {
		end := int32(len(points))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		if start < 0 || end > int32(len(points)) || end-start < 2 {
			continue
		}
		flat := make([]float64, 0, 2*(end-start))
		for _, p := range points[start:end] {
			flat = append(flat, p.X, p.Y)
		}
		out = append(out, geom.NewLineStringFlat(geom.XY, flat))
	}
	return out
}

// WriteShapefile writes features as a polygon shapefile with the zone
// attribute columns. Companion .shx and .dbf files are written alongside.
func WriteShapefile(path string, features []Feature) error {
	w, err := shp.Create(path, shp.POLYGON)
	if err != nil {
		return eris.Wrapf(err, "vector: create shapefile %s", path)
	}
	if err := writeZones(w, features); err != nil {
		w.Close()
		return err
	}
	w.Close()

	// go-shp names the attribute table "<base>dbf" without the dot.
	base := path
	if strings.HasSuffix(strings.ToLower(base), ".shp") {
		base = base[:len(base)-len(".shp")]
	}
	if err := os.Rename(base+"dbf", base+".dbf"); err != nil {
		return eris.Wrapf(err, "vector: move attribute table for %s", path)
	}
	return nil
}

func writeZones(w *shp.Writer, features []Feature) error {
	fields := []shp.Field{
		shp.FloatField(FieldAreaHa, 18, 4),
		shp.NumberField(FieldRegionID, 10),
		shp.NumberField(FieldCells, 10),
		shp.FloatField(FieldMean, 12, 6),
	}
	if err := w.SetFields(fields); err != nil {
		return eris.Wrap(err, "vector: set shapefile fields")
	}

	for _, f := range features {
		row := int(w.Write(toShapePolygon(f.Polygon)))
		attrs := []any{f.AreaHa, f.Region.ID, f.Region.CellCount, f.Region.MeanValue}
		for i, v := range attrs {
			if err := w.WriteAttribute(row, i, v); err != nil {
				return eris.Wrapf(err, "vector: write attribute %s for region %d", fields[i].String(), f.Region.ID)
			}
		}
	}
	return nil
}

// toShapePolygon converts a polygon to a shapefile polygon. Shapefile rings
// run clockwise for shells and counter-clockwise for holes, the reverse of
// Vectorize.
func toShapePolygon(p *geom.Polygon) *shp.Polygon {
	var parts []int32
	var points []shp.Point
	for i := 0; i < p.NumLinearRings(); i++ {
		coords := p.LinearRing(i).Coords()
		parts = append(parts, int32(len(points)))
		for j := len(coords) - 1; j >= 0; j-- {
			points = append(points, shp.Point{X: coords[j].X(), Y: coords[j].Y()})
		}
	}
	b := p.Bounds()
	return &shp.Polygon{
		Box:       shp.Box{MinX: b.Min(0), MinY: b.Min(1), MaxX: b.Max(0), MaxY: b.Max(1)},
		NumParts:  int32(len(parts)),
		NumPoints: int32(len(points)),
		Parts:     parts,
		Points:    points,
	}
}
