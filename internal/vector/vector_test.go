package vector

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/siting-cli/internal/suitability"
)

const testNoData = -9999.0

func testHeader(w, h int) suitability.Header {
	return suitability.Header{
		CellSize: 100,
		Width:    w,
		Height:   h,
		Origin:   suitability.Point{X: 500000, Y: 4200000},
		NoData:   testNoData,
	}
}

// regionsOf extracts the regions of a 0/1 pattern at threshold 1.
func regionsOf(t *testing.T, h suitability.Header, pattern ...float64) []suitability.Region {
	t.Helper()
	g, err := suitability.New(h, pattern)
	require.NoError(t, err)
	regions, err := suitability.ExtractZones(g, 1, 0)
	require.NoError(t, err)
	return regions
}

func TestVectorize_SingleCell(t *testing.T) {
	h := testHeader(3, 3)
	regions := regionsOf(t, h,
		0, 0, 0,
		0, 1, 0,
		0, 0, 0,
	)
	require.Len(t, regions, 1)

	poly, err := Vectorize(h, regions[0])
	require.NoError(t, err)
	require.Equal(t, 1, poly.NumLinearRings())
	assert.Equal(t, []geom.Coord{
		{500100, 4199800},
		{500200, 4199800},
		{500200, 4199900},
		{500100, 4199900},
		{500100, 4199800},
	}, poly.LinearRing(0).Coords())
	assert.InDelta(t, 10000.0, poly.Area(), 1e-6)
}

func TestVectorize_RectangleIsSimplified(t *testing.T) {
	h := testHeader(4, 3)
	regions := regionsOf(t, h,
		1, 1, 1, 0,
		1, 1, 1, 0,
		0, 0, 0, 0,
	)
	require.Len(t, regions, 1)

	poly, err := Vectorize(h, regions[0])
	require.NoError(t, err)
	assert.Len(t, poly.LinearRing(0).Coords(), 5)
	assert.InDelta(t, 60000.0, poly.Area(), 1e-6)
	assert.Greater(t, signedArea(poly.LinearRing(0).Coords()), 0.0)
}

func TestVectorize_Hole(t *testing.T) {
	h := testHeader(3, 3)
	regions := regionsOf(t, h,
		1, 1, 1,
		1, 0, 1,
		1, 1, 1,
	)
	require.Len(t, regions, 1)

	poly, err := Vectorize(h, regions[0])
	require.NoError(t, err)
	require.Equal(t, 2, poly.NumLinearRings())
	assert.Less(t, signedArea(poly.LinearRing(1).Coords()), 0.0)
	assert.InDelta(t, 80000.0, poly.Area(), 1e-6)
}

func TestVectorize_DiagonalPinch(t *testing.T) {
	// The empty centre touches the outside at a corner, so it is not a hole.
	h := testHeader(3, 3)
	regions := regionsOf(t, h,
		0, 1, 1,
		1, 0, 1,
		1, 1, 1,
	)
	require.Len(t, regions, 1)

	poly, err := Vectorize(h, regions[0])
	require.NoError(t, err)
	assert.Equal(t, 1, poly.NumLinearRings())
	assert.InDelta(t, 70000.0, poly.Area(), 1e-6)
}

func TestVectorize_Empty(t *testing.T) {
	_, err := Vectorize(testHeader(1, 1), suitability.Region{ID: 4})
	assert.Error(t, err)
}

func TestFeatures_AreaMatchesCells(t *testing.T) {
	h := testHeader(6, 5)
	regions := regionsOf(t, h,
		1, 1, 0, 1, 1, 1,
		0, 1, 0, 1, 0, 1,
		1, 1, 1, 1, 0, 0,
		0, 0, 0, 0, 1, 1,
		1, 0, 1, 0, 1, 0,
	)
	features, err := Features(h, regions)
	require.NoError(t, err)
	require.Len(t, features, len(regions))
	for i, f := range features {
		assert.Equal(t, regions[i].ID, f.Region.ID)
		assert.InDelta(t, regions[i].AreaHectares, f.AreaHa, 1e-9)
	}
}

func testFeatures(t *testing.T) []Feature {
	t.Helper()
	h := testHeader(4, 2)
	features, err := Features(h, regionsOf(t, h,
		1, 1, 0, 1,
		1, 0, 0, 1,
	))
	require.NoError(t, err)
	require.Len(t, features, 2)
	return features
}

func TestWriteShapefile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "selected_zones.shp")
	features := testFeatures(t)
	require.NoError(t, WriteShapefile(path, features))
	assert.FileExists(t, strings.TrimSuffix(path, ".shp")+".dbf")
	assert.NoFileExists(t, strings.TrimSuffix(path, ".shp")+"dbf")

	reader, err := shp.Open(path)
	require.NoError(t, err)
	defer func() { _ = reader.Close() }()

	names := make([]string, 0, 4)
	for _, f := range reader.Fields() {
		names = append(names, strings.TrimRight(f.String(), "\x00"))
	}
	assert.Equal(t, []string{FieldAreaHa, FieldRegionID, FieldCells, FieldMean}, names)

	var n int
	for reader.Next() {
		_, shape := reader.Shape()
		poly, ok := shape.(*shp.Polygon)
		require.True(t, ok)
		assert.Equal(t, int32(1), poly.NumParts)

		id := strings.TrimSpace(strings.TrimRight(reader.Attribute(1), "\x00"))
		cells := strings.TrimSpace(strings.TrimRight(reader.Attribute(2), "\x00"))
		area := strings.TrimSpace(strings.TrimRight(reader.Attribute(0), "\x00"))
		switch id {
		case "1":
			assert.Equal(t, "3", cells)
			assert.Equal(t, "3.0000", area)
		case "2":
			assert.Equal(t, "2", cells)
			assert.Equal(t, "2.0000", area)
		default:
			t.Fatalf("unexpected REGION_ID %q", id)
		}
		n++
	}
	assert.Equal(t, 2, n)
}

func TestReadLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roads.shp")
	w, err := shp.Create(path, shp.POLYLINE)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{shp.StringField("NAME", 20)}))
	row := w.Write(shp.NewPolyLine([][]shp.Point{
		{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}},
		{{X: 20, Y: 20}, {X: 30, Y: 30}},
	}))
	require.NoError(t, w.WriteAttribute(int(row), 0, "main"))
	row = w.Write(shp.NewPolyLine([][]shp.Point{{{X: 5, Y: 5}, {X: 6, Y: 6}}}))
	require.NoError(t, w.WriteAttribute(int(row), 0, "side"))
	w.Close()

	lines, err := ReadLines(path)
	require.NoError(t, err)
	require.Len(t, lines, 3)
	assert.Equal(t, []float64{0, 0, 10, 0, 10, 10}, lines[0].FlatCoords())
	assert.Equal(t, []float64{20, 20, 30, 30}, lines[1].FlatCoords())
	assert.Equal(t, []float64{5, 5, 6, 6}, lines[2].FlatCoords())
}

func TestReadLines_MissingFile(t *testing.T) {
	_, err := ReadLines(filepath.Join(t.TempDir(), "nope.shp"))
	assert.Error(t, err)
}

func TestSplitParts_DropsDegenerate(t *testing.T) {
	points := []shp.Point{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 2}}
	lines := splitParts([]int32{0, 2}, points)
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].NumCoords())
}

func TestWriteGeoJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "selected_zones.geojson")
	require.NoError(t, WriteGeoJSON(path, testFeatures(t)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Type string `json:"type"`
			} `json:"geometry"`
			Properties map[string]float64 `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "FeatureCollection", doc.Type)
	require.Len(t, doc.Features, 2)
	assert.Equal(t, "Polygon", doc.Features[0].Geometry.Type)
	assert.Equal(t, 1.0, doc.Features[0].Properties[FieldRegionID])
	assert.InDelta(t, 3.0, doc.Features[0].Properties[FieldAreaHa], 1e-9)
}

func TestEWKBRoundTrip(t *testing.T) {
	f := testFeatures(t)[0]
	data, err := EncodeEWKB(f, 32610)
	require.NoError(t, err)

	poly, err := DecodeEWKB(data)
	require.NoError(t, err)
	assert.Equal(t, 32610, poly.SRID())
	assert.InDelta(t, f.Polygon.Area(), poly.Area(), 1e-9)
	assert.Equal(t, f.Polygon.FlatCoords(), poly.FlatCoords())
	// The feature itself keeps its SRID.
	assert.Equal(t, 0, f.Polygon.SRID())
}
