package vector

import (
	"encoding/json"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// EncodeEWKB encodes a feature's polygon as little-endian EWKB with the
// given SRID (0 for none).
func EncodeEWKB(f Feature, srid int) ([]byte, error) {
	data, err := ewkb.Marshal(f.Polygon.Clone().SetSRID(srid), ewkb.NDR)
	if err != nil {
		return nil, eris.Wrapf(err, "vector: encode EWKB for region %d", f.Region.ID)
	}
	return data, nil
}

// DecodeEWKB decodes a polygon written by EncodeEWKB.
func DecodeEWKB(data []byte) (*geom.Polygon, error) {
	g, err := ewkb.Unmarshal(data)
	if err != nil {
		return nil, eris.Wrap(err, "vector: decode EWKB")
	}
	p, ok := g.(*geom.Polygon)
	if !ok {
		return nil, eris.Errorf("vector: decoded %T, want polygon", g)
	}
	return p, nil
}

// FeatureCollection builds a GeoJSON feature collection of the zones.
func FeatureCollection(features []Feature) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(features))}
	for _, f := range features {
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       strconv.Itoa(f.Region.ID),
			Geometry: f.Polygon,
			Properties: map[string]any{
				FieldAreaHa:   f.AreaHa,
				FieldRegionID: f.Region.ID,
				FieldCells:    f.Region.CellCount,
				FieldMean:     f.Region.MeanValue,
			},
		})
	}
	return fc
}

// WriteGeoJSON writes the zones as a GeoJSON feature collection.
func WriteGeoJSON(path string, features []Feature) error {
	data, err := json.Marshal(FeatureCollection(features))
	if err != nil {
		return eris.Wrap(err, "vector: encode GeoJSON")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "vector: write %s", path)
	}
	return nil
}
