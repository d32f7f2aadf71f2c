package workspace

import (
	"encoding/json"
	"math"
	"os"

	"github.com/rotisserie/eris"

	"github.com/sells-group/siting-cli/internal/suitability"
)

// gridHeaderJSON carries the NoData sentinel as a pointer so a NaN sentinel
// can be written as null.
type gridHeaderJSON struct {
	CellSize float64           `json:"cell_size"`
	Width    int               `json:"width"`
	Height   int               `json:"height"`
	Origin   suitability.Point `json:"origin"`
	NoData   *float64          `json:"nodata"`
}

// gridDocumentJSON is the on-disk form of a grid. NoData cells are null.
type gridDocumentJSON struct {
	Header gridHeaderJSON `json:"header"`
	Values []*float64     `json:"values"`
}

// MarshalGrid encodes a grid as a JSON grid document.
func MarshalGrid(g *suitability.Grid) ([]byte, error) {
	h := g.Header()
	doc := gridDocumentJSON{
		Header: gridHeaderJSON{
			CellSize: h.CellSize,
			Width:    h.Width,
			Height:   h.Height,
			Origin:   h.Origin,
		},
		Values: make([]*float64, h.Cells()),
	}
	if !math.IsNaN(h.NoData) {
		nd := h.NoData
		doc.Header.NoData = &nd
	}
	for i := range doc.Values {
		if !g.Valid(i) {
			continue
		}
		v := g.Value(i)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, eris.Errorf("workspace: cell %d holds non-finite value %g", i, v)
		}
		doc.Values[i] = &v
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, eris.Wrap(err, "workspace: encode grid")
	}
	return data, nil
}

// UnmarshalGrid decodes a JSON grid document. A null NoData header field
// means NaN; null cells take the NoData value.
func UnmarshalGrid(data []byte) (*suitability.Grid, error) {
	var doc gridDocumentJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "workspace: decode grid")
	}
	h := suitability.Header{
		CellSize: doc.Header.CellSize,
		Width:    doc.Header.Width,
		Height:   doc.Header.Height,
		Origin:   doc.Header.Origin,
		NoData:   math.NaN(),
	}
	if doc.Header.NoData != nil {
		h.NoData = *doc.Header.NoData
	}
	vals := make([]float64, len(doc.Values))
	for i, v := range doc.Values {
		if v == nil {
			vals[i] = h.NoData
			continue
		}
		vals[i] = *v
	}
	g, err := suitability.New(h, vals)
	if err != nil {
		return nil, eris.Wrap(err, "workspace: decode grid")
	}
	return g, nil
}

// LoadGrid reads a grid document from disk.
func LoadGrid(path string) (*suitability.Grid, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "workspace: read grid %s", path)
	}
	g, err := UnmarshalGrid(data)
	if err != nil {
		return nil, eris.Wrapf(err, "workspace: load grid %s", path)
	}
	return g, nil
}

// SaveGrid writes a grid document to disk.
func SaveGrid(path string, g *suitability.Grid) error {
	data, err := MarshalGrid(g)
	if err != nil {
		return eris.Wrapf(err, "workspace: save grid %s", path)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "workspace: write grid %s", path)
	}
	return nil
}
