// Package vector converts between the raster core and vector geometry:
// road networks read from shapefiles, and candidate regions traced into
// polygons for shapefile, GeoJSON and database output.
package vector

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/siting-cli/internal/suitability"
)

// vertex is a cell corner in lattice coordinates: (col, row) of the cell
// whose north-west corner it is.
type vertex struct{ c, r int }

type edge struct {
	from, to vertex
	used     bool
}

func (e edge) dir() (int, int) { return e.to.c - e.from.c, e.to.r - e.from.r }

// Vectorize traces the boundary of a region into a polygon in map
// coordinates. Rings run counter-clockwise for the shell and clockwise for
// holes; cells that touch only at a corner are kept apart.
func Vectorize(h suitability.Header, region suitability.Region) (*geom.Polygon, error) {
	if len(region.Cells) == 0 {
		return nil, eris.Errorf("vector: region %d has no cells", region.ID)
	}
	in := func(r, c int) bool {
		if r < 0 || r >= h.Height || c < 0 || c >= h.Width {
			return false
		}
		return region.Contains(h.Index(r, c))
	}

	// Directed boundary edges with the region on the left (y up).
	var edges []edge
	for _, i := range region.Cells {
		r, c := h.RowCol(i)
		if !in(r+1, c) {
			edges = append(edges, edge{from: vertex{c, r + 1}, to: vertex{c + 1, r + 1}})
		}
		if !in(r, c+1) {
			edges = append(edges, edge{from: vertex{c + 1, r + 1}, to: vertex{c + 1, r}})
		}
		if !in(r-1, c) {
			edges = append(edges, edge{from: vertex{c + 1, r}, to: vertex{c, r}})
		}
		if !in(r, c-1) {
			edges = append(edges, edge{from: vertex{c, r}, to: vertex{c, r + 1}})
		}
	}
	out := make(map[vertex][]int, len(edges))
	for i, e := range edges {
		out[e.from] = append(out[e.from], i)
	}

	// next picks the successor of edge i; at a pinch vertex the left turn
	// keeps to the cell being followed.
	next := func(i int) int {
		cands := out[edges[i].to]
		if len(cands) == 1 {
			return cands[0]
		}
		dc, dr := edges[i].dir()
		lc, lr := dr, -dc
		for _, j := range cands {
			if jc, jr := edges[j].dir(); jc == lc && jr == lr {
				return j
			}
		}
		return cands[0]
	}

	var shell []geom.Coord
	var holes [][]geom.Coord
	for start := range edges {
		if edges[start].used {
			continue
		}
		var ring []vertex
		for i := start; ; {
			edges[i].used = true
			ring = append(ring, edges[i].from)
			i = next(i)
			if i == start {
				break
			}
			if edges[i].used {
				return nil, eris.Errorf("vector: region %d boundary does not close", region.ID)
			}
		}
		coords := ringCoords(h, simplify(ring))
		if signedArea(coords) > 0 {
			if shell != nil {
				return nil, eris.Errorf("vector: region %d is not 4-connected", region.ID)
			}
			shell = coords
			continue
		}
		holes = append(holes, coords)
	}
	if shell == nil {
		return nil, eris.Errorf("vector: region %d has no outer ring", region.ID)
	}

	poly, err := geom.NewPolygon(geom.XY).SetCoords(append([][]geom.Coord{shell}, holes...))
	if err != nil {
		return nil, eris.Wrapf(err, "vector: build polygon for region %d", region.ID)
	}
	return poly, nil
}

// simplify drops vertices where the boundary runs straight on.
func simplify(ring []vertex) []vertex {
	n := len(ring)
	out := make([]vertex, 0, n)
	for i, v := range ring {
		prev, nxt := ring[(i+n-1)%n], ring[(i+1)%n]
		if (v.c-prev.c)*(nxt.r-v.r) == (v.r-prev.r)*(nxt.c-v.c) {
			continue
		}
		out = append(out, v)
	}
	return out
}

// ringCoords maps lattice vertices to map coordinates and closes the ring.
func ringCoords(h suitability.Header, ring []vertex) []geom.Coord {
	coords := make([]geom.Coord, 0, len(ring)+1)
	for _, v := range ring {
		coords = append(coords, geom.Coord{
			h.Origin.X + float64(v.c)*h.CellSize,
			h.Origin.Y - float64(v.r)*h.CellSize,
		})
	}
	return append(coords, coords[0])
}

// signedArea is the shoelace area of a closed ring; positive when
// counter-clockwise.
func signedArea(ring []geom.Coord) float64 {
	var sum float64
	for i := 0; i+1 < len(ring); i++ {
		sum += ring[i].X()*ring[i+1].Y() - ring[i+1].X()*ring[i].Y()
	}
	return sum / 2
}

// Feature is a vectorized candidate region.
type Feature struct {
	Region  suitability.Region
	Polygon *geom.Polygon
	// AreaHa is the polygon area in hectares; it equals Region.AreaHectares
	// for cell-aligned polygons.
	AreaHa float64
}

// Features vectorizes regions in order and attaches their areas.
func Features(h suitability.Header, regions []suitability.Region) ([]Feature, error) {
	out := make([]Feature, 0, len(regions))
	for _, r := range regions {
		poly, err := Vectorize(h, r)
		if err != nil {
			return nil, err
		}
		area := poly.Area() / suitability.SquareMetersPerHectare
		if math.Abs(area-r.AreaHectares) > 1e-6*math.Max(1, r.AreaHectares) {
			return nil, eris.Errorf("vector: region %d polygon area %g ha differs from cell area %g ha",
				r.ID, area, r.AreaHectares)
		}
		out = append(out, Feature{Region: r, Polygon: poly, AreaHa: area})
	}
	return out, nil
}
