package terrain

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/siting-cli/internal/suitability"
)

// far stands in for infinity in the squared-distance transform.
const far = 1e20

// RasterizeLines marks every cell of h crossed by one of the lines. Segments
// are sampled at a quarter of the cell size; parts outside the grid are
// ignored.
func RasterizeLines(h suitability.Header, lines []*geom.LineString) []bool {
	cells := make([]bool, h.Cells())
	step := h.CellSize / 4
	mark := func(x, y float64) {
		col := int(math.Floor((x - h.Origin.X) / h.CellSize))
		row := int(math.Floor((h.Origin.Y - y) / h.CellSize))
		if row < 0 || row >= h.Height || col < 0 || col >= h.Width {
			return
		}
		cells[h.Index(row, col)] = true
	}
	for _, ls := range lines {
		n := ls.NumCoords()
		for i := 0; i < n; i++ {
			a := ls.Coord(i)
			mark(a.X(), a.Y())
			if i == n-1 {
				continue
			}
			b := ls.Coord(i + 1)
			dx, dy := b.X()-a.X(), b.Y()-a.Y()
			steps := int(math.Ceil(math.Hypot(dx, dy) / step))
			for s := 1; s < steps; s++ {
				f := float64(s) / float64(steps)
				mark(a.X()+f*dx, a.Y()+f*dy)
			}
		}
	}
	return cells
}

// EuclideanDistance returns, for every cell of ref, the straight-line
// distance in map units from its centre to the nearest source cell centre,
// clamped at ceiling. Cells that are NoData in ref stay NoData. With no
// source cells every valid cell is at the ceiling.
func EuclideanDistance(ref *suitability.Grid, sources []bool, ceiling float64) (*suitability.Grid, error) {
	h := ref.Header()
	if len(sources) != h.Cells() {
		return nil, eris.Errorf("terrain: %d source flags for a %d-cell grid", len(sources), h.Cells())
	}
	if !(ceiling > 0) {
		return nil, eris.Errorf("terrain: distance ceiling must be > 0, got %g", ceiling)
	}

	sq := make([]float64, h.Cells())
	for i, src := range sources {
		if !src {
			sq[i] = far
		}
	}

	// Columns, then rows (Felzenszwalb and Huttenlocher).
	col := make([]float64, h.Height)
	out := make([]float64, max(h.Width, h.Height))
	for c := 0; c < h.Width; c++ {
		for r := 0; r < h.Height; r++ {
			col[r] = sq[h.Index(r, c)]
		}
		transform1D(col, out[:h.Height])
		for r := 0; r < h.Height; r++ {
			sq[h.Index(r, c)] = out[r]
		}
	}
	row := make([]float64, h.Width)
	for r := 0; r < h.Height; r++ {
		copy(row, sq[h.Index(r, 0):h.Index(r, 0)+h.Width])
		transform1D(row, out[:h.Width])
		copy(sq[h.Index(r, 0):], out[:h.Width])
	}

	vals := make([]float64, h.Cells())
	for i, d2 := range sq {
		if !ref.Valid(i) {
			vals[i] = h.NoData
			continue
		}
		d := math.Sqrt(d2) * h.CellSize
		if d2 >= far/2 || d > ceiling {
			d = ceiling
		}
		vals[i] = d
	}
	return suitability.New(h, vals)
}

// transform1D computes the squared distance transform of f into d using the
// lower envelope of parabolas rooted at each sample.
func transform1D(f, d []float64) {
	n := len(f)
	v := make([]int, n)
	z := make([]float64, n+1)
	k := 0
	v[0] = 0
	z[0] = math.Inf(-1)
	z[1] = math.Inf(1)
	for q := 1; q < n; q++ {
		s := intersect(f, q, v[k])
		for s <= z[k] {
			k--
			s = intersect(f, q, v[k])
		}
		k++
		v[k] = q
		z[k] = s
		z[k+1] = math.Inf(1)
	}
	k = 0
	for q := 0; q < n; q++ {
		for z[k+1] < float64(q) {
			k++
		}
		dq := float64(q - v[k])
		d[q] = dq*dq + f[v[k]]
	}
}

func intersect(f []float64, q, p int) float64 {
	fq, fp := float64(q), float64(p)
	return ((f[q] + fq*fq) - (f[p] + fp*fp)) / (2*fq - 2*fp)
}

// Distance rasterizes lines onto the grid of ref and returns the distance
// surface to them.
func Distance(ref *suitability.Grid, lines []*geom.LineString, ceiling float64) (*suitability.Grid, error) {
	return EuclideanDistance(ref, RasterizeLines(ref.Header(), lines), ceiling)
}
