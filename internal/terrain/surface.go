// Package terrain derives the continuous criterion grids of the siting
// analysis from a DEM: slope, aspect, solar exposure and distance to
// features. Every derivation returns a grid aligned with its input.
package terrain

import (
	"math"

	"github.com/sells-group/siting-cli/internal/suitability"
)

const (
	radToDeg = 180.0 / math.Pi
	degToRad = math.Pi / 180.0
)

// Neighbour offsets, clockwise from north-east: NE, E, SE, S, SW, W, NW, N.
var (
	dRow = [8]int{-1, 0, 1, 1, 1, 0, -1, -1}
	dCol = [8]int{1, 1, 1, 0, -1, -1, -1, 0}
)

// gradient returns the Horn (3x3 Sobel) partial derivatives of the surface
// at (row, col): fx toward east, fy toward north. Neighbours that are NoData
// or off the grid take the centre elevation.
func gradient(dem *suitability.Grid, row, col int) (fx, fy float64) {
	h := dem.Header()
	z := dem.At(row, col)
	var n [8]float64
	for k := 0; k < 8; k++ {
		r, c := row+dRow[k], col+dCol[k]
		if r < 0 || r >= h.Height || c < 0 || c >= h.Width {
			n[k] = z
			continue
		}
		v := dem.At(r, c)
		if h.IsNoData(v) {
			n[k] = z
			continue
		}
		n[k] = v
	}
	eight := 8 * h.CellSize
	fy = (n[6] - n[4] + 2*(n[7]-n[3]) + n[0] - n[2]) / eight
	fx = (n[2] - n[4] + 2*(n[1]-n[5]) + n[0] - n[6]) / eight
	return fx, fy
}

// derive applies f to the gradient of every valid DEM cell.
func derive(dem *suitability.Grid, f func(fx, fy float64) float64) *suitability.Grid {
	h := dem.Header()
	out := make([]float64, h.Cells())
	for i := range out {
		if !dem.Valid(i) {
			out[i] = h.NoData
			continue
		}
		r, c := h.RowCol(i)
		out[i] = f(gradient(dem, r, c))
	}
	g, _ := suitability.New(h, out)
	return g
}

// Slope returns the surface slope in degrees, 0 to 90.
func Slope(dem *suitability.Grid) *suitability.Grid {
	return derive(dem, slopeDegrees)
}

func slopeDegrees(fx, fy float64) float64 {
	return math.Atan(math.Hypot(fx, fy)) * radToDeg
}

// Aspect returns the downslope direction in degrees clockwise from north,
// in [0, 360). Flat cells are suitability.AspectFlat (-1).
func Aspect(dem *suitability.Grid) *suitability.Grid {
	return derive(dem, aspectDegrees)
}

func aspectDegrees(fx, fy float64) float64 {
	if fx == 0 && fy == 0 {
		return suitability.AspectFlat
	}
	a := math.Atan2(-fx, -fy) * radToDeg
	if a < 0 {
		a += 360
	}
	if a >= 360 {
		a = 0
	}
	return a
}
