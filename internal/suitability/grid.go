// Package suitability implements the classification and overlay core of the
// siting analysis: grid containers, breakpoint reclassification, quantile
// classification, weighted overlay and candidate zone extraction.
package suitability

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Point is a map coordinate.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Header is the spatial header shared by every grid in an analysis.
// Origin is the north-west corner; row 0 is the northernmost row.
type Header struct {
	CellSize float64 `json:"cell_size" yaml:"cell_size"`
	Width    int     `json:"width" yaml:"width"`
	Height   int     `json:"height" yaml:"height"`
	Origin   Point   `json:"origin" yaml:"origin"`
	NoData   float64 `json:"nodata" yaml:"nodata"`
}

func (h Header) String() string {
	return fmt.Sprintf("%dx%d@%g origin(%g,%g)", h.Width, h.Height, h.CellSize, h.Origin.X, h.Origin.Y)
}

// Validate checks the header dimensions.
func (h Header) Validate() error {
	var problems []string
	if !(h.CellSize > 0) || math.IsInf(h.CellSize, 0) {
		problems = append(problems, fmt.Sprintf("cell_size must be > 0, got %g", h.CellSize))
	}
	if h.Width <= 0 {
		problems = append(problems, fmt.Sprintf("width must be > 0, got %d", h.Width))
	}
	if h.Height <= 0 {
		problems = append(problems, fmt.Sprintf("height must be > 0, got %d", h.Height))
	}
	if len(problems) > 0 {
		return newConfigError(problems...)
	}
	return nil
}

// Cells returns the number of cells in the grid.
func (h Header) Cells() int { return h.Width * h.Height }

// Index returns the row-major index of (row, col).
func (h Header) Index(row, col int) int { return row*h.Width + col }

// RowCol splits a row-major index.
func (h Header) RowCol(i int) (int, int) { return i / h.Width, i % h.Width }

// CellBounds returns the map extent of a cell as minX, minY, maxX, maxY.
func (h Header) CellBounds(row, col int) (float64, float64, float64, float64) {
	minX := h.Origin.X + float64(col)*h.CellSize
	maxY := h.Origin.Y - float64(row)*h.CellSize
	return minX, maxY - h.CellSize, minX + h.CellSize, maxY
}

// CellCenter returns the map coordinate of a cell center.
func (h Header) CellCenter(row, col int) Point {
	return Point{
		X: h.Origin.X + (float64(col)+0.5)*h.CellSize,
		Y: h.Origin.Y - (float64(row)+0.5)*h.CellSize,
	}
}

// mismatch lists the alignment fields on which two headers differ. NoData
// is not part of alignment.
func (h Header) mismatch(o Header) []string {
	var fields []string
	if h.CellSize != o.CellSize {
		fields = append(fields, "cell_size")
	}
	if h.Width != o.Width {
		fields = append(fields, "width")
	}
	if h.Height != o.Height {
		fields = append(fields, "height")
	}
	if h.Origin != o.Origin {
		fields = append(fields, "origin")
	}
	return fields
}

// IsNoData reports whether v is the header's NoData value. A NaN NoData
// matches any NaN.
func (h Header) IsNoData(v float64) bool {
	if math.IsNaN(h.NoData) {
		return math.IsNaN(v)
	}
	return v == h.NoData
}

// Grid is an immutable raster: a header plus one float64 per cell, row-major.
type Grid struct {
	header Header
	values []float64
}

// New builds a grid from a header and a flat row-major buffer. The buffer is
// copied.
func New(h Header, values []float64) (*Grid, error) {
	if err := h.Validate(); err != nil {
		return nil, err
	}
	if len(values) != h.Cells() {
		return nil, newConfigError(fmt.Sprintf("grid %s needs %d values, got %d", h, h.Cells(), len(values)))
	}
	buf := make([]float64, len(values))
	copy(buf, values)
	return &Grid{header: h, values: buf}, nil
}

// Filled builds a grid with every cell set to v.
func Filled(h Header, v float64) (*Grid, error) {
	if err := h.Validate(); err != nil {
		return nil, err
	}
	buf := make([]float64, h.Cells())
	for i := range buf {
		buf[i] = v
	}
	return &Grid{header: h, values: buf}, nil
}

// wrap takes ownership of buf without copying.
func wrap(h Header, buf []float64) *Grid {
	return &Grid{header: h, values: buf}
}

// Header returns the grid's spatial header.
func (g *Grid) Header() Header { return g.header }

// NoData returns the grid's NoData sentinel.
func (g *Grid) NoData() float64 { return g.header.NoData }

// At returns the value at (row, col).
func (g *Grid) At(row, col int) float64 { return g.values[g.header.Index(row, col)] }

// Value returns the value at row-major index i.
func (g *Grid) Value(i int) float64 { return g.values[i] }

// IsNoData reports whether v is this grid's NoData value.
func (g *Grid) IsNoData(v float64) bool { return g.header.IsNoData(v) }

// Valid reports whether the cell at index i holds a measurement.
func (g *Grid) Valid(i int) bool { return !g.header.IsNoData(g.values[i]) }

// Values returns a copy of the cell buffer.
func (g *Grid) Values() []float64 {
	out := make([]float64, len(g.values))
	copy(out, g.values)
	return out
}

// Aligned returns a *GridMismatchError when other does not share this grid's
// cell size, dimensions and origin.
func (g *Grid) Aligned(other *Grid) error {
	if fields := g.header.mismatch(other.header); len(fields) > 0 {
		return &GridMismatchError{Left: g.header, Right: other.header, Fields: fields}
	}
	return nil
}

// Map applies f to every valid cell and returns a new grid. NoData cells are
// copied through unchanged.
func (g *Grid) Map(f func(v float64) float64) *Grid {
	out := make([]float64, len(g.values))
	for i, v := range g.values {
		if g.header.IsNoData(v) {
			out[i] = v
			continue
		}
		out[i] = f(v)
	}
	return wrap(g.header, out)
}

// Combine merges two aligned grids cell by cell. A cell that is NoData in
// either input is NoData in the output (this grid's sentinel).
func (g *Grid) Combine(other *Grid, f func(a, b float64) float64) (*Grid, error) {
	if err := g.Aligned(other); err != nil {
		return nil, err
	}
	out := make([]float64, len(g.values))
	for i, a := range g.values {
		b := other.values[i]
		if g.header.IsNoData(a) || other.header.IsNoData(b) {
			out[i] = g.header.NoData
			continue
		}
		out[i] = f(a, b)
	}
	return wrap(g.header, out), nil
}

// EachValid calls fn for every valid cell in row-major order.
func (g *Grid) EachValid(fn func(row, col int, v float64)) {
	for i, v := range g.values {
		if g.header.IsNoData(v) {
			continue
		}
		r, c := g.header.RowCol(i)
		fn(r, c, v)
	}
}

// ValidValues returns the valid cell values in row-major order.
func (g *Grid) ValidValues() []float64 {
	out := make([]float64, 0, len(g.values))
	for _, v := range g.values {
		if !g.header.IsNoData(v) {
			out = append(out, v)
		}
	}
	return out
}

// ValidCount returns the number of valid cells.
func (g *Grid) ValidCount() int {
	n := 0
	for _, v := range g.values {
		if !g.header.IsNoData(v) {
			n++
		}
	}
	return n
}

// Stats summarizes the valid cells of a grid.
type Stats struct {
	Count  int     `json:"count" yaml:"count"`
	Min    float64 `json:"min" yaml:"min"`
	Max    float64 `json:"max" yaml:"max"`
	Mean   float64 `json:"mean" yaml:"mean"`
	StdDev float64 `json:"stddev" yaml:"stddev"`
}

// Stats computes summary statistics over valid cells. An all-NoData grid
// returns a zero Stats.
func (g *Grid) Stats() Stats {
	vals := g.ValidValues()
	if len(vals) == 0 {
		return Stats{}
	}
	s := Stats{Count: len(vals), Min: vals[0], Max: vals[0]}
	for _, v := range vals[1:] {
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	s.Mean = stat.Mean(vals, nil)
	if len(vals) > 1 {
		s.StdDev = stat.StdDev(vals, nil)
	}
	return s
}
