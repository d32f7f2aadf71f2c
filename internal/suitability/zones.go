package suitability

import (
	"fmt"
	"math"
	"slices"
)

// SquareMetersPerHectare converts squared map units (meters) to hectares.
const SquareMetersPerHectare = 10000.0

// Bounds is a cell-index bounding box, inclusive on both ends.
type Bounds struct {
	MinRow int `json:"min_row" yaml:"min_row"`
	MinCol int `json:"min_col" yaml:"min_col"`
	MaxRow int `json:"max_row" yaml:"max_row"`
	MaxCol int `json:"max_col" yaml:"max_col"`
}

// Region is one 4-connected set of qualifying cells.
type Region struct {
	ID           int     `json:"id" yaml:"id"`
	FirstCell    int     `json:"first_cell" yaml:"first_cell"`
	Cells        []int   `json:"-" yaml:"-"`
	CellCount    int     `json:"cell_count" yaml:"cell_count"`
	AreaHectares float64 `json:"area_ha" yaml:"area_ha"`
	MinValue     float64 `json:"min_value" yaml:"min_value"`
	MaxValue     float64 `json:"max_value" yaml:"max_value"`
	MeanValue    float64 `json:"mean_value" yaml:"mean_value"`
	Bounds       Bounds  `json:"bounds" yaml:"bounds"`
}

// Contains reports whether the region holds row-major cell i.
func (r Region) Contains(i int) bool {
	_, ok := slices.BinarySearch(r.Cells, i)
	return ok
}

// CellArea returns the area of one cell of h in hectares.
func CellArea(h Header) float64 {
	return h.CellSize * h.CellSize / SquareMetersPerHectare
}

// RegionArea returns the area in hectares of n cells of h.
func RegionArea(h Header, n int) float64 {
	return float64(n) * h.CellSize * h.CellSize / SquareMetersPerHectare
}

// ExtractZones thresholds surface (valid and >= threshold), labels the
// 4-connected components of qualifying cells and keeps those of at least
// minAreaHa hectares.
//
// Components are discovered by a row-major scan, so each one is labelled by
// its lowest row-major cell and the result is ordered by that cell. Region
// IDs number the kept regions from 1. No qualifying cells yields an empty
// slice.
func ExtractZones(surface *Grid, threshold, minAreaHa float64) ([]Region, error) {
	var problems []string
	if math.IsNaN(threshold) {
		problems = append(problems, "threshold must be a number")
	}
	if math.IsNaN(minAreaHa) || minAreaHa < 0 {
		problems = append(problems, fmt.Sprintf("min_area_ha must be >= 0, got %g", minAreaHa))
	}
	if len(problems) > 0 {
		return nil, newConfigError(problems...)
	}

	h := surface.Header()
	qualifies := make([]bool, h.Cells())
	for i, v := range surface.values {
		qualifies[i] = !h.IsNoData(v) && v >= threshold
	}

	seen := make([]bool, h.Cells())
	regions := []Region{}
	var queue []int

	for start := range qualifies {
		if !qualifies[start] || seen[start] {
			continue
		}
		seen[start] = true
		queue = append(queue[:0], start)
		for qi := 0; qi < len(queue); qi++ {
			r, c := h.RowCol(queue[qi])
			for _, d := range [4][2]int{{-1, 0}, {0, -1}, {0, 1}, {1, 0}} {
				nr, nc := r+d[0], c+d[1]
				if nr < 0 || nr >= h.Height || nc < 0 || nc >= h.Width {
					continue
				}
				ni := h.Index(nr, nc)
				if qualifies[ni] && !seen[ni] {
					seen[ni] = true
					queue = append(queue, ni)
				}
			}
		}

		area := RegionArea(h, len(queue))
		if area < minAreaHa {
			continue
		}
		regions = append(regions, newRegion(surface, start, queue, area))
	}

	for i := range regions {
		regions[i].ID = i + 1
	}
	return regions, nil
}

func newRegion(surface *Grid, first int, members []int, area float64) Region {
	h := surface.Header()
	cells := make([]int, len(members))
	copy(cells, members)
	slices.Sort(cells)

	r0, c0 := h.RowCol(first)
	reg := Region{
		FirstCell:    first,
		Cells:        cells,
		CellCount:    len(cells),
		AreaHectares: area,
		MinValue:     math.Inf(1),
		MaxValue:     math.Inf(-1),
		Bounds:       Bounds{MinRow: r0, MinCol: c0, MaxRow: r0, MaxCol: c0},
	}
	sum := 0.0
	for _, i := range cells {
		v := surface.values[i]
		sum += v
		reg.MinValue = math.Min(reg.MinValue, v)
		reg.MaxValue = math.Max(reg.MaxValue, v)
		r, c := h.RowCol(i)
		reg.Bounds.MinRow = min(reg.Bounds.MinRow, r)
		reg.Bounds.MaxRow = max(reg.Bounds.MaxRow, r)
		reg.Bounds.MinCol = min(reg.Bounds.MinCol, c)
		reg.Bounds.MaxCol = max(reg.Bounds.MaxCol, c)
	}
	reg.MeanValue = sum / float64(len(cells))
	return reg
}

// LabelGrid renders regions as a grid aligned with h: each region's cells
// hold its ID, every other cell is NoData.
func LabelGrid(h Header, regions []Region) *Grid {
	out := make([]float64, h.Cells())
	for i := range out {
		out[i] = h.NoData
	}
	for _, r := range regions {
		for _, i := range r.Cells {
			out[i] = float64(r.ID)
		}
	}
	return wrap(h, out)
}
