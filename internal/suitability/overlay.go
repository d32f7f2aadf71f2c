package suitability

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// WeightTolerance is the allowed deviation of a weight sum from 1.
const WeightTolerance = 1e-6

// Weights maps criterion names to their overlay weight.
type Weights map[string]float64

// Names returns the criterion names in ascending order.
func (w Weights) Names() []string {
	names := make([]string, 0, len(w))
	for name := range w {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Sum returns the total weight, summed in name order.
func (w Weights) Sum() float64 {
	names := w.Names()
	vals := make([]float64, len(names))
	for i, name := range names {
		vals[i] = w[name]
	}
	return floats.Sum(vals)
}

// Validate checks that every weight is finite and non-negative and that the
// weights sum to 1. When criteria is non-nil the key sets must match exactly.
// Weights are never renormalized.
func (w Weights) Validate(criteria []string) error {
	var problems []string
	if len(w) == 0 {
		problems = append(problems, "no weights configured")
	}
	for _, name := range w.Names() {
		v := w[name]
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			problems = append(problems, fmt.Sprintf("weight %q must be a finite value >= 0, got %g", name, v))
		}
	}
	if len(w) > 0 {
		if sum := w.Sum(); math.IsNaN(sum) || math.Abs(sum-1) > WeightTolerance {
			problems = append(problems, fmt.Sprintf("weights must sum to 1, got %.9g", sum))
		}
	}
	if criteria != nil {
		want := make(map[string]bool, len(criteria))
		for _, name := range criteria {
			want[name] = true
			if _, ok := w[name]; !ok {
				problems = append(problems, fmt.Sprintf("criterion %q has no weight", name))
			}
		}
		for _, name := range w.Names() {
			if !want[name] {
				problems = append(problems, fmt.Sprintf("weight %q has no criterion", name))
			}
		}
	}
	if len(problems) > 0 {
		return newConfigError(problems...)
	}
	return nil
}

// Overlay combines aligned score grids into a suitability surface: each cell
// is the weighted sum of the criterion scores, or NoData when any criterion
// is NoData there. Terms are added in ascending criterion-name order.
//
// mask is optional. When given it must be aligned with the scores; cells
// where the mask is NoData or zero become NoData in the result.
//
// Every precondition is checked before any cell is computed.
func Overlay(scores map[string]*Grid, weights Weights, mask *Grid) (*Grid, error) {
	names := make([]string, 0, len(scores))
	for name := range scores {
		names = append(names, name)
	}
	sort.Strings(names)

	if err := weights.Validate(names); err != nil {
		return nil, err
	}
	for _, name := range names {
		if scores[name] == nil {
			return nil, newConfigError(fmt.Sprintf("criterion %q has no score grid", name))
		}
	}

	grids := make([]*Grid, len(names))
	ws := make([]float64, len(names))
	for i, name := range names {
		grids[i] = scores[name]
		ws[i] = weights[name]
	}
	base := grids[0]
	for _, g := range grids[1:] {
		if err := base.Aligned(g); err != nil {
			return nil, err
		}
	}
	if mask != nil {
		if err := base.Aligned(mask); err != nil {
			return nil, err
		}
	}

	h := base.Header()
	out := make([]float64, h.Cells())
cells:
	for i := range out {
		sum := 0.0
		for k, g := range grids {
			v := g.values[i]
			if g.header.IsNoData(v) {
				out[i] = h.NoData
				continue cells
			}
			sum += ws[k] * v
		}
		if mask != nil {
			if m := mask.values[i]; mask.header.IsNoData(m) || m == 0 {
				out[i] = h.NoData
				continue
			}
		}
		out[i] = sum
	}
	return wrap(h, out), nil
}
