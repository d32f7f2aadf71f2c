package suitability

import (
	"fmt"
	"math"
	"sort"
)

// Diagnostic codes.
const (
	DiagCollapsedClasses = "collapsed_classes"
	DiagSingleValue      = "single_value_sample"
)

// Diagnostic is a non-fatal condition reported next to a valid result.
type Diagnostic struct {
	Code    string `json:"code" yaml:"code"`
	Message string `json:"message" yaml:"message"`
}

func (d Diagnostic) String() string { return d.Code + ": " + d.Message }

// ExcludeNonPositive drops values <= 0 from a quantile sample. Radiation
// grids use non-positive values for shadowed or invalid cells.
func ExcludeNonPositive(v float64) bool { return v <= 0 }

// Percentile returns the p-th percentile (0..100) of an ascending sample
// using linear interpolation between order statistics.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	h := float64(n-1) * p / 100
	lo := int(math.Floor(h))
	if lo >= n-1 {
		return sorted[n-1]
	}
	if lo < 0 {
		return sorted[0]
	}
	frac := h - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// QuantileBreakpoints returns classes+1 breakpoints at percentiles
// 0, 100/classes, ..., 100 of sample. The result is non-decreasing; the
// first and last values are the sample minimum and maximum.
func QuantileBreakpoints(sample []float64, classes int) []float64 {
	sorted := make([]float64, len(sample))
	copy(sorted, sample)
	sort.Float64s(sorted)

	bps := make([]float64, classes+1)
	for k := 0; k <= classes; k++ {
		bps[k] = Percentile(sorted, 100*float64(k)/float64(classes))
		if k > 0 && bps[k] < bps[k-1] {
			bps[k] = bps[k-1]
		}
	}
	return bps
}

// QuantileScale maps values to quantile classes. Classes keep their
// percentile numbers when duplicate breakpoints merge them, so the sample
// minimum scores 1 and the sample maximum scores the class count.
type QuantileScale struct {
	table  *Table
	points map[float64]int
	scores int
}

// NewQuantileScale builds the scale of breakpoints bps. Class k spans
// [bps[k-1], bps[k]). A run of equal breakpoints is a plateau of zero-width
// classes: the plateau value scores the first of them, or the last class when
// the plateau is the sample maximum. Every breakpoint equal means a single
// class scored 1.
func NewQuantileScale(bps []float64) *QuantileScale {
	n := len(bps) - 1
	qs := &QuantileScale{points: make(map[float64]int)}
	if n < 1 || bps[0] == bps[n] {
		qs.scores = 1
		return qs
	}

	used := make(map[int]bool, n)
	intervals := make([]Interval, 0, n)
	for k := 1; k <= n; k++ {
		lo, hi := bps[k-1], bps[k]
		if lo < hi {
			intervals = append(intervals, Interval{Lo: lo, Hi: hi, Score: k})
			used[k] = true
			continue
		}
		if _, ok := qs.points[hi]; ok {
			continue
		}
		score := k
		if hi == bps[n] {
			score = n
		}
		qs.points[hi] = score
		used[score] = true
	}
	qs.table = &Table{intervals: intervals}
	qs.scores = len(used)
	return qs
}

// Scores returns the number of distinct classes the scale produces.
func (qs *QuantileScale) Scores() int { return qs.scores }

// Lookup returns the class of v, or false when v lies outside the
// breakpoint range.
func (qs *QuantileScale) Lookup(v float64) (int, bool) {
	if qs.table == nil {
		return 1, true
	}
	if score, ok := qs.points[v]; ok {
		return score, true
	}
	return qs.table.Lookup(v)
}

// ClassifyByQuantile scores g into classes quantile classes. Valid cells for
// which exclude returns true are left out of the sample and become NoData in
// the result. A nil exclude keeps every valid cell.
//
// Duplicate breakpoints collapse their classes; the result then has fewer
// than classes distinct scores and a Diagnostic says so.
func ClassifyByQuantile(g *Grid, classes int, exclude func(float64) bool) (*Grid, []Diagnostic, error) {
	if classes < 1 {
		return nil, nil, newConfigError(fmt.Sprintf("quantile classes must be >= 1, got %d", classes))
	}
	h := g.Header()

	sample := make([]float64, 0, h.Cells())
	valid := 0
	for _, v := range g.values {
		if h.IsNoData(v) {
			continue
		}
		valid++
		if exclude != nil && exclude(v) {
			continue
		}
		sample = append(sample, v)
	}
	if len(sample) == 0 {
		return nil, nil, &EmptySampleError{ValidCells: valid}
	}

	bps := QuantileBreakpoints(sample, classes)
	scale := NewQuantileScale(bps)

	var diags []Diagnostic
	switch {
	case scale.table == nil:
		diags = append(diags, Diagnostic{
			Code:    DiagSingleValue,
			Message: fmt.Sprintf("all %d sampled cells equal %g; 1 of %d classes produced", len(sample), bps[0], classes),
		})
	case scale.Scores() < classes:
		diags = append(diags, Diagnostic{
			Code: DiagCollapsedClasses,
			Message: fmt.Sprintf("duplicate breakpoints %v collapsed %d classes to %d",
				bps, classes, scale.Scores()),
		})
	}

	out := make([]float64, h.Cells())
	for i, v := range g.values {
		switch {
		case h.IsNoData(v), exclude != nil && exclude(v):
			out[i] = h.NoData
		default:
			score, ok := scale.Lookup(v)
			if !ok {
				// Unreachable: sampled values lie within [min, max].
				r, c := h.RowCol(i)
				return nil, nil, &OutOfRangeError{Value: v, Row: r, Col: c}
			}
			out[i] = float64(score)
		}
	}
	return wrap(h, out), diags, nil
}

// QuantileClassifier scores a grid by data-driven quantile breakpoints.
type QuantileClassifier struct {
	Classes int
	Exclude func(float64) bool
}

// Classify implements Classifier.
func (c QuantileClassifier) Classify(g *Grid) (*Grid, []Diagnostic, error) {
	return ClassifyByQuantile(g, c.Classes, c.Exclude)
}
