package suitability

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Interval maps the half-open range [Lo, Hi) to Score. The last interval of
// a Table is closed on both ends.
type Interval struct {
	Lo    float64 `json:"lo" yaml:"lo"`
	Hi    float64 `json:"hi" yaml:"hi"`
	Score int     `json:"score" yaml:"score"`
}

// Table is a validated breakpoint table: intervals sorted by Lo, strictly
// increasing and contiguous.
type Table struct {
	intervals []Interval
}

// NewTable validates and sorts intervals into a Table. Intervals may be given
// in any order; after sorting they must be contiguous (each Hi equals the
// next Lo), non-empty and carry positive scores.
func NewTable(intervals []Interval) (*Table, error) {
	if len(intervals) == 0 {
		return nil, newConfigError("breakpoint table has no intervals")
	}
	sorted := make([]Interval, len(intervals))
	copy(sorted, intervals)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Lo < sorted[j].Lo })

	var problems []string
	for i, iv := range sorted {
		if math.IsNaN(iv.Lo) || math.IsNaN(iv.Hi) {
			problems = append(problems, fmt.Sprintf("interval %d has a NaN bound", i))
			continue
		}
		if !(iv.Lo < iv.Hi) {
			problems = append(problems, fmt.Sprintf("interval [%g, %g) is empty", iv.Lo, iv.Hi))
		}
		if iv.Score <= 0 {
			problems = append(problems, fmt.Sprintf("interval [%g, %g) has non-positive score %d", iv.Lo, iv.Hi, iv.Score))
		}
		if i > 0 && sorted[i-1].Hi != iv.Lo {
			problems = append(problems, fmt.Sprintf("gap or overlap between %g and %g", sorted[i-1].Hi, iv.Lo))
		}
	}
	if len(problems) > 0 {
		return nil, newConfigError(problems...)
	}
	return &Table{intervals: sorted}, nil
}

// MustTable is NewTable for package-level defaults; it panics on error.
func MustTable(intervals ...Interval) *Table {
	t, err := NewTable(intervals)
	if err != nil {
		panic(err)
	}
	return t
}

// TableFromRanges builds a table from [lo, hi, score] triples, the layout
// used in configuration files.
func TableFromRanges(ranges [][]float64) (*Table, error) {
	intervals := make([]Interval, 0, len(ranges))
	for i, r := range ranges {
		if len(r) != 3 {
			return nil, newConfigError(fmt.Sprintf("range %d must be [lo, hi, score], got %d values", i, len(r)))
		}
		if r[2] != math.Trunc(r[2]) {
			return nil, newConfigError(fmt.Sprintf("range %d score %g is not an integer", i, r[2]))
		}
		intervals = append(intervals, Interval{Lo: r[0], Hi: r[1], Score: int(r[2])})
	}
	return NewTable(intervals)
}

// Intervals returns a copy of the sorted intervals.
func (t *Table) Intervals() []Interval {
	out := make([]Interval, len(t.intervals))
	copy(out, t.intervals)
	return out
}

// Len returns the number of intervals.
func (t *Table) Len() int { return len(t.intervals) }

// Min returns the lower bound of the table's domain.
func (t *Table) Min() float64 { return t.intervals[0].Lo }

// Max returns the (inclusive) upper bound of the table's domain.
func (t *Table) Max() float64 { return t.intervals[len(t.intervals)-1].Hi }

// Scores returns the distinct scores declared by the table, ascending.
func (t *Table) Scores() []int {
	seen := make(map[int]bool, len(t.intervals))
	var out []int
	for _, iv := range t.intervals {
		if !seen[iv.Score] {
			seen[iv.Score] = true
			out = append(out, iv.Score)
		}
	}
	sort.Ints(out)
	return out
}

// Lookup returns the score of the interval containing v. Boundaries belong
// to the interval they open; the table maximum belongs to the last interval.
func (t *Table) Lookup(v float64) (int, bool) {
	if math.IsNaN(v) {
		return 0, false
	}
	// First interval whose Lo is greater than v, then step back.
	i := sort.Search(len(t.intervals), func(i int) bool { return t.intervals[i].Lo > v }) - 1
	if i < 0 {
		return 0, false
	}
	iv := t.intervals[i]
	if i == len(t.intervals)-1 {
		if v > iv.Hi {
			return 0, false
		}
		return iv.Score, true
	}
	return iv.Score, true
}

func (t *Table) String() string {
	parts := make([]string, len(t.intervals))
	for i, iv := range t.intervals {
		closer := ")"
		if i == len(t.intervals)-1 {
			closer = "]"
		}
		parts[i] = fmt.Sprintf("[%g, %g%s->%d", iv.Lo, iv.Hi, closer, iv.Score)
	}
	return strings.Join(parts, " ")
}

// Reclassify maps every valid cell of g to the score of its breakpoint
// interval. NoData cells pass through. The first valid cell in row-major
// order that no interval covers fails the call with *OutOfRangeError and no
// grid is returned.
func Reclassify(g *Grid, t *Table) (*Grid, error) {
	h := g.Header()
	out := make([]float64, h.Cells())
	for i, v := range g.values {
		if h.IsNoData(v) {
			out[i] = v
			continue
		}
		score, ok := t.Lookup(v)
		if !ok {
			r, c := h.RowCol(i)
			return nil, &OutOfRangeError{Value: v, Row: r, Col: c}
		}
		out[i] = float64(score)
	}
	return wrap(h, out), nil
}

// Classifier turns a continuous criterion grid into a score grid.
type Classifier interface {
	Classify(g *Grid) (*Grid, []Diagnostic, error)
}

// FixedClassifier reclassifies with a fixed breakpoint table.
type FixedClassifier struct {
	Table *Table
}

// Classify implements Classifier.
func (c FixedClassifier) Classify(g *Grid) (*Grid, []Diagnostic, error) {
	out, err := Reclassify(g, c.Table)
	return out, nil, err
}
