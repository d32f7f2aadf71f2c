package suitability

// Criterion names used by the siting analysis.
const (
	CriterionSlope    = "slope"
	CriterionAspect   = "aspect"
	CriterionSolar    = "solar"
	CriterionDistance = "distance"
)

// Criteria lists the analysis criteria in overlay order.
var Criteria = []string{CriterionAspect, CriterionDistance, CriterionSlope, CriterionSolar}

// AspectFlat is the aspect value the terrain derivation emits for flat cells.
const AspectFlat = -1.0

// DefaultWeights returns the standard criterion weights (sum = 1).
func DefaultWeights() Weights {
	return Weights{
		CriterionSlope:    0.3,
		CriterionAspect:   0.2,
		CriterionSolar:    0.4,
		CriterionDistance: 0.1,
	}
}

// DefaultSlopeTable scores slope in degrees; gentle slopes score highest.
func DefaultSlopeTable() *Table {
	return MustTable(
		Interval{Lo: 0, Hi: 5, Score: 5},
		Interval{Lo: 5, Hi: 10, Score: 4},
		Interval{Lo: 10, Hi: 15, Score: 3},
		Interval{Lo: 15, Hi: 20, Score: 2},
		Interval{Lo: 20, Hi: 90, Score: 1},
	)
}

// DefaultAspectTable scores aspect in degrees clockwise from north; south
// faces score highest and flat cells (AspectFlat) score 3.
func DefaultAspectTable() *Table {
	return MustTable(
		Interval{Lo: 0, Hi: 45, Score: 2},
		Interval{Lo: 45, Hi: 135, Score: 4},
		Interval{Lo: 135, Hi: 225, Score: 5},
		Interval{Lo: 225, Hi: 315, Score: 4},
		Interval{Lo: 315, Hi: 360, Score: 2},
		Interval{Lo: AspectFlat, Hi: 0, Score: 3},
	)
}

// DefaultDistanceTable scores distance to roads in meters.
func DefaultDistanceTable() *Table {
	return MustTable(
		Interval{Lo: 0, Hi: 500, Score: 5},
		Interval{Lo: 500, Hi: 1000, Score: 4},
		Interval{Lo: 1000, Hi: 2000, Score: 3},
		Interval{Lo: 2000, Hi: 3000, Score: 2},
		Interval{Lo: 3000, Hi: 100000, Score: 1},
	)
}
