package suitability

import (
	"errors"
	"fmt"
	"strings"
)

// GridMismatchError reports two grids that do not share a spatial header.
type GridMismatchError struct {
	Left   Header
	Right  Header
	Fields []string
}

func (e *GridMismatchError) Error() string {
	return fmt.Sprintf("suitability: grid mismatch on %s (%s vs %s)",
		strings.Join(e.Fields, ", "), e.Left, e.Right)
}

// OutOfRangeError reports a cell value that no breakpoint interval covers.
type OutOfRangeError struct {
	Value float64
	Row   int
	Col   int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("suitability: value %g at cell (%d, %d) is outside every breakpoint interval",
		e.Value, e.Row, e.Col)
}

// EmptySampleError reports a quantile classification with nothing to sample.
type EmptySampleError struct {
	ValidCells int
}

func (e *EmptySampleError) Error() string {
	return fmt.Sprintf("suitability: quantile sample is empty (%d valid cells, all excluded)", e.ValidCells)
}

// ConfigurationError reports invalid analysis parameters: weights, tables,
// thresholds. It is raised before any raster work begins.
type ConfigurationError struct {
	Problems []string
}

func (e *ConfigurationError) Error() string {
	return "suitability: invalid configuration: " + strings.Join(e.Problems, "; ")
}

func newConfigError(problems ...string) *ConfigurationError {
	return &ConfigurationError{Problems: problems}
}

// IsGridMismatch returns true if err (or any error in its chain) is a GridMismatchError.
func IsGridMismatch(err error) bool {
	var e *GridMismatchError
	return errors.As(err, &e)
}

// IsOutOfRange returns true if err (or any error in its chain) is an OutOfRangeError.
func IsOutOfRange(err error) bool {
	var e *OutOfRangeError
	return errors.As(err, &e)
}

// IsEmptySample returns true if err (or any error in its chain) is an EmptySampleError.
func IsEmptySample(err error) bool {
	var e *EmptySampleError
	return errors.As(err, &e)
}

// IsConfiguration returns true if err (or any error in its chain) is a ConfigurationError.
func IsConfiguration(err error) bool {
	var e *ConfigurationError
	return errors.As(err, &e)
}
