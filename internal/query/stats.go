package query

import (
	"countrydash/internal/domain"
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// Summary holds basic statistics of a numeric column. Undefined values
// (any statistic of an empty column, std of a single value) are NaN.
type Summary struct {
	Column string
	Count  int
	Mean   float64
	Median float64
	Std    float64
	Min    float64
	Max    float64
}

// Describe computes the summary of a numeric column.
func Describe(t *domain.CountryTable, column string) (Summary, error) {
	xs, err := Values(t, column)
	if err != nil {
		return Summary{}, err
	}
	s := Summary{Column: column, Count: len(xs)}
	nan := math.NaN()
	if len(xs) == 0 {
		s.Mean, s.Median, s.Std, s.Min, s.Max = nan, nan, nan, nan, nan
		return s, nil
	}

	s.Mean = stat.Mean(xs, nil)
	// Sample standard deviation, undefined for fewer than two values.
	s.Std = nan
	if len(xs) > 1 {
		s.Std = stat.StdDev(xs, nil)
	}

	sorted := slices.Clone(xs)
	slices.Sort(sorted)
	s.Min = sorted[0]
	s.Max = sorted[len(sorted)-1]
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		s.Median = sorted[mid]
	} else {
		s.Median = (sorted[mid-1] + sorted[mid]) / 2
	}
	return s, nil
}

// Bounds returns the min and max of a numeric column. ok is false when the
// table is empty.
func Bounds(t *domain.CountryTable, column string) (lo, hi float64, ok bool, err error) {
	xs, err := Values(t, column)
	if err != nil || len(xs) == 0 {
		return 0, 0, false, err
	}
	return slices.Min(xs), slices.Max(xs), true, nil
}
