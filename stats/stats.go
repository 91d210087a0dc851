// Package stats holds the column statistics the feature steps fit on. All
// functions take the valid (non-null) values of a column; callers filter
// nulls out first.
package stats

import (
	"math"
	"slices"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

func Mean(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	return stat.Mean(x, nil)
}

// PopStd is the population standard deviation (ddof=0).
func PopStd(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	return math.Sqrt(stat.PopVariance(x, nil))
}

// SampleStd is the sample standard deviation (ddof=1). It is NaN for
// fewer than two values.
func SampleStd(x []float64) float64 {
	if len(x) < 2 {
		return math.NaN()
	}
	return stat.StdDev(x, nil)
}

func MinMax(x []float64) (float64, float64) {
	if len(x) == 0 {
		return math.NaN(), math.NaN()
	}
	return floats.Min(x), floats.Max(x)
}

// Quantile returns the p-th quantile (0 <= p <= 1) by linear interpolation
// between the closest ranks, rank = p*(n-1).
func Quantile(x []float64, p float64) float64 {
	n := len(x)
	if n == 0 {
		return math.NaN()
	}
	cp := make([]float64, n)
	copy(cp, x)
	sort.Float64s(cp)
	if p <= 0 {
		return cp[0]
	}
	if p >= 1 {
		return cp[n-1]
	}
	rank := p * float64(n-1)
	lower := int(rank)
	upper := lower + 1
	weight := rank - float64(lower)
	if upper >= n {
		return cp[lower]
	}
	return cp[lower]*(1-weight) + cp[upper]*weight
}

func Median(x []float64) float64 {
	return Quantile(x, 0.5)
}

// Quartiles returns Q1 and Q3.
func Quartiles(x []float64) (float64, float64) {
	return Quantile(x, 0.25), Quantile(x, 0.75)
}

// Mode returns the most frequent value; ties resolve to the smallest.
func Mode(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	return mode(x, func(a, b float64) bool { return a < b })
}

// ModeString returns the most frequent string; ties resolve to the
// lexicographically smallest.
func ModeString(x []string) (string, bool) {
	if len(x) == 0 {
		return "", false
	}
	return mode(x, func(a, b string) bool { return a < b }), true
}

func mode[T comparable](x []T, less func(a, b T) bool) T {
	counts := make(map[T]int, len(x))
	for _, v := range x {
		counts[v]++
	}
	keys := make([]T, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b T) int {
		switch {
		case less(a, b):
			return -1
		case less(b, a):
			return 1
		default:
			return 0
		}
	})

	best := keys[0]
	for _, k := range keys[1:] {
		if counts[k] > counts[best] {
			best = k
		}
	}
	return best
}
