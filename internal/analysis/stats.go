package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return stat.Mean(xs, nil)
}

// sampleStdDev returns the n-1 standard deviation, or false when it is
// undefined (fewer than two samples).
func sampleStdDev(xs []float64) (float64, bool) {
	if len(xs) < 2 {
		return 0, false
	}
	return stat.StdDev(xs, nil), true
}

// median is the midpoint median (average of the two central values for
// even n), matching how the archetype thresholds were originally tuned.
// gonum's empirical quantile interpolates differently, so this stays a
// local helper.
func median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	cp := append([]float64(nil), xs...)
	sort.Float64s(cp)
	mid := len(cp) / 2
	if len(cp)%2 == 1 {
		return cp[mid]
	}
	return 0.5 * (cp[mid-1] + cp[mid])
}

// pearson is the Pearson correlation of two equal-length series. Constant
// series have no defined correlation; report 0 so the matrix stays
// JSON-encodable.
func pearson(x, y []float64) float64 {
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) {
		return 0
	}
	return r
}
