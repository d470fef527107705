package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMedian(t *testing.T) {
	tests := []struct {
		name string
		xs   []float64
		want float64
	}{
		{name: "empty", xs: nil, want: 0},
		{name: "single", xs: []float64{3}, want: 3},
		{name: "odd length", xs: []float64{3, 1, 2}, want: 2},
		{name: "even length averages the middle pair", xs: []float64{4, 1, 3, 2}, want: 2.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, median(tt.xs), 1e-9)
		})
	}
}

func TestMedian_DoesNotMutateInput(t *testing.T) {
	xs := []float64{3, 1, 2}
	median(xs)
	assert.Equal(t, []float64{3, 1, 2}, xs)
}

func TestSampleStdDev(t *testing.T) {
	t.Run("undefined below two samples", func(t *testing.T) {
		_, ok := sampleStdDev(nil)
		assert.False(t, ok)
		_, ok = sampleStdDev([]float64{0.5})
		assert.False(t, ok)
	})

	t.Run("n minus one denominator", func(t *testing.T) {
		sd, ok := sampleStdDev([]float64{0.2, 0.8})
		assert.True(t, ok)
		// variance = ((0.3)^2 + (0.3)^2) / 1
		assert.InDelta(t, 0.42426, sd, 1e-4)
	})
}

func TestPearson(t *testing.T) {
	x := []float64{1, 2, 3}
	up := []float64{2, 4, 6}
	down := []float64{6, 4, 2}
	flat := []float64{5, 5, 5}

	assert.InDelta(t, 1, pearson(x, up), 1e-9)
	assert.InDelta(t, -1, pearson(x, down), 1e-9)
	// A constant series has no defined correlation; reported as 0
	assert.Equal(t, 0.0, pearson(x, flat))
}
