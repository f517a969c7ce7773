package formulas

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMean(t *testing.T) {
	assert.Equal(t, 0.0, Mean(nil))
	assert.InDelta(t, 0.5, Mean([]float64{0.4, 0.6}), 1e-12)
}

func TestPopStdDev(t *testing.T) {
	tests := []struct {
		name string
		data []float64
		want float64
	}{
		{"empty", nil, 0},
		{"single value", []float64{0.42}, 0},
		{"constant", []float64{0.3, 0.3, 0.3}, 0},
		// population std, numpy default ddof=0
		{"two values", []float64{0.5, 0.6}, 0.05},
		{"textbook", []float64{2, 4, 4, 4, 5, 5, 7, 9}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, PopStdDev(tt.data), 1e-12)
		})
	}
}

func TestRollingMean(t *testing.T) {
	data := []float64{1, 2, 3, 4, 5, 6}

	sma := RollingMean(data, 3)
	require.Len(t, sma, len(data))
	assert.InDelta(t, 2.0, sma[2], 1e-12)
	assert.InDelta(t, 5.0, sma[5], 1e-12)

	assert.Nil(t, RollingMean(data, 0))
	assert.Nil(t, RollingMean(data, 7))
}

func TestTailMean(t *testing.T) {
	data := []float64{0.1, 0.2, 0.3, 0.4, 0.5}

	assert.InDelta(t, 0.45, TailMean(data, 2), 1e-12)
	assert.InDelta(t, 0.3, TailMean(data, 5), 1e-12)
	assert.InDelta(t, 0.3, TailMean(data, 50), 1e-12, "window is capped at the series length")
	assert.InDelta(t, 0.5, TailMean(data, 1), 1e-12)
	assert.Equal(t, 0.0, TailMean(nil, 3))
}

func TestClip(t *testing.T) {
	data := []float64{-0.2, 0, 0.5, 1, 1.7, math.NaN()}
	Clip(data, 0, 1)
	assert.Equal(t, []float64{0, 0, 0.5, 1, 1, 0}, data)
}

func TestConvolveSame_SmoothingKernel(t *testing.T) {
	kernel := []float64{0.25, 0.5, 0.25}

	// Reference values from numpy.convolve([1, 2, 3, 4, 5], [0.25, 0.5, 0.25], mode="same")
	got := ConvolveSame([]float64{1, 2, 3, 4, 5}, kernel)
	want := []float64{1.0, 2.0, 3.0, 4.0, 3.5}
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-12, "index %d", i)
	}

	// Constant input shows the zero-padded edges: ends keep 3/4 of their value.
	got = ConvolveSame([]float64{0.8, 0.8, 0.8, 0.8}, kernel)
	assert.InDelta(t, 0.6, got[0], 1e-12)
	assert.InDelta(t, 0.8, got[1], 1e-12)
	assert.InDelta(t, 0.8, got[2], 1e-12)
	assert.InDelta(t, 0.6, got[3], 1e-12)
}

func TestConvolveSame_AsymmetricKernel(t *testing.T) {
	// numpy.convolve([1, 2, 3], [1, 0, 0], mode="same") == [2, 3, 0]
	got := ConvolveSame([]float64{1, 2, 3}, []float64{1, 0, 0})
	assert.Equal(t, []float64{2, 3, 0}, got)
}

func TestConvolveSame_Degenerate(t *testing.T) {
	kernel := []float64{0.25, 0.5, 0.25}

	assert.Empty(t, ConvolveSame(nil, kernel))

	short := []float64{0.3, 0.4}
	got := ConvolveSame(short, kernel)
	assert.Equal(t, short, got)
	got[0] = 9
	assert.Equal(t, 0.3, short[0], "input must not be aliased")
}
