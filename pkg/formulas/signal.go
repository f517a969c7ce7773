package formulas

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Clip bounds every value of data to [lo, hi] in place and returns data.
// NaN values are mapped to lo.
func Clip(data []float64, lo, hi float64) []float64 {
	for i, v := range data {
		switch {
		case math.IsNaN(v), v < lo:
			data[i] = lo
		case v > hi:
			data[i] = hi
		}
	}
	return data
}

// ConvolveSame convolves data with kernel and returns a slice of len(data),
// centred on the full convolution the way NumPy's mode="same" does.
// Taps that fall outside data contribute zero, so edge values are damped.
// The kernel must not be longer than data; otherwise data is returned as a copy.
func ConvolveSame(data, kernel []float64) []float64 {
	n, m := len(data), len(kernel)
	out := make([]float64, n)
	if n == 0 || m == 0 || m > n {
		copy(out, data)
		return out
	}

	flipped := make([]float64, m)
	copy(flipped, kernel)
	floats.Reverse(flipped)

	// out[i] = dot(flipped, data[start:start+m]) with start = i + (m-1)/2 - (m-1),
	// restricted to the taps that land inside data.
	shift := (m-1)/2 - (m - 1)
	for i := 0; i < n; i++ {
		start := i + shift
		lo, hi := 0, m
		if start < 0 {
			lo = -start
		}
		if start+m > n {
			hi = n - start
		}
		if lo >= hi {
			continue
		}
		out[i] = floats.Dot(flipped[lo:hi], data[start+lo:start+hi])
	}
	return out
}
