// Package formulas holds the numeric helpers used by the forecast engine.
package formulas

import (
	"math"

	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/stat"
)

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// PopStdDev calculates the population standard deviation (divisor n, not n-1).
// A single value has zero spread.
func PopStdDev(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	_, std := stat.PopMeanStdDev(data, nil)
	if math.IsNaN(std) {
		return 0
	}
	return std
}

// RollingMean returns the simple moving average of data over period.
// Entries before index period-1 are zero, as go-talib leaves them.
// Returns nil when period is not in [1, len(data)].
func RollingMean(data []float64, period int) []float64 {
	if period < 1 || period > len(data) {
		return nil
	}
	return talib.Sma(data, period)
}

// TailMean returns the mean of the last n values of data.
// n is capped at len(data).
func TailMean(data []float64, n int) float64 {
	if len(data) == 0 || n < 1 {
		return 0
	}
	if n > len(data) {
		n = len(data)
	}
	sma := RollingMean(data, n)
	return sma[len(sma)-1]
}
