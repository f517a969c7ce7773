package forecast

import "github.com/aristath/attendance-forecast/pkg/formulas"

const (
	reseasonBase   = 0.7
	reseasonWeight = 0.3
	noiseScale     = 0.08
)

var smoothingKernel = []float64{0.25, 0.5, 0.25}

// reseasonalize scales each point by 0.7 + 0.3*factor for its weekday.
func reseasonalize(values []float64, profile WeeklyProfile, historyLen int) {
	for i := range values {
		values[i] *= reseasonBase + reseasonWeight*profile.Factor(dayOfWeek(historyLen, i))
	}
}

// addNoise adds independent N(0, sigma) samples to every point.
func addNoise(values []float64, src RandomSource, sigma float64) {
	for i := range values {
		values[i] += src.Gaussian() * sigma
	}
}

// smooth applies the [0.25 0.5 0.25] kernel in same mode once there are enough points.
func smooth(values []float64) []float64 {
	if len(values) < len(smoothingKernel) {
		return values
	}
	return formulas.ConvolveSame(values, smoothingKernel)
}

func clampUnit(values []float64) []float64 {
	return formulas.Clip(values, 0, 1)
}
