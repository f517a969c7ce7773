package forecast

import "github.com/aristath/attendance-forecast/pkg/formulas"

const (
	fallbackBaseWindow = 7
	trendDamping       = 0.5
)

// fallbackForecast extrapolates the last week's level along the weekly profile
// plus a damped linear trend: base*factor(day) + trend*(i/7)*0.5.
func fallbackForecast(history []float64, profile WeeklyProfile, trend float64, horizon int) []float64 {
	n := len(history)
	base := formulas.TailMean(history, fallbackBaseWindow)

	values := make([]float64, horizon)
	for i := range values {
		seasonal := base * profile.Factor(dayOfWeek(n, i))
		damped := trend * (float64(i) / daysPerWeek) * trendDamping
		values[i] = seasonal + damped
	}
	return values
}
