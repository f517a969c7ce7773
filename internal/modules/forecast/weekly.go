package forecast

import (
	"gonum.org/v1/gonum/floats"

	"github.com/aristath/attendance-forecast/pkg/formulas"
)

const (
	daysPerWeek = 7
	trendWindow = 14
)

// WeeklyProfile holds one seasonality factor per day-of-week index.
// A factor is the weekday mean divided by the mean of all seven weekday means.
type WeeklyProfile [daysPerWeek]float64

// NewWeeklyProfile derives the profile from history, treating index mod 7 as the weekday.
// When the weekday means average to zero every factor is 1.
func NewWeeklyProfile(history []float64) WeeklyProfile {
	var sums, counts [daysPerWeek]float64
	for i, v := range history {
		day := i % daysPerWeek
		sums[day] += v
		counts[day]++
	}

	var profile WeeklyProfile
	for day := range profile {
		profile[day] = sums[day] / max(counts[day], 1)
	}

	weeklyMean := formulas.Mean(profile[:])
	if weeklyMean <= 0 {
		for day := range profile {
			profile[day] = 1
		}
		return profile
	}

	floats.Scale(1/weeklyMean, profile[:])
	return profile
}

// Factor returns the factor for the day index, wrapping past a week.
func (p WeeklyProfile) Factor(day int) float64 {
	return p[day%daysPerWeek]
}

// dayOfWeek is the weekday index of the forecast point offset days after a history of length n.
func dayOfWeek(n, offset int) int {
	return (n + offset) % daysPerWeek
}

// Trend is the mean of the most recent window minus the mean of the window before it,
// with window = min(14, len(history)). It is zero unless two full windows exist.
func Trend(history []float64) float64 {
	n := len(history)
	window := min(trendWindow, n)
	if window == 0 || n < 2*window {
		return 0
	}

	sma := formulas.RollingMean(history, window)
	return sma[n-1] - sma[n-1-window]
}
