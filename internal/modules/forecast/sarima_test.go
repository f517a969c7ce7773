package forecast

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSARIMA(t *testing.T) {
	m := NewSARIMA()
	assert.Equal(t, Order{P: 2, D: 0, Q: 2}, m.Order)
	assert.Equal(t, SeasonalOrder{P: 1, D: 0, Q: 1, Period: 7}, m.Seasonal)
	assert.True(t, m.Constant)
	assert.Equal(t, 200, m.MaxIterations)
	assert.Equal(t, 7, m.numParams())
	assert.Equal(t, 9, m.maxLag())
}

func TestSARIMA_Unpack(t *testing.T) {
	m := NewSARIMA()
	// c, phi1, phi2, Phi1, theta1, theta2, Theta1
	x := []float64{0.1, 0.5, 0.2, 0.3, 0.4, 0.1, 0.6}

	c, a, b := m.unpack(x)
	assert.Equal(t, 0.1, c)

	require.Len(t, a, 10)
	wantAR := map[int]float64{1: 0.5, 2: 0.2, 7: 0.3, 8: -0.15, 9: -0.06}
	for k := 1; k < len(a); k++ {
		assert.InDelta(t, wantAR[k], a[k], 1e-12, "ar lag %d", k)
	}

	require.Len(t, b, 10)
	wantMA := map[int]float64{1: 0.4, 2: 0.1, 7: 0.6, 8: 0.24, 9: 0.06}
	for k := 1; k < len(b); k++ {
		assert.InDelta(t, wantMA[k], b[k], 1e-12, "ma lag %d", k)
	}
}

func TestSARIMA_ExtrapolateConstantModel(t *testing.T) {
	m := NewSARIMA()
	x := make([]float64, m.numParams())
	x[0] = 0.55

	history := noisySeries(30)
	forecast := m.extrapolate(x, history, 5)
	require.Len(t, forecast, 5)
	for _, v := range forecast {
		assert.InDelta(t, 0.55, v, 1e-12)
	}
}

func TestSARIMA_FitFailures(t *testing.T) {
	tests := []struct {
		name    string
		model   *SARIMA
		history []float64
		horizon int
		reason  string
	}{
		{
			name:    "fewer than two observations per parameter",
			model:   NewSARIMA(),
			history: noisySeries(13),
			horizon: 7,
			reason:  "too few",
		},
		{
			name:    "two weeks leaves too few residuals for CSS",
			model:   &SARIMA{Order: Order{P: 2, Q: 2}, Seasonal: SeasonalOrder{P: 1, Q: 1, Period: 7}, Constant: true, Estimation: EstimateCSS, MaxIterations: 200},
			history: noisySeries(14),
			horizon: 7,
			reason:  "residuals",
		},
		{
			name:    "non-finite observation",
			model:   NewSARIMA(),
			history: append(noisySeries(40), math.NaN()),
			horizon: 7,
			reason:  "non-finite",
		},
		{
			name:    "differencing",
			model:   &SARIMA{Order: Order{P: 1, D: 1}, MaxIterations: 10},
			history: noisySeries(40),
			horizon: 7,
			reason:  "differencing",
		},
		{
			name:    "non-positive horizon",
			model:   NewSARIMA(),
			history: noisySeries(40),
			horizon: 0,
			reason:  "horizon",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.model.Fit(tt.history, tt.horizon)
			assert.False(t, result.OK())
			assert.ErrorIs(t, result.Err, ErrModelFit)
			assert.Contains(t, result.Err.Error(), tt.reason)
			assert.Nil(t, result.Forecast)
		})
	}
}

func TestSARIMA_FitWeeklySeries(t *testing.T) {
	history := make([]float64, 84)
	for i := range history {
		history[i] = 0.6 + 0.2*math.Sin(2*math.Pi*float64(i)/7)
	}
	initial := NewSARIMA()
	x0 := initial.initialParams(history)
	residuals := initial.residuals(x0, history)
	var initialLoss float64
	for _, r := range residuals[initial.maxLag():] {
		initialLoss += r * r
	}
	initialLoss /= float64(len(history) - initial.maxLag())

	result := NewSARIMA().Fit(history, 14)
	require.True(t, result.OK(), "fit failed: %v", result.Err)
	require.Len(t, result.Forecast, 14)

	assert.Less(t, result.Loss, initialLoss)
	assert.LessOrEqual(t, result.Iterations, 200)

	var sum float64
	for _, v := range result.Forecast {
		assert.False(t, math.IsNaN(v))
		sum += v
	}
	assert.InDelta(t, 0.6, sum/14, 0.2)
}

func TestSARIMA_FitIsDeterministic(t *testing.T) {
	history := noisySeries(60)

	first := NewSARIMA().Fit(history, 10)
	second := NewSARIMA().Fit(history, 10)
	require.True(t, first.OK())
	assert.Equal(t, first.Forecast, second.Forecast)
}

func TestFitResult_OK(t *testing.T) {
	assert.True(t, fitted([]float64{0.5}, 0.1, 3).OK())

	failed := fitFailed("boom %d", 1)
	assert.False(t, failed.OK())
	assert.EqualError(t, failed.Err, "model fit failed: boom 1")
}

// workweekSeries is weekday attendance 0.85 and weekend 0.3 with N(0, 0.05) noise.
func workweekSeries(n int, seed uint64) []float64 {
	src := NewSeededSource(seed)
	series := make([]float64, n)
	for i := range series {
		level := 0.85
		if i%7 >= 5 {
			level = 0.3
		}
		series[i] = level + 0.05*src.Gaussian()
	}
	return series
}

func TestSARIMA_EstimationBySampleSize(t *testing.T) {
	m := NewSARIMA()
	assert.Equal(t, EstimateExact, m.estimation(14))
	assert.Equal(t, EstimateExact, m.estimation(29))
	assert.Equal(t, EstimateCSS, m.estimation(30))
	assert.Equal(t, EstimateCSS, m.estimation(365))

	m.Estimation = EstimateExact
	assert.Equal(t, EstimateExact, m.estimation(365))
	m.Estimation = EstimateCSS
	assert.Equal(t, EstimateCSS, m.estimation(14))
}

func TestSARIMA_ShortHistoryForecastStaysBounded(t *testing.T) {
	estimations := []struct {
		name       string
		estimation Estimation
	}{
		{name: "auto", estimation: EstimateAuto},
		{name: "css", estimation: EstimateCSS},
	}

	for _, est := range estimations {
		for _, n := range []int{17, 20, 24, 28} {
			for _, horizon := range []int{120, 366} {
				for seed := uint64(1); seed <= 3; seed++ {
					history := workweekSeries(n, seed)
					m := NewSARIMA()
					m.Estimation = est.estimation

					result := m.Fit(history, horizon)
					if !result.OK() {
						assert.ErrorIs(t, result.Err, ErrModelFit,
							"%s n=%d horizon=%d seed=%d", est.name, n, horizon, seed)
						continue
					}

					require.Len(t, result.Forecast, horizon)
					spread := floats.Max(history) - floats.Min(history)
					assert.GreaterOrEqual(t, floats.Min(result.Forecast), floats.Min(history)-spread,
						"%s n=%d horizon=%d seed=%d", est.name, n, horizon, seed)
					assert.LessOrEqual(t, floats.Max(result.Forecast), floats.Max(history)+spread,
						"%s n=%d horizon=%d seed=%d", est.name, n, horizon, seed)
				}
			}
		}
	}
}

func TestSARIMA_ExplosiveModelIsRejected(t *testing.T) {
	m := NewSARIMA()
	history := workweekSeries(21, 5)

	// phi1 = 1.5 makes the AR polynomial non-stationary
	x := make([]float64, m.numParams())
	x[0] = 0.6
	x[1] = 1.5

	forecast := m.extrapolate(x, history, 120)
	assert.False(t, withinEnvelope(history, forecast))
	assert.Greater(t, math.Abs(forecast[len(forecast)-1]), 1e6)
}

func TestWithinEnvelope(t *testing.T) {
	history := []float64{0.3, 0.5, 0.9}

	tests := []struct {
		name     string
		forecast []float64
		want     bool
	}{
		{name: "inside observed range", forecast: []float64{0.4, 0.8}, want: true},
		{name: "just inside below", forecast: []float64{-0.29}, want: true},
		{name: "just inside above", forecast: []float64{1.49}, want: true},
		{name: "below envelope", forecast: []float64{0.5, -0.31}, want: false},
		{name: "above envelope", forecast: []float64{1.51, 0.5}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, withinEnvelope(history, tt.forecast))
		})
	}

	// a flat history still leaves a small band
	flat := []float64{0.5, 0.5, 0.5}
	assert.True(t, withinEnvelope(flat, []float64{0.5005}))
	assert.False(t, withinEnvelope(flat, []float64{0.51}))
}

func TestSARIMA_FitsTwoWeeksWithExactLikelihood(t *testing.T) {
	history := weeklySeries([]float64{0.9, 0.85, 0.8, 0.85, 0.75, 0.3, 0.25}, 2)

	result := NewSARIMA().Fit(history, 14)
	if !result.OK() {
		assert.ErrorIs(t, result.Err, ErrModelFit)
		assert.NotContains(t, result.Err.Error(), "too few")
		assert.NotContains(t, result.Err.Error(), "residuals")
		return
	}
	require.Len(t, result.Forecast, 14)
	assert.True(t, withinEnvelope(history, result.Forecast))
}
