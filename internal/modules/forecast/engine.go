// Package forecast predicts future values of a daily [0,1] attendance-rate series.
//
// Short histories get a noisy simple average. Histories of at least two weeks
// are fitted with a weekly SARIMA model, falling back to a damped trend plus
// weekly profile extrapolation when the fit fails. Seasonal output is then
// reseasonalized, perturbed, smoothed and clamped to [0,1].
package forecast

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/attendance-forecast/internal/utils"
	"github.com/aristath/attendance-forecast/pkg/formulas"
)

// Method identifies the strategy that produced a forecast.
type Method string

const (
	MethodSimpleAverage  Method = "simple_average"
	MethodSARIMAEnhanced Method = "sarima_enhanced"
)

const (
	// DefaultHorizon is the number of days forecast when the caller does not say.
	DefaultHorizon = 30

	// MinSeasonalHistory is the shortest history that gets the seasonal strategy.
	MinSeasonalHistory = 2 * daysPerWeek

	simpleAverageNoise = 0.1

	slowFitThreshold = 5 * time.Second
)

// Result is a forecast of Horizon values, each in [0,1].
type Result struct {
	Values []float64
	Method Method

	// Fallback is set when the seasonal fit failed and the trend+profile
	// extrapolation was used instead. Method still reads sarima_enhanced.
	Fallback       bool
	FallbackReason string
}

// Engine produces forecasts. An Engine is not safe for concurrent use because
// its RandomSource is not; build one per request.
type Engine struct {
	src    RandomSource
	fitter SeasonalFitter
	log    zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithFitter replaces the seasonal model.
func WithFitter(f SeasonalFitter) Option {
	return func(e *Engine) {
		e.fitter = f
	}
}

// WithLogger sets the engine logger.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) {
		e.log = log.With().Str("component", "forecast_engine").Logger()
	}
}

// NewEngine creates an engine drawing randomness from src.
func NewEngine(src RandomSource, opts ...Option) *Engine {
	e := &Engine{
		src:    src,
		fitter: NewSARIMA(),
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Forecast predicts horizon future values from history.
// It fails only with ErrInvalidInput.
func (e *Engine) Forecast(history []float64, horizon int) (*Result, error) {
	if len(history) < 1 {
		return nil, fmt.Errorf("%w: no data provided", ErrInvalidInput)
	}
	if horizon < 1 {
		return nil, fmt.Errorf("%w: horizon must be positive, got %d", ErrInvalidInput, horizon)
	}

	if len(history) < MinSeasonalHistory {
		e.log.Debug().
			Int("history", len(history)).
			Int("horizon", horizon).
			Msg("Using simple average strategy")
		return e.simpleAverage(history, horizon), nil
	}

	return e.seasonal(history, horizon), nil
}

func (e *Engine) simpleAverage(history []float64, horizon int) *Result {
	mean := formulas.Mean(history)
	sigma := formulas.PopStdDev(history) * simpleAverageNoise

	values := make([]float64, horizon)
	for i := range values {
		values[i] = mean
	}
	addNoise(values, e.src, sigma)

	return &Result{
		Values: clampUnit(values),
		Method: MethodSimpleAverage,
	}
}

func (e *Engine) seasonal(history []float64, horizon int) *Result {
	n := len(history)
	profile := NewWeeklyProfile(history)
	trend := Trend(history)

	result := &Result{Method: MethodSARIMAEnhanced}

	var values []float64
	stop := utils.OperationTimer("seasonal_fit", slowFitThreshold, e.log)
	fit := e.fitter.Fit(history, horizon)
	stop()
	switch {
	case fit.OK() && len(fit.Forecast) == horizon:
		values = make([]float64, horizon)
		copy(values, fit.Forecast)
		e.log.Debug().
			Int("history", n).
			Int("horizon", horizon).
			Int("iterations", fit.Iterations).
			Float64("loss", fit.Loss).
			Msg("Seasonal model fitted")
	default:
		reason := "forecast length mismatch"
		if fit.Err != nil {
			reason = fit.Err.Error()
		}
		e.log.Warn().
			Str("reason", reason).
			Int("history", n).
			Msg("Seasonal fit failed, using trend and weekly profile fallback")
		values = fallbackForecast(history, profile, trend, horizon)
		result.Fallback = true
		result.FallbackReason = reason
	}

	reseasonalize(values, profile, n)
	addNoise(values, e.src, formulas.PopStdDev(history)*noiseScale)
	values = smooth(values)
	result.Values = clampUnit(values)
	return result
}
