package forecast

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"

	"github.com/aristath/attendance-forecast/pkg/formulas"
)

// Order is the non-seasonal (p, d, q) order of an ARIMA model.
type Order struct {
	P, D, Q int
}

// SeasonalOrder is the seasonal (P, D, Q, s) order of a SARIMA model.
type SeasonalOrder struct {
	P, D, Q, Period int
}

// FitResult is the outcome of fitting a seasonal model and extrapolating it.
// Exactly one of Forecast and Err is set.
type FitResult struct {
	Forecast   []float64
	Loss       float64
	Iterations int
	Err        error
}

// OK reports whether the fit produced a forecast.
func (r FitResult) OK() bool {
	return r.Err == nil
}

func fitted(forecast []float64, loss float64, iterations int) FitResult {
	return FitResult{Forecast: forecast, Loss: loss, Iterations: iterations}
}

func fitFailed(format string, args ...interface{}) FitResult {
	return FitResult{Err: fmt.Errorf("%w: %s", ErrModelFit, fmt.Sprintf(format, args...))}
}

// SeasonalFitter fits a model to history and forecasts horizon steps ahead.
type SeasonalFitter interface {
	Fit(history []float64, horizon int) FitResult
}

// Estimation selects the objective SARIMA.Fit minimizes.
type Estimation int

const (
	// EstimateAuto uses conditional sum of squares when the history leaves enough
	// residuals per parameter, and the exact likelihood otherwise.
	EstimateAuto Estimation = iota
	// EstimateCSS minimizes the conditional sum of squares.
	EstimateCSS
	// EstimateExact minimizes the concentrated Gaussian likelihood from a Kalman filter.
	EstimateExact
)

const (
	cssResidualsPerParam    = 3
	minObservationsPerParam = 2

	// maxExcursion bounds how far a forecast may leave the observed range,
	// in multiples of that range.
	maxExcursion = 1.0
	minSpread    = 1e-3

	infeasibleLoss = 1e10
)

// SARIMA is a multiplicative seasonal ARMA model with an optional constant.
// Parameters are unconstrained, so neither stationarity nor invertibility is
// enforced; forecasts that run away from the history are rejected instead.
type SARIMA struct {
	Order         Order
	Seasonal      SeasonalOrder
	Constant      bool
	Estimation    Estimation
	MaxIterations int
}

// NewSARIMA returns the weekly SARIMA(2,0,2)(1,0,1)[7] model with a constant,
// optimized with L-BFGS for at most 200 iterations.
func NewSARIMA() *SARIMA {
	return &SARIMA{
		Order:         Order{P: 2, D: 0, Q: 2},
		Seasonal:      SeasonalOrder{P: 1, D: 0, Q: 1, Period: daysPerWeek},
		Constant:      true,
		Estimation:    EstimateAuto,
		MaxIterations: 200,
	}
}

// Outcomes accepted even when Minimize also returns an error. Other failures are
// still accepted when the loss improved on the starting point.
var convergedStatuses = map[optimize.Status]bool{
	optimize.Success:             true,
	optimize.FunctionConvergence: true,
	optimize.GradientThreshold:   true,
	optimize.StepConvergence:     true,
	optimize.IterationLimit:      true,
}

// Fit estimates the model on history and forecasts horizon steps.
func (m *SARIMA) Fit(history []float64, horizon int) FitResult {
	if m.Order.D != 0 || m.Seasonal.D != 0 {
		return fitFailed("differencing is not supported (d=%d, D=%d)", m.Order.D, m.Seasonal.D)
	}
	if m.Seasonal.P+m.Seasonal.Q > 0 && m.Seasonal.Period < 2 {
		return fitFailed("seasonal period %d too short", m.Seasonal.Period)
	}
	if horizon < 1 {
		return fitFailed("horizon %d is not positive", horizon)
	}
	if !allFinite(history) {
		return fitFailed("history contains non-finite observations")
	}

	n := len(history)
	if n < minObservationsPerParam*m.numParams() {
		return fitFailed("%d observations are too few for %d parameters", n, m.numParams())
	}

	estimation := m.estimation(n)
	var loss func(x []float64) float64
	switch estimation {
	case EstimateCSS:
		lag := m.maxLag()
		if effective := n - lag; effective <= m.numParams() {
			return fitFailed("%d observations leave %d residuals for %d parameters",
				n, max(effective, 0), m.numParams())
		}
		loss = func(x []float64) float64 {
			return m.cssLoss(x, history)
		}
	default:
		loss = func(x []float64) float64 {
			value, _ := m.stateSpace(x).filter(history)
			return value
		}
	}

	objective := func(x []float64) float64 {
		if value := loss(x); isFinite(value) {
			return value
		}
		return infeasibleLoss
	}

	x0 := m.initialParams(history)
	initialLoss := objective(x0)
	if initialLoss >= infeasibleLoss {
		return fitFailed("initial loss is not finite")
	}

	problem := optimize.Problem{
		Func: objective,
		Grad: func(grad, x []float64) {
			fd.Gradient(grad, objective, x, nil)
		},
	}
	settings := &optimize.Settings{
		MajorIterations: m.MaxIterations,
	}

	result, err := optimize.Minimize(problem, x0, settings, &optimize.LBFGS{})
	if result == nil {
		return fitFailed("optimizer returned no result: %v", err)
	}
	if err != nil && !convergedStatuses[result.Status] && result.F > initialLoss {
		return fitFailed("optimizer failed with status %v: %v", result.Status, err)
	}
	if !isFinite(result.F) || result.F >= infeasibleLoss || !allFinite(result.X) {
		return fitFailed("optimizer diverged (loss %v)", result.F)
	}

	var forecast []float64
	if estimation == EstimateCSS {
		forecast = m.extrapolate(result.X, history, horizon)
	} else {
		forecast = m.stateSpace(result.X).forecast(history, horizon)
	}
	if len(forecast) != horizon || !allFinite(forecast) {
		return fitFailed("forecast is not finite")
	}
	if !withinEnvelope(history, forecast) {
		return fitFailed("forecast diverges from the observed range [%.3g, %.3g]",
			floats.Min(history), floats.Max(history))
	}

	return fitted(forecast, result.F, result.Stats.MajorIterations)
}

func (m *SARIMA) estimation(n int) Estimation {
	if m.Estimation != EstimateAuto {
		return m.Estimation
	}
	if n-m.maxLag() >= cssResidualsPerParam*m.numParams() {
		return EstimateCSS
	}
	return EstimateExact
}

// withinEnvelope reports whether every forecast point stays within
// maxExcursion ranges of the observed minimum and maximum.
func withinEnvelope(history, forecast []float64) bool {
	lo, hi := floats.Min(history), floats.Max(history)
	spread := max(hi-lo, minSpread) * maxExcursion
	for _, v := range forecast {
		if v < lo-spread || v > hi+spread {
			return false
		}
	}
	return true
}

// Parameter layout: [c], phi_1..phi_p, Phi_1..Phi_P, theta_1..theta_q, Theta_1..Theta_Q.
func (m *SARIMA) numParams() int {
	n := m.Order.P + m.Order.Q + m.Seasonal.P + m.Seasonal.Q
	if m.Constant {
		n++
	}
	return n
}

func (m *SARIMA) maxLag() int {
	ar := m.Order.P + m.Seasonal.P*m.Seasonal.Period
	ma := m.Order.Q + m.Seasonal.Q*m.Seasonal.Period
	return max(ar, ma)
}

func (m *SARIMA) initialParams(history []float64) []float64 {
	x := make([]float64, m.numParams())
	if m.Constant {
		x[0] = formulas.Mean(history)
	}
	return x
}

// unpack splits x into the constant, the expanded AR lag coefficients a and the
// expanded MA lag coefficients b, so that
//
//	y_t = c + sum_k a[k] y_{t-k} + e_t + sum_k b[k] e_{t-k}
func (m *SARIMA) unpack(x []float64) (c float64, a, b []float64) {
	i := 0
	if m.Constant {
		c = x[0]
		i++
	}
	phi := x[i : i+m.Order.P]
	i += m.Order.P
	seasonalPhi := x[i : i+m.Seasonal.P]
	i += m.Seasonal.P
	theta := x[i : i+m.Order.Q]
	i += m.Order.Q
	seasonalTheta := x[i : i+m.Seasonal.Q]

	// (1 - sum phi_i B^i)(1 - sum Phi_j B^{js}) = 1 - sum a_k B^k
	arPoly := polyMul(lagPoly(phi, 1, -1), lagPoly(seasonalPhi, m.Seasonal.Period, -1))
	a = make([]float64, len(arPoly))
	for k := 1; k < len(arPoly); k++ {
		a[k] = -arPoly[k]
	}

	// (1 + sum theta_i B^i)(1 + sum Theta_j B^{js}) = 1 + sum b_k B^k
	b = polyMul(lagPoly(theta, 1, 1), lagPoly(seasonalTheta, m.Seasonal.Period, 1))
	b[0] = 0
	return c, a, b
}

// cssLoss is the mean squared residual after the first maxLag observations.
func (m *SARIMA) cssLoss(x, y []float64) float64 {
	tail := m.residuals(x, y)[m.maxLag():]
	return floats.Dot(tail, tail) / float64(len(tail))
}

// residuals runs the recursion conditioned on zero pre-sample errors; the first
// maxLag residuals are left at zero.
func (m *SARIMA) residuals(x, y []float64) []float64 {
	c, a, b := m.unpack(x)
	lag := m.maxLag()
	e := make([]float64, len(y))
	for t := lag; t < len(y); t++ {
		e[t] = y[t] - predict(c, a, b, y, e, t)
	}
	return e
}

// extrapolate produces horizon point forecasts, with future shocks set to zero.
func (m *SARIMA) extrapolate(x, history []float64, horizon int) []float64 {
	c, a, b := m.unpack(x)
	n := len(history)

	y := make([]float64, n+horizon)
	copy(y, history)
	e := make([]float64, n+horizon)
	copy(e, m.residuals(x, history))

	for t := n; t < n+horizon; t++ {
		y[t] = predict(c, a, b, y, e, t)
	}
	return y[n:]
}

func predict(c float64, a, b, y, e []float64, t int) float64 {
	v := c
	for k := 1; k < len(a); k++ {
		if a[k] != 0 {
			v += a[k] * y[t-k]
		}
	}
	for k := 1; k < len(b); k++ {
		if b[k] != 0 {
			v += b[k] * e[t-k]
		}
	}
	return v
}

// lagPoly builds 1 + sign*sum coef_i B^{i*step} as a dense coefficient slice.
func lagPoly(coef []float64, step int, sign float64) []float64 {
	p := make([]float64, len(coef)*step+1)
	p[0] = 1
	for i, v := range coef {
		p[(i+1)*step] = sign * v
	}
	return p
}

func polyMul(p, q []float64) []float64 {
	out := make([]float64, len(p)+len(q)-1)
	for i, pv := range p {
		if pv == 0 {
			continue
		}
		for j, qv := range q {
			out[i+j] += pv * qv
		}
	}
	return out
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func allFinite(values []float64) bool {
	for _, v := range values {
		if !isFinite(v) {
			return false
		}
	}
	return true
}
