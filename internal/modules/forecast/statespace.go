package forecast

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	// diffuseVariance is the prior variance of every state element before the
	// first observation.
	diffuseVariance = 1e6
	minVariance     = 1e-12
)

// stateSpace is the Harvey representation of the expanded ARMA recursion:
//
//	y_t         = state_t[0]
//	state_{t+1} = T state_t + c e_1 + R eps_{t+1}
type stateSpace struct {
	transition *mat.Dense
	selection  *mat.VecDense
	constant   float64
	dim        int
}

func (m *SARIMA) stateSpace(x []float64) *stateSpace {
	c, a, b := m.unpack(x)
	return newStateSpace(c, a, b)
}

// newStateSpace builds the model from the lag coefficients returned by unpack.
func newStateSpace(c float64, a, b []float64) *stateSpace {
	dim := max(len(a)-1, len(b), 1)

	transition := mat.NewDense(dim, dim, nil)
	for i := 0; i < dim; i++ {
		if i+1 < len(a) {
			transition.Set(i, 0, a[i+1])
		}
		if i+1 < dim {
			transition.Set(i, i+1, 1)
		}
	}

	selection := mat.NewVecDense(dim, nil)
	selection.SetVec(0, 1)
	for k := 1; k < len(b) && k < dim; k++ {
		selection.SetVec(k, b[k])
	}

	return &stateSpace{
		transition: transition,
		selection:  selection,
		constant:   c,
		dim:        dim,
	}
}

// filter runs the Kalman filter over y from a diffuse start. It returns the
// concentrated negative log-likelihood per observation and the one-step-ahead
// state after the last observation. Every observation counts, so the diffuse
// start penalizes large transition coefficients.
func (s *stateSpace) filter(y []float64) (float64, *mat.VecDense) {
	state := mat.NewVecDense(s.dim, nil)
	cov := mat.NewDense(s.dim, s.dim, nil)
	for i := 0; i < s.dim; i++ {
		cov.Set(i, i, diffuseVariance)
	}

	var shock mat.Dense
	shock.Outer(1, s.selection, s.selection)

	var (
		sumLogF, sumSq                float64
		gain                          = mat.NewVecDense(s.dim, nil)
		correction, spread, predicted mat.Dense
	)
	for _, obs := range y {
		f := cov.At(0, 0)
		if !(f > 0) || !isFinite(f) {
			return math.Inf(1), nil
		}
		v := obs - state.AtVec(0)
		sumLogF += math.Log(f)
		sumSq += v * v / f

		gain.ScaleVec(1/f, cov.ColView(0))
		state.AddScaledVec(state, v, gain)
		correction.Outer(f, gain, gain)
		cov.Sub(cov, &correction)

		s.advance(state)
		spread.Mul(s.transition, cov)
		predicted.Mul(&spread, s.transition.T())
		cov.Add(&predicted, &shock)
	}

	n := float64(len(y))
	sigma2 := max(sumSq/n, minVariance)
	return math.Log(sigma2) + sumLogF/n, state
}

// forecast filters y and extrapolates horizon steps with future shocks at zero.
// It returns nil when the filter breaks down.
func (s *stateSpace) forecast(y []float64, horizon int) []float64 {
	_, state := s.filter(y)
	if state == nil {
		return nil
	}

	out := make([]float64, horizon)
	for h := range out {
		out[h] = state.AtVec(0)
		s.advance(state)
	}
	return out
}

func (s *stateSpace) advance(state *mat.VecDense) {
	var next mat.VecDense
	next.MulVec(s.transition, state)
	state.CopyVec(&next)
	state.SetVec(0, state.AtVec(0)+s.constant)
}
