package forecast

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// RandomSource yields standard normal samples for the sampling and noise steps.
// Implementations need not be safe for concurrent use; each forecast gets its own.
type RandomSource interface {
	Gaussian() float64
}

type gaussianSource struct {
	normal distuv.Normal
}

// NewSeededSource returns a deterministic standard normal source.
func NewSeededSource(seed uint64) RandomSource {
	return &gaussianSource{
		normal: distuv.Normal{
			Mu:    0,
			Sigma: 1,
			Src:   rand.NewPCG(seed, seed^0x9e3779b97f4a7c15),
		},
	}
}

// NewRandomSource returns a source seeded from the runtime's entropy.
func NewRandomSource() RandomSource {
	return NewSeededSource(rand.Uint64())
}

func (g *gaussianSource) Gaussian() float64 {
	return g.normal.Rand()
}
