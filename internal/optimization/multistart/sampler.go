package multistart

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Sampler is the single random stream of a run. Attempts draw from it in
// order, so results depend on both the seed and the sequence of draws.
// It is not safe for concurrent use.
type Sampler struct {
	src rand.Source
}

// NewSampler returns a Sampler seeded with seed.
func NewSampler(seed int64) *Sampler {
	s := uint64(seed)
	return &Sampler{src: rand.NewPCG(s, s^0x9e3779b97f4a7c15)}
}

// Uniform draws n values uniformly from [lo, hi).
func (s *Sampler) Uniform(n int, lo, hi float64) []float64 {
	dist := distuv.Uniform{Min: lo, Max: hi, Src: s.src}
	out := make([]float64, n)
	for i := range out {
		out[i] = dist.Rand()
	}
	return out
}
