// Package adam implements the Adam adaptive-moment update rule.
//
// A Rule owns its first and second moment estimates. It is meant to be
// short-lived: the optimizer builds a fresh Rule at every epoch so that
// stale momentum is discarded at epoch boundaries.
package adam

import (
	"fmt"
	"math"
)

// Default hyperparameters.
const (
	DefaultBeta1   = 0.9
	DefaultBeta2   = 0.999
	DefaultEpsilon = 1e-7
)

// Settings configures a Rule.
type Settings struct {
	LearningRate float64
	Beta1        float64
	Beta2        float64
	Epsilon      float64
}

// DefaultSettings returns the standard hyperparameters with the given
// learning rate.
func DefaultSettings(learningRate float64) Settings {
	return Settings{
		LearningRate: learningRate,
		Beta1:        DefaultBeta1,
		Beta2:        DefaultBeta2,
		Epsilon:      DefaultEpsilon,
	}
}

// Rule is the per-parameter state of Adam.
type Rule struct {
	settings Settings
	m, v     []float64
	t        int
}

// New returns a Rule for dim parameters with zeroed moments.
func New(dim int, settings Settings) *Rule {
	return &Rule{
		settings: settings,
		m:        make([]float64, dim),
		v:        make([]float64, dim),
	}
}

// Steps returns the number of updates applied so far.
func (r *Rule) Steps() int { return r.t }

// Step updates x in place, descending along grad.
func (r *Rule) Step(x, grad []float64) {
	if len(x) != len(r.m) || len(grad) != len(r.m) {
		panic(fmt.Sprintf("adam: got x=%d grad=%d, want %d", len(x), len(grad), len(r.m)))
	}
	s := r.settings
	r.t++
	t := float64(r.t)
	alpha := s.LearningRate * math.Sqrt(1-math.Pow(s.Beta2, t)) / (1 - math.Pow(s.Beta1, t))

	for i, g := range grad {
		r.m[i] += (g - r.m[i]) * (1 - s.Beta1)
		r.v[i] += (g*g - r.v[i]) * (1 - s.Beta2)
		x[i] -= r.m[i] * alpha / (math.Sqrt(r.v[i]) + s.Epsilon)
	}
}
