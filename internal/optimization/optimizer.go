package optimization

import "gonum.org/v1/gonum/floats"

// Objective is a differentiable scalar function of a packed parameter
// vector. It mirrors the Func/Grad pair of gonum's optimize.Problem so any
// gradient back end (analytic or numeric) can satisfy it.
type Objective interface {
	// Func evaluates the objective at x.
	Func(x []float64) float64

	// Grad stores the gradient of the objective at x into grad.
	// len(grad) must equal len(x).
	Grad(grad, x []float64)
}

// Solution represents a point in the optimization space and its value
type Solution struct {
	Parameters []float64
	Value      float64
}

// Clone returns a copy of s that does not alias its parameters.
func (s *Solution) Clone() *Solution {
	if s == nil {
		return nil
	}
	return &Solution{
		Parameters: append([]float64(nil), s.Parameters...),
		Value:      s.Value,
	}
}

// HasNaN reports whether any of the given slices contains a NaN.
func HasNaN(vs ...[]float64) bool {
	for _, v := range vs {
		if floats.HasNaN(v) {
			return true
		}
	}
	return false
}
