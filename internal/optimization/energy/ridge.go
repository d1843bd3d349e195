// Package energy evaluates the discrete ridge energy of a clamped elastica
// together with the penalty terms that enforce the clamp geometry.
//
// A rod of N segments is described by the polar angle theta[i] and the
// azimuth phi[i] of each segment's unit tangent. The first and last segments
// are vertical (theta = 0) and the second one lies in the yz-plane, so the
// free variables are theta[1:N-1] and phi[2:N-1]. Callers work with these
// "short" vectors; the fixed entries are restored by FullAngles.
package energy

import (
	"math"

	"github.com/copyleftdev/ridge/internal/optimization"
)

// Params holds the scalar parameters of the energy functional.
//
// N must be at least 4 and the weights non-negative. Evaluate does not
// check this; use Validate before building a Model.
type Params struct {
	// N is the number of rod segments.
	N int `json:"n" yaml:"n"`
	// A is the target ratio of clamp distance to rod length.
	A float64 `json:"a" yaml:"a"`
	// Lambda holds the penalty weights of the four constraints.
	Lambda [4]float64 `json:"lambda" yaml:"lambda"`
	// ClampArccos clamps the arccos argument to [-1, 1] before evaluation.
	ClampArccos bool `json:"clamp_arccos" yaml:"clamp_arccos"`
}

// DefaultLambda is the weight vector used when none is configured.
var DefaultLambda = [4]float64{30, 10, 10, 10}

// Validate checks the preconditions of Evaluate.
func (p Params) Validate() error {
	if p.N < 4 {
		return optimization.InvalidField("n", "must be at least 4, got %d", p.N).WithComponent("energy")
	}
	for i, l := range p.Lambda {
		if l < 0 || math.IsNaN(l) {
			return optimization.InvalidField("lambda", "weight %d must be non-negative, got %v", i+1, l).WithComponent("energy")
		}
	}
	if math.IsNaN(p.A) || math.IsInf(p.A, 0) {
		return optimization.InvalidField("a", "must be finite, got %v", p.A).WithComponent("energy")
	}
	return nil
}

// ThetaLen returns the number of free polar angles.
func (p Params) ThetaLen() int { return p.N - 2 }

// PhiLen returns the number of free azimuths.
func (p Params) PhiLen() int { return p.N - 3 }

// Result is the total energy and its components at one configuration.
type Result struct {
	Total   float64 `json:"total_energy"`
	Ridge   float64 `json:"ridge_energy"`
	Constr1 float64 `json:"constr_1"`
	Constr2 float64 `json:"constr_2"`
	Constr3 float64 `json:"constr_3"`
	Constr4 float64 `json:"constr_4"`
}

// Constraints returns the four penalty terms in order.
func (r Result) Constraints() [4]float64 {
	return [4]float64{r.Constr1, r.Constr2, r.Constr3, r.Constr4}
}

// FullAngles restores the boundary entries: theta gets a zero prepended and
// appended, phi gets two zeros prepended and one appended.
func FullAngles(thetaShort, phiShort []float64) (theta, phi []float64) {
	theta = make([]float64, len(thetaShort)+2)
	copy(theta[1:], thetaShort)

	phi = make([]float64, len(phiShort)+3)
	copy(phi[2:], phiShort)
	return theta, phi
}

// Evaluate computes the energy of the configuration given by the free
// angles. len(thetaShort) must be p.N-2 and len(phiShort) p.N-3.
func Evaluate(thetaShort, phiShort []float64, p Params) Result {
	theta, phi := FullAngles(thetaShort, phiShort)
	return evaluateFull(theta, phi, p)
}

// evaluateFull computes the energy on full-length angle sequences.
func evaluateFull(theta, phi []float64, p Params) Result {
	n := len(theta)
	var (
		r                  Result
		sumCos, sumY, sumX float64
	)

	for i := 0; i < n; i++ {
		st, ct := math.Sincos(theta[i])
		sp, cp := math.Sincos(phi[i])
		sumCos += ct
		sumY += st * sp
		sumX += st * cp

		// The pair (n-1, 0) would close the loop; a clamped rod has no such joint.
		if i < n-1 {
			alpha := math.Acos(p.turnCosine(theta, phi, i))
			r.Ridge += alpha * alpha
		}

		if v := theta[i] * (theta[i] - math.Pi); v > 0 {
			r.Constr4 += v
		}
	}

	r.Constr1 = math.Abs(sumCos/float64(p.N) - p.A)
	r.Constr2 = math.Abs(sumY)
	r.Constr3 = math.Abs(sumX)
	r.Total = r.Ridge +
		p.Lambda[0]*r.Constr1 +
		p.Lambda[1]*r.Constr2 +
		p.Lambda[2]*r.Constr3 +
		p.Lambda[3]*r.Constr4
	return r
}

// turnCosine returns the cosine of the angle between tangents i and i+1,
// clamped to [-1, 1] when configured.
func (p Params) turnCosine(theta, phi []float64, i int) float64 {
	s0, c0 := math.Sincos(theta[i])
	s1, c1 := math.Sincos(theta[i+1])
	c := s1*s0*math.Cos(phi[i+1]-phi[i]) + c1*c0
	if p.ClampArccos {
		c, _ = clampUnit(c)
	}
	return c
}

// clampUnit clamps c to [-1, 1] and reports whether c was already inside.
func clampUnit(c float64) (float64, bool) {
	switch {
	case c > 1:
		return 1, false
	case c < -1:
		return -1, false
	}
	return c, true
}
