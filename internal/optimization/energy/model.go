package energy

import (
	"fmt"
	"math"

	"github.com/copyleftdev/ridge/internal/optimization"
)

// Model exposes the total energy as an optimization.Objective over the
// packed vector x = theta_short ++ phi_short, with an exact gradient.
//
// Non-smooth points follow the usual subgradient conventions: d|u|/du is 0
// at u = 0 and the penalty max(0, v) has derivative 0 at v = 0. Where the
// arccos derivative is unbounded (consecutive parallel tangents) the
// gradient is NaN, as an automatic differentiator would report it.
type Model struct {
	params Params
}

var _ optimization.Objective = (*Model)(nil)

// NewModel returns a Model for p.
func NewModel(p Params) (*Model, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Model{params: p}, nil
}

// Params returns the parameters the model was built with.
func (m *Model) Params() Params { return m.params }

// Dim returns the length of the packed parameter vector.
func (m *Model) Dim() int { return m.params.ThetaLen() + m.params.PhiLen() }

// Split returns views of x holding theta_short and phi_short.
func (m *Model) Split(x []float64) (thetaShort, phiShort []float64) {
	if len(x) != m.Dim() {
		panic(fmt.Sprintf("energy: packed vector has length %d, want %d", len(x), m.Dim()))
	}
	k := m.params.ThetaLen()
	return x[:k:k], x[k:]
}

// Pack concatenates theta_short and phi_short into a new packed vector.
func (m *Model) Pack(thetaShort, phiShort []float64) []float64 {
	x := make([]float64, 0, len(thetaShort)+len(phiShort))
	x = append(x, thetaShort...)
	return append(x, phiShort...)
}

// Evaluate returns the full energy breakdown at x.
func (m *Model) Evaluate(x []float64) Result {
	ts, ps := m.Split(x)
	return Evaluate(ts, ps, m.params)
}

// Func returns the total energy at x.
func (m *Model) Func(x []float64) float64 {
	return m.Evaluate(x).Total
}

// Grad stores the gradient of the total energy at x into grad.
func (m *Model) Grad(grad, x []float64) {
	if len(grad) != len(x) {
		panic("energy: gradient length mismatch")
	}
	ts, ps := m.Split(x)
	theta, phi := FullAngles(ts, ps)

	n := len(theta)
	gTheta := make([]float64, n)
	gPhi := make([]float64, n)
	gradientFull(gTheta, gPhi, theta, phi, m.params)

	k := m.params.ThetaLen()
	copy(grad[:k], gTheta[1:n-1])
	copy(grad[k:], gPhi[2:n-1])
}

// gradientFull accumulates the partial derivatives of the total energy with
// respect to every entry of the full angle sequences.
func gradientFull(gTheta, gPhi, theta, phi []float64, p Params) {
	n := len(theta)

	for i := 0; i < n-1; i++ {
		s0, c0 := math.Sincos(theta[i])
		s1, c1 := math.Sincos(theta[i+1])
		sd, cd := math.Sincos(phi[i+1] - phi[i])

		c := s1*s0*cd + c1*c0
		inside := true
		if p.ClampArccos {
			c, inside = clampUnit(c)
		}

		// d(acos(c)^2)/dc; 0/0 at c = 1 yields NaN on purpose.
		var dc float64
		if inside {
			dc = -2 * math.Acos(c) / math.Sqrt(1-c*c)
		}

		gTheta[i] += dc * (s1*c0*cd - c1*s0)
		gTheta[i+1] += dc * (c1*s0*cd - s1*c0)
		gPhi[i] += dc * s1 * s0 * sd
		gPhi[i+1] -= dc * s1 * s0 * sd
	}

	var sumCos, sumY, sumX float64
	for i := 0; i < n; i++ {
		st, ct := math.Sincos(theta[i])
		sp, cp := math.Sincos(phi[i])
		sumCos += ct
		sumY += st * sp
		sumX += st * cp
	}

	nf := float64(p.N)
	g1 := p.Lambda[0] * sign(sumCos/nf-p.A) / nf
	g2 := p.Lambda[1] * sign(sumY)
	g3 := p.Lambda[2] * sign(sumX)

	for i := 0; i < n; i++ {
		st, ct := math.Sincos(theta[i])
		sp, cp := math.Sincos(phi[i])

		gTheta[i] += -g1*st + g2*ct*sp + g3*ct*cp
		gPhi[i] += g2*st*cp - g3*st*sp

		if theta[i]*(theta[i]-math.Pi) > 0 {
			gTheta[i] += p.Lambda[3] * (2*theta[i] - math.Pi)
		}
	}
}

// sign is the derivative of |u|, with sign(0) = 0.
func sign(u float64) float64 {
	switch {
	case u > 0:
		return 1
	case u < 0:
		return -1
	}
	return u
}
