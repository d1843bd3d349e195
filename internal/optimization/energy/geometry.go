package energy

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Shape is the rod reconstructed from a configuration of free angles.
type Shape struct {
	Theta []float64 `json:"theta"`
	Phi   []float64 `json:"phi"`
	// Tangents holds the unit tangent of each of the N segments.
	Tangents []r3.Vec `json:"tangents"`
	// Vertices holds the N+1 joints, starting at the origin.
	Vertices []r3.Vec `json:"vertices"`
}

// NewShape restores the boundary angles and integrates the tangents of a
// rod of unit length.
func NewShape(thetaShort, phiShort []float64) Shape {
	theta, phi := FullAngles(thetaShort, phiShort)
	tangents := Tangents(theta, phi)
	return Shape{
		Theta:    theta,
		Phi:      phi,
		Tangents: tangents,
		Vertices: Vertices(tangents),
	}
}

// Tangents returns (sin θ cos φ, sin θ sin φ, cos θ) for every segment.
func Tangents(theta, phi []float64) []r3.Vec {
	ts := make([]r3.Vec, len(theta))
	for i := range theta {
		st, ct := math.Sincos(theta[i])
		sp, cp := math.Sincos(phi[i])
		ts[i] = r3.Vec{X: st * cp, Y: st * sp, Z: ct}
	}
	return ts
}

// Vertices places each joint at the previous one plus its segment's tangent
// scaled by 1/N, starting from the origin.
func Vertices(tangents []r3.Vec) []r3.Vec {
	n := len(tangents)
	vs := make([]r3.Vec, n+1)
	step := 1 / float64(n)
	for i, t := range tangents {
		vs[i+1] = r3.Add(vs[i], r3.Scale(step, t))
	}
	return vs
}

// End returns the last vertex of the shape.
func (s Shape) End() r3.Vec {
	return s.Vertices[len(s.Vertices)-1]
}
