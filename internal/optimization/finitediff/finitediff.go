// Package finitediff provides a numerical gradient oracle for any
// optimization.Objective, backed by gonum's diff/fd.
package finitediff

import (
	"fmt"

	"gonum.org/v1/gonum/diff/fd"

	"github.com/copyleftdev/ridge/internal/optimization"
)

// Supported difference schemes.
const (
	Central = "central"
	Forward = "forward"
)

// Objective evaluates Func through the wrapped objective and replaces its
// gradient with a finite-difference estimate.
type Objective struct {
	inner    optimization.Objective
	settings fd.Settings
}

var _ optimization.Objective = (*Objective)(nil)

// New wraps inner with the named difference scheme. A zero step selects
// the default step of the scheme.
func New(inner optimization.Objective, scheme string, step float64) (*Objective, error) {
	var formula fd.Formula
	switch scheme {
	case Central, "":
		formula = fd.Central
	case Forward:
		formula = fd.Forward
	default:
		return nil, optimization.InvalidField("gradient", "unknown difference scheme %q", scheme).
			WithComponent("finitediff")
	}
	if step < 0 {
		return nil, optimization.InvalidField("step", "must be non-negative, got %v", step).
			WithComponent("finitediff")
	}
	return &Objective{
		inner:    inner,
		settings: fd.Settings{Formula: formula, Step: step},
	}, nil
}

// Func evaluates the wrapped objective.
func (o *Objective) Func(x []float64) float64 {
	return o.inner.Func(x)
}

// Grad estimates the gradient of the wrapped objective at x.
func (o *Objective) Grad(grad, x []float64) {
	if len(grad) != len(x) {
		panic(fmt.Sprintf("finitediff: gradient has length %d, want %d", len(grad), len(x)))
	}
	settings := o.settings
	fd.Gradient(grad, o.inner.Func, x, &settings)
}
