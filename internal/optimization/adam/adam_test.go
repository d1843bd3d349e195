package adam

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFirstStepMovesByLearningRate(t *testing.T) {
	// With bias correction the first step is lr * sign(g), up to epsilon.
	r := New(3, DefaultSettings(0.01))
	x := []float64{1, 1, 1}
	r.Step(x, []float64{5, -0.2, 0})

	assert.InDelta(t, 1-0.01, x[0], 1e-8)
	assert.InDelta(t, 1+0.01, x[1], 1e-6)
	assert.Equal(t, 1.0, x[2], "zero gradient leaves the parameter unchanged")
	assert.Equal(t, 1, r.Steps())
}

func TestConvergesOnQuadratic(t *testing.T) {
	r := New(2, DefaultSettings(0.05))
	x := []float64{3, -2}
	grad := make([]float64, 2)
	for i := 0; i < 2000; i++ {
		grad[0], grad[1] = 2*x[0], 2*x[1]
		r.Step(x, grad)
	}
	assert.InDelta(t, 0, x[0], 0.1)
	assert.InDelta(t, 0, x[1], 0.1)
}

func TestFreshRuleForgetsMomentum(t *testing.T) {
	warm := New(1, DefaultSettings(0.1))
	x := []float64{0}
	for i := 0; i < 50; i++ {
		warm.Step(x, []float64{1})
	}

	// A reversed gradient on a warm rule still moves with the old momentum,
	// a fresh rule follows the new gradient immediately.
	xw := []float64{0}
	warm.Step(xw, []float64{-1})
	xf := []float64{0}
	New(1, DefaultSettings(0.1)).Step(xf, []float64{-1})

	assert.Less(t, xw[0], 0.0)
	assert.Greater(t, xf[0], 0.0)
	assert.InDelta(t, 0.1, xf[0], 1e-6)
	assert.False(t, math.IsNaN(xw[0]))
}

func TestStepLengthMismatchPanics(t *testing.T) {
	r := New(2, DefaultSettings(0.01))
	assert.Panics(t, func() { r.Step([]float64{1}, []float64{1}) })
}
