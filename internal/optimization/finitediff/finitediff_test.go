package finitediff

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/ridge/internal/optimization"
	"github.com/copyleftdev/ridge/internal/optimization/energy"
)

// quadratic is f(x) = Σ x_i^2 with its exact gradient.
type quadratic struct{}

func (quadratic) Func(x []float64) float64 {
	sum := 0.0
	for _, v := range x {
		sum += v * v
	}
	return sum
}

func (quadratic) Grad(grad, x []float64) {
	for i, v := range x {
		grad[i] = 2 * v
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		scheme  string
		step    float64
		wantErr bool
	}{
		{"central", Central, 0, false},
		{"forward", Forward, 1e-7, false},
		{"empty defaults to central", "", 0, false},
		{"unknown scheme", "backward", 0, true},
		{"negative step", Central, -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj, err := New(quadratic{}, tt.scheme, tt.step)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, optimization.ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, obj)
		})
	}
}

func TestGradQuadratic(t *testing.T) {
	x := []float64{1, -2, 0.5}
	for _, scheme := range []string{Central, Forward} {
		t.Run(scheme, func(t *testing.T) {
			obj, err := New(quadratic{}, scheme, 0)
			require.NoError(t, err)

			grad := make([]float64, len(x))
			obj.Grad(grad, x)
			assert.InDeltaSlice(t, []float64{2, -4, 1}, grad, 1e-5)
			assert.Equal(t, 5.25, obj.Func(x))
		})
	}
}

func TestGradAgreesWithAnalyticEnergy(t *testing.T) {
	model, err := energy.NewModel(energy.Params{N: 8, A: 0.6, Lambda: energy.DefaultLambda, ClampArccos: true})
	require.NoError(t, err)
	obj, err := New(model, Central, 0)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(5))
	x := make([]float64, model.Dim())
	ts, ps := model.Split(x)
	for i := range ts {
		ts[i] = 0.3 + rng.Float64()*(math.Pi-0.6)
	}
	for i := range ps {
		ps[i] = rng.Float64() * 2 * math.Pi
	}

	want := make([]float64, len(x))
	got := make([]float64, len(x))
	model.Grad(want, x)
	obj.Grad(got, x)

	for i := range got {
		assert.InDelta(t, want[i], got[i], 1e-4*math.Max(1, math.Abs(want[i])), "component %d", i)
	}
}

func TestGradLengthMismatchPanics(t *testing.T) {
	obj, err := New(quadratic{}, Central, 0)
	require.NoError(t, err)
	assert.Panics(t, func() { obj.Grad(make([]float64, 1), []float64{1, 2}) })
}
