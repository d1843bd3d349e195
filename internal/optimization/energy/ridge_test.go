package energy

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/diff/fd"

	"github.com/copyleftdev/ridge/internal/optimization"
)

func testParams(n int) Params {
	return Params{N: n, A: 0.6, Lambda: DefaultLambda, ClampArccos: true}
}

// randomAngles draws theta_short in [lo, π-lo] and phi_short in [0, 2π).
func randomAngles(rng *rand.Rand, n int, lo float64) ([]float64, []float64) {
	ts := make([]float64, n-2)
	for i := range ts {
		ts[i] = lo + rng.Float64()*(math.Pi-2*lo)
	}
	ps := make([]float64, n-3)
	for i := range ps {
		ps[i] = rng.Float64() * 2 * math.Pi
	}
	return ts, ps
}

func TestFullAnglesBoundary(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for n := 4; n <= 16; n++ {
		ts, ps := randomAngles(rng, n, 0)
		theta, phi := FullAngles(ts, ps)

		require.Len(t, theta, n)
		require.Len(t, phi, n)
		assert.Equal(t, 0.0, theta[0])
		assert.Equal(t, 0.0, theta[n-1])
		assert.Equal(t, 0.0, phi[0])
		assert.Equal(t, 0.0, phi[1])
		assert.Equal(t, 0.0, phi[n-1])
		assert.Equal(t, ts, theta[1:n-1])
		assert.Equal(t, ps, phi[2:n-1])
	}
}

func TestEvaluateKnownConfigurations(t *testing.T) {
	tests := []struct {
		name  string
		n     int
		theta []float64
		phi   []float64
		want  Result
	}{
		{
			name:  "straight vertical rod",
			n:     6,
			theta: []float64{0, 0, 0, 0},
			phi:   []float64{1, 2, 3},
			want: Result{
				Ridge:   0,
				Constr1: 0.4,
				Total:   30 * 0.4,
			},
		},
		{
			name:  "minimal rod with a horizontal middle",
			n:     4,
			theta: []float64{math.Pi / 2, math.Pi / 2},
			phi:   []float64{0},
			want: Result{
				Ridge:   math.Pi * math.Pi / 2,
				Constr1: 0.1,
				Constr3: 2,
				Total:   math.Pi*math.Pi/2 + 30*0.1 + 10*2,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.theta, tt.phi, testParams(tt.n))
			assert.InDelta(t, tt.want.Total, got.Total, 1e-9)
			assert.InDelta(t, tt.want.Ridge, got.Ridge, 1e-9)
			assert.InDelta(t, tt.want.Constr1, got.Constr1, 1e-9)
			assert.InDelta(t, tt.want.Constr2, got.Constr2, 1e-9)
			assert.InDelta(t, tt.want.Constr3, got.Constr3, 1e-9)
			assert.InDelta(t, tt.want.Constr4, got.Constr4, 1e-9)
		})
	}
}

func TestEvaluateSubTermsNonNegative(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 500; trial++ {
		n := 4 + rng.Intn(20)
		ts, ps := randomAngles(rng, n, 0)
		// Push some angles outside [0, π] to exercise the range penalty.
		for i := range ts {
			ts[i] += 4 * (rng.Float64() - 0.5)
		}

		r := Evaluate(ts, ps, testParams(n))
		assert.False(t, math.IsNaN(r.Total), "trial %d", trial)
		assert.GreaterOrEqual(t, r.Ridge, 0.0)
		for i, c := range r.Constraints() {
			assert.GreaterOrEqual(t, c, 0.0, "constraint %d", i+1)
		}
	}
}

func TestRangePenalty(t *testing.T) {
	p := testParams(5)

	inside := Evaluate([]float64{0.5, math.Pi, 1}, []float64{0.3, 0.1}, p)
	assert.Equal(t, 0.0, inside.Constr4, "angles in [0, π] are not penalized")

	below := Evaluate([]float64{-0.5, 1, 1}, []float64{0.3, 0.1}, p)
	assert.InDelta(t, 0.5*(math.Pi+0.5), below.Constr4, 1e-12)

	above := Evaluate([]float64{1, math.Pi + 1, 1}, []float64{0.3, 0.1}, p)
	assert.InDelta(t, math.Pi+1, above.Constr4, 1e-12)
}

func TestAxialConstraintMatchesEndpoint(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	n := 10
	ts, ps := randomAngles(rng, n, 0)
	p := testParams(n)

	r := Evaluate(ts, ps, p)
	end := NewShape(ts, ps).End()

	assert.InDelta(t, math.Abs(end.Z-p.A), r.Constr1, 1e-12)
	assert.InDelta(t, math.Abs(end.Y)*float64(n), r.Constr2, 1e-12)
	assert.InDelta(t, math.Abs(end.X)*float64(n), r.Constr3, 1e-12)
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		params  Params
		wantErr bool
	}{
		{"defaults", testParams(10), false},
		{"minimal size", testParams(4), false},
		{"too few segments", testParams(3), true},
		{"negative weight", Params{N: 6, A: 0.5, Lambda: [4]float64{1, -1, 1, 1}}, true},
		{"nan target", Params{N: 6, A: math.NaN(), Lambda: DefaultLambda}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, optimization.ErrInvalidConfig)
		})
	}
}

func TestModelGradMatchesFiniteDifferences(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for _, n := range []int{4, 7, 10, 15} {
		model, err := NewModel(testParams(n))
		require.NoError(t, err)

		for trial := 0; trial < 5; trial++ {
			ts, ps := randomAngles(rng, n, 0.2)
			x := model.Pack(ts, ps)

			got := make([]float64, len(x))
			model.Grad(got, x)
			want := fd.Gradient(nil, model.Func, x, &fd.Settings{Formula: fd.Central})

			for i := range got {
				assert.InDelta(t, want[i], got[i], 1e-4*math.Max(1, math.Abs(want[i])),
					"n=%d trial=%d component %d", n, trial, i)
			}
		}
	}
}

func TestModelGradNaNAtParallelTangents(t *testing.T) {
	model, err := NewModel(testParams(6))
	require.NoError(t, err)

	// theta_short[0] = 0 makes the first segment parallel to the clamp.
	x := model.Pack([]float64{0, 1, 1.2, 0.7}, []float64{0.4, 2, 1})
	grad := make([]float64, len(x))
	model.Grad(grad, x)

	ts, _ := model.Split(grad)
	assert.True(t, optimization.HasNaN(ts))
	assert.False(t, math.IsNaN(model.Func(x)), "the energy itself stays finite")
}

func TestClampUnit(t *testing.T) {
	c, ok := clampUnit(1 + 1e-15)
	assert.Equal(t, 1.0, c)
	assert.False(t, ok)

	c, ok = clampUnit(-1 - 1e-15)
	assert.Equal(t, -1.0, c)
	assert.False(t, ok)

	c, ok = clampUnit(0.25)
	assert.Equal(t, 0.25, c)
	assert.True(t, ok)
}

func TestModelSplitPack(t *testing.T) {
	model, err := NewModel(testParams(4))
	require.NoError(t, err)
	assert.Equal(t, 3, model.Dim())

	x := model.Pack([]float64{1, 2}, []float64{3})
	ts, ps := model.Split(x)
	assert.Equal(t, []float64{1, 2}, ts)
	assert.Equal(t, []float64{3}, ps)

	assert.Panics(t, func() { model.Split([]float64{1, 2}) })
}

func BenchmarkEvaluate(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	ts, ps := randomAngles(rng, 50, 0)
	p := testParams(50)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Evaluate(ts, ps, p)
	}
}

func BenchmarkGrad(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	model, _ := NewModel(testParams(50))
	ts, ps := randomAngles(rng, 50, 0)
	x := model.Pack(ts, ps)
	grad := make([]float64, len(x))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		model.Grad(grad, x)
	}
}
