package multistart

import (
	"math"

	"github.com/copyleftdev/ridge/internal/optimization"
	"github.com/copyleftdev/ridge/internal/optimization/energy"
	"github.com/copyleftdev/ridge/internal/optimization/finitediff"
)

// Gradient oracles selectable by name.
const (
	GradientAnalytic = "analytic"
	GradientCentral  = finitediff.Central
	GradientForward  = finitediff.Forward
)

// warmupEpochs is the number of leading epochs of each attempt whose
// improvements are never promoted to incumbent.
const warmupEpochs = 2

// Config is the complete, immutable input of one run.
type Config struct {
	Energy energy.Params `json:"energy" yaml:"energy"`

	// Attempts is the number of independent random restarts (m).
	Attempts int `json:"attempts" yaml:"attempts"`
	// Epochs is the number of update-rule resets per attempt.
	Epochs int `json:"epochs" yaml:"epochs"`
	// Items is the number of gradient steps per epoch.
	Items int `json:"items" yaml:"items"`

	LearningRate float64 `json:"learning_rate" yaml:"learning_rate"`

	// Seed drives every random draw of the run.
	Seed int64 `json:"seed" yaml:"seed"`

	// Gradient selects the oracle: analytic, central or forward.
	Gradient string `json:"gradient" yaml:"gradient"`
}

// DefaultConfig returns the reference parameters of the clamped elastica
// study: ten segments, clamp ratio 0.6, fifty attempts of 40 x 500 steps.
func DefaultConfig() Config {
	return Config{
		Energy: energy.Params{
			N:           10,
			A:           0.6,
			Lambda:      energy.DefaultLambda,
			ClampArccos: true,
		},
		Attempts:     50,
		Epochs:       40,
		Items:        500,
		LearningRate: 0.01,
		Seed:         123,
		Gradient:     GradientAnalytic,
	}
}

// Validate checks the preconditions of Optimize. The optimizer itself does
// not re-check them; callers are expected to validate first.
func (c Config) Validate() error {
	if err := c.Energy.Validate(); err != nil {
		return err
	}

	switch {
	case c.Attempts < 1:
		return invalid("attempts", "must be at least 1, got %d", c.Attempts)
	case c.Epochs < 0:
		return invalid("epochs", "must be non-negative, got %d", c.Epochs)
	case c.Items < 0:
		return invalid("items", "must be non-negative, got %d", c.Items)
	case !(c.LearningRate > 0) || math.IsInf(c.LearningRate, 0):
		return invalid("learning_rate", "must be positive and finite, got %v", c.LearningRate)
	}

	switch c.Gradient {
	case GradientAnalytic, GradientCentral, GradientForward, "":
	default:
		return invalid("gradient", "unknown oracle %q", c.Gradient)
	}
	return nil
}

func invalid(field, format string, args ...interface{}) error {
	return optimization.InvalidField(field, format, args...).WithComponent("multistart")
}
