// Package multistart minimizes the elastica energy by restarting a
// gradient method from many random configurations and keeping, for each
// attempt, the lowest-energy configuration seen after warm-up.
package multistart

import (
	"context"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/copyleftdev/ridge/internal/optimization"
	"github.com/copyleftdev/ridge/internal/optimization/adam"
	"github.com/copyleftdev/ridge/internal/optimization/energy"
	"github.com/copyleftdev/ridge/internal/optimization/finitediff"
)

// ItemOutcome is the result of one gradient step.
type ItemOutcome int

const (
	// ItemSkipped means the gradient contained NaN and nothing changed.
	ItemSkipped ItemOutcome = iota
	// ItemUpdated means the update rule moved the parameters.
	ItemUpdated
	// ItemImproved means the update also produced a new incumbent.
	ItemImproved
)

func (o ItemOutcome) String() string {
	switch o {
	case ItemSkipped:
		return "skipped"
	case ItemUpdated:
		return "updated"
	case ItemImproved:
		return "improved"
	}
	return "unknown"
}

// AttemptRecord is the incumbent of one finished attempt. It never aliases
// the optimizer's working vectors.
type AttemptRecord struct {
	Attempt    int           `json:"attempt"`
	ThetaShort []float64     `json:"theta_short"`
	PhiShort   []float64     `json:"phi_short"`
	Energy     energy.Result `json:"energy"`
	// Initial is the energy of the attempt's random starting point.
	Initial energy.Result `json:"initial"`
	// Improvements counts incumbent replacements.
	Improvements int `json:"improvements"`
	// Skipped counts steps dropped by the NaN guard.
	Skipped int `json:"skipped"`
}

// RunHistory holds the attempt records in attempt order.
type RunHistory struct {
	Records []AttemptRecord `json:"records"`
}

// Totals returns the total energy of every attempt.
func (h *RunHistory) Totals() []float64 {
	out := make([]float64, len(h.Records))
	for i, r := range h.Records {
		out[i] = r.Energy.Total
	}
	return out
}

// BestIndex returns the index of the attempt with the lowest total energy,
// the first one on ties, or -1 for an empty history.
func (h *RunHistory) BestIndex() int {
	if len(h.Records) == 0 {
		return -1
	}
	return floats.MinIdx(h.Totals())
}

// Best returns the attempt with the lowest total energy.
func (h *RunHistory) Best() (AttemptRecord, bool) {
	i := h.BestIndex()
	if i < 0 {
		return AttemptRecord{}, false
	}
	return h.Records[i], true
}

// Optimizer runs the attempt/epoch/item loop. It is single-threaded: all
// attempts share one Sampler, so their order is part of the result.
type Optimizer struct {
	cfg       Config
	model     *energy.Model
	objective optimization.Objective
	sampler   *Sampler
	logger    *zap.Logger
	observers []Observer
}

// Option configures an Optimizer.
type Option func(*Optimizer)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Optimizer) { o.logger = logger.Named("multistart") }
}

// WithObserver adds an observer.
func WithObserver(obs Observer) Option {
	return func(o *Optimizer) { o.observers = append(o.observers, obs) }
}

// WithObjective replaces the gradient oracle selected by Config.Gradient.
// Energies reported in records always come from the energy model.
func WithObjective(obj optimization.Objective) Option {
	return func(o *Optimizer) { o.objective = obj }
}

// NewOptimizer validates cfg and builds an Optimizer.
func NewOptimizer(cfg Config, opts ...Option) (*Optimizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	model, err := energy.NewModel(cfg.Energy)
	if err != nil {
		return nil, err
	}

	o := &Optimizer{
		cfg:     cfg,
		model:   model,
		sampler: NewSampler(cfg.Seed),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.objective == nil {
		switch cfg.Gradient {
		case GradientCentral, GradientForward:
			fdObj, err := finitediff.New(model, cfg.Gradient, 0)
			if err != nil {
				return nil, err
			}
			o.objective = fdObj
		default:
			o.objective = model
		}
	}
	return o, nil
}

// Config returns the run configuration.
func (o *Optimizer) Config() Config { return o.cfg }

// Model returns the energy model.
func (o *Optimizer) Model() *energy.Model { return o.model }

// Optimize runs every attempt and returns their records. The context is
// only consulted between attempts; if it is done, the records finished so
// far are returned together with ctx.Err().
func (o *Optimizer) Optimize(ctx context.Context) (*RunHistory, error) {
	history := &RunHistory{Records: make([]AttemptRecord, 0, o.cfg.Attempts)}

	for j := 0; j < o.cfg.Attempts; j++ {
		if err := ctx.Err(); err != nil {
			return history, err
		}
		history.Records = append(history.Records, o.attempt(j))
	}

	if best, ok := history.Best(); ok {
		o.logger.Info("Optimization finished",
			zap.Int("attempts", len(history.Records)),
			zap.Int("best_attempt", best.Attempt),
			zap.Float64("total_energy", best.Energy.Total),
			zap.Float64("ridge_energy", best.Energy.Ridge),
		)
	}
	return history, nil
}

// attempt draws a fresh starting point and refines it for the full
// epochs x items budget.
func (o *Optimizer) attempt(j int) AttemptRecord {
	p := o.cfg.Energy
	theta := o.sampler.Uniform(p.ThetaLen(), 0, math.Pi)
	phi := o.sampler.Uniform(p.PhiLen(), 0, 2*math.Pi)

	x := o.model.Pack(theta, phi)
	initial := o.model.Evaluate(x)
	inc := newIncumbent(x, initial)
	for _, obs := range o.observers {
		obs.AttemptStarted(j, initial)
	}

	var improvements, skipped int
	grad := make([]float64, len(x))
	settings := adam.DefaultSettings(o.cfg.LearningRate)

	for epoch := 0; epoch < o.cfg.Epochs; epoch++ {
		rule := adam.New(len(x), settings)

		for item := 0; item < o.cfg.Items; item++ {
			outcome := o.step(rule, x, grad)

			switch {
			case outcome == ItemSkipped:
				skipped++
				o.logger.Debug("Skipped step with NaN gradient",
					zap.Int("attempt", j), zap.Int("epoch", epoch), zap.Int("item", item))
			case epoch >= warmupEpochs:
				r := o.model.Evaluate(x)
				if r.Total < inc.result.Total {
					inc = newIncumbent(x, r)
					improvements++
					outcome = ItemImproved
					for _, obs := range o.observers {
						obs.IncumbentImproved(j, epoch, item, r)
					}
				}
			}

			for _, obs := range o.observers {
				obs.ItemDone(j, epoch, item, outcome)
			}
		}
	}

	ts, ps := o.model.Split(inc.x)
	rec := AttemptRecord{
		Attempt:      j,
		ThetaShort:   ts,
		PhiShort:     ps,
		Energy:       inc.result,
		Initial:      initial,
		Improvements: improvements,
		Skipped:      skipped,
	}

	o.logger.Info("Attempt finished",
		zap.Int("attempt", j),
		zap.Float64("total_energy", rec.Energy.Total),
		zap.Float64("ridge_energy", rec.Energy.Ridge),
		zap.Float64("constraint_1", rec.Energy.Constr1),
		zap.Float64("constraint_2", rec.Energy.Constr2),
		zap.Float64("constraint_3", rec.Energy.Constr3),
		zap.Float64("constraint_4", rec.Energy.Constr4),
		zap.Int("skipped", skipped),
	)
	for _, obs := range o.observers {
		obs.AttemptFinished(rec)
	}
	return rec
}

// step computes the gradient at x and applies the update rule, unless a
// theta component of the gradient is NaN, in which case x and the rule are
// left untouched.
func (o *Optimizer) step(rule *adam.Rule, x, grad []float64) ItemOutcome {
	o.objective.Grad(grad, x)
	gTheta, _ := o.model.Split(grad)
	if optimization.HasNaN(gTheta) {
		return ItemSkipped
	}
	rule.Step(x, grad)
	return ItemUpdated
}

// incumbent is a frozen copy of the best point of an attempt.
type incumbent struct {
	x      []float64
	result energy.Result
}

func newIncumbent(x []float64, r energy.Result) incumbent {
	return incumbent{x: append([]float64(nil), x...), result: r}
}
