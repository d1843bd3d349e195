package multistart

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/copyleftdev/ridge/internal/optimization/energy"
)

// Observer receives progress events from Optimize. Calls happen on the
// optimizing goroutine, in order.
type Observer interface {
	AttemptStarted(attempt int, initial energy.Result)
	ItemDone(attempt, epoch, item int, outcome ItemOutcome)
	IncumbentImproved(attempt, epoch, item int, r energy.Result)
	AttemptFinished(rec AttemptRecord)
}

// BaseObserver implements Observer with no-ops; embed it to handle a
// subset of the events.
type BaseObserver struct{}

func (BaseObserver) AttemptStarted(int, energy.Result)              {}
func (BaseObserver) ItemDone(int, int, int, ItemOutcome)            {}
func (BaseObserver) IncumbentImproved(int, int, int, energy.Result) {}
func (BaseObserver) AttemptFinished(AttemptRecord)                  {}

// Metrics exports optimizer progress to Prometheus.
type Metrics struct {
	BaseObserver

	attempts      prometheus.Counter
	items         *prometheus.CounterVec
	improvements  prometheus.Counter
	attemptEnergy prometheus.Histogram
}

// NewMetrics creates the optimizer collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		attempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ridge",
			Subsystem: "optimizer",
			Name:      "attempts_total",
			Help:      "Number of completed optimization attempts.",
		}),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ridge",
			Subsystem: "optimizer",
			Name:      "items_total",
			Help:      "Gradient steps by outcome.",
		}, []string{"outcome"}),
		improvements: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ridge",
			Subsystem: "optimizer",
			Name:      "incumbent_improvements_total",
			Help:      "Number of times an attempt's incumbent was replaced.",
		}),
		attemptEnergy: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ridge",
			Subsystem: "optimizer",
			Name:      "attempt_total_energy",
			Help:      "Total energy of each finished attempt's incumbent.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
		}),
	}

	for _, c := range []prometheus.Collector{m.attempts, m.items, m.improvements, m.attemptEnergy} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ItemDone counts the step by outcome.
func (m *Metrics) ItemDone(_, _, _ int, outcome ItemOutcome) {
	m.items.WithLabelValues(outcome.String()).Inc()
}

// IncumbentImproved counts the replacement.
func (m *Metrics) IncumbentImproved(int, int, int, energy.Result) {
	m.improvements.Inc()
}

// AttemptFinished records the attempt's final energy.
func (m *Metrics) AttemptFinished(rec AttemptRecord) {
	m.attempts.Inc()
	m.attemptEnergy.Observe(rec.Energy.Total)
}
