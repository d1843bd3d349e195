// Package report assembles the result of a run and renders it for people
// (text) and for downstream plotting tools (JSON, CSV).
package report

import (
	"fmt"
	"path/filepath"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/copyleftdev/ridge/internal/errors"
	"github.com/copyleftdev/ridge/internal/optimization/energy"
	"github.com/copyleftdev/ridge/internal/optimization/multistart"
)

// Histories holds one value per attempt for each energy term.
type Histories struct {
	Total   []float64 `json:"total_energy"`
	Ridge   []float64 `json:"ridge_energy"`
	Constr1 []float64 `json:"constr_1"`
	Constr2 []float64 `json:"constr_2"`
	Constr3 []float64 `json:"constr_3"`
	Constr4 []float64 `json:"constr_4"`
}

// Summary describes the spread of the attempts' total energies.
type Summary struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Bundle is everything a run hands to its reporters. BestAttempt indexes
// Records.
type Bundle struct {
	Name        string                     `json:"name"`
	CreatedAt   time.Time                  `json:"created_at"`
	Config      multistart.Config          `json:"config"`
	Records     []multistart.AttemptRecord `json:"records"`
	Histories   Histories                  `json:"histories"`
	Summary     Summary                    `json:"summary"`
	BestAttempt int                        `json:"best_attempt"`
	Best        multistart.AttemptRecord   `json:"best"`
	Shape       energy.Shape               `json:"shape"`
}

// Reporter consumes a finished bundle.
type Reporter interface {
	Report(b *Bundle) error
}

// NewBundle selects the best attempt of history and reconstructs its rod.
func NewBundle(name string, cfg multistart.Config, history *multistart.RunHistory) (*Bundle, error) {
	best, ok := history.Best()
	if !ok {
		return nil, errors.New("run history is empty").WithComponent("report").WithOperation("NewBundle")
	}

	b := &Bundle{
		Name:        name,
		CreatedAt:   time.Now().UTC(),
		Config:      cfg,
		Records:     history.Records,
		BestAttempt: history.BestIndex(),
		Best:        best,
		Shape:       energy.NewShape(best.ThetaShort, best.PhiShort),
	}

	n := len(history.Records)
	h := Histories{
		Total:   make([]float64, n),
		Ridge:   make([]float64, n),
		Constr1: make([]float64, n),
		Constr2: make([]float64, n),
		Constr3: make([]float64, n),
		Constr4: make([]float64, n),
	}
	for i, r := range history.Records {
		h.Total[i] = r.Energy.Total
		h.Ridge[i] = r.Energy.Ridge
		h.Constr1[i] = r.Energy.Constr1
		h.Constr2[i] = r.Energy.Constr2
		h.Constr3[i] = r.Energy.Constr3
		h.Constr4[i] = r.Energy.Constr4
	}
	b.Histories = h
	b.Summary = summarize(h.Total)
	return b, nil
}

func summarize(totals []float64) Summary {
	mean, std := stat.MeanStdDev(totals, nil)
	if len(totals) < 2 {
		std = 0
	}
	return Summary{
		Mean:   mean,
		StdDev: std,
		Min:    floats.Min(totals),
		Max:    floats.Max(totals),
	}
}

// ExperimentName returns "<program>_<n>_<a>_<timestamp>", the stem used for
// the run log and the artifacts of one run.
func ExperimentName(program string, n int, a float64, at time.Time) string {
	base := filepath.Base(program)
	base = base[:len(base)-len(filepath.Ext(base))]
	return fmt.Sprintf("%s_%d_%.2f_%s", base, n, a, at.Format("20060102_150405"))
}
