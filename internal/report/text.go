package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/copyleftdev/ridge/internal/optimization/multistart"
)

// TextReporter writes the human-readable summary of a run.
type TextReporter struct {
	W io.Writer
}

// Report implements Reporter.
func (r TextReporter) Report(b *Bundle) error {
	return WriteText(r.W, b)
}

// WriteParameters writes the parameter banner printed before a run starts.
func WriteParameters(w io.Writer, cfg multistart.Config) error {
	bw := bufio.NewWriter(w)
	p := cfg.Energy

	fmt.Fprintln(bw)
	fmt.Fprintln(bw, "---PARAMETERS---")
	fmt.Fprintln(bw)
	fmt.Fprintf(bw, "n = %d\n", p.N)
	fmt.Fprintf(bw, "a = %g\n", p.A)
	for i, l := range p.Lambda {
		fmt.Fprintf(bw, "lambda_%d = %g\n", i+1, l)
	}
	fmt.Fprintln(bw)
	fmt.Fprintf(bw, "m = %d\n", cfg.Attempts)
	fmt.Fprintf(bw, "epochs = %d\n", cfg.Epochs)
	fmt.Fprintf(bw, "items = %d\n", cfg.Items)
	fmt.Fprintf(bw, "learning_rate = %g\n", cfg.LearningRate)
	fmt.Fprintf(bw, "seed = %d\n", cfg.Seed)
	fmt.Fprintf(bw, "gradient = %s\n", cfg.Gradient)
	fmt.Fprintf(bw, "clamp_arccos = %t\n", p.ClampArccos)
	return bw.Flush()
}

// WriteAttempt writes the one-line summary of a finished attempt.
func WriteAttempt(w io.Writer, rec multistart.AttemptRecord) error {
	e := rec.Energy
	_, err := fmt.Fprintf(w,
		"Attempt: %d - total_energy: %g - ridge_energy: %g - constraint_1: %g - constraint_2: %g - constraint_3: %g - constraint_4: %g\n",
		rec.Attempt, e.Total, e.Ridge, e.Constr1, e.Constr2, e.Constr3, e.Constr4)
	return err
}

// WriteText writes the attempt table followed by the results section.
func WriteText(w io.Writer, b *Bundle) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintln(bw)
	fmt.Fprintln(bw, "---ATTEMPTS---")
	fmt.Fprintln(bw)
	for _, rec := range b.Records {
		if err := WriteAttempt(bw, rec); err != nil {
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return WriteResults(w, b)
}

// WriteResults writes the best configuration with its tangents and
// vertices.
func WriteResults(w io.Writer, b *Bundle) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintln(bw)
	fmt.Fprintln(bw, "---RESULTS---")
	fmt.Fprintln(bw)
	fmt.Fprintf(bw, "Best theta: %s\n", formatFloats(b.Shape.Theta))
	fmt.Fprintf(bw, "and best phi: %s\n", formatFloats(b.Shape.Phi))
	fmt.Fprintf(bw, "with Total Energy: %g\n", b.Best.Energy.Total)
	fmt.Fprintf(bw, "with Ridge Energy: %g\n", b.Best.Energy.Ridge)
	fmt.Fprintf(bw, "found at attempt: %d\n", b.BestAttempt)
	fmt.Fprintf(bw, "attempt energies: mean %g, std %g, min %g, max %g\n",
		b.Summary.Mean, b.Summary.StdDev, b.Summary.Min, b.Summary.Max)

	fmt.Fprintln(bw)
	fmt.Fprintln(bw, "Tangent vectors")
	writeVecs(bw, "t", b.Shape.Tangents)

	fmt.Fprintln(bw)
	fmt.Fprintln(bw, "Vertices")
	writeVecs(bw, "", b.Shape.Vertices)

	return bw.Flush()
}

func writeVecs(w io.Writer, prefix string, vs []r3.Vec) {
	xs := make([]float64, len(vs))
	ys := make([]float64, len(vs))
	zs := make([]float64, len(vs))
	for i, v := range vs {
		xs[i], ys[i], zs[i] = v.X, v.Y, v.Z
	}
	if prefix != "" {
		prefix += "_"
	}
	fmt.Fprintf(w, "%sx_list: %s\n", prefix, formatFloats(xs))
	fmt.Fprintf(w, "%sy_list: %s\n", prefix, formatFloats(ys))
	fmt.Fprintf(w, "%sz_list: %s\n", prefix, formatFloats(zs))
}

func formatFloats(vs []float64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = fmt.Sprintf("%.8g", v)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
