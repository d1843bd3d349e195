package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/copyleftdev/ridge/internal/errors"
	"github.com/copyleftdev/ridge/internal/logging"
	"github.com/copyleftdev/ridge/internal/optimization/multistart"
	"github.com/copyleftdev/ridge/internal/report"
)

var runFlags struct {
	n            int
	a            float64
	lambda       []float64
	attempts     int
	epochs       int
	items        int
	learningRate float64
	seed         int64
	gradient     string
	noClamp      bool
	outputDir    string
	logDir       string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one multi-start optimization",
	Long: `Runs every attempt, prints one line per attempt and the best shape found,
and writes the run's JSON and CSV artifacts. Flags override the configuration
file and ELASTICA_* environment variables.`,
	RunE: runOptimization,
}

func init() {
	f := runCmd.Flags()
	f.IntVar(&runFlags.n, "n", 10, "Number of rod segments (at least 4)")
	f.Float64Var(&runFlags.a, "a", 0.6, "Clamp ratio: target height of the free end")
	f.Float64SliceVar(&runFlags.lambda, "lambda", []float64{30, 10, 10, 10}, "Constraint weights lambda_1..lambda_4")
	f.IntVar(&runFlags.attempts, "attempts", 50, "Number of random restarts (m)")
	f.IntVar(&runFlags.epochs, "epochs", 40, "Update-rule resets per attempt")
	f.IntVar(&runFlags.items, "items", 500, "Gradient steps per epoch")
	f.Float64Var(&runFlags.learningRate, "lr", 0.01, "Learning rate")
	f.Int64Var(&runFlags.seed, "seed", 123, "Random seed")
	f.StringVar(&runFlags.gradient, "gradient", multistart.GradientAnalytic, "Gradient oracle: analytic, central, forward")
	f.BoolVar(&runFlags.noClamp, "no-clamp", false, "Do not clamp turning cosines into [-1, 1] before arccos")
	f.StringVar(&runFlags.outputDir, "output-dir", "", "Artifact directory (default from configuration)")
	f.StringVar(&runFlags.logDir, "log-dir", "logs", "Directory receiving a copy of the console output")

	rootCmd.AddCommand(runCmd)
}

// runConfig merges the explicitly set flags into the configured run.
func runConfig(cmd *cobra.Command) (multistart.Config, error) {
	cfg := appCfg.Elastica.Run()
	f := cmd.Flags()

	if f.Changed("n") {
		cfg.Energy.N = runFlags.n
	}
	if f.Changed("a") {
		cfg.Energy.A = runFlags.a
	}
	if f.Changed("lambda") {
		if len(runFlags.lambda) != len(cfg.Energy.Lambda) {
			return cfg, fmt.Errorf("--lambda needs %d values, got %d", len(cfg.Energy.Lambda), len(runFlags.lambda))
		}
		copy(cfg.Energy.Lambda[:], runFlags.lambda)
	}
	if f.Changed("attempts") {
		cfg.Attempts = runFlags.attempts
	}
	if f.Changed("epochs") {
		cfg.Epochs = runFlags.epochs
	}
	if f.Changed("items") {
		cfg.Items = runFlags.items
	}
	if f.Changed("lr") {
		cfg.LearningRate = runFlags.learningRate
	}
	if f.Changed("seed") {
		cfg.Seed = runFlags.seed
	}
	if f.Changed("gradient") {
		cfg.Gradient = runFlags.gradient
	}
	if f.Changed("no-clamp") {
		cfg.Energy.ClampArccos = !runFlags.noClamp
	}

	return cfg, cfg.Validate()
}

// attemptPrinter writes one line per finished attempt as the run goes.
type attemptPrinter struct {
	multistart.BaseObserver
	w io.Writer
}

func (p attemptPrinter) AttemptFinished(rec multistart.AttemptRecord) {
	report.WriteAttempt(p.w, rec)
}

func runOptimization(cmd *cobra.Command, args []string) error {
	cfg, err := runConfig(cmd)
	if err != nil {
		return err
	}

	outputDir := appCfg.Optimization.OutputDir
	if runFlags.outputDir != "" {
		outputDir = runFlags.outputDir
	}

	name := report.ExperimentName(os.Args[0], cfg.Energy.N, cfg.Energy.A, time.Now())
	runLog, err := report.OpenRunLog(runFlags.logDir, name)
	if err != nil {
		return err
	}
	defer runLog.Close()
	out := io.MultiWriter(cmd.OutOrStdout(), runLog)

	if err := report.WriteParameters(out, cfg); err != nil {
		return err
	}
	fmt.Fprintln(out)

	optimizer, err := multistart.NewOptimizer(cfg,
		multistart.WithLogger(logging.NewZapLogger(logger)),
		multistart.WithObserver(attemptPrinter{w: out}),
	)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting optimization", map[string]interface{}{
		"experiment": name,
		"attempts":   cfg.Attempts,
		"epochs":     cfg.Epochs,
		"items":      cfg.Items,
	})
	start := time.Now()
	history, err := optimizer.Optimize(ctx)
	if err != nil {
		if len(history.Records) == 0 {
			return errors.Wrap(err, "optimization stopped before the first attempt finished")
		}
		logger.Warn("Optimization interrupted, reporting finished attempts", map[string]interface{}{
			"finished": len(history.Records),
			"error":    err.Error(),
		})
	}

	bundle, err := report.NewBundle(name, cfg, history)
	if err != nil {
		return err
	}
	if err := report.WriteResults(out, bundle); err != nil {
		return err
	}

	paths, err := report.SaveArtifacts(outputDir, bundle)
	if err != nil {
		return err
	}

	logger.Info("Optimization finished", map[string]interface{}{
		"experiment":   name,
		"duration":     time.Since(start).String(),
		"best_attempt": bundle.BestAttempt,
		"total_energy": bundle.Best.Energy.Total,
		"artifacts":    paths,
		"run_log":      runLog.Name(),
	})
	return nil
}
