package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/copyleftdev/ridge/internal/config"
	"github.com/copyleftdev/ridge/internal/logging"
)

var (
	configPath string
	logLevel   string
	logFormat  string

	appCfg *config.Config
	logger *logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "ridge",
	Short: "Multi-start search for minimal elastica shapes",
	Long: `Ridge minimizes the bending energy of a discretized elastic rod clamped
vertically at both ends, restarting an adaptive gradient method from many
random configurations and reporting the lowest-energy shape found.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadFile(configPath)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if cmd.Flags().Changed("log-level") {
			cfg.Logging.Level = logLevel
		}
		if cmd.Flags().Changed("log-format") {
			cfg.Logging.Format = logFormat
		}

		l, err := logging.NewLogger(&logging.Config{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
			Output: cfg.Logging.Output,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		appCfg = cfg
		logger = l.WithFields(map[string]interface{}{
			"service": "ridge",
			"command": cmd.Name(),
		})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML configuration file laid over the environment")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "json", "Log format (json, text)")
}
