package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"gopkg.in/yaml.v3"

	"github.com/copyleftdev/ridge/internal/optimization/energy"
	"github.com/copyleftdev/ridge/internal/optimization/multistart"
)

type Config struct {
	Environment string `env:"ENV" envDefault:"development" yaml:"environment"`
	HTTP        struct {
		Port            int           `env:"HTTP_PORT" envDefault:"8080" yaml:"port"`
		ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s" yaml:"read_timeout"`
		WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s" yaml:"write_timeout"`
		IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s" yaml:"idle_timeout"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s" yaml:"shutdown_timeout"`
	} `yaml:"http"`
	Logging struct {
		Level  string `env:"LOG_LEVEL" envDefault:"info" yaml:"level"`
		Format string `env:"LOG_FORMAT" envDefault:"json" yaml:"format"`
		Output string `env:"LOG_OUTPUT" envDefault:"stderr" yaml:"output"`
	} `yaml:"logging"`
	Optimization struct {
		WorkerCount int    `env:"OPT_WORKER_COUNT" envDefault:"2" yaml:"worker_count"`
		OutputDir   string `env:"OPT_OUTPUT_DIR" envDefault:"." yaml:"output_dir"`
	} `yaml:"optimization"`
	Elastica Elastica `yaml:"elastica"`
}

// Elastica holds the parameters of one optimization run.
type Elastica struct {
	N            int     `env:"ELASTICA_N" envDefault:"10" yaml:"n"`
	A            float64 `env:"ELASTICA_A" envDefault:"0.6" yaml:"a"`
	Lambda1      float64 `env:"ELASTICA_LAMBDA_1" envDefault:"30" yaml:"lambda_1"`
	Lambda2      float64 `env:"ELASTICA_LAMBDA_2" envDefault:"10" yaml:"lambda_2"`
	Lambda3      float64 `env:"ELASTICA_LAMBDA_3" envDefault:"10" yaml:"lambda_3"`
	Lambda4      float64 `env:"ELASTICA_LAMBDA_4" envDefault:"10" yaml:"lambda_4"`
	Attempts     int     `env:"ELASTICA_ATTEMPTS" envDefault:"50" yaml:"attempts"`
	Epochs       int     `env:"ELASTICA_EPOCHS" envDefault:"40" yaml:"epochs"`
	Items        int     `env:"ELASTICA_ITEMS" envDefault:"500" yaml:"items"`
	LearningRate float64 `env:"ELASTICA_LEARNING_RATE" envDefault:"0.01" yaml:"learning_rate"`
	Seed         int64   `env:"ELASTICA_SEED" envDefault:"123" yaml:"seed"`
	Gradient     string  `env:"ELASTICA_GRADIENT" envDefault:"analytic" yaml:"gradient"`
	ClampArccos  bool    `env:"ELASTICA_CLAMP_ARCCOS" envDefault:"true" yaml:"clamp_arccos"`
}

// Run converts the section into an optimizer configuration.
func (e Elastica) Run() multistart.Config {
	return multistart.Config{
		Energy: energy.Params{
			N:           e.N,
			A:           e.A,
			Lambda:      [4]float64{e.Lambda1, e.Lambda2, e.Lambda3, e.Lambda4},
			ClampArccos: e.ClampArccos,
		},
		Attempts:     e.Attempts,
		Epochs:       e.Epochs,
		Items:        e.Items,
		LearningRate: e.LearningRate,
		Seed:         e.Seed,
		Gradient:     e.Gradient,
	}
}

func Load() (*Config, error) {
	cfg := &Config{}

	// Parse environment variables
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	// Set default logging level based on environment
	if cfg.Environment == "development" && cfg.Logging.Level == "" {
		cfg.Logging.Level = "debug"
	}

	if cfg.Optimization.WorkerCount < 1 {
		cfg.Optimization.WorkerCount = 1
	}

	return cfg, nil
}

// LoadFile loads the environment configuration and overlays the YAML file
// at path. Keys absent from the file keep their environment value.
func LoadFile(path string) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return cfg, nil
}
