package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/ridge/internal/optimization/multistart"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, multistart.DefaultConfig(), cfg.Elastica.Run())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("ELASTICA_N", "12")
	t.Setenv("ELASTICA_A", "0.75")
	t.Setenv("ELASTICA_LAMBDA_4", "5")
	t.Setenv("ELASTICA_GRADIENT", "central")
	t.Setenv("ELASTICA_CLAMP_ARCCOS", "false")
	t.Setenv("OPT_WORKER_COUNT", "0")

	cfg, err := Load()
	require.NoError(t, err)

	run := cfg.Elastica.Run()
	assert.Equal(t, 12, run.Energy.N)
	assert.Equal(t, 0.75, run.Energy.A)
	assert.Equal(t, [4]float64{30, 10, 10, 5}, run.Energy.Lambda)
	assert.Equal(t, "central", run.Gradient)
	assert.False(t, run.Energy.ClampArccos)
	assert.Equal(t, 1, cfg.Optimization.WorkerCount)
}

func TestLoadInvalidEnvironment(t *testing.T) {
	t.Setenv("ELASTICA_N", "ten")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadFileOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
logging:
  level: debug
elastica:
  n: 6
  attempts: 3
  seed: 7
`), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 6, cfg.Elastica.N)
	assert.Equal(t, 3, cfg.Elastica.Attempts)
	assert.Equal(t, int64(7), cfg.Elastica.Seed)
	assert.Equal(t, 0.6, cfg.Elastica.A, "keys missing from the file keep their defaults")
	assert.NoError(t, cfg.Elastica.Run().Validate())
}

func TestLoadFileErrors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("elastica: [1, 2"), 0o644))
	_, err = LoadFile(bad)
	assert.Error(t, err)

	cfg, err := LoadFile("")
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Elastica.N)
}
