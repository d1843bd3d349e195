package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/ridge/internal/config"
	"github.com/copyleftdev/ridge/internal/logging"
	"github.com/copyleftdev/ridge/internal/server"
)

func TestRunConfigFlagsOverrideConfiguration(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)
	cfg.Elastica.Attempts = 7
	appCfg = cfg

	require.NoError(t, runCmd.ParseFlags([]string{
		"--n", "6",
		"--lambda", "1,2,3,4",
		"--no-clamp",
		"--gradient", "central",
	}))

	run, err := runConfig(runCmd)
	require.NoError(t, err)
	assert.Equal(t, 6, run.Energy.N)
	assert.Equal(t, [4]float64{1, 2, 3, 4}, run.Energy.Lambda)
	assert.False(t, run.Energy.ClampArccos)
	assert.Equal(t, "central", run.Gradient)
	assert.Equal(t, 7, run.Attempts, "unset flags keep the configured value")
	assert.Equal(t, cfg.Elastica.A, run.Energy.A)
}

func TestRouter(t *testing.T) {
	logger = logging.New(logging.FatalLevel, io.Discard)
	cfg, err := config.Load()
	require.NoError(t, err)

	srv := server.NewServer(cfg, logger)
	defer srv.Close()
	r := newRouter(srv)

	tests := []struct {
		method string
		path   string
		code   int
	}{
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/api/v1/status/unknown", http.StatusNotFound},
		{http.MethodGet, "/missing", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.code, rr.Code)
		})
	}
}
