package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/copyleftdev/ridge/internal/errors"
	"github.com/copyleftdev/ridge/internal/logging"
	"github.com/copyleftdev/ridge/internal/optimization/multistart"
	"github.com/copyleftdev/ridge/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve optimizations over HTTP and JSON-RPC",
	RunE:  serve,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "HTTP port (default from configuration)")
	rootCmd.AddCommand(serveCmd)
}

// newRouter builds the HTTP handler: middleware, health and metrics
// endpoints, and the optimization API.
func newRouter(srv *server.Server) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.Middleware(logger))
	r.Use(errors.RecoveryMiddleware(logger))
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		logging.FromContext(r.Context()).Debug("Health check")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	srv.RegisterRoutes(r)
	return r
}

func serve(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("port") {
		appCfg.HTTP.Port = servePort
	}

	metrics, err := multistart.NewMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	srv := server.NewServer(appCfg, logger, server.WithObserver(metrics))
	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", appCfg.HTTP.Port),
		Handler:      newRouter(srv),
		ReadTimeout:  appCfg.HTTP.ReadTimeout,
		WriteTimeout: appCfg.HTTP.WriteTimeout,
		IdleTimeout:  appCfg.HTTP.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", map[string]interface{}{
			"address": httpServer.Addr,
			"workers": appCfg.Optimization.WorkerCount,
		})
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		if err != nil {
			srv.Close()
			return fmt.Errorf("failed to start server: %w", err)
		}
	}

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), appCfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", map[string]interface{}{"error": err.Error()})
	}
	if err := srv.Close(); err != nil {
		logger.Error("error closing server resources", map[string]interface{}{"error": err.Error()})
	}

	logger.Info("Server stopped")
	return nil
}
