// Package server exposes elastica optimizations as background jobs over
// HTTP and JSON-RPC 2.0.
package server

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/copyleftdev/ridge/internal/config"
	"github.com/copyleftdev/ridge/internal/errors"
	"github.com/copyleftdev/ridge/internal/logging"
	"github.com/copyleftdev/ridge/internal/optimization"
	"github.com/copyleftdev/ridge/internal/optimization/multistart"
)

// Logger defines the logging interface used by the server
// This allows us to be flexible with our logging implementation
type Logger interface {
	Debug(msg string, fields ...map[string]interface{})
	Info(msg string, fields ...map[string]interface{})
	Warn(msg string, fields ...map[string]interface{})
	Error(msg string, fields ...map[string]interface{})
	Fatal(msg string, fields ...map[string]interface{})
	WithFields(fields map[string]interface{}) *logging.Logger
}

// JSON-RPC 2.0 error codes.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
)

// Server implements the HTTP and JSON-RPC server for the optimization service.
// It manages optimization jobs and provides endpoints to start, monitor, and cancel them.
type Server struct {
	cfg       *config.Config
	logger    Logger
	zap       *zap.Logger
	observers []multistart.Observer

	// workers bounds the number of jobs running at once.
	workers chan struct{}
	wg      sync.WaitGroup

	optimizations   map[string]*OptimizationState
	optimizationsMu sync.RWMutex // Protects the optimizations map and its states
}

// Option configures a Server.
type Option func(*Server)

// WithObserver attaches obs to every job, for example the shared
// Prometheus metrics.
func WithObserver(obs multistart.Observer) Option {
	return func(s *Server) { s.observers = append(s.observers, obs) }
}

// NewServer creates a new server instance with the given config and logger
func NewServer(cfg *config.Config, logger Logger, opts ...Option) *Server {
	workers := cfg.Optimization.WorkerCount
	if workers < 1 {
		workers = 1
	}

	s := &Server{
		cfg:           cfg,
		logger:        logger,
		zap:           logging.NewZapLogger(logger.WithFields(map[string]interface{}{"component": "optimizer"})),
		workers:       make(chan struct{}, workers),
		optimizations: make(map[string]*OptimizationState),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) RegisterRoutes(r chi.Router) {
	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/optimize", s.handleOptimize)
		r.Get("/status/{id}", s.handleStatus)
		r.Delete("/optimization/{id}", s.handleCancel)
	})

	// JSON-RPC 2.0 endpoint
	r.Post("/rpc", s.handleJSONRPC)
}

type rpcRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      interface{}       `json:"id"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params,omitempty"`
}

type idParams struct {
	OptimizationID string `json:"optimization_id"`
}

// handleJSONRPC handles JSON-RPC 2.0 requests
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	var request rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.respondWithError(w, codeParseError, "Parse error", nil)
		return
	}

	if request.JSONRPC != "2.0" {
		s.respondWithError(w, codeInvalidRequest, "Invalid Request", request.ID)
		return
	}

	var result interface{}
	var err error

	switch request.Method {
	case "optimization.start":
		var cfg multistart.Config
		if cfg, err = s.decodeConfig(firstParam(request.Params)); err == nil {
			result, err = s.start(cfg)
		}
	case "optimization.status":
		var id string
		if id, err = decodeID(request.Params); err == nil {
			result, err = s.status(id)
		}
	case "optimization.cancel":
		var id string
		if id, err = decodeID(request.Params); err == nil {
			if err = s.cancel(id); err == nil {
				result = map[string]string{"status": "cancellation requested"}
			}
		}
	default:
		s.respondWithError(w, codeMethodNotFound, "Method not found", request.ID)
		return
	}

	if err != nil {
		code := codeServerError
		if errors.Is(err, ErrInvalidRequest) || errors.Is(err, optimization.ErrInvalidConfig) {
			code = codeInvalidParams
		}
		s.respondWithError(w, code, err.Error(), request.ID)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      request.ID,
		"result":  result,
	})
}

func firstParam(params []json.RawMessage) json.RawMessage {
	if len(params) == 0 {
		return nil
	}
	return params[0]
}

func decodeID(params []json.RawMessage) (string, error) {
	raw := firstParam(params)
	if raw == nil {
		return "", errors.Wrap(ErrInvalidRequest, "missing required parameters")
	}
	var p idParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return "", errors.Wrap(ErrInvalidRequest, "invalid parameter format, expected object")
	}
	if p.OptimizationID == "" {
		return "", errors.Wrap(ErrInvalidRequest, "optimization_id is required")
	}
	return p.OptimizationID, nil
}

// respondWithError sends a JSON-RPC 2.0 error response
func (s *Server) respondWithError(w http.ResponseWriter, code int, message string, id interface{}) {
	s.logger.Error("Request error", map[string]interface{}{
		"status":  code,
		"message": message,
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"jsonrpc": "2.0",
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
		"id": id,
	})
}

// Close cancels every job and waits for their goroutines to return.
func (s *Server) Close() error {
	s.optimizationsMu.RLock()
	for _, opt := range s.optimizations {
		opt.CancelFunc()
	}
	s.optimizationsMu.RUnlock()

	s.wg.Wait()
	return nil
}

// handleOptimize handles POST /api/v1/optimize. The body is a partial
// optimizer configuration laid over the server's defaults.
func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrap(ErrInvalidRequest, err.Error()))
		return
	}

	cfg, err := s.decodeConfig(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := s.start(cfg)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusAccepted, result)
}

// handleStatus handles GET /api/v1/status/{id}.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	result, err := s.status(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleCancel handles DELETE /api/v1/optimization/{id}.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if err := s.cancel(chi.URLParam(r, "id")); err != nil {
		status := http.StatusBadRequest
		switch {
		case errors.Is(err, ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, ErrFinished):
			status = http.StatusConflict
		}
		writeError(w, status, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "cancellation requested",
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]interface{}{
		"error": err.Error(),
	})
}
