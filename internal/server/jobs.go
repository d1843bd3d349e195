package server

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/copyleftdev/ridge/internal/errors"
	"github.com/copyleftdev/ridge/internal/optimization/multistart"
	"github.com/copyleftdev/ridge/internal/report"
)

var (
	// ErrNotFound is returned for an unknown optimization id.
	ErrNotFound = errors.New("optimization not found").WithComponent("server")
	// ErrFinished is returned when cancelling a job that already ended.
	ErrFinished = errors.New("optimization already finished").WithComponent("server")
	// ErrInvalidRequest is returned for malformed start parameters.
	ErrInvalidRequest = errors.New("invalid request").WithComponent("server")
)

// Status is the lifecycle state of an optimization job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

func (s Status) terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// OptimizationState tracks one job. Fields are guarded by the server's
// optimizationsMu.
type OptimizationState struct {
	ID          string
	Status      Status
	Config      multistart.Config
	StartTime   time.Time
	EndTime     *time.Time
	LastUpdated time.Time
	Records     []multistart.AttemptRecord
	Bundle      *report.Bundle
	Err         error
	CancelFunc  context.CancelFunc
}

// StatusResponse is the public view of a job.
type StatusResponse struct {
	ID          string                     `json:"optimization_id"`
	Status      Status                     `json:"status"`
	Progress    float64                    `json:"progress"`
	StartTime   time.Time                  `json:"start_time"`
	EndTime     *time.Time                 `json:"end_time,omitempty"`
	LastUpdated time.Time                  `json:"last_update"`
	Records     []multistart.AttemptRecord `json:"records"`
	Best        *multistart.AttemptRecord  `json:"best,omitempty"`
	Result      *report.Bundle             `json:"result,omitempty"`
	Error       string                     `json:"error,omitempty"`
}

// StartResponse is returned when a job is accepted.
type StartResponse struct {
	ID     string `json:"optimization_id"`
	Status Status `json:"status"`
}

// decodeConfig overlays raw, a partial optimizer configuration in JSON,
// onto the server's default run configuration.
func (s *Server) decodeConfig(raw json.RawMessage) (multistart.Config, error) {
	cfg := s.cfg.Elastica.Run()
	if len(raw) == 0 || string(raw) == "null" {
		return cfg, nil
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return cfg, errors.Wrap(ErrInvalidRequest, err.Error())
	}
	return cfg, nil
}

// start validates cfg and queues a job for it.
func (s *Server) start(cfg multistart.Config) (StartResponse, error) {
	if err := cfg.Validate(); err != nil {
		return StartResponse{}, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	now := time.Now()
	state := &OptimizationState{
		ID:          uuid.NewString(),
		Status:      StatusPending,
		Config:      cfg,
		StartTime:   now,
		LastUpdated: now,
		CancelFunc:  cancel,
	}

	s.optimizationsMu.Lock()
	s.optimizations[state.ID] = state
	s.optimizationsMu.Unlock()

	s.logger.Info("Optimization queued", map[string]interface{}{
		"optimization_id": state.ID,
		"n":               cfg.Energy.N,
		"a":               cfg.Energy.A,
		"attempts":        cfg.Attempts,
	})

	s.wg.Add(1)
	go s.runOptimization(ctx, state)

	return StartResponse{ID: state.ID, Status: StatusPending}, nil
}

// runOptimization waits for a worker slot and runs the job to completion
// or cancellation.
func (s *Server) runOptimization(ctx context.Context, state *OptimizationState) {
	defer s.wg.Done()
	defer state.CancelFunc()

	select {
	case s.workers <- struct{}{}:
		defer func() { <-s.workers }()
	case <-ctx.Done():
		s.finish(state, nil, ctx.Err())
		return
	}

	s.optimizationsMu.Lock()
	if state.Status == StatusPending {
		state.Status = StatusRunning
		state.LastUpdated = time.Now()
	}
	s.optimizationsMu.Unlock()

	opts := []multistart.Option{
		multistart.WithLogger(s.zap.With(zap.String("optimization_id", state.ID))),
		multistart.WithObserver(&jobObserver{s: s, state: state}),
	}
	for _, obs := range s.observers {
		opts = append(opts, multistart.WithObserver(obs))
	}

	opt, err := multistart.NewOptimizer(state.Config, opts...)
	if err != nil {
		s.finish(state, nil, err)
		return
	}

	history, err := opt.Optimize(ctx)
	if err != nil {
		s.finish(state, nil, err)
		return
	}

	p := state.Config.Energy
	bundle, err := report.NewBundle(report.ExperimentName("ridge", p.N, p.A, state.StartTime), state.Config, history)
	s.finish(state, bundle, err)
}

// finish records the terminal state of a job. A job cancelled through the
// API keeps its cancelled status.
func (s *Server) finish(state *OptimizationState, bundle *report.Bundle, err error) {
	s.optimizationsMu.Lock()
	defer s.optimizationsMu.Unlock()

	now := time.Now()
	state.LastUpdated = now
	if state.EndTime == nil {
		state.EndTime = &now
	}
	if state.Status.terminal() {
		return
	}

	switch {
	case errors.Is(err, context.Canceled):
		state.Status = StatusCancelled
	case err != nil:
		state.Status = StatusFailed
		state.Err = err
		s.logger.Error("Optimization failed", map[string]interface{}{
			"optimization_id": state.ID,
			"error":           err.Error(),
		})
	default:
		state.Status = StatusCompleted
		state.Bundle = bundle
		s.logger.Info("Optimization completed", map[string]interface{}{
			"optimization_id": state.ID,
			"best_attempt":    bundle.BestAttempt,
			"total_energy":    bundle.Best.Energy.Total,
		})
	}
}

// status returns a snapshot of the job with the given id.
func (s *Server) status(id string) (StatusResponse, error) {
	s.optimizationsMu.RLock()
	defer s.optimizationsMu.RUnlock()

	state, ok := s.optimizations[id]
	if !ok {
		return StatusResponse{}, ErrNotFound
	}

	resp := StatusResponse{
		ID:          state.ID,
		Status:      state.Status,
		StartTime:   state.StartTime,
		EndTime:     state.EndTime,
		LastUpdated: state.LastUpdated,
		Records:     append([]multistart.AttemptRecord(nil), state.Records...),
		Result:      state.Bundle,
	}
	if state.Config.Attempts > 0 {
		resp.Progress = float64(len(state.Records)) / float64(state.Config.Attempts)
	}
	history := multistart.RunHistory{Records: resp.Records}
	if best, ok := history.Best(); ok {
		resp.Best = &best
	}
	if state.Err != nil {
		resp.Error = state.Err.Error()
	}
	return resp, nil
}

// cancel stops the job with the given id. A running job stops after its
// current attempt.
func (s *Server) cancel(id string) error {
	s.optimizationsMu.Lock()
	defer s.optimizationsMu.Unlock()

	state, ok := s.optimizations[id]
	if !ok {
		return ErrNotFound
	}
	if state.Status.terminal() {
		return errors.Wrapf(ErrFinished, "status %s", state.Status)
	}

	state.CancelFunc()
	state.Status = StatusCancelled
	state.LastUpdated = time.Now()

	s.logger.Info("Optimization cancelled", map[string]interface{}{
		"optimization_id": id,
	})
	return nil
}

// jobObserver appends each finished attempt to the job's records.
type jobObserver struct {
	multistart.BaseObserver
	s     *Server
	state *OptimizationState
}

func (o *jobObserver) AttemptFinished(rec multistart.AttemptRecord) {
	o.s.optimizationsMu.Lock()
	defer o.s.optimizationsMu.Unlock()
	o.state.Records = append(o.state.Records, rec)
	o.state.LastUpdated = time.Now()
}
