// Package admin serves pool statistics and tunables over HTTP.
//
//	GET  /health
//	GET  /debug/pools          statistics of every pool
//	GET  /debug/pools/{name}   statistics of one pool
//	PUT  /debug/pools/{name}   change core size, max size or idle timeout
//	GET  /metrics              Prometheus exposition
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aryankumar/taskpool/internal/executor"
	"github.com/aryankumar/taskpool/internal/util"
)

const shutdownGrace = 5 * time.Second

// PoolSource resolves the pools the server manages
type PoolSource interface {
	Pools() []*executor.Pool
	Lookup(name string) (*executor.Pool, bool)
}

// UpdateRequest is the body of PUT /debug/pools/{name}. Nil fields are left
// unchanged.
type UpdateRequest struct {
	CorePoolSize *int    `json:"core_pool_size,omitempty"`
	MaxPoolSize  *int    `json:"max_pool_size,omitempty"`
	IdleTimeout  *string `json:"idle_timeout,omitempty"`
}

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error string `json:"error"`
}

// Server is the management HTTP surface
type Server struct {
	pools  PoolSource
	logger *slog.Logger
	router *mux.Router
}

// NewServer builds the router. A nil gatherer leaves /metrics unregistered.
func NewServer(pools PoolSource, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		pools:  pools,
		logger: logger,
		router: mux.NewRouter(),
	}

	s.router.HandleFunc("/health", s.getHealth).Methods("GET").Name("GetHealth")
	s.router.HandleFunc("/debug/pools", s.getPools).Methods("GET").Name("GetPools")
	s.router.HandleFunc("/debug/pools/{name}", s.getPool).Methods("GET").Name("GetPool")
	s.router.HandleFunc("/debug/pools/{name}", s.putPool).Methods("PUT").Name("PutPool")
	if gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods("GET").Name("GetMetrics")
	}

	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Serve serves on ln until ctx is done, then shuts down gracefully
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info("admin server listening", "address", ln.Addr().String())

	select {
	case err := <-errCh:
		return fmt.Errorf("admin server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down admin server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("admin server: %w", err)
	}
	s.logger.Info("admin server stopped")
	return nil
}

// GET /health
func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// GET /debug/pools
func (s *Server) getPools(w http.ResponseWriter, r *http.Request) {
	pools := s.pools.Pools()
	stats := make([]executor.Stats, 0, len(pools))
	for _, p := range pools {
		stats = append(stats, p.Stats())
	}
	s.writeJSON(w, http.StatusOK, stats)
}

// GET /debug/pools/{name}
func (s *Server) getPool(w http.ResponseWriter, r *http.Request) {
	pool, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, pool.Stats())
}

// PUT /debug/pools/{name}
func (s *Server) putPool(w http.ResponseWriter, r *http.Request) {
	pool, ok := s.lookup(w, r)
	if !ok {
		return
	}

	body := r.Body
	defer body.Close()

	var req UpdateRequest
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decoding request: %w", err))
		return
	}

	if err := apply(pool, req); err != nil {
		status := http.StatusInternalServerError
		if util.IsConfigError(err) {
			status = http.StatusBadRequest
		}
		s.writeError(w, status, err)
		return
	}

	s.logger.Info("pool tunables updated", "pool", pool.Name(), "remote", r.RemoteAddr)
	s.writeJSON(w, http.StatusOK, pool.Stats())
}

// apply changes the tunables named by req. The whole request is checked
// against the resulting core/max pair first, so a rejected request leaves
// the pool untouched. When both sizes change, the order is chosen so the
// intermediate state keeps core <= max.
func apply(pool *executor.Pool, req UpdateRequest) error {
	idle, err := checkUpdate(pool, req)
	if err != nil {
		return err
	}

	setCore := func() error {
		if req.CorePoolSize == nil {
			return nil
		}
		return pool.SetCorePoolSize(*req.CorePoolSize)
	}
	setMax := func() error {
		if req.MaxPoolSize == nil {
			return nil
		}
		return pool.SetMaxPoolSize(*req.MaxPoolSize)
	}

	first, second := setCore, setMax
	if req.CorePoolSize != nil && *req.CorePoolSize > pool.MaxPoolSize() {
		first, second = setMax, setCore
	}
	if err := first(); err != nil {
		return err
	}
	if err := second(); err != nil {
		return err
	}

	if req.IdleTimeout != nil {
		if err := pool.SetIdleTimeout(idle); err != nil {
			return err
		}
	}
	return nil
}

// checkUpdate validates req as a whole and returns the parsed idle timeout.
// A synchronous pool rejects every setter before changing anything, so it is
// left to the setters.
func checkUpdate(pool *executor.Pool, req UpdateRequest) (time.Duration, error) {
	var idle time.Duration
	if req.IdleTimeout != nil {
		d, err := time.ParseDuration(*req.IdleTimeout)
		if err != nil {
			return 0, util.NewValidationError("timeout", *req.IdleTimeout, err.Error())
		}
		if d <= 0 && !pool.IsSynchronous() {
			return 0, util.NewValidationError("timeout", d, "must be positive")
		}
		idle = d
	}
	if pool.IsSynchronous() {
		return idle, nil
	}

	core, maxSize := pool.CorePoolSize(), pool.MaxPoolSize()
	if req.CorePoolSize != nil {
		if *req.CorePoolSize < 0 {
			return 0, util.NewValidationError("min-threads", *req.CorePoolSize, "must be >= 0")
		}
		core = *req.CorePoolSize
	}
	if req.MaxPoolSize != nil {
		if *req.MaxPoolSize < 1 {
			return 0, util.NewValidationError("max-threads", *req.MaxPoolSize, "must be >= 1 on a running pool")
		}
		maxSize = *req.MaxPoolSize
	}
	if core > maxSize {
		if req.MaxPoolSize != nil {
			return 0, util.NewValidationError("max-threads", maxSize, "must not be below min-threads")
		}
		return 0, util.NewValidationError("min-threads", core, "must not exceed max-threads")
	}
	return idle, nil
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*executor.Pool, bool) {
	name := mux.Vars(r)["name"]
	pool, ok := s.pools.Lookup(name)
	if !ok {
		s.writeError(w, http.StatusNotFound, fmt.Errorf("pool %q not found", name))
		return nil, false
	}
	return pool, true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.logger.Debug("admin request failed", "status", status, "error", err)
	s.writeJSON(w, status, ErrorResponse{Error: err.Error()})
}
