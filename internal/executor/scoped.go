package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aryankumar/taskpool/internal/util"
)

// Service is the part of an executor the scoped wrappers need
type Service interface {
	// Shutdown stops accepting work without waiting
	Shutdown()
	// AwaitTermination waits up to d for running work to finish
	AwaitTermination(ctx context.Context, d time.Duration) (bool, error)
	// String identifies the service in errors and logs
	String() string
}

var _ Service = (*Pool)(nil)

// ShutdownScope releases a service with a best-effort shutdown.
//
//	scope := executor.AutoShutdown(pool)
//	defer scope.Close()
type ShutdownScope struct {
	svc  Service
	once sync.Once
}

// AutoShutdown wraps svc so that Close requests shutdown and returns at once
func AutoShutdown(svc Service) *ShutdownScope {
	return &ShutdownScope{svc: svc}
}

// Service returns the wrapped service
func (s *ShutdownScope) Service() Service {
	return s.svc
}

// Close requests shutdown without waiting for running tasks. It never fails.
func (s *ShutdownScope) Close() error {
	s.once.Do(s.svc.Shutdown)
	return nil
}

// TerminatingScope releases a service by shutting it down and waiting a
// bounded time for it to terminate.
//
//	scope := executor.AutoTerminate(pool, 30*time.Second, logger)
//	defer func() {
//	    if err := scope.Close(); err != nil {
//	        logger.Warn("pool still busy", "error", err)
//	    }
//	}()
type TerminatingScope struct {
	svc     Service
	timeout time.Duration
	logger  *slog.Logger

	once sync.Once
	err  error
}

// AutoTerminate wraps svc so that Close shuts it down and waits up to timeout
func AutoTerminate(svc Service, timeout time.Duration, logger *slog.Logger) *TerminatingScope {
	if logger == nil {
		logger = slog.Default()
	}
	return &TerminatingScope{
		svc:     svc,
		timeout: timeout,
		logger:  logger,
	}
}

// Service returns the wrapped service
func (s *TerminatingScope) Service() Service {
	return s.svc
}

// Timeout returns the configured wait bound
func (s *TerminatingScope) Timeout() time.Duration {
	return s.timeout
}

// Close is CloseContext with a background context
func (s *TerminatingScope) Close() error {
	return s.CloseContext(context.Background())
}

// CloseContext shuts the service down and waits for it to terminate.
//
// It returns an error matching util.ErrTimeout, naming the service and the
// timeout, if tasks are still running when the timeout elapses. If ctx is
// done first the wait is abandoned, logged at debug level and nil is
// returned. Only the first call does any work; later calls return the first
// call's result.
func (s *TerminatingScope) CloseContext(ctx context.Context) error {
	s.once.Do(func() {
		s.err = s.terminate(ctx)
	})
	return s.err
}

func (s *TerminatingScope) terminate(ctx context.Context) error {
	s.svc.Shutdown()

	terminated, err := s.svc.AwaitTermination(ctx, s.timeout)
	if err != nil {
		if util.IsInterrupted(err) {
			s.logger.Debug("interrupted while awaiting termination",
				"pool", s.svc.String(),
				"timeout", s.timeout,
				"error", err)
			return nil
		}
		return fmt.Errorf("awaiting termination of %s: %w", s.svc, err)
	}

	if !terminated {
		return fmt.Errorf("executor service %s did not shut down after %s: %w", s.svc, s.timeout, util.ErrTimeout)
	}
	return nil
}
