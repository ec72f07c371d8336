// Package lifecycle runs named start and stop hooks in two phases.
//
// Start hooks run in registration order and the first failure aborts
// startup. Stop hooks run in reverse order; every hook runs even when an
// earlier one fails, and the failures are logged and returned together.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aryankumar/taskpool/internal/util"
)

// ErrAlreadyStarted is returned by a second call to Start
var ErrAlreadyStarted = errors.New("lifecycle already started")

// Hook is one unit of start or stop work
type Hook func(ctx context.Context) error

type namedHook struct {
	name string
	fn   Hook
}

// Lifecycle is a two-phase hook registrar
type Lifecycle struct {
	logger *slog.Logger

	mu      sync.Mutex
	starts  []namedHook
	stops   []namedHook
	started bool
	stopped bool
}

// New creates an empty lifecycle
func New(logger *slog.Logger) *Lifecycle {
	if logger == nil {
		logger = slog.Default()
	}
	return &Lifecycle{logger: logger}
}

// OnStart registers a hook for the start phase
func (l *Lifecycle) OnStart(name string, fn Hook) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.starts = append(l.starts, namedHook{name: name, fn: fn})
}

// OnStop registers a hook for the stop phase
func (l *Lifecycle) OnStop(name string, fn Hook) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stops = append(l.stops, namedHook{name: name, fn: fn})
}

// Start runs the start hooks in registration order and stops at the first
// error. Stop should still be called afterwards to release what did start.
func (l *Lifecycle) Start(ctx context.Context) error {
	l.mu.Lock()
	if l.started {
		l.mu.Unlock()
		return ErrAlreadyStarted
	}
	l.started = true
	hooks := append([]namedHook(nil), l.starts...)
	l.mu.Unlock()

	for _, h := range hooks {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("starting %s: %w", h.name, err)
		}

		start := time.Now()
		if err := h.fn(ctx); err != nil {
			l.logger.Error("start hook failed", "hook", h.name, "error", err)
			return fmt.Errorf("starting %s: %w", h.name, err)
		}
		l.logger.Debug("start hook completed", "hook", h.name, "duration", time.Since(start))
	}

	l.logger.Info("lifecycle started", "hooks", len(hooks))
	return nil
}

// Stop runs every stop hook in reverse registration order. Failures do not
// abort the sequence; they are logged and returned as a *util.MultiError.
// Only the first call runs the hooks.
func (l *Lifecycle) Stop(ctx context.Context) error {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return nil
	}
	l.stopped = true
	hooks := append([]namedHook(nil), l.stops...)
	l.mu.Unlock()

	errs := &util.MultiError{}
	for i := len(hooks) - 1; i >= 0; i-- {
		h := hooks[i]
		start := time.Now()
		if err := runStop(ctx, h); err != nil {
			l.logger.Error("stop hook failed", "hook", h.name, "error", err)
			errs.Add(fmt.Errorf("stopping %s: %w", h.name, err))
			continue
		}
		l.logger.Debug("stop hook completed", "hook", h.name, "duration", time.Since(start))
	}

	l.logger.Info("lifecycle stopped", "hooks", len(hooks), "failures", len(errs.Errors))
	return errs.ErrorOrNil()
}

// runStop converts a panicking stop hook into an error so the remaining
// hooks still run
func runStop(ctx context.Context, h namedHook) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("hook panicked: %v", r)
		}
	}()
	return h.fn(ctx)
}
