// Package threadpool binds a named pool to configuration, metrics and the
// process lifecycle.
//
// A Provider registers a start hook that resolves the pool's tunables and
// builds it with the timing wrapper installed, and a stop hook that shuts it
// down and waits up to the configured shutdown timeout.
package threadpool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aryankumar/taskpool/internal/config"
	"github.com/aryankumar/taskpool/internal/executor"
	"github.com/aryankumar/taskpool/internal/lifecycle"
	"github.com/aryankumar/taskpool/internal/metrics"
	"github.com/aryankumar/taskpool/internal/util"
	"github.com/aryankumar/taskpool/internal/wrapper"
)

// ErrNotStarted is returned when a pool is requested before its start hook ran
var ErrNotStarted = errors.New("thread pool not started")

// Option configures a Provider
type Option func(*Provider)

// WithLogger sets the logger handed to the pool
func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithSink reports task timings of the pool to sink
func WithSink(sink wrapper.Sink) Option {
	return func(p *Provider) {
		p.sink = sink
	}
}

// WithCollector exposes the pool's statistics through collector once started
func WithCollector(c *metrics.PoolCollector) Option {
	return func(p *Provider) {
		p.collector = c
	}
}

// WithPoolOptions passes extra options to executor.New
func WithPoolOptions(opts ...executor.Option) Option {
	return func(p *Provider) {
		p.poolOpts = append(p.poolOpts, opts...)
	}
}

// Provider owns one named pool for the lifetime of the process
type Provider struct {
	name      string
	cfg       *config.Manager
	logger    *slog.Logger
	sink      wrapper.Sink
	collector *metrics.PoolCollector
	poolOpts  []executor.Option

	mu   sync.RWMutex
	pool *executor.Pool
}

// NewProvider creates a provider for the pool called name and registers its
// start and stop hooks with lc
func NewProvider(name string, cfg *config.Manager, lc *lifecycle.Lifecycle, opts ...Option) *Provider {
	p := &Provider{
		name:   name,
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}

	hook := "thread-pool " + name
	lc.OnStart(hook, p.start)
	lc.OnStop(hook, p.stop)
	return p
}

// Name returns the pool name
func (p *Provider) Name() string {
	return p.name
}

// Get returns the pool, or nil before the start hook has run
func (p *Provider) Get() *executor.Pool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.pool
}

// Pool returns the pool, or ErrNotStarted before the start hook has run
func (p *Provider) Pool() (*executor.Pool, error) {
	if pool := p.Get(); pool != nil {
		return pool, nil
	}
	return nil, fmt.Errorf("%s: %w", p.name, ErrNotStarted)
}

func (p *Provider) start(ctx context.Context) error {
	opts, err := p.cfg.PoolOptions(p.name)
	if err != nil {
		return err
	}

	popts := append([]executor.Option{executor.WithBaseContext(context.WithoutCancel(ctx))}, p.poolOpts...)
	if p.sink != nil {
		popts = append(popts, executor.WithSink(p.sink))
	}

	pool, err := executor.New(p.name, opts, p.logger, popts...)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.pool = pool
	p.mu.Unlock()

	if p.collector != nil {
		p.collector.Add(pool)
	}

	p.logger.Info("thread pool started",
		"pool", p.name,
		"min_threads", opts.MinThreads,
		"max_threads", opts.MaxThreads,
		"queue_size", opts.QueueSize,
		"policy", opts.Overflow.String())
	return nil
}

func (p *Provider) stop(ctx context.Context) error {
	pool := p.Get()
	if pool == nil {
		return nil
	}

	timeout := p.cfg.ShutdownTimeout()
	err := executor.AutoTerminate(pool, timeout, p.logger).CloseContext(ctx)
	if util.IsTimeout(err) {
		p.logger.Warn("thread pool still running after shutdown timeout",
			"pool", p.name,
			"timeout", timeout,
			"active", pool.ActiveCount(),
			"queued", pool.QueueSize())
		return err
	}
	if err != nil {
		return err
	}

	p.logger.Info("thread pool stopped", "pool", p.name, "completed", pool.CompletedTaskCount())
	return nil
}
