package executor

import (
	"context"
	"time"

	"github.com/aryankumar/taskpool/internal/util"
	"github.com/aryankumar/taskpool/internal/wrapper"
)

// Built-in defaults for unset tunables
const (
	DefaultMinThreads  = 1
	DefaultMaxThreads  = 16
	DefaultIdleTimeout = 30 * time.Minute
	DefaultQueueSize   = 100
	DefaultOverflow    = CallerRuns
)

// Options are the tunables a Pool is built from
type Options struct {
	// MinThreads is the number of workers kept alive while idle
	MinThreads int `json:"min_threads" yaml:"min-threads"`

	// MaxThreads caps the number of workers. Zero disables the pool and every
	// task runs synchronously on the submitting goroutine.
	MaxThreads int `json:"max_threads" yaml:"max-threads"`

	// IdleTimeout is how long a worker above MinThreads waits for work before exiting
	IdleTimeout time.Duration `json:"timeout" yaml:"timeout"`

	// QueueSize bounds the backlog. Zero means direct handoff to a free worker.
	QueueSize int `json:"queue_size" yaml:"queue-size"`

	// Overflow is applied when the queue is full and MaxThreads workers are busy
	Overflow OverflowPolicy `json:"rejected_handler" yaml:"rejected-handler"`
}

// DefaultOptions returns the built-in defaults
func DefaultOptions() Options {
	return Options{
		MinThreads:  DefaultMinThreads,
		MaxThreads:  DefaultMaxThreads,
		IdleTimeout: DefaultIdleTimeout,
		QueueSize:   DefaultQueueSize,
		Overflow:    DefaultOverflow,
	}
}

// Synchronous reports whether these options disable the worker pool
func (o Options) Synchronous() bool {
	return o.MaxThreads == 0
}

// Validate checks the tunables and returns a *util.ValidationError on the
// first violation
func (o Options) Validate() error {
	if o.MinThreads < 0 {
		return util.NewValidationError("min-threads", o.MinThreads, "must be >= 0")
	}
	if o.MaxThreads < 0 {
		return util.NewValidationError("max-threads", o.MaxThreads, "must be >= 0")
	}
	if o.MaxThreads != 0 && o.MinThreads > o.MaxThreads {
		return util.NewValidationError("min-threads", o.MinThreads, "must not exceed max-threads")
	}
	if o.QueueSize < 0 {
		return util.NewValidationError("queue-size", o.QueueSize, "must be >= 0")
	}
	if o.MaxThreads != 0 && o.IdleTimeout <= 0 {
		return util.NewValidationError("timeout", o.IdleTimeout, "must be positive")
	}
	if !o.Overflow.Valid() {
		return util.NewValidationError("rejected-handler", int(o.Overflow), "unknown policy")
	}
	return nil
}

// Option customizes how a Pool wraps and runs its tasks
type Option func(*settings)

type settings struct {
	delegation bool
	sink       wrapper.Sink
	wrappers   []wrapper.Wrapper
	baseCtx    context.Context
}

func defaultSettings() settings {
	return settings{
		delegation: true,
		baseCtx:    context.Background(),
	}
}

// WithoutDelegation stops the pool from propagating the submitter's ambient
// scope to workers
func WithoutDelegation() Option {
	return func(s *settings) {
		s.delegation = false
	}
}

// WithSink installs a timing wrapper reporting to sink
func WithSink(sink wrapper.Sink) Option {
	return func(s *settings) {
		s.sink = sink
	}
}

// WithWrappers appends extra wrappers after the built-in ones
func WithWrappers(ws ...wrapper.Wrapper) Option {
	return func(s *settings) {
		s.wrappers = append(s.wrappers, ws...)
	}
}

// WithBaseContext sets the parent context of every worker goroutine
func WithBaseContext(ctx context.Context) Option {
	return func(s *settings) {
		if ctx != nil {
			s.baseCtx = ctx
		}
	}
}
