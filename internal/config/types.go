package config

import (
	"time"

	"github.com/aryankumar/taskpool/internal/executor"
)

// Config represents the taskpool configuration file structure
type Config struct {
	// ThreadPool holds the worker pool tunables
	ThreadPool ThreadPoolConfig `mapstructure:"thread-pool" yaml:"thread-pool" json:"thread_pool"`

	// Admin configures the management HTTP surface
	Admin AdminConfig `mapstructure:"admin" yaml:"admin,omitempty" json:"admin,omitempty"`

	// Output contains default settings for CLI rendering
	Output OutputConfig `mapstructure:"output" yaml:"output,omitempty" json:"output,omitempty"`
}

// ThreadPoolConfig holds global defaults plus per-pool overrides
type ThreadPoolConfig struct {
	// Defaults apply to every pool that does not override a tunable
	Defaults PoolConfig `mapstructure:"defaults" yaml:"defaults,omitempty" json:"defaults,omitempty"`

	// Pools maps a pool name to its overrides. Names are case-insensitive.
	Pools map[string]PoolConfig `mapstructure:"pools" yaml:"pools,omitempty" json:"pools,omitempty"`

	// ShutdownTimeout bounds how long the stop hook waits for a pool to drain
	ShutdownTimeout *time.Duration `mapstructure:"shutdown-timeout" yaml:"shutdown-timeout,omitempty" json:"shutdown_timeout,omitempty"`
}

// PoolConfig is one set of tunables. A nil field is unset and falls through to
// the next level of resolution; a zero value is an explicit setting.
type PoolConfig struct {
	MinThreads      *int                     `mapstructure:"min-threads" yaml:"min-threads,omitempty" json:"min_threads,omitempty"`
	MaxThreads      *int                     `mapstructure:"max-threads" yaml:"max-threads,omitempty" json:"max_threads,omitempty"`
	Timeout         *time.Duration           `mapstructure:"timeout" yaml:"timeout,omitempty" json:"timeout,omitempty"`
	QueueSize       *int                     `mapstructure:"queue-size" yaml:"queue-size,omitempty" json:"queue_size,omitempty"`
	RejectedHandler *executor.OverflowPolicy `mapstructure:"rejected-handler" yaml:"rejected-handler,omitempty" json:"rejected_handler,omitempty"`
}

// AdminConfig configures the management HTTP server
type AdminConfig struct {
	// Address is the host:port the server listens on
	Address string `mapstructure:"address" yaml:"address,omitempty" json:"address,omitempty"`
}

// OutputConfig contains default rendering options
type OutputConfig struct {
	// Format is the default output format (table, json, yaml)
	Format string `mapstructure:"format" yaml:"format,omitempty" json:"format,omitempty"`

	// NoColor disables colored output
	NoColor bool `mapstructure:"no-color" yaml:"no-color,omitempty" json:"no_color,omitempty"`
}

// IsZero reports whether no tunable is set
func (p PoolConfig) IsZero() bool {
	return p.MinThreads == nil && p.MaxThreads == nil && p.Timeout == nil &&
		p.QueueSize == nil && p.RejectedHandler == nil
}

// applyTo overwrites the tunables of opts that p sets
func (p PoolConfig) applyTo(opts *executor.Options) {
	if p.MinThreads != nil {
		opts.MinThreads = *p.MinThreads
	}
	if p.MaxThreads != nil {
		opts.MaxThreads = *p.MaxThreads
	}
	if p.Timeout != nil {
		opts.IdleTimeout = *p.Timeout
	}
	if p.QueueSize != nil {
		opts.QueueSize = *p.QueueSize
	}
	if p.RejectedHandler != nil {
		opts.Overflow = *p.RejectedHandler
	}
}

// settings renders p as the map written to the config file, with durations
// and policies in their textual form
func (p PoolConfig) settings() map[string]interface{} {
	m := make(map[string]interface{})
	if p.MinThreads != nil {
		m["min-threads"] = *p.MinThreads
	}
	if p.MaxThreads != nil {
		m["max-threads"] = *p.MaxThreads
	}
	if p.Timeout != nil {
		m["timeout"] = p.Timeout.String()
	}
	if p.QueueSize != nil {
		m["queue-size"] = *p.QueueSize
	}
	if p.RejectedHandler != nil {
		m["rejected-handler"] = p.RejectedHandler.String()
	}
	return m
}

// Int returns a pointer to v, for building a PoolConfig literal
func Int(v int) *int {
	return &v
}

// Duration returns a pointer to d
func Duration(d time.Duration) *time.Duration {
	return &d
}

// Policy returns a pointer to p
func Policy(p executor.OverflowPolicy) *executor.OverflowPolicy {
	return &p
}
