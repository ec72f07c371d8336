package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/aryankumar/taskpool/internal/executor"
)

// Format represents the output format type
type Format string

const (
	// FormatTable outputs data in a borderless table
	FormatTable Format = "table"
	// FormatJSON outputs data in JSON format
	FormatJSON Format = "json"
	// FormatYAML outputs data in YAML format
	FormatYAML Format = "yaml"
)

// ParseFormat validates a user-supplied format name
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want table, json or yaml)", s)
	}
}

// Formatter defines the interface for output formatting
type Formatter interface {
	// Format outputs a single data item to the writer
	Format(w io.Writer, data interface{}) error

	// FormatResults outputs the results of a batch of tasks
	FormatResults(w io.Writer, results []executor.Result) error

	// FormatStats outputs a statistics snapshot for each pool
	FormatStats(w io.Writer, stats []executor.Stats) error
}

// Option is a functional option for configuring formatters
type Option func(*Options)

// Options holds configuration for formatters
type Options struct {
	// NoColor disables color output
	NoColor bool

	// NoHeaders disables table headers
	NoHeaders bool

	// Wide enables wide output with additional columns
	Wide bool
}

// WithNoColor disables color output
func WithNoColor(noColor bool) Option {
	return func(o *Options) {
		o.NoColor = noColor
	}
}

// WithNoHeaders disables table headers
func WithNoHeaders(noHeaders bool) Option {
	return func(o *Options) {
		o.NoHeaders = noHeaders
	}
}

// WithWide enables wide output
func WithWide(wide bool) Option {
	return func(o *Options) {
		o.Wide = wide
	}
}

// NewFormatter creates a new formatter based on the specified format
func NewFormatter(format Format, opts ...Option) Formatter {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	switch format {
	case FormatJSON:
		return NewJSONFormatter(options)
	case FormatYAML:
		return NewYAMLFormatter(options)
	case FormatTable:
		fallthrough
	default:
		return NewTableFormatter(options)
	}
}

// resultItem is the structured form of a result shared by JSON and YAML
func resultItem(result executor.Result) map[string]interface{} {
	item := map[string]interface{}{
		"task_id":  result.TaskID,
		"state":    result.State.String(),
		"duration": result.Duration.String(),
	}

	if result.Error != nil {
		item["error"] = result.Error.Error()
	} else if result.Data != nil {
		item["data"] = result.Data
	}

	return item
}

// statsView is Stats with the idle timeout rendered as a duration string
type statsView struct {
	Name                   string `json:"name" yaml:"name"`
	State                  string `json:"state" yaml:"state"`
	Synchronous            bool   `json:"synchronous" yaml:"synchronous"`
	RejectedHandler        string `json:"rejected_handler" yaml:"rejected-handler"`
	CorePoolSize           int    `json:"core_pool_size" yaml:"core-pool-size"`
	MaxPoolSize            int    `json:"max_pool_size" yaml:"max-pool-size"`
	IdleTimeout            string `json:"idle_timeout" yaml:"idle-timeout"`
	QueueSize              int    `json:"queue_size" yaml:"queue-size"`
	QueueRemainingCapacity int    `json:"queue_remaining_capacity" yaml:"queue-remaining-capacity"`
	PoolSize               int    `json:"pool_size" yaml:"pool-size"`
	ActiveCount            int    `json:"active_count" yaml:"active-count"`
	LargestPoolSize        int    `json:"largest_pool_size" yaml:"largest-pool-size"`
	TaskCount              int64  `json:"task_count" yaml:"task-count"`
	CompletedTaskCount     int64  `json:"completed_task_count" yaml:"completed-task-count"`
	RejectedTaskCount      int64  `json:"rejected_task_count" yaml:"rejected-task-count"`
}

func statsViews(stats []executor.Stats) []statsView {
	views := make([]statsView, len(stats))
	for i, s := range stats {
		views[i] = statsView{
			Name:                   s.Name,
			State:                  poolState(s),
			Synchronous:            s.Synchronous,
			RejectedHandler:        s.RejectedHandler,
			CorePoolSize:           s.CorePoolSize,
			MaxPoolSize:            s.MaxPoolSize,
			IdleTimeout:            s.IdleTimeout.String(),
			QueueSize:              s.QueueSize,
			QueueRemainingCapacity: s.QueueRemainingCapacity,
			PoolSize:               s.PoolSize,
			ActiveCount:            s.ActiveCount,
			LargestPoolSize:        s.LargestPoolSize,
			TaskCount:              s.TaskCount,
			CompletedTaskCount:     s.CompletedTaskCount,
			RejectedTaskCount:      s.RejectedTaskCount,
		}
	}
	return views
}

// poolState summarizes the lifecycle flags of a pool
func poolState(s executor.Stats) string {
	switch {
	case s.Terminated:
		return "Terminated"
	case s.Terminating:
		return "Terminating"
	case s.Shutdown:
		return "Shutdown"
	default:
		return "Running"
	}
}
