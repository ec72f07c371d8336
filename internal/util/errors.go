package util

import (
	"errors"
	"fmt"
	"strings"
)

// Error taxonomy shared by the pool, its wrappers and the CLI
var (
	// ErrInvalidConfig indicates invalid pool tunables detected at construction
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrTimeout indicates a bounded termination wait elapsed before the pool drained
	ErrTimeout = errors.New("operation timed out")

	// ErrInterrupted indicates the caller stopped waiting (its context was cancelled)
	ErrInterrupted = errors.New("interrupted")

	// ErrOverflow indicates a submission was rejected because the queue was full
	ErrOverflow = errors.New("task queue overflow")

	// ErrShutdown indicates the pool no longer accepts submissions
	ErrShutdown = errors.New("pool is shut down")

	// ErrCancelled indicates a task handle was cancelled before it produced a result
	ErrCancelled = errors.New("task cancelled")

	// ErrDiscarded indicates a task was dropped by a discard overflow policy
	ErrDiscarded = errors.New("task discarded")
)

// TaskError wraps the failure of a single task with its handle ID
type TaskError struct {
	TaskID string
	Err    error
}

// Error implements the error interface
func (e *TaskError) Error() string {
	return fmt.Sprintf("task %s: %v", e.TaskID, e.Err)
}

// Unwrap returns the task's own error for errors.Is/As compatibility
func (e *TaskError) Unwrap() error {
	return e.Err
}

// WrapTaskError attaches a task ID to an error
func WrapTaskError(taskID string, err error) error {
	if err == nil {
		return nil
	}
	return &TaskError{
		TaskID: taskID,
		Err:    err,
	}
}

// MultiError aggregates multiple errors
type MultiError struct {
	Errors []error
}

// Error implements the error interface
func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d errors occurred:", len(m.Errors)))
	for i, err := range m.Errors {
		if i < 10 {
			sb.WriteString(fmt.Sprintf("\n  %d. %v", i+1, err))
		} else if i == 10 {
			sb.WriteString(fmt.Sprintf("\n  ... and %d more errors", len(m.Errors)-10))
			break
		}
	}
	return sb.String()
}

// Unwrap returns the errors for errors.Is/As compatibility
func (m *MultiError) Unwrap() []error {
	return m.Errors
}

// Add adds an error to the multi-error
func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// ErrorOrNil returns nil if no errors were added, otherwise returns the MultiError
func (m *MultiError) ErrorOrNil() error {
	if len(m.Errors) == 0 {
		return nil
	}
	return m
}

// NewMultiError creates a new MultiError from a slice of errors
// It filters out nil errors
func NewMultiError(errors []error) *MultiError {
	m := &MultiError{
		Errors: make([]error, 0, len(errors)),
	}
	for _, err := range errors {
		if err != nil {
			m.Errors = append(m.Errors, err)
		}
	}
	return m
}

// ValidationError represents an invalid tunable. It always matches ErrInvalidConfig.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	if v.Value != nil {
		return fmt.Sprintf("validation failed for field %q (value: %v): %s", v.Field, v.Value, v.Message)
	}
	return fmt.Sprintf("validation failed for field %q: %s", v.Field, v.Message)
}

// Unwrap lets errors.Is(err, ErrInvalidConfig) succeed
func (v *ValidationError) Unwrap() error {
	return ErrInvalidConfig
}

// NewValidationError creates a new validation error
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// IsTimeout checks if an error is a timeout error
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsCancelled checks if an error reports a cancelled or discarded task
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, ErrDiscarded)
}

// IsInterrupted checks if an error is an interruption
func IsInterrupted(err error) bool {
	return errors.Is(err, ErrInterrupted)
}

// IsOverflow checks if an error is a queue overflow rejection
func IsOverflow(err error) bool {
	return errors.Is(err, ErrOverflow)
}

// IsConfigError checks if an error is a configuration error
func IsConfigError(err error) bool {
	return errors.Is(err, ErrInvalidConfig)
}

// FriendlyError converts technical errors to user-friendly messages
func FriendlyError(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case IsConfigError(err):
		return "Invalid configuration: " + err.Error() + ". Please check your config file and command-line flags."
	case IsTimeout(err):
		return "Pool did not terminate in time; some tasks may still be running. Increase the shutdown timeout if this is expected."
	case IsInterrupted(err):
		return "Operation was interrupted."
	case IsOverflow(err):
		return "Task queue is full. Increase queue-size or max-threads, or choose a different rejected-handler."
	case errors.Is(err, ErrShutdown):
		return "Pool is shutting down and no longer accepts tasks."
	case IsCancelled(err):
		return "Task was cancelled."
	default:
		return err.Error()
	}
}

// CombineErrors combines multiple errors into a single error
// Returns nil if all errors are nil
func CombineErrors(errors ...error) error {
	m := NewMultiError(errors)
	return m.ErrorOrNil()
}

// WrapErrorf wraps an error with a formatted message
func WrapErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
