package executor

import (
	"fmt"
	"strings"
	"time"

	"github.com/aryankumar/taskpool/internal/util"
)

// Result is a snapshot of one future's outcome
type Result struct {
	// TaskID identifies the future the result was taken from
	TaskID string `json:"task_id" yaml:"task-id"`

	// State is the task state when the snapshot was taken
	State State `json:"state" yaml:"state"`

	// Data contains the value of a successful task
	Data any `json:"data,omitempty" yaml:"data,omitempty"`

	// Error is set for failed and cancelled tasks
	Error error `json:"-" yaml:"-"`

	// Duration is how long the task ran (zero if it never started)
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// MarshalText renders the state name in JSON and YAML output
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Collect takes a Result snapshot of every future, preserving order
func Collect[T any](futures []*Future[T]) []Result {
	results := make([]Result, 0, len(futures))
	for _, f := range futures {
		results = append(results, f.Result())
	}
	return results
}

// CountSuccessful returns the number of successful results (no error)
func CountSuccessful(results []Result) int {
	count := 0
	for _, r := range results {
		if r.Error == nil && r.State == Succeeded {
			count++
		}
	}
	return count
}

// CountFailed returns the number of results carrying an error, cancelled included
func CountFailed(results []Result) int {
	count := 0
	for _, r := range results {
		if r.Error != nil {
			count++
		}
	}
	return count
}

// CountCancelled returns the number of cancelled or discarded results
func CountCancelled(results []Result) int {
	count := 0
	for _, r := range results {
		if r.State == Cancelled {
			count++
		}
	}
	return count
}

// FilterFailed returns the results carrying an error, cancelled included
func FilterFailed(results []Result) []Result {
	filtered := make([]Result, 0, len(results))
	for _, r := range results {
		if r.Error != nil {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// AverageDuration calculates the average duration of all results
func AverageDuration(results []Result) time.Duration {
	if len(results) == 0 {
		return 0
	}

	var total time.Duration
	for _, r := range results {
		total += r.Duration
	}

	return total / time.Duration(len(results))
}

// MaxDuration returns the maximum duration among all results
func MaxDuration(results []Result) time.Duration {
	if len(results) == 0 {
		return 0
	}

	longest := results[0].Duration
	for _, r := range results {
		if r.Duration > longest {
			longest = r.Duration
		}
	}
	return longest
}

// MinDuration returns the minimum duration among all results
func MinDuration(results []Result) time.Duration {
	if len(results) == 0 {
		return 0
	}

	shortest := results[0].Duration
	for _, r := range results {
		if r.Duration < shortest {
			shortest = r.Duration
		}
	}
	return shortest
}

// GetErrors extracts all errors from results, each tagged with its task ID
func GetErrors(results []Result) []error {
	errs := make([]error, 0)
	for _, r := range results {
		if r.Error != nil {
			errs = append(errs, util.WrapTaskError(r.TaskID, r.Error))
		}
	}
	return errs
}

// Summary provides a summary of execution results
type Summary struct {
	Total       int           `json:"total" yaml:"total"`
	Successful  int           `json:"successful" yaml:"successful"`
	Failed      int           `json:"failed" yaml:"failed"`
	Cancelled   int           `json:"cancelled" yaml:"cancelled"`
	AvgDuration time.Duration `json:"avg_duration" yaml:"avg-duration"`
	MaxDuration time.Duration `json:"max_duration" yaml:"max-duration"`
	MinDuration time.Duration `json:"min_duration" yaml:"min-duration"`
}

// Summarize creates a summary of the results
func Summarize(results []Result) Summary {
	return Summary{
		Total:       len(results),
		Successful:  CountSuccessful(results),
		Failed:      CountFailed(results) - CountCancelled(results),
		Cancelled:   CountCancelled(results),
		AvgDuration: AverageDuration(results),
		MaxDuration: MaxDuration(results),
		MinDuration: MinDuration(results),
	}
}

// String returns a human-readable string representation of the summary
func (s Summary) String() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Total: %d, ", s.Total))
	sb.WriteString(fmt.Sprintf("Successful: %d, ", s.Successful))
	sb.WriteString(fmt.Sprintf("Failed: %d", s.Failed))
	if s.Cancelled > 0 {
		sb.WriteString(fmt.Sprintf(", Cancelled: %d", s.Cancelled))
	}

	if s.Total > 0 {
		sb.WriteString(fmt.Sprintf(", Avg: %s", s.AvgDuration.Round(time.Millisecond)))
		sb.WriteString(fmt.Sprintf(", Max: %s", s.MaxDuration.Round(time.Millisecond)))
		sb.WriteString(fmt.Sprintf(", Min: %s", s.MinDuration.Round(time.Millisecond)))
	}

	return sb.String()
}

// HasErrors returns true if any results contain errors
func HasErrors(results []Result) bool {
	for _, r := range results {
		if r.Error != nil {
			return true
		}
	}
	return false
}

// AllSuccessful returns true if all results are successful
func AllSuccessful(results []Result) bool {
	return !HasErrors(results)
}

// ErrorOrNil combines every result error into one, or returns nil
func ErrorOrNil(results []Result) error {
	return util.CombineErrors(GetErrors(results)...)
}
