package invoke

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/aryankumar/taskpool/internal/cli/cmdutil"
	"github.com/aryankumar/taskpool/internal/executor"
	"github.com/aryankumar/taskpool/internal/util"
)

// ErrTasksFailed is returned when a batch stopped on a failing task
var ErrTasksFailed = errors.New("batch stopped on a failed task")

// Batch describes a synthetic workload
type Batch struct {
	// Pool names the configured pool to run on
	Pool string

	// Tasks is the number of tasks to submit
	Tasks int

	// FailAt is the zero-based index of a task that returns an error, or -1
	FailAt int

	// Duration is how long each task sleeps
	Duration time.Duration

	// Wide adds the value column to table output
	Wide bool

	// FailedOnly prints only the results that carry an error
	FailedOnly bool
}

// NewInvokeCmd creates the invoke command
func NewInvokeCmd() *cobra.Command {
	batch := Batch{}

	cmd := &cobra.Command{
		Use:   "invoke",
		Short: "Run a batch of tasks with fail-fast collection",
		Long: `Run a batch of synthetic tasks on a configured pool.

Every task is submitted at once. Results are collected in completion order
and collection stops at the first task that fails; the remaining tasks are
cancelled. The failing task is the last row of the output.`,
		Example: `  # Ten 50ms tasks on the default pool
  taskpool invoke --tasks 10 --duration 50ms

  # Make the fourth task fail on the worker pool
  taskpool invoke --pool worker --tasks 10 --fail-at 3

  # JSON output
  taskpool invoke -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInvoke(cmd.Context(), cmd.OutOrStdout(), batch)
		},
	}

	cmd.Flags().StringVar(&batch.Pool, "pool", "default", "configured pool to run on")
	cmd.Flags().IntVarP(&batch.Tasks, "tasks", "n", 10, "number of tasks")
	cmd.Flags().IntVar(&batch.FailAt, "fail-at", -1, "index of a task that fails (-1 for none)")
	cmd.Flags().DurationVar(&batch.Duration, "duration", 10*time.Millisecond, "how long each task runs")
	cmd.Flags().BoolVar(&batch.Wide, "wide", false, "show task values in table output")
	cmd.Flags().BoolVar(&batch.FailedOnly, "failed-only", false, "print only failed and cancelled tasks")

	return cmd
}

func runInvoke(ctx context.Context, w io.Writer, batch Batch) error {
	logger := slog.Default()

	if batch.Tasks < 0 {
		return util.NewValidationError("tasks", batch.Tasks, "must not be negative")
	}

	manager, err := cmdutil.LoadConfig()
	if err != nil {
		return err
	}

	formatter, err := cmdutil.NewFormatter(manager.GetConfig(), batch.Wide)
	if err != nil {
		return err
	}

	opts, err := manager.PoolOptions(batch.Pool)
	if err != nil {
		return err
	}

	pool, err := executor.New(batch.Pool, opts, logger)
	if err != nil {
		return err
	}
	scope := executor.AutoTerminate(pool, manager.ShutdownTimeout(), logger)
	defer func() {
		if err := scope.Close(); err != nil {
			logger.Warn("pool did not terminate", "pool", batch.Pool, "error", err)
		}
	}()

	logger.Debug("invoking batch",
		"pool", batch.Pool,
		"tasks", batch.Tasks,
		"fail_at", batch.FailAt,
		"duration", batch.Duration)

	start := time.Now()
	results, err := Run(ctx, pool, batch)
	if err != nil && !errors.Is(err, util.ErrInterrupted) {
		return err
	}

	logger.Debug("batch finished",
		"observed", len(results),
		"elapsed", time.Since(start),
		"completed", pool.CompletedTaskCount())

	shown := results
	if batch.FailedOnly {
		shown = executor.FilterFailed(results)
	}
	if ferr := formatter.FormatResults(w, shown); ferr != nil {
		return ferr
	}

	if err != nil {
		return err
	}
	if !executor.AllSuccessful(results) {
		return fmt.Errorf("%w: %w", ErrTasksFailed, executor.ErrorOrNil(results))
	}
	return nil
}

// Run submits the batch to pool and returns the observed results in
// completion order
func Run(ctx context.Context, pool *executor.Pool, batch Batch) ([]executor.Result, error) {
	tasks := make([]func(context.Context) (string, error), batch.Tasks)
	for i := range tasks {
		tasks[i] = syntheticTask(i, batch)
	}

	futures, err := executor.InvokeAllExplosively(ctx, pool, tasks)
	return executor.Collect(futures), err
}

func syntheticTask(i int, batch Batch) func(context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		if batch.Duration > 0 {
			timer := time.NewTimer(batch.Duration)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-timer.C:
			}
		}
		if i == batch.FailAt {
			return "", fmt.Errorf("task %d: injected failure", i)
		}
		return fmt.Sprintf("task-%d", i), nil
	}
}
