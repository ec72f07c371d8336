package output_test

import (
	"errors"
	"os"
	"time"

	"github.com/aryankumar/taskpool/internal/executor"
	"github.com/aryankumar/taskpool/internal/output"
)

// Example_tableFormatter demonstrates rendering pool statistics as a table
func Example_tableFormatter() {
	formatter := output.NewFormatter(output.FormatTable, output.WithNoColor(true))

	stats := []executor.Stats{
		{
			Name:               "worker",
			RejectedHandler:    "caller-runs",
			CorePoolSize:       1,
			MaxPoolSize:        16,
			PoolSize:           3,
			ActiveCount:        2,
			CompletedTaskCount: 40,
		},
	}

	formatter.FormatStats(os.Stdout, stats)
}

// Example_jsonFormatter demonstrates rendering task results as JSON
func Example_jsonFormatter() {
	formatter := output.NewFormatter(output.FormatJSON)

	results := []executor.Result{
		{TaskID: "a1", State: executor.Succeeded, Data: 3, Duration: 2 * time.Millisecond},
		{TaskID: "b2", State: executor.Failed, Error: errors.New("bad input"), Duration: time.Millisecond},
	}

	formatter.FormatResults(os.Stdout, results)
	// Output:
	// [
	//   {
	//     "data": 3,
	//     "duration": "2ms",
	//     "state": "succeeded",
	//     "task_id": "a1"
	//   },
	//   {
	//     "duration": "1ms",
	//     "error": "bad input",
	//     "state": "failed",
	//     "task_id": "b2"
	//   }
	// ]
}

// Example_yamlFormatter demonstrates rendering an arbitrary value as YAML
func Example_yamlFormatter() {
	formatter := output.NewFormatter(output.FormatYAML)

	data := map[string]interface{}{
		"pool": "worker",
		"tunables": map[string]interface{}{
			"max-threads": 4,
			"queue-size":  0,
		},
	}

	formatter.Format(os.Stdout, data)
	// Output:
	// pool: worker
	// tunables:
	//   max-threads: 4
	//   queue-size: 0
}
