package executor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aryankumar/taskpool/internal/util"
)

func okResult(id string) Result {
	return Result{TaskID: id, State: Succeeded}
}

func failedResult(id string) Result {
	return Result{TaskID: id, State: Failed, Error: errors.New("error")}
}

func cancelledResult(id string) Result {
	return Result{TaskID: id, State: Cancelled, Error: util.ErrCancelled}
}

func TestCountSuccessful(t *testing.T) {
	tests := []struct {
		name     string
		results  []Result
		expected int
	}{
		{
			name:     "empty results",
			results:  []Result{},
			expected: 0,
		},
		{
			name:     "all successful",
			results:  []Result{okResult("t1"), okResult("t2"), okResult("t3")},
			expected: 3,
		},
		{
			name:     "all failed",
			results:  []Result{failedResult("t1"), failedResult("t2")},
			expected: 0,
		},
		{
			name:     "mixed with cancelled",
			results:  []Result{okResult("t1"), failedResult("t2"), okResult("t3"), cancelledResult("t4")},
			expected: 2,
		},
		{
			name:     "pending snapshot is not a success",
			results:  []Result{{TaskID: "t1", State: Pending}},
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CountSuccessful(tt.results)
			if got != tt.expected {
				t.Errorf("CountSuccessful() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestCountFailedAndCancelled(t *testing.T) {
	results := []Result{okResult("t1"), failedResult("t2"), cancelledResult("t3"), cancelledResult("t4")}

	if got := CountFailed(results); got != 3 {
		t.Errorf("CountFailed() = %d, want 3", got)
	}
	if got := CountCancelled(results); got != 2 {
		t.Errorf("CountCancelled() = %d, want 2", got)
	}
}

func TestFilterFailed(t *testing.T) {
	results := []Result{okResult("t1"), failedResult("t2"), okResult("t3"), cancelledResult("t4")}

	var ids []string
	for _, r := range FilterFailed(results) {
		ids = append(ids, r.TaskID)
	}
	if got := strings.Join(ids, ","); got != "t2,t4" {
		t.Errorf("FilterFailed() = %v, want [t2 t4]", ids)
	}

	if got := FilterFailed([]Result{okResult("t1")}); len(got) != 0 {
		t.Errorf("FilterFailed() = %v, want empty", got)
	}
}

func TestDurations(t *testing.T) {
	tests := []struct {
		name    string
		results []Result
		avg     time.Duration
		max     time.Duration
		min     time.Duration
	}{
		{
			name:    "empty",
			results: nil,
		},
		{
			name:    "single",
			results: []Result{{Duration: 100 * time.Millisecond}},
			avg:     100 * time.Millisecond,
			max:     100 * time.Millisecond,
			min:     100 * time.Millisecond,
		},
		{
			name: "multiple",
			results: []Result{
				{Duration: 100 * time.Millisecond},
				{Duration: 200 * time.Millisecond},
				{Duration: 300 * time.Millisecond},
			},
			avg: 200 * time.Millisecond,
			max: 300 * time.Millisecond,
			min: 100 * time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AverageDuration(tt.results); got != tt.avg {
				t.Errorf("AverageDuration() = %v, want %v", got, tt.avg)
			}
			if got := MaxDuration(tt.results); got != tt.max {
				t.Errorf("MaxDuration() = %v, want %v", got, tt.max)
			}
			if got := MinDuration(tt.results); got != tt.min {
				t.Errorf("MinDuration() = %v, want %v", got, tt.min)
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	results := []Result{
		{TaskID: "t1", State: Succeeded, Duration: 100 * time.Millisecond},
		{TaskID: "t2", State: Failed, Error: errors.New("boom"), Duration: 300 * time.Millisecond},
		{TaskID: "t3", State: Cancelled, Error: util.ErrCancelled},
	}

	s := Summarize(results)
	if s.Total != 3 || s.Successful != 1 || s.Failed != 1 || s.Cancelled != 1 {
		t.Errorf("unexpected summary counts: %+v", s)
	}
	if s.MaxDuration != 300*time.Millisecond {
		t.Errorf("MaxDuration = %v, want 300ms", s.MaxDuration)
	}

	str := s.String()
	for _, want := range []string{"Total: 3", "Successful: 1", "Failed: 1", "Cancelled: 1", "Max: 300ms"} {
		if !strings.Contains(str, want) {
			t.Errorf("Summary.String() = %q, missing %q", str, want)
		}
	}
}

func TestSummary_String_Empty(t *testing.T) {
	s := Summarize(nil)
	if got, want := s.String(), "Total: 0, Successful: 0, Failed: 0"; got != want {
		t.Errorf("Summary.String() = %q, want %q", got, want)
	}
}

func TestHasErrors(t *testing.T) {
	tests := []struct {
		name      string
		results   []Result
		hasErrors bool
	}{
		{"empty", nil, false},
		{"all successful", []Result{okResult("a"), okResult("b")}, false},
		{"one failed", []Result{okResult("a"), failedResult("b")}, true},
		{"cancelled", []Result{okResult("a"), cancelledResult("d")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasErrors(tt.results); got != tt.hasErrors {
				t.Errorf("HasErrors() = %v, want %v", got, tt.hasErrors)
			}
			if got := AllSuccessful(tt.results); got == tt.hasErrors {
				t.Errorf("AllSuccessful() = %v, want %v", got, !tt.hasErrors)
			}
		})
	}
}

func TestErrorOrNil(t *testing.T) {
	if err := ErrorOrNil([]Result{okResult("a")}); err != nil {
		t.Errorf("ErrorOrNil() = %v, want nil", err)
	}

	err := ErrorOrNil([]Result{okResult("a"), failedResult("b"), cancelledResult("c")})
	if err == nil {
		t.Fatal("ErrorOrNil() = nil, want error")
	}
	if !errors.Is(err, util.ErrCancelled) {
		t.Errorf("combined error should match ErrCancelled: %v", err)
	}
	var taskErr *util.TaskError
	if !errors.As(err, &taskErr) || taskErr.TaskID != "b" {
		t.Errorf("combined error should carry task b: %v", err)
	}
	if got := len(GetErrors([]Result{failedResult("b"), cancelledResult("c")})); got != 2 {
		t.Errorf("GetErrors() returned %d errors, want 2", got)
	}
}

func TestCollect(t *testing.T) {
	pool := newTestPool(t, Options{MinThreads: 1, MaxThreads: 2, IdleTimeout: time.Minute, QueueSize: 10})
	ctx := context.Background()

	good, err := Submit(ctx, pool, func(context.Context) (int, error) { return 7, nil })
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	bad, err := Submit(ctx, pool, func(context.Context) (int, error) { return 0, errors.New("boom") })
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	waitDone(t, good.Done())
	waitDone(t, bad.Done())

	results := Collect([]*Future[int]{good, bad})
	if len(results) != 2 {
		t.Fatalf("Collect() returned %d results, want 2", len(results))
	}
	if results[0].TaskID != good.ID() || results[0].Data != 7 || results[0].State != Succeeded {
		t.Errorf("unexpected first result: %+v", results[0])
	}

	var taskErr *util.TaskError
	if !errors.As(results[1].Error, &taskErr) || taskErr.TaskID != bad.ID() {
		t.Errorf("second result error should be a TaskError for %s, got %v", bad.ID(), results[1].Error)
	}
}
