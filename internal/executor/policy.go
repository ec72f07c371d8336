package executor

import (
	"fmt"
	"strings"

	"github.com/aryankumar/taskpool/internal/util"
)

// OverflowPolicy selects what happens to a submission when the queue is full
// and the pool already runs its maximum number of workers
type OverflowPolicy int

const (
	// CallerRuns executes the task on the submitting goroutine
	CallerRuns OverflowPolicy = iota
	// Abort rejects the submission with util.ErrOverflow
	Abort
	// DiscardNewest drops the task being submitted
	DiscardNewest
	// DiscardOldest drops the task at the head of the queue and retries the submission
	DiscardOldest
)

var policyNames = map[OverflowPolicy]string{
	CallerRuns:    "caller-runs",
	Abort:         "abort",
	DiscardNewest: "discard-newest",
	DiscardOldest: "discard-oldest",
}

// Policies lists every overflow policy in declaration order
func Policies() []OverflowPolicy {
	return []OverflowPolicy{CallerRuns, Abort, DiscardNewest, DiscardOldest}
}

// String returns the configuration name of the policy
func (p OverflowPolicy) String() string {
	if name, ok := policyNames[p]; ok {
		return name
	}
	return fmt.Sprintf("OverflowPolicy(%d)", int(p))
}

// Valid reports whether p is a known policy
func (p OverflowPolicy) Valid() bool {
	_, ok := policyNames[p]
	return ok
}

// ParsePolicy converts a configuration value into a policy.
// Matching ignores case and accepts underscores in place of dashes.
func ParsePolicy(s string) (OverflowPolicy, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
	for p, name := range policyNames {
		if name == normalized {
			return p, nil
		}
	}
	return 0, util.NewValidationError("rejected-handler", s,
		"must be one of caller-runs, abort, discard-newest, discard-oldest")
}

// MarshalText implements encoding.TextMarshaler
func (p OverflowPolicy) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("unknown overflow policy %d", int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (p *OverflowPolicy) UnmarshalText(text []byte) error {
	parsed, err := ParsePolicy(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
