// Package delegate carries an ambient scope of values across goroutines.
//
// Go has no thread-local storage, so the ambient scope lives in a Holder that
// is attached to a context.Context. Each long-lived goroutine (for example a
// pool worker) owns one Holder; code running on that goroutine reads and
// replaces the scope through the context it was given.
//
// A task submitted from one goroutine and executed on another captures the
// submitter's Scope at submission time and installs it into the executing
// goroutine's Holder for the duration of the task:
//
//	captured := delegate.Current(submitCtx)
//	...
//	restore := delegate.Enter(workerCtx, captured)
//	defer restore()
package delegate

import (
	"context"
	"sync"
)

// Scope is an immutable set of ambient values. The zero Scope is empty.
type Scope struct {
	values map[any]any
}

// With returns a copy of the scope with key set to value
func (s Scope) With(key, value any) Scope {
	values := make(map[any]any, len(s.values)+1)
	for k, v := range s.values {
		values[k] = v
	}
	values[key] = value
	return Scope{values: values}
}

// Value returns the value stored under key
func (s Scope) Value(key any) (any, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Len returns the number of values in the scope
func (s Scope) Len() int {
	return len(s.values)
}

// IsZero reports whether the scope holds no values
func (s Scope) IsZero() bool {
	return len(s.values) == 0
}

// Holder is the mutable ambient slot of a single goroutine.
type Holder struct {
	mu    sync.Mutex
	scope Scope
}

// NewHolder creates an empty holder
func NewHolder() *Holder {
	return &Holder{}
}

// Get returns the scope currently installed in the holder
func (h *Holder) Get() Scope {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.scope
}

// Swap installs s and returns the previously installed scope
func (h *Holder) Swap(s Scope) Scope {
	h.mu.Lock()
	defer h.mu.Unlock()
	prev := h.scope
	h.scope = s
	return prev
}

type holderKey struct{}

// WithHolder returns a context carrying a fresh, empty Holder
func WithHolder(ctx context.Context) context.Context {
	return context.WithValue(ctx, holderKey{}, NewHolder())
}

// HolderFrom returns the Holder attached to ctx, or nil
func HolderFrom(ctx context.Context) *Holder {
	if ctx == nil {
		return nil
	}
	h, _ := ctx.Value(holderKey{}).(*Holder)
	return h
}

// Current returns the ambient scope visible through ctx.
// A context without a Holder sees the empty scope.
func Current(ctx context.Context) Scope {
	if h := HolderFrom(ctx); h != nil {
		return h.Get()
	}
	return Scope{}
}

// Set adds key=value to the ambient scope of ctx's Holder.
// It reports false when ctx carries no Holder.
func Set(ctx context.Context, key, value any) bool {
	h := HolderFrom(ctx)
	if h == nil {
		return false
	}
	h.mu.Lock()
	h.scope = h.scope.With(key, value)
	h.mu.Unlock()
	return true
}

// Value looks key up in the ambient scope of ctx
func Value(ctx context.Context, key any) (any, bool) {
	return Current(ctx).Value(key)
}

// Enter installs s into ctx's Holder and returns a function restoring the
// previous scope. Enter on a context without a Holder is a no-op.
func Enter(ctx context.Context, s Scope) (restore func()) {
	h := HolderFrom(ctx)
	if h == nil {
		return func() {}
	}
	prev := h.Swap(s)
	return func() {
		h.Swap(prev)
	}
}
