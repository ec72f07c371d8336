package threadpool

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/aryankumar/taskpool/internal/config"
	"github.com/aryankumar/taskpool/internal/executor"
	"github.com/aryankumar/taskpool/internal/lifecycle"
)

// Registry indexes providers by pool name
type Registry struct {
	mu        sync.RWMutex
	providers map[string]*Provider
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]*Provider)}
}

// Provide creates a provider for name, registers its hooks with lc and adds
// it to the registry. Names are case-insensitive and must be unique.
func (r *Registry) Provide(name string, cfg *config.Manager, lc *lifecycle.Lifecycle, opts ...Option) (*Provider, error) {
	key := strings.ToLower(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[key]; exists {
		return nil, fmt.Errorf("thread pool %q already registered", name)
	}

	p := NewProvider(name, cfg, lc, opts...)
	r.providers[key] = p
	return p, nil
}

// Lookup returns the started pool called name
func (r *Registry) Lookup(name string) (*executor.Pool, bool) {
	r.mu.RLock()
	p, ok := r.providers[strings.ToLower(name)]
	r.mu.RUnlock()

	if !ok {
		return nil, false
	}
	pool := p.Get()
	return pool, pool != nil
}

// Pools returns every started pool, sorted by name
func (r *Registry) Pools() []*executor.Pool {
	r.mu.RLock()
	pools := make([]*executor.Pool, 0, len(r.providers))
	for _, p := range r.providers {
		if pool := p.Get(); pool != nil {
			pools = append(pools, pool)
		}
	}
	r.mu.RUnlock()

	sort.Slice(pools, func(i, j int) bool {
		return pools[i].Name() < pools[j].Name()
	})
	return pools
}

// Names returns the registered pool names, sorted
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for _, p := range r.providers {
		names = append(names, p.Name())
	}
	sort.Strings(names)
	return names
}
