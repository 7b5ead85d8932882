package engine

import (
	"errors"
	"fmt"
	"sync"

	"chart-engine-service/internal/charts/core/ports"
)

var ErrDuplicateChart = errors.New("chart already registered")

// Registry indexes engines by chart name, keeping registration order.
type Registry struct {
	mu      sync.RWMutex
	engines map[string]*Engine
	order   []*Engine
}

func NewRegistry() *Registry {
	return &Registry{engines: map[string]*Engine{}}
}

func (r *Registry) Register(engines ...*Engine) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]bool, len(engines))
	for _, e := range engines {
		if _, ok := r.engines[e.Name()]; ok || seen[e.Name()] {
			return fmt.Errorf("%w: %s", ErrDuplicateChart, e.Name())
		}
		seen[e.Name()] = true
	}
	for _, e := range engines {
		r.engines[e.Name()] = e
		r.order = append(r.order, e)
	}
	return nil
}

func (r *Registry) Get(name string) (*Engine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.engines[name]
	return e, ok
}

func (r *Registry) Engines() []*Engine {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Engine, len(r.order))
	copy(out, r.order)
	return out
}

var _ ports.ChartDirectoryPort = (*Registry)(nil)

func (r *Registry) Lookup(name string) (ports.ChartPort, bool) {
	e, ok := r.Get(name)
	if !ok {
		return nil, false
	}
	return e, true
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.order))
	for _, e := range r.order {
		names = append(names, e.Name())
	}
	return names
}
