// Package registry provides name-based tool lookup for the orchestrator.
// A Registry is an explicitly owned value constructed at orchestrator-build
// time and passed in; there is no ambient global, so independent
// orchestrator instances in tests cannot cross-contaminate.
package registry

import (
	"sync"

	"github.com/loomworks/loom"
)

// Registry maps tool names to singleton tool instances. It is populated
// once at construction and treated as read-only thereafter; Register is
// idempotent so repeated population is safe.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]loom.Tool
	order []string // preserves registration order
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{tools: make(map[string]loom.Tool)}
}

// Register adds a tool under its declared name if no tool is currently
// registered under that name; otherwise it is a no-op. First registration
// wins, which makes registration safe to call repeatedly during
// orchestrator construction.
func (r *Registry) Register(t loom.Tool) {
	if t == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	name := t.Name()
	if _, exists := r.tools[name]; exists {
		return
	}
	r.tools[name] = t
	r.order = append(r.order, name)
}

// Get returns the tool registered under the given name. Callers must treat
// "not found" as a distinct, recoverable condition.
func (r *Registry) Get(name string) (loom.Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Has returns true if a tool is registered under the given name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// All returns every registered tool in registration order.
func (r *Registry) All() []loom.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]loom.Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}
