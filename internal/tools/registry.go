package tools

import (
	"fmt"
	"sync"
)

// Registry maps tool names to definitions and handlers. List preserves
// registration order; clients show tools in that order.
type Registry struct {
	mu       sync.RWMutex
	defs     []Definition
	handlers map[string]Handler
	index    map[string]int
}

func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
		index:    make(map[string]int),
	}
}

// Register adds a tool. It fails with *DuplicateToolError if the name is
// taken, leaving the first registration intact.
func (r *Registry) Register(def Definition, h Handler) error {
	if def.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if h == nil {
		return fmt.Errorf("tool %q: handler is nil", def.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.handlers[def.Name]; ok {
		return &DuplicateToolError{Name: def.Name}
	}
	r.index[def.Name] = len(r.defs)
	r.defs = append(r.defs, def)
	r.handlers[def.Name] = h
	return nil
}

// MustRegister panics on error; for startup wiring.
func (r *Registry) MustRegister(def Definition, h Handler) {
	if err := r.Register(def, h); err != nil {
		panic(err)
	}
}

// List returns the definitions in registration order.
func (r *Registry) List() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Definition, len(r.defs))
	copy(out, r.defs)
	return out
}

// Resolve returns the handler for name or *UnknownToolError.
func (r *Registry) Resolve(name string) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	if !ok {
		return nil, &UnknownToolError{Name: name}
	}
	return h, nil
}

// Lookup returns the definition registered under name.
func (r *Registry) Lookup(name string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.index[name]
	if !ok {
		return Definition{}, false
	}
	return r.defs[i], true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.defs)
}
