package provider

import (
	"context"
	"fmt"
)

// Editor is the uniform call signature the worker pool dispatches to
type Editor interface {
	Edit(ctx context.Context, instruction, text string) (string, error)
}

// Registry holds the adapter of each supported provider
type Registry struct {
	adapters map[string]*Adapter
}

// NewRegistry creates a registry from adapters keyed by their names
func NewRegistry(adapters ...*Adapter) *Registry {
	r := &Registry{adapters: make(map[string]*Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Name()] = a
	}
	return r
}

// Get returns the adapter for name
func (r *Registry) Get(name string) (*Adapter, error) {
	a, ok := r.adapters[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return a, nil
}

// Editors returns the adapters as a name to Editor map for the worker pool
func (r *Registry) Editors() map[string]Editor {
	out := make(map[string]Editor, len(r.adapters))
	for name, a := range r.adapters {
		out[name] = a
	}
	return out
}

// ReloadKeys re-reads every credential source and returns the key count per provider
func (r *Registry) ReloadKeys() map[string]int {
	counts := make(map[string]int, len(r.adapters))
	for name, a := range r.adapters {
		a.Rotator().Refresh()
		counts[name] = a.Rotator().Count()
	}
	return counts
}
