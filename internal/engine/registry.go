package engine

import (
	"fmt"
	"log/slog"
	"sort"
	"time"
)

// Options are the per-scenario knobs passed to an engine factory.
type Options struct {
	// URL locates an external engine process. In-process engines ignore it.
	URL string
	// Timeout bounds a single engine call for engines that talk over the network.
	Timeout time.Duration
}

// Factory creates a fresh engine instance for one scenario run.
type Factory func(opts Options) (Engine, error)

// Module is the interface every engine package implements to be registered.
type Module interface {
	Register(r *Registry)
}

// Registry maps engine names, as written in scenario files, to factories.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates a registry populated by the given modules.
func NewRegistry(modules ...Module) *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	for _, m := range modules {
		m.Register(r)
	}
	return r
}

// Register adds a factory under a name. Registering the same name twice is a
// programming error and panics.
func (r *Registry) Register(name string, factory Factory) {
	if _, exists := r.factories[name]; exists {
		panic(fmt.Sprintf("engine with name '%s' already registered", name))
	}
	slog.Debug("Registering engine.", "name", name)
	r.factories[name] = factory
}

// Has reports whether an engine name is known.
func (r *Registry) Has(name string) bool {
	_, ok := r.factories[name]
	return ok
}

// Names returns the registered engine names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New instantiates the named engine.
func (r *Registry) New(name string, opts Options) (Engine, error) {
	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown engine %q (registered: %v)", name, r.Names())
	}
	return factory(opts)
}
