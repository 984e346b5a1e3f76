package hook

import (
	"sort"
	"sync"

	"github.com/fulmenhq/affiance/pkg/config"
)

// Factory builds a built-in check from the hook's effective options.
type Factory func(opts config.Options) (Check, error)

// Registry maps (hook type config name, hook name) to a factory.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]map[string]Factory
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]map[string]Factory)}
}

// Register adds a factory, replacing any previous one for the same hook.
func (r *Registry) Register(hookType, name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.factories[hookType] == nil {
		r.factories[hookType] = make(map[string]Factory)
	}
	r.factories[hookType][name] = f
}

// Lookup returns the factory for a hook.
func (r *Registry) Lookup(hookType, name string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[hookType][name]
	return f, ok
}

// Has implements config.BuiltIns.
func (r *Registry) Has(hookType, name string) bool {
	_, ok := r.Lookup(hookType, name)
	return ok
}

// Names implements config.BuiltIns; names are sorted.
func (r *Registry) Names(hookType string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories[hookType]))
	for name := range r.factories[hookType] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var _ config.BuiltIns = (*Registry)(nil)

// Global registry instance
var globalRegistry = NewRegistry()

// Register adds a built-in hook to the global registry.
func Register(hookType, name string, f Factory) {
	globalRegistry.Register(hookType, name, f)
}

// DefaultRegistry returns the global registry
func DefaultRegistry() *Registry { return globalRegistry }

// ResetRegistryForTesting creates a fresh registry and sets it globally for test isolation
func ResetRegistryForTesting() *Registry {
	saved := globalRegistry
	globalRegistry = NewRegistry()
	return saved
}

// RestoreRegistry restores a previously saved registry for test teardown
func RestoreRegistry(saved *Registry) {
	globalRegistry = saved
}
