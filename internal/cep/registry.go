package cep

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Registry manages available lookup providers
type Registry struct {
	mu        sync.RWMutex
	providers map[string]ProviderFactory
}

// NewRegistry creates a new provider registry
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]ProviderFactory),
	}
}

// Register adds a new provider factory to the registry
func (r *Registry) Register(name string, factory ProviderFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[name]; exists {
		return fmt.Errorf("cep provider %s already registered", name)
	}

	r.providers[name] = factory
	return nil
}

// Create instantiates a provider by name
func (r *Registry) Create(name string, opts Options) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, exists := r.providers[name]
	if !exists {
		return nil, fmt.Errorf("cep provider %s not registered (available: %s)", name, strings.Join(r.namesLocked(), ", "))
	}

	return factory(opts), nil
}

// List returns all registered provider names, sorted
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namesLocked()
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var defaultRegistry = NewRegistry()

// Register adds a provider to the global registry
func Register(name string, factory ProviderFactory) error {
	return defaultRegistry.Register(name, factory)
}

// CreateProvider creates a provider from the global registry
func CreateProvider(name string, opts Options) (Provider, error) {
	return defaultRegistry.Create(name, opts)
}

// ListProviders returns all registered provider names from the global registry
func ListProviders() []string {
	return defaultRegistry.List()
}
