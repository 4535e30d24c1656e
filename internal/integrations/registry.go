// ABOUTME: Thread-safe registry of integrations keyed by provider name
// ABOUTME: Built once in the composition root and passed by reference

package integrations

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// ErrProviderNotFound indicates the named provider is not registered.
var ErrProviderNotFound = errors.New("provider not found")

// ErrProviderAlreadyRegistered indicates a duplicate registration.
var ErrProviderAlreadyRegistered = errors.New("provider already registered")

// Registry maintains the set of available integrations. Registration happens
// at startup; lookups are concurrent-safe for the server's lifetime.
type Registry struct {
	mu           sync.RWMutex
	integrations map[string]Integration
	logger       *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		integrations: make(map[string]Integration),
		logger:       slog.Default().With("component", "integrations"),
	}
}

// Register adds an integration. Returns ErrProviderAlreadyRegistered if the
// name is taken.
func (r *Registry) Register(integration Integration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := integration.Name()
	if name == "" || strings.Contains(name, "__") {
		return fmt.Errorf("invalid provider name %q", name)
	}
	if _, exists := r.integrations[name]; exists {
		return fmt.Errorf("%w: %s", ErrProviderAlreadyRegistered, name)
	}
	r.integrations[name] = integration
	r.logger.Info("integration registered", "provider", name, "auth_type", integration.AuthType(), "configured", integration.IsConfigured())
	return nil
}

// Get returns the integration for a provider name.
func (r *Registry) Get(name string) (Integration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	integration, ok := r.integrations[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, name)
	}
	return integration, nil
}

// All returns every registered integration sorted by name.
func (r *Registry) All() []Integration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Integration, 0, len(r.integrations))
	for _, integration := range r.integrations {
		out = append(out, integration)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Configured returns the integrations whose provider-level credentials are
// present, sorted by name.
func (r *Registry) Configured() []Integration {
	all := r.All()
	out := all[:0]
	for _, integration := range all {
		if integration.IsConfigured() {
			out = append(out, integration)
		}
	}
	return out
}
