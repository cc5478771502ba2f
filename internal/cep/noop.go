package cep

import "context"

// NoopProvider is used when postal lookups are switched off
type NoopProvider struct{}

// NewNoopProvider creates a new no-op provider
func NewNoopProvider(Options) Provider {
	return &NoopProvider{}
}

// Name returns the provider identifier
func (n *NoopProvider) Name() string {
	return "noop"
}

// IsEnabled always returns false for the noop provider
func (n *NoopProvider) IsEnabled() bool {
	return false
}

// Lookup always reports that lookups are disabled
func (n *NoopProvider) Lookup(context.Context, string) (Address, error) {
	return Address{}, ErrDisabled
}

func init() {
	Register("noop", NewNoopProvider)
}
