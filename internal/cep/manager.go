package cep

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Manager picks a provider and normalizes lookups against it
type Manager struct {
	provider Provider
	logger   *zap.Logger
}

// NewManager creates a manager for the named provider.
// If name is empty, it tries providers in order of preference.
func NewManager(name string, opts Options, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var provider Provider
	if name != "" {
		p, err := CreateProvider(name, opts)
		if err != nil {
			return nil, fmt.Errorf("creating cep provider %s: %w", name, err)
		}
		provider = p
	} else {
		for _, candidate := range []string{"viacep", "noop"} {
			p, err := CreateProvider(candidate, opts)
			if err != nil {
				continue
			}
			if p.IsEnabled() {
				provider = p
				break
			}
		}
		if provider == nil {
			provider = NewNoopProvider(opts)
		}
	}

	return NewManagerWith(provider, logger), nil
}

// NewManagerWith wraps an already built provider
func NewManagerWith(provider Provider, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{provider: provider, logger: logger.Named("cep")}
}

// Name returns the name of the current provider
func (m *Manager) Name() string {
	return m.provider.Name()
}

// IsEnabled returns whether the current provider is enabled
func (m *Manager) IsEnabled() bool {
	return m.provider.IsEnabled()
}

// Lookup strips non-digits from code and resolves it. Codes that do not have
// exactly 8 digits fail with ErrInvalid without reaching the provider.
func (m *Manager) Lookup(ctx context.Context, code string) (Address, error) {
	digits := Digits(code)
	if len(digits) != Length {
		return Address{}, ErrInvalid
	}
	if !m.IsEnabled() {
		return Address{}, ErrDisabled
	}

	addr, err := m.provider.Lookup(ctx, digits)
	if err != nil {
		m.logger.Debug("cep lookup failed",
			zap.String("provider", m.provider.Name()),
			zap.String("cep", digits),
			zap.Error(err))
		return Address{}, err
	}

	m.logger.Debug("cep resolved",
		zap.String("provider", m.provider.Name()),
		zap.String("cep", digits),
		zap.String("cidade", addr.Cidade))
	return addr, nil
}
