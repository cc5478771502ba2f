// Package cep resolves Brazilian postal codes (CEP) to partial addresses.
package cep

import (
	"context"
	"errors"
	"time"
)

// Lookup outcomes other than success
var (
	ErrNotFound = errors.New("cep not found")
	ErrNetwork  = errors.New("cep service unreachable")
	ErrDisabled = errors.New("cep lookup disabled")
	ErrInvalid  = errors.New("cep must have 8 digits")
)

// Address is the part of an address a postal code determines. The house number never comes back.
type Address struct {
	Estado     string
	Cidade     string
	Bairro     string
	Logradouro string
}

// Provider defines what every postal lookup backend must implement
type Provider interface {
	// Name returns the provider identifier (e.g. "viacep")
	Name() string

	// IsEnabled reports whether the provider can serve lookups
	IsEnabled() bool

	// Lookup resolves an 8-digit code
	Lookup(ctx context.Context, digits string) (Address, error)
}

// Options configure a provider instance
type Options struct {
	Endpoint string
	Timeout  time.Duration
}

// ProviderFactory creates a new Provider instance
type ProviderFactory func(Options) Provider
