package registry

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/jengzang/location-replay-go/internal/models"
	"github.com/jengzang/location-replay-go/internal/provider"
)

var (
	// ErrPoolExhausted is returned by Register once every provider is taken
	ErrPoolExhausted = errors.New("provider pool exhausted")
	// ErrUnknownProvider is returned for a handle outside the pool
	ErrUnknownProvider = errors.New("unknown provider")
)

// Bundle is a fixed, ordered pool of providers. Consumers register once
// and receive the next unused slot; the pool never shrinks or reorders.
type Bundle struct {
	mu         sync.Mutex
	providers  []provider.LocationProvider
	registered int
}

// New builds a pool over providers. An empty pool is a configuration error.
func New(providers []provider.LocationProvider) (*Bundle, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("%w: empty list of providers", models.ErrConfiguration)
	}
	for i, p := range providers {
		if p == nil {
			return nil, fmt.Errorf("%w: provider %d is nil", models.ErrConfiguration, i)
		}
	}

	return &Bundle{
		providers: append([]provider.LocationProvider(nil), providers...),
	}, nil
}

// Register hands out the next provider index, starting at 0
func (b *Bundle) Register() (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.registered == len(b.providers) {
		return 0, fmt.Errorf("%w: all %d providers are registered", ErrPoolExhausted, len(b.providers))
	}
	idx := b.registered
	b.registered++
	return idx, nil
}

// ProviderAt returns the provider bound to a handle from Register
func (b *Bundle) ProviderAt(index int) (provider.LocationProvider, error) {
	if index < 0 || index >= len(b.providers) {
		return nil, fmt.Errorf("%w: index %d outside pool of %d", ErrUnknownProvider, index, len(b.providers))
	}
	return b.providers[index], nil
}

// Default is the first provider of the pool
func (b *Bundle) Default() provider.LocationProvider {
	return b.providers[0]
}

// Len is the pool capacity
func (b *Bundle) Len() int { return len(b.providers) }

// Registered is the number of handles given out so far
func (b *Bundle) Registered() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.registered
}

// Providers returns the pool in order
func (b *Bundle) Providers() []provider.LocationProvider {
	return append([]provider.LocationProvider(nil), b.providers...)
}

// Close releases every provider that holds resources
func (b *Bundle) Close() error {
	var errs []error
	for _, p := range b.providers {
		if c, ok := p.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("failed to close provider %s: %w", p.Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}
