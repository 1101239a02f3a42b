package simulation

import (
	"fmt"
	"log"
	"sync"

	"github.com/jengzang/location-replay-go/internal/models"
	"github.com/jengzang/location-replay-go/internal/registry"
)

// Context scopes one simulation run. It holds the run's provider bundle:
// the first bundle installed wins and later ones are released and
// discarded.
type Context struct {
	mu     sync.Mutex
	bundle *registry.Bundle
}

func NewContext() *Context {
	return &Context{}
}

// Install sets the run's bundle unless one is already installed, and
// returns the bundle in effect
func (c *Context) Install(b *registry.Bundle) *registry.Bundle {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.bundle == nil {
		c.bundle = b
		return b
	}

	if b != nil && b != c.bundle {
		log.Printf("Discarding provider bundle of %d providers: run already has one", b.Len())
		if err := b.Close(); err != nil {
			log.Printf("Warning: failed to release discarded bundle: %v", err)
		}
	}
	return c.bundle
}

// Bundle returns the installed bundle
func (c *Context) Bundle() (*registry.Bundle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.bundle == nil {
		return nil, fmt.Errorf("%w: no provider bundle installed", models.ErrConfiguration)
	}
	return c.bundle, nil
}
