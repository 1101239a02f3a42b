// Package provider exposes location sources behind one capability: a pull
// accessor for the latest sample, an advance driven by the host tick, and
// a notification fired after every successful advance. Replayed logs and
// live-style sources implement it alike.
package provider

import (
	"sync"

	"github.com/jengzang/location-replay-go/internal/models"
)

// LocationProvider is what consumers depend on
type LocationProvider interface {
	// Name identifies the provider in logs and snapshots
	Name() string
	// Kind is "replay" or "route"
	Kind() string
	// CurrentLocation returns the sample produced by the latest Update
	CurrentLocation() models.Location
	// UserState returns the state attached to the latest sample; live
	// providers without state return an empty UserState
	UserState() models.UserState
	// Update advances the provider by one host tick
	Update() error
	// OnLocationUpdated registers fn to be called after each successful
	// Update; the returned func removes it
	OnLocationUpdated(fn func(models.Location)) (remove func())
}

// notifier fans a location out to registered callbacks
type notifier struct {
	mu       sync.Mutex
	nextID   int
	handlers map[int]func(models.Location)
	order    []int
}

func (n *notifier) subscribe(fn func(models.Location)) func() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.handlers == nil {
		n.handlers = make(map[int]func(models.Location))
	}
	id := n.nextID
	n.nextID++
	n.handlers[id] = fn
	n.order = append(n.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			delete(n.handlers, id)
			for i, v := range n.order {
				if v == id {
					n.order = append(n.order[:i], n.order[i+1:]...)
					break
				}
			}
		})
	}
}

// publish calls handlers in subscription order. Handlers may unsubscribe
// themselves while being called.
func (n *notifier) publish(loc models.Location) {
	n.mu.Lock()
	fns := make([]func(models.Location), 0, len(n.order))
	for _, id := range n.order {
		fns = append(fns, n.handlers[id])
	}
	n.mu.Unlock()

	for _, fn := range fns {
		fn(loc)
	}
}

var (
	_ LocationProvider = (*ReplayProvider)(nil)
	_ LocationProvider = (*RouteProvider)(nil)
)
