package simulation

import (
	"fmt"

	"github.com/jengzang/location-replay-go/internal/models"
	"github.com/jengzang/location-replay-go/internal/provider"
	"github.com/jengzang/location-replay-go/internal/spatial"
)

// Agent is a consumer bound to one pooled provider. It registers with the
// run's bundle on first use and keeps that provider for the whole run.
type Agent struct {
	name string
	ctx  *Context

	index    int
	provider provider.LocationProvider

	distance float64
	last     models.LatLng
	hasLast  bool
}

func NewAgent(name string, ctx *Context) *Agent {
	return &Agent{name: name, ctx: ctx, index: -1}
}

func (a *Agent) Name() string { return a.name }

// Provider returns the agent's provider, registering on first call
func (a *Agent) Provider() (provider.LocationProvider, error) {
	if a.provider != nil {
		return a.provider, nil
	}

	bundle, err := a.ctx.Bundle()
	if err != nil {
		return nil, err
	}
	idx, err := bundle.Register()
	if err != nil {
		return nil, fmt.Errorf("agent %s: %w", a.name, err)
	}
	p, err := bundle.ProviderAt(idx)
	if err != nil {
		return nil, fmt.Errorf("agent %s: %w", a.name, err)
	}

	a.index = idx
	a.provider = p
	return p, nil
}

// Index is the registry handle, or -1 before registration
func (a *Agent) Index() int { return a.index }

// Position is the latest coordinate of the agent's provider
func (a *Agent) Position() models.LatLng {
	if a.provider == nil {
		return models.ZeroLatLng
	}
	return a.provider.CurrentLocation().LatitudeLongitude
}

// Distance is the great-circle distance covered between fixes, in meters
func (a *Agent) Distance() float64 { return a.distance }

// observe feeds the odometer; samples without a fix are skipped
func (a *Agent) observe(loc models.Location) {
	if !loc.HasFix() {
		return
	}
	cur := loc.LatitudeLongitude
	if a.hasLast {
		a.distance += spatial.HaversineDistance(a.last.Lat, a.last.Lng, cur.Lat, cur.Lng)
	}
	a.last = cur
	a.hasLast = true
}

func (a *Agent) snapshot() models.AgentSnapshot {
	snap := models.AgentSnapshot{
		Name:          a.name,
		ProviderIndex: a.index,
		DistanceM:     a.distance,
	}
	if a.provider == nil {
		snap.Status = StatusInitializing
		return snap
	}

	snap.Location = a.provider.CurrentLocation()
	snap.State = a.provider.UserState()
	snap.Status = StatusText(snap.Location, snap.State)
	if level, ok := snap.State.BatteryLevel(); ok {
		snap.Battery, snap.BatteryLow = BatteryLabel(level)
	}
	return snap
}

// State is the latest user state of the agent's provider
func (a *Agent) State() models.UserState {
	if a.provider == nil {
		return models.UserState{}
	}
	return a.provider.UserState()
}

// Status is the one-line status text of the agent
func (a *Agent) Status() string {
	if a.provider == nil {
		return StatusInitializing
	}
	return StatusText(a.provider.CurrentLocation(), a.provider.UserState())
}
