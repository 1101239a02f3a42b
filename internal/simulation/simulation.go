package simulation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jengzang/location-replay-go/internal/models"
	"github.com/jengzang/location-replay-go/internal/provider"
	"github.com/jengzang/location-replay-go/internal/registry"
)

// Simulation drives one run: every tick advances each pooled provider once
// and hands the resulting samples to the recorders.
type Simulation struct {
	// recMu orders ticks end to end, so recorders see them in sequence;
	// it is taken before mu
	recMu sync.Mutex
	mu    sync.Mutex

	ctx    *Context
	bundle *registry.Bundle
	runID  string
	tick   int64
	now    func() time.Time

	agents    []*Agent
	recorders []Recorder

	center    models.LatLng
	hasCenter bool
	unsubMap  func()
}

// Option configures a Simulation
type Option func(*Simulation)

// WithRecorder adds a recorder that receives every tick
func WithRecorder(r Recorder) Option {
	return func(s *Simulation) {
		if r != nil {
			s.recorders = append(s.recorders, r)
		}
	}
}

// WithRunID overrides the generated run id
func WithRunID(id string) Option {
	return func(s *Simulation) { s.runID = id }
}

// WithClock overrides the tick timestamp source
func WithClock(now func() time.Time) Option {
	return func(s *Simulation) { s.now = now }
}

// New creates a simulation over the bundle installed in ctx
func New(ctx *Context, opts ...Option) (*Simulation, error) {
	bundle, err := ctx.Bundle()
	if err != nil {
		return nil, fmt.Errorf("failed to create simulation: %w", err)
	}

	s := &Simulation{
		ctx:    ctx,
		bundle: bundle,
		runID:  uuid.NewString(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	// The map centers on the default provider's first usable fix.
	s.unsubMap = bundle.Default().OnLocationUpdated(func(loc models.Location) {
		if s.hasCenter || !loc.HasFix() {
			return
		}
		s.center = loc.LatitudeLongitude
		s.hasCenter = true
		log.Printf("Map centered on %s", s.center)
	})

	log.Printf("Simulation %s created with %d providers", s.runID, bundle.Len())
	return s, nil
}

// AddAgent registers a consumer with the bundle right away so that an
// exhausted pool is reported at startup
func (s *Simulation) AddAgent(name string) (*Agent, error) {
	a := NewAgent(name, s.ctx)
	if _, err := a.Provider(); err != nil {
		return nil, fmt.Errorf("failed to add agent: %w", err)
	}

	s.mu.Lock()
	s.agents = append(s.agents, a)
	s.mu.Unlock()

	log.Printf("Agent %s bound to provider %d", name, a.Index())
	return a, nil
}

// Tick advances every provider once, in bundle order. A provider error
// aborts the tick before any recorder runs. Concurrent calls are
// serialized, recorders included.
func (s *Simulation) Tick(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.recMu.Lock()
	defer s.recMu.Unlock()

	s.mu.Lock()
	providers := s.bundle.Providers()
	for i, p := range providers {
		if err := p.Update(); err != nil {
			s.mu.Unlock()
			return 0, fmt.Errorf("failed to advance provider %d (%s): %w", i, p.Name(), err)
		}
	}
	for _, a := range s.agents {
		a.observe(a.provider.CurrentLocation())
	}
	s.tick++

	rec := TickRecord{
		RunID:   s.runID,
		Tick:    s.tick,
		At:      s.now().UTC(),
		Samples: s.samplesLocked(providers),
	}
	recorders := append([]Recorder(nil), s.recorders...)
	s.mu.Unlock()

	var errs []error
	for _, r := range recorders {
		if err := r.Record(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return rec.Tick, &recordError{tick: rec.Tick, err: err}
	}
	return rec.Tick, nil
}

// recordError reports recorder failures; the tick itself did advance
type recordError struct {
	tick int64
	err  error
}

func (e *recordError) Error() string {
	return fmt.Sprintf("failed to record tick %d: %v", e.tick, e.err)
}

func (e *recordError) Unwrap() error { return e.err }

func (s *Simulation) samplesLocked(providers []provider.LocationProvider) []TickSample {
	bound := make(map[int][]string)
	for _, a := range s.agents {
		bound[a.Index()] = append(bound[a.Index()], a.Name())
	}

	samples := make([]TickSample, len(providers))
	for i, p := range providers {
		samples[i] = TickSample{
			ProviderIndex: i,
			ProviderName:  p.Name(),
			Agents:        bound[i],
			Location:      p.CurrentLocation(),
			State:         p.UserState(),
		}
	}
	return samples
}

// Run ticks at the given interval until ctx is cancelled. Recording
// failures are logged; a provider failure stops the run.
func (s *Simulation) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("%w: tick interval must be positive", models.ErrConfiguration)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("Simulation %s running every %s", s.runID, interval)
	for {
		select {
		case <-ctx.Done():
			log.Printf("Simulation %s stopped after %d ticks", s.runID, s.TickCount())
			return nil
		case <-ticker.C:
			if _, err := s.Tick(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				var recErr *recordError
				if errors.As(err, &recErr) {
					log.Printf("Warning: %v", err)
					continue
				}
				return err
			}
		}
	}
}

// Providers returns the current reading of every pooled provider
func (s *Simulation) Providers() []models.ProviderSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	providers := s.bundle.Providers()
	out := make([]models.ProviderSnapshot, len(providers))
	for i, p := range providers {
		out[i] = providerSnapshot(i, p)
	}
	return out
}

// Provider returns the current reading of the provider at index
func (s *Simulation) Provider(index int) (models.ProviderSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.bundle.ProviderAt(index)
	if err != nil {
		return models.ProviderSnapshot{}, err
	}
	return providerSnapshot(index, p), nil
}

func providerSnapshot(index int, p provider.LocationProvider) models.ProviderSnapshot {
	return models.ProviderSnapshot{
		Index:    index,
		Name:     p.Name(),
		Kind:     p.Kind(),
		Location: p.CurrentLocation(),
		State:    p.UserState(),
	}
}

// Agents returns a snapshot of every registered agent
func (s *Simulation) Agents() []models.AgentSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.AgentSnapshot, len(s.agents))
	for i, a := range s.agents {
		out[i] = a.snapshot()
	}
	return out
}

// MapCenter is the first fix of the default provider, if any yet
func (s *Simulation) MapCenter() (models.LatLng, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.center, s.hasCenter
}

func (s *Simulation) RunID() string { return s.runID }

// ProviderCount is the number of pooled providers
func (s *Simulation) ProviderCount() int { return s.bundle.Len() }

func (s *Simulation) TickCount() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tick
}

// Close releases the bundle and closes recorders that hold resources
func (s *Simulation) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unsubMap != nil {
		s.unsubMap()
		s.unsubMap = nil
	}

	var errs []error
	for _, r := range s.recorders {
		if c, ok := r.(interface{ Close() error }); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if err := s.bundle.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
