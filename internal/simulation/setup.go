package simulation

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jengzang/location-replay-go/internal/config"
	"github.com/jengzang/location-replay-go/internal/locationlog"
	"github.com/jengzang/location-replay-go/internal/models"
	"github.com/jengzang/location-replay-go/internal/provider"
	"github.com/jengzang/location-replay-go/internal/registry"
)

// BuildProviders constructs the configured providers in order. On failure
// the providers built so far are released.
func BuildProviders(cfg *config.Config) ([]provider.LocationProvider, error) {
	providers := make([]provider.LocationProvider, 0, len(cfg.Providers))
	release := func() {
		for _, p := range providers {
			if c, ok := p.(interface{ Close() error }); ok {
				c.Close()
			}
		}
	}

	for i, pc := range cfg.Providers {
		p, err := buildProvider(pc, cfg)
		if err != nil {
			release()
			return nil, fmt.Errorf("failed to build provider %d (%s): %w", i, pc.Name, err)
		}
		providers = append(providers, p)
	}
	return providers, nil
}

func buildProvider(pc config.ProviderConfig, cfg *config.Config) (provider.LocationProvider, error) {
	switch pc.Kind {
	case config.KindReplay:
		contents, err := os.ReadFile(pc.LogFile)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read location log: %v", models.ErrConfiguration, err)
		}
		name := pc.Schema
		if name == "" {
			name = locationlog.SchemaAuto
		}
		reader, err := locationlog.Open(contents, name)
		if err != nil {
			return nil, err
		}
		p, err := provider.NewReplayProvider(pc.Name, reader)
		if err != nil {
			return nil, err
		}
		log.Printf("Replaying %s with schema %s", pc.LogFile, reader.Schema().Name())
		return p, nil

	case config.KindRoute:
		waypoints := make([]models.LatLng, len(pc.Waypoints))
		for i, w := range pc.Waypoints {
			waypoints[i] = models.LatLng{Lat: w[0], Lng: w[1]}
		}
		var opts []provider.RouteOption
		if pc.AccuracyM > 0 {
			opts = append(opts, provider.WithAccuracy(pc.AccuracyM))
		}
		p, err := provider.NewRouteProvider(pc.Name, waypoints, pc.SpeedMps, cfg.TickInterval, opts...)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	return nil, fmt.Errorf("%w: unknown provider kind %q", models.ErrConfiguration, pc.Kind)
}

// Setup builds the providers, installs them into a new context and
// registers the configured agents. With a record directory configured,
// every tick is also written to location logs.
func Setup(cfg *config.Config, opts ...Option) (*Simulation, error) {
	providers, err := BuildProviders(cfg)
	if err != nil {
		return nil, err
	}
	bundle, err := registry.New(providers)
	if err != nil {
		return nil, err
	}

	if cfg.RecordDir != "" {
		lr, err := NewLogRecorder(cfg.RecordDir, providers, time.Now())
		if err != nil {
			bundle.Close()
			return nil, err
		}
		opts = append(opts, WithRecorder(lr))
	}

	ctx := NewContext()
	ctx.Install(bundle)

	sim, err := New(ctx, opts...)
	if err != nil {
		bundle.Close()
		return nil, err
	}
	for _, name := range cfg.AgentNames() {
		if _, err := sim.AddAgent(name); err != nil {
			sim.Close()
			return nil, err
		}
	}
	return sim, nil
}
