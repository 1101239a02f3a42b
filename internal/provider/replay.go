package provider

import (
	"fmt"

	"github.com/jengzang/location-replay-go/internal/locationlog"
	"github.com/jengzang/location-replay-go/internal/models"
)

const (
	KindReplay = "replay"

	replayProviderName  = "replay"
	replayProviderClass = "ReplayProvider"
)

// ReplayProvider serves a location log as if it were a live feed. Each
// Update pulls one record from the cyclic reader and replaces the current
// sample; nothing is buffered.
type ReplayProvider struct {
	name   string
	reader *locationlog.Reader

	current models.Location
	state   models.UserState

	notifier
}

// NewReplayProvider takes ownership of reader; Close releases it
func NewReplayProvider(name string, reader *locationlog.Reader) (*ReplayProvider, error) {
	if reader == nil {
		return nil, fmt.Errorf("%w: replay provider %s has no reader", models.ErrConfiguration, name)
	}
	return &ReplayProvider{name: name, reader: reader}, nil
}

func (p *ReplayProvider) Name() string { return p.name }
func (p *ReplayProvider) Kind() string { return KindReplay }

func (p *ReplayProvider) CurrentLocation() models.Location { return p.current }
func (p *ReplayProvider) UserState() models.UserState      { return p.state }

func (p *ReplayProvider) OnLocationUpdated(fn func(models.Location)) func() {
	return p.subscribe(fn)
}

// Update reads the next record. Replayed data is always available, so the
// service flags are forced on regardless of what the log recorded.
func (p *ReplayProvider) Update() error {
	rec, err := p.reader.Next()
	if err != nil {
		return fmt.Errorf("replay provider %s: %w", p.name, err)
	}

	loc := rec.Location
	loc.IsLocationServiceEnabled = true
	loc.IsLocationServiceInitializing = false
	loc.IsLocationUpdated = true
	if loc.Provider == "" {
		loc.Provider = replayProviderName
	}
	if loc.ProviderClass == "" {
		loc.ProviderClass = replayProviderClass
	}

	p.current = loc
	p.state = rec.State
	p.publish(loc)
	return nil
}

// Schema returns the layout of the replayed log
func (p *ReplayProvider) Schema() *locationlog.Schema {
	return p.reader.Schema()
}

// Close releases the reader. Closing twice is a no-op.
func (p *ReplayProvider) Close() error {
	return p.reader.Close()
}
