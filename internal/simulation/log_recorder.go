package simulation

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jengzang/location-replay-go/internal/locationlog"
	"github.com/jengzang/location-replay-go/internal/provider"
)

// LogRecorder writes every tick to one location log per provider, so a
// run can be replayed later
type LogRecorder struct {
	writers []*locationlog.Writer
	paths   []string
}

// NewLogRecorder opens a log for each provider under dir/<index>-<name>.
// Replay providers keep the schema they were read with; others are
// recorded with the location-only track schema.
func NewLogRecorder(dir string, providers []provider.LocationProvider, now time.Time) (*LogRecorder, error) {
	lr := &LogRecorder{}
	for i, p := range providers {
		schema := locationlog.Track
		if sp, ok := p.(interface{ Schema() *locationlog.Schema }); ok && sp.Schema() != nil {
			schema = sp.Schema()
		}

		sub := filepath.Join(dir, strconv.Itoa(i)+"-"+p.Name())
		w, path, err := locationlog.CreateLogFile(sub, schema, now)
		if err != nil {
			lr.Close()
			return nil, fmt.Errorf("failed to open log for provider %d: %w", i, err)
		}
		lr.writers = append(lr.writers, w)
		lr.paths = append(lr.paths, path)
	}
	return lr, nil
}

func (lr *LogRecorder) Record(_ context.Context, rec TickRecord) error {
	var errs []error
	for _, s := range rec.Samples {
		if s.ProviderIndex < 0 || s.ProviderIndex >= len(lr.writers) {
			continue
		}
		err := lr.writers[s.ProviderIndex].Write(locationlog.Record{Location: s.Location, State: s.State})
		if err != nil {
			errs = append(errs, fmt.Errorf("provider %d: %w", s.ProviderIndex, err))
		}
	}
	return errors.Join(errs...)
}

// Paths lists the log files, indexed like the providers
func (lr *LogRecorder) Paths() []string { return lr.paths }

func (lr *LogRecorder) Close() error {
	var errs []error
	for _, w := range lr.writers {
		if err := w.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
