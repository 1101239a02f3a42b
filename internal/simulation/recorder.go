package simulation

import (
	"context"
	"time"

	"github.com/jengzang/location-replay-go/internal/models"
)

// TickSample is one provider reading captured after a tick
type TickSample struct {
	ProviderIndex int
	ProviderName  string
	Agents        []string
	Location      models.Location
	State         models.UserState
}

// TickRecord is everything a recorder receives for one tick
type TickRecord struct {
	RunID   string
	Tick    int64
	At      time.Time
	Samples []TickSample
}

// Recorder consumes tick records, e.g. to persist them
type Recorder interface {
	Record(ctx context.Context, rec TickRecord) error
}

// RecorderFunc adapts a function to Recorder
type RecorderFunc func(ctx context.Context, rec TickRecord) error

func (f RecorderFunc) Record(ctx context.Context, rec TickRecord) error {
	return f(ctx, rec)
}
