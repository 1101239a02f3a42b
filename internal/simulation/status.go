package simulation

import (
	"fmt"
	"strings"

	"github.com/jengzang/location-replay-go/internal/models"
)

// Status messages shown for samples without a usable position
const (
	StatusInitializing = "location services are initializing"
	StatusDisabled     = "location services not enabled"
	StatusWaiting      = "Waiting for location ...."
)

// StatusText renders the one-line status of a consumer
func StatusText(loc models.Location, state models.UserState) string {
	switch {
	case loc.IsLocationServiceInitializing:
		return StatusInitializing
	case !loc.IsLocationServiceEnabled:
		return StatusDisabled
	case !loc.HasFix():
		return StatusWaiting
	}

	names := state.Names()
	if len(names) == 0 {
		return loc.LatitudeLongitude.String()
	}

	parts := make([]string, 0, len(names))
	for _, name := range names {
		v, _ := state.Value(name)
		parts = append(parts, fmt.Sprintf("%s = %s", name, v))
	}
	return fmt.Sprintf("%s - %s", loc.LatitudeLongitude, strings.Join(parts, ", "))
}

// BatteryLabel formats a [0,1] charge level as a percentage; low is set
// below 10%
func BatteryLabel(level float64) (label string, low bool) {
	return fmt.Sprintf("%.0f%%", 100*level), level < 0.1
}
