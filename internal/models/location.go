package models

import (
	"fmt"
	"time"
)

// LatLng is a geographic coordinate in degrees
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ZeroLatLng is the sentinel coordinate of a sample without a usable fix.
// It never denotes a real reading at (0,0).
var ZeroLatLng = LatLng{}

// IsZero reports whether c is the no-fix sentinel
func (c LatLng) IsZero() bool {
	return c.Lat == 0 && c.Lng == 0
}

func (c LatLng) String() string {
	return fmt.Sprintf("%.8f, %.8f", c.Lat, c.Lng)
}

// Location is one location sample, either replayed from a log or produced live
type Location struct {
	IsLocationServiceEnabled      bool   `json:"isLocationServiceEnabled"`
	IsLocationServiceInitializing bool   `json:"isLocationServiceInitializing"`
	IsLocationUpdated             bool   `json:"isLocationUpdated"`
	IsUserHeadingUpdated          bool   `json:"isUserHeadingUpdated"`
	Provider                      string `json:"provider"`
	ProviderClass                 string `json:"providerClass"`

	DeviceTime time.Time `json:"deviceTime"` // device clock (UTC) when the sample was logged
	Timestamp  time.Time `json:"timestamp"`  // fix time (UTC)

	LatitudeLongitude LatLng  `json:"latitudeLongitude"`
	Accuracy          float64 `json:"accuracy"`          // metres
	UserHeading       float64 `json:"userHeading"`       // degrees from true north
	DeviceOrientation float64 `json:"deviceOrientation"` // degrees

	// Optional readings; nil when the recording device did not support them
	SpeedKmPerHour   *float64 `json:"speedKmPerHour,omitempty"`
	HasGpsFix        *bool    `json:"hasGpsFix,omitempty"`
	SatellitesUsed   *int     `json:"satellitesUsed,omitempty"`
	SatellitesInView *int     `json:"satellitesInView,omitempty"`
}

// HasFix reports whether the sample carries a usable coordinate
func (l Location) HasFix() bool {
	return !l.LatitudeLongitude.IsZero()
}
