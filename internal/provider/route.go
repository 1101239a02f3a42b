package provider

import (
	"fmt"
	"time"

	"github.com/jengzang/location-replay-go/internal/models"
	"github.com/jengzang/location-replay-go/internal/spatial"
)

const (
	KindRoute = "route"

	routeProviderName  = "route"
	routeProviderClass = "RouteProvider"
)

// RouteProvider produces live-style samples by walking a looping route at
// a fixed speed, one step per Update. Until the first Update it reports
// the location service as initializing.
type RouteProvider struct {
	name     string
	route    *spatial.Route
	speedMps float64
	step     time.Duration
	accuracy float64
	now      func() time.Time

	travelled float64
	started   bool
	current   models.Location

	notifier
}

// RouteOption customises a RouteProvider
type RouteOption func(*RouteProvider)

// WithClock replaces time.Now as the source of sample timestamps
func WithClock(now func() time.Time) RouteOption {
	return func(p *RouteProvider) { p.now = now }
}

// WithAccuracy sets the accuracy reported with every sample, in meters
func WithAccuracy(meters float64) RouteOption {
	return func(p *RouteProvider) { p.accuracy = meters }
}

// NewRouteProvider walks waypoints at speedMps, advancing step of
// simulated time per Update
func NewRouteProvider(name string, waypoints []models.LatLng, speedMps float64, step time.Duration, opts ...RouteOption) (*RouteProvider, error) {
	if speedMps < 0 {
		return nil, fmt.Errorf("%w: route provider %s has negative speed", models.ErrConfiguration, name)
	}
	if step <= 0 {
		return nil, fmt.Errorf("%w: route provider %s needs a positive step", models.ErrConfiguration, name)
	}

	points := make([]spatial.Point, len(waypoints))
	for i, w := range waypoints {
		points[i] = spatial.Point{Lat: w.Lat, Lon: w.Lng}
	}
	route, err := spatial.NewRoute(points)
	if err != nil {
		return nil, fmt.Errorf("%w: route provider %s: %v", models.ErrConfiguration, name, err)
	}

	p := &RouteProvider{
		name:     name,
		route:    route,
		speedMps: speedMps,
		step:     step,
		accuracy: 5,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}

	p.current = models.Location{
		IsLocationServiceInitializing: true,
		Provider:                      routeProviderName,
		ProviderClass:                 routeProviderClass,
	}
	return p, nil
}

func (p *RouteProvider) Name() string { return p.name }
func (p *RouteProvider) Kind() string { return KindRoute }

func (p *RouteProvider) CurrentLocation() models.Location { return p.current }
func (p *RouteProvider) UserState() models.UserState      { return models.UserState{} }

func (p *RouteProvider) OnLocationUpdated(fn func(models.Location)) func() {
	return p.subscribe(fn)
}

// Update reports the start waypoint on the first call and moves along the
// route on every later one
func (p *RouteProvider) Update() error {
	if p.started {
		p.travelled += p.speedMps * p.step.Seconds()
	}
	p.started = true

	pos, heading := p.route.PositionAt(p.travelled)
	speed := p.speedMps * 3.6
	now := p.now().UTC()

	p.current = models.Location{
		IsLocationServiceEnabled: true,
		IsLocationUpdated:        true,
		IsUserHeadingUpdated:     true,
		Provider:                 routeProviderName,
		ProviderClass:            routeProviderClass,
		DeviceTime:               now,
		Timestamp:                now,
		LatitudeLongitude:        models.LatLng{Lat: pos.Lat, Lng: pos.Lon},
		Accuracy:                 p.accuracy,
		UserHeading:              heading,
		SpeedKmPerHour:           &speed,
	}
	p.publish(p.current)
	return nil
}

// Travelled is the distance covered so far in meters
func (p *RouteProvider) Travelled() float64 { return p.travelled }
