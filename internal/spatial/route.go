package spatial

import (
	"errors"
	"math"
)

// Route is a closed walk over waypoints: after the last waypoint it heads
// back to the first.
type Route struct {
	points []Point
	// cumulative[i] is the distance from points[0] to points[i];
	// the last entry closes the loop back to points[0]
	cumulative []float64
}

// NewRoute builds a looping route. At least two distinct waypoints are
// needed for the route to have a length.
func NewRoute(points []Point) (*Route, error) {
	if len(points) < 2 {
		return nil, errors.New("route needs at least two waypoints")
	}

	r := &Route{
		points:     append([]Point(nil), points...),
		cumulative: make([]float64, len(points)+1),
	}
	for i := 1; i <= len(points); i++ {
		a, b := r.points[i-1], r.points[i%len(points)]
		r.cumulative[i] = r.cumulative[i-1] + HaversineDistance(a.Lat, a.Lon, b.Lat, b.Lon)
	}
	if r.Length() == 0 {
		return nil, errors.New("route waypoints are all identical")
	}
	return r, nil
}

// Length is the distance of one full loop in meters
func (r *Route) Length() float64 {
	return r.cumulative[len(r.cumulative)-1]
}

// PositionAt returns the point reached after travelling distance meters
// from the first waypoint, and the bearing of the segment it lies on
func (r *Route) PositionAt(distance float64) (Point, float64) {
	length := r.Length()
	distance = math.Mod(distance, length)
	if distance < 0 {
		distance += length
	}

	n := len(r.points)
	for i := 1; i <= n; i++ {
		if distance > r.cumulative[i] {
			continue
		}
		a, b := r.points[i-1], r.points[i%n]
		segment := r.cumulative[i] - r.cumulative[i-1]
		if segment == 0 {
			continue
		}
		f := (distance - r.cumulative[i-1]) / segment
		lat, lon := Interpolate(a.Lat, a.Lon, b.Lat, b.Lon, f)
		return Point{Lat: lat, Lon: lon}, Bearing(a.Lat, a.Lon, b.Lat, b.Lon)
	}

	return r.points[0], 0
}
