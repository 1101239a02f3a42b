package spatial

import (
	"math"
	"testing"
)

func near(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

func TestHaversineDistance(t *testing.T) {
	d := HaversineDistance(0, 0, 1, 0)
	if !near(d, 111195, 1) {
		t.Fatalf("expected ~111195 m per degree, got %v", d)
	}
	if HaversineDistance(32.88, -117.23, 32.88, -117.23) != 0 {
		t.Fatal("expected zero distance for identical points")
	}
}

func TestBearing(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		want                   float64
	}{
		{name: "north", lat2: 1, want: 0},
		{name: "east", lon2: 1, want: 90},
		{name: "south", lat1: 1, want: 180},
		{name: "west", lon1: 1, want: 270},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Bearing(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if !near(got, tt.want, 1e-9) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestInterpolate(t *testing.T) {
	lat, lon := Interpolate(0, 0, 0, 10, 0.5)
	if !near(lat, 0, 1e-9) || !near(lon, 5, 1e-9) {
		t.Fatalf("expected (0,5), got (%v,%v)", lat, lon)
	}
}

func TestGeohash(t *testing.T) {
	tests := []struct {
		lat, lon  float64
		precision int
		want      string
	}{
		{lat: 42.6, lon: -5.6, precision: 5, want: "ezs42"},
		{lat: 57.64911, lon: 10.40744, precision: 11, want: "u4pruydqqvj"},
		{lat: 42.6, lon: -5.6, precision: 0, want: "e"},
	}
	for _, tt := range tests {
		if got := EncodeGeohash(tt.lat, tt.lon, tt.precision); got != tt.want {
			t.Fatalf("EncodeGeohash(%v, %v, %d) = %s, want %s", tt.lat, tt.lon, tt.precision, got, tt.want)
		}
	}
	if got := EncodeGeohash(42.6, -5.6, 20); len(got) != MaxGeohashPrecision {
		t.Fatalf("expected precision clamped to %d, got %q", MaxGeohashPrecision, got)
	}
}

func TestIsGeohash(t *testing.T) {
	for s, want := range map[string]bool{
		"9mudq":         true,
		"":              false,
		"9mu%":          false,
		"9mua":          false,
		"9MUDQ":         false,
		"0123456789bcd": false,
	} {
		if got := IsGeohash(s); got != want {
			t.Fatalf("IsGeohash(%q) = %v, want %v", s, got, want)
		}
	}
}

func TestGeohashPrefixRange(t *testing.T) {
	lo, hi := GeohashPrefixRange("9mu")
	for _, h := range []string{"9mu", "9mu0", "9muzzzz"} {
		if h < lo || h >= hi {
			t.Fatalf("expected %q inside [%q, %q)", h, lo, hi)
		}
	}
	if "9mv" < hi {
		t.Fatalf("expected 9mv outside the range ending at %q", hi)
	}
}

func TestCircularMeanDegrees(t *testing.T) {
	got := CircularMeanDegrees([]float64{350, 10})
	if !near(got, 0, 1e-9) && !near(got, 360, 1e-9) {
		t.Fatalf("expected mean heading 0, got %v", got)
	}
	if got := CircularMeanDegrees([]float64{80, 100}); !near(got, 90, 1e-9) {
		t.Fatalf("expected 90, got %v", got)
	}
}

func TestCentroidAndPathLength(t *testing.T) {
	pts := []Point{{Lat: 0, Lon: 0}, {Lat: 0, Lon: 2}, {Lat: 2, Lon: 2}}
	c := Centroid(pts)
	if !near(c.Lat, 2.0/3, 1e-12) || !near(c.Lon, 4.0/3, 1e-12) {
		t.Fatalf("unexpected centroid %+v", c)
	}
	want := HaversineDistance(0, 0, 0, 2) + HaversineDistance(0, 2, 2, 2)
	if !near(PathLength(pts), want, 1e-6) {
		t.Fatalf("expected %v, got %v", want, PathLength(pts))
	}
}

func TestRoute(t *testing.T) {
	if _, err := NewRoute([]Point{{Lat: 1, Lon: 1}}); err == nil {
		t.Fatal("expected single waypoint to fail")
	}
	if _, err := NewRoute([]Point{{Lat: 1, Lon: 1}, {Lat: 1, Lon: 1}}); err == nil {
		t.Fatal("expected identical waypoints to fail")
	}

	r, err := NewRoute([]Point{{Lat: 0, Lon: 0}, {Lat: 0, Lon: 1}})
	if err != nil {
		t.Fatalf("new route: %v", err)
	}
	leg := HaversineDistance(0, 0, 0, 1)
	if !near(r.Length(), 2*leg, 1e-6) {
		t.Fatalf("expected loop length %v, got %v", 2*leg, r.Length())
	}

	p, bearing := r.PositionAt(leg / 2)
	if !near(p.Lon, 0.5, 1e-9) || !near(bearing, 90, 1e-9) {
		t.Fatalf("unexpected outbound position %+v bearing %v", p, bearing)
	}

	p, bearing = r.PositionAt(leg * 1.5)
	if !near(p.Lon, 0.5, 1e-9) || !near(bearing, 270, 1e-9) {
		t.Fatalf("unexpected return position %+v bearing %v", p, bearing)
	}

	p, _ = r.PositionAt(r.Length() + leg/2)
	if !near(p.Lon, 0.5, 1e-9) {
		t.Fatalf("expected wrap-around, got %+v", p)
	}
}
