package spatial

import "strings"

// geohash alphabet; omits a, i, l and o
const base32 = "0123456789bcdefghjkmnpqrstuvwxyz"

// MaxGeohashPrecision is the longest geohash produced (sub-centimetre cells)
const MaxGeohashPrecision = 12

// EncodeGeohash returns the geohash cell containing the coordinate,
// precision characters long (clamped to 1..12). Longitude takes the first
// bit and the two axes alternate from there.
func EncodeGeohash(lat, lon float64, precision int) string {
	precision = min(max(precision, 1), MaxGeohashPrecision)

	lonSpan := span{-180, 180}
	latSpan := span{-90, 90}
	out := make([]byte, precision)
	onLon := true

	for i := range out {
		var idx byte
		for range 5 {
			idx <<= 1
			var upper bool
			if onLon {
				upper = lonSpan.halve(lon)
			} else {
				upper = latSpan.halve(lat)
			}
			if upper {
				idx |= 1
			}
			onLon = !onLon
		}
		out[i] = base32[idx]
	}
	return string(out)
}

// span is a closed coordinate range narrowed one bit at a time
type span [2]float64

// halve keeps the half of the range holding v and reports whether it was
// the upper one
func (s *span) halve(v float64) bool {
	mid := (s[0] + s[1]) / 2
	if v > mid {
		s[0] = mid
		return true
	}
	s[1] = mid
	return false
}

// IsGeohash reports whether s is a non-empty geohash or geohash prefix
func IsGeohash(s string) bool {
	if s == "" || len(s) > MaxGeohashPrecision {
		return false
	}
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(base32, s[i]) < 0 {
			return false
		}
	}
	return true
}

// GeohashPrefixRange returns the half-open string range [lo, hi) holding
// every geohash that starts with prefix, for index range scans
func GeohashPrefixRange(prefix string) (lo, hi string) {
	// '{' sorts right after 'z', the last geohash character
	return prefix, prefix + "{"
}
