package geo

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const earthRadiusMeters = 6371000.0

// Position is a GPS coordinate pair in signed decimal degrees.
type Position struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

// Distance returns the great-circle (haversine) distance between two
// positions in meters.
func Distance(a, b Position) float64 {
	lat1Rad := a.Lat * math.Pi / 180
	lat2Rad := b.Lat * math.Pi / 180
	deltaLat := (b.Lat - a.Lat) * math.Pi / 180
	deltaLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusMeters * c
}

// IsOutside reports whether current is farther than radiusMeters from target.
func IsOutside(current, target Position, radiusMeters float64) bool {
	return Distance(current, target) > radiusMeters
}

// ParseCoordinates parses a "lat, lon" string as stored on sessions and
// tasks. Returns false for malformed input; callers treat that as the
// location simply being absent.
func ParseCoordinates(s string) (Position, bool) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return Position{}, false
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Position{}, false
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Position{}, false
	}

	return Position{Lat: lat, Lon: lon}, true
}

// FormatLocation renders a position in the "lat, lon" storage format with
// six decimal places (roughly 10 cm of precision).
func FormatLocation(p Position) string {
	return fmt.Sprintf("%.6f, %.6f", p.Lat, p.Lon)
}
