package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistance_ZeroForSamePoint(t *testing.T) {
	points := []Position{
		{Lat: 0, Lon: 0},
		{Lat: 55.7558, Lon: 37.6173},
		{Lat: -33.8688, Lon: 151.2093},
	}

	for _, p := range points {
		assert.Equal(t, 0.0, Distance(p, p))
	}
}

func TestDistance_Symmetric(t *testing.T) {
	a := Position{Lat: 55.7558, Lon: 37.6173}
	b := Position{Lat: 55.7512, Lon: 37.6186}

	assert.Equal(t, Distance(a, b), Distance(b, a))
}

func TestDistance_KnownValue(t *testing.T) {
	// Red Square to the Bolshoi Theatre, roughly 700 m.
	a := Position{Lat: 55.7539, Lon: 37.6208}
	b := Position{Lat: 55.7601, Lon: 37.6186}

	d := Distance(a, b)
	assert.InDelta(t, 700, d, 50)
}

func TestDistance_OneDegreeLatitude(t *testing.T) {
	a := Position{Lat: 0, Lon: 0}
	b := Position{Lat: 1, Lon: 0}

	// One degree of latitude is ~111.2 km on a 6371 km sphere.
	assert.InDelta(t, 111195, Distance(a, b), 100)
}

func TestIsOutside(t *testing.T) {
	target := Position{Lat: 55.7558, Lon: 37.6173}

	// ~150 m north of the target.
	outside := Position{Lat: 55.7558 + 150.0/111195.0, Lon: 37.6173}
	assert.True(t, IsOutside(outside, target, 100))
	assert.False(t, IsOutside(outside, target, 300))

	// ~50 m north of the target.
	inside := Position{Lat: 55.7558 + 50.0/111195.0, Lon: 37.6173}
	assert.False(t, IsOutside(inside, target, 100))
}

func TestParseCoordinates(t *testing.T) {
	p, ok := ParseCoordinates("55.7558, 37.6173")
	assert.True(t, ok)
	assert.Equal(t, Position{Lat: 55.7558, Lon: 37.6173}, p)

	p, ok = ParseCoordinates("-33.868800,151.209300")
	assert.True(t, ok)
	assert.Equal(t, Position{Lat: -33.8688, Lon: 151.2093}, p)
}

func TestParseCoordinates_Malformed(t *testing.T) {
	bad := []string{
		"",
		"55.7558",
		"55.7558, 37.6173, 12",
		"abc, def",
		"55.7558, ",
		", 37.6173",
	}

	for _, s := range bad {
		_, ok := ParseCoordinates(s)
		assert.False(t, ok, "expected %q to be rejected", s)
	}
}

func TestFormatLocation_RoundTrip(t *testing.T) {
	positions := []Position{
		{Lat: 55.7558, Lon: 37.6173},
		{Lat: -0.000001, Lon: 0.000001},
		{Lat: 37.3329123, Lon: -121.8866456},
	}

	for _, p := range positions {
		got, ok := ParseCoordinates(FormatLocation(p))
		assert.True(t, ok)
		assert.True(t, math.Abs(got.Lat-p.Lat) <= 1e-6, "lat drifted: %v vs %v", got.Lat, p.Lat)
		assert.True(t, math.Abs(got.Lon-p.Lon) <= 1e-6, "lon drifted: %v vs %v", got.Lon, p.Lon)
	}
}
