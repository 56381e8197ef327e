package domain

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

const geoTolerance = 1e-9

func TestBearing_CardinalDirections(t *testing.T) {
	origin := orb.Point{0, 0}

	assert.InDelta(t, 0, Bearing(origin, orb.Point{0, 1}), geoTolerance, "due north")
	assert.InDelta(t, 90, Bearing(origin, orb.Point{1, 0}), geoTolerance, "due east")
	assert.InDelta(t, 180, Bearing(orb.Point{0, 1}, origin), geoTolerance, "due south")
	assert.InDelta(t, 270, Bearing(orb.Point{1, 0}, origin), geoTolerance, "due west")
}

func TestBearing_AlwaysInRange(t *testing.T) {
	points := []orb.Point{
		{-87.8064, 42.1856},
		{-95.6066, 29.5785},
		{-71.1043, 42.3601},
		{-122.4194, 37.7749},
		{0, 0},
	}
	for _, a := range points {
		for _, b := range points {
			got := Bearing(a, b)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.Less(t, got, 360.0)
		}
	}
}

func TestMidpoint(t *testing.T) {
	assert.Equal(t, orb.Point{1, 1}, Midpoint(orb.Point{0, 0}, orb.Point{2, 2}))
	assert.Equal(t, orb.Point{-91, 36}, Midpoint(orb.Point{-88, 42}, orb.Point{-94, 30}))
}

func TestDistanceMiles(t *testing.T) {
	// Highland Park, IL to Sugar Land, TX is roughly 950 miles.
	d := DistanceMiles(orb.Point{-87.8064, 42.1856}, orb.Point{-95.6066, 29.5785})
	assert.InDelta(t, 950, d, 30)
	assert.Zero(t, DistanceMiles(orb.Point{1, 1}, orb.Point{1, 1}))
}

func TestInLower48(t *testing.T) {
	assert.True(t, InLower48(orb.Point{-87.8064, 42.1856}))
	assert.False(t, InLower48(orb.Point{-149.9003, 61.2181}), "Anchorage")
	assert.False(t, InLower48(orb.Point{-157.8583, 21.3069}), "Honolulu")
}

func TestInitialViewport(t *testing.T) {
	vp := InitialViewport()
	assert.InDelta(t, -95.5, vp.Longitude, geoTolerance)
	assert.InDelta(t, 37.0, vp.Latitude, geoTolerance)
	assert.Equal(t, 3.5, vp.Zoom)
	assert.Equal(t, 3.0, vp.MinZoom)
	assert.Equal(t, 10.0, vp.MaxZoom)
}
