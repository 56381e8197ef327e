package domain

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

const metersPerMile = 1609.344

// Lower48 bounds the contiguous United States in (lon, lat).
var Lower48 = orb.Bound{
	Min: orb.Point{-125, 24.5},
	Max: orb.Point{-66, 49.5},
}

// Viewport is the initial camera for the map front end.
type Viewport struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
	Zoom      float64 `json:"zoom"`
	MinZoom   float64 `json:"min_zoom"`
	MaxZoom   float64 `json:"max_zoom"`
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// Bearing returns the initial compass bearing from a to b in degrees [0, 360).
func Bearing(a, b orb.Point) float64 {
	lat1 := toRadians(a.Lat())
	lat2 := toRadians(b.Lat())
	dLon := toRadians(b.Lon() - a.Lon())

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)

	deg := math.Atan2(y, x) * 180 / math.Pi
	deg = math.Mod(deg+360, 360)
	if deg >= 360 {
		return 0
	}
	return deg
}

// Midpoint returns the arithmetic mean of two coordinates.
func Midpoint(a, b orb.Point) orb.Point {
	return orb.Point{(a.Lon() + b.Lon()) / 2, (a.Lat() + b.Lat()) / 2}
}

// DistanceMiles is the haversine distance between a and b.
func DistanceMiles(a, b orb.Point) float64 {
	return geo.DistanceHaversine(a, b) / metersPerMile
}

// InLower48 reports whether p falls inside the contiguous US bounds.
func InLower48(p orb.Point) bool {
	return Lower48.Contains(p)
}

// InitialViewport centers the map on the lower 48.
func InitialViewport() Viewport {
	c := Lower48.Center()
	return Viewport{
		Longitude: c.Lon(),
		Latitude:  c.Lat(),
		Zoom:      3.5,
		MinZoom:   3,
		MaxZoom:   10,
	}
}
