// Package geo holds the coordinate math shared by the locator packages.
package geo

import (
	"math"

	"github.com/paulmach/orb"
)

// Unit selects the unit returned by Distance.
type Unit byte

const (
	Miles         Unit = 'M'
	Kilometers    Unit = 'K'
	NauticalMiles Unit = 'N'
)

// Position is a latitude/longitude pair.
type Position struct {
	Latitude  float64 `json:"latitude" doc:"Latitude in degrees"`
	Longitude float64 `json:"longitude" doc:"Longitude in degrees"`
}

// Point converts the position to an orb point (lon, lat order).
func (p Position) Point() orb.Point {
	return orb.Point{p.Longitude, p.Latitude}
}

// FromPoint converts an orb point to a Position.
func FromPoint(p orb.Point) Position {
	return Position{Latitude: p.Lat(), Longitude: p.Lon()}
}

// Valid reports whether the position lies within WGS84 bounds.
func (p Position) Valid() bool {
	return p.Latitude >= -90 && p.Latitude <= 90 && p.Longitude >= -180 && p.Longitude <= 180
}

// Distance returns the great-circle distance between two coordinates using
// the spherical law of cosines. Identical coordinates always yield exactly 0.
func Distance(lat1, lon1, lat2, lon2 float64, unit Unit) float64 {
	if lat1 == lat2 && lon1 == lon2 {
		return 0
	}

	radLat1 := math.Pi * lat1 / 180
	radLat2 := math.Pi * lat2 / 180
	radTheta := math.Pi * (lon1 - lon2) / 180

	dist := math.Sin(radLat1)*math.Sin(radLat2) + math.Cos(radLat1)*math.Cos(radLat2)*math.Cos(radTheta)
	// rounding can push the cosine just outside [-1, 1]
	dist = math.Max(-1, math.Min(1, dist))

	dist = math.Acos(dist) * 180 / math.Pi
	dist = dist * 60 * 1.1515

	switch unit {
	case Kilometers:
		dist *= 1.609344
	case NauticalMiles:
		dist *= 0.8684
	}
	return dist
}

// Between returns the distance in kilometers between two positions.
func Between(a, b Position) float64 {
	return Distance(a.Latitude, a.Longitude, b.Latitude, b.Longitude, Kilometers)
}
