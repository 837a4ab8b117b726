package domain

import (
	"math"
	"time"
)

// Coordinates represents a geographic point.
type Coordinates struct {
	Lat float64 `json:"lat" bson:"lat"`
	Lng float64 `json:"lng" bson:"lng"`
}

// IsZero reports whether the point is the (0,0) sentinel that upstream
// systems emit when a location was never geocoded.
func (c Coordinates) IsZero() bool {
	return c.Lat == 0 && c.Lng == 0
}

// NearlyEqual reports whether two points coincide within tol degrees on
// both axes. Used both for ETA-to-stop matching and for detecting the
// identical-pickup/delivery data bug.
func (c Coordinates) NearlyEqual(other Coordinates, tol float64) bool {
	return math.Abs(c.Lat-other.Lat) <= tol && math.Abs(c.Lng-other.Lng) <= tol
}

const earthRadiusKm = 6371.0

// DistanceKm returns the haversine great-circle distance in kilometres.
func (c Coordinates) DistanceKm(other Coordinates) float64 {
	lat1 := c.Lat * math.Pi / 180
	lat2 := other.Lat * math.Pi / 180
	dLat := (other.Lat - c.Lat) * math.Pi / 180
	dLng := (other.Lng - c.Lng) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// LocationPoint is one GPS sample from a driver's device.
// It is transient: the core keeps at most the latest sample per driver.
type LocationPoint struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	SpeedMps  float64   `json:"speed_mps"` // metres/second, 0 when unknown
	Timestamp time.Time `json:"timestamp"`
}

// Coordinates returns the sample position.
func (p LocationPoint) Coordinates() Coordinates {
	return Coordinates{Lat: p.Lat, Lng: p.Lng}
}

// SpeedKmh returns the sample speed in km/h.
func (p LocationPoint) SpeedKmh() float64 {
	return p.SpeedMps * 3.6
}
