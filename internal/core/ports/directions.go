package ports

import (
	"context"

	"github.com/quickserve/driver-tracking/internal/core/domain"
)

// DirectionsRequest describes one leg-by-leg directions lookup.
type DirectionsRequest struct {
	Origin      domain.Coordinates
	Destination domain.Coordinates
	// Waypoints are the intermediate stops between origin and destination,
	// in logical route order.
	Waypoints []domain.Coordinates
	// OptimizeWaypoints lets the provider reorder intermediate stops.
	// When set, the response's WaypointOrder permutation must be applied
	// before attaching legs to logical stops.
	OptimizeWaypoints bool
	// Language for any localized instruction text.
	Language string
}

// DirectionsLeg is the travel segment between two consecutive stops.
type DirectionsLeg struct {
	DurationMin int
	DistanceKm  float64
	EndLocation domain.Coordinates
	EndAddress  string
}

// DirectionsStep is one spoken-instruction step with its anchor point.
type DirectionsStep struct {
	Instruction string
	Lat         float64
	Lng         float64
}

// DirectionsRoute is the decoded provider response.
type DirectionsRoute struct {
	Legs []DirectionsLeg
	// WaypointOrder is the permutation the provider applied to the request
	// waypoints when optimization was requested: WaypointOrder[i] is the
	// request index of the waypoint visited i-th. Empty when no
	// optimization happened.
	WaypointOrder []int
	// OverviewPath is the decoded overview polyline for map rendering.
	OverviewPath []domain.Coordinates
	Steps        []DirectionsStep
}

// DirectionsProvider resolves a route through the external directions service.
type DirectionsProvider interface {
	Directions(ctx context.Context, req DirectionsRequest) (*DirectionsRoute, error)
}

// Geocoder resolves a free-text query to coordinates.
// The boolean is false when the provider returned no result — a valid
// alternate state (permanent absence), distinct from a transport error.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (domain.Coordinates, bool, error)
}
