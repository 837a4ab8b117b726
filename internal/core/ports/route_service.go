package ports

import (
	"context"

	"github.com/quickserve/driver-tracking/internal/core/domain"
)

// RouteService builds and refreshes multi-stop delivery routes.
type RouteService interface {
	// BuildRoute computes the full route for a driver's in-flight orders.
	// Returns domain.ErrRouteNotFound when no valid stop exists and
	// ErrMultiStopUnavailable when the backend has no multi-stop endpoint.
	BuildRoute(ctx context.Context, driverID int) (*domain.RouteInfo, error)

	// RefreshETAs recomputes per-stop arrival estimates for the driver's
	// current route without touching stop status.
	RefreshETAs(ctx context.Context, driverID int) (*domain.RouteInfo, error)

	// Route returns the driver's current route, warming the in-memory
	// session from the stored snapshot after a restart.
	Route(ctx context.Context, driverID int) (*domain.RouteInfo, bool)
}

// LocationIngest accepts raw GPS samples from the transport layer.
type LocationIngest interface {
	Offer(ctx context.Context, driverID int, p domain.LocationPoint)
}
