package ports

import (
	"context"
	"errors"

	"github.com/quickserve/driver-tracking/internal/core/domain"
)

// ErrMultiStopUnavailable signals that the platform backend does not expose
// the multi-stop endpoint for this driver (HTTP 404). It is a valid alternate
// state, not a failure: callers fall back to single-order display mode.
var ErrMultiStopUnavailable = errors.New("multi-stop endpoint unavailable")

// ActiveOrder is one in-flight order as reported by the platform backend.
type ActiveOrder struct {
	ID              int
	OrderNumber     string
	CustomerName    string
	PickupAddress   string
	PickupLat       float64
	PickupLng       float64
	DeliveryAddress string
	DeliveryLat     float64
	DeliveryLng     float64
	Notes           string
}

// RouteEstimate is the backend's aggregate fallback estimate for a waypoint
// sequence, used when the directions provider is unreachable.
type RouteEstimate struct {
	DistanceKm  float64
	DurationMin int
}

// OrderGateway is the platform backend as seen by the tracking core.
type OrderGateway interface {
	// ActiveOrders lists the driver's in-flight orders.
	// Returns ErrMultiStopUnavailable on 404.
	ActiveOrders(ctx context.Context, driverID int) ([]ActiveOrder, error)

	// MarkDelivered issues the delivery-completion status write for an order.
	// The call itself is a single attempt; retry policy belongs to the caller.
	MarkDelivered(ctx context.Context, orderID int) error

	// UploadLocation publishes a driver position. Fire-and-forget semantics:
	// failures are logged by callers, never surfaced to the user.
	UploadLocation(ctx context.Context, driverID int, p domain.LocationPoint) error

	// EstimateRoute asks the backend for an aggregate distance/duration over
	// the given waypoints (POST /drivers/calculate-route).
	EstimateRoute(ctx context.Context, waypoints []domain.Coordinates) (RouteEstimate, error)
}
