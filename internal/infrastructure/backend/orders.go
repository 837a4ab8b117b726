package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/quickserve/driver-tracking/internal/core/domain"
	"github.com/quickserve/driver-tracking/internal/core/ports"
)

// OrderGateway implements ports.OrderGateway against the platform REST API.
type OrderGateway struct {
	client *Client
}

func NewOrderGateway(client *Client) *OrderGateway {
	return &OrderGateway{client: client}
}

type activeOrderResponse struct {
	ID              int     `json:"id"`
	OrderNumber     string  `json:"order_number"`
	CustomerName    string  `json:"customer_name"`
	PickupAddress   string  `json:"pickup_address"`
	PickupLat       float64 `json:"pickup_lat"`
	PickupLng       float64 `json:"pickup_lng"`
	DeliveryAddress string  `json:"delivery_address"`
	DeliveryLat     float64 `json:"delivery_lat"`
	DeliveryLng     float64 `json:"delivery_lng"`
	Notes           string  `json:"notes"`
}

// ActiveOrders lists a driver's in-flight orders. A 404 is the documented
// "multi-stop endpoint unavailable" signal, not an error to surface.
func (g *OrderGateway) ActiveOrders(ctx context.Context, driverID int) ([]ports.ActiveOrder, error) {
	path := fmt.Sprintf("/drivers/%d/active-orders", driverID)

	resp, err := g.client.doWithRetry(ctx, func() (*http.Request, error) {
		return g.client.newRequest(ctx, http.MethodGet, path, nil)
	})
	if err != nil {
		var he *httpStatusError
		if errors.As(err, &he) && he.Code == http.StatusNotFound {
			return nil, ports.ErrMultiStopUnavailable
		}
		return nil, fmt.Errorf("active orders: %w", err)
	}

	var raw []activeOrderResponse
	if err := decodeJSON(resp, &raw); err != nil {
		return nil, fmt.Errorf("active orders: %w", err)
	}

	out := make([]ports.ActiveOrder, 0, len(raw))
	for _, o := range raw {
		out = append(out, ports.ActiveOrder(o))
	}
	return out, nil
}

// MarkDelivered issues a single delivery-completion write. No internal retry:
// the swipe state machine owns the bounded retry policy for this endpoint.
func (g *OrderGateway) MarkDelivered(ctx context.Context, orderID int) error {
	body := map[string]string{
		"status":        "delivered",
		"driver_status": "completed",
	}

	req, err := g.client.newRequest(ctx, http.MethodPatch, fmt.Sprintf("/orders/%d/status", orderID), body)
	if err != nil {
		return fmt.Errorf("mark delivered: %w", err)
	}
	resp, err := g.client.do(req)
	if err != nil {
		return fmt.Errorf("mark delivered: order %d: %w", orderID, err)
	}
	resp.Body.Close()
	return nil
}

// UploadLocation publishes one position sample. Single attempt: the stream
// treats upload failures as silent degradation.
func (g *OrderGateway) UploadLocation(ctx context.Context, driverID int, p domain.LocationPoint) error {
	body := map[string]any{
		"driver_id": driverID,
		"lat":       p.Lat,
		"lng":       p.Lng,
	}

	req, err := g.client.newRequest(ctx, http.MethodPost, "/drivers/location", body)
	if err != nil {
		return fmt.Errorf("upload location: %w", err)
	}
	resp, err := g.client.do(req)
	if err != nil {
		return fmt.Errorf("upload location: %w", err)
	}
	resp.Body.Close()
	return nil
}

type estimateResponse struct {
	DistanceKm  float64 `json:"distance_km"`
	DurationMin int     `json:"duration_min"`
}

// EstimateRoute asks the backend for an aggregate distance/duration fallback.
func (g *OrderGateway) EstimateRoute(ctx context.Context, waypoints []domain.Coordinates) (ports.RouteEstimate, error) {
	body := map[string]any{"waypoints": waypoints}

	resp, err := g.client.doWithRetry(ctx, func() (*http.Request, error) {
		return g.client.newRequest(ctx, http.MethodPost, "/drivers/calculate-route", body)
	})
	if err != nil {
		return ports.RouteEstimate{}, fmt.Errorf("estimate route: %w", err)
	}

	var raw estimateResponse
	if err := decodeJSON(resp, &raw); err != nil {
		return ports.RouteEstimate{}, fmt.Errorf("estimate route: %w", err)
	}
	return ports.RouteEstimate{DistanceKm: raw.DistanceKm, DurationMin: raw.DurationMin}, nil
}
