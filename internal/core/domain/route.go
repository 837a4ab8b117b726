package domain

import (
	"errors"
	"fmt"
	"math"
)

// StopType distinguishes pickup waypoints from customer deliveries.
type StopType string

const (
	StopTypePickup   StopType = "pickup"
	StopTypeDelivery StopType = "delivery"
)

// StopStatus represents the lifecycle state of a route stop.
type StopStatus string

const (
	StopStatusPending    StopStatus = "pending"
	StopStatusInProgress StopStatus = "in_progress"
	StopStatusCompleted  StopStatus = "completed"
)

var ErrRouteNotFound = errors.New("no route available for driver")
var ErrOrderNotFound = errors.New("order not found")
var ErrStopAlreadyCompleted = errors.New("stop already completed")
var ErrPickupNotCompletable = errors.New("pickup stops cannot be marked completed")
var ErrCompletionFailed = errors.New("delivery completion write failed")
var ErrInvalidCredentials = errors.New("invalid credentials")
var ErrDriverNotFound = errors.New("driver not found")
var ErrDriverExists = errors.New("driver already exists")

// DeliveryStop is a single pickup or delivery waypoint in a driver's route.
//
// OrderID 0 is a sentinel meaning the stop is not tied to a single order
// (a pickup shared by several orders). Stop ids are stable and derived:
// "pickup-<n>" for pickups, "order-<id>" for deliveries.
type DeliveryStop struct {
	ID         string   `json:"id" bson:"id"`
	OrderID    int      `json:"order_id" bson:"order_id"`
	Type       StopType `json:"type" bson:"type"`
	StopNumber int      `json:"stop_number" bson:"stop_number"`

	Address   string  `json:"address" bson:"address"`
	Latitude  float64 `json:"latitude" bson:"latitude"`
	Longitude float64 `json:"longitude" bson:"longitude"`

	Status StopStatus `json:"status" bson:"status"`

	// EstimatedArrivalTime is minutes from now; nil until a directions
	// response (or the heuristic fallback) has produced one.
	EstimatedArrivalTime *int `json:"estimated_arrival_time,omitempty" bson:"estimated_arrival_time,omitempty"`

	CustomerName string `json:"customer_name,omitempty" bson:"customer_name,omitempty"`
	OrderNumber  string `json:"order_number,omitempty" bson:"order_number,omitempty"`
	Notes        string `json:"notes,omitempty" bson:"notes,omitempty"`
}

// Label maps the 0-based stop number to its display letter (0→"A", 1→"B", …).
func (s *DeliveryStop) Label() string {
	return string(rune('A' + s.StopNumber%26))
}

// Coordinates returns the stop position as a value pair.
func (s *DeliveryStop) Coordinates() Coordinates {
	return Coordinates{Lat: s.Latitude, Lng: s.Longitude}
}

// ApplyETA writes a fresh arrival estimate onto the stop.
// It touches only the estimate: an ETA refresh must never promote or
// demote delivery status.
func (s *DeliveryStop) ApplyETA(minutes int) {
	m := minutes
	s.EstimatedArrivalTime = &m
}

// MarkCompleted transitions the stop to completed.
// Pickup stops are never completable (a completed pickup would corrupt the
// rendered route when its address coincides with a delivery address), and a
// completed stop never reverts, so repeat calls fail loudly.
func (s *DeliveryStop) MarkCompleted() error {
	if s.Type == StopTypePickup {
		return ErrPickupNotCompletable
	}
	if s.Status == StopStatusCompleted {
		return fmt.Errorf("%w: stop %s", ErrStopAlreadyCompleted, s.ID)
	}
	s.Status = StopStatusCompleted
	return nil
}

// RouteInfo is the planned multi-stop route for one driver.
//
// The stop ordering is authoritative: ETA legs and map polyline rendering
// both follow it. Stops are ordered pickup-first, then deliveries.
type RouteInfo struct {
	DriverID      int            `json:"driver_id" bson:"driver_id"`
	Stops         []DeliveryStop `json:"stops" bson:"stops"`
	TotalDistance float64        `json:"total_distance_km" bson:"total_distance_km"`
	TotalDuration int            `json:"total_duration_min" bson:"total_duration_min"`
}

// StopByID returns the stop with the given id, or nil.
func (r *RouteInfo) StopByID(id string) *DeliveryStop {
	for i := range r.Stops {
		if r.Stops[i].ID == id {
			return &r.Stops[i]
		}
	}
	return nil
}

// StopByOrder returns the delivery stop for an order id, or nil.
func (r *RouteInfo) StopByOrder(orderID int) *DeliveryStop {
	for i := range r.Stops {
		if r.Stops[i].Type == StopTypeDelivery && r.Stops[i].OrderID == orderID {
			return &r.Stops[i]
		}
	}
	return nil
}

// NextPendingDelivery returns the first delivery stop not yet completed.
// This is the target of the swipe-to-deliver gesture in multi-stop mode.
func (r *RouteInfo) NextPendingDelivery() *DeliveryStop {
	for i := range r.Stops {
		s := &r.Stops[i]
		if s.Type == StopTypeDelivery && s.Status != StopStatusCompleted {
			return s
		}
	}
	return nil
}

// MergeETA attaches an arrival estimate to the stop matching the given
// coordinate within tol degrees, falling back to exact address text.
// Status is preserved by construction (ApplyETA writes only the estimate).
// Returns false when no stop matched.
func (r *RouteInfo) MergeETA(at Coordinates, address string, minutes int, tol float64) bool {
	for i := range r.Stops {
		s := &r.Stops[i]
		if math.Abs(s.Latitude-at.Lat) <= tol && math.Abs(s.Longitude-at.Lng) <= tol {
			s.ApplyETA(minutes)
			return true
		}
	}
	if address != "" {
		for i := range r.Stops {
			if r.Stops[i].Address == address {
				r.Stops[i].ApplyETA(minutes)
				return true
			}
		}
	}
	return false
}
