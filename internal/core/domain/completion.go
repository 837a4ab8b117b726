package domain

import "time"

// StopCompletionEvent records a delivery being confirmed by the driver.
// Produced by the swipe-to-deliver state machine, consumed by the backend
// write and by the audit trail.
type StopCompletionEvent struct {
	StopID      string    `json:"stop_id" bson:"stop_id"`
	OrderID     int       `json:"order_id" bson:"order_id"`
	DriverID    int       `json:"driver_id" bson:"driver_id"`
	CompletedAt time.Time `json:"completed_at" bson:"completed_at"`
	Notes       string    `json:"notes,omitempty" bson:"notes,omitempty"`
	Signature   string    `json:"signature,omitempty" bson:"signature,omitempty"`
}
