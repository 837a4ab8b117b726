package handler

import "time"

type locationSampleRequest struct {
	Lat       float64   `json:"lat"       validate:"required,gte=-90,lte=90"`
	Lng       float64   `json:"lng"       validate:"required,gte=-180,lte=180"`
	SpeedMps  float64   `json:"speed_mps" validate:"gte=0"`
	Timestamp time.Time `json:"timestamp"`
}

// gestureRequest carries one swipe-gesture event from the driver app.
// Offsets are pixels relative to the touch-down point; the server owns the
// commit threshold so a tampered client cannot lower it.
type gestureRequest struct {
	Phase string  `json:"phase" validate:"required,oneof=drag release"`
	DX    float64 `json:"dx"`
	DY    float64 `json:"dy"`
}

type gestureResponse struct {
	State     string  `json:"state"`
	OffsetPx  float64 `json:"offset_px"`
	Completed bool    `json:"completed,omitempty"`
}

type acceptedResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}
