package ports

import "github.com/quickserve/driver-tracking/internal/core/domain"

// MarkerUpdate places or moves one marker on the rendering sink.
type MarkerUpdate struct {
	ID    string
	Lat   float64
	Lng   float64
	Label string
}

// PolylineStyle controls how a route path is drawn.
type PolylineStyle struct {
	Color   string
	WidthPx int
}

// MapSink is the opaque rendering surface as seen by the tracking core.
//
// All commands are incremental: updating a marker or polyline must never
// require rebuilding the whole surface. Implementations queue commands
// issued before the sink reports ready and flush them exactly once on
// readiness, keeping only the latest pending position per marker id.
type MapSink interface {
	UpsertMarker(m MarkerUpdate)
	DrawPolyline(id string, points []domain.Coordinates, style PolylineStyle)
	PanTo(lat, lng float64)
	RemoveLayer(id string)
}

// Speaker voices announcement text on the driver's device.
// Speak is interruptible: Stop halts the current utterance immediately.
type Speaker interface {
	Speak(text string)
	Stop()
}
