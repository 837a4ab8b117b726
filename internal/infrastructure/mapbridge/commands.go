// Package mapbridge is the message-passing boundary between the tracking
// core and the opaque map rendering sink (a WebView, native map, or canvas
// renderer embedded in the driver app).
//
// The wire protocol is plain JSON and stays stable independent of the
// rendering technology. Outbound commands are incremental — updating one
// marker or polyline never rebuilds the surface. Inbound events are the
// sink's READY handshake and user taps.
package mapbridge

// Outbound message types.
const (
	cmdUpdateLocation = "UPDATE_LOCATION"
	cmdUpsertMarker   = "UPSERT_MARKER"
	cmdDrawPolyline   = "DRAW_POLYLINE"
	cmdPanTo          = "PAN_TO"
	cmdRemoveLayer    = "REMOVE_LAYER"
	cmdSpeak          = "SPEAK"
	cmdStopSpeaking   = "STOP_SPEAKING"
)

// Inbound message types.
const (
	evtReady = "READY"
	evtTap   = "TAP"
)

type pointMessage struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type styleMessage struct {
	Color   string `json:"color,omitempty"`
	WidthPx int    `json:"width_px,omitempty"`
}

// command is one outbound message. Fields are populated per Type.
type command struct {
	Type     string         `json:"type"`
	ID       string         `json:"id,omitempty"`
	DriverID int            `json:"driver_id,omitempty"`
	Lat      float64        `json:"lat,omitempty"`
	Lng      float64        `json:"lng,omitempty"`
	Label    string         `json:"label,omitempty"`
	Points   []pointMessage `json:"points,omitempty"`
	Style    *styleMessage  `json:"style,omitempty"`
	Text     string         `json:"text,omitempty"`
}

// inboundEvent is a message posted back by the rendering sink.
type inboundEvent struct {
	Type     string `json:"type"`
	MarkerID string `json:"marker_id,omitempty"`
}

// layerKey identifies the retained-state slot a command occupies, so later
// commands for the same layer coalesce to the latest one.
func (c command) layerKey() (string, bool) {
	switch c.Type {
	case cmdUpdateLocation:
		return "marker:" + c.ID, true
	case cmdUpsertMarker:
		return "marker:" + c.ID, true
	case cmdDrawPolyline:
		return "polyline:" + c.ID, true
	case cmdPanTo:
		return "pan", true
	}
	return "", false
}
