package mapbridge

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/quickserve/driver-tracking/internal/core/domain"
	"github.com/quickserve/driver-tracking/internal/core/ports"
)

const (
	pingInterval   = 30 * time.Second
	pongWait       = 60 * time.Second
	writeWait      = 10 * time.Second
	maxMessageSize = 8192
	sendBuffer     = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The sink is the embedded renderer of the driver app, reached over the
	// authenticated app session; origin checking happens upstream.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// TapHandler receives marker taps posted back by the rendering sink.
type TapHandler func(markerID string)

// Hub connects the tracking core to rendering-sink sessions. It implements
// ports.MapSink and ports.Speaker.
//
// A sink session gates all outbound traffic on its READY handshake: commands
// issued while no ready sink exists land in the retained-state buffer and are
// flushed exactly once to the next sink that reports ready.
type Hub struct {
	log   zerolog.Logger
	onTap TapHandler

	mu       sync.Mutex
	sessions map[*session]struct{}
	buffer   *commandBuffer
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		log:      log,
		sessions: make(map[*session]struct{}),
		buffer:   newCommandBuffer(),
	}
}

// SetTapHandler registers the consumer for inbound tap events.
func (h *Hub) SetTapHandler(fn TapHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onTap = fn
}

// ── ports.MapSink ─────────────────────────────────────────────────────────────

// UpsertMarker places or moves a marker. Driver markers travel as the
// protocol's UPDATE_LOCATION message; everything else as UPSERT_MARKER.
func (h *Hub) UpsertMarker(m ports.MarkerUpdate) {
	if driverID, ok := driverMarker(m.ID); ok {
		h.dispatch(command{Type: cmdUpdateLocation, ID: m.ID, DriverID: driverID, Lat: m.Lat, Lng: m.Lng})
		return
	}
	h.dispatch(command{Type: cmdUpsertMarker, ID: m.ID, Lat: m.Lat, Lng: m.Lng, Label: m.Label})
}

func (h *Hub) DrawPolyline(id string, points []domain.Coordinates, style ports.PolylineStyle) {
	pts := make([]pointMessage, 0, len(points))
	for _, p := range points {
		pts = append(pts, pointMessage{Lat: p.Lat, Lng: p.Lng})
	}
	h.dispatch(command{
		Type:   cmdDrawPolyline,
		ID:     id,
		Points: pts,
		Style:  &styleMessage{Color: style.Color, WidthPx: style.WidthPx},
	})
}

func (h *Hub) PanTo(lat, lng float64) {
	h.dispatch(command{Type: cmdPanTo, Lat: lat, Lng: lng})
}

func (h *Hub) RemoveLayer(id string) {
	h.dispatch(command{Type: cmdRemoveLayer, ID: id})
}

// ── ports.Speaker ─────────────────────────────────────────────────────────────

// Speak forwards announcement text to the device's speech synthesis.
// Speech is never buffered for a not-yet-ready sink: it would be stale.
func (h *Hub) Speak(text string) {
	h.dispatchLive(command{Type: cmdSpeak, Text: text})
}

// Stop interrupts the current utterance immediately.
func (h *Hub) Stop() {
	h.dispatchLive(command{Type: cmdStopSpeaking})
}

// ── dispatch ──────────────────────────────────────────────────────────────────

// dispatch sends to every ready session, or retains the command when none is.
func (h *Hub) dispatch(c command) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := false
	for s := range h.sessions {
		if s.ready {
			s.trySend(c)
			delivered = true
		}
	}
	if !delivered {
		h.buffer.Add(c)
	}
}

// dispatchLive sends to ready sessions only, never buffering.
func (h *Hub) dispatchLive(c command) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.sessions {
		if s.ready {
			s.trySend(c)
		}
	}
}

// ── session lifecycle ─────────────────────────────────────────────────────────

type session struct {
	hub  *Hub
	conn *websocket.Conn
	send chan command
	// ready flips once, when the sink posts its READY handshake.
	ready bool
}

// ServeWS upgrades GET /ws/map and runs the session until the peer drops.
func (h *Hub) ServeWS(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "websocket upgrade failed")
	}

	s := &session{hub: h, conn: conn, send: make(chan command, sendBuffer)}

	h.mu.Lock()
	h.sessions[s] = struct{}{}
	h.mu.Unlock()

	h.log.Info().Str("remote", conn.RemoteAddr().String()).Msg("map sink connected")

	go s.writePump()
	s.readPump()
	return nil
}

// trySend queues a command for the write pump, dropping when the session is
// saturated — the sink will repaint from subsequent updates.
func (s *session) trySend(c command) {
	select {
	case s.send <- c:
	default:
		s.hub.log.Warn().Str("type", c.Type).Msg("map sink send buffer full, command dropped")
	}
}

func (s *session) readPump() {
	defer s.close()

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var evt inboundEvent
		if err := s.conn.ReadJSON(&evt); err != nil {
			return
		}

		switch evt.Type {
		case evtReady:
			s.hub.markReady(s)
		case evtTap:
			s.hub.mu.Lock()
			onTap := s.hub.onTap
			s.hub.mu.Unlock()
			if onTap != nil {
				onTap(evt.MarkerID)
			}
		}
	}
}

func (s *session) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case c, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := s.conn.WriteJSON(c); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// markReady flushes the retained buffer to the session exactly once.
func (h *Hub) markReady(s *session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s.ready {
		return
	}
	s.ready = true
	for _, c := range h.buffer.Flush() {
		s.trySend(c)
	}
	h.log.Info().Msg("map sink ready, pending commands flushed")
}

func (s *session) close() {
	s.hub.mu.Lock()
	if _, ok := s.hub.sessions[s]; ok {
		delete(s.hub.sessions, s)
		close(s.send)
	}
	s.hub.mu.Unlock()
	s.conn.Close()
}

// driverMarker recognizes the "driver-<id>" marker ids emitted by the
// location stream and extracts the driver id for the UPDATE_LOCATION message.
func driverMarker(markerID string) (int, bool) {
	rest, ok := strings.CutPrefix(markerID, "driver-")
	if !ok {
		return 0, false
	}
	id, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return id, true
}
