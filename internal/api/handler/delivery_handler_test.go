package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/quickserve/driver-tracking/internal/core/domain"
	"github.com/quickserve/driver-tracking/internal/core/service"
)

type stubGestures struct {
	state    service.SwipeState
	offset   float64
	complete bool
	err      error

	drags    int
	releases int
	orderID  int
}

func (s *stubGestures) HandleDrag(driverID int, dxPx, dyPx float64) {
	s.drags++
	s.state = service.SwipeDragging
	s.offset = dxPx
}

func (s *stubGestures) HandleRelease(ctx context.Context, driverID, orderID int) (bool, error) {
	s.releases++
	s.orderID = orderID
	s.state = service.SwipeIdle
	s.offset = 0
	return s.complete, s.err
}

func (s *stubGestures) State(driverID int) (service.SwipeState, float64) {
	if s.state == "" {
		return service.SwipeIdle, 0
	}
	return s.state, s.offset
}

func gestureContext(t *testing.T, driverID int, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	e.Validator = NewValidator()

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/v1/deliveries/:orderId/gesture")
	c.SetParamNames("orderId")
	c.SetParamValues("5")
	c.Set("role", domain.RoleDriver)
	c.Set("driver_id", driverID)
	return c, rec
}

func TestGesture_DragMovesSlider(t *testing.T) {
	gestures := &stubGestures{}
	h := NewDeliveryHandler(gestures)

	c, rec := gestureContext(t, 7, `{"phase":"drag","dx":80,"dy":2}`)
	if err := h.Gesture(c); err != nil {
		t.Fatalf("Gesture: %v", err)
	}

	if gestures.drags != 1 || gestures.releases != 0 {
		t.Fatalf("drag not forwarded: drags=%d releases=%d", gestures.drags, gestures.releases)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"state":"dragging"`) {
		t.Fatalf("state not reported: %s", rec.Body.String())
	}
}

func TestGesture_ReleaseReportsCompletion(t *testing.T) {
	gestures := &stubGestures{complete: true}
	h := NewDeliveryHandler(gestures)

	c, rec := gestureContext(t, 7, `{"phase":"release","dx":180}`)
	if err := h.Gesture(c); err != nil {
		t.Fatalf("Gesture: %v", err)
	}

	if gestures.releases != 1 || gestures.orderID != 5 {
		t.Fatalf("release not forwarded with order id: %+v", gestures)
	}
	if !strings.Contains(rec.Body.String(), `"completed":true`) {
		t.Fatalf("completion not reported: %s", rec.Body.String())
	}
}

func TestGesture_InvalidPhaseRejected(t *testing.T) {
	h := NewDeliveryHandler(&stubGestures{})

	c, _ := gestureContext(t, 7, `{"phase":"hover","dx":10}`)
	err := h.Gesture(c)

	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %v", err)
	}
}

func TestGesture_MissingDriverClaim(t *testing.T) {
	h := NewDeliveryHandler(&stubGestures{})

	c, _ := gestureContext(t, 0, `{"phase":"drag","dx":10}`)
	err := h.Gesture(c)

	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without driver identity, got %v", err)
	}
}
