package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/quickserve/driver-tracking/internal/core/service"
)

// GestureService is the interface the handler uses to feed swipe events into
// the confirmation state machine.
type GestureService interface {
	HandleDrag(driverID int, dxPx, dyPx float64)
	HandleRelease(ctx context.Context, driverID, orderID int) (bool, error)
	State(driverID int) (service.SwipeState, float64)
}

// DeliveryHandler handles swipe-to-deliver gesture events.
type DeliveryHandler struct {
	gestures GestureService
}

func NewDeliveryHandler(gestures GestureService) *DeliveryHandler {
	return &DeliveryHandler{gestures: gestures}
}

// Gesture handles POST /v1/deliveries/:orderId/gesture.
//
// Drag phases only move the slider; release either snaps back (no writes) or
// commits the delivery. A commit past the threshold keeps running even if the
// client disconnects mid-request.
//
// @Summary      Feed a swipe gesture event
// @Tags         deliveries
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        orderId  path      int             true  "Order ID (0 = next pending delivery)"
// @Param        body     body      gestureRequest  true  "Gesture event"
// @Success      200      {object}  gestureResponse
// @Failure      400      {object}  errorResponse
// @Failure      401      {object}  errorResponse
// @Failure      422      {object}  errorResponse
// @Failure      502      {object}  errorResponse
// @Router       /v1/deliveries/{orderId}/gesture [post]
func (h *DeliveryHandler) Gesture(c echo.Context) error {
	_, driverID, err := ctxClaims(c)
	if err != nil {
		return err
	}
	if driverID <= 0 {
		return echo.NewHTTPError(http.StatusForbidden, "only drivers can confirm deliveries")
	}

	orderID, err := strconv.Atoi(c.Param("orderId"))
	if err != nil || orderID < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}

	var req gestureRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	switch req.Phase {
	case "drag":
		h.gestures.HandleDrag(driverID, req.DX, req.DY)
	case "release":
		completed, err := h.gestures.HandleRelease(c.Request().Context(), driverID, orderID)
		if err != nil {
			return err
		}
		state, offset := h.gestures.State(driverID)
		return c.JSON(http.StatusOK, gestureResponse{
			State:     string(state),
			OffsetPx:  offset,
			Completed: completed,
		})
	}

	state, offset := h.gestures.State(driverID)
	return c.JSON(http.StatusOK, gestureResponse{State: string(state), OffsetPx: offset})
}
