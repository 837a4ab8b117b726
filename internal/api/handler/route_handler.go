package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/quickserve/driver-tracking/internal/core/domain"
	"github.com/quickserve/driver-tracking/internal/core/ports"
)

// RouteHandler exposes the driver's multi-stop route.
type RouteHandler struct {
	routes      ports.RouteService
	completions ports.CompletionRepository
}

func NewRouteHandler(routes ports.RouteService, completions ports.CompletionRepository) *RouteHandler {
	return &RouteHandler{routes: routes, completions: completions}
}

// GetRoute handles GET /v1/drivers/:id/route — returns the driver's current
// route, building it from the backend's active orders when none exists yet.
//
// @Summary      Get or build the driver's delivery route
// @Tags         routes
// @Produce      json
// @Security     BearerAuth
// @Param        id  path      int  true  "Driver ID"
// @Success      200 {object}  domain.RouteInfo
// @Failure      401 {object}  errorResponse
// @Failure      404 {object}  errorResponse
// @Router       /v1/drivers/{id}/route [get]
func (h *RouteHandler) GetRoute(c echo.Context) error {
	driverID, err := pathDriverID(c)
	if err != nil {
		return err
	}

	if route, ok := h.routes.Route(c.Request().Context(), driverID); ok {
		return c.JSON(http.StatusOK, route)
	}

	route, err := h.routes.BuildRoute(c.Request().Context(), driverID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, route)
}

// RefreshETAs handles POST /v1/drivers/:id/route/refresh-etas — recomputes
// per-stop arrival estimates without touching stop status.
//
// @Summary      Refresh route ETAs
// @Tags         routes
// @Produce      json
// @Security     BearerAuth
// @Param        id  path      int  true  "Driver ID"
// @Success      200 {object}  domain.RouteInfo
// @Failure      401 {object}  errorResponse
// @Failure      404 {object}  errorResponse
// @Router       /v1/drivers/{id}/route/refresh-etas [post]
func (h *RouteHandler) RefreshETAs(c echo.Context) error {
	driverID, err := pathDriverID(c)
	if err != nil {
		return err
	}

	route, err := h.routes.RefreshETAs(c.Request().Context(), driverID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, route)
}

// ListCompletions handles GET /v1/drivers/:id/completions — the driver's
// recent delivery confirmations, newest first.
//
// @Summary      List recent delivery completions
// @Tags         routes
// @Produce      json
// @Security     BearerAuth
// @Param        id     path      int  true   "Driver ID"
// @Param        limit  query     int  false  "Max events to return (default 50, cap 100)"
// @Success      200    {array}   domain.StopCompletionEvent
// @Failure      401    {object}  errorResponse
// @Router       /v1/drivers/{id}/completions [get]
func (h *RouteHandler) ListCompletions(c echo.Context) error {
	driverID, err := pathDriverID(c)
	if err != nil {
		return err
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	events, err := h.completions.ListByDriver(c.Request().Context(), driverID, limit)
	if err != nil {
		return err
	}
	if events == nil {
		events = []domain.StopCompletionEvent{}
	}
	return c.JSON(http.StatusOK, events)
}
