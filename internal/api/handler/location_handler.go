package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/quickserve/driver-tracking/internal/core/domain"
)

// LocationDispatcher is the interface the handler uses to enqueue GPS samples.
type LocationDispatcher interface {
	Enqueue(driverID int, p domain.LocationPoint)
}

// LocationHandler handles GPS sample ingestion.
type LocationHandler struct {
	dispatcher LocationDispatcher
}

// NewLocationHandler creates a LocationHandler backed by the given dispatcher.
func NewLocationHandler(dispatcher LocationDispatcher) *LocationHandler {
	return &LocationHandler{dispatcher: dispatcher}
}

// Receive handles POST /v1/drivers/location — enqueues one GPS sample for the
// authenticated driver, returns 202. The sample is throttled and fanned out
// asynchronously; a dropped sample is still a 202, fresher ones follow.
//
// @Summary      Ingest a GPS sample
// @Tags         locations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      locationSampleRequest  true  "GPS sample"
// @Success      202   {object}  acceptedResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/drivers/location [post]
func (h *LocationHandler) Receive(c echo.Context) error {
	_, driverID, err := ctxClaims(c)
	if err != nil {
		return err
	}
	if driverID <= 0 {
		return echo.NewHTTPError(http.StatusForbidden, "only drivers can report locations")
	}

	var req locationSampleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	ts := req.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	h.dispatcher.Enqueue(driverID, domain.LocationPoint{
		Lat:       req.Lat,
		Lng:       req.Lng,
		SpeedMps:  req.SpeedMps,
		Timestamp: ts,
	})
	return c.JSON(http.StatusAccepted, acceptedResponse{Message: "sample accepted"})
}
