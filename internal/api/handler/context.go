package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/quickserve/driver-tracking/internal/core/domain"
)

// ctxClaims extracts the auth claims injected by the Auth middleware and
// performs a fast-fail check before any service call:
//   - role must be non-empty (presence proves the middleware ran).
//   - driver role requires a positive driver_id; without it the JWT is
//     structurally valid but operationally unusable — reject with 401.
func ctxClaims(c echo.Context) (role string, driverID int, err error) {
	role, _ = c.Get("role").(string)
	if role == "" {
		return "", 0, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}

	driverID, _ = c.Get("driver_id").(int)
	if role == domain.RoleDriver && driverID <= 0 {
		return "", 0, echo.NewHTTPError(http.StatusUnauthorized, "token missing driver identity")
	}

	return role, driverID, nil
}

// pathDriverID resolves the effective driver id for a /v1/drivers/:id route.
// Drivers may only act on themselves; dispatchers and admins may act on any
// driver named in the path.
func pathDriverID(c echo.Context) (int, error) {
	role, ownID, err := ctxClaims(c)
	if err != nil {
		return 0, err
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid driver id")
	}

	if role == domain.RoleDriver && id != ownID {
		return 0, echo.NewHTTPError(http.StatusForbidden, "drivers may only access their own resources")
	}
	return id, nil
}
