package httpserver

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/inventory/internal/apperr"
	"github.com/Skotchmaster/inventory/internal/middleware/auth"
	"github.com/Skotchmaster/inventory/internal/service"
)

func parseID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return uint(id), nil
}

type validatable interface {
	Validate() []apperr.FieldError
}

// bindValid decodes the body into req and runs its validation.
func bindValid(c echo.Context, req validatable) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body").SetInternal(err)
	}
	if fe := req.Validate(); len(fe) > 0 {
		return apperr.Invalid(fe)
	}
	return nil
}

func actor(c echo.Context) *service.Actor {
	id, role, ok := auth.Identity(c)
	if !ok {
		return nil
	}
	return &service.Actor{UserID: id, Role: role}
}
