package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/inventory/internal/service"
	"github.com/Skotchmaster/inventory/internal/transport"
)

type CatalogHTTP struct {
	Svc *service.CatalogService
}

func (h *CatalogHTTP) CreateRole(c echo.Context) error {
	var req transport.NameRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}

	role, err := h.Svc.CreateRole(c.Request().Context(), req.Input())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, role)
}

func (h *CatalogHTTP) GetRole(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	role, err := h.Svc.GetRole(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, role)
}

func (h *CatalogHTTP) ListRoles(c echo.Context) error {
	roles, err := h.Svc.ListRoles(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, roles)
}

func (h *CatalogHTTP) CreateCategory(c echo.Context) error {
	var req transport.NameRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}

	category, err := h.Svc.CreateCategory(c.Request().Context(), req.Input())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, category)
}

func (h *CatalogHTTP) GetCategory(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	category, err := h.Svc.GetCategory(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, category)
}

func (h *CatalogHTTP) ListCategories(c echo.Context) error {
	categories, err := h.Svc.ListCategories(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, categories)
}
