package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/inventory/internal/logging"
	"github.com/Skotchmaster/inventory/internal/service"
	"github.com/Skotchmaster/inventory/internal/transport"
	"github.com/Skotchmaster/inventory/internal/util"
)

type ProductHTTP struct {
	Svc *service.ProductService
}

func (h *ProductHTTP) CreateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "products_create")

	var req transport.ProductRequest
	if err := bindValid(c, &req); err != nil {
		l.Warn("create_product_error", "status", 400, "error", err)
		return err
	}

	if _, err := h.Svc.Create(ctx, actor(c), req.Input()); err != nil {
		l.Warn("create_product_error", "error", err)
		return err
	}
	return c.String(http.StatusCreated, "Product created successfully")
}

func (h *ProductHTTP) GetProduct(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	prod, err := h.Svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, prod)
}

func (h *ProductHTTP) GetProducts(c echo.Context) error {
	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)

	res, err := h.Svc.List(c.Request().Context(), page, size)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (h *ProductHTTP) Search(c echo.Context) error {
	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)

	res, err := h.Svc.Search(c.Request().Context(), c.QueryParam("q"), page, size)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (h *ProductHTTP) UpdateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "products_update")

	id, err := parseID(c)
	if err != nil {
		return err
	}

	var req transport.ProductRequest
	if err := bindValid(c, &req); err != nil {
		l.Warn("update_product_error", "status", 400, "product_id", id, "error", err)
		return err
	}

	if _, err := h.Svc.Update(ctx, actor(c), id, req.Input()); err != nil {
		l.Warn("update_product_error", "product_id", id, "error", err)
		return err
	}
	return c.String(http.StatusOK, "Product updated successfully")
}

func (h *ProductHTTP) DeleteProduct(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	if err := h.Svc.Delete(c.Request().Context(), actor(c), id); err != nil {
		return err
	}
	return c.String(http.StatusOK, "Product deleted successfully")
}
