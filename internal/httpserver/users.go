package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/inventory/internal/logging"
	"github.com/Skotchmaster/inventory/internal/middleware/auth"
	"github.com/Skotchmaster/inventory/internal/service"
	"github.com/Skotchmaster/inventory/internal/transport"
)

type UserHTTP struct {
	Svc *service.UserService
}

func (h *UserHTTP) Signup(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users_signup")

	var req transport.SignupRequest
	if err := bindValid(c, &req); err != nil {
		l.Warn("signup_error", "status", 400, "error", err)
		return err
	}

	if _, err := h.Svc.Signup(ctx, req.Input()); err != nil {
		l.Warn("signup_error", "error", err)
		return err
	}

	return c.String(http.StatusCreated, "User created successfully")
}

func (h *UserHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users_login")

	var req transport.LoginRequest
	if err := bindValid(c, &req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return err
	}

	res, err := h.Svc.Login(ctx, req.Username, req.Password)
	if err != nil {
		return err
	}

	c.SetCookie(auth.CreateCookie(auth.AccessCookie, res.AccessToken, "/", res.AccessExp))
	return c.String(http.StatusOK, "Login Successfully")
}

func (h *UserHTTP) GetUser(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	v, err := h.Svc.GetUser(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, transport.NewUserResponse(*v))
}

func (h *UserHTTP) ListUsers(c echo.Context) error {
	users, err := h.Svc.ListUsers(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, transport.NewUserResponses(users))
}

func (h *UserHTTP) UpdateUser(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users_update")

	id, err := parseID(c)
	if err != nil {
		return err
	}

	var req transport.UpdateUserRequest
	if err := bindValid(c, &req); err != nil {
		l.Warn("update_error", "status", 400, "user_id", id, "error", err)
		return err
	}

	if err := h.Svc.UpdateUser(ctx, id, req.Update()); err != nil {
		return err
	}
	return c.String(http.StatusOK, "Successfully updated profile")
}

func (h *UserHTTP) DeleteUser(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	if err := h.Svc.DeleteUser(c.Request().Context(), id); err != nil {
		return err
	}
	return c.String(http.StatusOK, "User deleted successfully")
}
