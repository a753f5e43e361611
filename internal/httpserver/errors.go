package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/inventory/internal/apperr"
	"github.com/Skotchmaster/inventory/internal/logging"
	"github.com/Skotchmaster/inventory/internal/search"
)

type ErrorResponse struct {
	Timestamp   time.Time         `json:"timestamp"`
	Status      int               `json:"status"`
	Error       string            `json:"error"`
	Message     string            `json:"message"`
	Path        string            `json:"path"`
	FieldErrors map[string]string `json:"fieldErrors,omitempty"`
	Duplicates  map[string]string `json:"duplicates,omitempty"`
}

func classify(err error) ErrorResponse {
	var (
		ve  *apperr.ValidationError
		dup *apperr.DuplicateCredentialError
		nf  *apperr.NotFoundError
		ce  *apperr.ConstraintError
		he  *echo.HTTPError
	)

	switch {
	case errors.As(err, &ve):
		return ErrorResponse{Status: http.StatusBadRequest, Error: "validation error", Message: ve.Error(), FieldErrors: ve.FieldMap()}
	case errors.As(err, &dup):
		return ErrorResponse{Status: http.StatusConflict, Error: "credential already exist", Message: dup.Error(), Duplicates: dup.Duplicates()}
	case errors.As(err, &nf):
		return ErrorResponse{Status: http.StatusBadRequest, Error: "not found", Message: nf.Message}
	case errors.Is(err, apperr.ErrInvalidCredentials):
		return ErrorResponse{Status: http.StatusBadRequest, Error: "invalid credentials", Message: "Invalid username or password"}
	case errors.As(err, &ce):
		return ErrorResponse{Status: http.StatusConflict, Error: "conflict", Message: ce.Error()}
	case errors.Is(err, apperr.ErrUnauthenticated):
		return ErrorResponse{Status: http.StatusUnauthorized, Error: "unauthorized", Message: err.Error()}
	case errors.Is(err, search.ErrDisabled):
		return ErrorResponse{Status: http.StatusServiceUnavailable, Error: "service unavailable", Message: err.Error()}
	case errors.As(err, &he):
		msg := http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok {
			msg = m
		} else if he.Message != nil {
			msg = fmt.Sprint(he.Message)
		}
		return ErrorResponse{Status: he.Code, Error: http.StatusText(he.Code), Message: msg}
	default:
		return ErrorResponse{Status: http.StatusInternalServerError, Error: "internal-error", Message: "An unexpected error occurred"}
	}
}

// ErrorHandler is the only place application errors become status codes.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	resp := classify(err)
	resp.Timestamp = time.Now().UTC()
	resp.Path = c.Request().URL.Path

	if resp.Status >= http.StatusInternalServerError {
		logging.FromContext(c.Request().Context()).Error("unhandled_error", "status", resp.Status, "error", err)
	}

	var werr error
	if c.Request().Method == http.MethodHead {
		werr = c.NoContent(resp.Status)
	} else {
		werr = c.JSON(resp.Status, resp)
	}
	if werr != nil {
		logging.FromContext(c.Request().Context()).Error("write_error_response", "error", werr)
	}
}
