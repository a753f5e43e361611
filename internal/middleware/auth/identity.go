package auth

import (
	"net/http"
	"time"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/inventory/internal/logging"
	"github.com/Skotchmaster/inventory/internal/tokens"
)

const (
	AccessCookie = "accessToken"
	contextKey   = "identity_claims"
)

// Identify reads an access token from the Authorization header or the
// accessToken cookie. It never rejects a request. A token that is absent or
// fails to parse leaves the caller anonymous; routes that need an identity
// refuse anonymous callers themselves.
func Identify(issuer *tokens.Issuer) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:  contextKey,
		TokenLookup: "header:Authorization:Bearer ,cookie:" + AccessCookie,
		ParseTokenFunc: func(c echo.Context, auth string) (interface{}, error) {
			return issuer.Parse(auth)
		},
		ContinueOnIgnoredError: true,
		ErrorHandler: func(c echo.Context, err error) error {
			if hasCredentials(c) {
				logging.FromContext(c.Request().Context()).Debug("identity_rejected", "reason", "invalid or expired token", "error", err)
			}
			return nil
		},
	})
}

func hasCredentials(c echo.Context) bool {
	if c.Request().Header.Get(echo.HeaderAuthorization) != "" {
		return true
	}
	ck, err := c.Cookie(AccessCookie)
	return err == nil && ck.Value != ""
}

// Identity returns the caller set by Identify, if any.
func Identity(c echo.Context) (userID uint, role string, ok bool) {
	claims, isClaims := c.Get(contextKey).(*tokens.AccessClaims)
	if !isClaims || claims == nil {
		return 0, "", false
	}
	id, err := claims.UserID()
	if err != nil {
		return 0, "", false
	}
	return id, claims.Role, true
}

func CreateCookie(name, value, path string, expTime time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Expires:  expTime,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}
