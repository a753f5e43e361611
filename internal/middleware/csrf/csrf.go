// Package csrf implements double-submit cookie protection for requests that
// authenticate with the access cookie.
package csrf

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

const tokenBytes = 32

type Config struct {
	CookieName string
	HeaderName string

	CookiePath string
	Secure     bool
	SameSite   http.SameSite
	MaxAge     time.Duration

	EnforceSameOrigin bool

	// Exempt reports requests that need no token check. The token cookie is
	// still issued for them.
	Exempt func(c echo.Context) bool
}

func DefaultConfig() Config {
	return Config{
		CookieName:        "XSRF-TOKEN",
		HeaderName:        "X-CSRF-Token",
		CookiePath:        "/",
		Secure:            true,
		SameSite:          http.SameSiteLaxMode,
		MaxAge:            24 * time.Hour,
		EnforceSameOrigin: true,
	}
}

func (cfg Config) withDefaults() Config {
	def := DefaultConfig()
	if cfg.CookieName == "" {
		cfg.CookieName = def.CookieName
	}
	if cfg.HeaderName == "" {
		cfg.HeaderName = def.HeaderName
	}
	if cfg.CookiePath == "" {
		cfg.CookiePath = def.CookiePath
	}
	if cfg.SameSite == 0 {
		cfg.SameSite = def.SameSite
	}
	if cfg.MaxAge == 0 {
		cfg.MaxAge = def.MaxAge
	}
	return cfg
}

// UnlessCookie exempts requests that do not carry the named cookie, or that
// also send an Authorization header. Neither is something a browser attaches
// to a cross-site request on its own.
func UnlessCookie(name string) func(c echo.Context) bool {
	return func(c echo.Context) bool {
		if c.Request().Header.Get(echo.HeaderAuthorization) != "" {
			return true
		}
		ck, err := c.Cookie(name)
		return err != nil || ck.Value == ""
	}
}

func Middleware(cfg Config) echo.MiddlewareFunc {
	g := guard{cfg: cfg.withDefaults()}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := g.issue(c)
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "failed to create CSRF token").SetInternal(err)
			}
			if !g.mustCheck(c) {
				return next(c)
			}

			if g.cfg.EnforceSameOrigin && !fromOwnOrigin(c) {
				return echo.NewHTTPError(http.StatusForbidden, "invalid origin")
			}
			sent := c.Request().Header.Get(g.cfg.HeaderName)
			if subtle.ConstantTimeCompare([]byte(token), []byte(sent)) != 1 {
				return echo.NewHTTPError(http.StatusForbidden, "invalid CSRF token")
			}
			return next(c)
		}
	}
}

type guard struct {
	cfg Config
}

// issue keeps the browser's current token or mints one, and echoes it in both
// the cookie and the response header.
func (g guard) issue(c echo.Context) (string, error) {
	var token string
	if ck, err := c.Cookie(g.cfg.CookieName); err == nil {
		token = ck.Value
	}
	if token == "" {
		buf := make([]byte, tokenBytes)
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		token = base64.RawURLEncoding.EncodeToString(buf)
	}

	c.SetCookie(&http.Cookie{
		Name:     g.cfg.CookieName,
		Value:    token,
		Path:     g.cfg.CookiePath,
		Secure:   g.cfg.Secure,
		MaxAge:   int(g.cfg.MaxAge / time.Second),
		SameSite: g.cfg.SameSite,
	})
	c.Response().Header().Set(g.cfg.HeaderName, token)
	return token, nil
}

func (g guard) mustCheck(c echo.Context) bool {
	switch c.Request().Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}
	return g.cfg.Exempt == nil || !g.cfg.Exempt(c)
}

// fromOwnOrigin compares Origin, or Referer when Origin is absent, with the
// scheme and host the request arrived on.
func fromOwnOrigin(c echo.Context) bool {
	req := c.Request()
	src := req.Header.Get(echo.HeaderOrigin)
	if src == "" {
		src = req.Referer()
	}
	if src == "" {
		return false
	}
	u, err := url.Parse(src)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Scheme, c.Scheme()) && strings.EqualFold(u.Host, req.Host)
}
