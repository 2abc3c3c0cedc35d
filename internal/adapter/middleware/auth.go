package middleware

import (
	"errors"
	"net/http"
	"strings"

	"zro-loans/internal/auth"

	"github.com/labstack/echo/v4"
)

// RequireAdmin verifies the bearer token once and stores the principal in the
// request context. Browsers cannot set headers on a websocket handshake, so an
// access_token query parameter is accepted on upgrade requests only.
func RequireAdmin(v *auth.Verifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, err := v.Parse(bearerToken(c))
			if err != nil {
				msg := "invalid token"
				if errors.Is(err, auth.ErrMissingToken) {
					msg = "missing bearer token"
				}
				return c.JSON(http.StatusUnauthorized, errBody(msg))
			}
			if !auth.IsAdmin(p) {
				return c.JSON(http.StatusForbidden, errBody("forbidden"))
			}
			c.SetRequest(c.Request().WithContext(auth.WithPrincipal(c.Request().Context(), p)))
			return next(c)
		}
	}
}

func bearerToken(c echo.Context) string {
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	if strings.EqualFold(c.Request().Header.Get("Upgrade"), "websocket") {
		return c.QueryParam("access_token")
	}
	return ""
}
