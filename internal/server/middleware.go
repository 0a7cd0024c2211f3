package server

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/wibookly/mailcore/internal/auth"
)

// identityKey is the echo context key the authenticated identity is stored
// under.
const identityKey = "mailcore.identity"

// bearerAuth rejects requests without a verifiable bearer token and stores
// the resolved identity on the context.
func bearerAuth(resolver auth.Resolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				return c.JSON(http.StatusUnauthorized, errorResponse{Error: "missing bearer token"})
			}

			identity, err := resolver.Resolve(token)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, errorResponse{Error: "invalid bearer token"})
			}

			c.Set(identityKey, identity)
			return next(c)
		}
	}
}

// identityFrom returns the identity the auth middleware stored.
func identityFrom(c echo.Context) (auth.Identity, bool) {
	identity, ok := c.Get(identityKey).(auth.Identity)
	return identity, ok
}
