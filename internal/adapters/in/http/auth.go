package http

import (
	"errors"
	"net/http"
	"strings"

	"shiptrack/internal/core/domain/model/identity"
	"shiptrack/internal/core/ports"

	"github.com/labstack/echo/v4"
)

const (
	principalContextKey = "shiptrack.principal"
	errorContextKey     = "shiptrack.error"
)

var errMissingToken = errors.New("missing bearer token")

// RequireAuth verifies the bearer token and stores the caller's principal in
// the echo context. Missing or rejected tokens end the request with 401.
func RequireAuth(auth ports.Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := bearerToken(c.Request())
			if err != nil {
				return unauthenticated(c, err)
			}
			principal, err := auth.Verify(c.Request().Context(), token)
			if err != nil {
				return unauthenticated(c, err)
			}
			c.Set(principalContextKey, principal)
			return next(c)
		}
	}
}

func bearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get(echo.HeaderAuthorization))
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", errMissingToken
	}
	return strings.TrimSpace(token), nil
}

func unauthenticated(c echo.Context, cause error) error {
	c.Set(errorContextKey, cause)
	c.Response().Header().Set(echo.HeaderWWWAuthenticate, `Bearer realm="shiptrack"`)
	return c.JSON(http.StatusUnauthorized, Error{
		Code:    http.StatusUnauthorized,
		Message: "authentication required",
	})
}

// principalFrom returns the principal stored by RequireAuth. Handlers behind
// RequireAuth can rely on it being set.
func principalFrom(c echo.Context) identity.Principal {
	p, _ := c.Get(principalContextKey).(identity.Principal)
	return p
}
