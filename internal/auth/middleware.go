package auth

import (
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"todoapi/internal/errors"
)

const basicScheme = "Basic "

// BasicAuth returns echo middleware that rejects requests lacking a valid
// Authorization: Basic header before they reach the handlers.
func BasicAuth(verifier CredentialVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if len(header) > len(basicScheme) && strings.EqualFold(header[:len(basicScheme)], basicScheme) {
				raw, err := base64.StdEncoding.DecodeString(header[len(basicScheme):])
				if err == nil {
					if username, password, ok := strings.Cut(string(raw), ":"); ok && verifier.Verify(username, password) {
						return next(c)
					}
				}
			}
			c.Response().Header().Set(echo.HeaderWWWAuthenticate, `Basic realm="todoapi"`)
			return echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
				Error: "basic authentication required",
				Code:  "UNAUTHORIZED",
			})
		}
	}
}
