package v1

import (
	"errors"
	"net/http"
	"strings"

	"github.com/che-incubator/dashboard-backend/k8s"

	"github.com/labstack/echo/v5"
	"github.com/rs/zerolog/log"
)

const ctxClient = "client"

// forwardedTokenHeader is set by an authenticating proxy in front of the
// dashboard.
const forwardedTokenHeader = "X-Forwarded-Access-Token"

// AuthMiddleware resolves the caller's bearer token into a Kubernetes client
// acting as that caller.
func AuthMiddleware(clients k8s.ClientProvider) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			token, ok := bearerToken(c.Request())
			if !ok {
				return unauthorized(c, "invalid authorization header")
			}

			client, err := clients.ForToken(token)
			if errors.Is(err, k8s.ErrNoToken) {
				return unauthorized(c, "missing authorization header")
			}
			if err != nil {
				log.Error().Err(err).Msg("failed to build kubernetes client")
				return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "unable to reach the cluster", Code: CodeInternal})
			}
			c.Set(ctxClient, client)

			return next(c)
		}
	}
}

// bearerToken returns the token from the Authorization header or the
// forwarded access token header. An empty token is reported as ok; a
// malformed Authorization header is not.
func bearerToken(r *http.Request) (string, bool) {
	if auth := r.Header.Get("Authorization"); auth != "" {
		scheme, token, found := strings.Cut(auth, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			return "", false
		}
		return strings.TrimSpace(token), true
	}
	return strings.TrimSpace(r.Header.Get(forwardedTokenHeader)), true
}

func unauthorized(c *echo.Context, msg string) error {
	c.Response().Header().Set("WWW-Authenticate", `Bearer realm="dashboard"`)
	return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: msg, Code: CodeUnauthorized})
}
