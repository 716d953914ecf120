package v1

import (
	"errors"
	"net/http"

	"github.com/che-incubator/dashboard-backend/k8s"

	"github.com/labstack/echo/v5"
)

const (
	CodeBadRequest   = "BAD_REQUEST"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeNotFound     = "NOT_FOUND"
	CodeInternal     = "INTERNAL_ERROR"
)

// KubeError renders a service error with the status it carries. The message
// includes the cause reported by the API server.
func KubeError(c *echo.Context, err error) error {
	var ke *k8s.Error
	if errors.As(err, &ke) {
		msg := ke.Message
		if ke.Err != nil {
			msg += ": " + ke.Err.Error()
		}
		return c.JSON(ke.Status, ErrorResponse{Error: msg, Code: ke.Label})
	}
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: CodeInternal})
}

func badRequest(c *echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg, Code: CodeBadRequest})
}

func kubeClient(c *echo.Context) *k8s.Client {
	return c.Get(ctxClient).(*k8s.Client)
}
