package v1

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
)

// Healthz reports 503 with status "starting" until ready returns true.
func Healthz(version, commit string, features map[string]string, ready func() bool) echo.HandlerFunc {
	startTime := time.Now()

	return func(c *echo.Context) error {
		status, code := "ok", http.StatusOK
		if ready != nil && !ready() {
			status, code = "starting", http.StatusServiceUnavailable
		}
		return c.JSON(code, HealthResponse{
			Status:        status,
			Version:       version,
			Commit:        commit,
			UptimeSeconds: int(time.Since(startTime).Seconds()),
			Features:      features,
		})
	}
}
