package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Health reports that the server is up, for load balancers and monitoring.
func Health(env string) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"success":     true,
			"message":     "Server is running",
			"timestamp":   time.Now().UTC().Format(time.RFC3339Nano),
			"environment": env,
		})
	}
}
