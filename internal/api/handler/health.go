package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// HealthHandler handles the GET /health liveness probe.
// Returns 200 immediately; confirms the process is alive. Dependency checks
// live behind the testConnection and testDatabase methods.
type HealthHandler struct{}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

func (h *HealthHandler) Liveness(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}
