package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clinical-meteor/checklist-manifesto/internal/core/ports"
)

// DiagMethodHandler serves the read-only introspection methods. All three
// always respond 200: probe failures are data, not errors.
type DiagMethodHandler struct {
	diags ports.DiagnosticsService
}

func NewDiagMethodHandler(diags ports.DiagnosticsService) *DiagMethodHandler {
	return &DiagMethodHandler{diags: diags}
}

type serverLogsParams struct {
	Limit int `json:"limit" validate:"min=0"`
}

// TestConnection handles "testConnection".
func (h *DiagMethodHandler) TestConnection(c echo.Context) error {
	return c.JSON(http.StatusOK, h.diags.TestConnection(c.Request().Context()))
}

// TestDatabase handles "testDatabase".
func (h *DiagMethodHandler) TestDatabase(c echo.Context) error {
	return c.JSON(http.StatusOK, h.diags.TestDatabase(c.Request().Context()))
}

// GetServerLogs handles "getServerLogs". An absent or zero limit falls back
// to the service default.
func (h *DiagMethodHandler) GetServerLogs(c echo.Context) error {
	var params serverLogsParams
	if err := c.Bind(&params); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&params); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	return c.JSON(http.StatusOK, h.diags.ServerLogs(params.Limit))
}
