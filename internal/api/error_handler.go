package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinical-meteor/checklist-manifesto/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors. Error
// carries the stable wire name; Message the human-readable text.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their wire names and HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<name>", "message": "<text>"}.
//
// Authentication failures deliberately carry generic messages; the wire
// names are part of the client contract.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, name, msg := resolveError(err, log, c)
		_ = c.JSON(code, errorResponse{Error: name, Message: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string, string) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message), ""
	}

	// Known domain errors → deterministic wire names and status codes.
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, "user-not-found", "user not found"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid-credentials", "invalid credentials"
	case errors.Is(err, domain.ErrLoginFailed):
		return http.StatusUnauthorized, "login-failed", "login failed"
	case errors.Is(err, domain.ErrUserExists):
		return http.StatusConflict, "user-exists", "user already exists"
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal-error", "internal server error"
}
