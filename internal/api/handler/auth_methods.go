package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clinical-meteor/checklist-manifesto/internal/api/metrics"
	"github.com/clinical-meteor/checklist-manifesto/internal/core/domain"
	"github.com/clinical-meteor/checklist-manifesto/internal/core/ports"
)

// AuthMethodHandler serves the account-related remote methods.
type AuthMethodHandler struct {
	accounts ports.AccountService
}

func NewAuthMethodHandler(accounts ports.AccountService) *AuthMethodHandler {
	return &AuthMethodHandler{accounts: accounts}
}

type loginParams struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type resumeParams struct {
	Token string `json:"token" validate:"required"`
}

type logoutResponse struct {
	Success bool `json:"success"`
}

// Login handles the "login" method. Returns the identity tuple; an unknown
// username fails with user-not-found, a bad password with
// invalid-credentials. This path leaks the distinction by contract.
func (h *AuthMethodHandler) Login(c echo.Context) error {
	var params loginParams
	if err := c.Bind(&params); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&params); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	identity, err := h.accounts.Login(c.Request().Context(), params.Username, params.Password)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues(domain.LoginMethodPlain, loginResult(err)).Inc()
		return err
	}

	metrics.LoginsTotal.WithLabelValues(domain.LoginMethodPlain, "success").Inc()
	return c.JSON(http.StatusOK, identity)
}

// TokenLogin handles the "accounts.login" method. Every authentication
// failure collapses to login-failed; success returns the token grant.
func (h *AuthMethodHandler) TokenLogin(c echo.Context) error {
	var params loginParams
	if err := c.Bind(&params); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&params); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	grant, err := h.accounts.LoginWithToken(c.Request().Context(), params.Username, params.Password)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues(domain.LoginMethodToken, loginResult(err)).Inc()
		return err
	}

	metrics.LoginsTotal.WithLabelValues(domain.LoginMethodToken, "success").Inc()
	return c.JSON(http.StatusOK, grant)
}

// Resume handles "accounts.resume": exchanges a previously issued login
// token for the identity it is bound to.
func (h *AuthMethodHandler) Resume(c echo.Context) error {
	var params resumeParams
	if err := c.Bind(&params); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&params); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	identity, err := h.accounts.ResumeToken(c.Request().Context(), params.Token)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, identity)
}

// Logout handles "accounts.logout": invalidates a single login token.
// Revoking an unknown token still reports success.
func (h *AuthMethodHandler) Logout(c echo.Context) error {
	var params resumeParams
	if err := c.Bind(&params); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&params); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.accounts.Logout(c.Request().Context(), params.Token); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, logoutResponse{Success: true})
}

func loginResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		return "user-not-found"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "invalid-credentials"
	case errors.Is(err, domain.ErrLoginFailed):
		return "login-failed"
	default:
		return "error"
	}
}
