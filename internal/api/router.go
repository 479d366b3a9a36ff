package api

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/clinical-meteor/checklist-manifesto/internal/api/handler"
	"github.com/clinical-meteor/checklist-manifesto/internal/api/middleware"
	"github.com/clinical-meteor/checklist-manifesto/internal/core/ports"
)

// RouterConfig carries the wiring the router needs beyond its services.
type RouterConfig struct {
	JWTSecret         string
	DisableWebsockets bool
}

// NewRouter builds and returns the Echo instance with all routes and the
// method registration table assembled. The registry is the only dispatch
// path for remote methods; nothing is resolved by name at call time.
func NewRouter(
	accounts ports.AccountService,
	diags ports.DiagnosticsService,
	hub *handler.LiveHub,
	cfg RouterConfig,
	log zerolog.Logger,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())

	// --- Method registry ---
	authMethods := handler.NewAuthMethodHandler(accounts)
	diagMethods := handler.NewDiagMethodHandler(diags)

	registry := handler.NewMethodRegistry()
	registry.Register("login", authMethods.Login)
	registry.Register("accounts.login", authMethods.TokenLogin)
	registry.Register("accounts.resume", authMethods.Resume)
	registry.Register("accounts.logout", authMethods.Logout)
	registry.Register("testConnection", diagMethods.TestConnection)
	registry.Register("testDatabase", diagMethods.TestDatabase)
	registry.Register("getServerLogs", diagMethods.GetServerLogs)

	e.POST("/api/method/:name", registry.Dispatch)
	log.Info().Strs("methods", registry.Names()).Msg("remote methods registered")

	// --- Live channel (authenticated) ---
	if !cfg.DisableWebsockets {
		liveHandler := handler.NewLiveHandler(hub, log)
		e.GET("/api/live", liveHandler.Serve, middleware.Auth(cfg.JWTSecret))
	}

	// --- Observability ---
	healthHandler := handler.NewHealthHandler()
	e.GET("/health", healthHandler.Liveness)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return e
}
