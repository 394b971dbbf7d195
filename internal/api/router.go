package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/authgate/session-auth/internal/api/cookie"
	"github.com/authgate/session-auth/internal/api/handler"
	"github.com/authgate/session-auth/internal/api/middleware"
	"github.com/authgate/session-auth/internal/core/ports"
	"github.com/authgate/session-auth/internal/core/service"
)

// Deps are the collaborators NewRouter wires into handlers.
type Deps struct {
	Users    ports.UserRepository
	Sessions ports.SessionStore
	Hasher   ports.CredentialHasher
	Events   ports.EventRepository // optional audit trail
	Cookies  *cookie.Codec
	Timeouts service.Timeouts

	// Checks are the readiness probes served on /health/ready.
	Checks map[string]handler.Pinger

	// Registerer and Gatherer default to the Prometheus default registry.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer

	Log zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			event := d.Log.Info()
			if v.Error != nil {
				event = d.Log.Warn().Err(v.Error)
			}
			event.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	}))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "http",
		Registerer: d.Registerer,
	}))

	// --- Dependencies ---
	policy := service.NewPasswordPolicy()
	authService := service.NewAuthService(d.Users, d.Sessions, d.Hasher, policy, d.Timeouts, d.Log)
	if d.Events != nil {
		authService.WithEvents(d.Events)
	}
	gate := service.NewAccessGate(d.Users, d.Timeouts.Store)

	authHandler := handler.NewAuthHandler(authService, d.Cookies)
	profileHandler := handler.NewProfileHandler(gate)
	healthHandler := handler.NewHealthHandler(d.Checks)

	// --- Auth routes ---
	auth := e.Group("/auth")
	auth.POST("/signup", authHandler.Signup)
	auth.POST("/login", authHandler.Login)
	auth.POST("/logout", authHandler.Logout)

	// --- Protected routes ---
	profile := e.Group("/profile", middleware.RequireSession(d.Sessions, gate, d.Cookies, handler.LoginPath))
	profile.GET("/main", profileHandler.Main)
	profile.GET("/private", profileHandler.Private)

	// --- Health probes and metrics (no session required) ---
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthHandler.Readiness)
	e.GET("/metrics", metricsHandler(d.Gatherer))

	return e
}

func metricsHandler(g prometheus.Gatherer) echo.HandlerFunc {
	if g == nil {
		return echoprometheus.NewHandler()
	}
	return echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: g})
}

