package api

import (
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/prostech/salesbi-auth/docs"
	"github.com/prostech/salesbi-auth/internal/api/cookie"
	"github.com/prostech/salesbi-auth/internal/api/handler"
	"github.com/prostech/salesbi-auth/internal/api/middleware"
	"github.com/prostech/salesbi-auth/internal/core/domain"
	"github.com/prostech/salesbi-auth/internal/core/ports"
)

// Dependencies is everything the router wires into handlers.
type Dependencies struct {
	Auth           ports.AuthService
	Sessions       ports.SessionService
	Access         ports.AccessService
	Codec          *cookie.Codec
	SessionTimeout time.Duration
	Health         []handler.Dependency
	Log            zerolog.Logger

	// Registerer and Gatherer back the HTTP metrics and /metrics. Nil means
	// the Prometheus defaults.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Dependencies) *echo.Echo {
	if d.Registerer == nil {
		d.Registerer = prometheus.DefaultRegisterer
	}
	if d.Gatherer == nil {
		d.Gatherer = prometheus.DefaultGatherer
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "http",
		Registerer: d.Registerer,
	}))

	authHandler := handler.NewAuthHandler(d.Auth, d.Sessions, d.Codec, d.Log)
	userHandler := handler.NewUserHandler(d.Access, d.SessionTimeout)
	dashboard := handler.NewDashboardHandler()
	requireAuth := middleware.RequireAuth(d.Sessions, d.Codec, d.Log)

	// --- Auth routes ---
	e.POST("/auth/login", authHandler.Login)
	e.POST("/auth/logout", authHandler.Logout)

	me := e.Group("/auth", requireAuth)
	me.GET("/me", userHandler.Me)
	me.GET("/permissions/:name", userHandler.Permission)

	// --- Guarded pages ---
	dash := e.Group("/dashboard", requireAuth)
	dash.GET("/sales", dashboard.Sales)
	dash.GET("/costs", dashboard.Costs, middleware.RequirePermission(d.Access, domain.PermViewCosts))
	dash.GET("/team", dashboard.Team, middleware.RequireManagerOrAbove())

	admin := e.Group("/admin", requireAuth, middleware.RequireAdmin())
	admin.GET("/users", dashboard.Users)

	// --- Health probes, metrics and docs (no auth required) ---
	e.GET("/health", handler.NewHealthHandler().Liveness)
	e.GET("/health/ready", handler.NewHealthDependenciesHandler(d.Health...).Readiness)
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: d.Gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			evt := log.Info()
			if v.Error != nil || v.Status >= 500 {
				evt = log.Error().Err(v.Error)
			}
			evt.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	})
}
