package http

import (
	"log/slog"
	"net/http"

	"shiptrack/internal/core/ports"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	echoSwagger "github.com/swaggo/echo-swagger"
)

// RouterOptions collects what NewRouter needs beyond the Server.
type RouterOptions struct {
	Authenticator ports.Authenticator
	Gatherer      prometheus.Gatherer
	Logger        *slog.Logger

	// Streaming upgrades GET /ws. Nil leaves the route unregistered.
	Streaming http.Handler
}

// NewRouter builds the echo instance serving the REST API, health, metrics,
// the API description and the streaming endpoint.
func NewRouter(s *Server, opts RouterOptions) (*echo.Echo, error) {
	doc, err := OpenAPI()
	if err != nil {
		return nil, err
	}
	specValidator, err := NewRequestSpecValidator(doc)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "http")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewRequestValidator()
	e.HTTPErrorHandler = HTTPErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogMethod:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			return logRequest(c, logger, v)
		},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "Healthy")
	})
	if opts.Gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}
	if opts.Streaming != nil {
		e.GET("/ws", echo.WrapHandler(opts.Streaming))
	}
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	checked := specValidator.Middleware
	api := e.Group("/api/v1/shipments")
	api.GET("/track/:code", s.TrackShipment, checked)

	auth := RequireAuth(opts.Authenticator)
	api.POST("", s.CreateShipment, auth, checked)
	api.GET("", s.ListAll, auth)
	api.GET("/mine", s.ListMine, auth)
	api.GET("/available", s.ListAvailable, auth)
	api.POST("/:id/claim", s.ClaimShipment, auth, checked)
	api.PATCH("/:id/status", s.UpdateStatus, auth, checked)
	api.POST("/:id/deliver", s.CompleteDelivery, auth, checked)

	return e, nil
}

func logRequest(c echo.Context, logger *slog.Logger, v middleware.RequestLoggerValues) error {
	ctx := c.Request().Context()
	attrs := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency}

	err := v.Error
	if stored, ok := c.Get(errorContextKey).(error); ok {
		err = stored
	}

	switch {
	case v.Status >= http.StatusInternalServerError:
		logger.ErrorContext(ctx, "Request failed", append(attrs, "error", err)...)
	case err != nil:
		logger.InfoContext(ctx, "Request rejected", append(attrs, "error", err)...)
	default:
		logger.Log(ctx, levelFor(v.URI), "Request served", attrs...)
	}
	return nil
}

// levelFor keeps health checks and scrapes out of the info log.
func levelFor(uri string) slog.Level {
	switch uri {
	case "/health", "/metrics":
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}
