package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"dispatch/internal/metrics"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter builds the echo instance serving s, /health and /metrics.
func NewRouter(s *Server, logger *slog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(requestLogger(logger.With("component", "http")))
	e.Use(requestMetrics)

	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "Healthy")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))

	api := e.Group("/api/v1")
	api.GET("/state", s.GetState)
	api.GET("/map", s.GetMapView)
	api.POST("/online", s.GoOnline)
	api.POST("/offline", s.GoOffline)
	api.POST("/location/retry", s.RetryLocation)
	api.POST("/businesses/:id/select", s.SelectBusiness)
	api.DELETE("/businesses/selection", s.ClearSelection)
	api.POST("/markers/tap", s.TapMarker)
	api.POST("/orders/:id/claim", s.ClaimOrder)
	api.POST("/orders/:id/accept", s.AcceptOrder)
	api.POST("/orders/:id/pickup", s.ConfirmPickup)
	api.POST("/orders/:id/status", s.UpdateOrderStatus)
	api.GET("/preferences", s.GetPreferences)
	api.PUT("/preferences", s.UpdatePreferences)
	api.GET("/toasts/stream", s.StreamToasts)

	return e
}

func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
			}
			ctx := c.Request().Context()
			switch {
			case v.Error != nil:
				logger.ErrorContext(ctx, "request failed", append(attrs, "error", v.Error)...)
			case v.Status >= http.StatusInternalServerError:
				logger.WarnContext(ctx, "request", attrs...)
			default:
				logger.DebugContext(ctx, "request", attrs...)
			}
			return nil
		},
	})
}

// requestMetrics labels by route template so path parameters stay out of
// the series.
func requestMetrics(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)
		status := c.Response().Status
		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
		}
		path := c.Path()
		if path == "" {
			path = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(c.Request().Method, path, strconv.Itoa(status)).Inc()
		return err
	}
}
