package handler

import (
	"github.com/labstack/echo/v4"

	"lichess-gateway/internal/config"
	"lichess-gateway/internal/metrics"
	"lichess-gateway/internal/service"
)

// APIPrefix is the path every proxied Lichess route is mounted under.
const APIPrefix = "/api/lichess"

// RegisterRoutes wires all route handlers onto the Echo instance. m may be nil
// when metrics are disabled.
func RegisterRoutes(e *echo.Echo, cfg *config.Config, gw *GatewayHandler, health *HealthHandler, m *metrics.Metrics) {
	e.GET("/healthz", health.Healthz)
	e.GET("/gateway/status", health.Status)

	api := e.Group(APIPrefix)
	for _, spec := range service.Routes() {
		api.Add(spec.Method, spec.Path, gw.Simple(spec))
	}
	api.POST("/challenge", gw.Challenge)

	if cfg.Metrics.Enabled && m != nil {
		e.GET(cfg.Metrics.Path, echo.WrapHandler(m.Handler()))
	}
}
