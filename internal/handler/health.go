package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"lichess-gateway/internal/config"
	"lichess-gateway/internal/service"
)

// Version is a string type for dependency injection of the build version.
type Version string

// StatusResponse is the body of GET /gateway/status.
type StatusResponse struct {
	Status            string `json:"status"`
	Version           string `json:"version"`
	UpstreamURL       string `json:"upstream_url"`
	AuthConfigured    bool   `json:"auth_configured"`
	AccountConfigured bool   `json:"account_configured"`
	Routes            int    `json:"routes"`
}

// HealthHandler serves health and status endpoints.
type HealthHandler struct {
	cfg     *config.Config
	version Version
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(cfg *config.Config, v Version) *HealthHandler {
	return &HealthHandler{cfg: cfg, version: v}
}

// Healthz returns a simple OK response for liveness probes.
func (h *HealthHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Status reports the gateway build and which credentials are configured.
// The token and account id themselves are never echoed.
func (h *HealthHandler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, StatusResponse{
		Status:            "ok",
		Version:           string(h.version),
		UpstreamURL:       h.cfg.Upstream.BaseURL,
		AuthConfigured:    h.cfg.Lichess.HasToken(),
		AccountConfigured: h.cfg.Lichess.AccountID != "",
		Routes:            len(service.Routes()) + 1,
	})
}
