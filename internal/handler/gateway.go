package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"lichess-gateway/internal/model"
	"lichess-gateway/internal/service"
)

const invalidBodyMessage = "Invalid request body"

// errorBody is the envelope returned for every failed request.
type errorBody struct {
	Error string `json:"error"`
}

// GatewayHandler adapts echo requests to service.Gateway calls.
type GatewayHandler struct {
	gateway *service.Gateway
	logger  *slog.Logger
}

// NewGatewayHandler creates a GatewayHandler.
func NewGatewayHandler(gw *service.Gateway, logger *slog.Logger) *GatewayHandler {
	return &GatewayHandler{
		gateway: gw,
		logger:  logger.With("component", "gateway_handler"),
	}
}

// Simple returns the handler for one entry of the route table.
func (h *GatewayHandler) Simple(spec service.RouteSpec) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := &model.ProxyRequest{
			Ctx:        c.Request().Context(),
			PathParams: pathParams(c),
			Query:      c.QueryParams(),
		}

		body, err := h.gateway.Proxy(&spec, req)
		if err != nil {
			return h.mapError(c, spec.Name, err)
		}
		return c.JSONBlob(http.StatusOK, body)
	}
}

// Challenge creates a challenge against the user named in the JSON body.
func (h *GatewayHandler) Challenge(c echo.Context) error {
	var req model.ChallengeRequest
	if c.Request().ContentLength != 0 {
		if err := c.Echo().JSONSerializer.Deserialize(c, &req); err != nil && !errors.Is(err, io.EOF) {
			h.logger.Debug("rejecting challenge body", "err", err)
			return c.JSON(http.StatusBadRequest, errorBody{Error: invalidBodyMessage})
		}
	}

	result, err := h.gateway.CreateChallenge(c.Request().Context(), &req)
	if err != nil {
		return h.mapError(c, "challenge", err)
	}
	return c.JSON(http.StatusOK, result)
}

// pathParams collects echo's path parameters. The router matches on the raw
// path when the request has one, leaving the values escaped.
func pathParams(c echo.Context) map[string]string {
	names := c.ParamNames()
	values := c.ParamValues()
	escaped := c.Request().URL.RawPath != ""

	params := make(map[string]string, len(names))
	for i, name := range names {
		if i >= len(values) {
			break
		}
		v := values[i]
		if escaped {
			if unescaped, err := url.PathUnescape(v); err == nil {
				v = unescaped
			}
		}
		params[name] = v
	}
	return params
}

// StatusFor returns the HTTP status for a gateway error.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func (h *GatewayHandler) mapError(c echo.Context, route string, err error) error {
	var ge *service.Error
	if !errors.As(err, &ge) {
		ge = &service.Error{Kind: service.ErrUpstream, Message: "Internal server error", Err: err}
	}
	status := StatusFor(ge)

	attrs := []any{
		"route", route,
		"status", status,
		"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
		"err", err,
	}
	switch {
	case errors.Is(ge, service.ErrNotConfigured):
		h.logger.Error("gateway misconfigured", append(attrs, "kind", "config")...)
	case errors.Is(ge, service.ErrUpstream):
		var se *service.StatusError
		if errors.As(ge, &se) {
			attrs = append(attrs, "upstream_status", se.StatusCode)
		}
		h.logger.Error("upstream failure", append(attrs, "kind", "upstream")...)
	case errors.Is(ge, service.ErrRateLimited):
		h.logger.Warn("throttled by upstream", attrs...)
	default:
		h.logger.Info("request rejected", attrs...)
	}

	return c.JSON(status, errorBody{Error: ge.Message})
}
