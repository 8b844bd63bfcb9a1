// Package client provides the upstream HTTP client for the Lichess API.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"lichess-gateway/internal/config"
	"lichess-gateway/internal/metrics"
	"lichess-gateway/internal/model"
)

// ErrBodyTooLarge is returned when an upstream body exceeds upstream.max_body_bytes.
var ErrBodyTooLarge = errors.New("upstream response body too large")

// LichessClient sends requests to the upstream Lichess API.
type LichessClient struct {
	httpClient   *http.Client
	logger       *slog.Logger
	metrics      *metrics.Metrics
	maxBodyBytes int64
}

// NewLichessClient creates a LichessClient with connection pooling and timeouts.
// The metrics parameter is optional; pass nil to disable upstream metrics recording.
func NewLichessClient(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *LichessClient {
	transport := &http.Transport{
		MaxIdleConns:        cfg.Upstream.IdleConnections,
		MaxIdleConnsPerHost: cfg.Upstream.IdleConnections,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}

	return &LichessClient{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   time.Duration(cfg.Upstream.TimeoutSeconds) * time.Second,
		},
		logger:       logger.With("component", "lichess_client"),
		metrics:      m,
		maxBodyBytes: cfg.Upstream.MaxBodyBytes,
	}
}

// Do executes req and reads the whole response body. route labels metrics and logs.
func (c *LichessClient) Do(route string, req *http.Request) (*model.ProxyResponse, error) {
	c.logger.Debug("upstream request",
		"route", route,
		"method", req.Method,
		"path", req.URL.Path,
	)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.UpstreamFailed(route, time.Since(start))
		return nil, fmt.Errorf("upstream request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	c.metrics.ObserveUpstream(route, resp.StatusCode, time.Since(start))

	body, err := c.readBody(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read upstream body: %w", err)
	}

	return &model.ProxyResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

// Get issues a GET request. The context controls the lifetime of the upstream call.
func (c *LichessClient) Get(ctx context.Context, route, rawURL string, header http.Header) (*model.ProxyResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	req.Header = header

	return c.Do(route, req)
}

// PostForm issues a form-encoded POST request.
func (c *LichessClient) PostForm(ctx context.Context, route, rawURL string, header http.Header, form url.Values) (*model.ProxyResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	req.Header = header
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return c.Do(route, req)
}

func (c *LichessClient) readBody(r io.Reader) ([]byte, error) {
	if c.maxBodyBytes <= 0 {
		return io.ReadAll(r)
	}
	body, err := io.ReadAll(io.LimitReader(r, c.maxBodyBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > c.maxBodyBytes {
		return nil, ErrBodyTooLarge
	}
	return body, nil
}
