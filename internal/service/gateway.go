// Package service implements the request translation between the dashboard
// and the Lichess API.
package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"lichess-gateway/internal/client"
	"lichess-gateway/internal/config"
	"lichess-gateway/internal/model"
)

const userAgent = "lichess-gateway/1.0"

const (
	mediaJSON   = "application/json"
	mediaNDJSON = "application/x-ndjson"
)

var errInvalidBody = errors.New("upstream body is not valid JSON")

// Gateway executes RouteSpecs and the challenge flow against Lichess.
type Gateway struct {
	client *client.LichessClient
	cfg    *config.Config
	logger *slog.Logger
}

// NewGateway creates a Gateway.
func NewGateway(c *client.LichessClient, cfg *config.Config, logger *slog.Logger) *Gateway {
	return &Gateway{
		client: c,
		cfg:    cfg,
		logger: logger.With("component", "gateway"),
	}
}

// Proxy validates req against spec, performs exactly one upstream call and
// returns the upstream JSON. Errors are always *Error.
func (g *Gateway) Proxy(spec *RouteSpec, req *model.ProxyRequest) ([]byte, error) {
	for _, r := range spec.Required {
		if strings.TrimSpace(req.Param(r.Name)) == "" {
			return nil, validationError(r.Message)
		}
	}

	query := spec.BuildQuery(req.Query)
	if spec.Account {
		if g.cfg.Lichess.AccountID == "" {
			return nil, configError("Lichess account id not configured")
		}
		query.Set("ids", g.cfg.Lichess.AccountID)
	}
	if spec.Auth && !g.cfg.Lichess.HasToken() {
		return nil, configError("Lichess API token not configured")
	}

	upstreamURL := g.upstreamURL(spec.ExpandPath(req.PathParams), query)
	accept := mediaJSON
	if spec.NDJSON {
		accept = mediaNDJSON
	}

	g.logger.Debug("forwarding request", "route", spec.Name, "auth", spec.Auth)

	resp, err := g.call(req.Ctx, spec.Name, http.MethodGet, upstreamURL, g.header(accept, spec.Auth), nil)
	if err != nil {
		return nil, classify(err, spec.NotFoundMessage(), spec.FailureMessage())
	}

	body, err := normalizeBody(resp)
	if err != nil {
		return nil, upstreamError(spec.FailureMessage(), err)
	}
	return body, nil
}

// classify maps an upstream failure to the gateway error taxonomy.
func classify(err error, notFoundMsg, failureMsg string) *Error {
	var se *StatusError
	if errors.As(err, &se) {
		switch se.StatusCode {
		case http.StatusNotFound:
			return notFoundError(notFoundMsg)
		case http.StatusTooManyRequests:
			return rateLimitError(err)
		}
	}
	return upstreamError(failureMsg, err)
}

// call performs one upstream request and turns non-2xx answers into *StatusError.
func (g *Gateway) call(ctx context.Context, route, method, rawURL string, header http.Header, form url.Values) (*model.ProxyResponse, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var (
		resp *model.ProxyResponse
		err  error
	)
	if method == http.MethodPost {
		resp, err = g.client.PostForm(ctx, route, rawURL, header, form)
	} else {
		resp, err = g.client.Get(ctx, route, rawURL, header)
	}
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: resp.Body}
	}
	return resp, nil
}

func (g *Gateway) upstreamURL(path string, query url.Values) string {
	u := g.cfg.Upstream.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (g *Gateway) header(accept string, auth bool) http.Header {
	h := make(http.Header)
	h.Set("Accept", accept)
	h.Set("User-Agent", userAgent)
	if auth {
		h.Set("Authorization", "Bearer "+g.cfg.Lichess.APIToken)
	}
	return h
}

// normalizeBody returns JSON bodies unchanged and folds NDJSON bodies into a
// JSON array.
func normalizeBody(resp *model.ProxyResponse) ([]byte, error) {
	media, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if media == mediaNDJSON {
		return ndjsonToArray(resp.Body)
	}
	if !gjson.ValidBytes(resp.Body) {
		return nil, errInvalidBody
	}
	return resp.Body, nil
}

func ndjsonToArray(body []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(body) + 2)
	buf.WriteByte('[')

	n := 0
	for line := range bytes.SplitSeq(body, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		if !gjson.ValidBytes(line) {
			return nil, errInvalidBody
		}
		if n > 0 {
			buf.WriteByte(',')
		}
		buf.Write(line)
		n++
	}

	buf.WriteByte(']')
	return buf.Bytes(), nil
}
