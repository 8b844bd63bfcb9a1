// Package model defines shared types for the gateway.
package model

import (
	"context"
	"net/http"
	"net/url"
)

// ProxyRequest is one inbound request reduced to what a route needs.
type ProxyRequest struct {
	Ctx        context.Context
	PathParams map[string]string
	Query      url.Values
}

// Param returns the named path parameter, falling back to the first query value.
func (r *ProxyRequest) Param(name string) string {
	if v, ok := r.PathParams[name]; ok {
		return v
	}
	return r.Query.Get(name)
}

// ProxyResponse is a fully read upstream response.
type ProxyResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}
