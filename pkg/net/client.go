package net

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httputil"
	"time"

	"golang.org/x/oauth2"
)

const (
	maxIdleConns     = 10
	timeoutInSeconds = 60
	clientAgent      = "hireable"
)

var (
	reqTransport = &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          maxIdleConns,
		IdleConnTimeout:       timeoutInSeconds * time.Second,
		DisableKeepAlives:     false,
		ResponseHeaderTimeout: time.Duration(timeoutInSeconds) * time.Second,
	}
)

// agentTransport stamps every request with the client user agent.
type agentTransport struct {
	base http.RoundTripper
}

func (t *agentTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	req := r.Clone(r.Context())
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", clientAgent)
	}
	return t.base.RoundTrip(req)
}

// GetHTTPClient returns an unauthenticated client with a cookie jar.
func GetHTTPClient() (*http.Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("error creating cookie jar: %w", err)
	}
	return &http.Client{
		Jar:       jar,
		Timeout:   time.Duration(timeoutInSeconds) * time.Second,
		Transport: &agentTransport{base: reqTransport},
	}, nil
}

// GetOAuthClient returns a client authorizing requests with the token.
// An empty token yields an unauthenticated client for public data.
func GetOAuthClient(ctx context.Context, token string) *http.Client {
	base := &http.Client{
		Timeout:   time.Duration(timeoutInSeconds) * time.Second,
		Transport: &agentTransport{base: reqTransport},
	}
	if token == "" {
		return base
	}

	ts := oauth2.StaticTokenSource(
		&oauth2.Token{
			TokenType:   "token",
			AccessToken: token,
		},
	)
	return oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, base), ts)
}

// PrintHTTPResponse dumps the response at debug level.
func PrintHTTPResponse(resp *http.Response) {
	if resp == nil {
		return
	}
	if respDump, err := httputil.DumpResponse(resp, true); err == nil {
		slog.Debug("http response", "dump", string(respDump))
	}
}
