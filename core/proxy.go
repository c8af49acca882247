package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"nfcunha/hermes-router/core/domain/service"
)

// ErrBackendUnavailable is returned when the resolved backend could not be reached.
var ErrBackendUnavailable = errors.New("backend unavailable")

// ProxyService forwards a single HTTP request to an absolute target URL.
// It preserves method, headers, query parameters and body, and adds the
// standard X-Forwarded-* headers.
type ProxyService struct {
	client *http.Client
	logger zerolog.Logger
}

// NewProxyService creates a proxy whose client does not follow redirects.
// A zero timeout falls back to 30 seconds.
func NewProxyService(timeout time.Duration, logger zerolog.Logger) *ProxyService {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ProxyService{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger: logger.With().Str("component", "proxy").Logger(),
	}
}

// ForwardTo forwards the request in c to path on svc and streams the
// response back. rawPath is the escaped form of path as the client sent it;
// it is kept when it is a valid encoding of path. Query parameters of the
// original request are passed through unchanged.
func (p *ProxyService) ForwardTo(c *gin.Context, svc service.ServiceConfig, path, rawPath string) error {
	target, err := url.Parse(svc.BaseURL())
	if err != nil {
		p.logger.Error().Err(err).Str("service", svc.Name).Msg("Invalid service base URL")
		return fmt.Errorf("invalid base URL for service %s: %w", svc.Name, err)
	}
	target.Path = path
	target.RawPath = rawPath
	target.RawQuery = c.Request.URL.RawQuery

	proxyReq, err := p.createProxyRequest(c.Request.Context(), c.Request, target)
	if err != nil {
		p.logger.Error().Err(err).Msg("Failed to create proxy request")
		return fmt.Errorf("failed to create proxy request: %w", err)
	}

	p.logger.Debug().Str("method", proxyReq.Method).Str("target", target.String()).Msg("Forwarding request")
	return p.doRequest(c, proxyReq)
}

// createProxyRequest copies the original request onto targetURL, skipping hop-by-hop headers.
func (p *ProxyService) createProxyRequest(ctx context.Context, original *http.Request, targetURL *url.URL) (*http.Request, error) {
	proxyReq, err := http.NewRequestWithContext(ctx, original.Method, targetURL.String(), original.Body)
	if err != nil {
		return nil, err
	}

	for key, values := range original.Header {
		if isHopByHopHeader(key) {
			continue
		}
		for _, value := range values {
			proxyReq.Header.Add(key, value)
		}
	}

	if original.RemoteAddr != "" {
		proxyReq.Header.Set("X-Forwarded-For", original.RemoteAddr)
	}
	proto := "http"
	if original.TLS != nil {
		proto = "https"
	}
	proxyReq.Header.Set("X-Forwarded-Proto", proto)
	if original.Host != "" {
		proxyReq.Header.Set("X-Forwarded-Host", original.Host)
	}

	return proxyReq, nil
}

// doRequest executes the proxy request and copies the response into c.
func (p *ProxyService) doRequest(c *gin.Context, proxyReq *http.Request) error {
	resp, err := p.client.Do(proxyReq)
	if err != nil {
		p.logger.Warn().Err(err).Str("target", proxyReq.URL.String()).Msg("Backend request failed")
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	header := c.Writer.Header()
	copied := make([]string, 0, len(resp.Header))
	for key, values := range resp.Header {
		if isHopByHopHeader(key) {
			continue
		}
		copied = append(copied, key)
		for _, value := range values {
			header.Add(key, value)
		}
	}

	c.Status(resp.StatusCode)

	if _, err := io.Copy(c.Writer, resp.Body); err != nil {
		p.logger.Warn().Err(err).Msg("Failed to copy response body")
		if !c.Writer.Written() {
			// Nothing reached the client; drop the backend headers so the
			// caller can still write its own error response.
			for _, key := range copied {
				header.Del(key)
			}
			return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
		return fmt.Errorf("failed to copy response body: %w", err)
	}

	return nil
}

var hopByHopHeaders = map[string]struct{}{
	"connection":          {},
	"keep-alive":          {},
	"proxy-authenticate":  {},
	"proxy-authorization": {},
	"te":                  {},
	"trailers":            {},
	"transfer-encoding":   {},
	"upgrade":             {},
}

// isHopByHopHeader returns true for headers meaningful only on a single connection.
func isHopByHopHeader(header string) bool {
	_, ok := hopByHopHeaders[strings.ToLower(header)]
	return ok
}
