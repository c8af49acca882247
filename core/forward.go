package core

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ForwardService resolves a path with the PathRouter and proxies the
// request to the resulting URL. It is a single hop: no retries, no
// instance selection.
type ForwardService struct {
	router *PathRouter
	proxy  *ProxyService
	logger zerolog.Logger
}

// NewForwardService creates a forward service over the given router and proxy.
func NewForwardService(rtr *PathRouter, prx *ProxyService, logger zerolog.Logger) *ForwardService {
	return &ForwardService{
		router: rtr,
		proxy:  prx,
		logger: logger.With().Str("component", "forward").Logger(),
	}
}

// Forward resolves path and forwards the request in c to it. rawPath is the
// escaped form of path and may be empty.
// It returns the resolution on success. A *NoRouteError is returned
// unchanged; backend failures wrap ErrBackendUnavailable.
func (s *ForwardService) Forward(c *gin.Context, path, rawPath string) (Resolution, error) {
	res, err := s.router.Resolve(path)
	if err != nil {
		s.logger.Info().Str("path", path).Msg("No route for forwarded request")
		return Resolution{}, err
	}

	s.logger.Info().
		Str("path", path).
		Str("service", res.Service.Name).
		Str("method", string(res.Method)).
		Str("target", res.URL).
		Msg("Forwarding request")

	if err := s.proxy.ForwardTo(c, res.Service, path, rawPath); err != nil {
		return res, err
	}
	return res, nil
}
