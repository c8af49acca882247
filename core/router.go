// Package core implements path-to-service resolution and the services built
// around it: the immutable route registry, ordered inference rules, the
// path router itself, and single-hop request forwarding.
package core

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"nfcunha/hermes-router/core/domain/service"
)

// ErrNoRouteFound is the only routing failure: the path matched no
// explicit rule and no inference rule.
var ErrNoRouteFound = errors.New("no route found")

// NoRouteError carries the path that could not be routed.
// It unwraps to ErrNoRouteFound.
type NoRouteError struct {
	Path string
}

func (e *NoRouteError) Error() string {
	return fmt.Sprintf("no route found for path %q", e.Path)
}

func (e *NoRouteError) Unwrap() error {
	return ErrNoRouteFound
}

// ResolutionMethod tells whether a path was routed by an explicit rule or by inference.
type ResolutionMethod string

const (
	MethodExplicit ResolutionMethod = "explicit"
	MethodInferred ResolutionMethod = "inferred"
)

// MatchResult is returned by GetMatchingServiceInfo when an explicit rule matches.
type MatchResult struct {
	ServiceName string                `json:"service_name"`
	Config      service.ServiceConfig `json:"config"`
	Rule        RouteRule             `json:"rule"`
}

// Resolution is the full outcome of routing a single path.
type Resolution struct {
	Path    string                `json:"path"`
	Service service.ServiceConfig `json:"service"`
	URL     string                `json:"url"`
	Method  ResolutionMethod      `json:"method"`
	// Rule describes what matched: the explicit pattern or the inference predicate.
	Rule string `json:"rule"`
}

// PathRouter resolves request paths to backend services.
// Routing is a pure function of the path and the registry it was built
// with; a PathRouter is safe for concurrent use.
type PathRouter struct {
	registry  *RouteRegistry
	inference []InferenceRule
	metrics   *Metrics
	logger    zerolog.Logger
}

// NewPathRouter creates a router over reg with the given ordered inference
// rules. Every inference rule must name a service present in reg.
// metrics may be nil.
func NewPathRouter(reg *RouteRegistry, inference []InferenceRule, metrics *Metrics, logger zerolog.Logger) (*PathRouter, error) {
	if reg == nil {
		return nil, errors.New("route registry is required")
	}

	rules := make([]InferenceRule, 0, len(inference))
	for i, rule := range inference {
		if _, err := reg.Service(rule.Service()); err != nil {
			return nil, fmt.Errorf("inference rule %d (%s): %w", i, rule.Describe(), err)
		}
		rules = append(rules, rule)
	}

	return &PathRouter{
		registry:  reg,
		inference: rules,
		metrics:   metrics,
		logger:    logger.With().Str("component", "router").Logger(),
	}, nil
}

// Registry returns the registry the router was built with.
func (r *PathRouter) Registry() *RouteRegistry {
	return r.registry
}

// InferenceRules returns the inference rules in evaluation order.
func (r *PathRouter) InferenceRules() []InferenceRule {
	out := make([]InferenceRule, len(r.inference))
	copy(out, r.inference)
	return out
}

// RouteRequest resolves path to a service. It tries the explicit registry
// first and falls back to inference. It returns a *NoRouteError when
// neither step resolves the path.
func (r *PathRouter) RouteRequest(path string) (service.ServiceConfig, error) {
	res, err := r.Resolve(path)
	if err != nil {
		return service.ServiceConfig{}, err
	}
	return res.Service, nil
}

// BuildAPIURL resolves path and returns the service base URL followed by
// path, unmodified. Example: "http://localhost:3004/api/student/upload/answer-image".
func (r *PathRouter) BuildAPIURL(path string) (string, error) {
	res, err := r.Resolve(path)
	if err != nil {
		return "", err
	}
	return res.URL, nil
}

// GetMatchingServiceInfo performs only the explicit registry lookup.
// It returns nil when no rule matches, meaning RouteRequest would use inference.
func (r *PathRouter) GetMatchingServiceInfo(path string) *MatchResult {
	rule, ok := r.registry.Lookup(path)
	if !ok {
		return nil
	}

	svc, err := r.registry.Service(rule.Service)
	if err != nil {
		// Rules are validated against services at registry construction.
		return nil
	}

	return &MatchResult{ServiceName: svc.Name, Config: svc, Rule: rule}
}

// Resolve routes path and reports how it was routed.
func (r *PathRouter) Resolve(path string) (Resolution, error) {
	if match := r.GetMatchingServiceInfo(path); match != nil {
		r.metrics.observe(MethodExplicit, match.ServiceName)
		r.logger.Debug().
			Str("path", path).
			Str("service", match.ServiceName).
			Str("pattern", match.Rule.Pattern).
			Msg("Path matched explicit route")
		return Resolution{
			Path:    path,
			Service: match.Config,
			URL:     match.Config.URLFor(path),
			Method:  MethodExplicit,
			Rule:    string(match.Rule.Match) + " " + match.Rule.Pattern,
		}, nil
	}

	segments := SplitSegments(path)
	for _, rule := range r.inference {
		if !rule.Matches(path, segments) {
			continue
		}
		svc, err := r.registry.Service(rule.Service())
		if err != nil {
			continue
		}
		r.metrics.observe(MethodInferred, svc.Name)
		r.logger.Debug().
			Str("path", path).
			Str("service", svc.Name).
			Str("rule", rule.Describe()).
			Msg("Path routed by inference")
		return Resolution{
			Path:    path,
			Service: svc,
			URL:     svc.URLFor(path),
			Method:  MethodInferred,
			Rule:    rule.Describe(),
		}, nil
	}

	r.metrics.observeNoRoute()
	r.logger.Debug().Str("path", path).Msg("No route found")
	return Resolution{}, &NoRouteError{Path: path}
}
