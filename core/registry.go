package core

import (
	"errors"
	"fmt"
	"strings"

	"nfcunha/hermes-router/core/domain/service"
)

// MatchKind selects how a RouteRule pattern is compared against a path.
type MatchKind string

const (
	// MatchExact matches only when the path equals the pattern.
	MatchExact MatchKind = "exact"
	// MatchPrefix matches the pattern itself and any path below it.
	MatchPrefix MatchKind = "prefix"
)

// MatchStrategy decides which prefix rule wins when several match.
type MatchStrategy string

const (
	// StrategyLongestPrefix picks the most specific matching prefix.
	StrategyLongestPrefix MatchStrategy = "longest_prefix"
	// StrategyFirstRegistered picks the first matching prefix in registration order.
	StrategyFirstRegistered MatchStrategy = "first_registered"
)

// RouteRule maps a path pattern to a service name.
type RouteRule struct {
	Pattern string    `json:"pattern"`
	Match   MatchKind `json:"match"`
	Service string    `json:"service"`
}

// matches reports whether path falls under the rule. Prefix rules respect
// segment boundaries: "/api/upload" matches "/api/upload/x" but not "/api/uploads".
func (r RouteRule) matches(path string) bool {
	switch r.Match {
	case MatchExact:
		return path == r.Pattern
	case MatchPrefix:
		if !strings.HasPrefix(path, r.Pattern) {
			return false
		}
		if len(path) == len(r.Pattern) || strings.HasSuffix(r.Pattern, "/") {
			return true
		}
		return path[len(r.Pattern)] == '/'
	default:
		return false
	}
}

// RouteRegistry is the static table of services and explicit path rules.
// It is built once by NewRouteRegistry and never mutated afterwards, so it
// can be shared between goroutines without locking.
type RouteRegistry struct {
	services map[string]service.ServiceConfig // Key: service name
	order    []string                         // service names in registration order
	exact    map[string]RouteRule             // Key: pattern
	prefixes []RouteRule                      // registration order
	rules    []RouteRule
	strategy MatchStrategy
}

// NewRouteRegistry validates services and rules and builds the registry.
// It fails when a service is invalid, when two services share a name or a
// port, when a rule references an unknown service, or when a rule is
// declared twice.
func NewRouteRegistry(strategy MatchStrategy, services []service.ServiceConfig, rules []RouteRule) (*RouteRegistry, error) {
	if strategy == "" {
		strategy = StrategyLongestPrefix
	}
	if strategy != StrategyLongestPrefix && strategy != StrategyFirstRegistered {
		return nil, fmt.Errorf("unknown match strategy: %q", strategy)
	}

	r := &RouteRegistry{
		services: make(map[string]service.ServiceConfig, len(services)),
		order:    make([]string, 0, len(services)),
		exact:    make(map[string]RouteRule),
		prefixes: make([]RouteRule, 0, len(rules)),
		rules:    make([]RouteRule, 0, len(rules)),
		strategy: strategy,
	}

	ports := make(map[int]string, len(services))
	for _, svc := range services {
		if err := svc.Validate(); err != nil {
			return nil, err
		}
		if _, exists := r.services[svc.Name]; exists {
			return nil, fmt.Errorf("service already registered: %s", svc.Name)
		}
		if owner, exists := ports[svc.Port]; exists {
			return nil, fmt.Errorf("port %d already used by service %s", svc.Port, owner)
		}
		ports[svc.Port] = svc.Name
		r.services[svc.Name] = svc
		r.order = append(r.order, svc.Name)
	}

	seen := make(map[RouteRule]struct{}, len(rules))
	for _, rule := range rules {
		if err := r.addRule(rule, seen); err != nil {
			return nil, err
		}
	}

	return r, nil
}

func (r *RouteRegistry) addRule(rule RouteRule, seen map[RouteRule]struct{}) error {
	if rule.Match == "" {
		rule.Match = MatchPrefix
	}
	if !strings.HasPrefix(rule.Pattern, "/") {
		return fmt.Errorf("route pattern must start with '/': %q", rule.Pattern)
	}
	if _, ok := r.services[rule.Service]; !ok {
		return fmt.Errorf("route %s references unknown service: %s", rule.Pattern, rule.Service)
	}

	key := RouteRule{Pattern: rule.Pattern, Match: rule.Match}
	if _, dup := seen[key]; dup {
		return fmt.Errorf("duplicate %s route: %s", rule.Match, rule.Pattern)
	}
	seen[key] = struct{}{}

	switch rule.Match {
	case MatchExact:
		r.exact[rule.Pattern] = rule
	case MatchPrefix:
		r.prefixes = append(r.prefixes, rule)
	default:
		return fmt.Errorf("unknown match kind %q for route %s", rule.Match, rule.Pattern)
	}

	r.rules = append(r.rules, rule)
	return nil
}

// ErrServiceNotFound is returned by Service when the name is not registered.
var ErrServiceNotFound = errors.New("service not found")

// Service returns the config of a registered service by name.
func (r *RouteRegistry) Service(name string) (service.ServiceConfig, error) {
	svc, ok := r.services[name]
	if !ok {
		return service.ServiceConfig{}, fmt.Errorf("%w: %s", ErrServiceNotFound, name)
	}
	return svc, nil
}

// Services returns all services in registration order.
func (r *RouteRegistry) Services() []service.ServiceConfig {
	out := make([]service.ServiceConfig, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.services[name])
	}
	return out
}

// Rules returns the explicit rules in registration order.
func (r *RouteRegistry) Rules() []RouteRule {
	out := make([]RouteRule, len(r.rules))
	copy(out, r.rules)
	return out
}

// Strategy returns the configured prefix tie-break.
func (r *RouteRegistry) Strategy() MatchStrategy {
	return r.strategy
}

// Lookup performs the explicit-rule step only: exact rules first, then
// prefix rules according to the registry strategy.
func (r *RouteRegistry) Lookup(path string) (RouteRule, bool) {
	if rule, ok := r.exact[path]; ok {
		return rule, true
	}

	var (
		best  RouteRule
		found bool
	)
	for _, rule := range r.prefixes {
		if !rule.matches(path) {
			continue
		}
		if r.strategy == StrategyFirstRegistered {
			return rule, true
		}
		if !found || len(rule.Pattern) > len(best.Pattern) {
			best = rule
			found = true
		}
	}

	return best, found
}
