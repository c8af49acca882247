package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"nfcunha/hermes-router/core"
	"nfcunha/hermes-router/core/domain/service"
)

//go:embed default_routes.yaml
var defaultRoutes []byte

// RouteTable is the YAML representation of services, explicit routes and
// inference rules.
type RouteTable struct {
	BaseHost      string           `yaml:"base_host" validate:"required"`
	Scheme        string           `yaml:"scheme" validate:"omitempty,oneof=http https"`
	MatchStrategy string           `yaml:"match_strategy" validate:"omitempty,oneof=longest_prefix first_registered"`
	Services      []ServiceEntry   `yaml:"services" validate:"required,min=1,dive"`
	Routes        []RouteEntry     `yaml:"routes" validate:"dive"`
	Inference     []InferenceEntry `yaml:"inference" validate:"dive"`
}

// ServiceEntry declares one backend. Host and Protocol default to the
// table's base_host and scheme.
type ServiceEntry struct {
	Name     string `yaml:"name" validate:"required"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port" validate:"min=1,max=65535"`
	Protocol string `yaml:"protocol" validate:"omitempty,oneof=http https"`
}

// RouteEntry declares one explicit rule. Match defaults to prefix.
type RouteEntry struct {
	Pattern string `yaml:"pattern" validate:"required,startswith=/"`
	Match   string `yaml:"match" validate:"omitempty,oneof=exact prefix"`
	Service string `yaml:"service" validate:"required"`
}

// InferenceEntry declares one fallback rule: either a segment keyword list
// or a CEL expression, never both.
type InferenceEntry struct {
	Service    string   `yaml:"service" validate:"required"`
	Segments   []string `yaml:"segments"`
	Expression string   `yaml:"expression"`
}

var tableValidator = validator.New()

// DefaultRouteTable returns the built-in route table.
func DefaultRouteTable() (*RouteTable, error) {
	return ParseRouteTable(bytes.NewReader(defaultRoutes))
}

// LoadRouteTable reads the route table at path, or the built-in table when path is empty.
func LoadRouteTable(path string) (*RouteTable, error) {
	if path == "" {
		return DefaultRouteTable()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open route table: %w", err)
	}
	defer f.Close()

	table, err := ParseRouteTable(f)
	if err != nil {
		return nil, fmt.Errorf("route table %s: %w", path, err)
	}
	return table, nil
}

// ParseRouteTable decodes and validates a YAML route table. Unknown keys are rejected.
func ParseRouteTable(r io.Reader) (*RouteTable, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var table RouteTable
	if err := dec.Decode(&table); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("route table is empty")
		}
		return nil, fmt.Errorf("failed to parse route table: %w", err)
	}

	if table.Scheme == "" {
		table.Scheme = service.ProtocolHTTP
	}
	if table.MatchStrategy == "" {
		table.MatchStrategy = string(core.StrategyLongestPrefix)
	}

	if err := tableValidator.Struct(&table); err != nil {
		return nil, fmt.Errorf("invalid route table: %w", err)
	}

	for i := range table.Inference {
		entry := &table.Inference[i]
		entry.Expression = strings.TrimSpace(entry.Expression)

		hasSegments := len(entry.Segments) > 0
		hasExpression := entry.Expression != ""
		if hasSegments == hasExpression {
			return nil, fmt.Errorf("inference rule %d (%s): exactly one of segments or expression is required", i, entry.Service)
		}
		if hasSegments && !hasKeyword(entry.Segments) {
			return nil, fmt.Errorf("inference rule %d (%s): segments has no non-empty keyword", i, entry.Service)
		}
	}

	return &table, nil
}

func hasKeyword(segments []string) bool {
	for _, s := range segments {
		if strings.TrimSpace(s) != "" {
			return true
		}
	}
	return false
}

// ServiceConfigs returns the declared services with table defaults applied.
func (t *RouteTable) ServiceConfigs() []service.ServiceConfig {
	out := make([]service.ServiceConfig, 0, len(t.Services))
	for _, entry := range t.Services {
		svc := service.NewServiceConfig(entry.Name, entry.Host, entry.Port)
		if svc.Host == "" {
			svc.Host = t.BaseHost
		}
		svc.Protocol = t.Scheme
		if entry.Protocol != "" {
			svc.Protocol = entry.Protocol
		}
		out = append(out, svc)
	}
	return out
}

// RouteRules returns the explicit rules in declared order.
func (t *RouteTable) RouteRules() []core.RouteRule {
	out := make([]core.RouteRule, 0, len(t.Routes))
	for _, entry := range t.Routes {
		out = append(out, core.RouteRule{
			Pattern: entry.Pattern,
			Match:   core.MatchKind(entry.Match),
			Service: entry.Service,
		})
	}
	return out
}

// InferenceRules compiles the inference entries in declared order.
func (t *RouteTable) InferenceRules() ([]core.InferenceRule, error) {
	out := make([]core.InferenceRule, 0, len(t.Inference))
	for _, entry := range t.Inference {
		if strings.TrimSpace(entry.Expression) != "" {
			rule, err := core.NewExpressionRule(entry.Service, entry.Expression)
			if err != nil {
				return nil, err
			}
			out = append(out, rule)
			continue
		}
		out = append(out, core.NewSegmentRule(entry.Service, entry.Segments...))
	}
	return out, nil
}

// Build constructs the immutable registry and the router for this table.
// metrics may be nil.
func (t *RouteTable) Build(metrics *core.Metrics, logger zerolog.Logger) (*core.PathRouter, error) {
	reg, err := core.NewRouteRegistry(core.MatchStrategy(t.MatchStrategy), t.ServiceConfigs(), t.RouteRules())
	if err != nil {
		return nil, fmt.Errorf("failed to build route registry: %w", err)
	}

	inference, err := t.InferenceRules()
	if err != nil {
		return nil, err
	}

	return core.NewPathRouter(reg, inference, metrics, logger)
}
