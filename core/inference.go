package core

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
)

// InferenceRule is a fallback predicate evaluated when no explicit route
// matches. Rules are evaluated in declared order and the first match wins.
type InferenceRule interface {
	// Service is the name of the service the rule resolves to.
	Service() string
	// Matches reports whether the rule applies to path. segments is the
	// list of non-empty path segments of path.
	Matches(path string, segments []string) bool
	// Describe returns a short human-readable form of the predicate.
	Describe() string
}

// SplitSegments returns the non-empty "/"-separated segments of path.
func SplitSegments(path string) []string {
	parts := strings.Split(path, "/")
	segments := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			segments = append(segments, p)
		}
	}
	return segments
}

// SegmentRule matches when any path segment equals one of its keywords,
// compared case-insensitively.
type SegmentRule struct {
	service  string
	keywords []string
	set      map[string]struct{}
}

// NewSegmentRule creates a segment rule for service.
func NewSegmentRule(service string, keywords ...string) *SegmentRule {
	r := &SegmentRule{
		service:  service,
		keywords: make([]string, 0, len(keywords)),
		set:      make(map[string]struct{}, len(keywords)),
	}
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		if _, dup := r.set[k]; dup {
			continue
		}
		r.set[k] = struct{}{}
		r.keywords = append(r.keywords, k)
	}
	return r
}

func (r *SegmentRule) Service() string { return r.service }

func (r *SegmentRule) Matches(_ string, segments []string) bool {
	for _, s := range segments {
		if _, ok := r.set[strings.ToLower(s)]; ok {
			return true
		}
	}
	return false
}

func (r *SegmentRule) Describe() string {
	return "segment in [" + strings.Join(r.keywords, ", ") + "]"
}

var expressionEnv = sync.OnceValues(func() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("path", cel.StringType),
		cel.Variable("segments", cel.ListType(cel.StringType)),
	)
})

// ExpressionRule matches when a CEL boolean expression over "path" and
// "segments" evaluates to true. Evaluation errors count as no match.
type ExpressionRule struct {
	service    string
	expression string
	program    cel.Program
}

// NewExpressionRule compiles expression once. It fails if the expression
// does not compile or does not produce a bool.
func NewExpressionRule(service, expression string) (*ExpressionRule, error) {
	env, err := expressionEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to create expression environment: %w", err)
	}

	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile inference expression %q: %w", expression, issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("inference expression %q must return bool, got %s", expression, ast.OutputType())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to build inference program %q: %w", expression, err)
	}

	return &ExpressionRule{service: service, expression: expression, program: prg}, nil
}

func (r *ExpressionRule) Service() string { return r.service }

func (r *ExpressionRule) Matches(path string, segments []string) bool {
	out, _, err := r.program.Eval(map[string]any{
		"path":     path,
		"segments": segments,
	})
	if err != nil {
		return false
	}
	matched, ok := out.Value().(bool)
	return ok && matched
}

func (r *ExpressionRule) Describe() string {
	return "expr " + r.expression
}
