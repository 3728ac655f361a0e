package resolver

import (
	"fmt"
	"math"
	"strings"

	"agentlab/internal/domain/entity"
)

// The template language is a JSON tree where special single-key
// objects mark derivation directives. Templates are parsed into an
// explicit node tree once, then evaluated against the variable
// bindings; everything that is not a directive evaluates to itself.

type bindings map[string]entity.Product

type node interface {
	eval(b bindings) (any, error)
}

type literalNode struct{ value any }

type objectNode struct{ fields map[string]node }

type arrayNode struct{ items []node }

type deriveFromNode struct {
	varName string
	field   string
}

type deriveQueryNode struct {
	varName   string
	fields    []string
	maxTokens int
}

type deriveRangeNode struct {
	varName string
	field   string
	mult    float64
}

type deriveThresholdNode struct {
	varName string
	field   string
	floor   float64
}

func (n literalNode) eval(bindings) (any, error) { return n.value, nil }

func (n objectNode) eval(b bindings) (any, error) {
	out := make(map[string]any, len(n.fields))
	for k, child := range n.fields {
		v, err := child.eval(b)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

func (n arrayNode) eval(b bindings) (any, error) {
	out := make([]any, len(n.items))
	for i, child := range n.items {
		v, err := child.eval(b)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (n deriveFromNode) eval(b bindings) (any, error) {
	rec, err := lookupVar(b, n.varName)
	if err != nil {
		return nil, err
	}
	v, ok := rec.Field(n.field)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownField, n.varName, n.field)
	}
	return v, nil
}

func (n deriveQueryNode) eval(b bindings) (any, error) {
	rec, err := lookupVar(b, n.varName)
	if err != nil {
		return nil, err
	}
	var tokens []string
	for _, field := range n.fields {
		v, ok := rec.Field(field)
		if !ok {
			continue
		}
		s := strings.TrimSpace(fmt.Sprintf("%v", v))
		if s != "" {
			tokens = append(tokens, strings.Fields(s)...)
		}
	}
	if len(tokens) > n.maxTokens {
		tokens = tokens[:n.maxTokens]
	}
	return strings.Join(tokens, " "), nil
}

func (n deriveRangeNode) eval(b bindings) (any, error) {
	rec, err := lookupVar(b, n.varName)
	if err != nil {
		return nil, err
	}
	base, err := numericField(rec, n.varName, n.field)
	if err != nil {
		return nil, err
	}
	return math.Round(base*n.mult*100) / 100, nil
}

func (n deriveThresholdNode) eval(b bindings) (any, error) {
	rec, err := lookupVar(b, n.varName)
	if err != nil {
		return nil, err
	}
	v, ok := rec.Field(n.field)
	if !ok {
		return n.floor, nil
	}
	f, ok := asFloat(v)
	if !ok {
		return n.floor, nil
	}
	return math.Max(f, n.floor), nil
}

func lookupVar(b bindings, name string) (entity.Product, error) {
	rec, ok := b[name]
	if !ok {
		return entity.Product{}, fmt.Errorf("%w: %s", ErrUnknownBinding, name)
	}
	return rec, nil
}

func numericField(rec entity.Product, varName, field string) (float64, error) {
	v, ok := rec.Field(field)
	if !ok {
		return 0, fmt.Errorf("%w: %s.%s", ErrUnknownField, varName, field)
	}
	f, ok := asFloat(v)
	if !ok {
		return 0, fmt.Errorf("%w: %s.%s is not numeric", ErrUnknownField, varName, field)
	}
	return f, nil
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	}
	return 0, false
}

// parseNode turns a decoded JSON value into a node tree.
func parseNode(v any) (node, error) {
	m, ok := v.(map[string]any)
	if !ok {
		if items, ok := v.([]any); ok {
			arr := arrayNode{items: make([]node, len(items))}
			for i, item := range items {
				child, err := parseNode(item)
				if err != nil {
					return nil, err
				}
				arr.items[i] = child
			}
			return arr, nil
		}
		return literalNode{value: v}, nil
	}

	if ref, ok := directiveArgs(m, "$derive_from"); ok {
		return deriveFromNode{varName: stringArg(ref, "var"), field: stringArg(ref, "field")}, nil
	}
	if ref, ok := directiveArgs(m, "$derive_query_from"); ok {
		return deriveQueryNode{
			varName:   stringArg(ref, "var"),
			fields:    stringSliceArg(ref, "fields"),
			maxTokens: intArg(ref, "max_tokens", 6),
		}, nil
	}
	if ref, ok := directiveArgs(m, "$derive_range"); ok {
		return deriveRangeNode{
			varName: stringArg(ref, "var"),
			field:   stringArg(ref, "field"),
			mult:    floatArg(ref, "mult", 1.0),
		}, nil
	}
	if ref, ok := directiveArgs(m, "$derive_threshold"); ok {
		return deriveThresholdNode{
			varName: stringArg(ref, "var"),
			field:   stringArg(ref, "field"),
			floor:   floatArg(ref, "floor", 0.0),
		}, nil
	}

	obj := objectNode{fields: make(map[string]node, len(m))}
	for k, child := range m {
		parsed, err := parseNode(child)
		if err != nil {
			return nil, err
		}
		obj.fields[k] = parsed
	}
	return obj, nil
}

func directiveArgs(m map[string]any, key string) (map[string]any, bool) {
	raw, ok := m[key]
	if !ok {
		return nil, false
	}
	args, ok := raw.(map[string]any)
	if !ok {
		return map[string]any{}, true
	}
	return args, true
}

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

func stringSliceArg(args map[string]any, key string) []string {
	raw, _ := args[key].([]any)
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func intArg(args map[string]any, key string, def int) int {
	if f, ok := asFloat(args[key]); ok {
		return int(f)
	}
	return def
}

func floatArg(args map[string]any, key string, def float64) float64 {
	if f, ok := asFloat(args[key]); ok {
		return f
	}
	return def
}
