package tools

import (
	"fmt"
	"math"
	"strings"
)

// Param describes one argument an operation accepts. The declarative form
// doubles as documentation the reasoning capability can be shown verbatim.
type Param struct {
	Name     string
	Type     ParamType
	Required bool
	Enum     []string // only for TypeEnum
	Default  any      // applied when an optional param is absent
	Doc      string
}

type ParamType string

const (
	TypeInt    ParamType = "int"
	TypeFloat  ParamType = "float"
	TypeString ParamType = "string"
	TypeEnum   ParamType = "enum"
)

// Schema is the full argument contract of one operation.
type Schema struct {
	Params []Param
}

// Validate checks args against the schema and returns a normalized copy with
// defaults applied and integral floats coerced for int params. The error
// names every offending field; on error nothing has been executed.
func (s Schema) Validate(args map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(args))
	for k, v := range args {
		out[k] = v
	}

	var bad []string
	for _, p := range s.Params {
		v, ok := out[p.Name]
		if !ok {
			if p.Required {
				bad = append(bad, p.Name+" (missing)")
			} else if p.Default != nil {
				out[p.Name] = p.Default
			}
			continue
		}
		coerced, err := coerce(p, v)
		if err != nil {
			bad = append(bad, fmt.Sprintf("%s (%v)", p.Name, err))
			continue
		}
		out[p.Name] = coerced
	}
	if len(bad) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidArguments, strings.Join(bad, ", "))
	}
	return out, nil
}

// coerce accepts the JSON-decoded representation of each primitive type.
// JSON numbers always arrive as float64, so int params accept integral
// floats.
func coerce(p Param, v any) (any, error) {
	switch p.Type {
	case TypeInt:
		switch n := v.(type) {
		case int:
			return n, nil
		case int64:
			return int(n), nil
		case float64:
			if n != math.Trunc(n) {
				return nil, fmt.Errorf("want int, got %v", n)
			}
			return int(n), nil
		}
		return nil, fmt.Errorf("want int, got %T", v)
	case TypeFloat:
		switch n := v.(type) {
		case float64:
			return n, nil
		case int:
			return float64(n), nil
		case int64:
			return float64(n), nil
		}
		return nil, fmt.Errorf("want float, got %T", v)
	case TypeString:
		if s, ok := v.(string); ok {
			return s, nil
		}
		return nil, fmt.Errorf("want string, got %T", v)
	case TypeEnum:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("want one of %v, got %T", p.Enum, v)
		}
		for _, allowed := range p.Enum {
			if s == allowed {
				return s, nil
			}
		}
		return nil, fmt.Errorf("want one of %v, got %q", p.Enum, s)
	}
	return nil, fmt.Errorf("unknown param type %q", p.Type)
}

// Describe renders the schema as a single line for prompt construction,
// e.g. "read_top_items(limit: int = 3)".
func (s Schema) Describe(name string) string {
	parts := make([]string, 0, len(s.Params))
	for _, p := range s.Params {
		desc := fmt.Sprintf("%s: %s", p.Name, p.Type)
		if p.Type == TypeEnum {
			desc = fmt.Sprintf("%s: %s", p.Name, strings.Join(p.Enum, "|"))
		}
		if !p.Required && p.Default != nil {
			desc += fmt.Sprintf(" = %v", p.Default)
		}
		parts = append(parts, desc)
	}
	return fmt.Sprintf("%s(%s)", name, strings.Join(parts, ", "))
}
