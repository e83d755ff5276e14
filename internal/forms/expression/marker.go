// Package expression implements the computed-answer expression language:
// question-reference markers embedded in an otherwise plain expression body,
// and a small sandboxed interpreter that evaluates the substituted body as a
// pure function of its bound arguments.
package expression

import (
	"fmt"
	"strconv"
	"strings"
)

// Arg is one positional argument bound during marker substitution.
type Arg struct {
	Name  string
	Value any
}

// Parsed is the result of marker substitution over an expression.
type Parsed struct {
	// Body is the expression with every marker replaced by its argument name.
	Body string
	// Args holds the bindings in substitution order.
	Args []Arg
	// Questions lists the distinct question names the expression references.
	Questions []string
	// Unevaluable is set when a required marker had no value and no default.
	// Body and Args are still filled in so callers can report what was
	// missing.
	Unevaluable bool
	// Missing lists the required question names that had no value.
	Missing []string
}

type binding struct {
	arg   string
	value any
	found bool
}

// ParseMarkers scans the expression left to right, substituting every
// @{name}, @{name:-default}, @{name?}, @[name] (and combinations) marker
// with a synthetic argument name and binding the question's current value
// from the supplied map. Each distinct question name is resolved once; a
// repeated name reuses its binding.
func ParseMarkers(expr string, values map[string]any) Parsed {
	p := Parsed{}
	resolved := make(map[string]binding)
	var body strings.Builder

	rest := expr
	for {
		single := strings.Index(rest, "@{")
		array := strings.Index(rest, "@[")
		start, isArray := single, false
		if start < 0 || (array >= 0 && array < start) {
			start, isArray = array, true
		}
		if start < 0 {
			body.WriteString(rest)
			break
		}
		body.WriteString(rest[:start])
		rest = rest[start+2:]

		closer := "}"
		if isArray {
			closer = "]"
		}
		end := strings.Index(rest, closer)
		if end < 0 {
			// Unterminated marker, keep the text as-is.
			if isArray {
				body.WriteString("@[")
			} else {
				body.WriteString("@{")
			}
			body.WriteString(rest)
			break
		}
		inner := rest[:end]
		rest = rest[end+1:]

		name, def, hasDefault, optional := splitMarker(inner)
		key := name
		if isArray {
			key = name + "[]"
		}
		b, seen := resolved[key]
		if !seen {
			b = bind(name, def, hasDefault, optional, isArray, values, &p)
			b.arg = fmt.Sprintf("arg%d", len(p.Args))
			resolved[key] = b
			p.Args = append(p.Args, Arg{Name: b.arg, Value: b.value})
		}
		body.WriteString(b.arg)
	}

	p.Body = body.String()
	return p
}

// Dependencies returns the distinct question names referenced by the
// expression's markers, in first-appearance order, without resolving values.
func Dependencies(expr string) []string {
	parsed := ParseMarkers(expr, nil)
	return parsed.Questions
}

func splitMarker(inner string) (name, def string, hasDefault, optional bool) {
	if strings.HasSuffix(inner, "?") {
		optional = true
		inner = inner[:len(inner)-1]
	}
	if i := strings.Index(inner, ":-"); i >= 0 {
		return inner[:i], inner[i+2:], true, optional
	}
	return inner, "", false, optional
}

func bind(name, def string, hasDefault, optional, isArray bool, values map[string]any, p *Parsed) binding {
	if !contains(p.Questions, name) {
		p.Questions = append(p.Questions, name)
	}

	v, ok := values[name]
	if ok && v != nil {
		return binding{value: coerce(v, isArray), found: true}
	}
	if hasDefault {
		return binding{value: coerce(parseDefault(def), isArray), found: true}
	}
	if optional {
		if isArray {
			return binding{value: []any{}, found: true}
		}
		return binding{value: nil, found: true}
	}
	p.Unevaluable = true
	p.Missing = append(p.Missing, name)
	return binding{value: nil}
}

// coerce aligns the stored value's shape with the marker kind: single-value
// markers take the first element of arrays, array markers wrap scalars.
func coerce(v any, isArray bool) any {
	arr, multi := v.([]any)
	if isArray {
		if multi {
			return arr
		}
		return []any{v}
	}
	if multi {
		if len(arr) == 0 {
			return nil
		}
		return arr[0]
	}
	return v
}

// parseDefault interprets a marker default the way it would read inline in
// the expression body: numbers and booleans parse, everything else is text.
func parseDefault(def string) any {
	switch def {
	case "true":
		return true
	case "false":
		return false
	}
	if f, err := strconv.ParseFloat(def, 64); err == nil {
		return f
	}
	return def
}

func contains(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}
