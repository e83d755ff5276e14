package expression

import (
	"reflect"
	"testing"
)

func TestParseMarkersSubstitutesAndBinds(t *testing.T) {
	p := ParseMarkers("@{weight} / (@{height:-1.8} * @{height:-1.8})", map[string]any{
		"weight": 70.0,
		"height": 1.75,
	})

	if p.Unevaluable {
		t.Fatal("unexpectedly unevaluable")
	}
	if p.Body != "arg0 / (arg1 * arg1)" {
		t.Errorf("body = %q", p.Body)
	}
	if len(p.Args) != 2 {
		t.Fatalf("args = %v", p.Args)
	}
	if p.Args[0].Value != 70.0 || p.Args[1].Value != 1.75 {
		t.Errorf("bindings = %v", p.Args)
	}
	if !reflect.DeepEqual(p.Questions, []string{"weight", "height"}) {
		t.Errorf("questions = %v", p.Questions)
	}
}

func TestParseMarkersDefaultUsedWhenMissing(t *testing.T) {
	p := ParseMarkers("@{height:-1.8}", nil)
	if p.Unevaluable {
		t.Fatal("default should satisfy the marker")
	}
	if p.Args[0].Value != 1.8 {
		t.Errorf("default bound as %v (%T)", p.Args[0].Value, p.Args[0].Value)
	}
}

func TestParseMarkersTextAndBooleanDefaults(t *testing.T) {
	p := ParseMarkers("@{status:-open} == 'closed' || @{flag:-true}", nil)
	if p.Args[0].Value != "open" {
		t.Errorf("text default = %v", p.Args[0].Value)
	}
	if p.Args[1].Value != true {
		t.Errorf("boolean default = %v", p.Args[1].Value)
	}
}

func TestParseMarkersRequiredMissingIsUnevaluable(t *testing.T) {
	p := ParseMarkers("@{weight} + @{height}", map[string]any{"weight": 70.0})
	if !p.Unevaluable {
		t.Fatal("missing required marker must be unevaluable")
	}
	if len(p.Missing) != 1 || p.Missing[0] != "height" {
		t.Errorf("missing = %v", p.Missing)
	}
}

func TestParseMarkersOptionalMissingBindsNil(t *testing.T) {
	p := ParseMarkers("@{notes?}", nil)
	if p.Unevaluable {
		t.Fatal("optional marker must not make the expression unevaluable")
	}
	if p.Args[0].Value != nil {
		t.Errorf("optional missing bound as %v", p.Args[0].Value)
	}
}

func TestParseMarkersArrayShape(t *testing.T) {
	p := ParseMarkers("sum(@[scores])", map[string]any{
		"scores": []any{1.0, 2.0, 3.0},
	})
	if p.Body != "sum(arg0)" {
		t.Errorf("body = %q", p.Body)
	}
	arr, ok := p.Args[0].Value.([]any)
	if !ok || len(arr) != 3 {
		t.Errorf("array binding = %v", p.Args[0].Value)
	}

	// A scalar bound through an array marker is wrapped.
	p = ParseMarkers("sum(@[scores])", map[string]any{"scores": 4.0})
	arr, ok = p.Args[0].Value.([]any)
	if !ok || len(arr) != 1 || arr[0] != 4.0 {
		t.Errorf("wrapped scalar = %v", p.Args[0].Value)
	}

	// An array bound through a single-value marker takes its first element.
	p = ParseMarkers("@{scores}", map[string]any{"scores": []any{7.0, 8.0}})
	if p.Args[0].Value != 7.0 {
		t.Errorf("first element = %v", p.Args[0].Value)
	}

	// An optional missing array marker binds an empty array.
	p = ParseMarkers("count(@[scores?])", nil)
	arr, ok = p.Args[0].Value.([]any)
	if !ok || len(arr) != 0 {
		t.Errorf("empty array = %v", p.Args[0].Value)
	}
}

func TestParseMarkersRepeatedNameResolvesOnce(t *testing.T) {
	p := ParseMarkers("@{x} + @{x} + @{x}", map[string]any{"x": 1.0})
	if len(p.Args) != 1 {
		t.Errorf("args = %v", p.Args)
	}
	if p.Body != "arg0 + arg0 + arg0" {
		t.Errorf("body = %q", p.Body)
	}
}

func TestParseMarkersUnterminatedKeptVerbatim(t *testing.T) {
	p := ParseMarkers("@{open + 1", nil)
	if p.Body != "@{open + 1" {
		t.Errorf("body = %q", p.Body)
	}
	if p.Unevaluable {
		t.Error("unterminated marker is plain text, not a dependency")
	}
}

func TestDependencies(t *testing.T) {
	deps := Dependencies("@{a} + @[b] + @{a:-1} + @{c?}")
	if !reflect.DeepEqual(deps, []string{"a", "b", "c"}) {
		t.Errorf("deps = %v", deps)
	}
}
