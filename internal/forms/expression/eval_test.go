package expression

import (
	"strings"
	"testing"
	"time"
)

func mustEval(t *testing.T, body string, args map[string]any) any {
	t.Helper()
	v, err := Evaluate(body, args)
	if err != nil {
		t.Fatalf("%s: %v", body, err)
	}
	return v
}

func TestEvaluateArithmetic(t *testing.T) {
	cases := []struct {
		body string
		args map[string]any
		want any
	}{
		{"1 + 2 * 3", nil, 7.0},
		{"(1 + 2) * 3", nil, 9.0},
		{"10 / 4", nil, 2.5},
		{"10 % 3", nil, 1.0},
		{"-x + 1", map[string]any{"x": 2.0}, -1.0},
		{"arg0 / (arg1 * arg1)", map[string]any{"arg0": 70.0, "arg1": 1.75}, 70.0 / (1.75 * 1.75)},
	}
	for _, c := range cases {
		if got := mustEval(t, c.body, c.args); got != c.want {
			t.Errorf("%s = %v, want %v", c.body, got, c.want)
		}
	}
}

func TestEvaluateIntegersWiden(t *testing.T) {
	got := mustEval(t, "a + b", map[string]any{"a": int64(2), "b": 3})
	if got != 5.0 {
		t.Errorf("got %v (%T)", got, got)
	}
}

func TestEvaluateComparisonAndLogic(t *testing.T) {
	cases := []struct {
		body string
		want any
	}{
		{"1 < 2", true},
		{"2 <= 2", true},
		{"'a' < 'b'", true},
		{"1 == 1.0", true},
		{"'x' != 'y'", true},
		{"true && false", false},
		{"true || false", true},
		{"!false", true},
	}
	for _, c := range cases {
		if got := mustEval(t, c.body, nil); got != c.want {
			t.Errorf("%s = %v, want %v", c.body, got, c.want)
		}
	}
}

func TestEvaluateShortCircuit(t *testing.T) {
	// The right side would fail with an unknown identifier if reached.
	if got := mustEval(t, "false && missing", nil); got != false {
		t.Errorf("got %v", got)
	}
	if got := mustEval(t, "true || missing", nil); got != true {
		t.Errorf("got %v", got)
	}
}

func TestEvaluateTernary(t *testing.T) {
	got := mustEval(t, "x > 10 ? 'high' : 'low'", map[string]any{"x": 12.0})
	if got != "high" {
		t.Errorf("got %v", got)
	}
	got = mustEval(t, "a ? 1 : b ? 2 : 3", map[string]any{"a": false, "b": true})
	if got != 2.0 {
		t.Errorf("nested ternary = %v", got)
	}
}

func TestEvaluateStringConcat(t *testing.T) {
	got := mustEval(t, "'bmi: ' + x", map[string]any{"x": 3.0})
	if got != "bmi: 3" {
		t.Errorf("got %q", got)
	}
}

func TestEvaluateBuiltins(t *testing.T) {
	scores := []any{3.0, 1.0, 2.0}
	cases := []struct {
		body string
		want any
	}{
		{"min(v)", 1.0},
		{"max(v)", 3.0},
		{"sum(v)", 6.0},
		{"avg(v)", 2.0},
		{"count(v)", 3.0},
		{"min(5, 2, 8)", 2.0},
		{"length('abc')", 3.0},
		{"abs(0 - 4)", 4.0},
		{"round(2.5)", 3.0},
		{"floor(2.9)", 2.0},
		{"ceil(2.1)", 3.0},
	}
	for _, c := range cases {
		if got := mustEval(t, c.body, map[string]any{"v": scores}); got != c.want {
			t.Errorf("%s = %v, want %v", c.body, got, c.want)
		}
	}
}

func TestEvaluateTimeComparison(t *testing.T) {
	a := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	got := mustEval(t, "a < b", map[string]any{"a": a, "b": b})
	if got != true {
		t.Errorf("got %v", got)
	}
}

func TestEvaluateErrors(t *testing.T) {
	cases := []struct {
		body string
		want string
	}{
		{"1 / 0", "division by zero"},
		{"missing + 1", "unknown identifier"},
		{"shell('rm')", "unknown function"},
		{"min()", "wrong argument count"},
		{"'a' - 1", "non-numeric"},
		{"1 +", "unexpected"},
	}
	for _, c := range cases {
		_, err := Evaluate(c.body, nil)
		if err == nil || !strings.Contains(err.Error(), c.want) {
			t.Errorf("%s: err = %v, want %q", c.body, err, c.want)
		}
	}
}

func TestEvaluateNullLiteral(t *testing.T) {
	got := mustEval(t, "x == null ? 'empty' : 'set'", map[string]any{"x": nil})
	if got != "empty" {
		t.Errorf("got %v", got)
	}
}
