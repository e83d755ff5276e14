package expression

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/clinforms/clinforms/internal/doctree"
)

// Evaluate parses and runs a substituted expression body against its bound
// arguments. The interpreter is a pure function of the arguments: no clock,
// no I/O, no access to anything but the bindings and the builtins below.
//
// Numbers are computed as float64; bound int64 and decimal values are widened
// on entry. A nil result means "no value".
func Evaluate(body string, args map[string]any) (any, error) {
	root, err := parse(body)
	if err != nil {
		return nil, err
	}
	env := make(map[string]any, len(args))
	for name, v := range args {
		env[name] = widen(v)
	}
	return eval(root, env)
}

func widen(v any) any {
	switch x := v.(type) {
	case int64:
		return float64(x)
	case int:
		return float64(x)
	case decimal.Decimal:
		f, _ := x.Float64()
		return f
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = widen(e)
		}
		return out
	default:
		return v
	}
}

func eval(n *node, env map[string]any) (any, error) {
	switch n.kind {
	case nodeNumber:
		return n.num, nil
	case nodeString:
		return n.str, nil
	case nodeBool:
		return n.b, nil
	case nodeNull:
		return nil, nil
	case nodeIdent:
		v, ok := env[n.str]
		if !ok {
			return nil, fmt.Errorf("unknown identifier %q", n.str)
		}
		return v, nil
	case nodeUnary:
		return evalUnary(n, env)
	case nodeBinary:
		return evalBinary(n, env)
	case nodeTernary:
		cond, err := eval(n.args[0], env)
		if err != nil {
			return nil, err
		}
		if truthy(cond) {
			return eval(n.args[1], env)
		}
		return eval(n.args[2], env)
	case nodeCall:
		return evalCall(n, env)
	default:
		return nil, fmt.Errorf("unknown node kind %d", n.kind)
	}
}

func evalUnary(n *node, env map[string]any) (any, error) {
	v, err := eval(n.args[0], env)
	if err != nil {
		return nil, err
	}
	switch n.str {
	case "-":
		f, ok := asNumber(v)
		if !ok {
			return nil, fmt.Errorf("cannot negate %T", v)
		}
		return -f, nil
	case "!":
		return !truthy(v), nil
	}
	return nil, fmt.Errorf("unknown unary operator %q", n.str)
}

func evalBinary(n *node, env map[string]any) (any, error) {
	// Logical operators short-circuit; everything else is strict.
	if n.str == "&&" || n.str == "||" {
		l, err := eval(n.args[0], env)
		if err != nil {
			return nil, err
		}
		if n.str == "&&" && !truthy(l) {
			return false, nil
		}
		if n.str == "||" && truthy(l) {
			return true, nil
		}
		r, err := eval(n.args[1], env)
		if err != nil {
			return nil, err
		}
		return truthy(r), nil
	}

	l, err := eval(n.args[0], env)
	if err != nil {
		return nil, err
	}
	r, err := eval(n.args[1], env)
	if err != nil {
		return nil, err
	}

	switch n.str {
	case "+":
		if ls, ok := l.(string); ok {
			return ls + stringify(r), nil
		}
		if rs, ok := r.(string); ok {
			return stringify(l) + rs, nil
		}
		return arith(l, r, func(a, b float64) float64 { return a + b })
	case "-":
		return arith(l, r, func(a, b float64) float64 { return a - b })
	case "*":
		return arith(l, r, func(a, b float64) float64 { return a * b })
	case "/":
		lf, rf, ok := numbers(l, r)
		if !ok {
			return nil, fmt.Errorf("cannot divide %T by %T", l, r)
		}
		if rf == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return lf / rf, nil
	case "%":
		lf, rf, ok := numbers(l, r)
		if !ok {
			return nil, fmt.Errorf("cannot take %T mod %T", l, r)
		}
		if rf == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return math.Mod(lf, rf), nil
	case "==":
		return equal(l, r), nil
	case "!=":
		return !equal(l, r), nil
	case "<", "<=", ">", ">=":
		return compare(n.str, l, r)
	}
	return nil, fmt.Errorf("unknown operator %q", n.str)
}

type builtin struct {
	minArgs int
	maxArgs int // -1 for variadic
	fn      func(args []any) (any, error)
}

var builtins = map[string]builtin{
	"min":    {1, -1, fnMin},
	"max":    {1, -1, fnMax},
	"sum":    {1, -1, fnSum},
	"avg":    {1, -1, fnAvg},
	"count":  {1, 1, fnCount},
	"length": {1, 1, fnLength},
	"abs":    {1, 1, numeric1(math.Abs)},
	"round":  {1, 1, numeric1(math.Round)},
	"floor":  {1, 1, numeric1(math.Floor)},
	"ceil":   {1, 1, numeric1(math.Ceil)},
}

func evalCall(n *node, env map[string]any) (any, error) {
	b, ok := builtins[n.str]
	if !ok {
		return nil, fmt.Errorf("unknown function %q", n.str)
	}
	if len(n.args) < b.minArgs || (b.maxArgs >= 0 && len(n.args) > b.maxArgs) {
		return nil, fmt.Errorf("%s: wrong argument count %d", n.str, len(n.args))
	}
	args := make([]any, len(n.args))
	for i, a := range n.args {
		v, err := eval(a, env)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return b.fn(args)
}

// flatten expands array arguments so min(values) and min(a, b, c) both work.
func flatten(args []any) []any {
	var out []any
	for _, a := range args {
		if arr, ok := a.([]any); ok {
			out = append(out, arr...)
			continue
		}
		out = append(out, a)
	}
	return out
}

func fnMin(args []any) (any, error) { return fold("min", args, math.Min) }
func fnMax(args []any) (any, error) { return fold("max", args, math.Max) }

func fnSum(args []any) (any, error) {
	total := 0.0
	for _, a := range flatten(args) {
		f, ok := asNumber(a)
		if !ok {
			return nil, fmt.Errorf("sum: non-numeric argument %T", a)
		}
		total += f
	}
	return total, nil
}

func fnAvg(args []any) (any, error) {
	items := flatten(args)
	if len(items) == 0 {
		return nil, nil
	}
	total := 0.0
	for _, a := range items {
		f, ok := asNumber(a)
		if !ok {
			return nil, fmt.Errorf("avg: non-numeric argument %T", a)
		}
		total += f
	}
	return total / float64(len(items)), nil
}

func fnCount(args []any) (any, error) {
	if arr, ok := args[0].([]any); ok {
		return float64(len(arr)), nil
	}
	if args[0] == nil {
		return 0.0, nil
	}
	return 1.0, nil
}

func fnLength(args []any) (any, error) {
	switch x := args[0].(type) {
	case string:
		return float64(len([]rune(x))), nil
	case []any:
		return float64(len(x)), nil
	case nil:
		return 0.0, nil
	default:
		return nil, fmt.Errorf("length: unsupported argument %T", x)
	}
}

func numeric1(f func(float64) float64) func([]any) (any, error) {
	return func(args []any) (any, error) {
		n, ok := asNumber(args[0])
		if !ok {
			return nil, fmt.Errorf("non-numeric argument %T", args[0])
		}
		return f(n), nil
	}
}

func fold(name string, args []any, f func(a, b float64) float64) (any, error) {
	items := flatten(args)
	if len(items) == 0 {
		return nil, nil
	}
	acc, ok := asNumber(items[0])
	if !ok {
		return nil, fmt.Errorf("%s: non-numeric argument %T", name, items[0])
	}
	for _, a := range items[1:] {
		f2, ok := asNumber(a)
		if !ok {
			return nil, fmt.Errorf("%s: non-numeric argument %T", name, a)
		}
		acc = f(acc, f2)
	}
	return acc, nil
}

func asNumber(v any) (float64, bool) {
	f, ok := v.(float64)
	return f, ok
}

func numbers(l, r any) (float64, float64, bool) {
	lf, lok := asNumber(l)
	rf, rok := asNumber(r)
	return lf, rf, lok && rok
}

func arith(l, r any, f func(a, b float64) float64) (any, error) {
	lf, rf, ok := numbers(l, r)
	if !ok {
		return nil, fmt.Errorf("non-numeric operands %T and %T", l, r)
	}
	return f(lf, rf), nil
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0
	case string:
		return x != ""
	case []any:
		return len(x) > 0
	default:
		return true
	}
}

func equal(l, r any) bool {
	if lf, rf, ok := numbers(l, r); ok {
		return lf == rf
	}
	if lt, lok := l.(time.Time); lok {
		if rt, rok := r.(time.Time); rok {
			return lt.Equal(rt)
		}
	}
	return l == r
}

func compare(op string, l, r any) (any, error) {
	var cmp int
	switch {
	case bothNumbers(l, r):
		lf, rf, _ := numbers(l, r)
		switch {
		case lf < rf:
			cmp = -1
		case lf > rf:
			cmp = 1
		}
	case bothStrings(l, r):
		ls, rs := l.(string), r.(string)
		switch {
		case ls < rs:
			cmp = -1
		case ls > rs:
			cmp = 1
		}
	case bothTimes(l, r):
		lt, rt := l.(time.Time), r.(time.Time)
		switch {
		case lt.Before(rt):
			cmp = -1
		case lt.After(rt):
			cmp = 1
		}
	default:
		return nil, fmt.Errorf("cannot compare %T with %T", l, r)
	}
	switch op {
	case "<":
		return cmp < 0, nil
	case "<=":
		return cmp <= 0, nil
	case ">":
		return cmp > 0, nil
	default:
		return cmp >= 0, nil
	}
}

func bothNumbers(l, r any) bool { _, _, ok := numbers(l, r); return ok }

func bothStrings(l, r any) bool {
	_, lok := l.(string)
	_, rok := r.(string)
	return lok && rok
}

func bothTimes(l, r any) bool {
	_, lok := l.(time.Time)
	_, rok := r.(time.Time)
	return lok && rok
}

// stringify renders a value for string concatenation, matching the persisted
// text form of each type.
func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		return formatNumber(x)
	default:
		return doctree.FormatScalar(v)
	}
}

// formatNumber renders whole numbers without a fractional part, so 3.0
// becomes "3".
func formatNumber(f float64) string {
	if f == math.Trunc(f) && !math.IsInf(f, 0) && math.Abs(f) < 1e15 {
		return fmt.Sprintf("%d", int64(f))
	}
	return doctree.FormatScalar(f)
}
