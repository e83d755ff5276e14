package expression

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/clinforms/clinforms/internal/doctree"
)

// FormatResult converts a raw evaluation result into a typed property value
// for the target answer type. The second return is false when the result
// means "no value": nil, or the literal string "null". loc supplies the zone
// for date results that do not carry their own.
func FormatResult(raw any, target doctree.Type, loc *time.Location) (doctree.Value, bool, error) {
	if raw == nil || raw == "null" {
		return doctree.Value{}, false, nil
	}
	if arr, ok := raw.([]any); ok {
		items := make([]any, 0, len(arr))
		for _, e := range arr {
			if e == nil || e == "null" {
				continue
			}
			item, err := formatScalar(e, target, loc)
			if err != nil {
				return doctree.Value{}, false, err
			}
			items = append(items, item)
		}
		return doctree.Array(target, items), true, nil
	}
	item, err := formatScalar(raw, target, loc)
	if err != nil {
		return doctree.Value{}, false, err
	}
	return doctree.Scalar(target, item), true, nil
}

func formatScalar(raw any, target doctree.Type, loc *time.Location) (any, error) {
	switch target {
	case doctree.TypeLong:
		return toLong(raw)
	case doctree.TypeDouble:
		return toDouble(raw)
	case doctree.TypeDecimal:
		return toDecimal(raw)
	case doctree.TypeBoolean:
		return toBoolean(raw)
	case doctree.TypeDate:
		return toDate(raw, loc)
	default:
		return toText(raw, loc), nil
	}
}

// toLong narrows toward zero, matching integer truncation.
func toLong(raw any) (int64, error) {
	switch x := raw.(type) {
	case float64:
		return int64(math.Trunc(x)), nil
	case int64:
		return x, nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case string:
		if n, err := strconv.ParseInt(x, 10, 64); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return 0, fmt.Errorf("not a long: %q", x)
		}
		return int64(math.Trunc(f)), nil
	default:
		return 0, fmt.Errorf("not a long: %T", raw)
	}
}

func toDouble(raw any) (float64, error) {
	switch x := raw.(type) {
	case float64:
		return x, nil
	case int64:
		return float64(x), nil
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return 0, fmt.Errorf("not a double: %q", x)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("not a double: %T", raw)
	}
}

func toDecimal(raw any) (decimal.Decimal, error) {
	switch x := raw.(type) {
	case decimal.Decimal:
		return x, nil
	case float64:
		return decimal.NewFromFloat(x), nil
	case int64:
		return decimal.NewFromInt(x), nil
	case string:
		d, err := decimal.NewFromString(x)
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("not a decimal: %q", x)
		}
		return d, nil
	default:
		return decimal.Decimal{}, fmt.Errorf("not a decimal: %T", raw)
	}
}

func toBoolean(raw any) (bool, error) {
	switch x := raw.(type) {
	case bool:
		return x, nil
	case string:
		b, err := strconv.ParseBool(x)
		if err != nil {
			return false, fmt.Errorf("not a boolean: %q", x)
		}
		return b, nil
	case float64:
		return x != 0, nil
	default:
		return false, fmt.Errorf("not a boolean: %T", raw)
	}
}

func toDate(raw any, loc *time.Location) (time.Time, error) {
	switch x := raw.(type) {
	case time.Time:
		return x, nil
	case string:
		if t, err := time.Parse(doctree.DateFormat, x); err == nil {
			return t, nil
		}
		if t, err := time.Parse(time.RFC3339, x); err == nil {
			return t, nil
		}
		t, err := time.ParseInLocation("2006-01-02", x, loc)
		if err != nil {
			return time.Time{}, fmt.Errorf("not a date: %q", x)
		}
		return t, nil
	default:
		return time.Time{}, fmt.Errorf("not a date: %T", raw)
	}
}

// toText renders any result as its persisted string form: whole numbers
// without a fractional part, dates in ISO-8601 offset format in the value's
// own zone when it carries one.
func toText(raw any, loc *time.Location) string {
	switch x := raw.(type) {
	case float64:
		return formatNumber(x)
	case time.Time:
		return x.Format(doctree.DateFormat)
	default:
		return doctree.FormatScalar(raw)
	}
}
