package lang

import (
	"cmp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// DateLayout is the sortable layout used to render date/time values.
const DateLayout = "2006-01-02T15:04:05"

// ParseValue coerces an operand string to a typed value using the ladder:
// empty or "null" is nil, then int64, float64, [time.Time] (UTC), bool, and
// finally the string itself.
func ParseValue(s string) any {
	if s == "" || s == "null" {
		return nil
	}

	if i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
		return i
	}

	if f, ok := ParseNumber(s); ok {
		return f
	}

	if t, ok := ParseDate(s); ok {
		return t
	}

	if b, ok := ParseBool(s); ok {
		return b
	}

	return s
}

// FormatValue renders a value produced by [ParseValue].
func FormatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return FormatNumber(v)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.Format(DateLayout)
	default:
		return ""
	}
}

// ParseNumber parses a decimal floating-point operand.
func ParseNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)

	return f, err == nil
}

// FormatNumber renders f in its shortest exact decimal form.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ParseBool accepts "true" and "false" in any letter case.
func ParseBool(s string) (value, ok bool) {
	switch s = strings.TrimSpace(s); {
	case strings.EqualFold(s, "true"):
		return true, true
	case strings.EqualFold(s, "false"):
		return false, true
	default:
		return false, false
	}
}

// ParseDate parses a date/time operand in any layout recognized by
// dateparse, interpreting zone-less input as UTC. A bare run of digits is a
// number, never a date.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" || isDigits(s) {
		return time.Time{}, false
	}

	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}

	return t, true
}

func isDigits(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' }) < 0
}

// Compare orders two values produced by [ParseValue]. Numbers compare
// numerically regardless of integer or float representation. Values of
// different kinds compare by their rendered strings. nil sorts first.
func Compare(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}

	if x, ok := numeric(a); ok {
		if y, ok := numeric(b); ok {
			if i, ok := a.(int64); ok {
				if j, ok := b.(int64); ok {
					return cmp.Compare(i, j)
				}
			}

			return cmp.Compare(x, y)
		}
	}

	switch x := a.(type) {
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y)
		}

	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0
			case !x:
				return -1
			default:
				return 1
			}
		}

	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y)
		}
	}

	return strings.Compare(FormatValue(a), FormatValue(b))
}

// Equal reports whether two values produced by [ParseValue] are equal.
// Numbers are equal by value; values of other differing kinds are unequal.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	_, an := numeric(a)
	_, bn := numeric(b)

	if an && bn {
		return Compare(a, b) == 0
	}

	switch a.(type) {
	case time.Time:
		if _, ok := b.(time.Time); !ok {
			return false
		}
	case bool:
		if _, ok := b.(bool); !ok {
			return false
		}
	case string:
		if _, ok := b.(string); !ok {
			return false
		}
	}

	return Compare(a, b) == 0
}

func numeric(v any) (float64, bool) {
	switch v := v.(type) {
	case int64:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}
