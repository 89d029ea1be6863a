package lang

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	unitDuration = regexp.MustCompile(`^(?:\d+[yMdhmsf])+$`)
	unitPart     = regexp.MustCompile(`(\d+)([yMdhmsf])`)
)

// ParseSpan parses a clock-style duration: a whole number of days, or
// "[-][d.]hh:mm[:ss[.fffffff]]" (days may also be separated by a colon when
// all four fields are given).
func ParseSpan(s string) (time.Duration, bool) {
	s = strings.TrimSpace(s)

	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	if s == "" {
		return 0, false
	}

	field := func(s string, limit int64) (int64, bool) {
		if s == "" || len(s) > 10 {
			return 0, false
		}

		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil || n < 0 || (limit > 0 && n >= limit) {
			return 0, false
		}

		return n, true
	}

	var days int64

	clock := s

	if i := strings.IndexByte(s, '.'); i >= 0 && i < strings.IndexByte(s+":", ':') {
		d, ok := field(s[:i], 0)
		if !ok {
			return 0, false
		}

		days, clock = d, s[i+1:]
	}

	var frac string

	parts := strings.Split(clock, ":")

	if last := parts[len(parts)-1]; len(parts) >= 3 {
		if sec, f, ok := strings.Cut(last, "."); ok {
			parts[len(parts)-1], frac = sec, f
		}
	}

	var h, m, sec int64

	ok := true

	switch len(parts) {
	case 1:
		if days != 0 || clock != s {
			return 0, false
		}

		days, ok = field(parts[0], 0)

	case 2:
		h, ok = field(parts[0], 24)
		if ok {
			m, ok = field(parts[1], 60)
		}

	case 3:
		h, ok = field(parts[0], 24)
		if ok {
			m, ok = field(parts[1], 60)
		}

		if ok {
			sec, ok = field(parts[2], 60)
		}

	case 4:
		if clock != s {
			return 0, false
		}

		days, ok = field(parts[0], 0)
		if ok {
			h, ok = field(parts[1], 24)
		}

		if ok {
			m, ok = field(parts[2], 60)
		}

		if ok {
			sec, ok = field(parts[3], 60)
		}

	default:
		return 0, false
	}

	if !ok {
		return 0, false
	}

	d := time.Duration(days)*24*time.Hour +
		time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(sec)*time.Second

	if frac != "" {
		if len(frac) > 7 {
			return 0, false
		}

		n, err := strconv.ParseInt(frac+strings.Repeat("0", 9-len(frac)), 10, 64)
		if err != nil {
			return 0, false
		}

		d += time.Duration(n)
	}

	if neg {
		d = -d
	}

	return d, true
}

// ApplyDateOp adds (op "+") or subtracts (op "-") a duration operand from a
// date. The operand is either a clock-style span accepted by [ParseSpan] or
// a sequence of "<int><unit>" terms with unit in y, M, d, h, m, s, f
// (years, months, days, hours, minutes, seconds, milliseconds).
func ApplyDateOp(date time.Time, op, operand string) (time.Time, error) {
	if op != OpAdd && op != OpSubtract {
		return date, ErrOperand.Detail("date operator " + op)
	}

	operand = strings.TrimSpace(operand)
	if operand == "" {
		return date, ErrOperand.Detail("date operand is empty")
	}

	sign := 1
	if op == OpSubtract {
		sign = -1
	}

	if span, ok := ParseSpan(operand); ok {
		return date.Add(time.Duration(sign) * span), nil
	}

	if !unitDuration.MatchString(operand) {
		return date, ErrDuration.Detail(operand)
	}

	for _, m := range unitPart.FindAllStringSubmatch(operand, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return date, ErrDuration.Detail(operand)
		}

		n *= sign

		switch m[2] {
		case "y":
			date = addMonths(date, 12*n)
		case "M":
			date = addMonths(date, n)
		case "d":
			date = date.AddDate(0, 0, n)
		case "h":
			date = date.Add(time.Duration(n) * time.Hour)
		case "m":
			date = date.Add(time.Duration(n) * time.Minute)
		case "s":
			date = date.Add(time.Duration(n) * time.Second)
		case "f":
			date = date.Add(time.Duration(n) * time.Millisecond)
		}
	}

	return date, nil
}

// addMonths moves date by n calendar months, clamping the day to the last
// day of the target month.
func addMonths(date time.Time, n int) time.Time {
	y, m, d := date.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, date.Location())
	last := first.AddDate(0, 1, -1).Day()

	if d > last {
		d = last
	}

	hh, mm, ss := date.Clock()

	return time.Date(first.Year(), first.Month(), d, hh, mm, ss, date.Nanosecond(), date.Location())
}
