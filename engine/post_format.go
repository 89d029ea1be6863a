package engine

import (
	"bytes"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/araddon/dateparse"
	"github.com/goodsign/monday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/text/currency"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/ardnew/brace/lang"
)

// Standard date formats, expressed as custom formats.
var standardDateFormats = map[string]string{
	"d": "M/d/yyyy",
	"D": "dddd, MMMM d, yyyy",
	"f": "dddd, MMMM d, yyyy h:mm tt",
	"F": "dddd, MMMM d, yyyy h:mm:ss tt",
	"g": "M/d/yyyy h:mm tt",
	"G": "M/d/yyyy h:mm:ss tt",
	"m": "MMMM d",
	"M": "MMMM d",
	"o": "yyyy-MM-ddTHH:mm:ss.fffffffK",
	"O": "yyyy-MM-ddTHH:mm:ss.fffffffK",
	"s": "yyyy-MM-ddTHH:mm:ss",
	"t": "h:mm tt",
	"T": "h:mm:ss tt",
	"u": "yyyy-MM-dd HH:mm:ssZ",
	"y": "MMMM yyyy",
	"Y": "MMMM yyyy",
}

// Layout elements of the custom date format specifiers, by letter and run
// length. Runs longer than the longest entry use the longest.
var dateSpecifiers = map[rune][]string{
	'y': {"06", "06", "06", "2006"},
	'M': {"1", "01", "Jan", "January"},
	'd': {"2", "02", "Mon", "Monday"},
	'H': {"15", "15"},
	'h': {"3", "03"},
	'm': {"4", "04"},
	's': {"5", "05"},
	't': {"PM", "PM"},
	'z': {"-07", "-07", "-07:00"},
	'K': {"Z07:00"},
}

// dateLayout converts a date format string made of the usual y, M, d, H, h,
// m, s, f, t, z and K specifiers into a time layout. Text in single or
// double quotes and characters escaped with a backslash are literal.
func dateLayout(format string) string {
	if f, ok := standardDateFormats[format]; ok {
		format = f
	}

	var sb strings.Builder

	r := []rune(format)

	for i := 0; i < len(r); i++ {
		c := r[i]

		switch c {
		case '\'', '"':
			j := i + 1
			for j < len(r) && r[j] != c {
				j++
			}

			sb.WriteString(string(r[i+1 : j]))
			i = j

			continue
		case '\\':
			if i+1 < len(r) {
				i++
				sb.WriteRune(r[i])
			}

			continue
		}

		n := 1
		for i+n < len(r) && r[i+n] == c {
			n++
		}

		switch spec, ok := dateSpecifiers[c]; {
		case ok:
			sb.WriteString(spec[min(n, len(spec))-1])
		case c == 'f' || c == 'F':
			// Fractional seconds need a separator in the layout.
			if s := sb.String(); !strings.HasSuffix(s, ".") && !strings.HasSuffix(s, ",") {
				sb.WriteByte('.')
			}

			digit := "0"
			if c == 'F' {
				digit = "9"
			}

			sb.WriteString(strings.Repeat(digit, n))
		default:
			sb.WriteString(string(r[i : i+n]))
		}

		i += n - 1
	}

	return sb.String()
}

// datePost reformats the dates among the results:
//
//	date(outputFormat[, utc[, inputFormat]])
//
// Input is read with inputFormat when given, otherwise in any layout
// dateparse recognizes, in UTC with utc and in local time otherwise. Month
// and day names follow the active locale. Results that are not dates are
// kept.
type datePost struct{ params Params }

func (p datePost) Execute(c *Call, results []string) ([]string, error) {
	x, err := p.params.Extract(1, false)
	if err != nil {
		return nil, err
	}

	out := dateLayout(x.Param(0))
	in := ""
	if f := x.Param(2); f != "" {
		in = dateLayout(f)
	}

	loc := time.Local
	if x.Param(1) == "utc" {
		loc = time.UTC
	}

	ml := lookupLocale(c.State.Locale).date

	return eachCapture(results, x.Pattern, func(s string) string {
		t, ok := parseDateIn(s, in, loc)
		if !ok {
			return s
		}

		if x.Param(0) == "u" {
			t = t.UTC()
		}

		return monday.Format(t, out, ml)
	}), nil
}

func parseDateIn(s, layout string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	if layout != "" {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}

	t, err := dateparse.ParseIn(s, loc)

	return t, err == nil
}

// formatPost renders the dates among the results with a time layout,
// localized by the active locale:
//
//	format(`Monday 2 January 2006`)
type formatPost struct{ params Params }

func (p formatPost) Execute(c *Call, results []string) ([]string, error) {
	x, err := p.params.Extract(1, false)
	if err != nil {
		return nil, err
	}

	layout := x.Param(0)
	if layout == "" {
		layout = lang.DateLayout
	}

	ml := lookupLocale(c.State.Locale).date

	return eachCapture(results, x.Pattern, func(s string) string {
		t, ok := lang.ParseDate(s)
		if !ok {
			return s
		}

		return monday.Format(t, layout, ml)
	}), nil
}

// numberPost reformats the numbers among the results. The format is a
// standard format (N, F, P, D, E or C followed by an optional precision) or
// a custom pattern such as #,##0.00. Separators follow the active locale.
type numberPost struct{ params Params }

func (p numberPost) Execute(c *Call, results []string) ([]string, error) {
	x, err := p.params.Extract(1, false)
	if err != nil {
		return nil, err
	}

	format := x.Param(0)
	if format == "" {
		return results, nil
	}

	loc := lookupLocale(c.State.Locale)
	printer := message.NewPrinter(loc.tag)

	return eachCapture(results, x.Pattern, func(s string) string {
		v, ok := lang.ParseNumber(s)
		if !ok {
			return s
		}

		return formatNumber(printer, loc, format, v)
	}), nil
}

func formatNumber(printer *message.Printer, loc locale, format string, v float64) string {
	if spec, prec, ok := standardNumberFormat(format); ok {
		switch spec {
		case 'N':
			return printer.Sprint(number.Decimal(v, number.Scale(prec.or(2))))
		case 'F':
			return printer.Sprint(number.Decimal(v, number.Scale(prec.or(2)), number.NoSeparator()))
		case 'P':
			return printer.Sprint(number.Percent(v, number.Scale(prec.or(2))))
		case 'D':
			return printer.Sprint(number.Decimal(int64(v), number.MinIntegerDigits(prec.or(1)), number.NoSeparator()))
		case 'E':
			return strconv.FormatFloat(v, 'E', prec.or(6), 64)
		case 'C':
			unit, _ := currency.FromTag(loc.tag)

			return printer.Sprint(currency.Symbol(unit.Amount(v)))
		}
	}

	return customNumber(printer, format, v)
}

// precision is an optional precision specifier; -1 when absent.
type precision int

func (p precision) or(def int) int {
	if p < 0 {
		return def
	}

	return int(p)
}

func standardNumberFormat(format string) (rune, precision, bool) {
	if format == "" {
		return 0, -1, false
	}

	spec := unicode.ToUpper(rune(format[0]))
	if !strings.ContainsRune("NFPDEC", spec) {
		return 0, -1, false
	}

	if len(format) == 1 {
		return spec, -1, true
	}

	n, err := strconv.Atoi(format[1:])
	if err != nil || n < 0 || n > 99 {
		return 0, -1, false
	}

	return spec, precision(n), true
}

// customNumber formats v with a pattern of '0' (required digit), '#'
// (optional digit), '.' and ','. Text around the pattern is kept, and a
// '%' in it scales v by 100.
func customNumber(printer *message.Printer, format string, v float64) string {
	first := strings.IndexAny(format, "#0.,")
	if first < 0 {
		return format
	}

	last := strings.LastIndexAny(format, "#0.,")
	prefix, core, suffix := format[:first], format[first:last+1], format[last+1:]

	if strings.Contains(prefix+suffix, "%") {
		v *= 100
	}

	whole, frac, _ := strings.Cut(core, ".")

	opts := []number.Option{
		number.MinIntegerDigits(strings.Count(whole, "0")),
		number.MinFractionDigits(strings.Count(frac, "0")),
		number.MaxFractionDigits(strings.Count(frac, "0") + strings.Count(frac, "#")),
	}

	if !strings.Contains(whole, ",") {
		opts = append(opts, number.NoSeparator())
	}

	return prefix + printer.Sprint(number.Decimal(v, opts...)) + suffix
}

// markdownPost renders each result from Markdown to HTML.
type markdownPost struct{}

func (markdownPost) Execute(_ *Call, results []string) ([]string, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	out := make([]string, len(results))

	for i, s := range results {
		var buf bytes.Buffer
		if err := md.Convert([]byte(s), &buf); err != nil {
			return nil, ErrValue.Wrap(err).Detail("markdown")
		}

		out[i] = strings.TrimSuffix(buf.String(), "\n")
	}

	return out, nil
}
