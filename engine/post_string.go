package engine

import (
	"html"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// eachCapture applies fn to every result, or with a pattern, to every
// capture of the pattern in every result.
func eachCapture(results []string, pt *Pattern, fn func(string) string) []string {
	out := make([]string, len(results))

	for i, s := range results {
		if pt == nil {
			out[i] = fn(s)
		} else {
			out[i] = pt.ApplyCaptures(s, func(_, v string) string { return fn(v) })
		}
	}

	return out
}

// matchMode reads the match selection flags of a parameter list.
func matchMode(x Extracted) MatchMode {
	for _, p := range x.Params {
		switch p {
		case "last":
			return MatchLast
		case "single", "first":
			return MatchFirst
		}
	}

	return MatchAll
}

// matches returns the matches of the pattern in s, or s itself without one.
func matches(x Extracted, s, def string) []string {
	if x.Pattern == nil {
		return []string{s}
	}

	return x.Pattern.Matches(s, matchMode(x), def)
}

func atoi(key, name, s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, ErrParam.Detail(key + " " + name + " " + strconv.Quote(s))
	}

	return n, nil
}

type storePost struct{ params Params }

func (p storePost) Execute(c *Call, results []string) ([]string, error) {
	name := p.params.Arg(0)
	if name == "" {
		return nil, ErrParam.Detail("store slot name")
	}

	c.State.Store(name, results)

	return results, nil
}

type readPost struct{ params Params }

func (p readPost) Execute(c *Call, _ []string) ([]string, error) {
	v, _, err := c.State.Read(p.params.Arg(0))
	if err != nil {
		return nil, err
	}

	return slotStrings(v), nil
}

type discardPost struct{}

func (discardPost) Execute(*Call, []string) ([]string, error) { return nil, nil }

// subPost keeps the runes from start, optionally limited to a length. Both
// are clamped to the string.
type subPost struct{ params Params }

func (p subPost) Execute(_ *Call, results []string) ([]string, error) {
	x, err := p.params.Extract(1, false)
	if err != nil {
		return nil, err
	}

	start, err := atoi(p.params.Key, "start", x.Param(0))
	if err != nil {
		return nil, err
	}

	length := -1
	if len(x.Params) > 1 {
		if length, err = atoi(p.params.Key, "length", x.Param(1)); err != nil {
			return nil, err
		}
	}

	return eachCapture(results, x.Pattern, func(s string) string {
		r := []rune(s)
		lo := min(max(start, 0), len(r))

		hi := len(r)
		if length >= 0 {
			hi = min(lo+length, len(r))
		}

		return string(r[lo:hi])
	}), nil
}

// trimPost trims a set of characters from both ends, or only from the start
// or end.
type trimPost struct{ params Params }

func (p trimPost) Execute(_ *Call, results []string) ([]string, error) {
	x, err := p.params.Extract(0, false)
	if err != nil {
		return nil, err
	}

	cutset := x.Param(0)
	if cutset == "" {
		cutset = " \t\r\n"
	}

	rest := x.Params[min(1, len(x.Params)):]
	start := slices.Contains(rest, "start")
	end := slices.Contains(rest, "end")

	return eachCapture(results, x.Pattern, func(s string) string {
		switch {
		case start && end, !start && !end:
			return strings.Trim(s, cutset)
		case start:
			return strings.TrimLeft(s, cutset)
		default:
			return strings.TrimRight(s, cutset)
		}
	}), nil
}

// padPost pads to a length with a character, on the left unless right is
// given.
type padPost struct{ params Params }

func (p padPost) Execute(_ *Call, results []string) ([]string, error) {
	x, err := p.params.Extract(2, false)
	if err != nil {
		return nil, err
	}

	char, _ := utf8.DecodeRuneInString(x.Param(0))
	if char == utf8.RuneError {
		return nil, ErrParam.Detail(p.params.Key + " character")
	}

	length, err := atoi(p.params.Key, "length", x.Param(1))
	if err != nil {
		return nil, err
	}

	right := slices.Contains(x.Params[min(2, len(x.Params)):], "right")

	return eachCapture(results, x.Pattern, func(s string) string {
		n := length - utf8.RuneCountInString(s)
		if n <= 0 {
			return s
		}

		pad := strings.Repeat(string(char), n)
		if right {
			return s + pad
		}

		return pad + s
	}), nil
}

// lengthPost replaces each result, or each capture, with its length in
// runes.
type lengthPost struct{ params Params }

func (p lengthPost) Execute(_ *Call, results []string) ([]string, error) {
	x, err := p.params.Extract(0, false)
	if err != nil {
		return nil, err
	}

	var out []string

	eachCapture(results, x.Pattern, func(s string) string {
		out = append(out, strconv.Itoa(utf8.RuneCountInString(s)))

		return s
	})

	return out, nil
}

// casePost converts letter case using the rules of the active locale.
type casePost struct {
	params Params
	mode   string
}

func (p casePost) Execute(c *Call, results []string) ([]string, error) {
	x, err := p.params.Extract(0, false)
	if err != nil {
		return nil, err
	}

	tag := lookupLocale(c.State.Locale).tag

	var fn func(string) string

	switch p.mode {
	case "upper":
		fn = cases.Upper(tag).String
	case "lower":
		fn = cases.Lower(tag).String
	case "title":
		fn = cases.Title(tag).String
	default:
		lower, upper := cases.Lower(tag), cases.Upper(tag)
		fn = func(s string) string {
			s = lower.String(s)
			for i, r := range s {
				if r != ' ' && r != '\t' && r != '\n' {
					j := i + utf8.RuneLen(r)

					return s[:i] + upper.String(s[i:j]) + s[j:]
				}
			}

			return s
		}
	}

	return eachCapture(results, x.Pattern, fn), nil
}

// truncatePost shortens results longer than a length, appending an
// optional replacement.
type truncatePost struct{ params Params }

func (p truncatePost) Execute(_ *Call, results []string) ([]string, error) {
	x, err := p.params.Extract(1, false)
	if err != nil {
		return nil, err
	}

	length, err := atoi(p.params.Key, "length", x.Param(0))
	if err != nil {
		return nil, err
	}

	repl := x.Param(1)

	return eachCapture(results, x.Pattern, func(s string) string {
		r := []rune(s)
		if len(r) <= length {
			return s
		}

		return string(r[:max(length, 0)]) + repl
	}), nil
}

// indexPost replaces each result with the rune offsets of the matches of a
// pattern, or -1.
type indexPost struct{ params Params }

func (p indexPost) Execute(_ *Call, results []string) ([]string, error) {
	x, err := p.params.Extract(0, true)
	if err != nil {
		return nil, err
	}

	mode := matchMode(x)
	re := x.Pattern.Re
	out := make([]string, len(results))

	for i, s := range results {
		var idx []string

		for _, m := range re.FindAllStringSubmatchIndex(s, -1) {
			lo := m[0]
			if re.NumSubexp() > 0 {
				if m[2] < 0 {
					continue
				}

				lo = m[2]
			}

			idx = append(idx, strconv.Itoa(utf8.RuneCountInString(s[:lo])))
		}

		switch {
		case len(idx) == 0:
			idx = []string{"-1"}
		case mode == MatchFirst:
			idx = idx[:1]
		case mode == MatchLast:
			idx = idx[len(idx)-1:]
		}

		out[i] = strings.Join(idx, ",")
	}

	return out, nil
}

// extractPost replaces each result with the matches of a pattern.
type extractPost struct{ params Params }

func (p extractPost) Execute(_ *Call, results []string) ([]string, error) {
	x, err := p.params.Extract(0, true)
	if err != nil {
		return nil, err
	}

	out := make([]string, len(results))
	for i, s := range results {
		out[i] = strings.Join(matches(x, s, ""), ",")
	}

	return out, nil
}

type replacePost struct{ params Params }

func (p replacePost) Execute(_ *Call, results []string) ([]string, error) {
	r, err := newReplacer(p.params)
	if err != nil {
		return nil, err
	}

	out := make([]string, len(results))
	for i, s := range results {
		out[i] = r.replace(s)
	}

	return out, nil
}

// splitPost splits each result, or each match, at a separator.
type splitPost struct{ params Params }

func (p splitPost) Execute(_ *Call, results []string) ([]string, error) {
	x, err := p.params.Extract(1, false)
	if err != nil {
		return nil, err
	}

	sep := x.Param(0)

	var out []string

	for _, s := range results {
		for _, m := range matches(x, s, "") {
			out = append(out, strings.Split(m, sep)...)
		}
	}

	return out, nil
}

// htmlPost encodes HTML special characters, or decodes entities with
// decode.
type htmlPost struct{ params Params }

func (p htmlPost) Execute(_ *Call, results []string) ([]string, error) {
	x, err := p.params.Extract(0, false)
	if err != nil {
		return nil, err
	}

	fn := html.EscapeString
	if slices.Contains(x.Params, "decode") && !slices.Contains(x.Params, "encode") {
		fn = html.UnescapeString
	}

	return eachCapture(results, x.Pattern, fn), nil
}
