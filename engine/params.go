package engine

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// Pattern is a regular expression parameter, written between slashes and
// optionally followed by capture group names:
//
//	/(?P<y>\d{4})-(?P<m>\d\d)/
//	/(\w+)@(\w+)/user/
//	/(?P<k>\w)=(?P<v>\d)/k, v/
//
// Group names are separated by commas or slashes. They restrict
// replacements to the named groups.
type Pattern struct {
	Re     *regexp.Regexp
	Groups []string
}

// Extracted is a parameter list split into its optional leading [Pattern]
// and the remaining plain parameters.
type Extracted struct {
	Pattern *Pattern
	Params  []string
}

// Param returns the i'th plain parameter, or the empty string.
func (x Extracted) Param(i int) string {
	if i < 0 || i >= len(x.Params) {
		return ""
	}

	return x.Params[i]
}

// Extract splits p into an optional leading pattern and plain parameters.
// It fails if fewer than minArgs parameters are given, counting the pattern, or
// if required is set and the first parameter is not a pattern.
func (p Params) Extract(minArgs int, required bool) (Extracted, error) {
	var x Extracted

	args := p.Args
	if len(args) > 0 {
		pt, ok, err := parsePattern(args[0])
		if err != nil {
			return x, err
		}

		if ok {
			x.Pattern = pt
			args = args[1:]
		}
	}

	if required && x.Pattern == nil {
		return x, ErrParam.Detail(p.Key + " requires a /regular expression/")
	}

	x.Params = args

	if n := len(p.Args); n < minArgs {
		return x, ErrParam.Detail(fmt.Sprintf("%s requires %d parameters, got %d", p.Key, minArgs, n))
	}

	return x, nil
}

// parsePattern reports whether s is written as a pattern and compiles it.
func parsePattern(s string) (*Pattern, bool, error) {
	if len(s) < 2 || s[0] != '/' || s[len(s)-1] != '/' {
		return nil, false, nil
	}

	parts := splitUnescaped(s[1:len(s)-1], '/')

	re, err := regexp.Compile(parts[0])
	if err != nil {
		return nil, true, ErrParam.Detail("regular expression " + s).Wrap(err)
	}

	pt := &Pattern{Re: re}

	for _, seg := range parts[1:] {
		for g := range strings.SplitSeq(seg, ",") {
			if g = strings.TrimSpace(g); g != "" {
				pt.Groups = append(pt.Groups, g)
			}
		}
	}

	return pt, true, nil
}

// splitUnescaped splits s at each sep not preceded by a backslash. Escaped
// separators are kept as "\sep", which regexp reads as the literal sep.
func splitUnescaped(s string, sep byte) []string {
	var (
		parts []string
		start int
	)

	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case sep:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}

	return append(parts, s[start:])
}

// MatchMode selects which matches [Pattern.Matches] returns.
type MatchMode int

const (
	MatchAll MatchMode = iota
	MatchFirst
	MatchLast
)

// Matches returns the first capture group of each match of the pattern in
// s, or the whole match if the pattern has no groups. If nothing matched,
// the result is the single value def.
func (pt *Pattern) Matches(s string, mode MatchMode, def string) []string {
	n := -1
	if mode == MatchFirst {
		n = 1
	}

	var out []string

	for _, m := range pt.Re.FindAllStringSubmatchIndex(s, n) {
		v := s[m[0]:m[1]]
		if pt.Re.NumSubexp() > 0 {
			if m[2] < 0 {
				continue
			}

			v = s[m[2]:m[3]]
		}

		out = append(out, v)
	}

	if len(out) == 0 {
		return []string{def}
	}

	if mode == MatchLast {
		return out[len(out)-1:]
	}

	return out
}

// groupSelected reports whether group i takes part in replacements.
func (pt *Pattern) groupSelected(i int) bool {
	if len(pt.Groups) == 0 {
		return true
	}

	return slices.Contains(pt.Groups, pt.Re.SubexpNames()[i])
}

// ApplyCaptures replaces every selected, participating capture group of each
// match with fn of its text. A pattern without groups replaces whole
// matches. Groups nested in an already replaced group are skipped.
func (pt *Pattern) ApplyCaptures(s string, fn func(name, value string) string) string {
	if pt.Re.NumSubexp() == 0 {
		return pt.Re.ReplaceAllStringFunc(s, func(m string) string { return fn("", m) })
	}

	var (
		sb   strings.Builder
		last int
	)

	names := pt.Re.SubexpNames()

	for _, m := range pt.Re.FindAllStringSubmatchIndex(s, -1) {
		for i := 1; i <= pt.Re.NumSubexp(); i++ {
			lo, hi := m[2*i], m[2*i+1]
			if lo < last || lo < 0 || !pt.groupSelected(i) {
				continue
			}

			sb.WriteString(s[last:lo])
			sb.WriteString(fn(names[i], s[lo:hi]))
			last = hi
		}
	}

	sb.WriteString(s[last:])

	return sb.String()
}

// replacer is the parsed form of the parameters of a replace handler:
//
//	/regex/, replacement
//	/regex/, {group: value, ...}
//	literal, replacement
type replacer struct {
	pattern *Pattern
	repl    string
	mapping map[string]any
}

func newReplacer(p Params) (*replacer, error) {
	x, err := p.Extract(1, false)
	if err != nil {
		return nil, err
	}

	r := &replacer{pattern: x.Pattern}

	if r.pattern == nil {
		r.pattern = &Pattern{Re: regexp.MustCompile(regexp.QuoteMeta(x.Param(0)))}
		r.repl = x.Param(1)
	} else {
		r.repl = x.Param(0)
	}

	if isSimpleMap(r.repl) {
		if r.mapping, err = parseSimpleMap(r.repl); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// replace applies the replacement to s.
func (r *replacer) replace(s string) string {
	switch {
	case r.pattern.Re.String() == "":
		return s

	case r.mapping != nil:
		return r.pattern.ApplyCaptures(s, func(name, value string) string {
			if v, ok := r.mapping[name]; ok {
				return mapString(v)
			}

			return value
		})

	case len(r.pattern.Groups) > 0:
		return r.pattern.ApplyCaptures(s, func(string, string) string { return r.repl })

	default:
		return r.pattern.Re.ReplaceAllString(s, r.repl)
	}
}
