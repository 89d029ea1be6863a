package repl

import (
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"github.com/ardnew/brace/lang"
)

// ctrlCommands are the available control-mode commands.
var ctrlCommands = []string{"help", "list", "record", "locale", "org", "edit", "clear", "quit"}

// isWordBoundary reports whether r delimits a keyword: template
// punctuation and whitespace.
func isWordBoundary(r rune) bool {
	switch r {
	case ' ', '\t', '\n',
		'{', '}', '|', '%', '@',
		'(', ')', ',', '`', '\\':
		return true
	}

	return false
}

// wordBounds returns the word around the cursor and its byte offsets.
// The word is empty when the cursor sits between two boundaries.
func wordBounds(input string, cursor int) (word string, start, end int) {
	cursor = min(cursor, len(input))

	start = cursor
	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(input[:start])
		if isWordBoundary(r) {
			break
		}

		start -= size
	}

	end = cursor
	for end < len(input) {
		r, size := utf8.DecodeRuneInString(input[end:])
		if isWordBoundary(r) {
			break
		}

		end += size
	}

	return input[start:end], start, end
}

// keyword is a construct, preprocessor or postprocessor left open before
// some offset of the input.
type keyword struct {
	typ   lang.Type
	key   string
	start int // byte offset of the key
}

// openKeywords returns the keywords opened and not yet closed within
// input[:end], innermost last. Backtick-quoted and backslash-escaped
// characters are skipped.
func openKeywords(input string, end int) []keyword {
	var (
		stack   []keyword
		quoted  bool
		escaped bool
	)

	end = min(end, len(input))

	for i, r := range input[:end] {
		switch {
		case escaped:
			escaped = false

			continue
		case r == '\\':
			escaped = true

			continue
		case r == '`':
			quoted = !quoted

			continue
		case quoted:
			continue
		}

		switch r {
		case '{':
			stack = append(stack, keyword{typ: lang.TypeConstruct, start: i + 1})

		case '}':
			for j := len(stack) - 1; j >= 0; j-- {
				if stack[j].typ == lang.TypeConstruct {
					stack = stack[:j]

					break
				}
			}

		case '%', '@':
			typ := lang.TypePreprocessor
			if r == '@' {
				typ = lang.TypePostprocessor
			}

			if n := len(stack); n > 0 && stack[n-1].typ == typ {
				stack = stack[:n-1]
			} else {
				stack = append(stack, keyword{typ: typ, start: i + 1})
			}
		}
	}

	for i := range stack {
		rest := input[stack[i].start:]
		if j := strings.IndexFunc(rest, isWordBoundary); j >= 0 {
			rest = rest[:j]
		}

		stack[i].key = rest
	}

	return stack
}

// keywordAt returns the type of keyword whose key starts at offset start,
// or [lang.TypeText] if none does.
func keywordAt(input string, start int) lang.Type {
	open := openKeywords(input, start)
	if n := len(open); n > 0 && open[n-1].start == start {
		return open[n-1].typ
	}

	return lang.TypeText
}

// computeMatches returns the fuzzy matches of the word at the cursor, the
// candidates they were drawn from and the word's byte offsets. Right after
// an opening brace, percent or at sign, every candidate matches.
func (m model) computeMatches() (
	matches fuzzy.Matches,
	candidates []string,
	wordStart, wordEnd int,
) {
	input := m.input.Value()

	word, wordStart, wordEnd := wordBounds(input, m.cursor())

	if m.mode == modeCtrl {
		if word == "" || wordStart > 0 {
			return nil, nil, wordStart, wordEnd
		}

		return fuzzy.Find(word, ctrlCommands), ctrlCommands, wordStart, wordEnd
	}

	typ := keywordAt(input, wordStart)
	if typ == lang.TypeText || m.session.Engine == nil {
		return nil, nil, wordStart, wordEnd
	}

	candidates = m.session.Engine.Registry().Names(typ)
	if len(candidates) == 0 {
		return nil, nil, wordStart, wordEnd
	}

	if word == "" {
		matches = make(fuzzy.Matches, len(candidates))
		for i, c := range candidates {
			matches[i] = fuzzy.Match{Str: c, Index: i}
		}

		return matches, candidates, wordStart, wordEnd
	}

	return fuzzy.Find(word, candidates), candidates, wordStart, wordEnd
}

// renderCandidateBar renders the matches on one line no wider than width,
// ending in an ellipsis when some do not fit.
func renderCandidateBar(matches fuzzy.Matches, selected int, tabActive bool, width int) string {
	if len(matches) == 0 || width <= 0 {
		return ""
	}

	const sep = "  "

	ellipsis := hintStyle.Render("...")
	room := width - lipgloss.Width(ellipsis)

	var (
		b    strings.Builder
		used int
	)

	for i, match := range matches {
		cand := renderCandidate(match, tabActive && i == selected)

		w := lipgloss.Width(cand)
		if i > 0 {
			w += len(sep)
		}

		last := i == len(matches)-1
		if i > 0 && used+w > room && !(last && used+w <= width) {
			b.WriteString(sep)
			b.WriteString(ellipsis)

			break
		}

		if i > 0 {
			b.WriteString(sep)
		}

		b.WriteString(cand)

		used += w
	}

	return b.String()
}

// renderCandidate renders one match with its matched characters
// emphasized.
func renderCandidate(match fuzzy.Match, selected bool) string {
	base, emph := suggestionStyle, matchStyle
	if selected {
		base, emph = selectedStyle, selectedMatchStyle
	}

	var b strings.Builder

	next := 0

	for i, r := range match.Str {
		style := base
		if next < len(match.MatchedIndexes) && match.MatchedIndexes[next] == i {
			style = emph
			next++
		}

		b.WriteString(style.Render(string(r)))
	}

	return b.String()
}
