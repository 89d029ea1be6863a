package repl

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/ardnew/brace/lang"
)

// detectKeyword returns the innermost keyword open at the cursor, or
// [lang.TypeText] and an empty key outside of any.
func detectKeyword(input string, cursor int) (lang.Type, string) {
	open := openKeywords(input, cursor)

	for i := len(open) - 1; i >= 0; i-- {
		if open[i].key != "" {
			return open[i].typ, open[i].key
		}
	}

	return lang.TypeText, ""
}

// renderKeywordHint renders the help line of a keyword, or "" if it has
// none.
func renderKeywordHint(s *Session, typ lang.Type, key string) string {
	help, ok := s.keywordHelp(typ, key)
	if !ok {
		return ""
	}

	return lipgloss.NewStyle().Bold(true).Render(key) + " " +
		hintStyle.Render(typ.String()+": "+help)
}
