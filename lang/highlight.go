package lang

import (
	"html"
	"strings"
)

// Highlight markers are private-use runes inserted into [Token.Code] by a
// highlighting tokenize pass. A colored span is
//
//	MarkOpen color MarkColor ... MarkClose
//
// and ghost text (shown by renderers, absent from the source) is
//
//	MarkGhost ... MarkGhostEnd
const (
	MarkOpen     = '\uE000'
	MarkColor    = '\uE001'
	MarkClose    = '\uE002'
	MarkGhost    = '\uE003'
	MarkGhostEnd = '\uE004'
)

func colorize(code, color string) string {
	if color == "" {
		return code
	}

	return string(MarkOpen) + color + string(MarkColor) + code + string(MarkClose)
}

func ghost(s string) string {
	return string(MarkGhost) + s + string(MarkGhostEnd)
}

// Span is one run of highlighted code.
type Span struct {
	Text  string
	Color string // hex RGB without '#', empty for default
	Ghost bool
}

// Spans splits highlighted code into runs of uniform color. Nested colors
// override the enclosing color until their span closes.
func Spans(code string) []Span {
	var (
		spans   []Span
		colors  []string
		text    strings.Builder
		color   strings.Builder
		inTag   bool
		inGhost bool
	)

	current := func() string {
		if len(colors) == 0 {
			return ""
		}

		return colors[len(colors)-1]
	}

	emit := func() {
		if text.Len() == 0 {
			return
		}

		spans = append(spans, Span{Text: text.String(), Color: current(), Ghost: inGhost})
		text.Reset()
	}

	for _, r := range code {
		switch {
		case inTag && r == MarkColor:
			inTag = false
			colors = append(colors, color.String())
			color.Reset()

		case inTag:
			color.WriteRune(r)

		case r == MarkOpen:
			emit()

			inTag = true

		case r == MarkClose:
			emit()

			if len(colors) > 0 {
				colors = colors[:len(colors)-1]
			}

		case r == MarkGhost:
			emit()

			inGhost = true

		case r == MarkGhostEnd:
			emit()

			inGhost = false

		default:
			text.WriteRune(r)
		}
	}

	emit()

	return spans
}

// StripMarkers removes highlight markers and ghost text, restoring the raw
// source the code was tokenized from.
func StripMarkers(code string) string {
	var sb strings.Builder

	for _, s := range Spans(code) {
		if !s.Ghost {
			sb.WriteString(s.Text)
		}
	}

	return sb.String()
}

// RenderHTML converts highlighted code into HTML for display: text is
// escaped, whitespace is made visible to HTML layout, and each colored run
// becomes a span element.
func RenderHTML(code string) string {
	var sb strings.Builder

	for _, s := range Spans(code) {
		text := html.EscapeString(s.Text)
		text = strings.NewReplacer(
			"\t", "&nbsp;&nbsp;",
			" ", "&nbsp;",
			"\r", "",
			"\n", "<br/>",
		).Replace(text)

		switch {
		case s.Color == "" && !s.Ghost:
			sb.WriteString(text)

		case s.Ghost:
			sb.WriteString(`<span class="code ghost"`)

			if s.Color != "" {
				sb.WriteString(` style="color:#` + s.Color + `"`)
			}

			sb.WriteString(">" + text + "</span>")

		default:
			sb.WriteString(`<span style="color:#` + s.Color + `" class="code">`)
			sb.WriteString(text)
			sb.WriteString("</span>")
		}
	}

	return sb.String()
}
