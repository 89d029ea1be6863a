package lang

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// RenderANSI converts highlighted code into terminal output, coloring each
// construct with its registered color and dimming ghost text.
func RenderANSI(code string) string {
	var sb strings.Builder

	for _, s := range Spans(code) {
		style := lipgloss.NewStyle()

		if s.Color != "" {
			style = style.Foreground(lipgloss.Color("#" + s.Color))
		}

		if s.Ghost {
			style = style.Faint(true)
		}

		// Styles pad multi-line blocks to a common width, so render each line
		// on its own.
		for i, line := range strings.Split(s.Text, "\n") {
			if i > 0 {
				sb.WriteByte('\n')
			}

			if line != "" {
				sb.WriteString(style.Render(line))
			}
		}
	}

	return sb.String()
}
