package lang_test

import (
	"strings"
	"testing"

	"github.com/ardnew/brace/lang"
)

func testColor(key string) string {
	switch key {
	case "e":
		return "8A7968"
	case "c":
		return "E9590C"
	default:
		return ""
	}
}

func TestHighlight_RoundTrip(t *testing.T) {
	t.Parallel()

	tests := []string{
		"plain text only",
		"{e|1+2|}",
		"a {e | 1 + {c(x, `y z`)|n|c} | e} b",
		"{c %cache(true)% |name| @upper@}",
		"{unknown|1|}\n\t{e|`{not a construct}`|}",
		`{e|\{|}`,
	}

	for _, src := range tests {
		t.Run(src, func(t *testing.T) {
			t.Parallel()

			tok, err := lang.Tokenize(src, lang.WithHighlight(testColor))
			if err != nil {
				t.Fatalf("Tokenize error: %v", err)
			}

			if got := lang.StripMarkers(tok.Code); got != src {
				t.Errorf("StripMarkers = %q, want %q", got, src)
			}
		})
	}
}

func TestHighlight_Ghost(t *testing.T) {
	t.Parallel()

	tok, err := lang.Tokenize("{e|1|}", lang.WithHighlight(testColor))
	if err != nil {
		t.Fatalf("Tokenize error: %v", err)
	}

	var ghosts []string

	for _, s := range lang.Spans(tok.Code) {
		if s.Ghost {
			ghosts = append(ghosts, s.Text)
		}
	}

	if len(ghosts) != 1 || ghosts[0] != "e" {
		t.Errorf("ghost spans = %q, want [e]", ghosts)
	}

	echoed, err := lang.Tokenize("{e|1|e}", lang.WithHighlight(testColor))
	if err != nil {
		t.Fatalf("Tokenize error: %v", err)
	}

	for _, s := range lang.Spans(echoed.Code) {
		if s.Ghost {
			t.Errorf("unexpected ghost %q for echoed key", s.Text)
		}
	}
}

func TestHighlight_NestedColors(t *testing.T) {
	t.Parallel()

	tok, err := lang.Tokenize("{e|{c|x|c}|e}", lang.WithHighlight(testColor))
	if err != nil {
		t.Fatalf("Tokenize error: %v", err)
	}

	var colors []string

	for _, s := range lang.Spans(tok.Code) {
		if len(colors) == 0 || colors[len(colors)-1] != s.Color {
			colors = append(colors, s.Color)
		}
	}

	want := []string{"", "8A7968", "E9590C", "8A7968", ""}
	if strings.Join(colors, ",") != strings.Join(want, ",") {
		t.Errorf("color runs = %q, want %q", colors, want)
	}
}

func TestRenderHTML(t *testing.T) {
	t.Parallel()

	tok, err := lang.Tokenize("a <b>\t{e|1|}\n", lang.WithHighlight(testColor))
	if err != nil {
		t.Fatalf("Tokenize error: %v", err)
	}

	got := lang.RenderHTML(tok.Code)

	for _, want := range []string{
		"a&nbsp;&lt;b&gt;&nbsp;&nbsp;",
		`<span style="color:#8A7968" class="code">`,
		`<span class="code ghost" style="color:#8A7968">e</span>`,
		"<br/>",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("RenderHTML = %q, missing %q", got, want)
		}
	}
}

func TestRenderANSI_KeepsText(t *testing.T) {
	t.Parallel()

	tok, err := lang.Tokenize("no constructs\nhere {e|1|}", lang.WithHighlight(testColor))
	if err != nil {
		t.Fatalf("Tokenize error: %v", err)
	}

	got := lang.RenderANSI(tok.Code)

	for _, want := range []string{"no constructs", "here", "e|1|"} {
		if !strings.Contains(got, want) {
			t.Errorf("RenderANSI = %q, missing %q", got, want)
		}
	}
}
