package lang_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/ardnew/brace/lang"
)

func TestTokenize_PlainText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"words", "Hello, world!", "Hello, world!"},
		{"operators_are_text", "a+b=c || d", "a+b=c || d"},
		{"closing_brace", "a } b", "a } b"},
		{"multiline", "line one\n\tline two\r\n", "line one\n\tline two\r\n"},
		{"backtick_escape", "`{e|1|}`", "{e|1|}"},
		{"backslash_escape", `\{x\}`, "{x}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tok, err := lang.Tokenize(tt.input)
			if err != nil {
				t.Fatalf("Tokenize(%q) error: %v", tt.input, err)
			}

			var got strings.Builder
			for _, c := range tok.Children {
				if c.Type != lang.TypeText {
					t.Fatalf("child type = %v, want text", c.Type)
				}

				got.WriteString(c.Value)
			}

			if got.String() != tt.want {
				t.Errorf("text = %q, want %q", got.String(), tt.want)
			}
		})
	}
}

func TestTokenize_ConstructParts(t *testing.T) {
	t.Parallel()

	tok, err := lang.Tokenize("a{c %local(1036)% %cache(true)% (x, y) |name| @upper@ @join(`, `)@ c}b")
	if err != nil {
		t.Fatalf("Tokenize error: %v", err)
	}

	if len(tok.Children) != 3 {
		t.Fatalf("children = %d, want 3: %v", len(tok.Children), tok)
	}

	c := tok.Children[1]

	if c.Type != lang.TypeConstruct || c.Value != "c" {
		t.Fatalf("construct = %v", c)
	}

	if got := len(c.Pre); got != 2 {
		t.Errorf("preprocessors = %d, want 2", got)
	}

	if c.Pre[0].Value != "local" || c.Pre[1].Value != "cache" {
		t.Errorf("preprocessor keys = %q, %q", c.Pre[0].Value, c.Pre[1].Value)
	}

	if got := len(c.Post); got != 2 {
		t.Errorf("postprocessors = %d, want 2", got)
	}

	if got := len(c.Arguments()); got != 2 {
		t.Errorf("arguments = %d, want 2", got)
	}

	if c.Body == nil || len(c.Body.Children) != 1 || c.Body.Children[0].Value != "name" {
		t.Errorf("body = %v", c.Body)
	}

	sep := c.Post[1].Arguments()
	if len(sep) != 1 || sep[0].Children[0].Value != ", " {
		t.Errorf("join argument = %v", c.Post[1].Params)
	}
}

func TestTokenize_Arguments(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  []string
	}{
		{"{c()}", nil},
		{"{c(a)}", []string{"a"}},
		{"{c(a,b)}", []string{"a", "b"}},
		{"{c(a,)}", []string{"a", ""}},
		{"{c(a,,b)}", []string{"a", "", "b"}},
		{"{c(,)}", []string{"", ""}},
		{"{c(a+b)}", []string{"a+b"}},
		{"{c(`a, b`,c)}", []string{"a, b", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			tok, err := lang.Tokenize(tt.input)
			if err != nil {
				t.Fatalf("Tokenize(%q) error: %v", tt.input, err)
			}

			args := tok.Children[0].Arguments()
			if len(args) != len(tt.want) {
				t.Fatalf("arguments = %d, want %d", len(args), len(tt.want))
			}

			for i, arg := range args {
				var got strings.Builder
				for _, c := range arg.Children {
					got.WriteString(c.Literal())
				}

				if got.String() != tt.want[i] {
					t.Errorf("argument %d = %q, want %q", i, got.String(), tt.want[i])
				}
			}
		})
	}
}

func TestTokenize_Nesting(t *testing.T) {
	t.Parallel()

	tok, err := lang.Tokenize("{e|{c|a|}+({c|b|}*2)|}")
	if err != nil {
		t.Fatalf("Tokenize error: %v", err)
	}

	body := tok.Children[0].Body

	want := []lang.Type{lang.TypeConstruct, lang.TypeOperator, lang.TypeScope}
	if len(body.Children) != len(want) {
		t.Fatalf("body children = %v", body)
	}

	for i, typ := range want {
		if body.Children[i].Type != typ {
			t.Errorf("child %d = %v, want %v", i, body.Children[i].Type, typ)
		}
	}

	scope := body.Children[2]
	if len(scope.Children) != 3 || scope.Children[0].Type != lang.TypeConstruct {
		t.Errorf("scope = %v", scope)
	}
}

func TestTokenize_DoubleOperators(t *testing.T) {
	t.Parallel()

	tok, err := lang.Tokenize("{e|a||b&&c??d>=e<=f!=g==h|}")
	if err != nil {
		t.Fatalf("Tokenize error: %v", err)
	}

	var ops []string

	for _, c := range tok.Children[0].Body.Children {
		if c.Type == lang.TypeOperator {
			ops = append(ops, c.Value)
		}
	}

	want := []string{"||", "&&", "??", ">=", "<=", "!=", "=="}
	if strings.Join(ops, " ") != strings.Join(want, " ") {
		t.Errorf("operators = %v, want %v", ops, want)
	}
}

func TestTokenize_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"closure_mismatch", "{e|1|x}", lang.ErrClosure},
		{"missing_key", "{|1|}", lang.ErrKeyMissing},
		{"unterminated_construct", "{e|1|", lang.ErrUnterminated},
		{"unterminated_body", "{e|1", lang.ErrUnterminated},
		{"unterminated_params", "{e(1", lang.ErrUnterminated},
		{"second_params", "{e(1)(2)}", lang.ErrPosition},
		{"second_body", "{e|1| |2|}", lang.ErrPosition},
		{"pre_after_body", "{e|1|%cache%}", lang.ErrPosition},
		{"text_before_body", "{e(1)x|1|}", lang.ErrPosition},
		{"unbalanced_body", "{e|1)|}", lang.ErrUnbalanced},
		{"pre_closure", "{e%cache(true)x%|1|}", lang.ErrClosure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := lang.Tokenize(tt.input)
			if err == nil {
				t.Fatalf("Tokenize(%q) succeeded, want error", tt.input)
			}

			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}

			if !errors.Is(err, lang.ErrFormat) {
				t.Errorf("error kind = %v, want format", err)
			}
		})
	}
}

func TestTokenize_ClosureEcho(t *testing.T) {
	t.Parallel()

	for _, input := range []string{"{e|1|e}", "{ e |1| e }", "{abc|1|abc}"} {
		if _, err := lang.Tokenize(input); err != nil {
			t.Errorf("Tokenize(%q) error: %v", input, err)
		}
	}
}

func TestTokenize_Location(t *testing.T) {
	t.Parallel()

	prefix := strings.Repeat("x", 150)

	_, err := lang.Tokenize(prefix + "{e|1|y}")

	var le *lang.Error
	if !errors.As(err, &le) {
		t.Fatalf("error = %v, want *lang.Error", err)
	}

	loc := le.Location()
	if !strings.HasPrefix(loc, "[...]") {
		t.Errorf("location %q lacks truncation prefix", loc)
	}

	if got := len([]rune(strings.TrimPrefix(loc, "[...]"))); got != 100 {
		t.Errorf("location length = %d, want 100", got)
	}

	if !strings.HasSuffix(loc, "{e|1|y}") {
		t.Errorf("location %q does not end at the failure", loc)
	}
}
