package lang_test

import (
	"errors"
	"testing"

	"github.com/ardnew/brace/lang"
)

// evalBody evaluates expr as the body of an expression construct, resolving
// nested constructs to their body text.
func evalBody(t *testing.T, expr string) (string, error) {
	t.Helper()

	tok, err := lang.Tokenize("{e|" + expr + "|}")
	if err != nil {
		t.Fatalf("Tokenize(%q) error: %v", expr, err)
	}

	var resolve lang.Resolver

	resolve = func(c *lang.Token) (string, error) {
		return lang.Evaluate(c.Body, resolve)
	}

	return lang.Evaluate(tok.Children[0].Body, resolve)
}

func TestEvaluate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		expr string
		want string
	}{
		{"precedence", "2+3*4", "14"},
		{"scope", "(2+3)*4", "20"},
		{"unary_negate", "-5+-3", "-8"},
		{"left_associative", "10-2-3", "5"},
		{"division", "7/2", "3.5"},
		{"float", "0.5+0.25", "0.75"},
		{"double_negate", "--2", "2"},
		{"ternary_right_group", "true?1:false?2:3", "1"},
		{"ternary_else", "false?1:false?2:3", "3"},
		{"ternary_middle", "false?1:true?2:3", "2"},
		{"ternary_condition", "1<2?yes:no", "yes"},
		{"nested_ternary", "true?false?a:b:c", "b"},
		{"coalesce_missing_left", "??b", "b"},
		{"coalesce_left", "a??b", "a"},
		{"coalesce_null", "null??null", ""},
		{"coalesce_number", "null??007", "7"},
		{"not", "!true", "false"},
		{"not_case", "!FALSE", "true"},
		{"and", "true&&false", "false"},
		{"or", "false||true", "true"},
		{"less_numeric", "2<10", "true"},
		{"less_float_int", "2.5<3", "true"},
		{"greater_equal", "3>=3", "true"},
		{"less_null", "null<1", "false"},
		{"greater_null_right", "1>null", "true"},
		{"string_compare", "abc<abd", "true"},
		{"equal_numeric", "1==1.0", "true"},
		{"equal_null", "null==null", "true"},
		{"not_equal", "a!=b", "true"},
		{"equal_bool_case", "TRUE==true", "true"},
		{"concatenate", "a b", "ab"},
		{"concatenate_lowest", "{e|1|}+{e|2|}{e|3|}+{e|4|}", "37"},
		{"escaped_text", "`Total: `(1+2)", "Total: 3"},
		{"date_add_units", "`2020-01-31`+1M", "2020-02-29T00:00:00"},
		{"date_add_years", "`2020-02-29`+1y", "2021-02-28T00:00:00"},
		{"date_subtract_units", "`2020-03-01 12:00:00`-1d2h", "2020-02-29T10:00:00"},
		{"date_subtract_span", "`2020-01-01 10:00:00`-`1:30:00`", "2020-01-01T08:30:00"},
		{"date_add_days", "`2020-01-01`+2", "2020-01-03T00:00:00"},
		{"empty", "", ""},
		{"null_operand", "null", ""},
		{"coalesce_both_missing", "??", ""},
		{"coalesce_missing_right", "a??", "a"},
		{"coalesce_before_else", "false?x:??", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := evalBody(t, tt.expr)
			if err != nil {
				t.Fatalf("evaluate %q error: %v", tt.expr, err)
			}

			if got != tt.want {
				t.Errorf("evaluate %q = %q, want %q", tt.expr, got, tt.want)
			}
		})
	}
}

func TestEvaluate_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		expr string
		want error
	}{
		{"arithmetic_text", "a+1", lang.ErrOperand},
		{"multiply_date", "`2020-01-01`*2", lang.ErrOperand},
		{"and_text", "true&&yes", lang.ErrOperand},
		{"not_number", "!1", lang.ErrOperand},
		{"negate_text", "-a", lang.ErrOperand},
		{"missing_right", "1+", lang.ErrMissingOperand},
		{"dangling_else", "a:b", lang.ErrTernary},
		{"missing_else", "true?a", lang.ErrTernary},
		{"ternary_condition", "maybe?a:b", lang.ErrOperand},
		{"bad_duration", "`2020-01-01`+1w", lang.ErrDuration},
		{"year_is_not_date", "2022+1d", lang.ErrOperand},
		{"number_minus_span", "20220101-1d", lang.ErrOperand},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := evalBody(t, tt.expr)
			if err == nil {
				t.Fatalf("evaluate %q = %q, want error", tt.expr, got)
			}

			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestEvaluate_SideEffectOrder(t *testing.T) {
	t.Parallel()

	tok, err := lang.Tokenize("{e|{a}*{b}+{c}|}")
	if err != nil {
		t.Fatalf("Tokenize error: %v", err)
	}

	var order string

	got, err := lang.Evaluate(tok.Children[0].Body, func(c *lang.Token) (string, error) {
		order += c.Value

		return "2", nil
	})
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}

	if got != "6" {
		t.Errorf("result = %q, want 6", got)
	}

	if order != "abc" {
		t.Errorf("resolve order = %q, want abc", order)
	}
}

func TestEvaluate_TernaryBranch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		expr     string
		want     string
		resolved string
	}{
		{"true_skips_else", "true?yes:{x}", "yes", ""},
		{"false_skips_then", "false?{x}:ok", "ok", ""},
		{"chosen_resolves", "{c}?{y}:{n}", "y", "cy"},
		{"nested_skipped", "false?({x}+{y}):{z}", "z", "z"},
		{"skipped_scope", "true?a:({x}{y})", "a", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tok, err := lang.Tokenize("{e|" + tt.expr + "|}")
			if err != nil {
				t.Fatalf("Tokenize error: %v", err)
			}

			var resolved string

			got, err := lang.Evaluate(tok.Children[0].Body, func(c *lang.Token) (string, error) {
				resolved += c.Value

				if c.Value == "c" {
					return "true", nil
				}

				return c.Value, nil
			})
			if err != nil {
				t.Fatalf("Evaluate %q error: %v", tt.expr, err)
			}

			if got != tt.want {
				t.Errorf("Evaluate %q = %q, want %q", tt.expr, got, tt.want)
			}

			if resolved != tt.resolved {
				t.Errorf("resolved %q, want %q", resolved, tt.resolved)
			}
		})
	}
}

func TestEvaluate_StructureBeforeResolve(t *testing.T) {
	t.Parallel()

	tok, err := lang.Tokenize("{e|{a}:b|}")
	if err != nil {
		t.Fatalf("Tokenize error: %v", err)
	}

	var calls int

	_, err = lang.Evaluate(tok.Children[0].Body, func(*lang.Token) (string, error) {
		calls++

		return "", nil
	})
	if !errors.Is(err, lang.ErrTernary) {
		t.Errorf("error = %v, want %v", err, lang.ErrTernary)
	}

	if calls != 0 {
		t.Errorf("resolved %d constructs of a malformed expression, want 0", calls)
	}
}

func TestOperate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		op, a, b, want string
	}{
		{"+", "1", "2", "3"},
		{"??", "", "x", "x"},
		{"??", "", "", ""},
		{"==", "", "", "true"},
		{"!=", "", "1", "true"},
		{"<", "", "", "false"},
		{">", "1", "", "true"},
	}

	for _, tt := range tests {
		got, err := lang.Operate(tt.op, tt.a, tt.b)
		if err != nil {
			t.Errorf("Operate(%q, %q, %q) error: %v", tt.op, tt.a, tt.b, err)

			continue
		}

		if got != tt.want {
			t.Errorf("Operate(%q, %q, %q) = %q, want %q", tt.op, tt.a, tt.b, got, tt.want)
		}
	}
}
