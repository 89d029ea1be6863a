package engine

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync/atomic"
	"testing"
)

func TestParams_Extract(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		args       []string
		minArgs    int
		required   bool
		wantRe     string
		wantGroups []string
		wantParams []string
		wantErr    bool
	}{
		{name: "plain", args: []string{"a", "b"}, wantParams: []string{"a", "b"}},
		{name: "pattern", args: []string{`/\d+/`, "x"}, wantRe: `\d+`, wantParams: []string{"x"}},
		{name: "groups", args: []string{`/(?P<a>.)(?P<b>.)/a, b/`}, wantRe: `(?P<a>.)(?P<b>.)`, wantGroups: []string{"a", "b"}, wantParams: []string{}},
		{name: "group_slashes", args: []string{`/(?P<a>.)(?P<b>.)/a/ b /`}, wantRe: `(?P<a>.)(?P<b>.)`, wantGroups: []string{"a", "b"}, wantParams: []string{}},
		{name: "group_blanks", args: []string{`/(?P<a>.)/ a,,/`}, wantRe: `(?P<a>.)`, wantGroups: []string{"a"}, wantParams: []string{}},
		{name: "escaped_slash", args: []string{`/a\/b/`}, wantRe: `a\/b`, wantParams: []string{}},
		{name: "pattern_counts", args: []string{`/x/`}, minArgs: 1, wantRe: "x", wantParams: []string{}},
		{name: "too_few", args: []string{"a"}, minArgs: 2, wantErr: true},
		{name: "required", args: []string{"a"}, required: true, wantErr: true},
		{name: "bad_regex", args: []string{"/(/"}, wantErr: true},
		{name: "single_slash", args: []string{"/"}, wantParams: []string{"/"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			x, err := Params{Key: "k", Args: tt.args}.Extract(tt.minArgs, tt.required)
			if tt.wantErr {
				if !errors.Is(err, ErrParam) {
					t.Errorf("Extract() error = %v, want %v", err, ErrParam)
				}

				return
			}

			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}

			var re string
			var groups []string

			if x.Pattern != nil {
				re, groups = x.Pattern.Re.String(), x.Pattern.Groups
			}

			if re != tt.wantRe {
				t.Errorf("Extract() pattern = %q, want %q", re, tt.wantRe)
			}

			if !slices.Equal(groups, tt.wantGroups) {
				t.Errorf("Extract() groups = %q, want %q", groups, tt.wantGroups)
			}

			if !slices.Equal(x.Params, tt.wantParams) {
				t.Errorf("Extract() params = %q, want %q", x.Params, tt.wantParams)
			}
		})
	}
}

func mustPattern(t *testing.T, s string) *Pattern {
	t.Helper()

	pt, ok, err := parsePattern(s)
	if err != nil || !ok {
		t.Fatalf("parsePattern(%q) = %v, %v", s, ok, err)
	}

	return pt
}

func TestPattern_Matches(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		pattern string
		input   string
		mode    MatchMode
		want    []string
	}{
		{"all", `/\d+/`, "a1b22c333", MatchAll, []string{"1", "22", "333"}},
		{"first", `/\d+/`, "a1b22c333", MatchFirst, []string{"1"}},
		{"last", `/\d+/`, "a1b22c333", MatchLast, []string{"333"}},
		{"group", `/(\w)=\d/`, "a=1 b=2", MatchAll, []string{"a", "b"}},
		{"none", `/\d/`, "abc", MatchAll, []string{"def"}},
		{"optional_group", `/x(y)?/`, "x xy", MatchAll, []string{"y"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := mustPattern(t, tt.pattern).Matches(tt.input, tt.mode, "def")
			if !slices.Equal(got, tt.want) {
				t.Errorf("Matches(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestPattern_ApplyCaptures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		pattern string
		input   string
		want    string
	}{
		{"whole_match", `/\d+/`, "a1b22", "a[1]b[22]"},
		{"groups", `/(\w)=(\d)/`, "a=1;b=2", "[a]=[1];[b]=[2]"},
		{"selected", `/(?P<k>\w)=(?P<v>\d)/v/`, "a=1;b=2", "a=[1];b=[2]"},
		{"selected_list", `/(?P<k>\w)=(?P<v>\d)/k, v/`, "a=1;b=2", "[a]=[1];[b]=[2]"},
		{"nested", `/((\w)\w)/`, "ab", "[ab]"},
		{"no_match", `/\d/`, "abc", "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := mustPattern(t, tt.pattern).ApplyCaptures(tt.input, func(_, v string) string {
				return "[" + v + "]"
			})
			if got != tt.want {
				t.Errorf("ApplyCaptures(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestReplacer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		args  []string
		input string
		want  string
	}{
		{"literal", []string{"a.b", "-"}, "a.b.a.b", "-.-"},
		{"literal_empty", []string{"", "x"}, "abc", "abc"},
		{"regex", []string{`/\s+/`, " "}, "a  b\t\tc", "a b c"},
		{"expand", []string{`/(\w+)@(\w+)/`, "$2 at $1"}, "me@home", "home at me"},
		{"groups", []string{`/(?P<user>\w+)@\w+/user/`, "***"}, "me@home", "***@home"},
		{"map", []string{`/(?P<d>\d\d)\/(?P<m>\d\d)/`, `{d: "DD", m: "MM"}`}, "05/03", "DD/MM"},
		{"map_partial", []string{`/(?P<d>\d\d)\/(?P<m>\d\d)/`, `{m: 3}`}, "05/03", "05/3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r, err := newReplacer(Params{Key: "replace", Args: tt.args})
			if err != nil {
				t.Fatalf("newReplacer() error = %v", err)
			}

			if got := r.replace(tt.input); got != tt.want {
				t.Errorf("replace(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSplitFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want []string
	}{
		{"a,b", []string{"a", "b"}},
		{" a , b ,a", []string{"a", "b"}},
		{",,", []string{}},
		{"", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			if got := splitFields(tt.in); !slices.Equal(got, tt.want) {
				t.Errorf("splitFields(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseSimpleMap(t *testing.T) {
	t.Parallel()

	m, err := parseSimpleMap(`{html: true, cache: {enabled: false, dur: 30}, name: "x"}`)
	if err != nil {
		t.Fatalf("parseSimpleMap() error = %v", err)
	}

	if m["html"] != true {
		t.Errorf("html = %v, want true", m["html"])
	}

	if got := mapString(m["name"]); got != "x" {
		t.Errorf("name = %q, want %q", got, "x")
	}

	cache, ok := m["cache"].(map[string]any)
	if !ok {
		t.Fatalf("cache = %T, want map", m["cache"])
	}

	if got := mapString(cache["dur"]); got != "30" {
		t.Errorf("dur = %q, want %q", got, "30")
	}

	for _, bad := range []string{`{html: }`, `[1, 2]`} {
		if _, err := parseSimpleMap(bad); !errors.Is(err, ErrParam) {
			t.Errorf("parseSimpleMap(%q) error = %v, want %v", bad, err, ErrParam)
		}
	}

	if !isSimpleMap(" {a: 1} ") || isSimpleMap("a: 1") {
		t.Error("isSimpleMap() misclassified input")
	}
}

func TestSlot(t *testing.T) {
	t.Parallel()

	ctx := t.Context()

	v, err := Value("x").Get(ctx)
	if err != nil || v != "x" {
		t.Errorf("Value().Get() = %v, %v, want x", v, err)
	}

	var calls atomic.Int32

	lazy := Lazy(func(context.Context) (any, error) {
		calls.Add(1)

		return strings.Repeat("y", 2), nil
	})

	for range 3 {
		if v, err := lazy.Get(ctx); err != nil || v != "yy" {
			t.Errorf("Lazy().Get() = %v, %v, want yy", v, err)
		}
	}

	if n := calls.Load(); n != 1 {
		t.Errorf("producer called %d times, want 1", n)
	}

	failing := Lazy(func(context.Context) (any, error) { return nil, ErrValue })
	for range 2 {
		if _, err := failing.Get(ctx); !errors.Is(err, ErrValue) {
			t.Errorf("failing.Get() error = %v, want %v", err, ErrValue)
		}
	}

	var nilSlot *Slot
	if v, err := nilSlot.Get(ctx); v != nil || err != nil {
		t.Errorf("nil Get() = %v, %v", v, err)
	}
}

func TestJoinFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []string
		want string
	}{
		{"plain", []string{"a", "b"}, "a,b"},
		{"repeats_blanks", []string{" a", "", "b ", "a", "  "}, "a,b"},
		{"empty", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := joinFields(tt.in); got != tt.want {
				t.Errorf("joinFields(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
