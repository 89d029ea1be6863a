package engine

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ardnew/brace/cache"
	"github.com/ardnew/brace/lang"
	"github.com/ardnew/brace/record"
)

const testFixture = `
url: https://crm.example.com/main
user: user/u1
settings: settings/default
records:
  - entity: user
    id: u1
    fields: {name: Ada Lovelace, language: 1036}
  - entity: settings
    id: default
    fields:
      theme: dark
      tier: {option: 2, label: Gold}
  - entity: account
    id: a1
    fields:
      name: Contoso
      brand: "A&B"
      revenue: 1200.5
      owner: {ref: user/u1}
      status: {option: 1, label: Active}
    formatted:
      owner: Ada Lovelace
    related:
      contacts: [contact/c2, contact/c1, contact/c3]
  - entity: contact
    id: c1
    fields: {name: Bob, city: Paris, age: 41}
  - entity: contact
    id: c2
    fields: {name: Alice, city: Lyon, age: 29}
  - entity: contact
    id: c3
    fields: {name: Carol, city: Paris, age: 35}
  - entity: keyvalue
    id: k1
    fields: {name: greeting, value: Hello, value_1036: Bonjour}
labels:
  - {entity: account, field: status, value: 1, locale: 1033, label: Active}
  - {entity: account, field: status, value: 1, locale: 1036, label: Actif}
  - {entity: settings, field: tier, value: 2, locale: 1036, label: Or}
`

var testAccount = record.Ref{Entity: "account", ID: "a1"}

// countingSource counts the retrievals reaching the wrapped source.
type countingSource struct {
	record.Source
	retrieved atomic.Int32
}

func (s *countingSource) Retrieve(ctx context.Context, ref record.Ref, fields ...string) (*record.Record, error) {
	s.retrieved.Add(1)

	return s.Source.Retrieve(ctx, ref, fields...)
}

func testSource(t *testing.T, opts ...record.MemoryOption) *countingSource {
	t.Helper()

	m, err := record.LoadMemory(strings.NewReader(testFixture), opts...)
	if err != nil {
		t.Fatalf("LoadMemory: %v", err)
	}

	return &countingSource{Source: m}
}

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		template string
		want     string
	}{
		{"plain", "Hello, world!", "Hello, world!"},
		{"escaped", "`{c|name|}` \\{", "{c|name|} {"},
		{"column", "{c|name|}", "Contoso"},
		{"column_long_form", "{column|name|}", "Contoso"},
		{"column_formatted", "{c|owner|}", "Ada Lovelace"},
		{"column_lookup", "{c|owner.name|}", "Ada Lovelace"},
		{"column_id", "{c(id)|owner|}", "U1"},
		{"column_log", "{c(log)|owner|}", "user"},
		{"column_raw", "{c(raw)|revenue|}", "1200.5"},
		{"column_url", "{c(url)|owner|}", "https://crm.example.com/main/user/u1"},
		{"column_missing", "[{c|nothing|}]", "[]"},
		{"column_lookup_missing", "[{c|owner.missing.name|}]", "[]"},
		{"column_option_label", "{c %local(1036)% (name) |status|}", "Actif"},
		{"column_option_default", "{c(name)|status|}", "Active"},
		{"rowinfo_raw", "{i|raw|}", "account:A1"},
		{"rowinfo_name", "{i|name|}", "Contoso"},
		{"userinfo_name", "{u|name|}", "Ada Lovelace"},
		{"userinfo_lcid", "{u|lcid|}", "1036"},
		{"userinfo_given", "{u(`user/u1`)|id|}", "U1"},
		{"expression", "{e|1+2*3|}", "7"},
		{"expression_nested", "{e|`Total: `({c|revenue|}+0.5)|}", "Total: 1201"},
		{"discard", "a{_|{c|name|}|}b", "ab"},
		{"template", "{t(greet)|`Hi NAME!`|}{p(NAME, Bob)|greet|}", "Hi Bob!"},
		{"template_constructs", "{t(who)|`{c|name|}`|}[{p|who|}]", "[Contoso]"},
		{"template_cumulative", "{t(x)|`ab`|}{p(a, b, b, c)|x|}", "cc"},
		{"dictionary", "{v|greeting|}", "Hello"},
		{"dictionary_localized", "{v %local(1036)% |greeting|}", "Bonjour"},
		{"dictionary_missing", "[{v|farewell|}]", "[]"},
		{"config", "{g|theme|}", "dark"},
		{"config_localized", "{g %local(1036)% |tier|}", "Or"},
		{"locale_restored", "{g %local(1036)% |tier|}/{g|tier|}", "Or/Gold"},
		{"locale_global", "{e %local(1036, global)% |x|}{g|tier|}", "xOr"},
		{"replace_literal", "{r(o, 0)|`foo boo`|}", "f00 b00"},
		{"replace_regex", "{r(`/[aeiou]/`, _)|`brace`|}", "br_c_"},
		{"settings_html", "{s(`{html: true}`)|{e|`<b>`|}{c|brand|}|}{c|brand|}", "<b>A&amp;BA&B"},
		{"random_length", "{*(12, ul) @length@ *}", "12"},
		{"random_digits", "{*(6, n) @where(`/\\D/`)@ @count@ *}", "0"},
		{"date_construct", "{d}", "2024-03-05T14:07:09"},
		{
			"context_relation",
			"{.(this#contacts)|{c|name|}| @join(`, `)@ .}",
			"Alice, Bob, Carol",
		},
		{
			"context_order",
			"{. %order(`#age`)% (this#contacts)|{c|name|}| @join(`,`)@ .}",
			"Bob,Carol,Alice",
		},
		{
			"context_distinct",
			"{. %distinct(city)% (this#contacts)|{c|city|}| @join(`,`)@ .}",
			"Lyon,Paris",
		},
		{
			"context_filter",
			"{. %filter(`city=Paris`)% (this#contacts)|{c|name|}| @join(`,`)@ .}",
			"Bob,Carol",
		},
		{
			"context_restores_record",
			"{.(this#contacts)|{c|name|}| @discard@ .}{c|name|}",
			"Contoso",
		},
		{
			"context_lookup",
			"{.(this.owner)|{c|name|}|}",
			"Ada Lovelace",
		},
		{
			"context_named",
			"{.(this#contacts, person)|{.(person)|{i|id|}|}| @join(`,`)@ .}",
			"C2,C1,C3",
		},
		{
			"fetch",
			"{f(people)|`contact:name?city=Paris`|}{.(people)|{c|name|}| @join(`,`)@ .}",
			"Bob,Carol",
		},
		{
			"fetch_order",
			"{f %order(`#name`)% (people)|`contact:name`|}{.(people)|{c|name|}| @join(`,`)@ .}",
			"Carol,Bob,Alice",
		},
		{
			"preload",
			"{<|`name, revenue`|}{c|revenue|}",
			"1200.5",
		},
		{"sum", "{.(this#contacts)|{c|age|}| @sum@ .}", "105"},
		{"avg", "{.(this#contacts)|{c|age|}| @avg@ .}", "35"},
		{"max", "{.(this#contacts)|{c|age|}| @max@ .}", "41"},
		{"count", "{.(this#contacts)|{c|age|}| @count@ .}", "3"},
		{"store_read", "{e|abc| @store(v)@ @discard@ e}{e %read(v)% |x|}", "abc"},
	}

	src := testSource(t)
	now := time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)
	e := New(WithSource(src), WithClock(func() time.Time { return now }))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := e.Parse(t.Context(), tt.template, WithReference(testAccount))
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.template, err)
			}

			if got != tt.want {
				t.Errorf("Parse(%q) = %q, want %q", tt.template, got, tt.want)
			}
		})
	}
}

func TestParse_NoConstructs(t *testing.T) {
	t.Parallel()

	tests := []string{
		"",
		"just text",
		"a } b ) c | d",
		"line one\n\tline two\r\n",
		"1 + 2 = 3 ? yes : no",
	}

	e := New()

	for _, src := range tests {
		got, err := e.Parse(t.Context(), src)
		if err != nil {
			t.Fatalf("Parse(%q) error: %v", src, err)
		}

		if got != src {
			t.Errorf("Parse(%q) = %q", src, got)
		}
	}
}

func TestParse_ProvidedRecord(t *testing.T) {
	t.Parallel()

	src := testSource(t)
	rec := record.New(testAccount)
	rec.Set("name", "Fabrikam")

	got, err := New(WithSource(src)).Parse(t.Context(), "{c|name|}/{c|revenue|}", WithRecord(rec))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	if got != "Fabrikam/" {
		t.Errorf("Parse = %q, want fields of the provided record only", got)
	}

	if n := src.retrieved.Load(); n != 0 {
		t.Errorf("provided record caused %d retrievals", n)
	}
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		template string
		want     error
		contains string
	}{
		{"unknown_construct", "{zzz|body|}", lang.ErrUnknownKey, "zzz"},
		{"unknown_postprocessor", "{e|1| @uper@ e}", lang.ErrUnknownKey, "upper"},
		{"unterminated", "{e|1", lang.ErrFormat, ""},
		{"undefined_template", "{p|nope|}", ErrTemplate, "nope"},
		{"recursive_template", "{t(a)|`{p|a|}`|}{p|a|}", ErrDepth, ""},
		{"odd_placeholder", "{t(a)|x|}{p(a)|a|}", ErrParam, ""},
		{"column_mode", "{c(bogus)|name|}", ErrValue, "bogus"},
		{"not_lookup", "{.(this.name)|x|}", ErrNotLookup, "name"},
		{"missing_body", "{i}", ErrMissingBody, ""},
		{"bad_map", "{s(`{html: }`)|x|}", ErrParam, ""},
		{"bad_random", "{*(4, q)}", ErrParam, ""},
		{"where_needs_pattern", "{e|x| @where(x)@ e}", ErrParam, ""},
	}

	e := New(WithSource(testSource(t)))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := e.Parse(t.Context(), tt.template, WithReference(testAccount))
			if err == nil {
				t.Fatalf("Parse(%q) succeeded", tt.template)
			}

			if !errors.Is(err, tt.want) {
				t.Errorf("Parse(%q) error = %v, want %v", tt.template, err, tt.want)
			}

			if !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("Parse(%q) error = %q, want it to mention %q", tt.template, err, tt.contains)
			}
		})
	}
}

func TestParse_ErrorKinds(t *testing.T) {
	t.Parallel()

	ctx := t.Context()

	_, err := New().Parse(ctx, "{u|name|}")
	if !errors.Is(err, ErrNoSource) || !errors.Is(err, lang.ErrExternal) {
		t.Errorf("without source: error = %v, want ErrNoSource", err)
	}

	_, err = New(WithSource(testSource(t))).Parse(ctx, "{c|name|}")
	if !errors.Is(err, ErrNoRecord) || !errors.Is(err, lang.ErrLookup) {
		t.Errorf("without record: error = %v, want ErrNoRecord", err)
	}

	_, err = New(WithSource(testSource(t))).Parse(ctx, "{i|name|}", WithReference(record.Ref{Entity: "account", ID: "zz"}))

	var le *lang.Error
	if !errors.As(err, &le) || le.Kind() != lang.KindExternal {
		t.Errorf("missing record: error = %v, want an external error", err)
	}

	if le != nil && le.Location() == "" {
		t.Error("missing record: error has no location")
	}
}

func TestParse_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := New().Parse(ctx, "{e|1|}")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Parse error = %v, want context.Canceled", err)
	}
}

func TestParse_Cache(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		template string
		want     int32
	}{
		{"repeated", "{c|name|}{c|name|}{c|name|}", 1},
		{"disabled", "{c %cache(false)% |name|}{c %cache(false)% |name|}", 2},
		{"settings_disabled", "{s(`{cache: {enabled: false}}`)|{c|name|}{c|name|}|}", 2},
		{"explicit_wins", "{s(`{cache: {enabled: false}}`)|{c %cache(true)% |name|}{c %cache(true)% |name|}|}", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src := testSource(t)

			out, err := New(WithSource(src)).Parse(t.Context(), tt.template, WithReference(testAccount))
			if err != nil {
				t.Fatalf("Parse error: %v", err)
			}

			if strings.ReplaceAll(out, "Contoso", "") != "" {
				t.Errorf("Parse = %q", out)
			}

			if n := src.retrieved.Load(); n != tt.want {
				t.Errorf("retrievals = %d, want %d", n, tt.want)
			}
		})
	}
}

func TestParse_CacheTiers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		template string
		want     int32
	}{
		{"global_then_local", "{c %cache(true, global)% |name|}{c|name|}", 1},
		{"local_then_global", "{c|name|}{c %cache(true, global)% |name|}", 1},
		{"global_twice", "{c %cache(true, global)% |name|}{c %cache(true, global)% |name|}", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src := testSource(t)

			out, err := New(WithSource(src), WithStore(cache.New())).
				Parse(t.Context(), tt.template, WithReference(testAccount))
			if err != nil {
				t.Fatalf("Parse error: %v", err)
			}

			if out != "ContosoContoso" {
				t.Errorf("Parse = %q", out)
			}

			if n := src.retrieved.Load(); n != tt.want {
				t.Errorf("retrievals = %d, want %d", n, tt.want)
			}
		})
	}
}

func TestParse_TernarySkipsBranch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		template string
		want     string
	}{
		{"unknown_construct_unchosen", "{e|false ? {p|undefined|} : ok|}", "ok"},
		{"store_unchosen", "{e|true ? yes : {e|x| @store(v)@ e}|}[{e %read(v)% |z|}]", "yes[]"},
		{"store_chosen", "{e|false ? no : {e|x| @store(v)@ e}|}[{e %read(v)% |z|}]", "x[x]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			out, err := New(WithSource(testSource(t))).
				Parse(t.Context(), tt.template, WithReference(testAccount))
			if err != nil {
				t.Fatalf("Parse error: %v", err)
			}

			if out != tt.want {
				t.Errorf("Parse = %q, want %q", out, tt.want)
			}
		})
	}
}

func TestParse_GlobalCacheExpiry(t *testing.T) {
	t.Parallel()

	var now atomic.Int64

	now.Store(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).UnixNano())
	clock := func() time.Time { return time.Unix(0, now.Load()) }

	src := testSource(t)
	e := New(
		WithSource(src),
		WithStore(cache.New(cache.WithClock(clock))),
		WithFallbackDuration(time.Minute),
	)

	const tmpl = "{c %cache(true, global)% |name|}"

	parse := func(org string) {
		t.Helper()

		out, err := e.Parse(t.Context(), tmpl, WithReference(testAccount), WithOrganization(org))
		if err != nil || out != "Contoso" {
			t.Fatalf("Parse = %q, %v", out, err)
		}
	}

	parse("org1")
	parse("org1")

	if n := src.retrieved.Load(); n != 1 {
		t.Fatalf("retrievals after two parses = %d, want 1", n)
	}

	parse("org2")

	if n := src.retrieved.Load(); n != 2 {
		t.Fatalf("retrievals for another organization = %d, want 2", n)
	}

	now.Add(int64(2 * time.Minute))
	parse("org1")

	if n := src.retrieved.Load(); n != 3 {
		t.Errorf("retrievals after expiry = %d, want 3", n)
	}
}

func TestParse_Action(t *testing.T) {
	t.Parallel()

	var (
		calls  atomic.Int32
		target *record.Ref
		input  map[string]any
	)

	src := testSource(t, record.WithAction("recalculate",
		func(_ context.Context, ref *record.Ref, in map[string]any) (*record.Record, error) {
			calls.Add(1)
			target, input = ref, in

			r := record.New(record.Ref{Entity: "result", ID: "r1"})
			r.Set("total", 42)

			return r, nil
		}))

	e := New(WithSource(src))

	out, err := e.Parse(t.Context(), "{a(res, `{factor: 2}`)|recalculate|}", WithReference(testAccount))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	if out != "" || calls.Load() != 0 {
		t.Fatalf("unread action: output %q, %d calls", out, calls.Load())
	}

	out, err = e.Parse(t.Context(),
		"{a(res, `{factor: 2}`)|recalculate|}{.(res)|{c|total|}|}{.(res)|{i|raw|}|}",
		WithReference(testAccount))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	if out != "42result:R1" {
		t.Errorf("Parse = %q", out)
	}

	if calls.Load() != 1 {
		t.Errorf("action invoked %d times, want 1", calls.Load())
	}

	if target == nil || *target != testAccount {
		t.Errorf("action target = %v", target)
	}

	if input["factor"] != int64(2) {
		t.Errorf("action input = %v", input)
	}
}

func TestParse_PipelineOrder(t *testing.T) {
	t.Parallel()

	var trace []string

	reg := DefaultRegistry.Clone().
		Construct(Entry[ConstructFactory]{
			Key: "k", Long: "order",
			New: func(Params) Construct { return orderConstruct{&trace} },
		}).
		Preprocessor(Entry[PreprocessorFactory]{
			Key: "mark",
			New: func(p Params) Preprocessor { return tracePre{&trace, p.Arg(0)} },
		}).
		Postprocessor(Entry[PostprocessorFactory]{
			Key: "mark",
			New: func(p Params) Postprocessor { return tracePost{&trace, p.Arg(0)} },
		})

	out, err := New(WithRegistry(reg)).Parse(t.Context(),
		"{k %mark(a)% %mark(b)% |body| @mark(c)@ @mark(d)@ k}")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	want := []string{"pre-execute:body", "pre:a", "pre:b", "construct:body-ab", "post:c", "post:d", "cleanup"}
	if !slices.Equal(trace, want) {
		t.Errorf("trace = %v, want %v", trace, want)
	}

	if out != "body-ab+c+d" {
		t.Errorf("Parse = %q", out)
	}

	if _, ok := DefaultRegistry.constructs.get("k"); ok {
		t.Error("Clone modified DefaultRegistry")
	}
}

type orderConstruct struct{ trace *[]string }

func (p orderConstruct) PreExecute(_ *Call, body string) (string, error) {
	*p.trace = append(*p.trace, "pre-execute:"+body)

	return body + "-", nil
}

func (p orderConstruct) Execute(c *Call, body string) ([]string, error) {
	*p.trace = append(*p.trace, "construct:"+body)

	c.Defer(func() { *p.trace = append(*p.trace, "cleanup") })

	return []string{body}, nil
}

type tracePre struct {
	trace *[]string
	arg   string
}

func (p tracePre) Execute(_ *Call, body string) (string, error) {
	*p.trace = append(*p.trace, "pre:"+p.arg)

	return body + p.arg, nil
}

type tracePost struct {
	trace *[]string
	arg   string
}

func (p tracePost) Execute(_ *Call, results []string) ([]string, error) {
	*p.trace = append(*p.trace, "post:"+p.arg)

	return []string{strings.Join(results, "") + "+" + p.arg}, nil
}

func TestRegistry_Suggest(t *testing.T) {
	t.Parallel()

	got := DefaultRegistry.Suggest(lang.TypePostprocessor, "uper", 3)
	if !slices.Contains(got, "upper") {
		t.Errorf("Suggest(uper) = %v, want upper among them", got)
	}

	if got := DefaultRegistry.Suggest(lang.TypeConstruct, "", 3); got != nil {
		t.Errorf("Suggest(\"\") = %v", got)
	}

	for _, e := range DefaultRegistry.Constructs() {
		if e.Color == "" {
			t.Errorf("construct %q has no color", e.Key)
		}
	}
}

func TestHighlightCode(t *testing.T) {
	t.Parallel()

	tests := []string{
		"plain",
		"{c|name|} and {e|1+2|}",
		"{. %order(name)% (this#contacts)|{c|name|}| @join(`, `)@ .}",
	}

	e := New()

	for _, src := range tests {
		code, err := e.Highlight(src)
		if err != nil {
			t.Fatalf("Highlight(%q) error: %v", src, err)
		}

		if got := lang.StripMarkers(code); got != src {
			t.Errorf("StripMarkers(Highlight(%q)) = %q", src, got)
		}

		html, err := HighlightCode(src)
		if err != nil {
			t.Fatalf("HighlightCode(%q) error: %v", src, err)
		}

		if strings.Contains(src, "{c") && !strings.Contains(html, "#E9590C") {
			t.Errorf("HighlightCode(%q) = %q, want the column color", src, html)
		}
	}
}

func TestRegistry_Help(t *testing.T) {
	t.Parallel()

	tests := []struct {
		typ  lang.Type
		key  string
		want string
		ok   bool
	}{
		{lang.TypeConstruct, "c", "field of the current record", true},
		{lang.TypeConstruct, "column", "field of the current record", true},
		{lang.TypePreprocessor, "localize", "switch the locale", true},
		{lang.TypePostprocessor, "nope", "", false},
		{lang.TypeText, "c", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.typ.String()+"/"+tt.key, func(t *testing.T) {
			t.Parallel()

			got, ok := DefaultRegistry.Help(tt.typ, tt.key)
			if got != tt.want || ok != tt.ok {
				t.Errorf("Help() = %q, %v, want %q, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}
