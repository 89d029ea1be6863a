package engine

import (
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/ardnew/brace/lang"
)

// Params are the evaluated arguments of one keyword occurrence.
type Params struct {
	Key  string
	Args []string
}

// Arg returns the i'th argument, or the empty string.
func (p Params) Arg(i int) string {
	if i < 0 || i >= len(p.Args) {
		return ""
	}

	return p.Args[i]
}

// Has reports whether any argument equals flag.
func (p Params) Has(flag string) bool { return slices.Contains(p.Args, flag) }

// Factory types instantiate one handler per keyword occurrence.
type (
	ConstructFactory     func(p Params) Construct
	PreprocessorFactory  func(p Params) Preprocessor
	PostprocessorFactory func(p Params) Postprocessor
)

// Entry describes a registered handler.
type Entry[F any] struct {
	Key   string
	Long  string
	Color string
	Help  string
	New   F
}

type table[F any] struct {
	entries map[string]*Entry[F]
	alias   map[string]string
}

func newTable[F any]() table[F] {
	return table[F]{entries: map[string]*Entry[F]{}, alias: map[string]string{}}
}

func (t table[F]) add(e Entry[F]) {
	t.entries[e.Key] = &e

	if e.Long != "" && e.Long != e.Key {
		t.alias[e.Long] = e.Key
	}
}

func (t table[F]) get(key string) (*Entry[F], bool) {
	if k, ok := t.alias[key]; ok {
		key = k
	}

	e, ok := t.entries[key]

	return e, ok
}

func (t table[F]) clone() table[F] {
	c := table[F]{entries: maps.Clone(t.entries), alias: maps.Clone(t.alias)}

	return c
}

func (t table[F]) names() []string {
	names := slices.Collect(maps.Keys(t.entries))
	names = append(names, slices.Collect(maps.Keys(t.alias))...)
	slices.Sort(names)

	return names
}

func (t table[F]) list() []Entry[F] {
	out := make([]Entry[F], 0, len(t.entries))
	for _, k := range slices.Sorted(maps.Keys(t.entries)) {
		out = append(out, *t.entries[k])
	}

	return out
}

// Registry maps construct, preprocessor and postprocessor keys to their
// factories. A key may also be invoked by its long form.
type Registry struct {
	constructs table[ConstructFactory]
	pre        table[PreprocessorFactory]
	post       table[PostprocessorFactory]
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		constructs: newTable[ConstructFactory](),
		pre:        newTable[PreprocessorFactory](),
		post:       newTable[PostprocessorFactory](),
	}
}

// Clone returns a copy of r that can be extended independently.
func (r *Registry) Clone() *Registry {
	return &Registry{
		constructs: r.constructs.clone(),
		pre:        r.pre.clone(),
		post:       r.post.clone(),
	}
}

// Construct registers a construct handler.
func (r *Registry) Construct(e Entry[ConstructFactory]) *Registry {
	r.constructs.add(e)

	return r
}

// Preprocessor registers a preprocessor handler.
func (r *Registry) Preprocessor(e Entry[PreprocessorFactory]) *Registry {
	r.pre.add(e)

	return r
}

// Postprocessor registers a postprocessor handler.
func (r *Registry) Postprocessor(e Entry[PostprocessorFactory]) *Registry {
	r.post.add(e)

	return r
}

// Color returns the highlight color of a construct key.
func (r *Registry) Color(key string) string {
	if e, ok := r.constructs.get(key); ok {
		return e.Color
	}

	return ""
}

// Help returns the description of a key or long form of the given token
// type.
func (r *Registry) Help(typ lang.Type, key string) (string, bool) {
	var (
		help string
		ok   bool
	)

	switch typ {
	case lang.TypeConstruct:
		var e *Entry[ConstructFactory]
		if e, ok = r.constructs.get(key); ok {
			help = e.Help
		}
	case lang.TypePreprocessor:
		var e *Entry[PreprocessorFactory]
		if e, ok = r.pre.get(key); ok {
			help = e.Help
		}
	case lang.TypePostprocessor:
		var e *Entry[PostprocessorFactory]
		if e, ok = r.post.get(key); ok {
			help = e.Help
		}
	}

	return help, ok
}

// Constructs lists the registered constructs ordered by key.
func (r *Registry) Constructs() []Entry[ConstructFactory] { return r.constructs.list() }

// Preprocessors lists the registered preprocessors ordered by key.
func (r *Registry) Preprocessors() []Entry[PreprocessorFactory] { return r.pre.list() }

// Postprocessors lists the registered postprocessors ordered by key.
func (r *Registry) Postprocessors() []Entry[PostprocessorFactory] { return r.post.list() }

// Names returns every key and long form of the given token type.
func (r *Registry) Names(typ lang.Type) []string {
	switch typ {
	case lang.TypeConstruct:
		return r.constructs.names()
	case lang.TypePreprocessor:
		return r.pre.names()
	case lang.TypePostprocessor:
		return r.post.names()
	default:
		return nil
	}
}

// Suggest returns registered names of the given type that fuzzily match key,
// best match first.
func (r *Registry) Suggest(typ lang.Type, key string, limit int) []string {
	if key == "" {
		return nil
	}

	var out []string

	for _, m := range fuzzy.Find(key, r.Names(typ)) {
		if len(out) == limit {
			break
		}

		out = append(out, m.Str)
	}

	return out
}

func (r *Registry) unknown(tok *lang.Token) error {
	err := lang.ErrUnknownKey.Detail(tok.Type.String() + " '" + tok.Value + "'")

	if s := r.Suggest(tok.Type, tok.Value, 3); len(s) > 0 {
		err = err.Detail("did you mean " + strings.Join(s, ", "))
	}

	return err.At(tok.Location).With(slog.String("key", tok.Value))
}

func (r *Registry) construct(tok *lang.Token) (*Entry[ConstructFactory], error) {
	if e, ok := r.constructs.get(tok.Value); ok {
		return e, nil
	}

	return nil, r.unknown(tok)
}

func (r *Registry) preprocessor(tok *lang.Token) (*Entry[PreprocessorFactory], error) {
	if e, ok := r.pre.get(tok.Value); ok {
		return e, nil
	}

	return nil, r.unknown(tok)
}

func (r *Registry) postprocessor(tok *lang.Token) (*Entry[PostprocessorFactory], error) {
	if e, ok := r.post.get(tok.Value); ok {
		return e, nil
	}

	return nil, r.unknown(tok)
}
