package engine

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/ardnew/brace/cache"
	"github.com/ardnew/brace/lang"
	"github.com/ardnew/brace/log"
	"github.com/ardnew/brace/record"
)

// MaxDepth limits nested template expansion.
const MaxDepth = 64

// InlineConfig holds the settings of an enclosing settings construct.
type InlineConfig struct {
	// HTML encodes the output of data constructs.
	HTML bool
	// Cache overrides the caching policy of nested constructs if non-nil.
	Cache *CacheConfig
}

// CacheConfig is the caching policy of an [InlineConfig].
type CacheConfig struct {
	Enabled  bool
	Global   bool
	Duration time.Duration
}

// State is the evaluation context of one top-level parse. Constructs mutate
// it in place; a construct that switches the current record or locale
// restores it when its scope ends.
type State struct {
	// Record is the current record, or nil.
	Record *record.Record
	// Object is an opaque value supplied by the caller.
	Object any
	// Source resolves records. It is nil when parsing without a data source.
	Source record.Source
	// Org namespaces cross-call cache entries.
	Org string
	// Locale is the active locale id.
	Locale int
	// Templates maps template names to their source text.
	Templates map[string]string
	// Inline is the configuration of the innermost settings construct.
	Inline *InlineConfig

	ctx      context.Context
	engine   *Engine
	logger   log.Logger
	provided *record.Record
	slots    map[string]*Slot
	local    map[string]any
	store    cache.Store
	fallback time.Duration
	depth    int
}

func newState(ctx context.Context, e *Engine) *State {
	return &State{
		Source:    e.source,
		Locale:    record.DefaultLocale,
		Templates: map[string]string{},
		ctx:       ctx,
		engine:    e,
		logger:    e.logger,
		slots:     map[string]*Slot{},
		local:     map[string]any{},
		store:     e.store,
		fallback:  e.fallback,
	}
}

// Context returns the context of the parse.
func (s *State) Context() context.Context { return s.ctx }

// Now returns the current time of the engine clock.
func (s *State) Now() time.Time { return s.engine.now() }

// Fallback returns the lifetime of new cross-call cache entries.
func (s *State) Fallback() time.Duration { return s.fallback }

// Store assigns a concrete value to a memory slot.
func (s *State) Store(name string, v any) { s.slots[name] = Value(v) }

// StoreLazy assigns a producer to a memory slot. It runs at most once, when
// the slot is first read.
func (s *State) StoreLazy(name string, fn func(ctx context.Context) (any, error)) {
	s.slots[name] = Lazy(fn)
}

// Read returns the value of a memory slot, forcing it if it is lazy.
func (s *State) Read(name string) (any, bool, error) {
	slot, ok := s.slots[name]
	if !ok {
		return nil, false, nil
	}

	v, err := slot.Get(s.ctx)

	return v, true, err
}

// Cached returns the value stored under key, producing it with fn on a
// miss. Reads consult the parse-local entries first and the cross-call
// store second, whatever global says; global only picks where a produced
// value is written. Cross-call entries are namespaced by organisation and
// kept for the fallback duration. Without a cross-call store every entry is
// local.
func (s *State) Cached(key string, global bool, fn func() (any, error)) (any, error) {
	if v, ok := s.local[key]; ok {
		return v, nil
	}

	gkey := s.Org + "|" + key

	if s.store != nil {
		if v, ok := s.store.Get(gkey); ok {
			s.logger.TraceContext(s.ctx, "cache hit", slog.String("key", gkey))

			return v, nil
		}
	}

	v, err := fn()
	if err != nil {
		return nil, err
	}

	if global && s.store != nil {
		s.store.Set(gkey, v, s.fallback)
	} else {
		s.local[key] = v
	}

	return v, nil
}

// cached is the typed form of [State.Cached].
func cached[T any](c *Call, key string, fn func() (T, error)) (T, error) {
	if !c.CacheResult {
		return fn()
	}

	v, err := c.State.Cached(key, c.CacheGlobal, func() (any, error) { return fn() })
	if err != nil {
		var zero T

		return zero, err
	}

	t, _ := v.(T)

	return t, nil
}

// source returns the data source or an error if there is none.
func (s *State) source() (record.Source, error) {
	if s.Source == nil {
		return nil, ErrNoSource
	}

	return s.Source, nil
}

// render tokenizes and evaluates template text.
func (s *State) render(src string) (string, error) {
	if s.depth >= MaxDepth {
		return "", ErrDepth.Detail(src)
	}

	tok, err := lang.Tokenize(src)
	if err != nil {
		return "", err
	}

	s.depth++
	defer func() { s.depth-- }()

	return s.process(tok)
}

// process reduces a global token to its output text.
func (s *State) process(tok *lang.Token) (string, error) {
	var sb strings.Builder

	for _, c := range tok.Children {
		switch c.Type {
		case lang.TypeConstruct:
			out, err := s.construct(c)
			if err != nil {
				return "", err
			}

			sb.WriteString(out)

		default:
			sb.WriteString(c.Literal())
		}
	}

	return sb.String(), nil
}

// eval reduces a scope, argument or body token.
func (s *State) eval(tok *lang.Token) (string, error) {
	return lang.Evaluate(tok, s.construct)
}

// args evaluates the parameter list of a keyword token.
func (s *State) args(tok *lang.Token) ([]string, error) {
	arguments := tok.Arguments()
	if len(arguments) == 0 {
		return nil, nil
	}

	out := make([]string, len(arguments))

	for i, a := range arguments {
		v, err := s.eval(a)
		if err != nil {
			return nil, err
		}

		out[i] = v
	}

	return out, nil
}

// construct resolves one construct token.
func (s *State) construct(tok *lang.Token) (string, error) {
	if err := s.ctx.Err(); err != nil {
		return "", err
	}

	s.logger.TraceContext(s.ctx, "construct",
		slog.String("key", tok.Value),
		slog.Int("depth", s.depth),
	)

	c, err := s.newCall(tok)
	if err != nil {
		return "", err
	}

	out, err := c.run()
	if err != nil {
		return "", err
	}

	return strings.Join(out, ""), nil
}
