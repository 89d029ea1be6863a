package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/ardnew/brace/cache"
	"github.com/ardnew/brace/lang"
	"github.com/ardnew/brace/log"
	"github.com/ardnew/brace/record"
)

// DefaultFallbackDuration is the lifetime of cross-call cache entries unless
// configured otherwise.
const DefaultFallbackDuration = time.Minute

// Engine evaluates templates. It is safe for concurrent use provided its
// data source and store are; each parse gets its own [State].
type Engine struct {
	registry *Registry
	source   record.Source
	store    cache.Store
	logger   log.Logger
	fallback time.Duration
	now      func() time.Time
}

// Option configures an [Engine].
type Option func(*Engine)

// WithRegistry replaces [DefaultRegistry].
func WithRegistry(r *Registry) Option {
	return func(e *Engine) { e.registry = r }
}

// WithSource sets the data source records are resolved from.
func WithSource(src record.Source) Option {
	return func(e *Engine) { e.source = src }
}

// WithStore sets the cross-call cache. Without one, global caching falls
// back to the per-parse cache.
func WithStore(s cache.Store) Option {
	return func(e *Engine) { e.store = s }
}

// WithLogger sets the logger. The zero logger discards everything.
func WithLogger(l log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithFallbackDuration sets the default lifetime of cross-call cache
// entries.
func WithFallbackDuration(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.fallback = d
		}
	}
}

// WithClock sets the time source of the date construct.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New returns an engine using [DefaultRegistry] and no data source.
func New(opts ...Option) *Engine {
	e := &Engine{
		registry: DefaultRegistry,
		fallback: DefaultFallbackDuration,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Registry returns the handlers of the engine.
func (e *Engine) Registry() *Registry { return e.registry }

// ParseOption configures the [State] of one parse.
type ParseOption func(*State)

// WithRecord sets the current record. Its fields are used as given; missing
// fields are retrieved from the data source.
func WithRecord(r *record.Record) ParseOption {
	return func(s *State) {
		s.Record = r
		s.provided = r
	}
}

// WithReference sets the current record to the referenced one. Its fields
// are retrieved on demand.
func WithReference(ref record.Ref) ParseOption {
	return func(s *State) {
		if !ref.IsZero() {
			s.Record = record.New(ref)
		}
	}
}

// WithOrganization namespaces cross-call cache entries.
func WithOrganization(org string) ParseOption {
	return func(s *State) { s.Org = org }
}

// WithContextObject attaches an opaque value to the parse.
func WithContextObject(v any) ParseOption {
	return func(s *State) { s.Object = v }
}

// WithLocale sets the initial locale id.
func WithLocale(lcid int) ParseOption {
	return func(s *State) { s.Locale = lcid }
}

// Parse evaluates a template. The first failing construct aborts the parse.
func (e *Engine) Parse(ctx context.Context, template string, opts ...ParseOption) (string, error) {
	s := newState(ctx, e)

	for _, opt := range opts {
		opt(s)
	}

	start := e.now()

	tok, err := lang.Tokenize(template)
	if err != nil {
		return "", err
	}

	out, err := s.process(tok)
	if err != nil {
		return "", err
	}

	e.logger.DebugContext(ctx, "parsed",
		slog.Int("size", len(template)),
		slog.Duration("elapsed", e.now().Sub(start)),
	)

	return out, nil
}

// Highlight tokenizes a template without evaluating it and returns its
// source with highlight markers around each construct.
func (e *Engine) Highlight(template string) (string, error) {
	tok, err := lang.Tokenize(template, lang.WithHighlight(e.registry.Color))
	if err != nil {
		return "", err
	}

	return tok.Code, nil
}

// HighlightHTML renders the highlighted template as HTML.
func (e *Engine) HighlightHTML(template string) (string, error) {
	code, err := e.Highlight(template)
	if err != nil {
		return "", err
	}

	return lang.RenderHTML(code), nil
}

// HighlightANSI renders the highlighted template for a terminal.
func (e *Engine) HighlightANSI(template string) (string, error) {
	code, err := e.Highlight(template)
	if err != nil {
		return "", err
	}

	return lang.RenderANSI(code), nil
}

// Parse evaluates a template against a record with a new engine.
func Parse(ctx context.Context, template string, rec *record.Record, src record.Source, org string) (string, error) {
	return New(WithSource(src)).Parse(ctx, template, WithRecord(rec), WithOrganization(org))
}

// ParseReference evaluates a template against a referenced record with a
// new engine.
func ParseReference(ctx context.Context, template string, ref record.Ref, src record.Source, org string) (string, error) {
	return New(WithSource(src)).Parse(ctx, template, WithReference(ref), WithOrganization(org))
}

// HighlightCode renders a template as highlighted HTML using the built-in
// construct colors.
func HighlightCode(template string) (string, error) {
	return New().HighlightHTML(template)
}
