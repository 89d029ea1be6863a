package engine

import (
	"context"
	"html"
	"log/slog"
	"slices"

	"github.com/ardnew/brace/lang"
	"github.com/ardnew/brace/record"
)

// Call is one occurrence of a construct together with its processors. It is
// passed to every handler of the occurrence.
type Call struct {
	State *State
	Token *lang.Token
	// Args are the evaluated construct parameters.
	Args []string

	// CacheResult enables caching of data source calls. It is on by default.
	CacheResult bool
	// CacheGlobal stores cached results in the cross-call store.
	CacheGlobal bool

	construct Construct
	pre       []Preprocessor
	post      []Postprocessor

	queue    []Modifier
	cleanup  []func()
	cacheSet bool
}

// newCall evaluates the parameters of the construct and its processors, in
// that order, and instantiates their handlers.
func (s *State) newCall(tok *lang.Token) (*Call, error) {
	reg := s.engine.registry

	entry, err := reg.construct(tok)
	if err != nil {
		return nil, err
	}

	c := &Call{State: s, Token: tok, CacheResult: true}

	if c.Args, err = s.args(tok); err != nil {
		return nil, err
	}

	for _, p := range tok.Pre {
		e, err := reg.preprocessor(p)
		if err != nil {
			return nil, err
		}

		args, err := s.args(p)
		if err != nil {
			return nil, err
		}

		c.pre = append(c.pre, e.New(Params{Key: e.Key, Args: args}))
	}

	for _, p := range tok.Post {
		e, err := reg.postprocessor(p)
		if err != nil {
			return nil, err
		}

		args, err := s.args(p)
		if err != nil {
			return nil, err
		}

		c.post = append(c.post, e.New(Params{Key: e.Key, Args: args}))
	}

	c.construct = entry.New(Params{Key: entry.Key, Args: c.Args})

	return c, nil
}

// Context returns the context of the parse.
func (c *Call) Context() context.Context { return c.State.ctx }

// Defer registers fn to run when the occurrence completes, whether or not it
// failed. Deferred functions run in reverse order of registration.
func (c *Call) Defer(fn func()) { c.cleanup = append(c.cleanup, fn) }

// Params returns the evaluated construct parameters.
func (c *Call) Params() Params { return Params{Key: c.Token.Value, Args: c.Args} }

// EvalBody evaluates the body of the construct. [Scoped] constructs call it
// once per scope they open.
func (c *Call) EvalBody() (string, error) {
	if c.Token.Body == nil {
		return "", nil
	}

	return c.State.eval(c.Token.Body)
}

// HasBody reports whether the construct was written with a body.
func (c *Call) HasBody() bool { return c.Token.Body != nil }

// Record returns the current record or [ErrNoRecord].
func (c *Call) Record() (*record.Record, error) {
	if c.State.Record == nil {
		return nil, ErrNoRecord
	}

	return c.State.Record, nil
}

// output applies the inline output settings to a data value.
func (c *Call) output(s string) string {
	if in := c.State.Inline; in != nil && in.HTML {
		return html.EscapeString(s)
	}

	return s
}

// run executes the occurrence:
//
//  1. evaluate the body unless the construct is [Scoped]
//  2. [PreExecutor.PreExecute]
//  3. preprocessors in source order
//  4. inline cache settings
//  5. the construct
//  6. postprocessors in source order
//
// Queued modifiers are applied before each Modifiable handler executes.
// Deferred cleanup and cache lifetime restoration happen last.
func (c *Call) run() (out []string, err error) {
	s := c.State
	fallback := s.fallback

	defer func() {
		for _, fn := range slices.Backward(c.cleanup) {
			fn()
		}

		s.fallback = fallback

		if err != nil {
			e := lang.WrapError(err)
			if e.Location() == "" {
				e = e.At(c.Token.Location).With(slog.String("key", c.Token.Value))
			}

			err = e
		}
	}()

	var body string

	if _, ok := c.construct.(Scoped); !ok {
		if body, err = c.EvalBody(); err != nil {
			return nil, err
		}
	}

	if p, ok := c.construct.(PreExecutor); ok {
		if body, err = p.PreExecute(c, body); err != nil {
			return nil, err
		}
	}

	c.queue = c.queue[:0]

	for _, p := range c.pre {
		if err = c.modify(p); err != nil {
			return nil, err
		}

		if m, ok := p.(Modifier); ok {
			c.queue = append(c.queue, m)
		}

		if body, err = p.Execute(c, body); err != nil {
			return nil, err
		}
	}

	if err = c.modify(c.construct); err != nil {
		return nil, err
	}

	c.applyInline()

	if out, err = c.construct.Execute(c, body); err != nil {
		return nil, err
	}

	c.queue = c.queue[:0]

	for _, p := range c.post {
		if err = c.modify(p); err != nil {
			return nil, err
		}

		if m, ok := p.(Modifier); ok {
			c.queue = append(c.queue, m)
		}

		if out, err = p.Execute(c, out); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// modify applies the queued modifiers to target if it accepts them.
// Modifiers that do not apply stay queued.
func (c *Call) modify(target any) error {
	if _, ok := target.(Construct); !ok {
		if _, ok := target.(Modifiable); !ok {
			return nil
		}
	}

	kept := c.queue[:0]

	for _, m := range c.queue {
		applied, err := m.Apply(c, target)
		if err != nil {
			return err
		}

		if !applied {
			kept = append(kept, m)
		}
	}

	c.queue = kept

	return nil
}

// applyInline applies the cache policy of the enclosing settings construct.
// An explicit cache preprocessor takes precedence over the enabled and
// global flags.
func (c *Call) applyInline() {
	in := c.State.Inline
	if in == nil || in.Cache == nil {
		return
	}

	if !c.cacheSet {
		c.CacheResult = in.Cache.Enabled
		c.CacheGlobal = in.Cache.Global
	}

	if in.Cache.Duration > 0 {
		c.State.fallback = in.Cache.Duration
	}
}
