package lang

import (
	"strings"
	"unicode"
)

// specials terminate a keyword's key and are never part of a literal outside
// of escapes.
const specials = "`{}@%|()\\"

// locationWidth is the number of trailing raw characters kept in a token's
// diagnostic location.
const locationWidth = 100

func isSpecial(r rune) bool { return strings.ContainsRune(specials, r) }

// TokenizeOption configures [Tokenize].
type TokenizeOption func(*tokenizer)

// WithHighlight enables highlight markers in each token's Code. The color
// function returns the hex RGB color of a construct key, or the empty string
// to leave it uncolored.
func WithHighlight(color func(key string) string) TokenizeOption {
	return func(z *tokenizer) {
		z.highlight = true
		z.color = color
	}
}

// Tokenize converts a template into its token tree. The returned token is
// always of type [TypeGlobal].
func Tokenize(src string, opts ...TokenizeOption) (*Token, error) {
	z := &tokenizer{src: []rune(src)}

	for _, opt := range opts {
		opt(z)
	}

	if z.color == nil {
		z.color = func(string) string { return "" }
	}

	return z.global()
}

type tokenizer struct {
	src       []rune
	pos       int
	highlight bool
	color     func(key string) string
}

func (z *tokenizer) next() (rune, bool) {
	if z.pos >= len(z.src) {
		return 0, false
	}

	r := z.src[z.pos]
	z.pos++

	return r, true
}

func (z *tokenizer) peek() (rune, bool) {
	if z.pos >= len(z.src) {
		return 0, false
	}

	return z.src[z.pos], true
}

// location returns the last raw characters consumed.
func (z *tokenizer) location() string {
	if z.pos <= locationWidth {
		return string(z.src[:z.pos])
	}

	return "[...]" + string(z.src[z.pos-locationWidth:z.pos])
}

// operator consumes and returns the operator starting with r, preferring a
// two-character operator. It returns the empty string if r starts none.
func (z *tokenizer) operator(r rune) string {
	if n, ok := z.peek(); ok {
		if pair := string([]rune{r, n}); isDoubleOperator(pair) {
			z.pos++

			return pair
		}
	}

	if isSingleOperator(r) {
		return string(r)
	}

	return ""
}

func (z *tokenizer) fail(err *Error) *Error {
	return err.At(z.location())
}

// frame is the per-token character loop state.
type frame struct {
	z    *tokenizer
	code strings.Builder
	buf  strings.Builder

	escape  bool
	discard bool // drop escaped characters instead of buffering them
}

func (f *frame) raw(r rune) { f.code.WriteRune(r) }

func (f *frame) literal(r rune) {
	f.code.WriteRune(r)
	f.buf.WriteRune(r)
}

func (f *frame) take() string {
	s := f.buf.String()
	f.buf.Reset()

	return s
}

// run feeds unescaped characters to step until step reports the token is
// complete. It returns false if the input ended first.
//
// A backtick toggles escape mode, in which every character up to the next
// backtick is literal. A backslash makes the next character literal.
func (f *frame) run(step func(r rune) (bool, error)) (bool, error) {
	for {
		r, ok := f.z.next()
		if !ok {
			return false, nil
		}

		if f.escape {
			f.raw(r)

			switch {
			case r == '`':
				f.escape = false
			case !f.discard:
				f.buf.WriteRune(r)
			}

			continue
		}

		switch r {
		case '\\':
			f.raw(r)

			if n, ok := f.z.next(); ok {
				f.literal(n)
			}

			continue

		case '`':
			f.raw(r)
			f.escape = true

			continue
		}

		done, err := step(r)
		if err != nil || done {
			return done, err
		}
	}
}

func (z *tokenizer) global() (*Token, error) {
	tok := &Token{Type: TypeGlobal}
	f := &frame{z: z}

	flush := func() {
		if f.buf.Len() > 0 {
			tok.Children = append(tok.Children, leaf(TypeText, f.take()))
		}
	}

	_, err := f.run(func(r rune) (bool, error) {
		if r != '{' {
			f.literal(r)

			return false, nil
		}

		flush()

		c, err := z.keyword(TypeConstruct)
		if err != nil {
			return false, err
		}

		tok.Children = append(tok.Children, c)
		f.code.WriteString("{" + c.Code + "}")

		return false, nil
	})
	if err != nil {
		return nil, err
	}

	flush()

	tok.Code = f.code.String()
	tok.Location = z.location()

	return tok, nil
}

// scope tokenizes a parenthesized scope, a parameter list or a construct
// body. The opening delimiter has already been consumed by the caller; the
// closing delimiter is consumed here but left out of the token's Code.
func (z *tokenizer) scope(typ Type) (*Token, error) {
	tok := &Token{Type: typ}
	f := &frame{z: z}

	var (
		arg   *Token
		comma bool
	)

	add := func(c *Token) {
		if typ != TypeParameters {
			tok.Children = append(tok.Children, c)

			return
		}

		if arg == nil {
			arg = &Token{Type: TypeArgument}
		}

		arg.Children = append(arg.Children, c)
	}

	closeArg := func() {
		if arg == nil {
			return
		}

		var code strings.Builder
		for _, c := range arg.Children {
			code.WriteString(c.Code)
		}

		arg.Code = code.String()
		arg.Location = z.location()
		tok.Children = append(tok.Children, arg)
		arg = nil
	}

	flush := func(force bool) {
		if f.buf.Len() > 0 || force {
			add(leaf(TypeOperand, f.take()))
		}
	}

	ok, err := f.run(func(r rune) (bool, error) {
		afterComma := comma
		comma = false

		switch {
		case r == '{':
			flush(false)

			c, err := z.keyword(TypeConstruct)
			if err != nil {
				return false, err
			}

			add(c)
			f.code.WriteString("{" + c.Code + "}")

		case r == '(':
			flush(false)

			s, err := z.scope(TypeScope)
			if err != nil {
				return false, err
			}

			add(s)
			f.code.WriteString("(" + s.Code + ")")

		case r == ')':
			if typ == TypeBody {
				return false, z.fail(ErrUnbalanced)
			}

			flush(typ == TypeParameters && afterComma)
			closeArg()

			return true, nil

		case r == ',' && typ == TypeParameters:
			flush(true)
			closeArg()
			f.raw(r)

			comma = true

		case unicode.IsSpace(r):
			f.raw(r)

			comma = afterComma

		default:
			if op := z.operator(r); op != "" {
				flush(false)
				add(leaf(TypeOperator, op))
				f.code.WriteString(op)

				return false, nil
			}

			if r == '|' && typ == TypeBody {
				flush(false)

				return true, nil
			}

			f.literal(r)
		}

		return false, nil
	})
	if err != nil {
		return nil, err
	}

	if !ok {
		closing := ")"
		if typ == TypeBody {
			closing = "|"
		}

		return nil, z.fail(ErrUnterminated.Detail("missing '" + closing + "'"))
	}

	tok.Code = f.code.String()
	tok.Location = z.location()

	return tok, nil
}

// keyword tokenizes a construct, preprocessor or postprocessor. The opening
// delimiter has already been consumed by the caller.
func (z *tokenizer) keyword(typ Type) (*Token, error) {
	var end rune

	switch typ {
	case TypePreprocessor:
		end = '%'
	case TypePostprocessor:
		end = '@'
	default:
		end = '}'
	}

	tok := &Token{Type: typ}
	f := &frame{z: z, discard: true}
	defined := false

	// nested tokenizes a delimited child, writing its rendering between the
	// delimiters into this keyword's code.
	nested := func(open, close rune, child func() (*Token, error)) (*Token, error) {
		if f.buf.Len() > 0 {
			return nil, z.fail(ErrPosition.Detail("previous characters are in an invalid position"))
		}

		c, err := child()
		if err != nil {
			return nil, err
		}

		f.raw(open)
		f.code.WriteString(c.Code)
		f.raw(close)

		return c, nil
	}

	ok, err := f.run(func(r rune) (bool, error) {
		if unicode.IsSpace(r) {
			f.raw(r)

			return false, nil
		}

		if !defined {
			if !isSpecial(r) {
				f.literal(r)

				return false, nil
			}

			tok.Value = f.take()
			if tok.Value == "" {
				return false, z.fail(ErrKeyMissing)
			}

			defined = true
			f.discard = false
		}

		switch {
		case r == end:
			if tail := f.take(); tail != "" && tail != tok.Value {
				return false, z.fail(ErrClosure.Detail(tail + " should be " + tok.Value))
			}

			return true, nil

		case r == '(':
			if tok.Params != nil {
				return false, z.fail(ErrPosition.Detail("cannot define parameters at this position"))
			}

			p, err := nested('(', ')', func() (*Token, error) { return z.scope(TypeParameters) })
			if err != nil {
				return false, err
			}

			tok.Params = p

		case r == '%' && typ == TypeConstruct:
			if tok.Body != nil {
				return false, z.fail(ErrPosition.Detail("can only define a postprocessor or end keyword at this position"))
			}

			p, err := nested('%', '%', func() (*Token, error) { return z.keyword(TypePreprocessor) })
			if err != nil {
				return false, err
			}

			tok.Pre = append(tok.Pre, p)

		case r == '@' && typ == TypeConstruct:
			p, err := nested('@', '@', func() (*Token, error) { return z.keyword(TypePostprocessor) })
			if err != nil {
				return false, err
			}

			tok.Post = append(tok.Post, p)

		case r == '|' && typ == TypeConstruct:
			if tok.Body != nil {
				return false, z.fail(ErrPosition.Detail("can only define a postprocessor or end keyword at this position"))
			}

			b, err := nested('|', '|', func() (*Token, error) { return z.scope(TypeBody) })
			if err != nil {
				return false, err
			}

			tok.Body = b

		case !isSpecial(r):
			f.literal(r)

		default:
			return false, z.fail(ErrPosition.Detail("unexpected '" + string(r) + "'"))
		}

		return false, nil
	})
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, z.fail(ErrUnterminated.Detail("missing '" + string(end) + "'"))
	}

	code := f.code.String()

	if z.highlight && typ == TypeConstruct {
		if first, last := firstRune(code), lastRune(code); first != last {
			code += ghost(string(first))
		}

		code = colorize(code, z.color(tok.Value))
	}

	tok.Code = code
	tok.Location = z.location()

	return tok, nil
}

func firstRune(s string) rune {
	for _, r := range s {
		return r
	}

	return 0
}

func lastRune(s string) rune {
	rs := []rune(s)
	if len(rs) == 0 {
		return 0
	}

	return rs[len(rs)-1]
}
