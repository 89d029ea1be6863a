package lang

import (
	"strconv"
	"strings"
)

// Type identifies the variant of a [Token].
type Type int

const (
	TypeGlobal        Type = iota // global
	TypeText                      // text
	TypeOperand                   // operand
	TypeOperator                  // operator
	TypeScope                     // scope
	TypeParameters                // parameters
	TypeArgument                  // argument
	TypeBody                      // body
	TypePreprocessor              // preprocessor
	TypePostprocessor             // postprocessor
	TypeConstruct                 // construct
)

var typeName = [...]string{
	TypeGlobal:        "global",
	TypeText:          "text",
	TypeOperand:       "operand",
	TypeOperator:      "operator",
	TypeScope:         "scope",
	TypeParameters:    "parameters",
	TypeArgument:      "argument",
	TypeBody:          "body",
	TypePreprocessor:  "preprocessor",
	TypePostprocessor: "postprocessor",
	TypeConstruct:     "construct",
}

func (t Type) String() string {
	if t >= 0 && int(t) < len(typeName) {
		return typeName[t]
	}

	return "Type(" + strconv.Itoa(int(t)) + ")"
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// IsKeyword reports whether tokens of this type carry a key and parameters.
func (t Type) IsKeyword() bool {
	return t == TypeConstruct || t == TypePreprocessor || t == TypePostprocessor
}

// Token is one node of the token tree produced by [Tokenize].
//
// Leaf tokens (text, operand, operator) carry only a Value. Scope-like tokens
// (scope, parameters, argument, body, global) carry Children. Keyword tokens
// carry their key in Value, optional Params, and for constructs, the
// preprocessor and postprocessor tokens and an optional Body.
type Token struct {
	Type     Type     `yaml:"type"`
	Value    string   `yaml:"value,omitempty"`
	Children []*Token `yaml:"children,omitempty"`
	Params   *Token   `yaml:"params,omitempty"`
	Pre      []*Token `yaml:"pre,omitempty"`
	Body     *Token   `yaml:"body,omitempty"`
	Post     []*Token `yaml:"post,omitempty"`

	// Code is the source rendering of the token, including highlight markers
	// when tokenized with [WithHighlight].
	Code string `yaml:"-"`
	// Location is the diagnostic snippet: the last raw characters consumed up
	// to the end of this token.
	Location string `yaml:"location,omitempty"`
}

// Literal returns the string value of a leaf token. An operand spelled
// "null" reads as the empty string.
func (t *Token) Literal() string {
	if t == nil {
		return ""
	}

	if t.Type == TypeOperand && t.Value == "null" {
		return ""
	}

	return t.Value
}

// Arguments returns the argument groups of a keyword's parameter list.
func (t *Token) Arguments() []*Token {
	if t == nil || t.Params == nil {
		return nil
	}

	return t.Params.Children
}

// String renders the token tree in a compact debugging form.
func (t *Token) String() string {
	var sb strings.Builder

	t.write(&sb)

	return sb.String()
}

func (t *Token) write(sb *strings.Builder) {
	if t == nil {
		return
	}

	sb.WriteString(t.Type.String())

	if t.Value != "" {
		sb.WriteByte(':')
		sb.WriteString(strconv.Quote(t.Value))
	}

	if t.Params != nil {
		sb.WriteByte(' ')
		t.Params.write(sb)
	}

	for _, p := range t.Pre {
		sb.WriteString(" %")
		p.write(sb)
	}

	if t.Body != nil {
		sb.WriteByte(' ')
		t.Body.write(sb)
	}

	for _, p := range t.Post {
		sb.WriteString(" @")
		p.write(sb)
	}

	if len(t.Children) > 0 {
		sb.WriteString("(")

		for i, c := range t.Children {
			if i > 0 {
				sb.WriteByte(' ')
			}

			c.write(sb)
		}

		sb.WriteString(")")
	}
}

func leaf(typ Type, value string) *Token {
	return &Token{Type: typ, Value: value, Code: value}
}
