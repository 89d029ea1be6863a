package lang

import (
	"slices"
	"strings"
)

// Operator symbols recognized inside scopes, parameter lists and bodies.
const (
	OpNot          = "!"
	OpNegate       = "~"
	OpMultiply     = "*"
	OpDivide       = "/"
	OpAdd          = "+"
	OpSubtract     = "-"
	OpGreater      = ">"
	OpLess         = "<"
	OpGreaterEqual = ">="
	OpLessEqual    = "<="
	OpEqual        = "=="
	OpNotEqual     = "!="
	OpAnd          = "&&"
	OpOr           = "||"
	OpCoalesce     = "??"
	OpTernary      = "?"
	OpElse         = ":"
)

const singleOperators = "!+-*/?:<>~"

var doubleOperators = []string{
	OpOr, OpAnd, OpCoalesce, OpGreaterEqual, OpLessEqual, OpNotEqual, OpEqual,
}

// Binding powers. Adjacent operands with no operator between them are
// concatenated with the lowest binding power.
const (
	bindConcat  = 1
	bindTernary = 50
	bindPrefix  = 200
)

var binding = map[string]int{
	OpMultiply:     100,
	OpDivide:       100,
	OpAdd:          99,
	OpSubtract:     99,
	OpGreater:      75,
	OpLess:         75,
	OpGreaterEqual: 75,
	OpLessEqual:    75,
	OpNotEqual:     74,
	OpEqual:        74,
	OpAnd:          65,
	OpOr:           64,
	OpCoalesce:     57,
	OpTernary:      bindTernary,
	OpElse:         bindTernary,
}

func isSingleOperator(r rune) bool {
	return strings.ContainsRune(singleOperators, r)
}

func isDoubleOperator(s string) bool {
	return slices.Contains(doubleOperators, s)
}

func isPrefix(op string) bool {
	return op == OpNot || op == OpNegate
}
