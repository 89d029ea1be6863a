package lang

import (
	"github.com/edwingeng/deque"
)

// Resolver reduces a construct token found inside a scope to its string
// result.
type Resolver func(tok *Token) (string, error)

// Evaluate reduces a scope, parameter argument or body token to a string.
//
// The operand and operator sequence is first parsed by a Pratt parser over
// the binding powers of the operator table, without resolving anything.
// The resulting tree is then reduced left to right, so construct side
// effects happen in source order regardless of operator precedence, and
// the branch a ternary does not select is never resolved. Operands with no
// operator between them are concatenated.
func Evaluate(scope *Token, resolve Resolver) (string, error) {
	if scope == nil {
		return "", nil
	}

	q := deque.NewDeque()

	var prev *item

	for _, c := range scope.Children {
		var it item

		switch c.Type {
		case TypeOperator:
			it = item{op: c.Value, isOp: true}

			// A minus with no left operand negates.
			if it.op == OpSubtract && (prev == nil || prev.isOp) {
				it.op = OpNegate
			}

		default:
			it = item{tok: c}
		}

		q.PushBack(it)
		prev = &it
	}

	if q.Empty() {
		return "", nil
	}

	p := &pratt{q: q, location: scope.Location}

	tree, err := p.expr(0)
	if err != nil {
		return "", err
	}

	if !q.Empty() {
		// Only a ':' without its '?' stops the outermost expression early.
		return "", ErrTernary.At(p.location)
	}

	return p.eval(tree, resolve)
}

type item struct {
	op   string
	tok  *Token
	isOp bool
}

// lbp is the left binding power of an item appearing after a complete
// operand.
func (it item) lbp() int {
	switch {
	case !it.isOp, isPrefix(it.op):
		return bindConcat
	case it.op == OpElse:
		return 0
	default:
		return binding[it.op]
	}
}

type nodeKind int

const (
	nodeLeaf nodeKind = iota
	nodeConcat
	nodeUnary
	nodeBinary
	nodeTernary
)

// node is an unevaluated expression. A leaf with a nil token reads as the
// empty string.
type node struct {
	kind nodeKind
	op   string
	tok  *Token
	args []*node
}

var blank = &node{kind: nodeLeaf}

type pratt struct {
	q        deque.Deque
	location string
}

func (p *pratt) pop() (item, bool) {
	if p.q.Empty() {
		return item{}, false
	}

	it, _ := p.q.PopFront().(item)

	return it, true
}

func (p *pratt) expr(rbp int) (*node, error) {
	it, ok := p.pop()
	if !ok {
		return nil, ErrMissingOperand.At(p.location)
	}

	return p.exprFrom(it, rbp)
}

func (p *pratt) exprFrom(it item, rbp int) (*node, error) {
	left, err := p.nud(it)
	if err != nil {
		return nil, err
	}

	for !p.q.Empty() {
		next, _ := p.q.Front().(item)
		if next.lbp() <= rbp {
			break
		}

		p.q.PopFront()

		left, err = p.led(next, left)
		if err != nil {
			return nil, err
		}
	}

	return left, nil
}

// nud handles an item in operand position.
func (p *pratt) nud(it item) (*node, error) {
	switch {
	case !it.isOp:
		return &node{kind: nodeLeaf, tok: it.tok}, nil

	case isPrefix(it.op):
		operand, err := p.expr(bindPrefix)
		if err != nil {
			return nil, err
		}

		return &node{kind: nodeUnary, op: it.op, args: []*node{operand}}, nil

	case it.op == OpElse:
		return nil, ErrTernary.At(p.location)

	default:
		// A binary operator with no left operand reads an empty left operand.
		return p.led(it, blank)
	}
}

// led handles an item following the complete operand left.
func (p *pratt) led(it item, left *node) (*node, error) {
	switch {
	case !it.isOp, isPrefix(it.op):
		right, err := p.exprFrom(it, bindConcat)
		if err != nil {
			return nil, err
		}

		return &node{kind: nodeConcat, args: []*node{left, right}}, nil

	case it.op == OpTernary:
		return p.ternary(left)

	case it.op == OpCoalesce && p.atEnd():
		// A trailing '??' falls back to the empty string.
		return &node{kind: nodeBinary, op: it.op, args: []*node{left, blank}}, nil

	default:
		right, err := p.expr(binding[it.op])
		if err != nil {
			return nil, err
		}

		return &node{kind: nodeBinary, op: it.op, args: []*node{left, right}}, nil
	}
}

// atEnd reports whether no operand can follow in the current expression.
func (p *pratt) atEnd() bool {
	if p.q.Empty() {
		return true
	}

	next, _ := p.q.Front().(item)

	return next.isOp && next.op == OpElse
}

func (p *pratt) ternary(cond *node) (*node, error) {
	yes, err := p.expr(0)
	if err != nil {
		return nil, err
	}

	if sep, ok := p.pop(); !ok || !sep.isOp || sep.op != OpElse {
		return nil, ErrTernary.At(p.location)
	}

	no, err := p.expr(bindTernary - 1)
	if err != nil {
		return nil, err
	}

	return &node{kind: nodeTernary, args: []*node{cond, yes, no}}, nil
}

func (p *pratt) eval(n *node, resolve Resolver) (string, error) {
	switch n.kind {
	case nodeLeaf:
		return p.leaf(n.tok, resolve)

	case nodeConcat:
		vals, err := p.evalAll(n.args, resolve)
		if err != nil {
			return "", err
		}

		return vals[0] + vals[1], nil

	case nodeUnary:
		operand, err := p.eval(n.args[0], resolve)
		if err != nil {
			return "", err
		}

		return p.unary(n.op, operand)

	case nodeBinary:
		vals, err := p.evalAll(n.args, resolve)
		if err != nil {
			return "", err
		}

		return p.binary(n.op, vals[0], vals[1])

	default:
		cond, err := p.eval(n.args[0], resolve)
		if err != nil {
			return "", err
		}

		b, ok := ParseBool(cond)
		if !ok {
			return "", ErrOperand.Detail(cond + "?").At(p.location)
		}

		if b {
			return p.eval(n.args[1], resolve)
		}

		return p.eval(n.args[2], resolve)
	}
}

func (p *pratt) evalAll(ns []*node, resolve Resolver) ([]string, error) {
	vals := make([]string, len(ns))

	for i, n := range ns {
		s, err := p.eval(n, resolve)
		if err != nil {
			return nil, err
		}

		vals[i] = s
	}

	return vals, nil
}

// leaf resolves a single operand token.
func (p *pratt) leaf(tok *Token, resolve Resolver) (string, error) {
	if tok == nil {
		return "", nil
	}

	switch tok.Type {
	case TypeScope, TypeBody, TypeArgument:
		return Evaluate(tok, resolve)

	case TypeConstruct:
		if resolve == nil {
			return "", ErrUnsupported.Detail("construct in constant scope").At(tok.Location)
		}

		return resolve(tok)

	default:
		return tok.Literal(), nil
	}
}

func (p *pratt) unary(op, operand string) (string, error) {
	switch op {
	case OpNot:
		if b, ok := ParseBool(operand); ok {
			return FormatValue(!b), nil
		}

	case OpNegate:
		if f, ok := ParseNumber(operand); ok {
			return FormatNumber(-f), nil
		}
	}

	return "", ErrOperand.Detail(op + operand).At(p.location)
}

func (p *pratt) binary(op, a, b string) (string, error) {
	s, err := Operate(op, a, b)
	if err != nil {
		return "", WrapError(err).At(p.location)
	}

	return s, nil
}

// Operate applies a binary operator to two operand strings.
func Operate(op, a, b string) (string, error) {
	switch op {
	case OpAdd, OpSubtract, OpMultiply, OpDivide:
		return arithmetic(op, a, b)

	case OpAnd, OpOr:
		x, xok := ParseBool(a)
		y, yok := ParseBool(b)

		if !xok || !yok {
			return "", ErrOperand.Detail(a + op + b)
		}

		if op == OpAnd {
			return FormatValue(x && y), nil
		}

		return FormatValue(x || y), nil

	case OpCoalesce:
		if v := ParseValue(a); v != nil {
			return FormatValue(v), nil
		}

		return FormatValue(ParseValue(b)), nil

	case OpLess, OpGreater, OpLessEqual, OpGreaterEqual:
		x, y := ParseValue(a), ParseValue(b)
		if x == nil {
			return FormatValue(false), nil
		}

		c := Compare(x, y)

		switch op {
		case OpLess:
			return FormatValue(c < 0), nil
		case OpGreater:
			return FormatValue(c > 0), nil
		case OpLessEqual:
			return FormatValue(c <= 0), nil
		default:
			return FormatValue(c >= 0), nil
		}

	case OpEqual:
		return FormatValue(Equal(ParseValue(a), ParseValue(b))), nil

	case OpNotEqual:
		return FormatValue(!Equal(ParseValue(a), ParseValue(b))), nil
	}

	return "", ErrOperand.Detail("unknown operator " + op)
}

func arithmetic(op, a, b string) (string, error) {
	x, xok := ParseNumber(a)
	y, yok := ParseNumber(b)

	if xok && yok {
		switch op {
		case OpAdd:
			return FormatNumber(x + y), nil
		case OpSubtract:
			return FormatNumber(x - y), nil
		case OpMultiply:
			return FormatNumber(x * y), nil
		default:
			return FormatNumber(x / y), nil
		}
	}

	if op == OpAdd || op == OpSubtract {
		if d, ok := ParseDate(a); ok {
			t, err := ApplyDateOp(d, op, b)
			if err != nil {
				return "", err
			}

			return t.Format(DateLayout), nil
		}

		if d, ok := ParseDate(b); ok {
			t, err := ApplyDateOp(d, op, a)
			if err != nil {
				return "", err
			}

			return t.Format(DateLayout), nil
		}
	}

	return "", ErrOperand.Detail(a + op + b)
}
