package engine

import "github.com/ardnew/brace/record"

// Construct is the handler of one construct occurrence. It receives the
// evaluated body (or the empty string if it is [Scoped]) and returns zero or
// more results, which are joined without separator.
type Construct interface {
	Execute(c *Call, body string) ([]string, error)
}

// Preprocessor runs before its construct and may rewrite the body.
type Preprocessor interface {
	Execute(c *Call, body string) (string, error)
}

// Postprocessor runs after its construct over the full result list.
type Postprocessor interface {
	Execute(c *Call, results []string) ([]string, error)
}

// PreExecutor is implemented by constructs that rewrite their body before
// the preprocessors run.
type PreExecutor interface {
	PreExecute(c *Call, body string) (string, error)
}

// Modifier is implemented by preprocessors and postprocessors that adjust a
// later handler of the same construct. Apply reports false if target is not
// the kind of handler it modifies, in which case the modifier stays queued
// for the next target.
type Modifier interface {
	Apply(c *Call, target any) (bool, error)
}

// Modifiable is implemented by preprocessors and postprocessors that accept
// queued modifiers. Constructs always accept them.
type Modifiable interface {
	Modifiable()
}

// Scoped is implemented by constructs that evaluate their own body, possibly
// more than once, with [Call.EvalBody].
type Scoped interface {
	Scoped()
}

// Query is implemented by constructs that select records and accept the
// distinct, order and filter modifiers.
type Query interface {
	SetDistinct(fields []string)
	SetOrder(fields []string)
	SetFilter(conds []record.Condition)
}

// queryOptions is the common implementation of [Query].
type queryOptions struct {
	distinct []string
	order    []string
	filter   []record.Condition
}

func (q *queryOptions) SetDistinct(fields []string)        { q.distinct = fields }
func (q *queryOptions) SetOrder(fields []string)           { q.order = fields }
func (q *queryOptions) SetFilter(conds []record.Condition) { q.filter = conds }
