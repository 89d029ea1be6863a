package engine

import (
	"strings"

	"github.com/expr-lang/expr"

	"github.com/ardnew/brace/record"
)

// isSimpleMap reports whether s looks like a map literal.
func isSimpleMap(s string) bool {
	s = strings.TrimSpace(s)

	return strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}")
}

// parseSimpleMap evaluates a constant map literal such as
//
//	{html: true, cache: {enabled: false, dur: 30}}
//
// Keys are identifiers or quoted strings and values are constants, lists or
// nested maps. No environment is visible to the expression.
func parseSimpleMap(s string) (map[string]any, error) {
	program, err := expr.Compile(strings.TrimSpace(s))
	if err != nil {
		return nil, ErrParam.Detail("map literal").Wrap(err)
	}

	out, err := expr.Run(program, nil)
	if err != nil {
		return nil, ErrParam.Detail("map literal").Wrap(err)
	}

	m, ok := out.(map[string]any)
	if !ok {
		return nil, ErrParam.Detail("not a map literal: " + s)
	}

	for k, v := range m {
		m[k] = record.Normalize(v)
	}

	return m, nil
}

// mapString renders a map value as text.
func mapString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}

	return record.FormatField(record.Normalize(v))
}
