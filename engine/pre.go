package engine

import (
	"strconv"
	"strings"

	"github.com/ardnew/brace/lang"
	"github.com/ardnew/brace/record"
)

// passBody is embedded by preprocessors that act only as modifiers.
type passBody struct{}

func (passBody) Execute(_ *Call, body string) (string, error) { return body, nil }

// filterPre restricts the records of a query construct to those matching
// every field=value condition.
type filterPre struct {
	passBody
	args []string
}

func (p filterPre) Apply(_ *Call, target any) (bool, error) {
	q, ok := target.(Query)
	if !ok || len(p.args) == 0 {
		return false, nil
	}

	conds := make([]record.Condition, 0, len(p.args))

	for _, a := range p.args {
		f, v, ok := strings.Cut(a, "=")
		if !ok || strings.TrimSpace(f) == "" {
			return false, ErrParam.Detail("filter condition " + a)
		}

		conds = append(conds, record.Condition{Field: strings.TrimSpace(f), Value: v})
	}

	q.SetFilter(conds)

	return true, nil
}

// distinctPre sets the distinct-by fields of a query construct.
type distinctPre struct {
	passBody
	args []string
}

func (p distinctPre) Apply(_ *Call, target any) (bool, error) {
	q, ok := target.(Query)
	if !ok || len(p.args) == 0 {
		return false, nil
	}

	q.SetDistinct(uniqueFields(p.args))

	return true, nil
}

// orderPre sets the order-by fields of a query construct. A field prefixed
// with '#' sorts descending.
type orderPre struct {
	passBody
	args []string
}

func (p orderPre) Apply(_ *Call, target any) (bool, error) {
	q, ok := target.(Query)
	if !ok || len(p.args) == 0 {
		return false, nil
	}

	q.SetOrder(uniqueFields(p.args))

	return true, nil
}

// cachePre enables or disables caching of the construct's data source
// calls, and with global, shares them across parses.
type cachePre struct{ params Params }

func (p cachePre) Execute(c *Call, body string) (string, error) {
	if b, ok := lang.ParseBool(p.params.Arg(0)); ok {
		c.CacheResult = b
		c.cacheSet = true
	}

	if p.params.Has("global") {
		c.CacheGlobal = true
		c.cacheSet = true
	}

	return body, nil
}

// storePre stores the body in a memory slot.
type storePre struct{ params Params }

func (p storePre) Execute(c *Call, body string) (string, error) {
	name := p.params.Arg(0)
	if name == "" {
		return "", ErrParam.Detail("store slot name")
	}

	c.State.Store(name, body)

	return body, nil
}

// readPre replaces the body with the content of a memory slot.
type readPre struct{ params Params }

func (p readPre) Execute(c *Call, _ string) (string, error) {
	v, _, err := c.State.Read(p.params.Arg(0))
	if err != nil {
		return "", err
	}

	return strings.Join(slotStrings(v), ""), nil
}

// localPre switches the locale for the construct, or for the rest of the
// parse with global.
type localPre struct {
	passBody
	params Params
}

func (p localPre) Apply(c *Call, target any) (bool, error) {
	if _, ok := target.(Construct); !ok || len(p.params.Args) == 0 {
		return false, nil
	}

	lcid, err := strconv.Atoi(strings.TrimSpace(p.params.Arg(0)))
	if err != nil {
		return false, ErrParam.Detail("locale id " + p.params.Arg(0))
	}

	if !p.params.Has("global") {
		prev := c.State.Locale
		c.Defer(func() { c.State.Locale = prev })
	}

	c.State.Locale = lcid

	return true, nil
}

// replacePre replaces matches in the body.
type replacePre struct{ params Params }

func (p replacePre) Execute(_ *Call, body string) (string, error) {
	r, err := newReplacer(p.params)
	if err != nil {
		return "", err
	}

	return r.replace(body), nil
}

// slotStrings renders a memory slot value as a result list.
func slotStrings(v any) []string {
	switch v := v.(type) {
	case nil:
		return nil
	case string:
		return []string{v}
	case []string:
		return v
	case *record.Record:
		return []string{v.Ref.String()}
	case []*record.Record:
		out := make([]string, len(v))
		for i, r := range v {
			out[i] = r.Ref.String()
		}

		return out
	default:
		return []string{record.FormatField(record.Normalize(v))}
	}
}
