package engine

import (
	"context"
	"slices"
	"strconv"

	"github.com/ardnew/brace/record"
)

// Dictionary records are of entity DictionaryEntity, keyed by their name
// field. The value field holds the default text and value_<lcid> fields
// hold translations.
const (
	DictionaryEntity = "keyvalue"
	DictionaryValue  = "value"
)

// retrieveMultiple runs a query through the call cache.
func retrieveMultiple(c *Call, q record.Query) ([]*record.Record, error) {
	src, err := c.State.source()
	if err != nil {
		return nil, err
	}

	return cached(c, "RetrieveMultiple|"+q.String(), func() ([]*record.Record, error) {
		return src.RetrieveMultiple(c.Context(), q)
	})
}

// dictionaryConstruct is the 'v' construct: the localized value of the
// dictionary entry named by its body.
type dictionaryConstruct struct{}

func (dictionaryConstruct) Execute(c *Call, body string) ([]string, error) {
	if body == "" {
		return nil, ErrMissingBody
	}

	recs, err := retrieveMultiple(c, record.Query{
		Entity: DictionaryEntity,
		Where:  []record.Condition{{Field: record.NameField, Value: body}},
	})
	if err != nil || len(recs) == 0 {
		return nil, err
	}

	rec := recs[0]

	if lcid := c.State.Locale; lcid != record.DefaultLocale {
		if s := rec.Display(DictionaryValue + "_" + strconv.Itoa(lcid)); s != "" {
			return []string{c.output(s)}, nil
		}
	}

	return []string{c.output(rec.Display(DictionaryValue))}, nil
}

// configConstruct is the 'g' construct: a field of the generic settings
// record. Choice values are localized.
type configConstruct struct{}

func (configConstruct) Execute(c *Call, body string) ([]string, error) {
	if body == "" {
		return nil, ErrMissingBody
	}

	src, err := c.State.source()
	if err != nil {
		return nil, err
	}

	settings, err := cached(c, "Settings", func() (*record.Record, error) {
		return src.Settings(c.Context())
	})
	if err != nil {
		return nil, err
	}

	v, _ := settings.Get(body)

	if opt, ok := v.(record.Option); ok && c.State.Locale != record.DefaultLocale {
		s, err := optionLabel(c, settings.Entity, body, opt.Value)
		if err != nil {
			return nil, err
		}

		return []string{c.output(s)}, nil
	}

	return []string{c.output(settings.Display(body))}, nil
}

// fetchConstruct is the 'f' construct. It stores the records selected by
// the query in its body into the memory slot named by its parameter:
//
//	{f(contacts)|`contact:name?city=Paris`|}
//
// The query runs when the slot is first read. The body is evaluated again at
// that time, so constructs kept literal with backticks see the state of the
// reader. The filter, distinct and order modifiers apply to the result.
type fetchConstruct struct {
	queryOptions
}

func (x *fetchConstruct) Execute(c *Call, body string) ([]string, error) {
	name := c.Params().Arg(0)
	if name == "" {
		return nil, ErrParam.Detail("fetch slot name")
	}

	c.State.StoreLazy(name, func(context.Context) (any, error) {
		text, err := c.State.render(body)
		if err != nil {
			return nil, err
		}

		q, err := record.ParseQuery(text)
		if err != nil {
			return nil, ErrParam.Wrap(err)
		}

		recs, err := retrieveMultiple(c, q)
		if err != nil {
			return nil, err
		}

		out := make([]*record.Record, 0, len(recs))

		for _, r := range recs {
			if matchAll(r, x.filter) {
				out = append(out, r.Clone())
			}
		}

		out = distinctRecords(out, x.distinct)
		orderRecords(out, x.order)

		return out, nil
	})

	return nil, nil
}

// actionConstruct is the 'a' construct. It stores the outputs of the
// action named by its body, invoked on the current record, into the memory
// slot named by its first parameter:
//
//	{a(result, `{amount: 5}`)|recalculate|}
//	{a(result, global)|publish|}
//
// The optional map literal is the action input. With global the action is
// invoked without a target. The action runs when the slot is first read.
type actionConstruct struct{}

func (actionConstruct) Execute(c *Call, body string) ([]string, error) {
	params := c.Params()

	name := params.Arg(0)
	if name == "" {
		return nil, ErrParam.Detail("action slot name")
	}

	if body == "" {
		return nil, ErrMissingBody
	}

	rec, err := c.Record()
	if err != nil {
		return nil, err
	}

	var target *record.Ref
	if !params.Has("global") {
		ref := rec.Ref
		target = &ref
	}

	var input map[string]any

	if i := slices.IndexFunc(params.Args[1:], func(s string) bool { return s != "global" }); i >= 0 {
		if input, err = parseSimpleMap(params.Args[1+i]); err != nil {
			return nil, err
		}
	}

	src, err := c.State.source()
	if err != nil {
		return nil, err
	}

	c.State.StoreLazy(name, func(ctx context.Context) (any, error) {
		return src.Call(ctx, body, target, input)
	})

	return nil, nil
}
