package engine

import (
	"strconv"
	"strings"

	"github.com/ardnew/brace/record"
)

// contextConstruct is the '.' construct. It switches the current record to
// each record reached by a traversal path and evaluates its body once per
// record:
//
//	{.(path[, contextName[, localName]][, global])|body|}
//
// The first segment of the path names a memory slot holding the starting
// records; any other name starts from the current record. Each reached
// record is stored under contextName. With localName, each element of the
// slot (or the record itself, if the slot holds records) is stored under
// localName before the body is evaluated. Unless global is given, the
// current record is restored after each evaluation.
type contextConstruct struct {
	queryOptions
}

func (*contextConstruct) Scoped() {}

func (x *contextConstruct) Execute(c *Call, body string) ([]string, error) {
	params := c.Params()

	p, ok := parsePath(params.Arg(0))
	if !ok {
		return []string{body}, nil
	}

	global := params.Has("global")
	n := len(params.Args)

	var contextName, localName string

	if (n == 2 && !global) || n > 2 {
		contextName = params.Arg(1)
	}

	if (n == 3 && !global) || n > 3 {
		localName = params.Arg(2)
	}

	stored, _, err := c.State.Read(p.scope)
	if err != nil {
		return nil, err
	}

	starts, isStored := storedRecords(stored)
	if !isStored {
		rec, err := c.Record()
		if err != nil {
			return nil, err
		}

		starts = []*record.Record{rec}
	}

	backup := c.State.Record

	var out []string

	for _, start := range starts {
		reached, err := traverse(c, start, p.steps, &x.queryOptions)
		if err != nil {
			return nil, err
		}

		for _, rec := range reached {
			if contextName != "" {
				c.State.Store(contextName, rec)
			}

			c.State.Record = rec

			var elems []any

			switch {
			case localName == "":
				elems = []any{nil}
			case isStored:
				elems = []any{rec}
			default:
				elems = storedElements(stored)
			}

			for _, el := range elems {
				if localName != "" {
					c.State.Store(localName, el)
				}

				s, err := c.EvalBody()
				if err != nil {
					c.State.Record = backup

					return nil, err
				}

				out = append(out, s)
			}

			if !global {
				c.State.Record = backup
			}
		}
	}

	return out, nil
}

// storedRecords returns the records held by a slot value.
func storedRecords(v any) ([]*record.Record, bool) {
	switch v := v.(type) {
	case *record.Record:
		if v != nil {
			return []*record.Record{v}, true
		}
	case []*record.Record:
		if len(v) > 0 {
			return v, true
		}
	}

	return nil, false
}

// storedElements returns the elements of a slot value.
func storedElements(v any) []any {
	switch v := v.(type) {
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}

		return out
	case []any:
		return v
	default:
		return []any{v}
	}
}

// columnConstruct is the 'c' construct. Its body is a field name, or a
// chain of lookup fields ending in a field, of the current record:
//
//	{c|name|}  {c(raw)|parent.owner.name|}
//
// The optional parameter selects the output: the display value (default),
// raw, name, log, id or url.
type columnConstruct struct{}

func (columnConstruct) Execute(c *Call, body string) ([]string, error) {
	rec, err := c.Record()
	if err != nil {
		return nil, err
	}

	names := strings.Split(body, ".")
	for _, n := range names {
		if !isIdent(n) {
			return nil, nil
		}
	}

	var (
		holder *record.Record
		name   string
		value  any
	)

	for _, n := range names {
		holder, value, err = field(c, rec, n)
		if err != nil {
			return nil, err
		}

		name = n

		ref, ok := value.(record.Ref)
		if !ok || ref.IsZero() {
			break
		}

		rec = record.New(ref)
	}

	out, err := columnValue(c, holder, name, value)
	if err != nil {
		return nil, err
	}

	return []string{c.output(out)}, nil
}

func columnValue(c *Call, holder *record.Record, name string, value any) (string, error) {
	ref, isRef := value.(record.Ref)

	switch mode := c.Params().Arg(0); mode {
	case "":
		return holder.Display(name), nil

	case "raw":
		return record.FormatField(value), nil

	case "name":
		if opt, ok := value.(record.Option); ok && c.State.Locale != record.DefaultLocale {
			return optionLabel(c, holder.Entity, name, opt.Value)
		}

		return holder.Display(name), nil

	case "log":
		if isRef {
			return ref.Entity, nil
		}

		return "", nil

	case "id":
		if isRef {
			return strings.ToUpper(ref.ID), nil
		}

		return "", nil

	case "url":
		if !isRef {
			return "", nil
		}

		return recordURL(c, ref)

	default:
		return "", ErrValue.Detail("column mode " + mode)
	}
}

func optionLabel(c *Call, entity, name string, value int) (string, error) {
	src, err := c.State.source()
	if err != nil {
		return "", err
	}

	lcid := c.State.Locale
	key := strings.Join([]string{"OptionLabel", entity, name, strconv.Itoa(value), strconv.Itoa(lcid)}, "|")

	return cached(c, key, func() (string, error) {
		return src.OptionLabel(c.Context(), entity, name, value, lcid)
	})
}

func recordURL(c *Call, ref record.Ref) (string, error) {
	src, err := c.State.source()
	if err != nil {
		return "", err
	}

	return cached(c, "URL|"+ref.Entity+"|"+ref.ID, func() (string, error) {
		return src.URL(c.Context(), ref)
	})
}

func recordName(c *Call, ref record.Ref) (string, error) {
	src, err := c.State.source()
	if err != nil {
		return "", err
	}

	return cached(c, "Name|"+ref.Entity+"|"+ref.ID, func() (string, error) {
		return src.Name(c.Context(), ref)
	})
}

// refInfo renders one of the fixed descriptions of a record reference.
func refInfo(c *Call, ref record.Ref, what string) (string, error) {
	switch what {
	case "raw":
		return ref.String(), nil
	case "name":
		return recordName(c, ref)
	case "log":
		return ref.Entity, nil
	case "id":
		return strings.ToUpper(ref.ID), nil
	case "url":
		return recordURL(c, ref)
	default:
		return "", ErrValue.Detail(what)
	}
}

// rowinfoConstruct is the 'i' construct: the raw, name, log, id or url of
// the current record.
type rowinfoConstruct struct{}

func (rowinfoConstruct) Execute(c *Call, body string) ([]string, error) {
	if body == "" {
		return nil, ErrMissingBody
	}

	rec, err := c.Record()
	if err != nil {
		return nil, err
	}

	s, err := refInfo(c, rec.Ref, body)
	if err != nil {
		return nil, err
	}

	return []string{c.output(s)}, nil
}

// userinfoConstruct is the 'u' construct: the raw, name, log, id, lcid or
// url of the calling user, or of the user given as parameter.
type userinfoConstruct struct{}

func (userinfoConstruct) Execute(c *Call, body string) ([]string, error) {
	if body == "" {
		return nil, ErrMissingBody
	}

	src, err := c.State.source()
	if err != nil {
		return nil, err
	}

	var user record.Ref

	if id := c.Params().Arg(0); id != "" {
		if user, err = record.ParseRef(id); err != nil {
			user = record.Ref{Entity: "user", ID: id}
		}
	} else {
		user, err = cached(c, "WhoAmI", func() (record.Ref, error) {
			return src.WhoAmI(c.Context())
		})
		if err != nil {
			return nil, err
		}
	}

	var s string

	if body == "lcid" {
		lcid, err := cached(c, "Language|"+user.ID, func() (int, error) {
			return src.Language(c.Context(), user)
		})
		if err != nil {
			return nil, err
		}

		s = strconv.Itoa(lcid)
	} else if s, err = refInfo(c, user, body); err != nil {
		return nil, err
	}

	return []string{c.output(s)}, nil
}

// preloadConstruct is the '<' construct. It loads a comma-separated list of
// fields into the current record in one request. It emits nothing.
type preloadConstruct struct{}

func (preloadConstruct) Execute(c *Call, body string) ([]string, error) {
	rec, err := c.Record()
	if err != nil {
		return nil, err
	}

	var missing []string

	for _, f := range splitFields(body) {
		if !rec.Has(f) {
			missing = append(missing, f)
		}
	}

	if len(missing) == 0 || rec.IsZero() {
		return nil, nil
	}

	loaded, err := retrieve(c, rec.Ref, missing...)
	if err != nil {
		return nil, err
	}

	merged := rec.Merge(loaded)
	if c.State.provided == rec {
		c.State.provided = merged
	}

	c.State.Record = merged

	return nil, nil
}
