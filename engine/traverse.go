package engine

import (
	"cmp"
	"slices"
	"strings"

	"github.com/ardnew/brace/lang"
	"github.com/ardnew/brace/record"
)

// step is one segment of a traversal path.
type step struct {
	name     string
	relation bool
}

// path is a parsed traversal path
//
//	scope(.lookup|#relation)*
//
// where scope names a memory slot holding the starting records (or any name,
// to start from the current record), a '.' step follows a lookup field and a
// '#' step expands a one-to-many relation.
type path struct {
	scope string
	steps []step
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}

	for _, r := range s {
		if r != '_' && (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}

	return true
}

// parsePath parses a traversal path. It reports false if s is not one.
func parsePath(s string) (path, bool) {
	var p path

	i := strings.IndexAny(s, ".#")
	if i < 0 {
		i = len(s)
	}

	if p.scope = s[:i]; !isIdent(p.scope) {
		return path{}, false
	}

	for s = s[i:]; s != ""; {
		rel := s[0] == '#'
		s = s[1:]

		j := strings.IndexAny(s, ".#")
		if j < 0 {
			j = len(s)
		}

		if !isIdent(s[:j]) {
			return path{}, false
		}

		p.steps = append(p.steps, step{name: s[:j], relation: rel})
		s = s[j:]
	}

	return p, true
}

// retrieve loads fields of ref through the call cache.
func retrieve(c *Call, ref record.Ref, fields ...string) (*record.Record, error) {
	src, err := c.State.source()
	if err != nil {
		return nil, err
	}

	key := "Retrieve|" + ref.Entity + "|" + ref.ID + "|" + joinFields(fields)

	return cached(c, key, func() (*record.Record, error) {
		return src.Retrieve(c.Context(), ref, fields...)
	})
}

// field returns the value of field in r, retrieving it from the source if
// it is not loaded. Records supplied by the caller are never completed, nor
// are records without an identity. The returned record holds the value.
func field(c *Call, r *record.Record, name string) (*record.Record, any, error) {
	if v, ok := r.Get(name); ok || r.IsZero() || r == c.State.provided {
		return r, v, nil
	}

	loaded, err := retrieve(c, r.Ref, name)
	if err != nil {
		return nil, nil, err
	}

	r = r.Merge(loaded)
	v, _ := r.Get(name)

	return r, v, nil
}

// traverse follows the steps from start and returns the records reached.
func traverse(c *Call, start *record.Record, steps []step, q *queryOptions) ([]*record.Record, error) {
	buf := []*record.Record{start}

	for _, st := range steps {
		var next []*record.Record

		for _, r := range buf {
			if st.relation {
				recs, err := related(c, r, st.name, q)
				if err != nil {
					return nil, err
				}

				next = append(next, recs...)

				continue
			}

			_, v, err := field(c, r, st.name)
			if err != nil {
				return nil, err
			}

			ref, ok := v.(record.Ref)
			if !ok || ref.IsZero() {
				return nil, ErrNotLookup.Detail(st.name)
			}

			next = append(next, record.New(ref))
		}

		buf = next
	}

	return buf, nil
}

// related expands a relation of r and applies the query options. The
// returned records are copies that the caller may modify.
func related(c *Call, r *record.Record, relation string, q *queryOptions) ([]*record.Record, error) {
	fields := uniqueFields(slices.Concat(q.distinct, trimOrder(q.order)))

	recs, ok := r.Related[relation]
	if !ok {
		src, err := c.State.source()
		if err != nil {
			return nil, err
		}

		key := strings.Join([]string{"Related", r.Entity, r.ID, relation, joinFields(fields)}, "|")

		recs, err = cached(c, key, func() ([]*record.Record, error) {
			return src.Related(c.Context(), r.Ref, relation, fields...)
		})
		if err != nil {
			return nil, err
		}
	}

	out := make([]*record.Record, 0, len(recs))

	for _, rec := range recs {
		if matchAll(rec, q.filter) {
			out = append(out, rec.Clone())
		}
	}

	out = distinctRecords(out, q.distinct)
	orderRecords(out, q.order)

	return out, nil
}

func matchAll(r *record.Record, conds []record.Condition) bool {
	for _, cond := range conds {
		if !cond.Match(r) {
			return false
		}
	}

	return true
}

// trimOrder returns order fields without their descending marker.
func trimOrder(order []string) []string {
	out := make([]string, len(order))
	for i, o := range order {
		out[i] = strings.TrimLeft(o, "#")
	}

	return out
}

// distinctRecords keeps the first record of each distinct combination of
// the display values of fields.
func distinctRecords(recs []*record.Record, fields []string) []*record.Record {
	if len(fields) == 0 {
		return recs
	}

	seen := map[string]bool{}
	out := recs[:0]

	for _, r := range recs {
		var sb strings.Builder
		for _, f := range fields {
			sb.WriteString(r.Display(f))
			sb.WriteByte(0)
		}

		if k := sb.String(); !seen[k] {
			seen[k] = true
			out = append(out, r)
		}
	}

	return out
}

// orderRecords sorts by each order field in turn, breaking remaining ties
// by id. A field prefixed with '#' sorts descending.
func orderRecords(recs []*record.Record, order []string) {
	if len(order) == 0 {
		return
	}

	slices.SortStableFunc(recs, func(a, b *record.Record) int {
		for _, o := range order {
			name := strings.TrimLeft(o, "#")

			n := lang.Compare(lang.ParseValue(a.Display(name)), lang.ParseValue(b.Display(name)))
			if strings.HasPrefix(o, "#") {
				n = -n
			}

			if n != 0 {
				return n
			}
		}

		return cmp.Compare(a.ID, b.ID)
	})
}
