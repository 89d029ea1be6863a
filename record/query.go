package record

import (
	"maps"
	"net/url"
	"slices"
	"strings"

	"github.com/ardnew/brace/pkg"
)

// Condition is an equality test on one field.
type Condition struct {
	Field string `yaml:"field"`
	Value string `yaml:"value"`
}

// Match reports whether the display value of the condition's field in r
// equals the condition value.
func (c Condition) Match(r *Record) bool {
	v, ok := r.Get(c.Field)
	if !ok {
		return c.Value == ""
	}

	if ref, ok := v.(Ref); ok && strings.EqualFold(ref.ID, c.Value) {
		return true
	}

	if opt, ok := v.(Option); ok && FormatField(int64(opt.Value)) == c.Value {
		return true
	}

	return FormatField(v) == c.Value || r.Display(c.Field) == c.Value
}

// Query selects records of one entity.
//
// Its text form is
//
//	entity[:field1,field2,...][?field=value&field=value...]
//
// where the field list names the fields to load (all fields if omitted) and
// the conditions must all hold. Condition values are URL query encoded.
type Query struct {
	Entity string      `yaml:"entity"`
	Fields []string    `yaml:"fields,omitempty"`
	Where  []Condition `yaml:"where,omitempty"`
}

// ParseQuery parses the text form of a [Query].
func ParseQuery(s string) (Query, error) {
	var q Query

	s = strings.TrimSpace(s)

	head, rawQuery, hasWhere := strings.Cut(s, "?")
	entity, fields, hasFields := strings.Cut(head, ":")

	q.Entity = strings.TrimSpace(entity)
	if q.Entity == "" {
		return Query{}, pkg.ErrInvalidQuery.Wrapf("%q: missing entity", s)
	}

	if hasFields {
		for f := range strings.SplitSeq(fields, ",") {
			if f = strings.TrimSpace(f); f != "" {
				q.Fields = append(q.Fields, f)
			}
		}
	}

	if hasWhere {
		values, err := url.ParseQuery(rawQuery)
		if err != nil {
			return Query{}, pkg.ErrInvalidQuery.Wrap(err)
		}

		for _, field := range slices.Sorted(maps.Keys(values)) {
			for _, v := range values[field] {
				q.Where = append(q.Where, Condition{Field: field, Value: v})
			}
		}
	}

	return q, nil
}

// String returns the canonical text form of q.
func (q Query) String() string {
	var sb strings.Builder

	sb.WriteString(q.Entity)

	if len(q.Fields) > 0 {
		sb.WriteByte(':')
		sb.WriteString(strings.Join(q.Fields, ","))
	}

	if len(q.Where) > 0 {
		values := url.Values{}
		for _, c := range q.Where {
			values.Add(c.Field, c.Value)
		}

		sb.WriteByte('?')
		sb.WriteString(values.Encode())
	}

	return sb.String()
}

// Match reports whether r belongs to the query's entity and satisfies every
// condition.
func (q Query) Match(r *Record) bool {
	if r == nil || r.Entity != q.Entity {
		return false
	}

	for _, c := range q.Where {
		if !c.Match(r) {
			return false
		}
	}

	return true
}

// Project returns a copy of r restricted to the query's fields, or r itself
// if the query loads all fields.
func (q Query) Project(r *Record) *Record {
	return Project(r, q.Fields...)
}

// Project returns a copy of r holding only the given fields. With no fields,
// r is returned unchanged.
func Project(r *Record, fields ...string) *Record {
	if r == nil || len(fields) == 0 {
		return r
	}

	p := New(r.Ref)

	for _, f := range fields {
		if v, ok := r.Fields[f]; ok {
			p.Fields[f] = v
		}

		if s, ok := r.Formatted[f]; ok {
			p.Formatted[f] = s
		}
	}

	return p
}
