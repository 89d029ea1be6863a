package record

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/ardnew/brace/pkg"
)

// Well-known field names.
const (
	// NameField holds the primary display name of a record.
	NameField = "name"
	// LanguageField holds the preferred locale id of a user record.
	LanguageField = "language"
)

// Ref identifies a record by entity name and id.
type Ref struct {
	Entity string `yaml:"entity"`
	ID     string `yaml:"id"`
}

// ParseRef parses "entity/id" or "entity:id".
func ParseRef(s string) (Ref, error) {
	i := strings.IndexAny(s, "/:")
	if i <= 0 || i == len(s)-1 {
		return Ref{}, pkg.ErrInvalidRef.Wrapf("%q", s)
	}

	return Ref{Entity: strings.TrimSpace(s[:i]), ID: strings.TrimSpace(s[i+1:])}, nil
}

// IsZero reports whether r identifies nothing.
func (r Ref) IsZero() bool { return r.Entity == "" || r.ID == "" }

// String renders r as "entity:ID" with the id in upper case.
func (r Ref) String() string { return r.Entity + ":" + strings.ToUpper(r.ID) }

// Option is the value of a choice field: a numeric code and the label of its
// default language.
type Option struct {
	Value int    `yaml:"option"`
	Label string `yaml:"label,omitempty"`
}

func (o Option) String() string {
	if o.Label != "" {
		return o.Label
	}

	return strconv.Itoa(o.Value)
}

// Record is one entity instance with its loaded fields.
//
// Field values are one of string, int64, float64, bool, [time.Time], [Ref]
// or [Option]. Formatted holds display strings provided by the source, such
// as the name of a referenced record. Related holds relations that were
// loaded together with the record.
type Record struct {
	Ref

	Fields    map[string]any
	Formatted map[string]string
	Related   map[string][]*Record
}

// New returns an empty record identified by ref.
func New(ref Ref) *Record {
	return &Record{
		Ref:       ref,
		Fields:    map[string]any{},
		Formatted: map[string]string{},
		Related:   map[string][]*Record{},
	}
}

// Get returns the value of field if it is loaded.
func (r *Record) Get(field string) (any, bool) {
	if r == nil {
		return nil, false
	}

	v, ok := r.Fields[field]

	return v, ok
}

// Has reports whether every given field is loaded.
func (r *Record) Has(fields ...string) bool {
	for _, f := range fields {
		if _, ok := r.Get(f); !ok {
			return false
		}
	}

	return true
}

// Set stores a field value, normalizing Go numeric types to int64 and
// float64.
func (r *Record) Set(field string, value any) {
	if r.Fields == nil {
		r.Fields = map[string]any{}
	}

	r.Fields[field] = Normalize(value)
}

// Display returns the display string of field: the formatted value if the
// source provided one, otherwise the value rendered as text. Missing fields
// display as the empty string.
func (r *Record) Display(field string) string {
	if r == nil {
		return ""
	}

	if s, ok := r.Formatted[field]; ok {
		return s
	}

	v, ok := r.Fields[field]
	if !ok {
		return ""
	}

	return FormatField(v)
}

// Clone returns a copy of r whose maps may be modified independently.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}

	c := &Record{
		Ref:       r.Ref,
		Fields:    maps.Clone(r.Fields),
		Formatted: maps.Clone(r.Formatted),
		Related:   maps.Clone(r.Related),
	}

	if c.Fields == nil {
		c.Fields = map[string]any{}
	}

	if c.Formatted == nil {
		c.Formatted = map[string]string{}
	}

	if c.Related == nil {
		c.Related = map[string][]*Record{}
	}

	return c
}

// Merge returns a copy of r with the fields, formatted values and relations
// of other layered on top. Neither r nor other is modified.
func (r *Record) Merge(other *Record) *Record {
	c := r.Clone()
	if other == nil {
		return c
	}

	if c.IsZero() {
		c.Ref = other.Ref
	}

	maps.Copy(c.Fields, other.Fields)
	maps.Copy(c.Formatted, other.Formatted)
	maps.Copy(c.Related, other.Related)

	return c
}

// Normalize converts Go numeric types to int64 or float64 and leaves every
// other value unchanged.
func Normalize(v any) any {
	switch v := v.(type) {
	case int:
		return int64(v)
	case int8:
		return int64(v)
	case int16:
		return int64(v)
	case int32:
		return int64(v)
	case uint:
		return int64(v)
	case uint8:
		return int64(v)
	case uint16:
		return int64(v)
	case uint32:
		return int64(v)
	case uint64:
		return int64(v)
	case float32:
		return float64(v)
	case *Ref:
		if v == nil {
			return nil
		}

		return *v
	default:
		return v
	}
}

// FormatField renders a field value as text.
func FormatField(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.UTC().Format("2006-01-02T15:04:05")
	case Ref:
		return v.String()
	case Option:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func sortRecords(recs []*Record) {
	slices.SortFunc(recs, func(a, b *Record) int {
		return cmp.Or(
			cmp.Compare(a.Entity, b.Entity),
			cmp.Compare(a.ID, b.ID),
		)
	})
}
