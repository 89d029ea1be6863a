package record

import (
	"io"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/ardnew/brace/pkg"
)

// Fixture is the YAML document describing the contents of a record source.
//
//	url: https://crm.example.com/main
//	user: user/u1
//	settings: settings/default
//	records:
//	  - entity: account
//	    id: a1
//	    fields:
//	      name: Contoso
//	      revenue: 1200.5
//	      owner: {ref: user/u1}
//	      status: {option: 1, label: Active}
//	    formatted:
//	      owner: Ada Lovelace
//	    related:
//	      contacts: [contact/c1, contact/c2]
//	labels:
//	  - {entity: account, field: status, value: 1, locale: 1036, label: Actif}
//
// A field value that is a mapping with a "ref" key is a [Ref]; one with an
// "option" key is an [Option].
type Fixture struct {
	URL      string          `yaml:"url,omitempty"`
	User     string          `yaml:"user,omitempty"`
	Settings string          `yaml:"settings,omitempty"`
	Records  []FixtureRecord `yaml:"records"`
	Labels   []FixtureLabel  `yaml:"labels,omitempty"`
}

// FixtureRecord is one record of a [Fixture].
type FixtureRecord struct {
	Entity    string              `yaml:"entity"`
	ID        string              `yaml:"id"`
	Fields    map[string]any      `yaml:"fields,omitempty"`
	Formatted map[string]string   `yaml:"formatted,omitempty"`
	Related   map[string][]string `yaml:"related,omitempty"`
}

// FixtureLabel is one localized option label of a [Fixture].
type FixtureLabel struct {
	Entity string `yaml:"entity"`
	Field  string `yaml:"field"`
	Value  int    `yaml:"value"`
	Locale int    `yaml:"locale"`
	Label  string `yaml:"label"`
}

// DecodeFixture reads a YAML fixture document.
func DecodeFixture(r io.Reader) (*Fixture, error) {
	var f Fixture

	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		if err == io.EOF {
			return &f, nil
		}

		return nil, pkg.ErrFixture.Wrap(err)
	}

	return &f, nil
}

// Merge appends the records and labels of other to f. The URL, user and
// settings of f are kept unless unset.
func (f *Fixture) Merge(other *Fixture) *Fixture {
	if other == nil {
		return f
	}

	if f.URL == "" {
		f.URL = other.URL
	}

	if f.User == "" {
		f.User = other.User
	}

	if f.Settings == "" {
		f.Settings = other.Settings
	}

	f.Records = append(f.Records, other.Records...)
	f.Labels = append(f.Labels, other.Labels...)

	return f
}

// Encode writes f as a YAML document.
func (f *Fixture) Encode(w io.Writer) error {
	return yaml.NewEncoder(w).Encode(f)
}

// Ref returns the reference of a fixture record.
func (fr FixtureRecord) Ref() Ref { return Ref{Entity: fr.Entity, ID: fr.ID} }

// Record converts a fixture record, decoding reference and option values.
func (fr FixtureRecord) Record() (*Record, error) {
	r := New(fr.Ref())

	for name, v := range fr.Fields {
		value, err := decodeValue(v)
		if err != nil {
			return nil, pkg.ErrFixture.Wrapf("%s field %q: %w", r.Ref, name, err)
		}

		r.Set(name, value)
	}

	for name, s := range fr.Formatted {
		r.Formatted[name] = s
	}

	return r, nil
}

// Relations returns the parsed relation targets of a fixture record.
func (fr FixtureRecord) Relations() (map[string][]Ref, error) {
	out := make(map[string][]Ref, len(fr.Related))

	for name, targets := range fr.Related {
		for _, t := range targets {
			ref, err := ParseRef(t)
			if err != nil {
				return nil, err
			}

			out[name] = append(out[name], ref)
		}
	}

	return out, nil
}

func decodeValue(v any) (any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return Normalize(v), nil
	}

	if s, ok := m["ref"].(string); ok {
		return ParseRef(s)
	}

	if n, ok := Normalize(m["option"]).(int64); ok {
		label, _ := m["label"].(string)

		return Option{Value: int(n), Label: label}, nil
	}

	if s, ok := m["time"].(string); ok {
		return time.Parse(time.RFC3339, s)
	}

	return nil, pkg.ErrFixture.Wrapf("mapping value needs a ref, option or time key")
}

// Memory builds an in-memory source holding the fixture's contents.
func (f *Fixture) Memory(opts ...MemoryOption) (*Memory, error) {
	base := []MemoryOption{WithBaseURL(f.URL)}

	if f.User != "" {
		ref, err := ParseRef(f.User)
		if err != nil {
			return nil, err
		}

		base = append(base, WithUser(ref))
	}

	if f.Settings != "" {
		ref, err := ParseRef(f.Settings)
		if err != nil {
			return nil, err
		}

		base = append(base, WithSettings(ref))
	}

	m := NewMemory(append(base, opts...)...)

	for _, fr := range f.Records {
		r, err := fr.Record()
		if err != nil {
			return nil, err
		}

		rel, err := fr.Relations()
		if err != nil {
			return nil, err
		}

		m.Add(r)

		for name, to := range rel {
			m.Relate(r.Ref, name, to...)
		}
	}

	for _, l := range f.Labels {
		m.Label(l.Entity, l.Field, l.Value, l.Locale, l.Label)
	}

	return m, nil
}

// LoadMemory decodes a YAML fixture and builds an in-memory source from it.
func LoadMemory(r io.Reader, opts ...MemoryOption) (*Memory, error) {
	f, err := DecodeFixture(r)
	if err != nil {
		return nil, err
	}

	return f.Memory(opts...)
}
