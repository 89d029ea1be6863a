package record

import (
	"errors"
	"strings"
	"testing"

	"github.com/ardnew/brace/pkg"
)

const testFixture = `
url: https://crm.example.com/main
user: user/u1
settings: settings/default
records:
  - entity: user
    id: u1
    fields:
      name: Ada Lovelace
      language: 1036
  - entity: settings
    id: default
    fields:
      theme: dark
  - entity: account
    id: a1
    fields:
      name: Contoso
      revenue: 1200.5
      employees: 42
      owner: {ref: user/u1}
      status: {option: 1, label: Active}
    formatted:
      owner: Ada Lovelace
    related:
      contacts: [contact/c2, contact/c1, contact/c3]
  - entity: contact
    id: c1
    fields: {name: Bob, city: Paris}
  - entity: contact
    id: c2
    fields: {name: Alice, city: Lyon}
  - entity: contact
    id: c3
    fields: {name: Carol, city: Paris}
labels:
  - {entity: account, field: status, value: 1, locale: 1033, label: Active}
  - {entity: account, field: status, value: 1, locale: 1036, label: Actif}
`

func loadTestFixture(t *testing.T) *Fixture {
	t.Helper()

	f, err := DecodeFixture(strings.NewReader(testFixture))
	if err != nil {
		t.Fatalf("DecodeFixture: %v", err)
	}

	return f
}

func TestDecodeFixture(t *testing.T) {
	t.Parallel()

	f := loadTestFixture(t)

	if len(f.Records) != 6 || len(f.Labels) != 2 {
		t.Fatalf("decoded %d records and %d labels", len(f.Records), len(f.Labels))
	}

	r, err := f.Records[2].Record()
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	if v, _ := r.Get("owner"); v != (Ref{Entity: "user", ID: "u1"}) {
		t.Errorf("owner = %#v, want user ref", v)
	}

	if v, _ := r.Get("status"); v != (Option{Value: 1, Label: "Active"}) {
		t.Errorf("status = %#v, want option 1", v)
	}

	if v, _ := r.Get("employees"); v != int64(42) {
		t.Errorf("employees = %#v, want int64(42)", v)
	}

	if v, _ := r.Get("revenue"); v != 1200.5 {
		t.Errorf("revenue = %#v, want 1200.5", v)
	}
}

func TestDecodeFixture_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
	}{
		{name: "syntax", input: "records: [\n"},
		{name: "bad_mapping", input: "records:\n  - {entity: a, id: b, fields: {x: {y: 1}}}\n"},
		{name: "bad_ref", input: "records:\n  - {entity: a, id: b, fields: {x: {ref: nope}}}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := LoadMemory(strings.NewReader(tt.input))
			if err == nil {
				t.Fatalf("LoadMemory(%q) succeeded", tt.input)
			}

			if !errors.Is(err, pkg.ErrFixture) && !errors.Is(err, pkg.ErrInvalidRef) {
				t.Errorf("LoadMemory(%q) error = %v", tt.input, err)
			}
		})
	}
}

func TestDecodeFixture_Empty(t *testing.T) {
	t.Parallel()

	m, err := LoadMemory(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadMemory(empty): %v", err)
	}

	if _, err := m.WhoAmI(t.Context()); !errors.Is(err, pkg.ErrNotFound) {
		t.Errorf("WhoAmI on empty source = %v, want ErrNotFound", err)
	}
}

func TestFixture_Merge(t *testing.T) {
	t.Parallel()

	base := &Fixture{User: "user/u1", Records: []FixtureRecord{{Entity: "user", ID: "u1"}}}
	extra := &Fixture{
		URL:     "https://crm.example.com",
		User:    "user/u2",
		Records: []FixtureRecord{{Entity: "account", ID: "a1"}},
		Labels:  []FixtureLabel{{Entity: "account", Field: "status", Value: 1, Locale: 1033, Label: "Active"}},
	}

	got := base.Merge(extra).Merge(nil)

	if got.User != "user/u1" || got.URL != "https://crm.example.com" {
		t.Errorf("user, url = %q, %q", got.User, got.URL)
	}

	if len(got.Records) != 2 || len(got.Labels) != 1 {
		t.Errorf("records, labels = %d, %d", len(got.Records), len(got.Labels))
	}
}
