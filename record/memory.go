package record

import (
	"context"
	"net/url"
	"strconv"
	"sync"

	"github.com/ardnew/brace/pkg"
)

// Action implements a named operation invoked through [Source.Call].
type Action func(ctx context.Context, target *Ref, input map[string]any) (*Record, error)

// Memory is an in-process [Source] holding records, relations and option
// labels in maps. It is safe for concurrent use.
type Memory struct {
	mu        sync.RWMutex
	records   map[Ref]*Record
	relations map[Ref]map[string][]Ref
	labels    map[labelKey]string
	actions   map[string]Action
	user      Ref
	settings  Ref
	baseURL   string
}

type labelKey struct {
	entity, field string
	value, locale int
}

// MemoryOption configures a [Memory] source.
type MemoryOption func(*Memory)

// WithUser sets the user returned by [Memory.WhoAmI].
func WithUser(ref Ref) MemoryOption {
	return func(m *Memory) { m.user = ref }
}

// WithSettings sets the record returned by [Memory.Settings].
func WithSettings(ref Ref) MemoryOption {
	return func(m *Memory) { m.settings = ref }
}

// WithBaseURL sets the prefix of links returned by [Memory.URL].
func WithBaseURL(base string) MemoryOption {
	return func(m *Memory) { m.baseURL = base }
}

// WithAction registers an action for [Memory.Call].
func WithAction(name string, fn Action) MemoryOption {
	return func(m *Memory) { m.actions[name] = fn }
}

// NewMemory returns an empty in-memory source.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		records:   map[Ref]*Record{},
		relations: map[Ref]map[string][]Ref{},
		labels:    map[labelKey]string{},
		actions:   map[string]Action{},
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Add stores a copy of each record, replacing any record with the same
// reference. Relations carried in Related are recorded as well.
func (m *Memory) Add(recs ...*Record) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range recs {
		c := r.Clone()
		c.Related = map[string][]*Record{}
		m.records[r.Ref] = c

		for name, related := range r.Related {
			for _, rel := range related {
				m.relate(r.Ref, name, rel.Ref)

				if _, ok := m.records[rel.Ref]; !ok {
					m.records[rel.Ref] = rel.Clone()
				}
			}
		}
	}
}

// Relate appends records to a one-to-many relation of from.
func (m *Memory) Relate(from Ref, relation string, to ...Ref) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range to {
		m.relate(from, relation, t)
	}
}

func (m *Memory) relate(from Ref, relation string, to Ref) {
	rel, ok := m.relations[from]
	if !ok {
		rel = map[string][]Ref{}
		m.relations[from] = rel
	}

	rel[relation] = append(rel[relation], to)
}

// Label sets the label of a choice value in a locale.
func (m *Memory) Label(entity, field string, value, locale int, label string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.labels[labelKey{entity, field, value, locale}] = label
}

// Retrieve implements [Source].
func (m *Memory) Retrieve(ctx context.Context, ref Ref, fields ...string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.records[ref]
	if !ok {
		return nil, pkg.ErrNotFound.Wrapf("record %s", ref)
	}

	return Project(r.Clone(), fields...), nil
}

// RetrieveMultiple implements [Source]. Records are returned in no
// particular order.
func (m *Memory) RetrieveMultiple(ctx context.Context, q Query) ([]*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Record

	for _, r := range m.records {
		if q.Match(r) {
			out = append(out, q.Project(r.Clone()))
		}
	}

	sortRecords(out)

	return out, nil
}

// Related implements [Source].
func (m *Memory) Related(ctx context.Context, ref Ref, relation string, fields ...string) ([]*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.records[ref]; !ok {
		return nil, pkg.ErrNotFound.Wrapf("record %s", ref)
	}

	var out []*Record

	for _, to := range m.relations[ref][relation] {
		if r, ok := m.records[to]; ok {
			out = append(out, Project(r.Clone(), fields...))
		} else {
			out = append(out, New(to))
		}
	}

	return out, nil
}

// Name implements [Source]. The name is the display value of the record's
// "name" field, falling back to the reference itself.
func (m *Memory) Name(ctx context.Context, ref Ref) (string, error) {
	r, err := m.Retrieve(ctx, ref)
	if err != nil {
		return "", err
	}

	if name := r.Display(NameField); name != "" {
		return name, nil
	}

	return ref.String(), nil
}

// URL implements [Source].
func (m *Memory) URL(ctx context.Context, ref Ref) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	base := m.baseURL
	if base == "" {
		base = "brace://record"
	}

	return url.JoinPath(base, ref.Entity, ref.ID)
}

// OptionLabel implements [Source]. A missing label falls back to the default
// locale, then to the numeric value.
func (m *Memory) OptionLabel(ctx context.Context, entity, field string, value, locale int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, lc := range []int{locale, DefaultLocale} {
		if s, ok := m.labels[labelKey{entity, field, value, lc}]; ok {
			return s, nil
		}
	}

	return strconv.Itoa(value), nil
}

// WhoAmI implements [Source].
func (m *Memory) WhoAmI(ctx context.Context) (Ref, error) {
	if err := ctx.Err(); err != nil {
		return Ref{}, err
	}

	if m.user.IsZero() {
		return Ref{}, pkg.ErrNotFound.Wrapf("current user")
	}

	return m.user, nil
}

// Language implements [Source]. It reads the user's "language" field.
func (m *Memory) Language(ctx context.Context, user Ref) (int, error) {
	r, err := m.Retrieve(ctx, user, LanguageField)
	if err != nil {
		return 0, err
	}

	if v, ok := r.Get(LanguageField); ok {
		if n, err := strconv.Atoi(FormatField(v)); err == nil {
			return n, nil
		}
	}

	return DefaultLocale, nil
}

// Settings implements [Source].
func (m *Memory) Settings(ctx context.Context) (*Record, error) {
	if m.settings.IsZero() {
		return nil, pkg.ErrNotFound.Wrapf("settings")
	}

	return m.Retrieve(ctx, m.settings)
}

// Call implements [Source].
func (m *Memory) Call(ctx context.Context, action string, target *Ref, input map[string]any) (*Record, error) {
	m.mu.RLock()
	fn, ok := m.actions[action]
	m.mu.RUnlock()

	if !ok {
		return nil, pkg.ErrNotFound.Wrapf("action %q", action)
	}

	return fn(ctx, target, input)
}

var _ Source = (*Memory)(nil)
