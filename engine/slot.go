package engine

import (
	"context"
	"sync"
)

// Slot is the value of a named memory slot: either a concrete value or a
// producer that is invoked on first read. A forced producer is memoized, so
// every read of a slot observes the same value.
type Slot struct {
	once  sync.Once
	value any
	err   error
	lazy  func(ctx context.Context) (any, error)
}

// Value returns a slot holding v.
func Value(v any) *Slot {
	s := &Slot{value: v}
	s.once.Do(func() {})

	return s
}

// Lazy returns a slot whose value is produced by fn on first read.
func Lazy(fn func(ctx context.Context) (any, error)) *Slot {
	return &Slot{lazy: fn}
}

// Get returns the slot value, forcing a lazy producer if needed. A failed
// producer reports the same error on every read.
func (s *Slot) Get(ctx context.Context) (any, error) {
	if s == nil {
		return nil, nil
	}

	s.once.Do(func() {
		s.value, s.err = s.lazy(ctx)
		s.lazy = nil
	})

	return s.value, s.err
}
