package cache

import (
	"sync"
	"time"

	"github.com/segmentio/fasthash/fnv1a"
	"github.com/tevino/abool/v2"
)

// Store is an expiring key/value store shared across parses.
type Store interface {
	// Get returns the value stored under key if it has not expired.
	Get(key string) (any, bool)
	// Set stores value under key for ttl. A non-positive ttl stores nothing.
	Set(key string, value any, ttl time.Duration)
}

const shardCount = 32

// Memory is an in-process [Store]. Keys are spread over shards by their
// FNV-1a hash so that concurrent parses rarely contend on the same lock.
type Memory struct {
	shards   [shardCount]shard
	now      func() time.Time
	sweeping *abool.AtomicBool
}

type shard struct {
	mu    sync.Mutex
	items map[string]item
}

type item struct {
	value   any
	expires time.Time
}

// Option configures a [Memory] store.
type Option func(*Memory)

// WithClock replaces the clock used to compute and test expiry.
func WithClock(now func() time.Time) Option {
	return func(m *Memory) { m.now = now }
}

// New returns an empty store.
func New(opts ...Option) *Memory {
	m := &Memory{now: time.Now, sweeping: abool.New()}

	for i := range m.shards {
		m.shards[i].items = map[string]item{}
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

func (m *Memory) shard(key string) *shard {
	return &m.shards[fnv1a.HashString64(key)%shardCount]
}

// Get implements [Store]. An expired entry is removed on access.
func (m *Memory) Get(key string) (any, bool) {
	s := m.shard(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.items[key]
	if !ok {
		return nil, false
	}

	if !m.now().Before(it.expires) {
		delete(s.items, key)

		return nil, false
	}

	return it.value, true
}

// Set implements [Store].
func (m *Memory) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	s := m.shard(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[key] = item{value: value, expires: m.now().Add(ttl)}
}

// Delete removes key.
func (m *Memory) Delete(key string) {
	s := m.shard(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, key)
}

// Len returns the number of stored entries, including expired entries not
// yet purged.
func (m *Memory) Len() int {
	var n int

	for i := range m.shards {
		s := &m.shards[i]

		s.mu.Lock()
		n += len(s.items)
		s.mu.Unlock()
	}

	return n
}

// Purge removes every expired entry and returns how many were removed. A
// call made while another purge is running returns 0 immediately.
func (m *Memory) Purge() int {
	if !m.sweeping.SetToIf(false, true) {
		return 0
	}
	defer m.sweeping.UnSet()

	var (
		n   int
		now = m.now()
	)

	for i := range m.shards {
		s := &m.shards[i]

		s.mu.Lock()

		for key, it := range s.items {
			if !now.Before(it.expires) {
				delete(s.items, key)
				n++
			}
		}

		s.mu.Unlock()
	}

	return n
}

var _ Store = (*Memory)(nil)
