// Package store provides the bounded in-memory store behind the equation
// program cache and the resource cache.
package store

import (
	"container/list"
	"sync"
	"time"
)

// EvictionPolicy defines how entries are evicted from a bounded store.
type EvictionPolicy string

const (
	// LRU evicts the least recently used entry.
	LRU EvictionPolicy = "lru"
	// FIFO evicts the oldest entry.
	FIFO EvictionPolicy = "fifo"
)

// Bounded is a size-limited key/value store safe for concurrent use.
// Entries older than the TTL are dropped lazily on access.
type Bounded[V any] struct {
	mu         sync.Mutex
	data       map[string]*entry[V]
	evictList  *list.List
	maxEntries int
	policy     EvictionPolicy
	ttl        time.Duration
	onEvict    func(key string, value V)
	now        func() time.Time

	hits, misses, evictions int64
}

type entry[V any] struct {
	key        string
	value      V
	element    *list.Element
	createTime time.Time
}

// Option configures a Bounded store.
type Option func(*config)

type config struct {
	maxEntries int
	policy     EvictionPolicy
	ttl        time.Duration
	now        func() time.Time
}

// WithMaxEntries sets the maximum number of entries. Zero means unbounded.
func WithMaxEntries(maxEntries int) Option {
	return func(c *config) {
		c.maxEntries = maxEntries
	}
}

// WithEvictionPolicy sets the eviction policy.
func WithEvictionPolicy(policy EvictionPolicy) Option {
	return func(c *config) {
		c.policy = policy
	}
}

// WithTTL sets the time-to-live for entries. Zero disables expiry.
func WithTTL(ttl time.Duration) Option {
	return func(c *config) {
		c.ttl = ttl
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		c.now = now
	}
}

// NewBounded creates a new bounded store holding at most 1000 entries by default.
func NewBounded[V any](opts ...Option) *Bounded[V] {
	cfg := config{
		maxEntries: 1000,
		policy:     LRU,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Bounded[V]{
		data:       make(map[string]*entry[V]),
		evictList:  list.New(),
		maxEntries: cfg.maxEntries,
		policy:     cfg.policy,
		ttl:        cfg.ttl,
		now:        cfg.now,
	}
}

// OnEvict sets a callback invoked with the store lock held for every evicted
// or expired entry.
func (s *Bounded[V]) OnEvict(fn func(key string, value V)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEvict = fn
}

// Get retrieves a value by key.
func (s *Bounded[V]) Get(key string) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero V
	ent, exists := s.data[key]
	if !exists {
		s.misses++
		return zero, false
	}

	if s.expired(ent) {
		s.removeEntry(ent)
		s.misses++
		return zero, false
	}

	if s.policy == LRU {
		s.evictList.MoveToFront(ent.element)
	}
	s.hits++
	return ent.value, true
}

// Set stores a value, evicting entries beyond the configured limit.
func (s *Bounded[V]) Set(key string, value V) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ent, exists := s.data[key]; exists {
		ent.value = value
		ent.createTime = s.now()
		if s.policy == LRU {
			s.evictList.MoveToFront(ent.element)
		}
		return
	}

	ent := &entry[V]{
		key:        key,
		value:      value,
		createTime: s.now(),
	}
	ent.element = s.evictList.PushFront(ent)
	s.data[key] = ent

	for s.maxEntries > 0 && len(s.data) > s.maxEntries {
		back := s.evictList.Back()
		if back == nil {
			break
		}
		s.removeEntry(back.Value.(*entry[V]))
		s.evictions++
	}
}

// Delete removes a key from the store.
func (s *Bounded[V]) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ent, exists := s.data[key]; exists {
		s.removeEntry(ent)
	}
}

// Purge removes every entry.
func (s *Bounded[V]) Purge() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ent := range s.data {
		s.removeEntry(ent)
	}
}

// Len returns the number of stored entries, expired ones included.
func (s *Bounded[V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

func (s *Bounded[V]) expired(ent *entry[V]) bool {
	return s.ttl > 0 && s.now().Sub(ent.createTime) > s.ttl
}

func (s *Bounded[V]) removeEntry(ent *entry[V]) {
	delete(s.data, ent.key)
	s.evictList.Remove(ent.element)
	if s.onEvict != nil {
		s.onEvict(ent.key, ent.value)
	}
}

// Stats returns store statistics.
func (s *Bounded[V]) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		Entries:    len(s.data),
		MaxEntries: s.maxEntries,
		Policy:     string(s.policy),
		Hits:       s.hits,
		Misses:     s.misses,
		Evictions:  s.evictions,
	}
}

// Stats contains store statistics.
type Stats struct {
	Entries    int    `json:"entries" yaml:"entries"`
	MaxEntries int    `json:"max_entries" yaml:"max_entries"`
	Policy     string `json:"policy" yaml:"policy"`
	Hits       int64  `json:"hits" yaml:"hits"`
	Misses     int64  `json:"misses" yaml:"misses"`
	Evictions  int64  `json:"evictions" yaml:"evictions"`
}
