package cache

import (
	"sort"
	"sync"
	"time"

	"github.com/arunvm123/tourismbooking/internal/clock"
)

// Stats is a point-in-time view of one namespace.
type Stats struct {
	Namespace        string
	EntryCount       int
	Version          uint64
	TTL              time.Duration
	IsValid          bool
	LastInvalidation time.Time
}

type entry struct {
	value      any
	insertedAt time.Time
}

type namespace struct {
	mu               sync.RWMutex
	ttl              time.Duration
	version          uint64
	entries          map[string]entry
	lastInvalidation time.Time
}

// Store is an in-process key/value cache split into namespaces. Each
// namespace has its own TTL and a version counter that moves forward on
// every invalidation. Entries older than the TTL are never served.
type Store struct {
	clock      clock.Clock
	defaultTTL time.Duration

	mu         sync.RWMutex
	namespaces map[string]*namespace
}

func NewStore(clk clock.Clock, defaultTTL time.Duration) *Store {
	if clk == nil {
		clk = clock.Real()
	}
	return &Store{
		clock:      clk,
		defaultTTL: defaultTTL,
		namespaces: make(map[string]*namespace),
	}
}

// Register creates ns with the given TTL, or updates the TTL of an
// existing namespace.
func (s *Store) Register(ns string, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n, ok := s.namespaces[ns]; ok {
		n.mu.Lock()
		n.ttl = ttl
		n.mu.Unlock()
		return
	}
	s.namespaces[ns] = &namespace{ttl: ttl, entries: make(map[string]entry)}
}

func (s *Store) lookup(ns string) (*namespace, bool) {
	s.mu.RLock()
	n, ok := s.namespaces[ns]
	s.mu.RUnlock()
	return n, ok
}

// namespace returns ns, creating it with the default TTL on first use.
func (s *Store) namespace(ns string) *namespace {
	if n, ok := s.lookup(ns); ok {
		return n
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.namespaces[ns]; ok {
		return n
	}
	n := &namespace{ttl: s.defaultTTL, entries: make(map[string]entry)}
	s.namespaces[ns] = n
	return n
}

func (n *namespace) fresh(e entry, now time.Time) bool {
	return now.Sub(e.insertedAt) < n.ttl
}

// Get returns the value under key. A stale entry is a miss and is evicted.
func (s *Store) Get(ns, key string) (any, bool) {
	n := s.namespace(ns)
	now := s.clock.Now()

	n.mu.RLock()
	e, ok := n.entries[key]
	if ok && n.fresh(e, now) {
		n.mu.RUnlock()
		return e.value, true
	}
	n.mu.RUnlock()

	if !ok {
		return nil, false
	}

	n.mu.Lock()
	// Someone may have refilled the key between the two locks.
	if cur, ok := n.entries[key]; ok && cur.insertedAt.Equal(e.insertedAt) {
		delete(n.entries, key)
	}
	n.mu.Unlock()
	return nil, false
}

// Put stores value under key and resets its age.
func (s *Store) Put(ns, key string, value any) {
	n := s.namespace(ns)
	now := s.clock.Now()

	n.mu.Lock()
	n.entries[key] = entry{value: value, insertedAt: now}
	n.mu.Unlock()
}

// PutIfVersion stores value only when the namespace version still equals
// version. A fill that started before an invalidation is dropped so it
// cannot resurrect data the invalidation meant to remove.
func (s *Store) PutIfVersion(ns, key string, value any, version uint64) bool {
	n := s.namespace(ns)
	now := s.clock.Now()

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.version != version {
		return false
	}
	n.entries[key] = entry{value: value, insertedAt: now}
	return true
}

// InvalidateNamespace drops every entry in ns and bumps its version.
func (s *Store) InvalidateNamespace(ns string) {
	n := s.namespace(ns)
	now := s.clock.Now()

	n.mu.Lock()
	n.entries = make(map[string]entry)
	n.version++
	n.lastInvalidation = now
	n.mu.Unlock()
}

// InvalidateKey drops a single key and bumps the namespace version.
func (s *Store) InvalidateKey(ns, key string) {
	n := s.namespace(ns)
	now := s.clock.Now()

	n.mu.Lock()
	delete(n.entries, key)
	n.version++
	n.lastInvalidation = now
	n.mu.Unlock()
}

func (s *Store) Version(ns string) uint64 {
	n := s.namespace(ns)
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.version
}

// Stats reports on ns. The bool is false when ns was never used.
// EntryCount only counts entries that are still fresh.
func (s *Store) Stats(ns string) (Stats, bool) {
	n, ok := s.lookup(ns)
	if !ok {
		return Stats{}, false
	}
	now := s.clock.Now()

	n.mu.RLock()
	defer n.mu.RUnlock()

	live := 0
	for _, e := range n.entries {
		if n.fresh(e, now) {
			live++
		}
	}
	return Stats{
		Namespace:        ns,
		EntryCount:       live,
		Version:          n.version,
		TTL:              n.ttl,
		IsValid:          live > 0,
		LastInvalidation: n.lastInvalidation,
	}, true
}

// Namespaces lists known namespaces in name order.
func (s *Store) Namespaces() []string {
	s.mu.RLock()
	names := make([]string, 0, len(s.namespaces))
	for name := range s.namespaces {
		names = append(names, name)
	}
	s.mu.RUnlock()

	sort.Strings(names)
	return names
}
