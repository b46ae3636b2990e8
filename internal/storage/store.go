// Package storage implements the concurrent, TTL-aware key-value store:
// a map guarded by a single RWMutex, plus a parallel slice of live keys
// kept in sync with the map so that uniform random sampling is O(1).
package storage

import (
	"math/rand"
	"sync"

	"go.uber.org/atomic"

	"bader/internal/clock"
	"bader/internal/metrics"
)

// Store is the main in-memory key-value store.
type Store struct {
	mu    sync.RWMutex
	data  map[string]*Entry
	keys  []string       // dense slice of currently-present keys
	index map[string]int // key -> position in keys

	clock   clock.Clock
	metrics *metrics.Metrics

	hits         atomic.Uint64
	misses       atomic.Uint64
	expiredTotal atomic.Uint64
	evictedTotal atomic.Uint64
}

// New creates an empty Store. m may be nil if metrics are not wired.
func New(clk clock.Clock, m *metrics.Metrics) *Store {
	return &Store{
		data:    make(map[string]*Entry),
		keys:    make([]string, 0),
		index:   make(map[string]int),
		clock:   clk,
		metrics: m,
	}
}

// Set inserts or atomically replaces key. ttlMs <= 0 means no expiry,
// matching a bare SET; the caller is responsible for validating a
// positive ttlMs for the TTL-bearing forms.
func (s *Store) Set(key string, value []byte, ttlMs int64) {
	var expiresAt int64
	if ttlMs > 0 {
		expiresAt = s.clock.NowMs() + ttlMs
	}

	entry := &Entry{Value: value, ExpiresAtMs: expiresAt}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; !exists {
		s.index[key] = len(s.keys)
		s.keys = append(s.keys, key)
	}
	s.data[key] = entry
	s.reportLen()
}

// Get returns the value for key if present and not expired. An expired
// entry observed at read time is deleted.
func (s *Store) Get(key string) ([]byte, bool) {
	now := s.clock.NowMs()

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.data[key]
	if !ok {
		s.misses.Inc()
		s.reportMiss()
		return nil, false
	}
	if entry.IsExpired(now) {
		s.removeLocked(key)
		s.expiredTotal.Inc()
		s.misses.Inc()
		s.reportMiss()
		s.reportLen()
		return nil, false
	}

	s.hits.Inc()
	s.reportHit()
	return entry.Value, true
}

// Del removes key if present, returning whether anything was removed.
func (s *Store) Del(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[key]; !ok {
		return false
	}
	s.removeLocked(key)
	s.reportLen()
	return true
}

// Exists reports whether key is present and not expired, deleting it on
// observed expiry exactly like Get.
func (s *Store) Exists(key string) bool {
	now := s.clock.NowMs()

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.data[key]
	if !ok {
		s.misses.Inc()
		s.reportMiss()
		return false
	}
	if entry.IsExpired(now) {
		s.removeLocked(key)
		s.expiredTotal.Inc()
		s.misses.Inc()
		s.reportMiss()
		s.reportLen()
		return false
	}

	s.hits.Inc()
	s.reportHit()
	return true
}

// Sample draws one key uniformly at random from the present keyset, which
// may include entries that are logically expired but not yet evicted;
// the Evictor relies on that to find eviction candidates. Returns
// ok=false if empty.
func (s *Store) Sample() (key string, expiresAtMs int64, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.keys) == 0 {
		return "", 0, false
	}

	i := rand.Intn(len(s.keys))
	k := s.keys[i]
	return k, s.data[k].ExpiresAtMs, true
}

// Len returns the current entry count, including entries that are
// logically expired but not yet reaped.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}

// DeleteIfExpired conditionally removes key: only if the entry currently
// stored still carries the exact expiresAtMs observed during sampling,
// and is expired under the current clock reading. This keeps the Evictor
// from erasing a key a client concurrently SET with a new value or
// extended TTL between the sample and the delete.
func (s *Store) DeleteIfExpired(key string, seenExpiresAtMs int64, nowMs int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.data[key]
	if !ok {
		return false
	}
	if entry.ExpiresAtMs != seenExpiresAtMs {
		return false
	}
	if !entry.IsExpired(nowMs) {
		return false
	}

	s.removeLocked(key)
	s.evictedTotal.Inc()
	s.reportLen()
	return true
}

// Stats returns a point-in-time snapshot of the store's counters.
type Stats struct {
	Hits         uint64
	Misses       uint64
	ExpiredTotal uint64
	EvictedTotal uint64
	Keys         int
}

func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		Hits:         s.hits.Load(),
		Misses:       s.misses.Load(),
		ExpiredTotal: s.expiredTotal.Load(),
		EvictedTotal: s.evictedTotal.Load(),
		Keys:         len(s.keys),
	}
}

// removeLocked deletes key from data/keys/index. Caller must hold s.mu.
func (s *Store) removeLocked(key string) {
	i, ok := s.index[key]
	if !ok {
		return
	}
	last := len(s.keys) - 1
	lastKey := s.keys[last]

	s.keys[i] = lastKey
	s.index[lastKey] = i

	s.keys = s.keys[:last]
	delete(s.index, key)
	delete(s.data, key)
}

func (s *Store) reportLen() {
	if s.metrics != nil {
		s.metrics.SetKeysTotal(len(s.keys))
	}
}

func (s *Store) reportHit() {
	if s.metrics != nil {
		s.metrics.IncStoreHit()
	}
}

func (s *Store) reportMiss() {
	if s.metrics != nil {
		s.metrics.IncStoreMiss()
	}
}
