// Package filter implements a generic time-expiring map and, on top of
// it, the routing message dedup filters.
//
// Eviction is lazy and happens-before every lookup and insert, driven by
// a benbjohnson/clock.Clock so tests can advance time deterministically
// instead of sleeping.
package filter

import (
	"container/list"
	"sync"

	"github.com/benbjohnson/clock"
)

// TTLFilter is a mapping from K to V with two retention policies enforced
// on every mutating call: a TTL (entries older than expiry are evicted)
// and an optional LRU capacity bound.
type TTLFilter[K comparable, V any] struct {
	mu       sync.Mutex
	clock    clock.Clock
	ttl      int64 // nanoseconds
	capacity int   // 0 = unbounded
	entries  map[K]*list.Element
	order    *list.List // front = most recently inserted
}

type entry[K comparable, V any] struct {
	key        K
	value      V
	insertedAt int64 // UnixNano per f.clock
	count      int
}

// New creates a TTLFilter with the given expiry duration in nanoseconds
// and an optional capacity (0 disables the LRU bound).
func New[K comparable, V any](ttlNanos int64, capacity int, clk clock.Clock) *TTLFilter[K, V] {
	if clk == nil {
		clk = clock.New()
	}
	return &TTLFilter[K, V]{
		clock:    clk,
		ttl:      ttlNanos,
		capacity: capacity,
		entries:  make(map[K]*list.Element),
		order:    list.New(),
	}
}

// evictExpired removes every entry older than the TTL, oldest first. Must
// be called with f.mu held.
func (f *TTLFilter[K, V]) evictExpired() {
	now := f.clock.Now().UnixNano()
	for {
		back := f.order.Back()
		if back == nil {
			return
		}
		e := back.Value.(*entry[K, V])
		if now-e.insertedAt < f.ttl {
			return
		}
		f.order.Remove(back)
		delete(f.entries, e.key)
	}
}

// Insert records an occurrence of k, refreshing its TTL and value. It
// returns the prior value if k was already live in the filter.
func (f *TTLFilter[K, V]) Insert(k K, v V) (prior V, hadPrior bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evictExpired()

	now := f.clock.Now().UnixNano()
	if el, ok := f.entries[k]; ok {
		e := el.Value.(*entry[K, V])
		prior, hadPrior = e.value, true
		e.value = v
		e.insertedAt = now
		e.count++
		f.order.MoveToFront(el)
		return prior, hadPrior
	}

	e := &entry[K, V]{key: k, value: v, insertedAt: now, count: 1}
	el := f.order.PushFront(e)
	f.entries[k] = el

	if f.capacity > 0 && f.order.Len() > f.capacity {
		oldest := f.order.Back()
		if oldest != nil {
			old := oldest.Value.(*entry[K, V])
			f.order.Remove(oldest)
			delete(f.entries, old.key)
		}
	}
	var zero V
	return zero, false
}

// Contains reports whether k is currently live (not expired) in the
// filter.
func (f *TTLFilter[K, V]) Contains(k K) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evictExpired()
	_, ok := f.entries[k]
	return ok
}

// Count returns how many times k has been inserted within its current
// live window (0 if k is not present or has expired).
func (f *TTLFilter[K, V]) Count(k K) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evictExpired()
	el, ok := f.entries[k]
	if !ok {
		return 0
	}
	return el.Value.(*entry[K, V]).count
}

// Len returns the number of live entries, after evicting expired ones.
func (f *TTLFilter[K, V]) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evictExpired()
	return f.order.Len()
}
