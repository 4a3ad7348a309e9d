package namedlock

import (
	"sort"
	"sync"
)

// Locker hands out one mutex per key, so writers to the same resource
// (a stock item name, a customer/coupon/day claim key) are serialized
// while writers to different resources proceed in parallel. Mutexes are
// never discarded; the key space here is small and bounded by the
// catalog and customer base.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates an empty Locker.
func New() *Locker {
	return &Locker{locks: make(map[string]*sync.Mutex)}
}

func (l *Locker) get(key string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	return m
}

// Lock acquires the mutex for key.
func (l *Locker) Lock(key string) {
	l.get(key).Lock()
}

// Unlock releases the mutex for key.
func (l *Locker) Unlock(key string) {
	l.get(key).Unlock()
}

// LockAll acquires the mutexes for all keys in sorted order, so two
// callers locking overlapping sets can never deadlock. The returned
// function releases them in reverse order.
func (l *Locker) LockAll(keys []string) func() {
	sorted := make([]string, len(keys))
	copy(sorted, keys)
	sort.Strings(sorted)

	// Drop duplicates: locking the same key twice would self-deadlock.
	deduped := sorted[:0]
	for i, k := range sorted {
		if i == 0 || sorted[i-1] != k {
			deduped = append(deduped, k)
		}
	}

	for _, k := range deduped {
		l.Lock(k)
	}

	return func() {
		for i := len(deduped) - 1; i >= 0; i-- {
			l.Unlock(deduped[i])
		}
	}
}
