// Package keyedlock provides per-key mutual exclusion for serializing
// read-modify-write cycles on a single entity (one lead, one call) while
// leaving unrelated keys fully parallel.
// This is part of the platform layer and contains no business logic.
package keyedlock

import "sync"

type entry struct {
	mu   sync.Mutex
	refs int
}

// KeyedLock serializes callers that lock the same key. Entries are reference
// counted and removed once the last holder unlocks, so the map does not grow
// with the keyspace.
type KeyedLock struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// New creates an empty KeyedLock.
func New() *KeyedLock {
	return &KeyedLock{entries: make(map[string]*entry)}
}

// Lock acquires the mutex for key, blocking while another caller holds it.
// The returned function releases the lock and must be called exactly once.
func (k *KeyedLock) Lock(key string) func() {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &entry{}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.entries, key)
		}
		k.mu.Unlock()
	}
}
