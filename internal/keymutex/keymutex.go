// Package keymutex provides per-key mutual exclusion.
//
// Every operation that touches the same logical note runs inside that
// note's critical section; operations on different notes proceed
// concurrently. Waiters for one key are served in arrival order (the
// runtime's mutex hands the lock to the longest waiter once contention
// persists), and key entries are reference-counted so an idle mutex
// set holds no per-key state.
package keymutex

import "sync"

type entry struct {
	mu   sync.Mutex
	refs int
}

// KeyedMutex serializes critical sections per string key.
// The zero value is not usable; call New.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// New creates an empty KeyedMutex.
func New() *KeyedMutex {
	return &KeyedMutex{entries: make(map[string]*entry)}
}

// Lock acquires the critical section for key, blocking until any
// current holder and earlier waiters have released it.
func (k *KeyedMutex) Lock(key string) {
	k.mu.Lock()
	e := k.entries[key]
	if e == nil {
		e = &entry{}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
}

// Unlock releases the critical section for key. The entry is dropped
// once no holder or waiter references it.
func (k *KeyedMutex) Unlock(key string) {
	k.mu.Lock()
	e := k.entries[key]
	if e == nil {
		k.mu.Unlock()
		panic("keymutex: unlock of unheld key " + key)
	}
	e.refs--
	if e.refs == 0 {
		delete(k.entries, key)
	}
	k.mu.Unlock()

	e.mu.Unlock()
}

// WithLock runs fn inside the critical section for key.
func (k *KeyedMutex) WithLock(key string, fn func() error) error {
	k.Lock(key)
	defer k.Unlock(key)
	return fn()
}

// ActiveKeys reports how many keys currently have a holder or waiter.
// Surfaced through database stats for observability.
func (k *KeyedMutex) ActiveKeys() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}
