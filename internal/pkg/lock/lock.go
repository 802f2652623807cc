// Package lock provides string-keyed locking for read-modify-write cycles
// against individual ledger records. Two goroutines updating the same key are
// serialized; updates to distinct keys proceed in parallel.
package lock

import (
	"sync"
)

// keyMutex wraps a mutex with a reference count covering the holder and any
// waiters; the table entry is removed once it drops to zero.
type keyMutex struct {
	mu       sync.Mutex
	refCount int
}

// KeyLock provides per-key mutual exclusion.
type KeyLock struct {
	mu    sync.Mutex
	locks map[string]*keyMutex
	pool  sync.Pool
}

// NewKeyLock creates a new KeyLock instance.
func NewKeyLock() *KeyLock {
	return &KeyLock{
		locks: map[string]*keyMutex{},
		pool: sync.Pool{
			New: func() any {
				return &keyMutex{}
			},
		},
	}
}

// retain bumps the key's reference count, creating the entry on first use.
func (kl *KeyLock) retain(key string) *keyMutex {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	km, ok := kl.locks[key]
	if !ok {
		km = kl.pool.Get().(*keyMutex)
		kl.locks[key] = km
	}
	km.refCount++
	return km
}

// release drops one reference and removes the entry when nobody holds or
// waits on the key anymore.
func (kl *KeyLock) release(key string, km *keyMutex) {
	kl.mu.Lock()
	km.refCount--
	idle := km.refCount == 0
	if idle {
		delete(kl.locks, key)
	}
	kl.mu.Unlock()

	if idle {
		kl.pool.Put(km)
	}
}

// Lock acquires the lock for a key.
func (kl *KeyLock) Lock(key string) {
	kl.retain(key).mu.Lock()
}

// Unlock releases the lock for a key.
func (kl *KeyLock) Unlock(key string) {
	kl.mu.Lock()
	km, ok := kl.locks[key]
	kl.mu.Unlock()
	if !ok {
		return
	}
	km.mu.Unlock()
	kl.release(key, km)
}

// TryLock attempts to acquire the lock without blocking.
func (kl *KeyLock) TryLock(key string) bool {
	km := kl.retain(key)
	if km.mu.TryLock() {
		return true
	}
	kl.release(key, km)
	return false
}

// WithLock executes fn while holding the key's lock.
func (kl *KeyLock) WithLock(key string, fn func() error) error {
	kl.Lock(key)
	defer kl.Unlock(key)
	return fn()
}
