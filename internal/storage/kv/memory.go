package kv

import (
	"sync"
	"time"
)

type memEntry struct {
	value   any
	expires time.Time // zero means no expiry
	created time.Time
}

func (e memEntry) expired() bool {
	return !e.expires.IsZero() && time.Now().After(e.expires)
}

// MemoryBucket keeps its entries in process memory. Expired entries
// are dropped lazily on access and by the manager's cleanup pass.
type MemoryBucket struct {
	name string

	mu      sync.Mutex
	entries map[string]memEntry
}

// NewMemoryBucket creates an empty in-memory bucket.
func NewMemoryBucket(name string) *MemoryBucket {
	return &MemoryBucket{
		name:    name,
		entries: make(map[string]memEntry),
	}
}

// Name returns the bucket name.
func (b *MemoryBucket) Name() string {
	return b.name
}

// Store saves a value under the key.
func (b *MemoryBucket) Store(key string, value any, opts *StoreOptions) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	e := memEntry{value: value, created: now}
	if opts != nil && opts.TTL > 0 {
		e.expires = now.Add(opts.TTL)
	}
	if prev, ok := b.entries[key]; ok && !prev.expired() {
		e.created = prev.created
	}

	b.entries[key] = e
	return nil
}

// Get returns the value, or nil when missing or expired.
func (b *MemoryBucket) Get(key string) (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[key]
	if !ok {
		return nil, nil
	}
	if e.expired() {
		delete(b.entries, key)
		return nil, nil
	}
	return e.value, nil
}

// Exists reports whether the key holds an unexpired value.
func (b *MemoryBucket) Exists(key string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[key]
	if !ok {
		return false, nil
	}
	if e.expired() {
		delete(b.entries, key)
		return false, nil
	}
	return true, nil
}

// Delete removes the key and reports whether it was present.
func (b *MemoryBucket) Delete(key string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, ok := b.entries[key]
	delete(b.entries, key)
	return ok, nil
}

// Keys lists all unexpired keys, dropping expired ones on the way.
func (b *MemoryBucket) Keys() ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var keys []string
	for key, e := range b.entries {
		if e.expired() {
			delete(b.entries, key)
			continue
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// Clear empties the bucket.
func (b *MemoryBucket) Clear() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries = make(map[string]memEntry)
	return nil
}

// CleanupExpired drops expired entries and returns how many went.
func (b *MemoryBucket) CleanupExpired() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := 0
	for key, e := range b.entries {
		if e.expired() {
			delete(b.entries, key)
			n++
		}
	}
	return n
}
