// Package kv backs the Lua kv module: named buckets of small values
// with optional TTL. Persistent buckets share the daemon's SQLite
// database, memory buckets vanish on restart.
package kv

import "time"

// StoreOptions carries the optional parameters of a Store call.
type StoreOptions struct {
	TTL time.Duration // zero means the value never expires
}

// Bucket is one key-value namespace. Values are strings, numbers,
// booleans, or nested maps and arrays of those.
type Bucket interface {
	// Name returns the bucket name.
	Name() string

	// Store saves a value under the key, replacing any previous one.
	Store(key string, value any, opts *StoreOptions) error

	// Get returns the value, or nil when the key is missing or expired.
	Get(key string) (any, error)

	// Exists reports whether the key holds an unexpired value.
	Exists(key string) (bool, error)

	// Delete removes the key and reports whether it was present.
	Delete(key string) (bool, error)

	// Keys lists all unexpired keys.
	Keys() ([]string, error)

	// Clear empties the bucket.
	Clear() error
}
