package kv

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Manager hands out buckets and owns the expiry cleanup. Buckets are
// created on first use; asking for the same name twice returns the
// same instance.
type Manager struct {
	db *sql.DB

	mu      sync.RWMutex
	buckets map[string]Bucket
}

// NewManager creates a manager over the shared database.
func NewManager(db *sql.DB) *Manager {
	return &Manager{
		db:      db,
		buckets: make(map[string]Bucket),
	}
}

// Bucket returns the named bucket, creating it on first use. A
// persistent bucket is backed by SQLite, otherwise it lives in memory.
func (m *Manager) Bucket(name string, persistent bool) Bucket {
	m.mu.Lock()
	defer m.mu.Unlock()

	if b, ok := m.buckets[name]; ok {
		return b
	}

	var b Bucket
	if persistent {
		b = NewSQLiteBucket(m.db, name)
	} else {
		b = NewMemoryBucket(name)
	}
	m.buckets[name] = b

	log.Debug().Str("bucket", name).Bool("persistent", persistent).Msg("Created KV bucket")
	return b
}

// Exists reports whether a bucket is known, either open in this
// process or present in the database.
func (m *Manager) Exists(name string) bool {
	m.mu.RLock()
	_, open := m.buckets[name]
	m.mu.RUnlock()
	if open {
		return true
	}

	var count int
	if err := m.db.QueryRow(`
		SELECT COUNT(DISTINCT bucket) FROM kv_store WHERE bucket = ?
	`, name).Scan(&count); err != nil {
		return false
	}
	return count > 0
}

// Delete drops a bucket and everything in it.
func (m *Manager) Delete(name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.buckets, name)

	res, err := m.db.Exec(`DELETE FROM kv_store WHERE bucket = ?`, name)
	if err != nil {
		return false, fmt.Errorf("delete bucket %s: %w", name, err)
	}

	n, _ := res.RowsAffected()
	if n > 0 {
		log.Debug().Str("bucket", name).Int64("keys_deleted", n).Msg("Deleted KV bucket")
	}
	return n > 0, nil
}

// List returns the names of all known buckets, open and persisted.
func (m *Manager) List() ([]string, error) {
	seen := make(map[string]bool)

	m.mu.RLock()
	for name := range m.buckets {
		seen[name] = true
	}
	m.mu.RUnlock()

	rows, err := m.db.Query(`SELECT DISTINCT bucket FROM kv_store`)
	if err != nil {
		return nil, fmt.Errorf("list buckets: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		seen[name] = true
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	return names, rows.Err()
}

// RunCleanup drops expired entries on the given cadence until the
// context ends. Run it in its own goroutine.
func (m *Manager) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Debug().Dur("interval", interval).Msg("KV cleanup running")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.cleanup()
		}
	}
}

func (m *Manager) cleanup() {
	if n, err := purgeExpired(m.db); err != nil {
		log.Warn().Err(err).Msg("Failed to purge expired KV entries")
	} else if n > 0 {
		log.Debug().Int64("count", n).Msg("Purged expired KV entries")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, b := range m.buckets {
		if mb, ok := b.(*MemoryBucket); ok {
			if n := mb.CleanupExpired(); n > 0 {
				log.Debug().Str("bucket", mb.Name()).Int("count", n).Msg("Purged expired KV entries")
			}
		}
	}
}
