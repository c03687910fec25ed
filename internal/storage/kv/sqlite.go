package kv

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// SQLiteBucket stores its entries in the kv_store table, values
// serialized as JSON. Expiry is checked on read and enforced in bulk by
// the manager's cleanup pass.
type SQLiteBucket struct {
	db   *sql.DB
	name string
}

// NewSQLiteBucket creates a bucket view over the kv_store table.
func NewSQLiteBucket(db *sql.DB, name string) *SQLiteBucket {
	return &SQLiteBucket{db: db, name: name}
}

// Name returns the bucket name.
func (b *SQLiteBucket) Name() string {
	return b.name
}

// Store saves a value under the key.
func (b *SQLiteBucket) Store(key string, value any, opts *StoreOptions) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal value for %s/%s: %w", b.name, key, err)
	}

	now := time.Now().UTC().Unix()
	var expires *int64
	if opts != nil && opts.TTL > 0 {
		exp := time.Now().Add(opts.TTL).UTC().Unix()
		expires = &exp
	}

	_, err = b.db.Exec(`
		INSERT INTO kv_store (bucket, key, value, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(bucket, key) DO UPDATE SET
			value = excluded.value,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
	`, b.name, key, string(data), expires, now, now)
	if err != nil {
		return fmt.Errorf("store %s/%s: %w", b.name, key, err)
	}
	return nil
}

// row fetches the raw value of a key. live is false when the key is
// missing or expired; expired rows are deleted on the way out.
func (b *SQLiteBucket) row(key string) (raw string, live bool, err error) {
	var expires sql.NullInt64
	err = b.db.QueryRow(`
		SELECT value, expires_at FROM kv_store
		WHERE bucket = ? AND key = ?
	`, b.name, key).Scan(&raw, &expires)

	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read %s/%s: %w", b.name, key, err)
	}

	if expires.Valid && time.Now().UTC().Unix() > expires.Int64 {
		_, _ = b.db.Exec(`DELETE FROM kv_store WHERE bucket = ? AND key = ?`, b.name, key)
		return "", false, nil
	}
	return raw, true, nil
}

// Get returns the value, or nil when missing or expired.
func (b *SQLiteBucket) Get(key string) (any, error) {
	raw, live, err := b.row(key)
	if err != nil || !live {
		return nil, err
	}

	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return nil, fmt.Errorf("unmarshal %s/%s: %w", b.name, key, err)
	}
	return value, nil
}

// Exists reports whether the key holds an unexpired value.
func (b *SQLiteBucket) Exists(key string) (bool, error) {
	_, live, err := b.row(key)
	return live, err
}

// Delete removes the key and reports whether it was present.
func (b *SQLiteBucket) Delete(key string) (bool, error) {
	res, err := b.db.Exec(`
		DELETE FROM kv_store WHERE bucket = ? AND key = ?
	`, b.name, key)
	if err != nil {
		return false, fmt.Errorf("delete %s/%s: %w", b.name, key, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Keys lists all unexpired keys.
func (b *SQLiteBucket) Keys() ([]string, error) {
	rows, err := b.db.Query(`
		SELECT key FROM kv_store
		WHERE bucket = ? AND (expires_at IS NULL OR expires_at > ?)
	`, b.name, time.Now().UTC().Unix())
	if err != nil {
		return nil, fmt.Errorf("list keys of %s: %w", b.name, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// Clear empties the bucket.
func (b *SQLiteBucket) Clear() error {
	if _, err := b.db.Exec(`DELETE FROM kv_store WHERE bucket = ?`, b.name); err != nil {
		return fmt.Errorf("clear %s: %w", b.name, err)
	}
	return nil
}

// purgeExpired removes every expired row across all persistent buckets.
func purgeExpired(db *sql.DB) (int64, error) {
	res, err := db.Exec(`
		DELETE FROM kv_store WHERE expires_at IS NOT NULL AND expires_at <= ?
	`, time.Now().UTC().Unix())
	if err != nil {
		return 0, fmt.Errorf("purge expired kv entries: %w", err)
	}
	return res.RowsAffected()
}
