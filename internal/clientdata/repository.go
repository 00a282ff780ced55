// Package clientdata provides persistent caching for external API client
// responses. Payloads are stored as msgpack blobs with expiration timestamps
// for cache-first behavior.
package clientdata

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Repository provides cache operations over cache.db.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new client data repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Store saves a value under symbol with expiration = now + ttl.
// Uses INSERT OR REPLACE to upsert.
func (r *Repository) Store(symbol string, value interface{}, ttl time.Duration) error {
	blob, err := msgpack.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache payload: %w", err)
	}

	expiresAt := time.Now().Add(ttl).Unix()

	_, err = r.db.Exec(
		"INSERT OR REPLACE INTO prices (symbol, data, expires_at) VALUES (?, ?, ?)",
		symbol, blob, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store cache entry for %s: %w", symbol, err)
	}

	return nil
}

// GetIfFresh decodes the cached value into dest only if expires_at > now.
// Returns false if the symbol is unknown or the entry has expired.
// Use Get to retrieve stale data as a fallback when API calls fail.
func (r *Repository) GetIfFresh(symbol string, dest interface{}) (bool, error) {
	var blob []byte
	err := r.db.QueryRow(
		"SELECT data FROM prices WHERE symbol = ? AND expires_at > ?",
		symbol, time.Now().Unix(),
	).Scan(&blob)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read cache entry for %s: %w", symbol, err)
	}

	if err := msgpack.Unmarshal(blob, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache payload for %s: %w", symbol, err)
	}

	return true, nil
}

// Get decodes the cached value regardless of expiration status.
// Stale data is better than no data when every upstream source is down.
func (r *Repository) Get(symbol string, dest interface{}) (bool, error) {
	var blob []byte
	err := r.db.QueryRow("SELECT data FROM prices WHERE symbol = ?", symbol).Scan(&blob)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read cache entry for %s: %w", symbol, err)
	}

	if err := msgpack.Unmarshal(blob, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache payload for %s: %w", symbol, err)
	}

	return true, nil
}

// Delete removes a specific entry.
func (r *Repository) Delete(symbol string) error {
	if _, err := r.db.Exec("DELETE FROM prices WHERE symbol = ?", symbol); err != nil {
		return fmt.Errorf("failed to delete cache entry for %s: %w", symbol, err)
	}
	return nil
}

// DeleteExpired removes all rows where expires_at < now.
// Returns the number of rows deleted.
func (r *Repository) DeleteExpired() (int64, error) {
	result, err := r.db.Exec("DELETE FROM prices WHERE expires_at < ?", time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired cache entries: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return deleted, nil
}
