// package repositories provides SQLite-backed persistence for the sync
// engine: a namespaced key-value store implementing the local persistence
// adapter, and a log of terminal delivery failures.
package repositories

import (
	"database/sql"

	"github.com/charmbracelet/log"

	"github.com/myatdennis/coursesync/internal/shared"
)

// KVRepository implements store.Adapter over the namespaces table.
//
// Serves deployments that want a single embedded database file instead of a
// directory of JSON documents; upsert semantics make concurrent sessions
// last-write-wins, same as the file adapter.
type KVRepository struct {
	db     *sql.DB
	logger *log.Logger
}

// NewKVRepository creates a KVRepository with the given database connection.
func NewKVRepository(db *sql.DB, logger *log.Logger) *KVRepository {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &KVRepository{db: db, logger: logger}
}

// Read returns the document stored for key, or ok=false if absent.
func (r *KVRepository) Read(key string) ([]byte, bool) {
	var value string
	err := r.db.QueryRow("SELECT value FROM namespaces WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false
	}
	if err != nil {
		r.logger.Warn("kv read failed", "key", key, "err", err)
		return nil, false
	}
	return []byte(value), true
}

// Write upserts the document for key. Failures are logged and reported as
// false per the adapter contract.
func (r *KVRepository) Write(key string, data []byte) bool {
	query := `
		INSERT INTO namespaces (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`
	if _, err := r.db.Exec(query, key, string(data)); err != nil {
		r.logger.Warn("kv write failed", "key", key, "err", err)
		return false
	}
	return true
}

// Delete removes the document for key. Used by tests and maintenance
// commands; the sync engine itself only supersedes documents.
func (r *KVRepository) Delete(key string) error {
	_, err := r.db.Exec("DELETE FROM namespaces WHERE key = ?", key)
	return err
}
