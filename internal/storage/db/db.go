// Package db implements the key/value store gateway on SQLite.
package db

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"modrand/internal/storage/kv"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite database connection
type DB struct {
	*sql.DB
	kv.Notifier

	// serializes writers so change notifications see a consistent old value
	mu sync.Mutex
}

var _ kv.Store = (*DB)(nil)

// New creates a new database connection and runs migrations
func New(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection keeps ":memory:" databases shared and writes ordered.
	sqlDB.SetMaxOpenConns(1)

	if _, err := sqlDB.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("setting pragmas: %w", err)
	}

	database := &DB{DB: sqlDB}

	if err := database.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return database, nil
}

// Get returns the stored values for keys; missing keys are absent from the result.
func (d *DB) Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}

	rows, err := d.QueryContext(ctx, `SELECT key, value FROM kv WHERE key IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying values: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scanning value: %w", err)
		}
		out[key] = json.RawMessage(value)
	}

	return out, rows.Err()
}

// Set upserts every value in one transaction and then notifies subscribers
// of the keys whose stored value changed.
func (d *DB) Set(ctx context.Context, values map[string]any) error {
	encoded, err := kv.Encode(values)
	if err != nil {
		return err
	}

	d.mu.Lock()
	changes, err := d.write(ctx, encoded)
	d.mu.Unlock()
	if err != nil {
		return err
	}

	d.Publish(changes)
	return nil
}

func (d *DB) write(ctx context.Context, encoded map[string]json.RawMessage) (changes []kv.Change, retErr error) {
	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning write: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	for key, value := range encoded {
		var old []byte
		err := tx.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&old)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("reading %s: %w", key, err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
		`, key, []byte(value)); err != nil {
			return nil, fmt.Errorf("writing %s: %w", key, err)
		}

		if old != nil && bytes.Equal(old, value) {
			continue
		}
		changes = append(changes, kv.Change{Key: key, OldValue: old, NewValue: value})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing write: %w", err)
	}
	return changes, nil
}
