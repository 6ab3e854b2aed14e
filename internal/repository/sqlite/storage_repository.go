// Package sqlite stores client key/value data in a local SQLite file.
// It is the default driver of the CLI and of single-node portal deployments.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"naspac-portal/internal/domain"

	_ "modernc.org/sqlite"
)

const schema = `
	CREATE TABLE IF NOT EXISTS client_storage (
		namespace  TEXT    NOT NULL,
		key        TEXT    NOT NULL,
		value      TEXT    NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (namespace, key)
	);
	CREATE INDEX IF NOT EXISTS idx_client_storage_updated_at ON client_storage (updated_at);
`

// StorageRepository implements domain.StorageRepository on SQLite
type StorageRepository struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating when needed) the database file at path and applies the schema.
// Use ":memory:" for a throwaway database.
func Open(ctx context.Context, path string) (*StorageRepository, error) {
	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// SQLite serialises writers; one connection also keeps ":memory:" databases shared
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &StorageRepository{db: db, now: time.Now}, nil
}

func (r *StorageRepository) Get(ctx context.Context, namespace, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM client_storage WHERE namespace = ? AND key = ?`,
		namespace, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrKeyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get %s: %w", key, err)
	}
	return value, nil
}

func (r *StorageRepository) Set(ctx context.Context, namespace, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO client_storage (namespace, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (namespace, key)
		DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		namespace, key, value, r.now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func (r *StorageRepository) Delete(ctx context.Context, namespace, key string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM client_storage WHERE namespace = ? AND key = ?`,
		namespace, key,
	)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// DeleteStale drops every namespace whose newest write is older than before
func (r *StorageRepository) DeleteStale(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM client_storage
		WHERE namespace IN (
			SELECT namespace FROM client_storage
			GROUP BY namespace
			HAVING MAX(updated_at) < ?
		)`,
		before.UnixNano(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale storage: %w", err)
	}
	return result.RowsAffected()
}

func (r *StorageRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *StorageRepository) Close() error {
	return r.db.Close()
}
