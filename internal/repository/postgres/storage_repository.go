// Package postgres stores client key/value data in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"naspac-portal/internal/domain"
)

const (
	getQuery = `
		SELECT value FROM client_storage
		WHERE namespace = $1 AND key = $2
	`
	setQuery = `
		INSERT INTO client_storage (namespace, key, value, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (namespace, key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`
	deleteQuery = `DELETE FROM client_storage WHERE namespace = $1 AND key = $2`

	// a namespace is stale when none of its keys was written after the cutoff
	deleteStaleQuery = `
		DELETE FROM client_storage
		WHERE namespace IN (
			SELECT namespace FROM client_storage
			GROUP BY namespace
			HAVING MAX(updated_at) < $1
		)
	`
)

// StorageRepository implements domain.StorageRepository for PostgreSQL
type StorageRepository struct {
	db              *sql.DB
	getStmt         *sql.Stmt
	setStmt         *sql.Stmt
	deleteStmt      *sql.Stmt
	deleteStaleStmt *sql.Stmt
	now             func() time.Time
}

// NewStorageRepository creates a StorageRepository with prepared statements.
// The schema must exist; see EnsureSchema.
func NewStorageRepository(db *sql.DB) (*StorageRepository, error) {
	repo := &StorageRepository{db: db, now: time.Now}

	var err error
	repo.getStmt, err = db.Prepare(getQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare get statement: %w", err)
	}

	repo.setStmt, err = db.Prepare(setQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare set statement: %w", err)
	}

	repo.deleteStmt, err = db.Prepare(deleteQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare delete statement: %w", err)
	}

	repo.deleteStaleStmt, err = db.Prepare(deleteStaleQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare deleteStale statement: %w", err)
	}

	return repo, nil
}

func (r *StorageRepository) Get(ctx context.Context, namespace, key string) (string, error) {
	var value string
	err := r.getStmt.QueryRowContext(ctx, namespace, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrKeyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get %s: %w", key, err)
	}
	return value, nil
}

func (r *StorageRepository) Set(ctx context.Context, namespace, key, value string) error {
	if _, err := r.setStmt.ExecContext(ctx, namespace, key, value, r.now().UTC()); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func (r *StorageRepository) Delete(ctx context.Context, namespace, key string) error {
	if _, err := r.deleteStmt.ExecContext(ctx, namespace, key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (r *StorageRepository) DeleteStale(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.deleteStaleStmt.ExecContext(ctx, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale storage: %w", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return count, nil
}

func (r *StorageRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close releases the prepared statements and the connection pool
func (r *StorageRepository) Close() error {
	for _, stmt := range []*sql.Stmt{r.getStmt, r.setStmt, r.deleteStmt, r.deleteStaleStmt} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return r.db.Close()
}
