package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const createSnapshotTable = `
	CREATE TABLE IF NOT EXISTS catalog_snapshots (
		doc_key    TEXT PRIMARY KEY,
		document   TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)
`

// SnapshotRepository stores named JSON documents in a single table.
type SnapshotRepository struct {
	db DB
}

// NewSnapshotRepository creates a repository and ensures its table exists.
func NewSnapshotRepository(ctx context.Context, db DB) (*SnapshotRepository, error) {
	if _, err := db.ExecContext(ctx, createSnapshotTable); err != nil {
		return nil, fmt.Errorf("create catalog_snapshots: %w", err)
	}
	return &SnapshotRepository{db: db}, nil
}

// GetDocument returns the document stored under key, or ErrNotFound.
func (r *SnapshotRepository) GetDocument(ctx context.Context, key string) ([]byte, error) {
	query := `SELECT document FROM catalog_snapshots WHERE doc_key = $1`

	var doc string
	err := r.db.QueryRowContext(ctx, query, key).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", key, err)
	}
	return []byte(doc), nil
}

// PutDocuments upserts every document in one transaction.
func (r *SnapshotRepository) PutDocuments(ctx context.Context, docs map[string][]byte) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	query := `
		INSERT INTO catalog_snapshots (doc_key, document, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (doc_key) DO UPDATE SET document = excluded.document, updated_at = excluded.updated_at
	`
	now := time.Now().UTC()
	for key, doc := range docs {
		if _, err := tx.ExecContext(ctx, query, key, string(doc), now); err != nil {
			return fmt.Errorf("put document %s: %w", key, err)
		}
	}

	return tx.Commit()
}

// DeleteAll removes every stored document.
func (r *SnapshotRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM catalog_snapshots`); err != nil {
		return fmt.Errorf("delete snapshot documents: %w", err)
	}
	return nil
}
