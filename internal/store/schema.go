package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
)

//go:embed schema.sql
var schemaSQL string

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// ensureSchema creates the collection if it does not exist.
func ensureSchema(ctx context.Context, db execer) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", classify(err))
	}
	return nil
}

// EnsureSchema creates the collection if it is absent. It does not touch
// the persisted version and is safe to call any number of times.
func (h *Handle) EnsureSchema(ctx context.Context) error {
	if err := h.checkOpen(); err != nil {
		return err
	}
	return ensureSchema(ctx, h.db)
}

// HasCollection reports whether the collection table exists.
func (h *Handle) HasCollection(ctx context.Context) (bool, error) {
	if err := h.checkOpen(); err != nil {
		return false, err
	}
	var count int
	err := h.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?",
		Collection,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check collection: %w", classify(err))
	}
	return count > 0, nil
}

// SchemaVersion returns the persisted schema version.
func (h *Handle) SchemaVersion(ctx context.Context) (int, error) {
	if err := h.checkOpen(); err != nil {
		return 0, err
	}
	return userVersion(ctx, h.db)
}

// Count returns the number of records in the collection.
func (h *Handle) Count(ctx context.Context) (int, error) {
	if err := h.checkOpen(); err != nil {
		return 0, err
	}
	var n int
	if err := h.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+Collection).Scan(&n); err != nil {
		return 0, &ReadError{Collection: Collection, Err: classify(err)}
	}
	return n, nil
}
