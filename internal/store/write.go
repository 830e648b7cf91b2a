package store

import (
	"context"
	"fmt"

	"github.com/roach88/postcache/internal/record"
)

const upsertSQL = `
	INSERT INTO posts (id, body)
	VALUES (?, ?)
	ON CONFLICT(id) DO UPDATE SET body = excluded.body
`

// WriteAll upserts every record in one transaction. A record whose id is
// already stored replaces the stored value wholesale; within one call a
// later duplicate id wins.
//
// Either the whole batch is visible after WriteAll returns nil, or none of
// it is and a *WriteError is returned. An empty batch succeeds without
// changing anything. There are no retries.
func (h *Handle) WriteAll(ctx context.Context, records []record.Record) error {
	if err := h.writeAll(ctx, records); err != nil {
		h.logger.Error("store write failed",
			"store", h.name, "collection", Collection, "count", len(records), "error", err)
		return &WriteError{Collection: Collection, Count: len(records), Err: err}
	}
	h.logger.Info("records stored", "store", h.name, "collection", Collection, "count", len(records))
	return nil
}

// WriteAllAsync issues WriteAll on its own goroutine. The returned channel
// receives exactly one value, nil or a *WriteError, and is then closed.
func (h *Handle) WriteAllAsync(ctx context.Context, records []record.Record) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(done)
		done <- h.WriteAll(ctx, records)
	}()
	return done
}

func (h *Handle) writeAll(ctx context.Context, records []record.Record) error {
	if err := h.checkOpen(); err != nil {
		return err
	}

	// Encode before starting the transaction so a bad record never holds the lock.
	bodies := make([]string, len(records))
	for i, r := range records {
		body, err := r.Canonical()
		if err != nil {
			return fmt.Errorf("encode record %s: %w", r.ID, err)
		}
		bodies[i] = string(body)
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", classify(err))
	}
	defer tx.Rollback() // No-op if committed

	stmt, err := tx.PrepareContext(ctx, upsertSQL)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", classify(err))
	}
	defer stmt.Close()

	for i, r := range records {
		if _, err := stmt.ExecContext(ctx, r.ID.Value(), bodies[i]); err != nil {
			return fmt.Errorf("upsert %s: %w", r.ID, classify(err))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", classify(err))
	}
	return nil
}
