package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/postcache/internal/record"
)

// ReadAll returns every record in the collection, integer ids ascending
// before string ids ascending. Callers should not rely on the order.
//
// Returns an empty slice (not nil) when nothing has been stored.
// Failures are returned as *ReadError.
func (h *Handle) ReadAll(ctx context.Context) ([]record.Record, error) {
	records, err := h.readAll(ctx)
	if err != nil {
		return nil, &ReadError{Collection: Collection, Err: err}
	}
	return records, nil
}

func (h *Handle) readAll(ctx context.Context) ([]record.Record, error) {
	if err := h.checkOpen(); err != nil {
		return nil, err
	}

	tx, err := h.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", classify(err))
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT id, body
		FROM posts
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", classify(err))
	}
	defer rows.Close()

	records := []record.Record{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", classify(err))
	}

	return records, nil
}

// scanRecord decodes one row and checks the key column against the body.
func scanRecord(rows *sql.Rows) (record.Record, error) {
	var rawID any
	var body string
	if err := rows.Scan(&rawID, &body); err != nil {
		return record.Record{}, fmt.Errorf("scan record: %w", err)
	}

	key, err := record.ParseID(rawID)
	if err != nil {
		return record.Record{}, fmt.Errorf("scan record key: %w", err)
	}

	r, err := record.Decode([]byte(body))
	if err != nil {
		return record.Record{}, fmt.Errorf("record %s: %w", key, err)
	}
	if r.ID != key {
		return record.Record{}, fmt.Errorf("record %s: body id %s does not match key", key, r.ID)
	}
	return r, nil
}
