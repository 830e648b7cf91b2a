package store

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/roach88/postcache/internal/record"
)

// testOptions returns options for a fresh store in a temp directory.
func testOptions(t *testing.T) Options {
	t.Helper()
	return Options{
		Dir:     t.TempDir(),
		Name:    DefaultName,
		Version: DefaultVersion,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// openTestStore opens a store and registers cleanup.
func openTestStore(t *testing.T, opts Options) *Handle {
	t.Helper()
	h, err := Open(context.Background(), opts)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { h.Close() })
	return h
}

// createTestStore creates a new store at the default name and version.
func createTestStore(t *testing.T) *Handle {
	t.Helper()
	return openTestStore(t, testOptions(t))
}

// post builds a record with an integer id and a title.
func post(id int, title string) record.Record {
	return record.MustNew(map[string]any{"id": id, "title": title})
}

// byID indexes records by their rendered id.
func byID(t *testing.T, records []record.Record) map[record.ID]record.Record {
	t.Helper()
	m := make(map[record.ID]record.Record, len(records))
	for _, r := range records {
		if _, dup := m[r.ID]; dup {
			t.Fatalf("duplicate id %s in read result", r.ID)
		}
		m[r.ID] = r
	}
	return m
}
