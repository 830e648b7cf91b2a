package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/mattn/go-sqlite3"
)

func TestClassify_Busy(t *testing.T) {
	err := classify(fmt.Errorf("exec: %w", sqlite3.Error{Code: sqlite3.ErrBusy}))
	if !IsBlocked(err) {
		t.Errorf("IsBlocked(%v) = false", err)
	}

	err = classify(sqlite3.Error{Code: sqlite3.ErrLocked})
	if !IsBlocked(err) {
		t.Errorf("IsBlocked(%v) = false", err)
	}
}

func TestClassify_Other(t *testing.T) {
	base := errors.New("disk I/O error")
	if got := classify(base); got != base || IsBlocked(got) {
		t.Errorf("classify() altered unrelated error: %v", got)
	}
	if classify(nil) != nil {
		t.Error("classify(nil) != nil")
	}
}

func TestErrorTypes_Unwrap(t *testing.T) {
	open := &StoreOpenError{Name: "db", Version: 1, Err: ErrBlocked}
	if !IsBlocked(open) {
		t.Error("StoreOpenError does not unwrap")
	}
	if open.Error() != `open store "db" at version 1: store is locked by another connection` {
		t.Errorf("Error() = %q", open.Error())
	}

	write := &WriteError{Collection: Collection, Count: 2, Err: ErrClosed}
	if !errors.Is(write, ErrClosed) {
		t.Error("WriteError does not unwrap")
	}

	read := &ReadError{Collection: Collection, Err: ErrClosed}
	if !errors.Is(read, ErrClosed) {
		t.Error("ReadError does not unwrap")
	}
}
