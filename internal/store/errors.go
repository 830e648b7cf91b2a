package store

import (
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

var (
	// ErrInvalidName indicates an empty store name or one containing a path separator.
	ErrInvalidName = errors.New("invalid store name")

	// ErrInvalidVersion indicates a version lower than 1.
	ErrInvalidVersion = errors.New("store version must be at least 1")

	// ErrVersionDowngrade indicates the store was opened at a version lower
	// than the one already persisted.
	ErrVersionDowngrade = errors.New("requested version is lower than the persisted version")

	// ErrBlocked indicates another connection held the store lock past the busy timeout.
	ErrBlocked = errors.New("store is locked by another connection")

	// ErrClosed indicates use of a handle after Close.
	ErrClosed = errors.New("store handle is closed")
)

// StoreOpenError reports a failure to open or upgrade a store.
type StoreOpenError struct {
	Name    string
	Version int
	Err     error
}

func (e *StoreOpenError) Error() string {
	return fmt.Sprintf("open store %q at version %d: %v", e.Name, e.Version, e.Err)
}

func (e *StoreOpenError) Unwrap() error {
	return e.Err
}

// WriteError reports a failed upsert unit of work. No record of the batch
// is visible after a WriteError.
type WriteError struct {
	Collection string
	Count      int
	Err        error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %d records to %s: %v", e.Count, e.Collection, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// ReadError reports a failed scan of a collection.
type ReadError struct {
	Collection string
	Err        error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Collection, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// IsBlocked returns true if the error was caused by lock contention.
// Uses errors.Is to handle wrapped errors.
func IsBlocked(err error) bool {
	return errors.Is(err, ErrBlocked)
}

// IsVersionDowngrade returns true if the store was opened below its persisted version.
func IsVersionDowngrade(err error) bool {
	return errors.Is(err, ErrVersionDowngrade)
}

// classify tags SQLite lock contention with ErrBlocked.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var se sqlite3.Error
	if errors.As(err, &se) && (se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked) {
		return fmt.Errorf("%w: %w", ErrBlocked, err)
	}
	return err
}
