package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	_ "github.com/mattn/go-sqlite3"
)

// Collection is the name of the single collection held by a store.
const Collection = "posts"

// Default store identity used by the application.
const (
	DefaultName    = "miBaseDeDatos"
	DefaultVersion = 1
)

// Options identifies a store and how to open it.
type Options struct {
	// Dir is the directory holding the store file. Empty means the
	// current working directory.
	Dir string

	// Name is the store name; the file is <Dir>/<Name>.db.
	Name string

	// Version is the requested schema version (>= 1).
	Version int

	// Logger receives open/upgrade/write diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

// Path returns the database file path for these options.
func (o Options) Path() string {
	return filepath.Join(o.Dir, o.Name+".db")
}

// ValidateName rejects store names that cannot be used as a file name
// inside Dir or that would change the DSN.
func ValidateName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\?`) || name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

func (o Options) validate() error {
	if err := ValidateName(o.Name); err != nil {
		return err
	}
	if o.Version < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidVersion, o.Version)
	}
	return nil
}

// Handle is an opened store. Each Open returns an independent handle;
// handles are safe for concurrent use.
type Handle struct {
	db      *sql.DB
	name    string
	version int
	path    string
	logger  *slog.Logger
	closed  atomic.Bool
}

// Open creates or opens the store described by opts and brings its schema
// up to opts.Version.
//
// Failures are returned as *StoreOpenError. Lock contention past the busy
// timeout wraps ErrBlocked; opening below the persisted version wraps
// ErrVersionDowngrade.
func Open(ctx context.Context, opts Options) (*Handle, error) {
	if err := opts.validate(); err != nil {
		return nil, &StoreOpenError{Name: opts.Name, Version: opts.Version, Err: err}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	h, err := open(ctx, opts, logger)
	if err != nil {
		logger.Error("store open failed", "store", opts.Name, "version", opts.Version, "error", err)
		return nil, &StoreOpenError{Name: opts.Name, Version: opts.Version, Err: err}
	}
	return h, nil
}

func open(ctx context.Context, opts Options, logger *slog.Logger) (*Handle, error) {
	path := opts.Path()

	// sql.Open with a missing parent directory only fails on first use.
	if opts.Dir != "" {
		if _, err := os.Stat(opts.Dir); err != nil {
			return nil, fmt.Errorf("store directory: %w", err)
		}
	}

	// busy_timeout in the DSN applies to every pooled connection.
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", classify(err))
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	from, err := upgrade(ctx, db, opts.Version)
	if err != nil {
		db.Close()
		return nil, err
	}
	if from < opts.Version {
		logger.Info("store schema upgraded", "store", opts.Name, "from", from, "to", opts.Version)
	}
	logger.Debug("store opened", "store", opts.Name, "version", opts.Version, "path", path)

	return &Handle{
		db:      db,
		name:    opts.Name,
		version: opts.Version,
		path:    path,
		logger:  logger,
	}, nil
}

// Name returns the store name.
func (h *Handle) Name() string {
	return h.name
}

// Version returns the version the handle was opened at.
func (h *Handle) Version() int {
	return h.version
}

// Path returns the database file path.
func (h *Handle) Path() string {
	return h.path
}

// Close releases the handle. Further calls are no-ops.
func (h *Handle) Close() error {
	if h.db == nil || h.closed.Swap(true) {
		return nil
	}
	return h.db.Close()
}

func (h *Handle) checkOpen() error {
	if h.db == nil || h.closed.Load() {
		return ErrClosed
	}
	return nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, classify(err))
		}
	}

	return nil
}

// upgrade brings the persisted user_version up to version, creating the
// collection on the way. It returns the version found before the upgrade.
//
// The check is repeated under BEGIN IMMEDIATE so that when several handles
// open a new store at once only the first to take the write lock runs the
// schema step; the others see the new version and commit nothing.
func upgrade(ctx context.Context, db *sql.DB, version int) (int, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", classify(err))
	}
	defer conn.Close()

	current, err := userVersion(ctx, conn)
	if err != nil {
		return 0, err
	}
	if current > version {
		return current, fmt.Errorf("%w: persisted %d, requested %d", ErrVersionDowngrade, current, version)
	}
	if current == version {
		return current, nil
	}

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return current, fmt.Errorf("begin upgrade: %w", classify(err))
	}
	committed := false
	defer func() {
		if !committed {
			_, _ = conn.ExecContext(context.Background(), "ROLLBACK")
		}
	}()

	current, err = userVersion(ctx, conn)
	if err != nil {
		return 0, err
	}
	if current > version {
		return current, fmt.Errorf("%w: persisted %d, requested %d", ErrVersionDowngrade, current, version)
	}
	if current < version {
		if err := ensureSchema(ctx, conn); err != nil {
			return current, err
		}
		// PRAGMA does not take bind parameters; version is a validated int.
		if _, err := conn.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
			return current, fmt.Errorf("set user_version: %w", err)
		}
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return current, fmt.Errorf("commit upgrade: %w", classify(err))
	}
	committed = true
	return current, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func userVersion(ctx context.Context, q queryer) (int, error) {
	var version int
	if err := q.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("get user_version: %w", classify(err))
	}
	return version, nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (h *Handle) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := h.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
