// Package store provides the SQLite-backed durable cache for fetched records.
//
// A store is a single SQLite file, <dir>/<name>.db, holding one collection:
// the posts table, keyed by record id. The store's schema version is the
// SQLite user_version.
//
// # Lifecycle
//
//   - Open validates the name and version, opens the file (creating it if
//     needed) and applies pragmas.
//   - If the persisted version is lower than the requested one, the upgrade
//     step runs inside BEGIN IMMEDIATE, re-checks the version under the lock
//     and creates the collection. Concurrent opens upgrade exactly once.
//   - Opening at a lower version than the persisted one fails.
//   - EnsureSchema can be called at any time; it is idempotent.
//
// # Units of Work
//
//   - WriteAll upserts a batch in one transaction: all rows or none.
//   - ReadAll scans the collection in one read transaction.
//
// # Database Configuration
//
//   - WAL mode: readers do not block the writer
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds, then ErrBlocked
package store
