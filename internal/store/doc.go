// Package store keeps a SQLite history of verification runs.
//
// Every verify or test invocation may append one row per verification to
// the runs table. Rows are append-only and content-addressed: the ID is a
// canonical fingerprint of the row's fields, so writing the same run twice
// is a no-op.
//
// # Ordering
//
// Runs are ordered by seq, a logical clock, and then by ID with binary
// collation. Wall time is never stored, so two histories produced from the
// same inputs compare equal.
//
// Relative errors and tolerances are stored as exact decimal strings
// (canon.Float) rather than REAL columns.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON
package store
