// Package store persists navigation snapshots in SQLite.
//
// It is an optional backend for engine.SaveFunc: every applied transition
// becomes one row keyed by (session, seq). A session can later be restored
// into a fresh engine.Store from its latest row.
//
// # Patterns
//
// Logical time:
//   - Rows are ordered by seq (the engine's logical clock), never timestamps
//   - All multi-row reads use ORDER BY seq ASC
//
// Idempotency:
//   - PRIMARY KEY(session_id, seq) with ON CONFLICT DO NOTHING
//   - Writing the same snapshot twice is a no-op
//
// Integrity:
//   - Entries are stored as RFC 8785 canonical JSON
//   - entries_hash is checked on every read
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
