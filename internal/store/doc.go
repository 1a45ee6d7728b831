// Package store is the run ledger: a SQLite database recording every merge
// job, the versions it ingested, the artifacts it had to skip and the
// digest of every class it wrote.
//
// The ledger is write-once per row. Every insert is idempotent
// (ON CONFLICT DO NOTHING), so re-recording the same fact is harmless.
//
// # Ordering
//
// Queries order by logical keys, never by rowid: runs by start time then
// id, versions by ingestion sequence, classes by name. Text comparisons use
// COLLATE BINARY.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
