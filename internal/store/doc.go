// Package store persists the transcoding ledger in SQLite.
//
// The Store manages database connections, schema initialization, per-path
// record upserts, status counts, and maintenance transitions (retry,
// requeue, startup recovery). Each source file owns exactly one row keyed by
// its absolute path, so repeated library scans converge on the same ledger
// instead of growing it.
//
// Unlike a work queue, the ledger is long-lived: completed and not_required
// rows are the memory that keeps the daemon idempotent across restarts.
// Schema changes bump the version in schema.go; users delete the database to
// adopt the new schema.
package store
