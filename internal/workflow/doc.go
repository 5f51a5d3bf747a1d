// Package workflow orchestrates the periodic library scan.
//
// The Manager owns the scan loop: it discovers video files under the
// configured library roots, consults the transcoding ledger, resolves
// metadata for anything unsettled, and routes files that fall short of the
// target profile through the encoder on a bounded worker pool. Every outcome
// is persisted back to the ledger, so repeated cycles converge instead of
// redoing work.
//
// One cycle runs at a time. The flag guarding against overlap lives on the
// Manager, so independent managers (and their tests) never contend with each
// other. Cycles isolate per-file failures: a file that cannot be probed or
// encoded is recorded as failed and the cycle moves on.
package workflow
