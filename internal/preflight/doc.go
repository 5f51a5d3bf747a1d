// Package preflight verifies that the environment can support a transcoding
// run before any cycle starts: library roots exist and are accessible, the
// working directories are writable, the external binaries resolve, and the
// ledger database opens cleanly.
//
// The checks serve two contexts. The daemon runs them once at startup and
// refuses to come up while any check fails, so a bad mount or a missing
// ffmpeg surfaces before the first cycle touches the library. The CLI runs
// the same checks on demand and renders them as a table for troubleshooting.
package preflight
