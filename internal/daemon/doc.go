// Package daemon coordinates the long-running filmpress process and its
// system integration points.
//
// It wires the record store, the workflow manager, and the GPU hotplug
// monitor into a single lifecycle with flock-based locking to prevent
// multiple instances from scanning the same library. The daemon answers the
// control socket: status snapshots, on-demand scan cycles, and graceful
// shutdown requests.
//
// Keep orchestration logic here: scan and encode behavior lives in the
// workflow and encode packages while the daemon focuses on startup,
// shutdown, and high level coordination.
package daemon
