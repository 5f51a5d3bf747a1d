// Package ipc exposes the daemon control surface over a Unix domain socket
// and ships the matching client used by the CLI.
//
// The protocol is newline-delimited JSON: the client sends a Request with a
// fresh uuid and an operation name, the server answers with a Response that
// echoes the id. It owns socket lifecycle management and the wire DTOs; the
// server embeds the daemon while the client keeps calls sequential so CLI
// commands fail fast when the daemon is offline.
package ipc
