// Package notifications delivers workflow events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when notifications are
// disabled. Enumerated event types cover cycle summaries and failures so the
// workflow can emit consistent, user-friendly messages without duplicating
// HTTP glue. The run_summary and errors toggles suppress their events inside
// the service, so callers publish unconditionally.
//
// Extend this package if you need alternative transports; all workflow code
// depends only on the simple Service interface.
package notifications
