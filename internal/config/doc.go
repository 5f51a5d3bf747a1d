// Package config loads, normalizes, and validates filmpress configuration
// data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// FILMPRESS_NTFY_TOPIC. The Config type centralizes every knob the daemon and
// CLI need, allowing library roots, the transcode target, and hardware
// preferences to be discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical codec spellings, and clear validation errors.
package config
