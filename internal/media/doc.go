// Package media defines the codec, profile, resolution, and framerate
// vocabulary shared by the metadata resolver, the decision engine, and the
// encode coordinator.
//
// Enumerations are closed: parsers normalize the spellings found in ffprobe
// output and NAS sidecar indexes onto the canonical values, and callers can
// rely on exhaustive switches over them. SourceVideo is the per-file metadata
// snapshot produced each run; it is compared against the configured target,
// never persisted.
package media
