// Package encode turns a transcode decision into an actual rendition.
//
// A Plan resolves everything source-dependent ahead of time; the
// Coordinator stages the encoder output under the staging directory,
// validates it with ffprobe, and only then moves it into the @eaDir
// companion directory so readers never observe a partial file. Hardware
// backends get exactly one fallback attempt further down the ladder.
package encode
