// Package decision classifies discovered files against the target profile.
//
// The engine is pure: it consumes resolved metadata, the prior ledger record,
// and the file's current size/mtime, and returns one of four outcomes without
// touching the filesystem or the database. All side effects belong to the
// workflow around it.
package decision

import (
	"fmt"
	"time"

	"filmpress/internal/media"
	"filmpress/internal/store"
)

// Kind is the classification for a discovered file.
type Kind string

const (
	// KindNotRequired means the source already meets or exceeds the target.
	KindNotRequired Kind = "not_required"
	// KindAlreadyTracked means a terminal ledger record settles the file.
	KindAlreadyTracked Kind = "already_tracked"
	// KindTranscode means the source falls short of the target on some
	// dimension and must be encoded.
	KindTranscode Kind = "transcode"
	// KindError means metadata resolution failed; the file is recorded as
	// failed without invoking the encoder.
	KindError Kind = "error"
)

// Decision pairs a classification with the dimension or error that drove it.
type Decision struct {
	Kind   Kind
	Reason string
}

// Policy carries the knobs that alter classification.
type Policy struct {
	// ReprocessChanged re-opens terminal records when the source file's
	// size or modification time no longer matches the recorded signature.
	ReprocessChanged bool
}

// FileState is the walker's stat signature for the file being decided.
type FileState struct {
	Size    int64
	ModTime time.Time
}

// Engine decides what to do with each discovered file.
type Engine struct {
	Target media.TargetProfile
	Policy Policy
}

// Tracked reports whether the prior record settles the file without any
// metadata resolution. Terminal records (completed, not_required) stick;
// with ReprocessChanged set, a moved size/mtime signature re-opens them.
// Failed, pending, and in_progress records never settle a file, so crashes
// and transient failures retry on the next cycle.
func (e Engine) Tracked(prior *store.Record, current FileState) bool {
	if prior == nil || !prior.Status.Terminal() {
		return false
	}
	if e.Policy.ReprocessChanged && signatureChanged(prior, current) {
		return false
	}
	return true
}

// Decide classifies one file. The caller resolves metadata first and passes
// any resolution failure as resolveErr; a terminal prior record wins over
// everything else.
func (e Engine) Decide(source *media.SourceVideo, resolveErr error, prior *store.Record, current FileState) Decision {
	if e.Tracked(prior, current) {
		return Decision{Kind: KindAlreadyTracked, Reason: fmt.Sprintf("record is %s", prior.Status)}
	}
	if resolveErr != nil {
		return Decision{Kind: KindError, Reason: resolveErr.Error()}
	}
	if source == nil {
		return Decision{Kind: KindError, Reason: "no metadata resolved"}
	}
	if reason, ok := e.satisfies(source); !ok {
		return Decision{Kind: KindTranscode, Reason: reason}
	}
	return Decision{Kind: KindNotRequired, Reason: "source meets the target profile"}
}

// satisfies checks the quality floor dimension by dimension and names the
// first one the source falls short on.
func (e Engine) satisfies(source *media.SourceVideo) (string, bool) {
	target := e.Target

	sourceCodec, _ := media.ParseVideoCodec(source.Video.Codec)
	if sourceCodec != target.Video.Codec {
		return fmt.Sprintf("video codec %q does not match target %s", source.Video.Codec, target.Video.Codec), false
	}

	if target.Video.Codec.SupportsProfiles() {
		sourceProfile, ok := media.ParseVideoProfile(source.Video.Profile, target.Video.Codec)
		if !ok {
			return fmt.Sprintf("video profile %q is not a known %s profile", source.Video.Profile, target.Video.Codec), false
		}
		if target.Video.Codec.ProfileRank(sourceProfile) < target.Video.Codec.ProfileRank(target.Video.Profile) {
			return fmt.Sprintf("video profile %s is below target %s", sourceProfile, target.Video.Profile), false
		}
	}

	if source.LongEdge() < target.LongEdge() {
		return fmt.Sprintf("resolution %dx%d is below target %dx%d",
			source.Video.Width, source.Video.Height, target.Video.Width, target.Video.Height), false
	}

	if source.HasAudio() {
		sourceAudio, _ := media.ParseAudioCodec(source.Audio.Codec)
		if sourceAudio != target.Audio.Codec {
			return fmt.Sprintf("audio codec %q does not match target %s", source.Audio.Codec, target.Audio.Codec), false
		}
		if source.Audio.Channels < target.Audio.Channels {
			return fmt.Sprintf("audio channels %d below target %d", source.Audio.Channels, target.Audio.Channels), false
		}
	}

	return "", true
}

func signatureChanged(prior *store.Record, current FileState) bool {
	if prior.SourceSize > 0 && current.Size > 0 && prior.SourceSize != current.Size {
		return true
	}
	if !prior.SourceModifiedAt.IsZero() && !current.ModTime.IsZero() && !prior.SourceModifiedAt.Equal(current.ModTime) {
		return true
	}
	return false
}
