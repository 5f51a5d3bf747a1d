// Package metadata resolves per-file media properties ahead of a transcode
// decision. Indexed sidecar data is preferred because it avoids forking a
// probe process per file; probing fills whatever the sidecar leaves open.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"filmpress/internal/logging"
	"filmpress/internal/media"
	"filmpress/internal/media/ffprobe"
	"filmpress/internal/media/sidecar"
	"filmpress/internal/services"
)

type probeFunc func(ctx context.Context, binary, path string) (ffprobe.Result, error)

// Resolver produces the SourceVideo view of a file on disk.
type Resolver struct {
	ffprobeBinary string
	useSidecar    bool
	logger        *slog.Logger
	probe         probeFunc
}

// NewResolver builds a resolver. An empty binary falls back to "ffprobe"
// from PATH; useSidecar false skips sidecar lookups entirely.
func NewResolver(ffprobeBinary string, useSidecar bool, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Resolver{
		ffprobeBinary: ffprobeBinary,
		useSidecar:    useSidecar,
		logger:        logging.NewComponentLogger(logger, "metadata"),
		probe:         ffprobe.Inspect,
	}
}

// Resolve builds the metadata view for one source file. Failures wrap
// services.ErrResolution; they are per-file and never abort a run.
func (r *Resolver) Resolve(ctx context.Context, path string) (*media.SourceVideo, error) {
	var partial *media.SourceVideo
	if r.useSidecar {
		source, err := sidecar.Read(path)
		switch {
		case err == nil && complete(source):
			return source, nil
		case err == nil:
			partial = source
			r.logger.Debug("sidecar metadata incomplete, probing file",
				logging.String(logging.FieldSourcePath, path))
		case errors.Is(err, sidecar.ErrNotFound):
			r.logger.Debug("no sidecar metadata, probing file",
				logging.String(logging.FieldSourcePath, path))
		default:
			r.logger.Warn("unreadable sidecar metadata, probing file",
				logging.String(logging.FieldSourcePath, path),
				logging.Error(err))
		}
	}

	result, err := r.probe(ctx, r.ffprobeBinary, path)
	if err != nil {
		return nil, services.Wrap(services.ErrResolution, "metadata", "resolve",
			fmt.Sprintf("probe %s", path), err)
	}
	source := merge(partial, fromProbe(path, result))
	if !complete(source) {
		return nil, services.Wrap(services.ErrResolution, "metadata", "resolve",
			fmt.Sprintf("no usable video metadata for %s", path), nil)
	}
	return source, nil
}

// complete reports whether the view carries everything the decision needs:
// codec with geometry, a nonzero duration, and a profile whenever the codec
// defines profiles. The sidecar format has no profile token, so sources in
// profile-bearing codecs always take one probe on first sight; later cycles
// short-circuit on the stored record instead.
func complete(source *media.SourceVideo) bool {
	if !source.HasVideo() {
		return false
	}
	if source.Container.DurationSeconds <= 0 {
		return false
	}
	if codec, ok := media.ParseVideoCodec(source.Video.Codec); ok && codec.SupportsProfiles() {
		return source.Video.Profile != ""
	}
	return true
}

// merge overlays probe data underneath sidecar data: sidecar fields win
// where present, the probe fills the gaps.
func merge(primary, fill *media.SourceVideo) *media.SourceVideo {
	if primary == nil {
		return fill
	}
	if fill == nil {
		return primary
	}
	out := *primary
	if out.Video.Codec == "" {
		out.Video.Codec = fill.Video.Codec
	}
	if out.Video.Profile == "" {
		out.Video.Profile = fill.Video.Profile
	}
	if out.Video.Width == 0 {
		out.Video.Width = fill.Video.Width
	}
	if out.Video.Height == 0 {
		out.Video.Height = fill.Video.Height
	}
	if out.Video.FrameRate == 0 {
		out.Video.FrameRate = fill.Video.FrameRate
	}
	if out.Video.BitrateKbps == 0 {
		out.Video.BitrateKbps = fill.Video.BitrateKbps
	}
	if out.Audio.Codec == "" {
		out.Audio.Codec = fill.Audio.Codec
	}
	if out.Audio.Profile == "" {
		out.Audio.Profile = fill.Audio.Profile
	}
	if out.Audio.Channels == 0 {
		out.Audio.Channels = fill.Audio.Channels
	}
	if out.Audio.BitrateKbps == 0 {
		out.Audio.BitrateKbps = fill.Audio.BitrateKbps
	}
	if out.Audio.SampleRate == 0 {
		out.Audio.SampleRate = fill.Audio.SampleRate
	}
	if out.Container.Format == "" {
		out.Container.Format = fill.Container.Format
	}
	if out.Container.DurationSeconds == 0 {
		out.Container.DurationSeconds = fill.Container.DurationSeconds
	}
	if out.Container.SizeBytes == 0 {
		out.Container.SizeBytes = fill.Container.SizeBytes
	}
	if out.Container.BitrateKbps == 0 {
		out.Container.BitrateKbps = fill.Container.BitrateKbps
	}
	return &out
}

func fromProbe(path string, result ffprobe.Result) *media.SourceVideo {
	source := &media.SourceVideo{
		Path: path,
		Container: media.ContainerInfo{
			Format:          result.Format.FormatName,
			DurationSeconds: result.DurationSeconds(),
			SizeBytes:       result.SizeBytes(),
			BitrateKbps:     int(result.BitRate() / 1000),
		},
	}
	if stream := result.FirstVideoStream(); stream != nil {
		source.Video = media.VideoTrack{
			Codec:       stream.CodecName,
			Profile:     stream.Profile,
			Width:       stream.Width,
			Height:      stream.Height,
			FrameRate:   stream.FrameRateValue(),
			BitrateKbps: stream.BitRateKbps(),
		}
	}
	if stream := result.FirstAudioStream(); stream != nil {
		source.Audio = media.AudioTrack{
			Codec:       stream.CodecName,
			Profile:     stream.Profile,
			Channels:    stream.Channels,
			BitrateKbps: stream.BitRateKbps(),
			SampleRate:  stream.SampleRateValue(),
		}
	}
	return source
}
