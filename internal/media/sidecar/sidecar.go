// Package sidecar reads and writes the companion metadata DSM keeps for
// indexed media files.
//
// For a file <dir>/<name> the indexer maintains <dir>/@eaDir/<name>/ with a
// SYNOINDEX_MEDIA_INFO text file and any generated previews. The payload is
// the second line of that file, a whitespace separated token list addressed
// by fixed positions. Bitrate tokens are stored in bits per second; the
// parsed model uses kbps throughout.
package sidecar

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"filmpress/internal/fileutil"
	"filmpress/internal/media"
)

const (
	// MetadataDirName is the hidden companion directory the indexer
	// creates next to media files.
	MetadataDirName = "@eaDir"
	// RecycleDirName holds soft-deleted files on DSM volumes.
	RecycleDirName = "#recycle"
	// InfoFileName is the per-file metadata payload.
	InfoFileName = "SYNOINDEX_MEDIA_INFO"
	// PreviewFileName is the transcoded preview the video station player
	// picks up from the companion directory.
	PreviewFileName = "SYNOPHOTO_FILM_H.mp4"
)

// Token positions inside the payload line. Everything outside these is
// opaque and must be preserved on rewrite.
const (
	idxDuration     = 31
	idxAudioBitrate = 32
	idxTotalBitrate = 33
	idxVideoBitrate = 34
	idxFrameRate    = 35
	idxSampleRate   = 37
	idxChannels     = 38
	idxWidth        = 39
	idxHeight       = 40
	idxFileSize     = 41
	idxVideoCodec   = 47
	idxContainer    = 49
	idxAudioCodec   = 53

	maxIndex = idxAudioCodec
)

var (
	// ErrNotFound indicates the media file has no sidecar metadata.
	ErrNotFound = errors.New("sidecar metadata not found")
	// ErrMalformed indicates the metadata file exists but its payload
	// cannot be interpreted.
	ErrMalformed = errors.New("sidecar metadata malformed")
)

// Dir returns the companion directory for a media file.
func Dir(path string) string {
	return filepath.Join(filepath.Dir(path), MetadataDirName, filepath.Base(path))
}

// InfoPath returns the metadata payload location for a media file.
func InfoPath(path string) string {
	return filepath.Join(Dir(path), InfoFileName)
}

// PreviewPath returns where the transcoded preview for a media file lives.
func PreviewPath(path string) string {
	return filepath.Join(Dir(path), PreviewFileName)
}

// Skip reports whether a directory name belongs to DSM bookkeeping rather
// than the library itself. Discovery prunes these subtrees wholesale.
func Skip(name string) bool {
	return name == MetadataDirName || name == RecycleDirName
}

// Read parses the sidecar metadata for the given media file. Missing files
// map to ErrNotFound and truncated or garbled payloads to ErrMalformed so
// callers can fall back to probing the file directly.
func Read(path string) (*media.SourceVideo, error) {
	payload, err := os.ReadFile(InfoPath(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read sidecar metadata: %w", err)
	}
	tokens, err := payloadTokens(payload)
	if err != nil {
		return nil, err
	}
	return fromTokens(path, tokens), nil
}

func payloadTokens(payload []byte) ([]string, error) {
	lines := strings.Split(string(payload), "\n")
	if len(lines) < 2 {
		return nil, fmt.Errorf("%w: payload line missing", ErrMalformed)
	}
	tokens := strings.Fields(lines[1])
	if len(tokens) <= maxIndex {
		return nil, fmt.Errorf("%w: %d tokens, need %d", ErrMalformed, len(tokens), maxIndex+1)
	}
	return tokens, nil
}

func fromTokens(path string, tokens []string) *media.SourceVideo {
	return &media.SourceVideo{
		Path: path,
		Video: media.VideoTrack{
			Codec:       tokens[idxVideoCodec],
			Width:       tokenInt(tokens[idxWidth]),
			Height:      tokenInt(tokens[idxHeight]),
			FrameRate:   tokenFloat(tokens[idxFrameRate]),
			BitrateKbps: bpsToKbps(tokens[idxVideoBitrate]),
		},
		Audio: media.AudioTrack{
			Codec:       tokens[idxAudioCodec],
			Channels:    tokenInt(tokens[idxChannels]),
			BitrateKbps: bpsToKbps(tokens[idxAudioBitrate]),
			SampleRate:  tokenInt(tokens[idxSampleRate]),
		},
		Container: media.ContainerInfo{
			Format:          tokens[idxContainer],
			DurationSeconds: tokenFloat(tokens[idxDuration]),
			SizeBytes:       tokenInt64(tokens[idxFileSize]),
			BitrateKbps:     bpsToKbps(tokens[idxTotalBitrate]),
		},
	}
}

// Update rewrites the known token positions of an existing sidecar file
// with the given video's properties and preserves every other token. The
// indexer does not re-scan previews it did not generate itself, so without
// this the preview keeps the original file's dimensions in the UI.
func Update(path string, video *media.SourceVideo) error {
	if video == nil {
		return errors.New("sidecar: nil video")
	}
	infoPath := InfoPath(path)
	payload, err := os.ReadFile(infoPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("read sidecar metadata: %w", err)
	}
	lines := strings.Split(string(payload), "\n")
	if len(lines) < 2 {
		return fmt.Errorf("%w: payload line missing", ErrMalformed)
	}
	tokens := strings.Fields(lines[1])
	for len(tokens) <= maxIndex {
		tokens = append(tokens, "0")
	}
	applyTokens(tokens, video)
	lines[1] = strings.Join(tokens, " ")
	if err := fileutil.WriteFileAtomic(infoPath, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		return fmt.Errorf("write sidecar metadata: %w", err)
	}
	return nil
}

func applyTokens(tokens []string, video *media.SourceVideo) {
	if d := video.Container.DurationSeconds; d > 0 {
		tokens[idxDuration] = strconv.FormatFloat(d, 'e', 9, 64)
	}
	if kbps := video.Audio.BitrateKbps; kbps > 0 {
		tokens[idxAudioBitrate] = strconv.Itoa(kbps * 1000)
	}
	if kbps := video.Video.BitrateKbps; kbps > 0 {
		tokens[idxVideoBitrate] = strconv.Itoa(kbps * 1000)
	}
	switch {
	case video.Container.BitrateKbps > 0:
		tokens[idxTotalBitrate] = strconv.Itoa(video.Container.BitrateKbps * 1000)
	case video.Video.BitrateKbps > 0 && video.Audio.BitrateKbps > 0:
		tokens[idxTotalBitrate] = strconv.Itoa((video.Video.BitrateKbps + video.Audio.BitrateKbps) * 1000)
	}
	if fr := video.Video.FrameRate; fr > 0 {
		tokens[idxFrameRate] = strconv.FormatFloat(fr, 'g', -1, 64)
	}
	if sr := video.Audio.SampleRate; sr > 0 {
		tokens[idxSampleRate] = strconv.Itoa(sr)
	}
	if ch := video.Audio.Channels; ch > 0 {
		tokens[idxChannels] = strconv.Itoa(ch)
	}
	if w := video.Video.Width; w > 0 {
		tokens[idxWidth] = strconv.Itoa(w)
	}
	if h := video.Video.Height; h > 0 {
		tokens[idxHeight] = strconv.Itoa(h)
	}
	if size := video.Container.SizeBytes; size > 0 {
		tokens[idxFileSize] = strconv.FormatInt(size, 10)
	}
	if codec := video.Video.Codec; codec != "" {
		tokens[idxVideoCodec] = codec
	}
	if format := video.Container.Format; format != "" {
		tokens[idxContainer] = format
	}
	if codec := video.Audio.Codec; codec != "" {
		tokens[idxAudioCodec] = codec
	}
}

func tokenInt(value string) int {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return n
}

func tokenInt64(value string) int64 {
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func tokenFloat(value string) float64 {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return f
}

func bpsToKbps(value string) int {
	bps := tokenFloat(value)
	if bps <= 0 {
		return 0
	}
	return int(bps / 1000)
}
