package media

// VideoTrack describes the primary video stream of a source file. Codec and
// Profile keep the probed spelling; comparisons normalize through the parse
// helpers so unknown spellings stay visible in logs and records.
type VideoTrack struct {
	Codec       string
	Profile     string
	Width       int
	Height      int
	FrameRate   float64
	BitrateKbps int
}

// AudioTrack describes the primary audio stream, zero-valued when absent.
type AudioTrack struct {
	Codec       string
	Profile     string
	Channels    int
	BitrateKbps int
	SampleRate  int
}

// ContainerInfo describes the wrapping container.
type ContainerInfo struct {
	Format          string
	DurationSeconds float64
	SizeBytes       int64
	BitrateKbps     int
}

// SourceVideo is one file's metadata snapshot, rebuilt each run by the
// resolver and never persisted.
type SourceVideo struct {
	Path      string
	Video     VideoTrack
	Audio     AudioTrack
	Container ContainerInfo
}

// HasVideo reports whether a video stream with usable geometry was found.
func (v *SourceVideo) HasVideo() bool {
	return v != nil && v.Video.Width > 0 && v.Video.Height > 0 && v.Video.Codec != ""
}

// HasAudio reports whether an audio stream was found.
func (v *SourceVideo) HasAudio() bool {
	return v != nil && v.Audio.Codec != ""
}

// Portrait reports whether the video is taller than it is wide.
func (v *SourceVideo) Portrait() bool {
	return v != nil && v.Video.Height >= v.Video.Width && v.Video.Width > 0
}

// LongEdge returns the larger of width and height.
func (v *SourceVideo) LongEdge() int {
	if v == nil {
		return 0
	}
	if v.Video.Width > v.Video.Height {
		return v.Video.Width
	}
	return v.Video.Height
}
