package media

// TargetVideo is the desired video output shape.
type TargetVideo struct {
	Codec       VideoCodec
	Profile     VideoProfile
	Width       int
	Height      int
	BitrateKbps int
}

// TargetAudio is the desired audio output shape. Profile applies to AAC only.
type TargetAudio struct {
	Codec       AudioCodec
	Profile     AACProfile
	Channels    int
	BitrateKbps int
}

// TargetProfile is the administrator-configured output shape. Immutable for
// the duration of a run; SourceVideo instances are compared against it.
type TargetProfile struct {
	Video     TargetVideo
	Audio     TargetAudio
	Container string
}

// LongEdge returns the larger of the target width and height.
func (t TargetProfile) LongEdge() int {
	if t.Video.Width > t.Video.Height {
		return t.Video.Width
	}
	return t.Video.Height
}

// HeightFor picks the output scaling height for a source. Portrait sources
// scale their width down to the configured width, so the height argument
// handed to the encoder is the target width in that case.
func (t TargetProfile) HeightFor(source *SourceVideo) int {
	if source.Portrait() {
		return t.Video.Width
	}
	return t.Video.Height
}

// ChannelsFor returns the output channel count for a source, never raising
// the count above what the source carries. Sources without audio yield zero,
// which suppresses the channel flag on the encoder command line.
func (t TargetProfile) ChannelsFor(source *SourceVideo) int {
	if source == nil {
		return t.Audio.Channels
	}
	if source.Audio.Channels < t.Audio.Channels {
		return source.Audio.Channels
	}
	return t.Audio.Channels
}

// FrameRateFor returns the output frame rate for a source: the nearest
// ladder rate, down-converted for preview playback.
func (t TargetProfile) FrameRateFor(source *SourceVideo) FrameRate {
	rate := Rate30
	if source != nil && source.Video.FrameRate > 0 {
		rate = NearestFrameRate(source.Video.FrameRate)
	}
	return rate.ForPreview()
}
