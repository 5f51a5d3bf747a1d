package config

import "filmpress/internal/media"

// Target converts the video, audio, and output sections into the profile the
// decision engine and encoder consume. Call it only on a config that passed
// Validate; unparseable values collapse to their zero codecs here.
func (c *Config) Target() media.TargetProfile {
	videoCodec, _ := media.ParseVideoCodec(c.Video.Codec)
	audioCodec, _ := media.ParseAudioCodec(c.Audio.Codec)

	target := media.TargetProfile{
		Video: media.TargetVideo{
			Codec:       videoCodec,
			Width:       c.Video.Width,
			Height:      c.Video.Height,
			BitrateKbps: c.Video.BitrateKbps,
		},
		Audio: media.TargetAudio{
			Codec:       audioCodec,
			Channels:    c.Audio.Channels,
			BitrateKbps: c.Audio.BitrateKbps,
		},
		Container: c.Output.Container,
	}
	if videoCodec.SupportsProfiles() {
		if profile, ok := media.ParseVideoProfile(c.Video.Profile, videoCodec); ok {
			target.Video.Profile = profile
		}
	}
	if audioCodec == media.AudioAAC && c.Audio.Profile != "" {
		if profile, ok := media.ParseAACProfile(c.Audio.Profile); ok {
			target.Audio.Profile = profile
		}
	}
	return target
}
