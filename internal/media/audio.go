package media

import "strings"

// AudioCodec identifies an audio bitstream format.
type AudioCodec string

const (
	AudioAAC    AudioCodec = "aac"
	AudioMP3    AudioCodec = "mp3"
	AudioAC3    AudioCodec = "ac3"
	AudioEAC3   AudioCodec = "eac3"
	AudioPCM    AudioCodec = "pcm_s16le"
	AudioOpus   AudioCodec = "opus"
	AudioVorbis AudioCodec = "vorbis"
	AudioFLAC   AudioCodec = "flac"
)

var audioCodecAliases = map[string]AudioCodec{
	"aac":       AudioAAC,
	"mp4a":      AudioAAC,
	"mp3":       AudioMP3,
	"mp2":       AudioMP3,
	"ac3":       AudioAC3,
	"ac-3":      AudioAC3,
	"eac3":      AudioEAC3,
	"ec-3":      AudioEAC3,
	"pcm_s16le": AudioPCM,
	"pcm":       AudioPCM,
	"opus":      AudioOpus,
	"vorbis":    AudioVorbis,
	"flac":      AudioFLAC,
}

var audioEncoders = map[AudioCodec]string{
	AudioAAC:    "aac",
	AudioMP3:    "libmp3lame",
	AudioAC3:    "ac3",
	AudioEAC3:   "eac3",
	AudioPCM:    "pcm_s16le",
	AudioOpus:   "libopus",
	AudioVorbis: "libvorbis",
	AudioFLAC:   "flac",
}

// ParseAudioCodec normalizes an audio codec spelling onto the canonical value.
func ParseAudioCodec(value string) (AudioCodec, bool) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	codec, ok := audioCodecAliases[normalized]
	return codec, ok
}

// Encoder returns the ffmpeg encoder name for the codec.
func (c AudioCodec) Encoder() string {
	return audioEncoders[c]
}

// AACProfile selects an AAC encoding profile; only meaningful for AudioAAC.
type AACProfile string

const (
	AACLowComplexity   AACProfile = "aac_lc"
	AACHighEfficiency  AACProfile = "aac_he"
	AACHighEfficiency2 AACProfile = "aac_he_v2"
)

var aacProfileAliases = map[string]AACProfile{
	"aac_lc":    AACLowComplexity,
	"aac_low":   AACLowComplexity,
	"lc":        AACLowComplexity,
	"aac-lc":    AACLowComplexity,
	"aac_he":    AACHighEfficiency,
	"he":        AACHighEfficiency,
	"he-aac":    AACHighEfficiency,
	"aac_he_v2": AACHighEfficiency2,
	"he_v2":     AACHighEfficiency2,
	"hev2":      AACHighEfficiency2,
	"he-aacv2":  AACHighEfficiency2,
}

// ParseAACProfile normalizes an AAC profile spelling onto the canonical value.
func ParseAACProfile(value string) (AACProfile, bool) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	profile, ok := aacProfileAliases[normalized]
	return profile, ok
}

// EncoderProfile returns the spelling ffmpeg's aac encoder expects for
// -profile:a, which differs from the canonical name for low complexity.
func (p AACProfile) EncoderProfile() string {
	if p == AACLowComplexity {
		return "aac_low"
	}
	return string(p)
}
