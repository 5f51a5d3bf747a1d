package media

import "strings"

// VideoCodec identifies a video bitstream format.
type VideoCodec string

const (
	CodecH264      VideoCodec = "h264"
	CodecHEVC      VideoCodec = "hevc"
	CodecMPEG4     VideoCodec = "mpeg4"
	CodecMPEG2     VideoCodec = "mpeg2video"
	CodecVP8       VideoCodec = "vp8"
	CodecVP9       VideoCodec = "vp9"
	CodecAV1       VideoCodec = "av1"
	CodecUnknownVC VideoCodec = ""
)

var videoCodecAliases = map[string]VideoCodec{
	"h264":       CodecH264,
	"avc":        CodecH264,
	"avc1":       CodecH264,
	"x264":       CodecH264,
	"hevc":       CodecHEVC,
	"h265":       CodecHEVC,
	"hev1":       CodecHEVC,
	"hvc1":       CodecHEVC,
	"x265":       CodecHEVC,
	"mpeg4":      CodecMPEG4,
	"mpeg-4":     CodecMPEG4,
	"xvid":       CodecMPEG4,
	"divx":       CodecMPEG4,
	"mpeg2video": CodecMPEG2,
	"mpeg2":      CodecMPEG2,
	"vp8":        CodecVP8,
	"vp9":        CodecVP9,
	"av1":        CodecAV1,
}

// softwareEncoders maps each codec to the ffmpeg software encoder that
// produces it.
var softwareEncoders = map[VideoCodec]string{
	CodecH264:  "libx264",
	CodecHEVC:  "libx265",
	CodecMPEG4: "mpeg4",
	CodecMPEG2: "mpeg2video",
	CodecVP8:   "libvpx",
	CodecVP9:   "libvpx-vp9",
	CodecAV1:   "libaom-av1",
}

// hardwareCapable lists the codecs with fixed-function encoder variants
// (h264_qsv, hevc_vaapi, ...). The rest always encode in software.
var hardwareCapable = map[VideoCodec]struct{}{
	CodecH264:  {},
	CodecHEVC:  {},
	CodecMPEG2: {},
}

// ParseVideoCodec normalizes a codec spelling onto the canonical value.
func ParseVideoCodec(value string) (VideoCodec, bool) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	codec, ok := videoCodecAliases[normalized]
	return codec, ok
}

// SoftwareEncoder returns the ffmpeg software encoder for the codec.
func (c VideoCodec) SoftwareEncoder() string {
	return softwareEncoders[c]
}

// SupportsHardware reports whether fixed-function encoder variants exist.
func (c VideoCodec) SupportsHardware() bool {
	_, ok := hardwareCapable[c]
	return ok
}

// SupportsProfiles reports whether the codec has an enumerated profile set.
func (c VideoCodec) SupportsProfiles() bool {
	_, ok := videoProfiles[c]
	return ok
}

// VideoProfile is a codec-specific conformance point.
type VideoProfile string

const (
	ProfileBaseline       VideoProfile = "baseline"
	ProfileMain           VideoProfile = "main"
	ProfileHigh           VideoProfile = "high"
	ProfileMain10         VideoProfile = "main10"
	ProfileSimple         VideoProfile = "simple"
	ProfileAdvancedSimple VideoProfile = "advanced-simple"
)

var videoProfiles = map[VideoCodec][]VideoProfile{
	CodecH264:  {ProfileBaseline, ProfileMain, ProfileHigh},
	CodecHEVC:  {ProfileMain, ProfileMain10},
	CodecMPEG2: {ProfileSimple, ProfileMain, ProfileHigh},
	CodecMPEG4: {ProfileSimple, ProfileAdvancedSimple},
}

var defaultProfiles = map[VideoCodec]VideoProfile{
	CodecH264:  ProfileHigh,
	CodecHEVC:  ProfileMain,
	CodecMPEG2: ProfileMain,
	CodecMPEG4: ProfileSimple,
}

// ProfileRank returns the position of a profile in the codec's ladder,
// weakest first, or -1 when the profile does not apply to the codec.
func (c VideoCodec) ProfileRank(profile VideoProfile) int {
	for i, candidate := range videoProfiles[c] {
		if candidate == profile {
			return i
		}
	}
	return -1
}

// Profiles returns the profile set for a codec, nil when profiles do not apply.
func (c VideoCodec) Profiles() []VideoProfile {
	profiles := videoProfiles[c]
	if profiles == nil {
		return nil
	}
	cp := make([]VideoProfile, len(profiles))
	copy(cp, profiles)
	return cp
}

// DefaultProfile returns the profile used when configuration leaves it unset.
func (c VideoCodec) DefaultProfile() (VideoProfile, bool) {
	profile, ok := defaultProfiles[c]
	return profile, ok
}

// ParseVideoProfile normalizes a profile spelling (including ffprobe variants
// such as "Constrained Baseline" and "Main 10") against the codec's profile
// set.
func ParseVideoProfile(value string, codec VideoCodec) (VideoProfile, bool) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	normalized = strings.TrimSuffix(normalized, " profile")
	switch normalized {
	case "constrained baseline":
		normalized = "baseline"
	case "main 10":
		normalized = "main10"
	case "advanced simple", "advanced_simple":
		normalized = "advanced-simple"
	}
	candidate := VideoProfile(normalized)
	for _, profile := range videoProfiles[codec] {
		if profile == candidate {
			return profile, true
		}
	}
	return "", false
}
