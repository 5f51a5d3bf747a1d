package hardware

import (
	"strings"

	"filmpress/internal/media"
)

// Backend identifies an encoder execution path.
type Backend string

const (
	BackendQSV      Backend = "qsv"
	BackendVAAPI    Backend = "vaapi"
	BackendV4L2M2M  Backend = "v4l2m2m"
	BackendSoftware Backend = "software"
)

var allBackends = []Backend{BackendQSV, BackendVAAPI, BackendV4L2M2M, BackendSoftware}

// devicePaths maps each hardware backend to the device node it drives.
var devicePaths = map[Backend]string{
	BackendQSV:     "/dev/dri/renderD128",
	BackendVAAPI:   "/dev/dri/renderD128",
	BackendV4L2M2M: "/dev/video10",
}

// ParseBackend converts a string into a known Backend.
func ParseBackend(value string) (Backend, bool) {
	normalized := Backend(strings.ToLower(strings.TrimSpace(value)))
	for _, backend := range allBackends {
		if backend == normalized {
			return backend, true
		}
	}
	return "", false
}

// DevicePath returns the device node the backend encodes through, or "" for
// software.
func (b Backend) DevicePath() string {
	return devicePaths[b]
}

// Accelerated reports whether the backend uses a fixed-function encoder.
func (b Backend) Accelerated() bool {
	return b != BackendSoftware && b != ""
}

// encoderMarker is the substring that identifies the backend's encoders in
// ffmpeg -encoders output (h264_qsv, hevc_vaapi, ...).
func (b Backend) encoderMarker() string {
	if !b.Accelerated() {
		return ""
	}
	return "_" + string(b)
}

// EncoderFor returns the ffmpeg encoder name for a codec on this backend.
// Codecs without a fixed-function variant fall back to their software
// encoder regardless of backend.
func (b Backend) EncoderFor(codec media.VideoCodec) string {
	if !b.Accelerated() || !codec.SupportsHardware() {
		return codec.SoftwareEncoder()
	}
	return string(codec) + "_" + string(b)
}
